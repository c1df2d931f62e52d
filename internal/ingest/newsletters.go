package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mediadigest/internal/logging"
	"mediadigest/internal/services"
	"mediadigest/internal/store"
)

// NewsletterStore is the subset of the store newsletter intake writes to.
type NewsletterStore interface {
	UpsertNewsletter(ctx context.Context, newsletter *store.Newsletter) error
}

// newsletterMessage is the drop-file format produced by the mail fetcher.
type newsletterMessage struct {
	MessageID string `json:"message_id"`
	Subject   string `json:"subject"`
	Sender    string `json:"from"`
	Date      string `json:"date"`
	BodyHTML  string `json:"body_html"`
	BodyText  string `json:"body_text"`
	Link      string `json:"link"`
}

// NewsletterIntake registers newsletters dropped as JSON files into the
// configured directory. Registered files move to a processed subdirectory so
// a re-run does not re-read them; registration itself is idempotent anyway.
type NewsletterIntake struct {
	store   NewsletterStore
	dropDir string
	logger  *slog.Logger
}

// NewNewsletterIntake builds the drop-directory intake.
func NewNewsletterIntake(st NewsletterStore, dropDir string, logger *slog.Logger) *NewsletterIntake {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &NewsletterIntake{store: st, dropDir: dropDir, logger: logger}
}

// IntakeReport summarizes one intake run.
type IntakeReport struct {
	Registered int
	Malformed  []string
}

// Run reads every pending drop file, registers it, and archives it. A
// malformed file is logged and left in place for inspection; remaining files
// are still processed.
func (n *NewsletterIntake) Run(ctx context.Context) (*IntakeReport, error) {
	entries, err := os.ReadDir(n.dropDir)
	if err != nil {
		if os.IsNotExist(err) {
			return &IntakeReport{}, nil
		}
		return nil, fmt.Errorf("read drop dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	report := &IntakeReport{}
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		path := filepath.Join(n.dropDir, name)
		if err := n.intakeFile(ctx, path); err != nil {
			report.Malformed = append(report.Malformed, name)
			n.logger.Warn("newsletter drop file rejected",
				logging.String("file", name),
				logging.Error(err))
			continue
		}
		if err := n.archive(path); err != nil {
			return report, err
		}
		report.Registered++
	}
	return report, nil
}

func (n *NewsletterIntake) intakeFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read drop file: %w", err)
	}

	var msg newsletterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return services.Wrap(services.ErrValidation, "ingest", "parse drop file", "invalid JSON", err)
	}
	if strings.TrimSpace(msg.MessageID) == "" {
		return services.Wrap(services.ErrValidation, "ingest", "parse drop file", "missing message_id", nil)
	}
	if msg.BodyHTML == "" && msg.BodyText == "" {
		return services.Wrap(services.ErrValidation, "ingest", "parse drop file", "message has no body", nil)
	}

	newsletter := &store.Newsletter{
		MessageID: strings.TrimSpace(msg.MessageID),
		Subject:   strings.TrimSpace(msg.Subject),
		Sender:    strings.TrimSpace(msg.Sender),
		Date:      strings.TrimSpace(msg.Date),
		BodyHTML:  msg.BodyHTML,
		BodyText:  msg.BodyText,
		Link:      strings.TrimSpace(msg.Link),
	}
	if newsletter.Subject == "" {
		newsletter.Subject = "(no subject)"
	}
	return n.store.UpsertNewsletter(ctx, newsletter)
}

func (n *NewsletterIntake) archive(path string) error {
	processedDir := filepath.Join(n.dropDir, "processed")
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return fmt.Errorf("create processed dir: %w", err)
	}
	target := filepath.Join(processedDir, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("archive drop file: %w", err)
	}
	return nil
}
