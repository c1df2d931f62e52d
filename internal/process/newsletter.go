package process

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"mediadigest/internal/config"
	"mediadigest/internal/fileutil"
	"mediadigest/internal/logging"
	"mediadigest/internal/services"
	"mediadigest/internal/store"
	"mediadigest/internal/textutil"
)

// previewRunes caps the digest preview length for one newsletter.
const previewRunes = 300

// NewsletterStore is the store surface the newsletter stage needs.
type NewsletterStore interface {
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error)
	ListNewslettersByStatus(ctx context.Context, status store.Status, limit int) ([]*store.Newsletter, error)
	TransitionNewsletter(ctx context.Context, messageID string, to store.Status, errorReason string) error
	UpdateNewsletterBodyText(ctx context.Context, messageID, bodyText string) error
	UpsertDigestEntry(ctx context.Context, entry *store.DigestEntry) error
}

// NewsletterStage extracts readable text from pending newsletters.
type NewsletterStage struct {
	store  NewsletterStore
	cfg    *config.Config
	logger *slog.Logger
}

// NewNewsletterStage wires the newsletter stage.
func NewNewsletterStage(st NewsletterStore, cfg *config.Config, logger *slog.Logger) *NewsletterStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &NewsletterStage{
		store:  st,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "process-newsletters"),
	}
}

// Run processes pending newsletters, at most limit when limit is positive,
// continuing past per-item failures.
func (n *NewsletterStage) Run(ctx context.Context, limit int) (*Report, error) {
	report := &Report{Stage: "process-newsletters"}

	reclaimed, err := n.store.ReclaimStale(ctx,
		time.Duration(n.cfg.Pipeline.ReclaimAfterMinutes)*time.Minute)
	if err != nil {
		return report, err
	}
	report.Reclaimed = reclaimed

	newsletters, err := n.store.ListNewslettersByStatus(ctx, store.StatusPending, limit)
	if err != nil {
		return report, err
	}

	for _, newsletter := range newsletters {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		itemCtx := services.WithStage(services.WithItemID(ctx, newsletter.MessageID), "process-newsletters")
		logger := logging.WithContext(itemCtx, n.logger)

		// A plain-text part from the mail fetcher wins over HTML extraction.
		text := textutil.CleanText(newsletter.BodyText)
		if text == "" {
			text = ExtractNewsletterText(newsletter.BodyHTML)
		}
		if strings.TrimSpace(text) == "" {
			// No readable body yet. A later fetch may refresh the message,
			// so the item stays pending rather than failing.
			report.addSkipped(newsletter.MessageID, newsletter.Subject, "no readable text in message")
			logger.Warn("newsletter has no readable text, leaving pending",
				logging.String("subject", newsletter.Subject))
			continue
		}

		if err := n.processNewsletter(itemCtx, newsletter, text); err != nil {
			report.addFailed(newsletter.MessageID, newsletter.Subject, err.Error())
			logger.Error("newsletter processing failed", logging.Error(err))
			if terr := n.store.TransitionNewsletter(itemCtx, newsletter.MessageID, store.StatusFailed, err.Error()); terr != nil {
				logger.Error("failed to record failure", logging.Error(terr))
			}
			continue
		}
		report.addCompleted(newsletter.MessageID, newsletter.Subject)
		logger.Info("newsletter processed", logging.String("subject", newsletter.Subject))
	}
	return report, nil
}

func (n *NewsletterStage) processNewsletter(ctx context.Context, newsletter *store.Newsletter, text string) error {
	if err := n.store.TransitionNewsletter(ctx, newsletter.MessageID, store.StatusInProgress, ""); err != nil {
		return err
	}

	bodyPath := filepath.Join(n.cfg.Paths.NewsletterDir,
		textutil.SanitizeToken(newsletter.MessageID)+".txt")
	if err := fileutil.WriteAtomic(bodyPath, []byte(text)); err != nil {
		return err
	}
	if err := n.store.UpdateNewsletterBodyText(ctx, newsletter.MessageID, text); err != nil {
		return err
	}
	if err := n.store.UpsertDigestEntry(ctx, &store.DigestEntry{
		MessageID:  newsletter.MessageID,
		Subject:    newsletter.Subject,
		Preview:    textutil.Preview(text, previewRunes),
		SourceLink: newsletter.Link,
	}); err != nil {
		return err
	}

	return n.store.TransitionNewsletter(ctx, newsletter.MessageID, store.StatusCompleted, "")
}
