package export

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"mediadigest/internal/config"
	"mediadigest/internal/fileutil"
	"mediadigest/internal/logging"
	"mediadigest/internal/store"
)

// Store is the slice of the database the exporter reads from.
type Store interface {
	SummarizedEpisodes(ctx context.Context, since, until time.Time) ([]*store.SummarizedItem, error)
	SummarizedNewsletters(ctx context.Context, since, until time.Time) ([]*store.SummarizedItem, error)
}

// Report describes one export run.
type Report struct {
	Written   int
	Skipped   int
	Failures  []Failure
	Committed bool
}

// Failure records one item whose note could not be produced.
type Failure struct {
	ItemID string
	Title  string
	Err    error
}

// Exporter renders every summarized item into the vault. Notes the reader
// already rated, and notes moved into the read tree, are left alone.
type Exporter struct {
	store  Store
	cfg    *config.Config
	git    *GitSync
	logger *slog.Logger
}

func NewExporter(st Store, cfg *config.Config, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exporter{
		store:  st,
		cfg:    cfg,
		git:    NewGitSync(cfg.Export.VaultDir, cfg.Export.GitPush, cfg.Export.GitRemote, cfg.Export.GitBranch, logger),
		logger: logger,
	}
}

// Run exports all summarized items and, when the vault is a git repository,
// commits the result. Notes live under the configured output directory
// inside the vault; git operations run at the vault root. With dryRun set,
// Run reports what it would write without touching the vault.
func (e *Exporter) Run(ctx context.Context, dryRun bool) (*Report, error) {
	root := e.cfg.ExportRoot()
	if !dryRun {
		if err := EnsureLayout(root); err != nil {
			return nil, err
		}
	}

	// Everything summarized so far is fair game; an unchanged note is an
	// idempotent rewrite and a rated note is skipped.
	since := time.Time{}
	until := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

	episodes, err := e.store.SummarizedEpisodes(ctx, since, until)
	if err != nil {
		return nil, err
	}
	newsletters, err := e.store.SummarizedNewsletters(ctx, since, until)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, item := range append(episodes, newsletters...) {
		e.exportItem(item, report, dryRun)
	}

	if !dryRun && gitInitialized(e.cfg.Export.VaultDir) {
		committed, err := e.git.Sync(ctx, "Update knowledge vault")
		if err != nil {
			return report, err
		}
		report.Committed = committed
	}
	e.logger.Info("export finished",
		logging.Int("written", report.Written),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", len(report.Failures)))
	return report, nil
}

func (e *Exporter) exportItem(item *store.SummarizedItem, report *Report, dryRun bool) {
	root := e.cfg.ExportRoot()
	category := podcastCategory
	if item.ItemKind == store.KindNewsletter {
		category = newsletterCategory
	}
	name := noteFileName(item.Date, item.Author, item.Title)
	target := filepath.Join(root, unreadState, category, name)

	// A note the reader filed under read/ stays there.
	if fileutil.Exists(filepath.Join(root, readState, category, name)) {
		report.Skipped++
		return
	}

	content, err := RenderNote(item, e.logger)
	if err != nil {
		report.Failures = append(report.Failures, Failure{ItemID: item.ItemID, Title: item.Title, Err: err})
		e.logger.Error("note render failed",
			logging.String(logging.FieldItemID, item.ItemID),
			logging.Error(err))
		return
	}
	var written bool
	if dryRun {
		edited, checkErr := CheckManualEdit(target)
		err = checkErr
		written = !edited
	} else {
		written, err = WriteNote(target, content)
	}
	if err != nil {
		report.Failures = append(report.Failures, Failure{ItemID: item.ItemID, Title: item.Title, Err: err})
		e.logger.Error("note write failed",
			logging.String(logging.FieldItemID, item.ItemID),
			logging.Error(err))
		return
	}
	if written {
		report.Written++
	} else {
		report.Skipped++
		e.logger.Info("preserving manually rated note",
			logging.String(logging.FieldItemID, item.ItemID),
			logging.String("path", target))
	}
}

// WriteDigest writes a rendered digest. Digests carry no manual state and
// are always regenerated in place.
func WriteDigest(path, content string) error {
	return fileutil.WriteAtomic(path, []byte(content))
}

func gitInitialized(root string) bool {
	return fileutil.Exists(filepath.Join(root, ".git"))
}
