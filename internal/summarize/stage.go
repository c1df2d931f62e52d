// Package summarize runs LLM summarization and rating over completed items.
// Progress is tracked by summary-row presence rather than status changes, so
// a transient model failure simply leaves the item eligible for the next run.
package summarize

import (
	"context"
	"encoding/json"
	"log/slog"

	"mediadigest/internal/logging"
	"mediadigest/internal/services"
	"mediadigest/internal/services/llm"
	"mediadigest/internal/store"
)

// Store is the store surface the summarize stage needs.
type Store interface {
	EpisodesNeedingSummary(ctx context.Context) ([]*store.SummaryCandidate, error)
	NewslettersNeedingSummary(ctx context.Context) ([]*store.SummaryCandidate, error)
	SaveSummary(ctx context.Context, summary *store.Summary) error
}

// Model is the LLM surface the stage calls. *llm.Client satisfies it.
type Model interface {
	Summarize(ctx context.Context, kind, title, author, date, text string) (llm.Summarization, error)
	Rate(ctx context.Context, kind, title, summary string, keyTopics []string) (llm.Rating, error)
}

// Stage drives summarization across both item kinds.
type Stage struct {
	store  Store
	model  Model
	logger *slog.Logger
}

// NewStage wires the summarize stage.
func NewStage(st Store, model Model, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		store:  st,
		model:  model,
		logger: logging.NewComponentLogger(logger, "summarize"),
	}
}

// Report summarizes one stage run.
type Report struct {
	Summarized        int
	MissingTranscript int
	Failures          []Failure
}

// Failure records one item the model could not summarize this run. The item
// stays eligible; nothing about it changes in the store.
type Failure struct {
	ItemID string
	Title  string
	Err    error
}

// Run summarizes eligible items, at most limit when limit is positive.
// Model failures are per-item and do not stop the batch.
func (s *Stage) Run(ctx context.Context, limit int) (*Report, error) {
	report := &Report{}

	episodes, err := s.store.EpisodesNeedingSummary(ctx)
	if err != nil {
		return report, err
	}
	newsletters, err := s.store.NewslettersNeedingSummary(ctx)
	if err != nil {
		return report, err
	}

	candidates := append(episodes, newsletters...)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		itemCtx := services.WithStage(services.WithItemID(ctx, candidate.ItemID), "summarize")
		logger := logging.WithContext(itemCtx, s.logger)

		if candidate.ItemKind == store.KindPodcast && candidate.Text == "" {
			// Completed episode without a transcript row. An upstream
			// invariant broke; surface it rather than summarizing nothing.
			report.MissingTranscript++
			logger.Warn("completed episode has no transcript, skipping",
				logging.String("title", candidate.Title))
			continue
		}

		if err := s.summarizeOne(itemCtx, candidate); err != nil {
			report.Failures = append(report.Failures, Failure{
				ItemID: candidate.ItemID,
				Title:  candidate.Title,
				Err:    err,
			})
			logger.Warn("summarization failed, item stays eligible", logging.Error(err))
			continue
		}
		report.Summarized++
		logger.Info("item summarized", logging.String("title", candidate.Title))
	}
	return report, nil
}

func (s *Stage) summarizeOne(ctx context.Context, candidate *store.SummaryCandidate) error {
	kind := string(candidate.ItemKind)
	result, err := s.model.Summarize(ctx, kind, candidate.Title, candidate.Author, candidate.Date, candidate.Text)
	if err != nil {
		return err
	}
	rating, err := s.model.Rate(ctx, kind, candidate.Title, result.Summary, result.KeyTopics)
	if err != nil {
		return err
	}

	summary := &store.Summary{
		ItemID:      candidate.ItemID,
		ItemKind:    candidate.ItemKind,
		Summary:     result.Summary,
		RawRating:   rating.Rating,
		FinalRating: rating.Rating,
	}
	if summary.KeyTopicsJSON, err = marshalList(result.KeyTopics); err != nil {
		return err
	}
	if summary.CompaniesJSON, err = marshalList(result.Companies); err != nil {
		return err
	}
	if summary.ToolsJSON, err = marshalList(result.Tools); err != nil {
		return err
	}
	if summary.QuotesJSON, err = marshalList(result.Quotes); err != nil {
		return err
	}
	if summary.StructuredJSON = result.Raw; summary.StructuredJSON == "" {
		summary.StructuredJSON = "{}"
	}
	return s.store.SaveSummary(ctx, summary)
}

func marshalList[T any](items []T) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
