package summarize_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mediadigest/internal/services/llm"
	"mediadigest/internal/store"
	"mediadigest/internal/summarize"
	"mediadigest/internal/testsupport"
)

type fakeModel struct {
	summarizeCalls int
	rateCalls      int
	summarizeErr   error
	rateErr        error
	failFor        map[string]error
}

func (f *fakeModel) Summarize(ctx context.Context, kind, title, author, date, text string) (llm.Summarization, error) {
	f.summarizeCalls++
	if err := f.failFor[title]; err != nil {
		return llm.Summarization{}, err
	}
	if f.summarizeErr != nil {
		return llm.Summarization{}, f.summarizeErr
	}
	return llm.Summarization{
		Summary:   "summary of " + title,
		KeyTopics: []string{"topic-a", "topic-b"},
		Companies: []llm.NamedContext{{Name: "Acme", Context: "mentioned"}},
		Quotes:    []llm.Quote{{Text: "a quote", Timestamp: "01:23"}},
		Raw:       `{"summary":"raw"}`,
	}, nil
}

func (f *fakeModel) Rate(ctx context.Context, kind, title, summary string, keyTopics []string) (llm.Rating, error) {
	f.rateCalls++
	if f.rateErr != nil {
		return llm.Rating{}, f.rateErr
	}
	return llm.Rating{Rating: 4, Rationale: "clear takeaways"}, nil
}

func seedCompletedEpisodeWithTranscript(t *testing.T, st *store.Store, guid string) {
	t.Helper()
	testsupport.SeedEpisode(t, st, guid)
	testsupport.AdvanceEpisode(t, st, guid, store.StatusInProgress, store.StatusCompleted)
	if err := st.SaveTranscript(context.Background(), &store.Transcript{
		EpisodeGUID:    guid,
		TranscriptText: "transcript for " + guid,
		TranscriptPath: "/tmp/" + guid + ".json",
	}); err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}
}

func TestStageSummarizesCompletedItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seedCompletedEpisodeWithTranscript(t, st, "ep-1")
	testsupport.SeedNewsletter(t, st, "msg-1")
	testsupport.AdvanceNewsletter(t, st, "msg-1", store.StatusInProgress, store.StatusCompleted)

	model := &fakeModel{}
	stage := summarize.NewStage(st, model, nil)
	report, err := stage.Run(ctx, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Summarized != 2 || len(report.Failures) != 0 {
		t.Fatalf("report = %+v", report)
	}

	summary, err := st.GetSummary(ctx, "ep-1")
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if summary.RawRating != 4 || summary.FinalRating != 4 {
		t.Fatalf("ratings = %d/%d", summary.RawRating, summary.FinalRating)
	}
	if !strings.Contains(summary.KeyTopicsJSON, "topic-a") {
		t.Fatalf("key topics = %q", summary.KeyTopicsJSON)
	}
	if !strings.Contains(summary.QuotesJSON, "01:23") {
		t.Fatalf("quotes = %q", summary.QuotesJSON)
	}
}

func TestStageSecondRunMakesNoModelCalls(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seedCompletedEpisodeWithTranscript(t, st, "ep-1")
	model := &fakeModel{}
	stage := summarize.NewStage(st, model, nil)

	if _, err := stage.Run(ctx, 0); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstCalls := model.summarizeCalls

	report, err := stage.Run(ctx, 0)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Summarized != 0 {
		t.Fatalf("second run summarized %d items", report.Summarized)
	}
	if model.summarizeCalls != firstCalls {
		t.Fatalf("second run made %d extra model calls", model.summarizeCalls-firstCalls)
	}
}

func TestStageModelFailureLeavesItemEligible(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seedCompletedEpisodeWithTranscript(t, st, "ep-1")
	model := &fakeModel{summarizeErr: errors.New("model overloaded")}
	stage := summarize.NewStage(st, model, nil)

	report, err := stage.Run(ctx, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Summarized != 0 || len(report.Failures) != 1 {
		t.Fatalf("report = %+v", report)
	}

	// Status untouched and the item is still eligible next run.
	episode, _ := st.GetEpisode(ctx, "ep-1")
	if episode.Status != store.StatusCompleted {
		t.Fatalf("status = %s, model failure must not change status", episode.Status)
	}
	candidates, err := st.EpisodesNeedingSummary(ctx)
	if err != nil {
		t.Fatalf("EpisodesNeedingSummary: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, item must remain eligible", len(candidates))
	}

	// The model recovers; the item summarizes on the next run.
	model.summarizeErr = nil
	report, err = stage.Run(ctx, 0)
	if err != nil {
		t.Fatalf("recovery run: %v", err)
	}
	if report.Summarized != 1 {
		t.Fatalf("recovery report = %+v", report)
	}
}

func TestStageOneFailureDoesNotStopBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seedCompletedEpisodeWithTranscript(t, st, "ep-bad")
	seedCompletedEpisodeWithTranscript(t, st, "ep-good")

	model := &fakeModel{failFor: map[string]error{
		"Episode ep-bad": errors.New("model refused"),
	}}
	stage := summarize.NewStage(st, model, nil)
	report, err := stage.Run(ctx, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Summarized != 1 || len(report.Failures) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if report.Failures[0].ItemID != "ep-bad" {
		t.Fatalf("failure = %+v", report.Failures[0])
	}
}

func TestStageSkipsEpisodesWithoutTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedEpisode(t, st, "orphan")
	testsupport.AdvanceEpisode(t, st, "orphan", store.StatusInProgress, store.StatusCompleted)

	model := &fakeModel{}
	stage := summarize.NewStage(st, model, nil)
	report, err := stage.Run(ctx, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.MissingTranscript != 1 || report.Summarized != 0 {
		t.Fatalf("report = %+v", report)
	}
	if model.summarizeCalls != 0 {
		t.Fatalf("model called %d times for transcript-less episode", model.summarizeCalls)
	}
}
