package export_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediadigest/internal/export"
	"mediadigest/internal/logging"
	"mediadigest/internal/store"
	"mediadigest/internal/testsupport"
)

func summarizedEpisode(guid, title string, rating int) *store.SummarizedItem {
	return &store.SummarizedItem{
		ItemID:   guid,
		ItemKind: store.KindPodcast,
		Title:    title,
		Author:   "Test Show",
		Date:     "2026-08-01T09:00:00Z",
		Link:     "https://example.com/" + guid,
		Summary: store.Summary{
			ItemID:        guid,
			ItemKind:      store.KindPodcast,
			Summary:       "An episode about storage engines.",
			KeyTopicsJSON: `["databases","sqlite"]`,
			CompaniesJSON: `[{"name":"Acme","context":"mentioned as a case study"}]`,
			QuotesJSON:    `[{"text":"Ship it.","timestamp":"12:30"}]`,
			RawRating:     rating,
			FinalRating:   rating,
		},
	}
}

func TestRenderNoteFrontMatter(t *testing.T) {
	item := summarizedEpisode("ep-1", "Storage Engines", 4)
	content, err := export.RenderNote(item, logging.NewNop())
	if err != nil {
		t.Fatalf("RenderNote: %v", err)
	}
	for _, want := range []string{
		`title: "Storage Engines"`,
		"date: 2026-08-01",
		"type: podcast",
		`author: "Test Show"`,
		"link: https://example.com/ep-1",
		"rating:\n",
		"rating_llm: 4",
		"## Summary",
		"An episode about storage engines.",
		"- databases",
		"- **Acme**: mentioned as a case study",
		"> Ship it. (12:30)",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("note missing %q:\n%s", want, content)
		}
	}
}

func TestRenderNoteSkipsMalformedSections(t *testing.T) {
	item := summarizedEpisode("ep-2", "Broken Topics", 3)
	item.Summary.KeyTopicsJSON = `{not json`
	content, err := export.RenderNote(item, logging.NewNop())
	if err != nil {
		t.Fatalf("RenderNote: %v", err)
	}
	if strings.Contains(content, "## Key topics") {
		t.Fatalf("malformed key topics should drop the section:\n%s", content)
	}
	if !strings.Contains(content, "## Summary") {
		t.Fatalf("summary section lost:\n%s", content)
	}
}

func TestWriteNotePreservesManualRating(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	item := summarizedEpisode("ep-3", "Rated By Hand", 2)
	content, err := export.RenderNote(item, logging.NewNop())
	if err != nil {
		t.Fatalf("RenderNote: %v", err)
	}

	written, err := export.WriteNote(path, content)
	if err != nil || !written {
		t.Fatalf("first write: written=%v err=%v", written, err)
	}
	edited, err := export.CheckManualEdit(path)
	if err != nil || edited {
		t.Fatalf("fresh note should not count as edited: edited=%v err=%v", edited, err)
	}

	rated := strings.Replace(content, "rating:\n", "rating: 5\n", 1)
	if rated == content {
		t.Fatal("failed to simulate manual rating")
	}
	if err := os.WriteFile(path, []byte(rated), 0o644); err != nil {
		t.Fatal(err)
	}

	written, err = export.WriteNote(path, content)
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	if written {
		t.Fatal("manually rated note was overwritten")
	}
	if got := testsupport.ReadFile(t, path); got != rated {
		t.Fatal("manual rating lost on re-export")
	}
}

func TestCheckManualEditMissingFile(t *testing.T) {
	edited, err := export.CheckManualEdit(filepath.Join(t.TempDir(), "absent.md"))
	if err != nil {
		t.Fatalf("CheckManualEdit: %v", err)
	}
	if edited {
		t.Fatal("missing file reported as edited")
	}
}

func TestNotePathsDeterministic(t *testing.T) {
	got := export.PodcastNotePath("/vault", "2026-08-01T09:00:00Z", "Test Show", "Storage: Engines?")
	want := filepath.Join("/vault", "unread", "Podcasts", "2026-08-01_Test_Show_Storage__Engines_.md")
	if got != want {
		t.Fatalf("PodcastNotePath = %q, want %q", got, want)
	}
	again := export.PodcastNotePath("/vault", "2026-08-01T09:00:00Z", "Test Show", "Storage Engines!")
	if got != again {
		t.Fatal("note path not deterministic")
	}
}

func TestCollectHighlights(t *testing.T) {
	items := []*store.SummarizedItem{
		{ItemID: "a", Summary: store.Summary{StructuredJSON: `{
			"key_themes": [
				{"topic": "Agents", "summary": "Agents are eating workflows."},
				"bare strings are ignored",
				{"topic": "agents", "summary": "duplicate in different case"}
			],
			"actionable_takeaways": ["Try the new CLI", {"text": "Read the paper"}]
		}`}},
		{ItemID: "b", Summary: store.Summary{StructuredJSON: `{malformed`}},
		{ItemID: "c", Summary: store.Summary{StructuredJSON: `{
			"key_themes": [{"topic": "Inference costs", "summary": "Prices keep falling."}],
			"actionable_takeaways": ["try the new cli"]
		}`}},
	}
	got := export.CollectHighlights(items, logging.NewNop())
	if len(got.Themes) != 2 {
		t.Fatalf("themes = %+v, want 2 distinct", got.Themes)
	}
	if got.Themes[0].Topic != "Agents" || got.Themes[1].Topic != "Inference costs" {
		t.Fatalf("unexpected themes: %+v", got.Themes)
	}
	if len(got.Actionables) != 2 {
		t.Fatalf("actionables = %v, want case-insensitive dedup to 2", got.Actionables)
	}
}

func seedSummarized(t *testing.T, st *store.Store, item *store.SummarizedItem) {
	t.Helper()
	if item.ItemKind == store.KindPodcast {
		testsupport.SeedEpisode(t, st, item.ItemID, func(e *store.Episode) {
			e.Title = item.Title
			e.Author = item.Author
			e.PublishDate = item.Date
			e.VideoURL = item.Link
		})
		testsupport.AdvanceEpisode(t, st, item.ItemID,
			store.StatusInProgress, store.StatusCompleted)
	} else {
		testsupport.SeedNewsletter(t, st, item.ItemID, func(n *store.Newsletter) {
			n.Subject = item.Title
			n.Sender = item.Author
			n.Date = item.Date
			n.Link = item.Link
		})
		testsupport.AdvanceNewsletter(t, st, item.ItemID,
			store.StatusInProgress, store.StatusCompleted)
	}
	if err := st.SaveSummary(context.Background(), &item.Summary); err != nil {
		t.Fatalf("SaveSummary(%s): %v", item.ItemID, err)
	}
}

func TestExporterWritesVault(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	epi := summarizedEpisode("ep-10", "Vault Bound", 4)
	seedSummarized(t, st, epi)
	news := &store.SummarizedItem{
		ItemID:   "msg-10",
		ItemKind: store.KindNewsletter,
		Title:    "Issue 42",
		Author:   "The Editor",
		Date:     "2026-08-02T08:00:00Z",
		Summary: store.Summary{
			ItemID:      "msg-10",
			ItemKind:    store.KindNewsletter,
			Summary:     "Funding news and a tooling roundup.",
			RawRating:   3,
			FinalRating: 3,
		},
	}
	seedSummarized(t, st, news)

	exporter := export.NewExporter(st, cfg, logging.NewNop())
	report, err := exporter.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Written != 2 || len(report.Failures) != 0 {
		t.Fatalf("report = %+v, want 2 written", report)
	}

	root := cfg.ExportRoot()
	episodeNote := export.PodcastNotePath(root, epi.Date, epi.Author, epi.Title)
	if got := testsupport.ReadFile(t, episodeNote); !strings.Contains(got, "rating_llm: 4") {
		t.Fatalf("episode note missing rating: %s", got)
	}
	newsNote := export.NewsletterNotePath(root, news.Date, news.Author, news.Title)
	if got := testsupport.ReadFile(t, newsNote); !strings.Contains(got, "type: newsletter") {
		t.Fatalf("newsletter note wrong: %s", got)
	}
	for _, dir := range []string{"unread", "read"} {
		if _, err := os.Stat(filepath.Join(root, dir, "Daily summary")); err != nil {
			t.Fatalf("vault layout incomplete: %v", err)
		}
	}
}

func TestExporterSkipsReadNotes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	epi := summarizedEpisode("ep-11", "Already Read", 5)
	seedSummarized(t, st, epi)

	root := cfg.ExportRoot()
	unread := export.PodcastNotePath(root, epi.Date, epi.Author, epi.Title)
	read := filepath.Join(root, "read", "Podcasts", filepath.Base(unread))
	testsupport.WriteFile(t, read, "moved by the reader")

	report, err := export.NewExporter(st, cfg, logging.NewNop()).Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Written != 0 || report.Skipped != 1 {
		t.Fatalf("report = %+v, want the read note skipped", report)
	}
	if _, err := os.Stat(unread); !os.IsNotExist(err) {
		t.Fatal("unread copy recreated for a read note")
	}
}

func TestDigestBuilderDaily(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	epi := summarizedEpisode("ep-20", "Fresh Episode", 4)
	epi.Summary.StructuredJSON = `{
		"key_themes": [{"topic": "Evals", "summary": "Everyone ships evals now."}],
		"actionable_takeaways": ["Benchmark before tuning"]
	}`
	seedSummarized(t, st, epi)

	testsupport.SeedNewsletter(t, st, "msg-20")
	if err := st.UpsertDigestEntry(ctx, &store.DigestEntry{
		MessageID:  "msg-20",
		Subject:    "Issue msg-20",
		Preview:    "Short preview text.",
		SourceLink: "https://news.test/42",
	}); err != nil {
		t.Fatalf("UpsertDigestEntry: %v", err)
	}

	testsupport.SeedEpisode(t, st, "ep-bad", func(e *store.Episode) {
		e.Title = "Broken Episode"
	})
	testsupport.AdvanceEpisode(t, st, "ep-bad", store.StatusInProgress)
	if err := st.TransitionEpisode(ctx, "ep-bad", store.StatusFailed, "download timed out"); err != nil {
		t.Fatalf("fail transition: %v", err)
	}

	content, err := export.NewDigestBuilder(st, logging.NewNop()).BuildDaily(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("BuildDaily: %v", err)
	}
	for _, want := range []string{
		"# Daily digest " + time.Now().UTC().Format("2006-01-02"),
		"**Evals**: Everyone ships evals now.",
		"- Benchmark before tuning",
		"[Fresh Episode](../Podcasts/",
		"**Issue msg-20**",
		"Short preview text.",
		`podcast "Broken Episode": download timed out`,
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("digest missing %q:\n%s", want, content)
		}
	}
}

func TestDigestBuilderWeeklySortsByRating(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	low := summarizedEpisode("ep-low", "Mediocre", 2)
	seedSummarized(t, st, low)
	high := summarizedEpisode("ep-high", "Excellent", 5)
	seedSummarized(t, st, high)

	content, err := export.NewDigestBuilder(st, logging.NewNop()).BuildWeekly(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("BuildWeekly: %v", err)
	}
	hi := strings.Index(content, "Excellent")
	lo := strings.Index(content, "Mediocre")
	if hi < 0 || lo < 0 || hi > lo {
		t.Fatalf("weekly digest not sorted by rating:\n%s", content)
	}
	if !strings.Contains(content, "# Weekly digest") {
		t.Fatalf("missing heading:\n%s", content)
	}
}

func TestDigestBuilderExcludesOldSummaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	epi := summarizedEpisode("ep-old", "Yesterday's News", 3)
	seedSummarized(t, st, epi)

	content, err := export.NewDigestBuilder(st, logging.NewNop()).
		BuildDaily(ctx, time.Now().UTC().AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("BuildDaily: %v", err)
	}
	if strings.Contains(content, "Yesterday's News") {
		t.Fatalf("summary outside window leaked in:\n%s", content)
	}
	if !strings.Contains(content, "No new podcast summaries.") {
		t.Fatalf("empty section placeholder missing:\n%s", content)
	}
}

func TestExporterDryRunWritesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	epi := summarizedEpisode("ep-12", "Preview Only", 3)
	seedSummarized(t, st, epi)

	report, err := export.NewExporter(st, cfg, logging.NewNop()).Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Written != 1 {
		t.Fatalf("report = %+v, want 1 note reported", report)
	}
	if _, err := os.Stat(cfg.ExportRoot()); !os.IsNotExist(err) {
		t.Fatal("dry run created vault directories")
	}
}
