package testsupport

import (
	"context"
	"testing"

	"mediadigest/internal/config"
	"mediadigest/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedEpisode inserts an episode with sensible defaults for tests. Returns
// the stored row.
func SeedEpisode(t testing.TB, st *store.Store, guid string, mutate ...func(*store.Episode)) *store.Episode {
	t.Helper()

	episode := &store.Episode{
		GUID:        guid,
		FeedURL:     "https://feeds.test/show.xml",
		Title:       "Episode " + guid,
		PublishDate: "2026-08-01T09:00:00Z",
		Author:      "Test Show",
		AudioURL:    "https://cdn.test/" + guid + ".mp3",
	}
	for _, fn := range mutate {
		fn(episode)
	}
	if err := st.UpsertEpisode(context.Background(), episode); err != nil {
		t.Fatalf("UpsertEpisode: %v", err)
	}
	stored, err := st.GetEpisode(context.Background(), guid)
	if err != nil {
		t.Fatalf("GetEpisode: %v", err)
	}
	return stored
}

// SeedNewsletter inserts a newsletter with sensible defaults for tests.
func SeedNewsletter(t testing.TB, st *store.Store, messageID string, mutate ...func(*store.Newsletter)) *store.Newsletter {
	t.Helper()

	newsletter := &store.Newsletter{
		MessageID: messageID,
		Subject:   "Issue " + messageID,
		Sender:    "editor@newsletter.test",
		Date:      "2026-08-01T08:00:00Z",
		BodyText:  "Plain text body for " + messageID,
	}
	for _, fn := range mutate {
		fn(newsletter)
	}
	if err := st.UpsertNewsletter(context.Background(), newsletter); err != nil {
		t.Fatalf("UpsertNewsletter: %v", err)
	}
	stored, err := st.GetNewsletter(context.Background(), messageID)
	if err != nil {
		t.Fatalf("GetNewsletter: %v", err)
	}
	return stored
}

// AdvanceEpisode walks an episode through transitions, failing the test on
// any rejected step.
func AdvanceEpisode(t testing.TB, st *store.Store, guid string, path ...store.Status) {
	t.Helper()

	for _, status := range path {
		if err := st.TransitionEpisode(context.Background(), guid, status, ""); err != nil {
			t.Fatalf("TransitionEpisode to %s: %v", status, err)
		}
	}
}

// AdvanceNewsletter walks a newsletter through transitions, failing the test
// on any rejected step.
func AdvanceNewsletter(t testing.TB, st *store.Store, messageID string, path ...store.Status) {
	t.Helper()

	for _, status := range path {
		if err := st.TransitionNewsletter(context.Background(), messageID, status, ""); err != nil {
			t.Fatalf("TransitionNewsletter to %s: %v", status, err)
		}
	}
}
