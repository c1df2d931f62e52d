package ingest

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"mediadigest/internal/logging"
	"mediadigest/internal/services"
	"mediadigest/internal/store"
)

// EpisodeStore is the subset of the store the discoverer writes to.
type EpisodeStore interface {
	UpsertEpisode(ctx context.Context, episode *store.Episode) error
}

// Discoverer fetches podcast feeds and registers their episodes.
type Discoverer struct {
	store  EpisodeStore
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewDiscoverer builds a feed discoverer backed by the given store.
func NewDiscoverer(st EpisodeStore, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = logging.NewNop()
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: 60 * time.Second}
	return &Discoverer{store: st, parser: parser, logger: logger}
}

// DiscoverReport summarizes one discovery run across all subscriptions.
type DiscoverReport struct {
	FeedsChecked int
	Episodes     int
	FeedErrors   []FeedError
}

// FeedError records a feed that could not be fetched or parsed.
type FeedError struct {
	Feed FeedSubscription
	Err  error
}

// Discover walks every subscription and upserts the episodes found. Entries
// published before since are ignored when since is non-zero. A feed that
// fails to fetch or parse is recorded and skipped; remaining feeds are still
// processed.
func (d *Discoverer) Discover(ctx context.Context, subs []FeedSubscription, since time.Time) (*DiscoverReport, error) {
	report := &DiscoverReport{}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		count, err := d.discoverFeed(ctx, sub, since)
		report.FeedsChecked++
		report.Episodes += count
		if err != nil {
			report.FeedErrors = append(report.FeedErrors, FeedError{Feed: sub, Err: err})
			d.logger.Warn("feed discovery failed",
				logging.String("feed", sub.URL),
				logging.Error(err))
			continue
		}
		d.logger.Info("feed checked",
			logging.String("feed", sub.URL),
			logging.Int("episodes", count))
	}
	return report, nil
}

func (d *Discoverer) discoverFeed(ctx context.Context, sub FeedSubscription, since time.Time) (int, error) {
	feed, err := d.parser.ParseURLWithContext(sub.URL, ctx)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "discover", "parse feed", "fetch or parse failed", err)
	}

	count := 0
	for _, item := range feed.Items {
		episode := episodeFromItem(sub, feed, item)
		if episode == nil {
			continue
		}
		if !since.IsZero() && item.PublishedParsed != nil && item.PublishedParsed.Before(since) {
			continue
		}
		if err := d.store.UpsertEpisode(ctx, episode); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// episodeFromItem maps one feed entry to an episode row. Entries without any
// usable identity are dropped.
func episodeFromItem(sub FeedSubscription, feed *gofeed.Feed, item *gofeed.Item) *store.Episode {
	if item == nil {
		return nil
	}
	guid := strings.TrimSpace(item.GUID)
	if guid == "" {
		guid = strings.TrimSpace(item.Link)
	}
	if guid == "" {
		return nil
	}

	author := ""
	if feed != nil {
		author = strings.TrimSpace(feed.Title)
	}
	if author == "" {
		author = sub.Title
	}

	publishDate := item.Published
	if item.PublishedParsed != nil {
		publishDate = item.PublishedParsed.UTC().Format(time.RFC3339)
	}

	episode := &store.Episode{
		GUID:        guid,
		FeedURL:     sub.URL,
		Title:       strings.TrimSpace(item.Title),
		PublishDate: publishDate,
		Author:      author,
		AudioURL:    audioEnclosure(item),
	}
	if isVideoLink(item.Link) {
		episode.VideoURL = item.Link
	}
	if episode.Title == "" {
		episode.Title = guid
	}
	return episode
}

func audioEnclosure(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if strings.HasPrefix(enc.Type, "audio/") && enc.URL != "" {
			return enc.URL
		}
	}
	// Some feeds omit the MIME type; take the first enclosure as a fallback.
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}

func isVideoLink(link string) bool {
	lower := strings.ToLower(link)
	return strings.Contains(lower, "youtube.com/watch") || strings.Contains(lower, "youtu.be/")
}
