package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"text/template"
	"time"

	"mediadigest/internal/logging"
	"mediadigest/internal/store"
	"mediadigest/internal/textutil"
)

// DigestStore is the slice of the store the digest builders read from.
type DigestStore interface {
	SummarizedEpisodes(ctx context.Context, since, until time.Time) ([]*store.SummarizedItem, error)
	SummarizedNewsletters(ctx context.Context, since, until time.Time) ([]*store.SummarizedItem, error)
	DigestEntries(ctx context.Context, since, until time.Time) ([]*store.DigestEntry, error)
	FailedItems(ctx context.Context) ([]*store.FailedItem, error)
}

type digestItem struct {
	Title    string
	Author   string
	Rating   int
	Summary  string
	NoteLink string
}

type digestPreview struct {
	Subject    string
	Preview    string
	SourceLink string
}

type digestFailure struct {
	Kind   string
	Title  string
	Reason string
}

type digestContext struct {
	Heading     string
	Highlights  Highlights
	Podcasts    []digestItem
	Newsletters []digestItem
	Previews    []digestPreview
	Failures    []digestFailure
}

const digestTemplateText = `# {{.Heading}}
{{- if or .Highlights.Themes .Highlights.Actionables}}

## Highlights
{{- range .Highlights.Themes}}
- **{{.Topic}}**{{if .Summary}}: {{.Summary}}{{end}}
{{- end}}
{{- if .Highlights.Actionables}}

### Actionable takeaways
{{- range .Highlights.Actionables}}
- {{.}}
{{- end}}
{{- end}}
{{- end}}

## Podcasts
{{- if .Podcasts}}
{{- range .Podcasts}}
- [{{.Title}}]({{.NoteLink}}) ({{.Author}}, rated {{.Rating}}/5)
{{- if .Summary}}
  {{.Summary}}
{{- end}}
{{- end}}
{{- else}}
No new podcast summaries.
{{- end}}

## Newsletters
{{- if .Newsletters}}
{{- range .Newsletters}}
- [{{.Title}}]({{.NoteLink}}) ({{.Author}}, rated {{.Rating}}/5)
{{- if .Summary}}
  {{.Summary}}
{{- end}}
{{- end}}
{{- else}}
No new newsletter summaries.
{{- end}}
{{- if .Previews}}

## Newsletter previews
{{- range .Previews}}
- **{{.Subject}}**{{if .SourceLink}} ([source]({{.SourceLink}})){{end}}: {{.Preview}}
{{- end}}
{{- end}}
{{- if .Failures}}

## Needs attention
{{- range .Failures}}
- {{.Kind}} "{{.Title}}": {{.Reason}}
{{- end}}
{{- end}}
`

var digestTemplate = template.Must(template.New("digest").Parse(digestTemplateText))

// DigestBuilder renders daily and weekly digest notes from stored summaries.
type DigestBuilder struct {
	store  DigestStore
	logger *slog.Logger
}

func NewDigestBuilder(st DigestStore, logger *slog.Logger) *DigestBuilder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &DigestBuilder{store: st, logger: logger}
}

// BuildDaily renders the digest covering the given calendar day (UTC).
func (b *DigestBuilder) BuildDaily(ctx context.Context, day time.Time) (string, error) {
	since := day.UTC().Truncate(24 * time.Hour)
	until := since.Add(24 * time.Hour)
	heading := fmt.Sprintf("Daily digest %s", since.Format("2006-01-02"))
	return b.build(ctx, heading, since, until, false)
}

// BuildWeekly renders the digest for the seven days ending on the given day.
func (b *DigestBuilder) BuildWeekly(ctx context.Context, end time.Time) (string, error) {
	until := end.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	since := until.Add(-7 * 24 * time.Hour)
	heading := fmt.Sprintf("Weekly digest %s", end.UTC().Format("2006-01-02"))
	return b.build(ctx, heading, since, until, true)
}

func (b *DigestBuilder) build(ctx context.Context, heading string, since, until time.Time, byRating bool) (string, error) {
	episodes, err := b.store.SummarizedEpisodes(ctx, since, until)
	if err != nil {
		return "", err
	}
	newsletters, err := b.store.SummarizedNewsletters(ctx, since, until)
	if err != nil {
		return "", err
	}
	entries, err := b.store.DigestEntries(ctx, since, until)
	if err != nil {
		return "", err
	}
	failed, err := b.store.FailedItems(ctx)
	if err != nil {
		return "", err
	}

	dctx := digestContext{
		Heading:     heading,
		Highlights:  CollectHighlights(append(append([]*store.SummarizedItem{}, episodes...), newsletters...), b.logger),
		Podcasts:    digestItems(episodes, podcastCategory),
		Newsletters: digestItems(newsletters, newsletterCategory),
	}
	if byRating {
		sort.SliceStable(dctx.Podcasts, func(i, j int) bool {
			return dctx.Podcasts[i].Rating > dctx.Podcasts[j].Rating
		})
	}
	summarized := make(map[string]bool, len(newsletters))
	for _, item := range newsletters {
		summarized[item.ItemID] = true
	}
	for _, entry := range entries {
		if summarized[entry.MessageID] {
			continue
		}
		dctx.Previews = append(dctx.Previews, digestPreview{
			Subject:    entry.Subject,
			Preview:    entry.Preview,
			SourceLink: entry.SourceLink,
		})
	}
	for _, item := range failed {
		if item.UpdatedAt.Before(since) || !item.UpdatedAt.Before(until) {
			continue
		}
		dctx.Failures = append(dctx.Failures, digestFailure{
			Kind:   string(item.ItemKind),
			Title:  item.Title,
			Reason: item.ErrorReason,
		})
	}

	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, dctx); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

// Digest notes sit in a sibling category directory, so item links climb one
// level before descending into Podcasts or Newsletters.
func digestItems(items []*store.SummarizedItem, category string) []digestItem {
	out := make([]digestItem, 0, len(items))
	for _, item := range items {
		out = append(out, digestItem{
			Title:    item.Title,
			Author:   item.Author,
			Rating:   item.Summary.FinalRating,
			Summary:  textutil.Preview(item.Summary.Summary, 240),
			NoteLink: path.Join("..", category, noteFileName(item.Date, item.Author, item.Title)),
		})
	}
	return out
}
