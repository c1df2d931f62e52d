package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a pipeline item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusFailed,
	StatusSkipped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ItemKind distinguishes the two item tables.
type ItemKind string

const (
	KindPodcast    ItemKind = "podcast"
	KindNewsletter ItemKind = "newsletter"
)

// Episode is a podcast episode row. GUID is the natural key.
type Episode struct {
	GUID        string
	FeedURL     string
	Title       string
	PublishDate string
	Author      string
	AudioURL    string
	VideoURL    string
	Status      Status
	ErrorReason string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Link prefers the video URL when both are known.
func (e Episode) Link() string {
	if e.VideoURL != "" {
		return e.VideoURL
	}
	return e.AudioURL
}

// Newsletter is an email newsletter row. MessageID is the natural key.
type Newsletter struct {
	MessageID   string
	Subject     string
	Sender      string
	Date        string
	BodyHTML    string
	BodyText    string
	Link        string
	Status      Status
	ErrorReason string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Transcript is the derived artifact of a successful audio stage run.
// At most one per episode; re-processing replaces it.
type Transcript struct {
	EpisodeGUID    string
	TranscriptText string
	TranscriptPath string
	CreatedAt      time.Time
}

// Summary is the derived artifact of the summarization stage, keyed by item
// identity and kind. The JSON columns hold ordered structured extractions.
type Summary struct {
	ItemID         string
	ItemKind       ItemKind
	Summary        string
	KeyTopicsJSON  string
	CompaniesJSON  string
	ToolsJSON      string
	QuotesJSON     string
	RawRating      int
	FinalRating    int
	StructuredJSON string
	CreatedAt      time.Time
}

// DigestEntry is a per-newsletter preview row used when rendering digests.
type DigestEntry struct {
	MessageID  string
	Subject    string
	Preview    string
	SourceLink string
	CreatedAt  time.Time
}

// SummaryCandidate is an item eligible for summarization, joined with the
// source text the summarizer needs.
type SummaryCandidate struct {
	ItemID   string
	ItemKind ItemKind
	Title    string
	Author   string
	Date     string
	// Text is the transcript text for podcasts or the parsed body for
	// newsletters. Empty for podcasts without a transcript yet.
	Text string
}

// SummarizedItem joins an item with its summary for export and digests.
type SummarizedItem struct {
	ItemID           string
	ItemKind         ItemKind
	Title            string
	Author           string
	Date             string
	Link             string
	Summary          Summary
	SummaryCreatedAt time.Time
}

// FailedItem surfaces a failure for the digest's attention section.
type FailedItem struct {
	ItemID      string
	ItemKind    ItemKind
	Title       string
	ErrorReason string
	UpdatedAt   time.Time
}

// Stats counts items per status for one kind.
type Stats struct {
	Kind   ItemKind
	Counts map[Status]int
}

// Total sums all status buckets.
func (s Stats) Total() int {
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	return total
}
