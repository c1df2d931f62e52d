package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mediadigest/internal/textutil"
)

// Vault layout: every category exists in both read states so the user can
// drag notes between them.
const (
	unreadState = "unread"
	readState   = "read"

	podcastCategory    = "Podcasts"
	newsletterCategory = "Newsletters"
	dailyCategory      = "Daily summary"
	weeklyCategory     = "Weekly summary"
)

// EnsureLayout creates the vault directory tree under root.
func EnsureLayout(root string) error {
	for _, state := range []string{unreadState, readState} {
		for _, category := range []string{podcastCategory, newsletterCategory, dailyCategory, weeklyCategory} {
			if err := os.MkdirAll(filepath.Join(root, state, category), 0o755); err != nil {
				return fmt.Errorf("create vault dir: %w", err)
			}
		}
	}
	return nil
}

// PodcastNotePath returns the note location for an episode. The name is
// deterministic so re-export targets the same file.
func PodcastNotePath(root, publishDate, author, title string) string {
	return filepath.Join(root, unreadState, podcastCategory,
		noteFileName(publishDate, author, title))
}

// NewsletterNotePath returns the note location for a newsletter.
func NewsletterNotePath(root, date, sender, subject string) string {
	return filepath.Join(root, unreadState, newsletterCategory,
		noteFileName(date, sender, subject))
}

// DailyDigestPath returns the digest location for a calendar day.
func DailyDigestPath(root string, day time.Time) string {
	return filepath.Join(root, unreadState, dailyCategory,
		day.Format("2006-01-02")+" daily.md")
}

// WeeklyDigestPath returns the digest location for the week ending on day.
func WeeklyDigestPath(root string, weekEnd time.Time) string {
	return filepath.Join(root, unreadState, weeklyCategory,
		weekEnd.Format("2006-01-02")+" weekly.md")
}

// noteFileName builds <date>_<slug(author)>_<slug(title)>.md. The date
// prefix is the first ten characters of the stored date string.
func noteFileName(date, author, title string) string {
	prefix := datePrefix(date)
	return prefix + "_" + textutil.SlugComponent(author) + "_" + textutil.SlugComponent(title) + ".md"
}

func datePrefix(date string) string {
	if date == "" {
		return "unknown-date"
	}
	runes := []rune(date)
	if len(runes) > 10 {
		runes = runes[:10]
	}
	return string(runes)
}
