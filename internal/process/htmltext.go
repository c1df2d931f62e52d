package process

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"mediadigest/internal/textutil"
)

// minReadableLength guards against readability extracting only a title or
// boilerplate instead of the newsletter body.
const minReadableLength = 200

// ExtractNewsletterText converts newsletter HTML into readable plain text.
// Non-content elements are stripped first, then readability pulls the main
// body; short extractions fall back to paragraph-level tag stripping.
func ExtractNewsletterText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "<") {
		return textutil.CleanText(trimmed)
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed)); err == nil {
		doc.Find("head, script, style, noscript, title, nav, header, footer").Remove()
		doc.Find("iframe, embed, object, video, audio, canvas").Remove()
		doc.Find("[class*='unsubscribe'], [class*='social'], [class*='share']").Remove()
		if cleaned, err := doc.Html(); err == nil && cleaned != "" {
			trimmed = cleaned
		}
	}

	if article, err := readability.FromReader(strings.NewReader(trimmed), nil); err == nil {
		text := strings.TrimSpace(article.TextContent)
		if len(text) >= minReadableLength {
			return textutil.CleanText(text)
		}
	}

	return extractParagraphs(trimmed)
}

// extractParagraphs strips tags while keeping paragraph boundaries, so the
// summarizer sees text rather than one long line.
func extractParagraphs(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return textutil.CleanText(html)
	}

	var blocks []string
	doc.Find("p, h1, h2, h3, h4, li, pre, blockquote, td").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			blocks = append(blocks, strings.Join(strings.Fields(text), " "))
		}
	})
	if len(blocks) == 0 {
		return textutil.CleanText(doc.Text())
	}
	return strings.Join(blocks, "\n\n")
}
