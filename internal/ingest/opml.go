package ingest

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// FeedSubscription is one podcast feed from the OPML subscription list.
type FeedSubscription struct {
	Title string
	URL   string
}

type opmlDocument struct {
	XMLName xml.Name      `xml:"opml"`
	Body    opmlBody      `xml:"body"`
}

type opmlBody struct {
	Outlines []opmlOutline `xml:"outline"`
}

type opmlOutline struct {
	Text     string        `xml:"text,attr"`
	Title    string        `xml:"title,attr"`
	Type     string        `xml:"type,attr"`
	XMLURL   string        `xml:"xmlUrl,attr"`
	Outlines []opmlOutline `xml:"outline"`
}

// LoadSubscriptions parses an OPML file into the flat list of feed
// subscriptions. Nested outline groups are flattened; outlines without an
// xmlUrl are treated as folders and descended into.
func LoadSubscriptions(path string) ([]FeedSubscription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read opml: %w", err)
	}

	var doc opmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse opml: %w", err)
	}

	var subs []FeedSubscription
	collectOutlines(doc.Body.Outlines, &subs)
	return subs, nil
}

func collectOutlines(outlines []opmlOutline, subs *[]FeedSubscription) {
	for _, outline := range outlines {
		url := strings.TrimSpace(outline.XMLURL)
		if url != "" {
			title := strings.TrimSpace(outline.Title)
			if title == "" {
				title = strings.TrimSpace(outline.Text)
			}
			*subs = append(*subs, FeedSubscription{Title: title, URL: url})
		}
		collectOutlines(outline.Outlines, subs)
	}
}
