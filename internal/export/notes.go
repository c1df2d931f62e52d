package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"text/template"

	"mediadigest/internal/logging"
	"mediadigest/internal/services/llm"
	"mediadigest/internal/store"
)

// Note is the rendering context for one item note.
type Note struct {
	Title     string
	Date      string
	Kind      string
	Author    string
	Link      string
	RatingLLM int
	Summary   string
	KeyTopics []string
	Companies []llm.NamedContext
	Tools     []llm.NamedContext
	Quotes    []llm.Quote
}

const noteTemplateText = `---
title: "{{.Title}}"
date: {{.Date}}
type: {{.Kind}}
author: "{{.Author}}"
link: {{if .Link}}{{.Link}}{{else}}""{{end}}
rating:
rating_llm: {{.RatingLLM}}
---

## Summary

{{.Summary}}
{{- if .KeyTopics}}

## Key topics
{{range .KeyTopics}}
- {{.}}
{{- end}}
{{- end}}
{{- if .Companies}}

## Companies
{{range .Companies}}
- **{{.Name}}**: {{.Context}}
{{- end}}
{{- end}}
{{- if .Tools}}

## Tools
{{range .Tools}}
- **{{.Name}}**: {{.Context}}
{{- end}}
{{- end}}
{{- if .Quotes}}

## Quotes
{{range .Quotes}}
> {{.Text}}{{if .Timestamp}} ({{.Timestamp}}){{end}}
{{end}}
{{- end}}
`

var noteTemplate = template.Must(template.New("note").Parse(noteTemplateText))

// RenderNote produces the Markdown for one summarized item.
func RenderNote(item *store.SummarizedItem, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	note := Note{
		Title:     item.Title,
		Date:      datePrefix(item.Date),
		Kind:      string(item.ItemKind),
		Author:    item.Author,
		Link:      item.Link,
		RatingLLM: item.Summary.FinalRating,
		Summary:   item.Summary.Summary,
	}
	note.KeyTopics = decodeStrings(item.Summary.KeyTopicsJSON, "key_topics", item.ItemID, logger)
	note.Companies = decodeNamed(item.Summary.CompaniesJSON, "companies", item.ItemID, logger)
	note.Tools = decodeNamed(item.Summary.ToolsJSON, "tools", item.ItemID, logger)
	note.Quotes = decodeQuotes(item.Summary.QuotesJSON, item.ItemID, logger)

	var buf bytes.Buffer
	if err := noteTemplate.Execute(&buf, note); err != nil {
		return "", fmt.Errorf("render note: %w", err)
	}
	return buf.String(), nil
}

// The stored JSON came from a model; a malformed column degrades that
// section to empty instead of failing the whole export.

func decodeStrings(payload, field, itemID string, logger *slog.Logger) []string {
	if payload == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		logger.Warn("skipping malformed summary field",
			logging.String("field", field),
			logging.String(logging.FieldItemID, itemID),
			logging.Error(err))
		return nil
	}
	return out
}

func decodeNamed(payload, field, itemID string, logger *slog.Logger) []llm.NamedContext {
	if payload == "" {
		return nil
	}
	var out []llm.NamedContext
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		logger.Warn("skipping malformed summary field",
			logging.String("field", field),
			logging.String(logging.FieldItemID, itemID),
			logging.Error(err))
		return nil
	}
	return out
}

func decodeQuotes(payload, itemID string, logger *slog.Logger) []llm.Quote {
	if payload == "" {
		return nil
	}
	var out []llm.Quote
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		logger.Warn("skipping malformed summary field",
			logging.String("field", "quotes"),
			logging.String(logging.FieldItemID, itemID),
			logging.Error(err))
		return nil
	}
	return out
}
