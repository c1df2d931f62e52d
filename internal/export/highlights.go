package export

import (
	"encoding/json"
	"log/slog"
	"strings"

	"mediadigest/internal/logging"
	"mediadigest/internal/store"
)

const maxHighlights = 5

// Theme is one cross-item highlight surfaced at the top of a digest.
type Theme struct {
	Topic   string
	Summary string
}

// Highlights aggregates recurring themes and action items across the
// summaries that fall inside a digest window.
type Highlights struct {
	Themes      []Theme
	Actionables []string
}

// CollectHighlights walks the structured summary payloads and pulls out the
// first few distinct key themes and actionable takeaways. Payloads that do
// not parse are logged and skipped so one bad summary cannot sink a digest.
func CollectHighlights(items []*store.SummarizedItem, logger *slog.Logger) Highlights {
	if logger == nil {
		logger = logging.NewNop()
	}
	var out Highlights
	seenThemes := make(map[string]bool)
	seenActions := make(map[string]bool)
	for _, item := range items {
		payload := strings.TrimSpace(item.Summary.StructuredJSON)
		if payload == "" {
			continue
		}
		var structured struct {
			KeyThemes []json.RawMessage `json:"key_themes"`
			Takeaways []json.RawMessage `json:"actionable_takeaways"`
		}
		if err := json.Unmarshal([]byte(payload), &structured); err != nil {
			logger.Warn("skipping malformed structured summary",
				logging.String(logging.FieldItemID, item.ItemID),
				logging.Error(err))
			continue
		}
		for _, raw := range structured.KeyThemes {
			if len(out.Themes) >= maxHighlights {
				break
			}
			theme, ok := decodeTheme(raw)
			if !ok {
				continue
			}
			key := strings.ToLower(theme.Topic)
			if key == "" || seenThemes[key] {
				continue
			}
			seenThemes[key] = true
			out.Themes = append(out.Themes, theme)
		}
		for _, raw := range structured.Takeaways {
			if len(out.Actionables) >= maxHighlights {
				break
			}
			text := decodeTakeaway(raw)
			key := strings.ToLower(text)
			if key == "" || seenActions[key] {
				continue
			}
			seenActions[key] = true
			out.Actionables = append(out.Actionables, text)
		}
	}
	return out
}

// Themes only count when they arrive as {topic, summary} objects; bare
// strings carry no summary line worth surfacing.
func decodeTheme(raw json.RawMessage) (Theme, bool) {
	var obj struct {
		Topic   string `json:"topic"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Theme{}, false
	}
	obj.Topic = strings.TrimSpace(obj.Topic)
	obj.Summary = strings.TrimSpace(obj.Summary)
	if obj.Topic == "" {
		return Theme{}, false
	}
	return Theme{Topic: obj.Topic, Summary: obj.Summary}, true
}

// Takeaways come back as plain strings from most models, occasionally as
// {text: ...} objects.
func decodeTakeaway(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Text)
	}
	return ""
}
