package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxFileNameRunes bounds sanitized names so date prefixes and extensions
// still fit within common filesystem limits.
const maxFileNameRunes = 180

// fileNameReplacer replaces filesystem-unsafe characters with underscores.
var fileNameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	"\x00", "_",
	"\t", "_",
	"\n", "_",
	"\r", "_",
)

// SanitizeFileName makes a string safe for use as a filename. Unsafe
// characters become underscores, whitespace runs collapse to a single space,
// and the result is NFC-normalized and capped at 180 runes.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(name)
	name = fileNameReplacer.Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	runes := []rune(name)
	if len(runes) > maxFileNameRunes {
		name = strings.TrimSpace(string(runes[:maxFileNameRunes]))
	}
	return name
}

// SlugComponent sanitizes a path component and joins words with underscores.
// Empty input yields "untitled" so generated paths never collapse.
func SlugComponent(value string) string {
	sanitized := SanitizeFileName(value)
	if sanitized == "" {
		return "untitled"
	}
	return strings.ReplaceAll(sanitized, " ", "_")
}

// SanitizeToken converts an identifier to a lowercase filesystem-safe token,
// used for blob filenames keyed by GUID or message ID.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}

// Preview returns the first runeLimit runes of cleaned text for digest
// listings, appending an ellipsis when truncated.
func Preview(text string, runeLimit int) string {
	cleaned := strings.Join(strings.Fields(text), " ")
	if runeLimit <= 0 {
		return cleaned
	}
	runes := []rune(cleaned)
	if len(runes) <= runeLimit {
		return cleaned
	}
	return strings.TrimSpace(string(runes[:runeLimit])) + "..."
}

// CleanText normalizes whitespace in extracted newsletter text: trims each
// line, collapses runs of spaces, and squeezes blank-line runs down to one.
func CleanText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
