package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"mediadigest/internal/config"
)

func newTestClient(url string, opts ...Option) *Client {
	cfg := config.LLM{
		APIKey:  "test-key",
		BaseURL: url,
		Model:   "test-model",
	}
	opts = append([]Option{WithSleeper(func(time.Duration) {})}, opts...)
	return NewClient(cfg, opts...)
}

func completionBody(content string) string {
	return `{"choices":[{"message":{"content":` + jsonString(content) + `}}]}`
}

func jsonString(s string) string {
	out := `"`
	for _, r := range s {
		switch r {
		case '"':
			out += `\"`
		case '\\':
			out += `\\`
		case '\n':
			out += `\n`
		default:
			out += string(r)
		}
	}
	return out + `"`
}

func TestSummarizeParsesStructuredPayload(t *testing.T) {
	payload := `{"summary":"A talk about Go.","key_topics":["go","tooling"],` +
		`"companies":[{"name":"Acme","context":"Builds tools"}],` +
		`"tools":[{"name":"gopls","context":"Language server"}],` +
		`"quotes":[{"text":"Ship it","timestamp":"12:34"}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		_, _ = w.Write([]byte(completionBody(payload)))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.Summarize(context.Background(), "podcast", "Ep", "Host", "2026-08-10", "transcript text")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if result.Summary != "A talk about Go." {
		t.Fatalf("summary = %q", result.Summary)
	}
	if len(result.KeyTopics) != 2 || result.KeyTopics[0] != "go" {
		t.Fatalf("key topics = %v", result.KeyTopics)
	}
	if len(result.Quotes) != 1 || result.Quotes[0].Timestamp != "12:34" {
		t.Fatalf("quotes = %v", result.Quotes)
	}
}

func TestRateClampsOutOfRangeRating(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody(`{"rating":9,"rationale":"off scale"}`)))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	rating, err := client.Rate(context.Background(), "newsletter", "Issue", "summary text", nil)
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if rating.Rating != 5 {
		t.Fatalf("rating = %d, want clamped to 5", rating.Rating)
	}
}

func TestCompleteJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(completionBody(`{"ok":true}`)))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("content = %q", content)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestCompleteJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want no retry on 401", calls.Load())
	}
}

func TestCompleteJSONHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(completionBody(`{}`)))
	}))
	defer server.Close()

	var slept time.Duration
	client := newTestClient(server.URL, WithSleeper(func(d time.Duration) { slept = d }))
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if slept != 2*time.Second {
		t.Fatalf("slept %s, want Retry-After of 2s", slept)
	}
}

func TestCompleteJSONRequiresAPIKey(t *testing.T) {
	client := NewClient(config.LLM{BaseURL: "http://unused"})
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestDecodeJSONStripsCodeFences(t *testing.T) {
	cases := []string{
		`{"rating": 3}`,
		"```json\n{\"rating\": 3}\n```",
		"Here is the result:\n{\"rating\": 3}\nHope that helps!",
	}
	for _, payload := range cases {
		var parsed struct {
			Rating int `json:"rating"`
		}
		if err := DecodeJSON(payload, &parsed); err != nil {
			t.Errorf("DecodeJSON(%q): %v", payload, err)
			continue
		}
		if parsed.Rating != 3 {
			t.Errorf("DecodeJSON(%q) rating = %d", payload, parsed.Rating)
		}
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	var parsed map[string]any
	if err := DecodeJSON("not json at all", &parsed); err == nil {
		t.Fatal("expected error for non-JSON payload")
	}
	if err := DecodeJSON("", &parsed); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
