// Package llm wraps the OpenRouter chat completion API for summarization
// and rating. Requests are JSON-only with retry and Retry-After handling;
// responses pass through a tolerant decoder that strips code fences and
// other formatting quirks models produce.
package llm
