package domain

import "context"

// Summarizer produces a short search-oriented description of a text.
// hint is optional context (date, title) that primes the summary.
type Summarizer interface {
	Summarize(ctx context.Context, text, hint string) (string, error)
}
