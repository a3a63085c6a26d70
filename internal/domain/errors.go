package domain

import "errors"

var (
	// ErrUnknownSource signals a source name outside the known set.
	ErrUnknownSource = errors.New("unknown source")
	// ErrEmptyQuery signals a blank search query.
	ErrEmptyQuery = errors.New("query is required")
	// ErrArityMismatch signals batch lists of different lengths.
	ErrArityMismatch = errors.New("batch arity mismatch")
	// ErrDimensionMismatch signals vectors of unexpected dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrSummarizerError signals a summarization provider failure.
	ErrSummarizerError = errors.New("summarizer error")
)
