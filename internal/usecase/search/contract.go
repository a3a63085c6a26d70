package search

import (
	"context"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/filter"
)

// Index is the read side of the index store.
type Index interface {
	Query(ctx context.Context, vector []float32, k int, where filter.Expression) ([]domain.Hit, error)
	Count(ctx context.Context, where filter.Expression) (int, error)
	Sample(ctx context.Context, n int) ([]domain.IndexEntry, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
