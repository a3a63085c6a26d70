package indexing

import (
	"context"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/run"
	"github.com/kailas-cloud/archivist/internal/repository/index"
)

// Chunker splits a document into indexable chunks.
type Chunker interface {
	Chunk(ctx context.Context, doc domain.Document) ([]domain.Chunk, error)
}

// Index is the store side of a run: dedup lookup and batched writes.
type Index interface {
	EnsureIndex(ctx context.Context) error
	ExistingIDs(ctx context.Context) (map[string]struct{}, error)
	Upsert(ctx context.Context, b index.Batch) error
}

// Journal records finished source reports.
type Journal interface {
	Record(ctx context.Context, r run.Report) error
}
