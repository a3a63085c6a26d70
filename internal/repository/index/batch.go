package index

import (
	"fmt"

	"github.com/kailas-cloud/archivist/internal/domain"
)

// Batch is a column-oriented upsert request. All four columns must have the
// same length; row i describes one entry.
type Batch struct {
	IDs          []string
	Vectors      [][]float32
	DisplayTexts []string
	Metadatas    []map[string]string
}

// NewBatch pairs chunks with their vectors.
func NewBatch(chunks []domain.Chunk, vectors [][]float32) Batch {
	b := Batch{
		IDs:          make([]string, len(chunks)),
		Vectors:      vectors,
		DisplayTexts: make([]string, len(chunks)),
		Metadatas:    make([]map[string]string, len(chunks)),
	}
	for i, c := range chunks {
		b.IDs[i] = c.ID
		b.DisplayTexts[i] = c.DisplayText
		b.Metadatas[i] = c.Metadata
	}
	return b
}

// Len returns the number of rows.
func (b Batch) Len() int { return len(b.IDs) }

// Entry returns row i as an IndexEntry.
func (b Batch) Entry(i int) domain.IndexEntry {
	return domain.IndexEntry{
		ID:          b.IDs[i],
		Vector:      b.Vectors[i],
		DisplayText: b.DisplayTexts[i],
		Metadata:    b.Metadatas[i],
	}
}

// Validate checks column arity, ids, and vector dimensions. dim <= 0 only
// requires all vectors to share one length.
func (b Batch) Validate(dim int) error {
	n := len(b.IDs)
	if len(b.Vectors) != n || len(b.DisplayTexts) != n || len(b.Metadatas) != n {
		return fmt.Errorf("%w: ids=%d vectors=%d texts=%d metadatas=%d", domain.ErrArityMismatch,
			n, len(b.Vectors), len(b.DisplayTexts), len(b.Metadatas))
	}

	seen := make(map[string]struct{}, n)
	for i, id := range b.IDs {
		if id == "" {
			return fmt.Errorf("empty id at row %d", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate id %q in batch", id)
		}
		seen[id] = struct{}{}

		want := dim
		if want <= 0 {
			want = len(b.Vectors[0])
		}
		if len(b.Vectors[i]) == 0 || len(b.Vectors[i]) != want {
			return fmt.Errorf("%w: row %d (%s) has %d dimensions, want %d",
				domain.ErrDimensionMismatch, i, id, len(b.Vectors[i]), want)
		}
	}
	return nil
}
