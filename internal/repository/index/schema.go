package index

import (
	"github.com/kailas-cloud/archivist/internal/db"
	"github.com/kailas-cloud/archivist/internal/domain"
)

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// buildIndex describes the chunk index: exact-match TAG fields for filtering,
// chunk_index as NUMERIC, and the cosine HNSW vector aliased as "vector".
func buildIndex(name, prefix string, dim int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	return db.NewIndex(name).
		Prefix(prefix).
		Tag(
			domain.MetaSource,
			domain.MetaStrategy,
			domain.MetaSection,
			domain.MetaAuthorKey,
			domain.MetaType,
			domain.MetaDocID,
			domain.MetaYear,
		).
		TagWithOpts(domain.MetaTags, ",", false).
		Numeric(domain.MetaChunkIndex).
		VectorHNSW(fieldVector, dim, db.DistanceCosine, hnsw.M, hnsw.EFConstruct).As("vector").
		Build()
}
