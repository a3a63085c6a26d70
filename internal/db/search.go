package db

import "github.com/kailas-cloud/archivist/internal/domain/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// CountQuery counts documents of an index matching Filters.
// Prefix is the key prefix the index covers; stores that cannot run
// filter-only FT.SEARCH queries fall back to scanning it.
type CountQuery struct {
	IndexName string
	Prefix    string
	Filters   filter.Expression
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// Distance is the raw vector distance reported by the engine.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
