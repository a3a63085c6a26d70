// Package index stores chunk entries in a Redis/Valkey FT index and answers
// nearest-neighbor queries over them.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/archivist/internal/db"
	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/filter"
)

// store is the consumer interface for the chunk index (ISP).
//
//nolint:interfacebloat // index repo needs hash, index management and search operations
type store interface {
	HInsertMulti(ctx context.Context, items []db.HashSetItem) (int, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, q *db.CountQuery) (int, error)
}

// Config names the index and sizes its vector field.
type Config struct {
	Name       string // FT index is "<Name>:idx"
	KeyPrefix  string // chunk keys are "<KeyPrefix>chunk:<id>"
	Dimensions int
	HNSW       HNSWConfig
}

// Repo is the index store adapter.
type Repo struct {
	store     store
	indexName string
	keyPrefix string
	dim       int
	hnsw      HNSWConfig
}

// New creates an index repository.
func New(s store, cfg Config) *Repo {
	if cfg.Name == "" {
		cfg.Name = strings.TrimSuffix(domain.KeyPrefix, ":")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = domain.KeyPrefix
	}
	hnsw := HNSWConfig{M: 16, EFConstruct: 200}
	if cfg.HNSW.M > 0 {
		hnsw.M = cfg.HNSW.M
	}
	if cfg.HNSW.EFConstruct > 0 {
		hnsw.EFConstruct = cfg.HNSW.EFConstruct
	}
	return &Repo{
		store:     s,
		indexName: cfg.Name + ":idx",
		keyPrefix: cfg.KeyPrefix + "chunk:",
		dim:       cfg.Dimensions,
		hnsw:      hnsw,
	}
}

// IndexName returns the FT index name.
func (r *Repo) IndexName() string { return r.indexName }

// EnsureIndex creates the FT index when it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.indexName, err)
	}
	if exists {
		return nil
	}

	def, err := buildIndex(r.indexName, r.keyPrefix, r.dim, r.hnsw)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.indexName, err)
	}
	return nil
}

// ExistingIDs lists every stored chunk id.
func (r *Repo) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	keys, err := r.store.Scan(ctx, r.keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan chunk ids: %w", err)
	}
	ids := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		ids[strings.TrimPrefix(k, r.keyPrefix)] = struct{}{}
	}
	return ids, nil
}

// Upsert writes a batch of entries. Each id maps to one key and entries are
// insert-if-absent: ids already stored keep their original entry, so
// repeating an upsert neither duplicates nor mutates anything.
func (r *Repo) Upsert(ctx context.Context, b Batch) error {
	if err := b.Validate(r.dim); err != nil {
		return err
	}
	if b.Len() == 0 {
		return nil
	}

	items := make([]db.HashSetItem, b.Len())
	for i := range b.IDs {
		items[i] = db.HashSetItem{
			Key:    r.key(b.IDs[i]),
			Fields: buildHashFields(b.Entry(i)),
		}
	}

	if _, err := r.store.HInsertMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d chunks: %w", len(items), err)
	}
	return nil
}

// Query returns the k nearest entries to vector in ascending distance order.
// An index that was never created yields no hits.
func (r *Repo) Query(ctx context.Context, vector []float32, k int, where filter.Expression) ([]domain.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if r.dim > 0 && len(vector) != r.dim {
		return nil, fmt.Errorf("query vector has %d dimensions, want %d: %w",
			len(vector), r.dim, domain.ErrDimensionMismatch)
	}

	returnFields := append([]string{fieldID, fieldText}, domain.MetadataKeys()...)

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		Filters:      where,
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("search knn %s: %w", r.indexName, err)
	}

	hits := make([]domain.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		e := parseHashFields(strings.TrimPrefix(entry.Key, r.keyPrefix), entry.Fields)
		hits = append(hits, domain.Hit{
			ID:          e.ID,
			DisplayText: e.DisplayText,
			Metadata:    e.Metadata,
			Distance:    entry.Distance,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })

	return hits, nil
}

// Count returns how many entries match where. The empty expression counts all entries.
func (r *Repo) Count(ctx context.Context, where filter.Expression) (int, error) {
	n, err := r.store.SearchCount(ctx, &db.CountQuery{
		IndexName: r.indexName,
		Prefix:    r.keyPrefix,
		Filters:   where,
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("count %s: %w", r.indexName, err)
	}
	return n, nil
}

// Sample returns up to n stored entries ordered by id, without vectors.
func (r *Repo) Sample(ctx context.Context, n int) ([]domain.IndexEntry, error) {
	if n <= 0 {
		return nil, nil
	}

	keys, err := r.store.Scan(ctx, r.keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan chunk ids: %w", err)
	}
	sort.Strings(keys)
	if len(keys) > n {
		keys = keys[:n]
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch sample: %w", err)
	}

	entries := make([]domain.IndexEntry, 0, len(maps))
	for i, m := range maps {
		if len(m) == 0 {
			continue // removed between SCAN and HGETALL
		}
		e := parseHashFields(strings.TrimPrefix(keys[i], r.keyPrefix), m)
		e.Vector = nil
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *Repo) key(id string) string {
	return r.keyPrefix + id
}
