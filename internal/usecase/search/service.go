// Package search answers semantic queries over the indexed archive.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/filter"
	"github.com/kailas-cloud/archivist/internal/metrics"
)

// Defaults for Options.
const (
	DefaultLimit      = 5
	DefaultMaxLimit   = 50
	DefaultExcerptLen = 300
)

// Options bound result counts and excerpt length.
type Options struct {
	DefaultLimit int
	MaxLimit     int
	ExcerptLen   int
}

// Service handles semantic search.
type Service struct {
	index  Index
	embed  Embedder
	opts   Options
	logger *zap.Logger
}

// New creates a search service. Zero options take the defaults.
func New(idx Index, embed Embedder, opts Options, logger *zap.Logger) *Service {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = DefaultMaxLimit
	}
	if opts.ExcerptLen <= 0 {
		opts.ExcerptLen = DefaultExcerptLen
	}
	return &Service{index: idx, embed: embed, opts: opts, logger: logger}
}

// Search embeds query and returns up to k results in descending score
// order. k <= 0 selects the default; source nil searches every source.
// Provider and store errors are returned as is.
func (s *Service) Search(ctx context.Context, query string, k int, source *domain.Source) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if k <= 0 {
		k = s.opts.DefaultLimit
	}
	k = min(k, s.opts.MaxLimit)

	label := "all"
	var where filter.Expression
	if source != nil {
		cond, err := filter.NewMatch(domain.MetaSource, source.String())
		if err != nil {
			return nil, err
		}
		where = where.And(cond)
		label = source.String()
	}

	results, err := s.search(ctx, query, k, where)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(label, "error").Inc()
		s.logger.Warn("Search failed", zap.String("source", label), zap.Error(err))
		return nil, err
	}
	metrics.SearchRequestsTotal.WithLabelValues(label, "ok").Inc()

	s.logger.Debug("Search completed",
		zap.String("source", label),
		zap.Int("k", k),
		zap.Int("results", len(results)),
	)
	return results, nil
}

func (s *Service) search(ctx context.Context, query string, k int, where filter.Expression) ([]Result, error) {
	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Query(ctx, emb.Embedding, k, where)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, newResult(h, s.opts.ExcerptLen))
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	return results, nil
}
