package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/filter"
)

// SampleSize is how many entries Stats shows.
const SampleSize = 3

// SourceCount is the number of chunks stored for one source.
type SourceCount struct {
	Source domain.Source `json:"source"`
	Chunks int           `json:"chunks"`
}

// Sample is a short preview of one stored entry.
type Sample struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Title    string `json:"title"`
	Strategy string `json:"strategy"`
	Excerpt  string `json:"excerpt"`
}

// Stats summarizes the index contents.
type Stats struct {
	Total    int           `json:"total"`
	BySource []SourceCount `json:"by_source"`
	Samples  []Sample      `json:"samples"`
}

// Stats counts stored chunks overall and per source and returns a few samples.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	total, err := s.index.Count(ctx, filter.Expression{})
	if err != nil {
		return Stats{}, fmt.Errorf("count all: %w", err)
	}
	st := Stats{Total: total}

	for _, src := range domain.Sources() {
		cond, err := filter.NewMatch(domain.MetaSource, src.String())
		if err != nil {
			return Stats{}, err
		}
		n, err := s.index.Count(ctx, filter.Expression{}.And(cond))
		if err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", src, err)
		}
		st.BySource = append(st.BySource, SourceCount{Source: src, Chunks: n})
	}

	entries, err := s.index.Sample(ctx, SampleSize)
	if err != nil {
		return Stats{}, fmt.Errorf("sample: %w", err)
	}
	for _, e := range entries {
		st.Samples = append(st.Samples, Sample{
			ID:       e.ID,
			Source:   e.Metadata[domain.MetaSource],
			Title:    e.Metadata[domain.MetaTitle],
			Strategy: e.Metadata[domain.MetaStrategy],
			Excerpt:  previewOf(e.DisplayText),
		})
	}
	return st, nil
}

// Total implements the health counter.
func (s *Service) Total(ctx context.Context) (int, error) {
	return s.index.Count(ctx, filter.Expression{})
}

func previewOf(text string) string {
	const n = 80
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "…"
}
