package search

import (
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/archivist/internal/chunker"
	"github.com/kailas-cloud/archivist/internal/domain"
)

// Result is one scored hit shaped for display.
type Result struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"` // 1 - cosine distance, rounded to 3 places
	Source   string            `json:"source,omitempty"`
	Title    string            `json:"title,omitempty"`
	Date     string            `json:"date,omitempty"`
	Section  string            `json:"section,omitempty"`
	Excerpt  string            `json:"excerpt"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func newResult(h domain.Hit, excerptLen int) Result {
	id := h.Metadata[domain.MetaDocID]
	if id == "" {
		id = h.ID
	}
	return Result{
		ID:       id,
		Score:    roundScore(h.Similarity()),
		Source:   h.Metadata[domain.MetaSource],
		Title:    h.Metadata[domain.MetaTitle],
		Date:     h.Metadata[domain.MetaDate],
		Section:  h.Metadata[domain.MetaSection],
		Excerpt:  chunker.Truncate(h.DisplayText, excerptLen),
		Metadata: h.Metadata,
	}
}

// Label is the section for catalog entries and the date otherwise.
func (r Result) Label() string {
	if r.Section != "" {
		return r.Section
	}
	return r.Date
}

// Format renders results as plain text, one block per hit:
//
//	[0.873] Title (Section)
//	  excerpt
func Format(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		b.WriteByte('[')
		b.WriteString(strconv.FormatFloat(r.Score, 'f', 3, 64))
		b.WriteString("] ")
		b.WriteString(r.Title)
		if label := r.Label(); label != "" {
			b.WriteString(" (")
			b.WriteString(label)
			b.WriteByte(')')
		}
		b.WriteString("\n  ")
		b.WriteString(r.Excerpt)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

func roundScore(s float64) float64 {
	return math.Round(s*1000) / 1000
}
