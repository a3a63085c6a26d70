package parser

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/kailas-cloud/archivist/internal/domain"
)

var (
	sectionRe = regexp.MustCompile(`^## (.+)`)
	entryRe   = regexp.MustCompile(`^\*\*(.+?)\*\* [—–-] \*(.+?)\*`)
)

// CatalogItem is one annotated entry of the corpus catalog.
type CatalogItem struct {
	ID         string
	Title      string
	Section    string
	Annotation string
}

// catalogFold is the accumulator threaded through the catalog lines.
type catalogFold struct {
	section string
	pending bool // the last item still waits for its annotation
	items   []CatalogItem
}

// step consumes one line and returns the next accumulator.
func (f catalogFold) step(line string) catalogFold {
	if m := sectionRe.FindStringSubmatch(line); m != nil {
		f.section = strings.TrimSpace(m[1])
		return f
	}
	if m := entryRe.FindStringSubmatch(line); m != nil {
		f.items = append(f.items, CatalogItem{
			ID:      strings.TrimSpace(m[1]),
			Title:   strings.TrimSpace(m[2]),
			Section: f.section,
		})
		f.pending = true
		return f
	}
	if f.pending && strings.TrimSpace(line) != "" {
		f.items[len(f.items)-1].Annotation = strings.TrimSpace(line)
		f.pending = false
	}
	return f
}

// ParseCatalog folds catalog text into its entries. Entries without an
// annotation line are dropped.
func ParseCatalog(text string) []CatalogItem {
	var f catalogFold
	for _, line := range strings.Split(normalizeNewlines(text), "\n") {
		f = f.step(line)
	}

	out := make([]CatalogItem, 0, len(f.items))
	for _, it := range f.items {
		if it.Annotation != "" {
			out = append(out, it)
		}
	}
	return out
}

// Document converts the item; the annotation is the indexed body.
func (it CatalogItem) Document() domain.Document {
	return domain.Document{
		ID:      it.ID,
		Title:   it.Title,
		Body:    it.Annotation,
		Context: it.Title,
		Payload: domain.CatalogEntry{Section: it.Section},
	}
}

// CatalogReader reads the single annotation catalog file.
type CatalogReader struct {
	path string
}

// NewCatalogReader creates a reader for the catalog at path.
func NewCatalogReader(path string) *CatalogReader {
	return &CatalogReader{path: path}
}

// Source implements Reader.
func (r *CatalogReader) Source() domain.Source { return domain.SourceCorpus }

// Root implements Reader.
func (r *CatalogReader) Root() string { return r.path }

// Read implements Reader. Candidates counts every entry marker, so entries
// dropped for a missing annotation show up as unparsed.
func (r *CatalogReader) Read(ctx context.Context) (Collection, error) {
	if err := ctx.Err(); err != nil {
		return Collection{}, err
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return Collection{}, fmt.Errorf("read catalog: %w", err)
	}

	text := string(data)
	items := ParseCatalog(text)

	markers := 0
	for _, line := range strings.Split(normalizeNewlines(text), "\n") {
		if entryRe.MatchString(line) {
			markers++
		}
	}

	col := Collection{
		Documents:  make([]domain.Document, 0, len(items)),
		Candidates: markers,
		Unparsed:   markers - len(items),
	}
	for _, it := range items {
		col.Documents = append(col.Documents, it.Document())
	}
	return col, nil
}
