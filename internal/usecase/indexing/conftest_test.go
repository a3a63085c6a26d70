package indexing

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/run"
	"github.com/kailas-cloud/archivist/internal/parser"
	"github.com/kailas-cloud/archivist/internal/repository/index"
)

// fakeReader returns a fixed collection. An empty root reports the working
// directory, which always exists.
type fakeReader struct {
	source domain.Source
	root   string
	col    parser.Collection
	err    error
}

func (r *fakeReader) Source() domain.Source { return r.source }

func (r *fakeReader) Root() string {
	if r.root == "" {
		return "."
	}
	return r.root
}

func (r *fakeReader) Read(context.Context) (parser.Collection, error) {
	return r.col, r.err
}

// memIndex is an in-memory Index keyed by chunk id.
type memIndex struct {
	mu        sync.Mutex
	entries   map[string]domain.IndexEntry
	upserts   int
	upsertErr error
	listErr   error
}

func newMemIndex() *memIndex {
	return &memIndex{entries: make(map[string]domain.IndexEntry)}
}

func (m *memIndex) EnsureIndex(context.Context) error { return nil }

func (m *memIndex) ExistingIDs(context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	ids := make(map[string]struct{}, len(m.entries))
	for id := range m.entries {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (m *memIndex) Upsert(_ context.Context, b index.Batch) error {
	if err := b.Validate(0); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	for i := range b.IDs {
		m.entries[b.IDs[i]] = b.Entry(i)
	}
	return nil
}

// fakeEmbedder returns one 2-dim vector per text and fails on texts
// containing failOn.
type fakeEmbedder struct {
	failOn string
	calls  int
	short  bool
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: res.Embeddings[0]}, nil
}

func (e *fakeEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	e.calls++
	out := domain.BatchEmbeddingResult{}
	for _, t := range texts {
		if e.failOn != "" && strings.Contains(t, e.failOn) {
			return domain.BatchEmbeddingResult{}, domain.ErrEmbeddingProviderError
		}
		out.Embeddings = append(out.Embeddings, []float32{float32(len(t)), 1})
		out.TotalTokens += len(t)
	}
	if e.short {
		out.Embeddings = out.Embeddings[:len(out.Embeddings)-1]
	}
	return out, nil
}

// fakeSummarizer returns a fixed summary prefixed with the hint.
type fakeSummarizer struct {
	calls int
	err   error
}

func (s *fakeSummarizer) Summarize(_ context.Context, text, hint string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "summary of " + hint + " (" + text[:10] + ")", nil
}

// memJournal collects recorded reports.
type memJournal struct {
	reports []run.Report
	err     error
}

func (j *memJournal) Record(_ context.Context, r run.Report) error {
	j.reports = append(j.reports, r)
	return j.err
}

var errStore = errors.New("store unavailable")

func diaryDoc(id, body string) domain.Document {
	return domain.Document{
		ID:      id,
		Title:   "Title " + id,
		Body:    body,
		Context: "2004-10-07: Title " + id,
		Payload: domain.DiaryPost{Date: "2004-10-07"},
	}
}
