// Package indexing drives incremental indexing runs: read a source, skip
// documents that are already indexed, chunk and embed the rest, and write
// each document's chunks in a single upsert.
package indexing

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/run"
	"github.com/kailas-cloud/archivist/internal/logger"
	"github.com/kailas-cloud/archivist/internal/metrics"
	"github.com/kailas-cloud/archivist/internal/parser"
	"github.com/kailas-cloud/archivist/internal/repository/index"
)

// Service is the indexing orchestrator. Runs are sequential; the id-keyed
// upsert keeps the store consistent if two runs overlap.
type Service struct {
	readers  map[domain.Source]parser.Reader
	chunker  Chunker
	embedder domain.Embedder
	index    Index
	journal  Journal
	logger   *zap.Logger

	now     func() time.Time
	entropy io.Reader
}

// New creates an orchestrator. journal may be nil.
func New(
	readers []parser.Reader,
	chunker Chunker,
	embedder domain.Embedder,
	idx Index,
	journal Journal,
	log *zap.Logger,
) *Service {
	byName := make(map[domain.Source]parser.Reader, len(readers))
	for _, r := range readers {
		byName[r.Source()] = r
	}
	return &Service{
		readers:  byName,
		chunker:  chunker,
		embedder: embedder,
		index:    idx,
		journal:  journal,
		logger:   log,
		now:      time.Now,
		entropy:  rand.Reader,
	}
}

// Sources lists the configured sources in indexing order.
func (s *Service) Sources() []domain.Source {
	var out []domain.Source
	for _, src := range domain.Sources() {
		if _, ok := s.readers[src]; ok {
			out = append(out, src)
		}
	}
	return out
}

// Reader returns the reader configured for src.
func (s *Service) Reader(src domain.Source) (parser.Reader, bool) {
	r, ok := s.readers[src]
	return r, ok
}

// IndexSource runs one source under a fresh run id.
func (s *Service) IndexSource(ctx context.Context, src domain.Source) (run.Report, error) {
	return s.indexSource(ctx, s.newRunID(), src)
}

// IndexAll runs every configured source under one run id. A store failure
// stops the run and returns the reports finished so far.
func (s *Service) IndexAll(ctx context.Context) ([]run.Report, error) {
	runID := s.newRunID()
	var reports []run.Report
	for _, src := range s.Sources() {
		rep, err := s.indexSource(ctx, runID, src)
		if err != nil {
			return reports, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func (s *Service) indexSource(ctx context.Context, runID string, src domain.Source) (run.Report, error) {
	reader, ok := s.readers[src]
	if !ok {
		return run.Report{}, fmt.Errorf("%w: %s is not configured", domain.ErrUnknownSource, src)
	}

	rep := run.Report{RunID: runID, Source: src, StartedAt: s.now()}
	log := s.logger.With(zap.String("run_id", runID), zap.String("source", src.String()))
	ctx = logger.ContextWithLogger(ctx, log)

	if _, err := os.Stat(reader.Root()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("Source root not found, skipping", zap.String("root", reader.Root()))
			return s.finish(ctx, rep), nil
		}
		return rep, fmt.Errorf("stat %s root: %w", src, err)
	}

	col, err := reader.Read(ctx)
	if err != nil {
		return rep, fmt.Errorf("read %s: %w", src, err)
	}
	rep.Found = len(col.Documents)
	rep.Unparsed = col.Unparsed

	if err := s.index.EnsureIndex(ctx); err != nil {
		return rep, fmt.Errorf("ensure index: %w", err)
	}
	existing, err := s.index.ExistingIDs(ctx)
	if err != nil {
		return rep, fmt.Errorf("list existing ids: %w", err)
	}

	for _, doc := range col.Documents {
		if err := ctx.Err(); err != nil {
			return rep, fmt.Errorf("index %s: %w", src, err)
		}

		res, err := s.indexDocument(ctx, doc, existing)
		if err != nil {
			return rep, err
		}
		rep.Add(res)
		metrics.IndexedDocumentsTotal.WithLabelValues(src.String(), string(res.Status())).Inc()
	}

	rep = s.finish(ctx, rep)
	log.Info("Source indexed",
		zap.Int("found", rep.Found),
		zap.Int("already_indexed", rep.AlreadyIndexed),
		zap.Int("added", rep.Added),
		zap.Int("chunks", rep.Chunks),
		zap.Int("unparsed", rep.Unparsed),
		zap.Int("failed", rep.Failed),
		zap.Duration("duration", rep.Duration()),
	)
	return rep, nil
}

// indexDocument processes one document. Only store failures are returned as
// errors; provider and chunking failures become a failed result.
func (s *Service) indexDocument(
	ctx context.Context, doc domain.Document, existing map[string]struct{},
) (run.Result, error) {
	log := logger.FromContext(ctx).With(zap.String("doc_id", doc.ID))

	if isIndexed(doc.ID, existing) {
		return run.Existing(doc.ID), nil
	}

	chunks, err := s.chunker.Chunk(ctx, doc)
	if err != nil {
		log.Warn("Chunking failed, document skipped", zap.Error(err))
		return run.Failed(doc.ID, err), nil
	}
	if len(chunks) == 0 {
		return run.Empty(doc.ID), nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.EmbedText
	}
	emb, err := domain.EmbedAll(ctx, s.embedder, texts)
	if err != nil {
		log.Warn("Embedding failed, document skipped", zap.Int("chunks", len(chunks)), zap.Error(err))
		return run.Failed(doc.ID, err), nil
	}

	if err := s.index.Upsert(ctx, index.NewBatch(chunks, emb.Embeddings)); err != nil {
		if errors.Is(err, domain.ErrArityMismatch) || errors.Is(err, domain.ErrDimensionMismatch) {
			log.Warn("Embeddings rejected, document skipped", zap.Error(err))
			return run.Failed(doc.ID, err), nil
		}
		return run.Result{}, fmt.Errorf("upsert %s: %w", doc.ID, err)
	}

	for _, c := range chunks {
		existing[c.ID] = struct{}{}
		metrics.IndexedChunksTotal.WithLabelValues(doc.Source().String(), string(c.Strategy)).Inc()
	}
	log.Debug("Document indexed", zap.Int("chunks", len(chunks)), zap.Int("tokens", emb.TotalTokens))

	return run.Indexed(doc.ID, chunks), nil
}

func (s *Service) finish(ctx context.Context, rep run.Report) run.Report {
	rep.FinishedAt = s.now()
	metrics.IndexRunDuration.WithLabelValues(rep.Source.String()).Observe(rep.Duration().Seconds())

	if s.journal != nil {
		if err := s.journal.Record(ctx, rep); err != nil {
			logger.FromContext(ctx).Warn("Failed to journal run", zap.Error(err))
		}
	}
	return rep
}

func (s *Service) newRunID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// isIndexed is the dedup check: a document counts as indexed when either
// its single-chunk id or its first multi-chunk id is present.
func isIndexed(docID string, existing map[string]struct{}) bool {
	for _, id := range domain.DedupIDs(docID) {
		if _, ok := existing[id]; ok {
			return true
		}
	}
	return false
}
