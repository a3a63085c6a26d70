// Package run describes the outcome of one indexing pass over a source.
package run

import (
	"time"

	"github.com/kailas-cloud/archivist/internal/domain"
)

// Status is the processing outcome of a single document.
type Status string

// Document outcomes.
const (
	StatusIndexed  Status = "indexed"
	StatusExisting Status = "existing"
	StatusEmpty    Status = "empty"
	StatusFailed   Status = "failed"
)

// Result is the outcome of processing one document.
type Result struct {
	id       string
	status   Status
	chunks   int
	err      error
	strategy map[domain.Strategy]int
}

// Indexed creates a result for a document whose chunks were written.
func Indexed(id string, chunks []domain.Chunk) Result {
	byStrategy := make(map[domain.Strategy]int, 2)
	for _, c := range chunks {
		byStrategy[c.Strategy]++
	}
	return Result{id: id, status: StatusIndexed, chunks: len(chunks), strategy: byStrategy}
}

// Existing creates a result for a document skipped by the dedup check.
func Existing(id string) Result { return Result{id: id, status: StatusExisting} }

// Empty creates a result for a document that produced no chunks.
func Empty(id string) Result { return Result{id: id, status: StatusEmpty} }

// Failed creates a result for a document abandoned for this run.
func Failed(id string, err error) Result { return Result{id: id, status: StatusFailed, err: err} }

// ID returns the document id.
func (r Result) ID() string { return r.id }

// Status returns the outcome.
func (r Result) Status() Status { return r.status }

// Chunks returns how many chunks were written.
func (r Result) Chunks() int { return r.chunks }

// Err returns the failure cause, if any.
func (r Result) Err() error { return r.err }

// Report aggregates the results of one source run.
type Report struct {
	RunID          string
	Source         domain.Source
	StartedAt      time.Time
	FinishedAt     time.Time
	Found          int // documents parsed
	Unparsed       int // candidate files that produced no document
	AlreadyIndexed int
	Added          int // documents written
	Chunks         int // chunks written
	Empty          int
	Failed         int
	Verbatim       int
	Summarized     int
}

// Add folds a document result into the report.
func (r *Report) Add(res Result) {
	switch res.status {
	case StatusIndexed:
		r.Added++
		r.Chunks += res.chunks
		r.Verbatim += res.strategy[domain.StrategyVerbatim]
		r.Summarized += res.strategy[domain.StrategySummarized]
	case StatusExisting:
		r.AlreadyIndexed++
	case StatusEmpty:
		r.Empty++
	case StatusFailed:
		r.Failed++
	}
}

// Duration returns the wall time of the run.
func (r Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
