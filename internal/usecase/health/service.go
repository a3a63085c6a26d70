// Package health aggregates availability of the store and the providers.
package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const checkTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Chunks int // -1 when the count is unavailable
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	counter   Counter
}

// New creates a Service. embedding and counter can be nil.
func New(db DBPinger, embedding EmbeddingChecker, counter Counter) *Service {
	return &Service{db: db, embedding: embedding, counter: counter}
}

// Check runs health checks against all components. The store is required,
// so a store failure makes the whole report unhealthy.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	report := Report{Status: Healthy, Checks: checks, Chunks: -1}

	checks["store"] = result(run(ctx, s.db.Ping))
	if checks["store"] == CheckError {
		report.Status = Unhealthy
	}

	if s.embedding != nil {
		checks["embedding"] = result(run(ctx, s.embedding.HealthCheck))
		if checks["embedding"] == CheckError && report.Status == Healthy {
			report.Status = Degraded
		}
	}

	if s.counter != nil && checks["store"] == CheckOK {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		if n, err := s.counter.Total(cctx); err == nil {
			report.Chunks = n
		}
		cancel()
	}

	return report
}

func run(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return fn(ctx)
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
