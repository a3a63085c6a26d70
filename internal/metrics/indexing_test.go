package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIndexingMetrics_Idempotent(t *testing.T) {
	RegisterIndexingMetrics()
	RegisterIndexingMetrics()

	before := testutil.ToFloat64(IndexedDocumentsTotal.WithLabelValues("poetry", "indexed"))
	IndexedDocumentsTotal.WithLabelValues("poetry", "indexed").Inc()
	after := testutil.ToFloat64(IndexedDocumentsTotal.WithLabelValues("poetry", "indexed"))

	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, got %f", after-before)
	}
}

func TestRegisterProviderMetrics_Idempotent(t *testing.T) {
	RegisterProviderMetrics()
	RegisterProviderMetrics()

	SummarizerRequestsTotal.WithLabelValues("test", "m", "success").Inc()
	if got := testutil.ToFloat64(SummarizerRequestsTotal.WithLabelValues("test", "m", "success")); got < 1 {
		t.Errorf("expected summarizer counter >= 1, got %f", got)
	}
}
