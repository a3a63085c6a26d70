package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/run"
	healthuc "github.com/kailas-cloud/archivist/internal/usecase/health"
	searchuc "github.com/kailas-cloud/archivist/internal/usecase/search"
)

type fakeSearcher struct {
	results []searchuc.Result
	stats   searchuc.Stats
	err     error

	gotQuery  string
	gotK      int
	gotSource *domain.Source
}

func (f *fakeSearcher) Search(_ context.Context, query string, k int, source *domain.Source) ([]searchuc.Result, error) {
	f.gotQuery, f.gotK, f.gotSource = query, k, source
	if f.err != nil {
		return nil, f.err
	}
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	return f.results, nil
}

func (f *fakeSearcher) Stats(context.Context) (searchuc.Stats, error) {
	return f.stats, f.err
}

type fakeHealth struct{ report healthuc.Report }

func (f fakeHealth) Check(context.Context) healthuc.Report { return f.report }

type fakeHistory struct {
	reports []run.Report
	gotN    int
}

func (f *fakeHistory) Recent(_ context.Context, n int) ([]run.Report, error) {
	f.gotN = n
	return f.reports, nil
}

func healthy() fakeHealth {
	return fakeHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"store": healthuc.CheckOK},
		Chunks: 12,
	}}
}

func newRouter(s Searcher, h HealthChecker, hist RunHistory, keys ...string) http.Handler {
	return NewServer(s, h, hist, zap.NewNop()).Router(keys)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	rr := get(t, newRouter(&fakeSearcher{}, healthy(), nil), "/health")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.InDelta(t, 12, body["chunks"], 0)
}

func TestHealth_Unhealthy(t *testing.T) {
	h := fakeHealth{report: healthuc.Report{
		Status: healthuc.Unhealthy,
		Checks: map[string]healthuc.CheckResult{"store": healthuc.CheckError},
		Chunks: -1,
	}}
	rr := get(t, newRouter(&fakeSearcher{}, h, nil), "/health")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "chunks")
}

func TestSearch(t *testing.T) {
	s := &fakeSearcher{results: []searchuc.Result{
		{ID: "d1__c0", Score: 0.91, Source: "poetry", Title: "Rain"},
	}}
	h := newRouter(s, healthy(), nil)

	rr := get(t, h, "/v1/search?q=rain&n=3&source=poetry")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp struct {
		Query   string            `json:"query"`
		Count   int               `json:"count"`
		Results []searchuc.Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "rain", resp.Query)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "d1__c0", resp.Results[0].ID)

	assert.Equal(t, 3, s.gotK)
	require.NotNil(t, s.gotSource)
	assert.Equal(t, domain.SourcePoetry, *s.gotSource)
}

func TestSearch_NoResultsIsEmptyArray(t *testing.T) {
	rr := get(t, newRouter(&fakeSearcher{}, healthy(), nil), "/v1/search?q=anything")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"results":[]`)
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
		code   string
	}{
		{"empty query", "/v1/search", nil, http.StatusBadRequest, CodeBadRequest},
		{"bad n", "/v1/search?q=x&n=zero", nil, http.StatusBadRequest, CodeBadRequest},
		{"negative n", "/v1/search?q=x&n=-1", nil, http.StatusBadRequest, CodeBadRequest},
		{"unknown source", "/v1/search?q=x&source=tweets", nil, http.StatusBadRequest, CodeBadRequest},
		{"rate limited", "/v1/search?q=x", fmt.Errorf("embed: %w", domain.ErrRateLimited), http.StatusTooManyRequests, CodeRateLimited},
		{"provider", "/v1/search?q=x", fmt.Errorf("embed: %w", domain.ErrEmbeddingProviderError), http.StatusBadGateway, CodeUpstream},
		{"internal", "/v1/search?q=x", errors.New("connection reset"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := get(t, newRouter(&fakeSearcher{err: tc.err}, healthy(), nil), tc.target)
			require.Equal(t, tc.status, rr.Code)

			var e ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
			assert.Equal(t, tc.code, e.Code)
			if tc.code == CodeInternal {
				assert.Equal(t, "internal error", e.Message)
			}
		})
	}
}

func TestStats(t *testing.T) {
	s := &fakeSearcher{stats: searchuc.Stats{
		Total:    7,
		BySource: []searchuc.SourceCount{{Source: domain.SourcePoetry, Chunks: 7}},
	}}
	rr := get(t, newRouter(s, healthy(), nil), "/v1/stats")
	require.Equal(t, http.StatusOK, rr.Code)

	var got searchuc.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 7, got.Total)
	assert.Equal(t, domain.SourcePoetry, got.BySource[0].Source)
}

func TestRuns(t *testing.T) {
	hist := &fakeHistory{reports: []run.Report{{
		RunID:     "01J",
		Source:    domain.SourcePoetry,
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Added:     2,
		Chunks:    5,
	}}}
	h := newRouter(&fakeSearcher{}, healthy(), hist)

	rr := get(t, h, "/v1/runs?limit=5")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, hist.gotN)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "poetry", got[0]["source"])
	assert.InDelta(t, 5, got[0]["chunks"], 0)

	rr = get(t, h, "/v1/runs?limit=0")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRuns_NoHistory(t *testing.T) {
	rr := get(t, newRouter(&fakeSearcher{}, healthy(), nil), "/v1/runs")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestRouter_AuthAndRequestID(t *testing.T) {
	h := newRouter(&fakeSearcher{}, healthy(), nil, "secret")

	rr := get(t, h, "/v1/stats")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)
}

func TestRouter_NotFound(t *testing.T) {
	rr := get(t, newRouter(&fakeSearcher{}, healthy(), nil), "/v1/nope")
	require.Equal(t, http.StatusNotFound, rr.Code)

	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
	assert.Equal(t, CodeBadRequest, e.Code)
}

func TestJSONRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := get(t, h, "/")
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
	assert.Equal(t, CodeInternal, e.Code)
}
