package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/usecase/search"
)

type mockSearcher struct {
	results []search.Result
	err     error

	calls     int
	lastQuery string
	lastK     int
	lastSrc   *domain.Source
}

func (m *mockSearcher) Search(_ context.Context, query string, k int, source *domain.Source) ([]search.Result, error) {
	m.calls++
	m.lastQuery, m.lastK, m.lastSrc = query, k, source
	return m.results, m.err
}

type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

func serve(t *testing.T, s *Server, input string) []wireResponse {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), strings.NewReader(input), &out))

	var resps []wireResponse
	for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
		if line == "" {
			continue
		}
		var r wireResponse
		require.NoError(t, json.Unmarshal([]byte(line), &r), line)
		resps = append(resps, r)
	}
	return resps
}

func newTestServer(ms *mockSearcher) *Server {
	return NewServer(ms, Config{Name: "archivist", Version: "1.2.3"}, zap.NewNop())
}

func TestServe_Initialize(t *testing.T) {
	resps := serve(t, newTestServer(&mockSearcher{}),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`+"\n")

	require.Len(t, resps, 1)
	assert.JSONEq(t, "1", string(resps[0].ID))
	assert.Nil(t, resps[0].Error)

	var res map[string]any
	require.NoError(t, json.Unmarshal(resps[0].Result, &res))
	assert.Equal(t, "2024-11-05", res["protocolVersion"])
	assert.Equal(t, map[string]any{"tools": map[string]any{}}, res["capabilities"])
	assert.Equal(t, map[string]any{"name": "archivist", "version": "1.2.3"}, res["serverInfo"])
}

func TestServe_ToolsList(t *testing.T) {
	resps := serve(t, newTestServer(&mockSearcher{}),
		`{"jsonrpc":"2.0","id":"a","method":"tools/list"}`+"\n")

	require.Len(t, resps, 1)
	assert.JSONEq(t, `"a"`, string(resps[0].ID))

	var res struct {
		Tools []struct {
			Name        string         `json:"name"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resps[0].Result, &res))
	require.Len(t, res.Tools, 1)
	assert.Equal(t, SearchToolName, res.Tools[0].Name)
	assert.Equal(t, []any{"query"}, res.Tools[0].InputSchema["required"])

	props := res.Tools[0].InputSchema["properties"].(map[string]any)
	n := props["n"].(map[string]any)
	assert.Equal(t, "integer", n["type"])
	assert.EqualValues(t, 5, n["default"])
	src := props["source"].(map[string]any)
	assert.Contains(t, src["enum"], "poetry")
	assert.Contains(t, src["enum"], "lj")
}

func TestServe_ToolsCall(t *testing.T) {
	ms := &mockSearcher{results: []search.Result{
		{Score: 0.873, Title: "On Duty", Section: "Ethics", Excerpt: "A short note on obligation."},
		{Score: 0.61, Title: "Rain", Date: "2004-10-07", Excerpt: "Wet streets."},
	}}
	resps := serve(t, newTestServer(ms),
		`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"search_corpus","arguments":{"query":"duty","n":2,"source":"lj"}}}`+"\n")

	require.Len(t, resps, 1)
	require.Nil(t, resps[0].Error)

	var res struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(resps[0].Result, &res))
	require.Len(t, res.Content, 1)
	assert.Equal(t, "text", res.Content[0].Type)
	assert.Equal(t,
		"[0.873] On Duty (Ethics)\n  A short note on obligation.\n\n[0.610] Rain (2004-10-07)\n  Wet streets.",
		res.Content[0].Text)

	assert.Equal(t, "duty", ms.lastQuery)
	assert.Equal(t, 2, ms.lastK)
	require.NotNil(t, ms.lastSrc)
	assert.Equal(t, domain.SourceDiary, *ms.lastSrc)
}

func TestServe_ToolsCallDefaults(t *testing.T) {
	ms := &mockSearcher{}
	serve(t, newTestServer(ms),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"search_corpus","arguments":{"query":"q"}}}`+"\n")

	assert.Equal(t, 5, ms.lastK)
	assert.Nil(t, ms.lastSrc)
}

func TestServe_Errors(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		code     int
		idJSON   string
		contains string
	}{
		{"unknown method", `{"jsonrpc":"2.0","id":2,"method":"resources/list"}`,
			ErrCodeMethodNotFound, "2", "Unknown method: resources/list"},
		{"unknown tool", `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"delete_all"}}`,
			ErrCodeMethodNotFound, "3", "Unknown tool: delete_all"},
		{"malformed json", `{"jsonrpc":"2.0","id":4,`,
			ErrCodeParseError, "null", "Parse error"},
		{"missing query", `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"search_corpus","arguments":{}}}`,
			ErrCodeInvalidParams, "5", "query is required"},
		{"bad n", `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"search_corpus","arguments":{"query":"q","n":2.5}}}`,
			ErrCodeInvalidParams, "6", "positive integer"},
		{"bad source", `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"search_corpus","arguments":{"query":"q","source":"email"}}}`,
			ErrCodeInvalidParams, "7", "unknown source"},
		{"no params", `{"jsonrpc":"2.0","id":8,"method":"tools/call"}`,
			ErrCodeInvalidParams, "8", "params"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := &mockSearcher{}
			resps := serve(t, newTestServer(ms), tt.line+"\n")

			require.Len(t, resps, 1)
			require.NotNil(t, resps[0].Error)
			assert.Equal(t, tt.code, resps[0].Error.Code)
			assert.Contains(t, resps[0].Error.Message, tt.contains)
			assert.JSONEq(t, tt.idJSON, string(resps[0].ID))
			assert.Zero(t, ms.calls)
		})
	}
}

func TestServe_SearchFailureIsInternalVerbatim(t *testing.T) {
	ms := &mockSearcher{err: errors.New("embed query: rate limited")}
	resps := serve(t, newTestServer(ms),
		`{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"name":"search_corpus","arguments":{"query":"q"}}}`+"\n")

	require.Len(t, resps, 1)
	require.NotNil(t, resps[0].Error)
	assert.Equal(t, ErrCodeInternal, resps[0].Error.Code)
	assert.Equal(t, "embed query: rate limited", resps[0].Error.Message)
}

func TestServe_NotificationsAndBlankLines(t *testing.T) {
	input := "\n" +
		`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n" +
		"   \n" +
		`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":1}}` + "\n" +
		`{"jsonrpc":"2.0","id":10,"method":"ping"}` + "\n"

	resps := serve(t, newTestServer(&mockSearcher{}), input)

	require.Len(t, resps, 1)
	assert.JSONEq(t, "10", string(resps[0].ID))
	assert.JSONEq(t, "{}", string(resps[0].Result))
}

func TestServe_OneLinePerRequest(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n" +
		`not json` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"

	resps := serve(t, newTestServer(&mockSearcher{}), input)

	require.Len(t, resps, 3)
	assert.JSONEq(t, "1", string(resps[0].ID))
	assert.JSONEq(t, "null", string(resps[1].ID))
	assert.JSONEq(t, "2", string(resps[2].ID))
}

func TestServe_NonASCIIUnescaped(t *testing.T) {
	ms := &mockSearcher{results: []search.Result{{Score: 1, Title: "Грусть", Excerpt: "<тишина>"}}}
	var out bytes.Buffer
	err := newTestServer(ms).Serve(context.Background(), strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"search_corpus","arguments":{"query":"q"}}}`+"\n"), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Грусть")
	assert.Contains(t, out.String(), "<тишина>")
}

func TestServe_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := newTestServer(&mockSearcher{}).Serve(ctx,
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}
