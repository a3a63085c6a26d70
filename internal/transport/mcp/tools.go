package mcp

import (
	"context"
	"encoding/json"
	"math"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/usecase/search"
)

// SearchToolName is the only tool the server offers.
const SearchToolName = "search_corpus"

func searchTool(defaultLimit int) *sdk.Tool {
	return &sdk.Tool{
		Name: SearchToolName,
		Description: "Semantic search over the archive: philosophical notes (source=corpus), " +
			"diary posts (source=diary), poetry (source=poetry) and chat posts (source=chat). " +
			"Returns the texts closest in meaning to the query. Omit source to search everything.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query in any language",
				},
				"n": map[string]any{
					"type":        "integer",
					"description": "Number of results",
					"default":     defaultLimit,
					"minimum":     1,
				},
				"source": map[string]any{
					"type":        "string",
					"description": "Restrict results to one source",
					"enum":        domain.SourceNames(),
				},
			},
			"required": []string{"query"},
		},
	}
}

type searchArgs struct {
	Query  string   `json:"query"`
	N      *float64 `json:"n,omitempty"`
	Source string   `json:"source,omitempty"`
}

func (s *Server) callSearch(ctx context.Context, raw json.RawMessage) (*sdk.CallToolResult, error) {
	var args searchArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, &Error{Code: ErrCodeInvalidParams, Message: "invalid arguments: " + err.Error()}
		}
	}
	if args.Query == "" {
		return nil, &Error{Code: ErrCodeInvalidParams, Message: "query is required"}
	}

	k := s.limit
	if args.N != nil {
		n := *args.N
		if n < 1 || n != math.Trunc(n) {
			return nil, &Error{Code: ErrCodeInvalidParams, Message: "n must be a positive integer"}
		}
		k = int(n)
	}

	var source *domain.Source
	if args.Source != "" {
		src, err := domain.ParseSource(args.Source)
		if err != nil {
			return nil, &Error{Code: ErrCodeInvalidParams, Message: err.Error()}
		}
		source = &src
	}

	results, err := s.searcher.Search(ctx, args.Query, k, source)
	if err != nil {
		return nil, err
	}

	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: search.Format(results)}},
	}, nil
}
