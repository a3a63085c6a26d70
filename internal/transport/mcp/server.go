// Package mcp exposes search to a host tool over stdio: one JSON-RPC
// request per input line, one response line per request. Notifications get
// no response.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/usecase/search"
)

const maxLineSize = 4 << 20

// Searcher runs semantic queries.
type Searcher interface {
	Search(ctx context.Context, query string, k int, source *domain.Source) ([]search.Result, error)
}

// Config describes the server identity.
type Config struct {
	Name            string
	Version         string
	ProtocolVersion string
	DefaultLimit    int
}

// Server is the stdio command surface.
type Server struct {
	searcher Searcher
	info     sdk.Implementation
	protocol string
	limit    int
	tools    []*sdk.Tool
	logger   *zap.Logger
}

// NewServer creates a server. Empty config values take defaults.
func NewServer(searcher Searcher, cfg Config, logger *zap.Logger) *Server {
	if cfg.Name == "" {
		cfg.Name = "archivist"
	}
	if cfg.ProtocolVersion == "" {
		cfg.ProtocolVersion = DefaultProtocolVersion
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = search.DefaultLimit
	}
	return &Server{
		searcher: searcher,
		info:     sdk.Implementation{Name: cfg.Name, Version: cfg.Version},
		protocol: cfg.ProtocolVersion,
		limit:    cfg.DefaultLimit,
		tools:    []*sdk.Tool{searchTool(cfg.DefaultLimit)},
		logger:   logger,
	}
}

// Serve reads requests from r until EOF or ctx is done and writes
// responses to w. Blank lines are skipped.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp := s.HandleLine(ctx, line)
		if resp == nil {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	return nil
}

// HandleLine decodes and handles one raw line. Malformed JSON yields a parse
// error with a null id.
func (s *Server) HandleLine(ctx context.Context, line []byte) *Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		s.logger.Warn("Malformed request", zap.Error(err))
		return failure(nil, ErrCodeParseError, "Parse error: "+err.Error())
	}
	return s.Handle(ctx, &req)
}

// Handle dispatches one request. It returns nil for notifications.
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	if strings.HasPrefix(req.Method, "notifications/") {
		return nil
	}

	switch req.Method {
	case "initialize":
		return result(req.ID, &sdk.InitializeResult{
			ProtocolVersion: s.protocol,
			Capabilities:    &sdk.ServerCapabilities{Tools: &sdk.ToolCapabilities{}},
			ServerInfo:      &s.info,
		})
	case "ping":
		return result(req.ID, struct{}{})
	case "tools/list":
		return result(req.ID, &sdk.ListToolsResult{Tools: s.tools})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return failure(req.ID, ErrCodeMethodNotFound, "Unknown method: "+req.Method)
	}
}

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var p toolsCallParams
	if len(req.Params) == 0 {
		return failure(req.ID, ErrCodeInvalidParams, "params are required")
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return failure(req.ID, ErrCodeInvalidParams, "invalid params: "+err.Error())
	}

	switch p.Name {
	case SearchToolName:
		res, err := s.callSearch(ctx, p.Arguments)
		if err != nil {
			var rpcErr *Error
			if errors.As(err, &rpcErr) {
				return failure(req.ID, rpcErr.Code, rpcErr.Message)
			}
			s.logger.Error("Tool call failed", zap.String("tool", p.Name), zap.Error(err))
			return failure(req.ID, ErrCodeInternal, err.Error())
		}
		return result(req.ID, res)
	default:
		return failure(req.ID, ErrCodeMethodNotFound, "Unknown tool: "+p.Name)
	}
}
