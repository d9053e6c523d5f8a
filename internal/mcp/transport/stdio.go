package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"packsense/internal/core/config"
	"packsense/internal/mcp/contracts"
	"packsense/internal/mcp/schema"
	"packsense/internal/shared/util"
	"sync"
)

type Handler func(ctx context.Context, tool string, raw map[string]any) (any, error)

type Adapter interface {
	Start(ctx context.Context, handler Handler) error
	Stop() error
}

// ToolLister reports the tool definitions served by tools/list.
type ToolLister func() []schema.ToolDefinition

const (
	protocolVersion = "2025-06-18"

	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeRateLimited    = -32005
)

type Stdio struct {
	in      io.Reader
	out     io.Writer
	name    string
	tools   ToolLister
	limiter *util.Limiter
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewStdio serves newline-delimited JSON on in and out. Nil streams default
// to the process stdin and stdout. A RateLimit of zero disables limiting.
func NewStdio(cfg config.MCP, in io.Reader, out io.Writer, tools ToolLister, logger *slog.Logger) (*Stdio, error) {
	if tools == nil {
		return nil, fmt.Errorf("tool lister is required")
	}
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Stdio{
		in:     in,
		out:    out,
		name:   cfg.ServerName,
		tools:  tools,
		logger: logger,
	}
	if s.name == "" {
		s.name = contracts.ToolNamePacksense
	}
	if cfg.RateLimit > 0 {
		s.limiter = util.NewPerMinuteLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	return s, nil
}

func (s *Stdio) Start(ctx context.Context, handler Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	if err := s.serve(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Stop cancels in-flight requests. The read loop exits once the input
// stream ends.
func (s *Stdio) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

type toolRequest struct {
	ID   any            `json:"id,omitempty"`
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type toolResponse struct {
	ID     any                  `json:"id,omitempty"`
	OK     bool                 `json:"ok"`
	Result any                  `json:"result,omitempty"`
	Error  *contracts.ToolError `json:"error,omitempty"`
}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc,omitempty"`
	ID      any            `json:"id,omitempty"`
	Method  string         `json:"method,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (s *Stdio) serve(ctx context.Context, handler Handler) error {
	if handler == nil {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "stdio handler is required"}
	}

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	writer := bufio.NewWriter(s.out)
	encoder := json.NewEncoder(writer)
	send := func(v any) error {
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return writer.Flush()
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw map[string]any
		if err := json.Unmarshal(line, &raw); err != nil {
			s.logger.Warn("discarding malformed request", "line", util.Truncate(string(line), 120), "error", err)
			if err := send(rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "Parse error"}}); err != nil {
				return err
			}
			continue
		}

		if s.limiter != nil && !s.limiter.Allow(1) {
			reqID := raw["id"]
			if err := send(rpcResponse{
				JSONRPC: "2.0",
				ID:      reqID,
				Error:   &rpcError{Code: codeRateLimited, Message: "Rate limit exceeded"},
			}); err != nil {
				return err
			}
			continue
		}

		resp, handled := s.handleRPCMessage(ctx, handler, raw)
		if handled {
			if resp == nil {
				continue
			}
			if err := send(resp); err != nil {
				return err
			}
			continue
		}

		req := parseLegacyToolRequest(raw)
		if req.Args == nil {
			req.Args = map[string]any{}
		}

		result, callErr := handler(ctx, req.Tool, req.Args)
		legacy := toolResponse{ID: req.ID}
		if callErr != nil {
			toolErr := normalizeToolError(callErr)
			legacy.Error = &toolErr
		} else {
			legacy.OK = true
			legacy.Result = result
		}
		if err := send(legacy); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func parseLegacyToolRequest(raw map[string]any) toolRequest {
	req := toolRequest{}
	if id, ok := raw["id"]; ok {
		req.ID = id
	}
	if tool, ok := raw["tool"].(string); ok {
		req.Tool = tool
	}
	if args, ok := raw["args"].(map[string]any); ok {
		req.Args = args
	}
	return req
}

// handleRPCMessage answers JSON-RPC messages. handled is false for legacy
// requests; a nil response means nothing is sent back.
func (s *Stdio) handleRPCMessage(ctx context.Context, handler Handler, raw map[string]any) (resp *rpcResponse, handled bool) {
	method, hasMethod := raw["method"].(string)
	if !hasMethod || method == "" {
		return nil, false
	}
	jsonrpc, _ := raw["jsonrpc"].(string)
	if jsonrpc == "" {
		return nil, false
	}

	req := rpcRequest{
		JSONRPC: jsonrpc,
		Method:  method,
		Params:  map[string]any{},
	}
	if id, ok := raw["id"]; ok {
		req.ID = id
	}
	if params, ok := raw["params"].(map[string]any); ok {
		req.Params = params
	}

	if req.Method == "notifications/initialized" {
		return nil, true
	}

	resp = &rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
	}

	switch req.Method {
	case "initialize":
		resp.Result = map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    s.name,
				"version": contracts.ContractVersion,
			},
		}
	case "ping":
		resp.Result = map[string]any{}
	case "tools/list":
		toolDefs := s.tools()
		tools := make([]map[string]any, 0, len(toolDefs))
		for _, def := range toolDefs {
			tools = append(tools, map[string]any{
				"name":        def.Name,
				"description": def.Description,
				"inputSchema": def.InputSchema,
			})
		}
		resp.Result = map[string]any{"tools": tools}
	case "tools/call":
		name, _ := req.Params["name"].(string)
		args, _ := req.Params["arguments"].(map[string]any)
		if args == nil {
			args = map[string]any{}
		}
		result, err := handler(ctx, name, args)
		if err != nil {
			toolErr := normalizeToolError(err)
			resp.Result = map[string]any{
				"isError": true,
				"content": []map[string]any{
					{
						"type": "text",
						"text": fmt.Sprintf("%s: %s", toolErr.Code, toolErr.Message),
					},
				},
			}
		} else {
			resp.Result = map[string]any{
				"isError":           false,
				"structuredContent": result,
				"content": []map[string]any{
					{
						"type": "text",
						"text": mustJSONText(result),
					},
				},
			}
		}
	default:
		resp.Error = &rpcError{
			Code:    codeMethodNotFound,
			Message: "Method not found",
		}
	}
	return resp, true
}

func mustJSONText(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func normalizeToolError(err error) contracts.ToolError {
	var toolErr contracts.ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}
	return contracts.ToolError{Code: contracts.ErrorInternal, Message: err.Error()}
}
