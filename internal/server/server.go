package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ironsheep/thermal-stencil/internal/config"
	"github.com/ironsheep/thermal-stencil/internal/imaging"
	"github.com/ironsheep/thermal-stencil/internal/layout"
	"github.com/ironsheep/thermal-stencil/internal/logger"
	"github.com/ironsheep/thermal-stencil/internal/render"
)

const component = "server"

// Server handles MCP protocol communication
type Server struct {
	cache    *imaging.ImageCache
	mapper   *layout.Mapper
	renderer *render.Renderer
	log      logger.Logger
	version  string
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a server from a resolved configuration.
func New(cfg config.Config, log logger.Logger, version string) (*Server, error) {
	if log == nil {
		log = logger.Nop{}
	}
	mapper, err := cfg.Mapper()
	if err != nil {
		return nil, fmt.Errorf("failed to build board presets: %w", err)
	}
	return &Server{
		cache:  imaging.NewImageCache(cfg.MaxDimension),
		mapper: mapper,
		renderer: render.New(
			render.WithDelay(cfg.Debounce()),
			render.WithLogger(log),
		),
		log:     log,
		version: version,
	}, nil
}

// Close stops any scheduled render.
func (s *Server) Close() {
	s.renderer.Close()
}

// Run serves MCP over stdin and stdout.
func (s *Server) Run() error {
	return s.Serve(context.Background(), os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC request per line from in and writes responses to
// out. Requests are handled concurrently so that a burst of render calls can
// supersede each other; responses may therefore arrive out of order and are
// matched by ID. Serve returns once in is exhausted and every in-flight
// request has been answered.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var (
		mu      sync.Mutex
		encoder = json.NewEncoder(out)
		wg      sync.WaitGroup
	)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.Warning(component, "failed to parse request", map[string]interface{}{"error": err.Error()})
			continue
		}

		wg.Add(1)
		go func(req MCPRequest) {
			defer wg.Done()
			resp := s.handleRequest(ctx, &req)
			if resp == nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if err := encoder.Encode(resp); err != nil {
				s.log.Error(component, fmt.Errorf("failed to encode response: %w", err), nil)
			}
		}(req)
	}
	wg.Wait()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "thermal-stencil-mcp",
				"version": s.version,
			},
		},
	}
}
