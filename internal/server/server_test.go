package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/thermal-stencil/internal/config"
	"github.com/ironsheep/thermal-stencil/internal/logger"
)

// testPresets are one-inch boards: 96x96 on screen, 300x300 on export.
const testPresets = `
presets:
  - name: mini
    width_cm: 2.54
    height_cm: 2.54
  - name: quad
    width_cm: 2.54
    height_cm: 2.54
    quadrant_split: true
`

// newTestServer returns a server with small boards and the given debounce.
func newTestServer(t *testing.T, debounceMS int) *Server {
	t.Helper()

	path := filepath.Join(t.TempDir(), "boards.yaml")
	if err := os.WriteFile(path, []byte(testPresets), 0o644); err != nil {
		t.Fatalf("failed to write presets: %v", err)
	}

	cfg := config.Default()
	cfg.DebounceMS = debounceMS
	cfg.PresetsFile = path

	s, err := New(cfg, logger.Nop{}, "0.1.0-test")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestNew(t *testing.T) {
	s := newTestServer(t, 0)
	if s.cache == nil {
		t.Fatal("New() did not initialize cache")
	}
	if s.renderer == nil {
		t.Fatal("New() did not initialize renderer")
	}
	if got := len(s.mapper.Presets()); got != 2 {
		t.Errorf("presets: got %d, want 2", got)
	}
}

func TestNew_BadPresetsFile(t *testing.T) {
	cfg := config.Default()
	cfg.PresetsFile = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := New(cfg, nil, "dev"); err == nil {
		t.Error("expected error for missing presets file")
	}
}

func TestMCPRequest_Unmarshal(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		wantID     interface{}
		wantMethod string
	}{
		{
			"string id",
			`{"jsonrpc":"2.0","id":"test-1","method":"tools/list"}`,
			"test-1",
			"tools/list",
		},
		{
			"number id",
			`{"jsonrpc":"2.0","id":42,"method":"ping"}`,
			float64(42), // JSON numbers decode as float64
			"ping",
		},
		{
			"null id",
			`{"jsonrpc":"2.0","id":null,"method":"initialize"}`,
			nil,
			"initialize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req MCPRequest
			if err := json.Unmarshal([]byte(tt.json), &req); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}

			if req.ID != tt.wantID {
				t.Errorf("ID: got %v (%T), want %v (%T)", req.ID, req.ID, tt.wantID, tt.wantID)
			}
			if req.Method != tt.wantMethod {
				t.Errorf("Method: got %s, want %s", req.Method, tt.wantMethod)
			}
		})
	}
}

func TestMCPResponse_WithError(t *testing.T) {
	resp := MCPResponse{
		JSONRPC: "2.0",
		ID:      1,
		Error: &MCPError{
			Code:    -32601,
			Message: "Method not found",
		},
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if strings.Contains(string(data), `"result"`) {
		t.Errorf("error response should omit result: %s", data)
	}

	var decoded MCPResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if decoded.Error == nil || decoded.Error.Code != -32601 {
		t.Errorf("Error: got %+v, want code -32601", decoded.Error)
	}
}

func TestHandleRequest_Initialize(t *testing.T) {
	s := newTestServer(t, 0)
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      "init-1",
		Method:  "initialize",
	}

	resp := s.handleRequest(context.Background(), req)

	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if resp.ID != "init-1" {
		t.Errorf("ID: got %v, want init-1", resp.ID)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion: got %v", result["protocolVersion"])
	}

	serverInfo, ok := result["serverInfo"].(map[string]interface{})
	if !ok {
		t.Fatal("serverInfo should be a map")
	}
	if serverInfo["name"] != "thermal-stencil-mcp" {
		t.Errorf("serverInfo.name: got %v", serverInfo["name"])
	}
	if serverInfo["version"] != "0.1.0-test" {
		t.Errorf("serverInfo.version: got %v", serverInfo["version"])
	}
}

func TestHandleRequest_Ping(t *testing.T) {
	s := newTestServer(t, 0)
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      "ping-1",
		Method:  "ping",
	}

	resp := s.handleRequest(context.Background(), req)

	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if resp.ID != "ping-1" {
		t.Errorf("ID: got %v, want ping-1", resp.ID)
	}
}

func TestHandleRequest_ToolsList(t *testing.T) {
	s := newTestServer(t, 0)
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/list",
	}

	resp := s.handleRequest(context.Background(), req)

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(toolsList) != len(GetToolDefinitions()) {
		t.Errorf("got %d tools, want %d", len(toolsList), len(GetToolDefinitions()))
	}
}

func TestHandleRequest_NotificationsInitialized(t *testing.T) {
	s := newTestServer(t, 0)
	req := &MCPRequest{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
	}

	// Notifications don't get responses
	if resp := s.handleRequest(context.Background(), req); resp != nil {
		t.Error("notifications/initialized should return nil response")
	}
}

func TestHandleRequest_MethodNotFound(t *testing.T) {
	s := newTestServer(t, 0)
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "nonexistent/method",
	}

	resp := s.handleRequest(context.Background(), req)

	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error == nil {
		t.Fatal("Expected error for unknown method")
	}
	if resp.Error.Code != -32601 {
		t.Errorf("Error code: got %d, want -32601", resp.Error.Code)
	}
}

// serve runs lines through Serve and returns the responses keyed by ID.
func serve(t *testing.T, s *Server, lines ...string) map[string]MCPResponse {
	t.Helper()

	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	responses := make(map[string]MCPResponse)
	scanner := bufio.NewScanner(&out)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var resp MCPResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("bad response line %q: %v", scanner.Text(), err)
		}
		responses[jsonString(resp.ID)] = resp
	}
	return responses
}

func jsonString(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestServe(t *testing.T) {
	s := newTestServer(t, 0)

	responses := serve(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","id":"two","method":"ping"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"board_presets"}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"nope","arguments":{}}}`,
	)

	if len(responses) != 4 {
		t.Fatalf("got %d responses, want 4: %v", len(responses), responses)
	}
	if resp := responses[`"two"`]; resp.Error != nil {
		t.Errorf("ping failed: %+v", resp.Error)
	}
	if resp := responses["3"]; resp.Error != nil {
		t.Errorf("board_presets failed: %+v", resp.Error)
	}
	if resp := responses["4"]; resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("unknown tool: got %+v, want code -32000", resp.Error)
	}
}

func TestServe_RenderBurstSupersedes(t *testing.T) {
	s := newTestServer(t, 300)
	path := createStencilFixture(t)

	call := func(id int, contrast int) string {
		return jsonString(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      id,
			"method":  "tools/call",
			"params": map[string]interface{}{
				"name": "stencil_render",
				"arguments": map[string]interface{}{
					"path":     path,
					"settings": map[string]interface{}{"contrast": contrast},
				},
			},
		})
	}

	// Warm the cache so both requests reach the renderer quickly.
	if _, err := s.cache.Prepared(path); err != nil {
		t.Fatalf("Prepared failed: %v", err)
	}

	responses := serve(t, s, call(1, 10), call(2, 20))
	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2", len(responses))
	}

	superseded := 0
	for id, resp := range responses {
		if resp.Error != nil {
			t.Fatalf("request %s failed: %+v", id, resp.Error)
		}
		var result stencilRenderResult
		decodeToolText(t, resp.Result, &result)
		if result.Superseded {
			superseded++
		} else if result.Settings == nil {
			t.Errorf("request %s: committed result without settings", id)
		}
	}
	if superseded != 1 {
		t.Errorf("got %d superseded renders, want 1", superseded)
	}
}

// decodeToolText unpacks the JSON text of a tools/call result.
func decodeToolText(t *testing.T, result interface{}, v interface{}) {
	t.Helper()

	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("failed to re-marshal result: %v", err)
	}
	var wrapper struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		t.Fatalf("bad result shape: %v", err)
	}
	if len(wrapper.Content) != 1 || wrapper.Content[0].Type != "text" {
		t.Fatalf("unexpected content: %s", raw)
	}
	if err := json.Unmarshal([]byte(wrapper.Content[0].Text), v); err != nil {
		t.Fatalf("bad tool text: %v", err)
	}
}
