package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap/zaptest"

	"github.com/wricardo/kalaha-game/api"
	"github.com/wricardo/kalaha-game/game/config"
	"github.com/wricardo/kalaha-game/game/service"
	"github.com/wricardo/kalaha-game/game/session"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080/"
	client := NewClient(baseURL)

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash to be trimmed, got %s", client.baseURL)
	}

	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("Expected JSON content type, got %q", r.Header.Get("Content-Type"))
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "ab12"})
		case "/rejected":
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": "pit is empty", "code": "empty_pit"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	var out struct {
		ID string `json:"id"`
	}
	if err := client.apiCall(ctx, "POST", "/ok", map[string]int{"pit": 1}, &out); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.ID != "ab12" {
		t.Errorf("Expected id ab12, got %s", out.ID)
	}

	err := client.apiCall(ctx, "GET", "/rejected", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Code != "empty_pit" {
		t.Errorf("Unexpected error fields: %+v", apiErr)
	}
	if err.Error() != "pit is empty (empty_pit)" {
		t.Errorf("Unexpected message: %s", err.Error())
	}

	err = client.apiCall(ctx, "GET", "/broken", nil, nil)
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("Expected 500 APIError, got %v", err)
	}
	if apiErr.Message != "API error: 500" {
		t.Errorf("Unexpected message: %s", apiErr.Message)
	}
}

func TestClient_apiCallUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	if err := client.apiCall(context.Background(), "GET", "/api/health", nil, nil); err == nil {
		t.Error("Expected connection error")
	}
}

func TestDecodeArgs(t *testing.T) {
	req := toolRequest("bulk_move", map[string]interface{}{
		"session_id": "ab12",
		"pits":       []interface{}{float64(1), float64(6), "3"},
		"reset":      true,
	})

	var args bulkMoveArgs
	if err := decodeArgs(req, &args); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if args.SessionID != "ab12" || !args.Reset {
		t.Errorf("Unexpected args: %+v", args)
	}
	if len(args.Pits) != 3 || args.Pits[0] != 1 || args.Pits[1] != 6 || args.Pits[2] != 3 {
		t.Errorf("Unexpected pits: %v", args.Pits)
	}

	var names playerNamesArgs
	req = toolRequest("set_player_names", map[string]interface{}{"session_id": "ab12", "player_b": "Ben"})
	if err := decodeArgs(req, &names); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if names.PlayerB != "Ben" || names.PlayerA != "" {
		t.Errorf("Unexpected names: %+v", names)
	}

	var move moveArgs
	if err := decodeArgs(toolRequest("move", map[string]interface{}{"pit": "not a number"}), &move); err == nil {
		t.Error("Expected decode error for non-numeric pit")
	}

	if err := decodeArgs(mcp.CallToolRequest{}, &move); err != nil {
		t.Errorf("Missing arguments should decode to zero values, got %v", err)
	}
}

func TestDecodeArgs_FractionalNumbers(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		args    map[string]interface{}
		dst     interface{}
		wantErr bool
	}{
		{"fractional pit", "move", map[string]interface{}{"pit": 1.9}, &moveArgs{}, true},
		{"whole float pit", "move", map[string]interface{}{"pit": float64(4)}, &moveArgs{}, false},
		{"fractional pit in bulk", "bulk_move", map[string]interface{}{"pits": []interface{}{float64(1), 2.5}}, &bulkMoveArgs{}, true},
		{"fractional stones", "reset_game", map[string]interface{}{"starting_stones": 4.2}, &resetArgs{}, true},
		{"fractional page", "move_history", map[string]interface{}{"page": 0.5}, &historyArgs{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeArgs(toolRequest(tt.tool, tt.args), tt.dst)
			if tt.wantErr && err == nil {
				t.Errorf("Expected error for %v", tt.args)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}

	var move moveArgs
	if err := decodeArgs(toolRequest("move", map[string]interface{}{"pit": float64(4)}), &move); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if move.Pit == nil || *move.Pit != 4 {
		t.Errorf("Expected pit 4, got %v", move.Pit)
	}
}

// End-to-end against the real REST API

func newTestClient(t *testing.T) *Client {
	t.Helper()
	logger := zaptest.NewLogger(t)

	configs, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to load configs: %v", err)
	}
	gameService := service.NewGameService(session.NewManager(logger), configs, service.WithLogger(logger))

	server := httptest.NewServer(api.NewServer(gameService, nil, logger))
	t.Cleanup(server.Close)

	return NewClient(server.URL)
}

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected tool result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", result.Content[0])
	}
	return text.Text
}

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func call(t *testing.T, handler toolHandler, args map[string]interface{}) (string, bool) {
	t.Helper()
	result, err := handler(context.Background(), toolRequest("", args))
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	return resultText(t, result), result.IsError
}

func createSession(t *testing.T, c *Client, args map[string]interface{}) string {
	t.Helper()
	text, isErr := call(t, c.handleCreateSession, args)
	if isErr {
		t.Fatalf("create_session failed: %s", text)
	}
	first := strings.SplitN(text, "\n", 2)[0]
	id := strings.TrimPrefix(first, "Created session: ")
	if id == first || id == "" {
		t.Fatalf("Could not find session id in %q", text)
	}
	return id
}

func TestTools_GameFlow(t *testing.T) {
	c := newTestClient(t)

	id := createSession(t, c, map[string]interface{}{
		"config_name": "classic",
		"player_a":    "Ann",
		"player_b":    "Ben",
	})

	text, isErr := call(t, c.handleGameState, map[string]interface{}{"session_id": id})
	if isErr {
		t.Fatalf("game_state failed: %s", text)
	}
	for _, want := range []string{"Ann (A) to move", "[  6]", "Legal pits for A: 1, 2, 3, 4, 5, 6"} {
		if !strings.Contains(text, want) {
			t.Errorf("game_state missing %q:\n%s", want, text)
		}
	}

	// Six stones from pit 1 end in A's store
	text, isErr = call(t, c.handleMove, map[string]interface{}{"session_id": id, "pit": float64(1)})
	if isErr {
		t.Fatalf("move failed: %s", text)
	}
	for _, want := range []string{"A played pit 1: 6 stones sown, last in store A", "Extra turn!", "Ann (A) to move"} {
		if !strings.Contains(text, want) {
			t.Errorf("move missing %q:\n%s", want, text)
		}
	}

	text, isErr = call(t, c.handleMove, map[string]interface{}{"session_id": id, "pit": float64(1)})
	if !isErr || !strings.Contains(text, "empty_pit") {
		t.Errorf("Expected empty_pit error, got %q", text)
	}

	text, isErr = call(t, c.handleMove, map[string]interface{}{"session_id": id, "pit": float64(9)})
	if !isErr || !strings.Contains(text, "invalid_pit") {
		t.Errorf("Expected invalid_pit error, got %q", text)
	}

	text, isErr = call(t, c.handleMove, map[string]interface{}{"session_id": id})
	if !isErr || text != "pit is required" {
		t.Errorf("Expected missing pit error, got %q", text)
	}

	// Pit 2 holds 7 stones and ends in B2, so B plays pit 4
	text, isErr = call(t, c.handleBulkMove, map[string]interface{}{
		"session_id": id,
		"pits":       []interface{}{float64(2), float64(4)},
	})
	if isErr {
		t.Fatalf("bulk_move failed: %s", text)
	}
	if !strings.Contains(text, "executed 2 of 2 moves") {
		t.Errorf("Unexpected bulk_move output:\n%s", text)
	}

	text, isErr = call(t, c.handleMoveHistory, map[string]interface{}{
		"session_id": id,
		"order":      "asc",
		"limit":      float64(2),
	})
	if isErr {
		t.Fatalf("move_history failed: %s", text)
	}
	for _, want := range []string{"3 moves total", "#1 A pit 1", "#2 A pit 2", "More moves on page 2"} {
		if !strings.Contains(text, want) {
			t.Errorf("move_history missing %q:\n%s", want, text)
		}
	}

	text, isErr = call(t, c.handleReset, map[string]interface{}{"session_id": id, "starting_stones": float64(4)})
	if isErr {
		t.Fatalf("reset_game failed: %s", text)
	}
	if !strings.Contains(text, "Game reset successfully") || !strings.Contains(text, "[  4]") {
		t.Errorf("Unexpected reset output:\n%s", text)
	}

	text, isErr = call(t, c.handleSetPlayerNames, map[string]interface{}{"session_id": id, "player_b": "Bea"})
	if isErr {
		t.Fatalf("set_player_names failed: %s", text)
	}
	if !strings.Contains(text, "A = Ann, B = Bea") {
		t.Errorf("Unexpected set_player_names output:\n%s", text)
	}
}

func TestTools_Sessions(t *testing.T) {
	c := newTestClient(t)

	id := createSession(t, c, nil)

	text, isErr := call(t, c.handleListSessions, nil)
	if isErr || !strings.Contains(text, "Active Sessions (1)") || !strings.Contains(text, id) {
		t.Errorf("Unexpected list_sessions output:\n%s", text)
	}

	text, isErr = call(t, c.handleGetSession, map[string]interface{}{"session_id": id})
	if isErr || !strings.Contains(text, "Session: "+id) {
		t.Errorf("Unexpected get_session output:\n%s", text)
	}

	text, isErr = call(t, c.handleGetSession, map[string]interface{}{"session_id": "nope"})
	if !isErr || !strings.Contains(text, "not_found") {
		t.Errorf("Expected not_found, got %q", text)
	}

	text, isErr = call(t, c.handleGameState, nil)
	if !isErr || text != "session_id is required" {
		t.Errorf("Expected session_id error, got %q", text)
	}

	text, isErr = call(t, c.handleCreateSession, map[string]interface{}{"config_name": "missing"})
	if !isErr || !strings.Contains(text, "not_found") {
		t.Errorf("Expected unknown config error, got %q", text)
	}
}

func TestTools_ConfigsAndInstructions(t *testing.T) {
	c := newTestClient(t)

	text, isErr := call(t, c.handleListConfigs, nil)
	if isErr {
		t.Fatalf("list_configs failed: %s", text)
	}
	for _, want := range []string{"classic (json)", "quick (yaml)", "Stones per pit: 4"} {
		if !strings.Contains(text, want) {
			t.Errorf("list_configs missing %q:\n%s", want, text)
		}
	}

	text, _ = call(t, c.handleGameInstructions, nil)
	for _, want := range []string{"EXTRA TURN", "CAPTURE", "END OF GAME"} {
		if !strings.Contains(text, want) {
			t.Errorf("instructions missing %q", want)
		}
	}
}

func TestMCPServer_ListsTools(t *testing.T) {
	c := NewClient("http://localhost:0")

	msg := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`)
	response := c.GetMCPServer().HandleMessage(context.Background(), msg)

	data, err := json.Marshal(response)
	if err != nil {
		t.Fatalf("Failed to marshal response: %v", err)
	}

	for _, name := range []string{"create_session", "game_state", "move", "bulk_move", "reset_game", "set_player_names", "move_history", "list_configs", "game_instructions"} {
		if !strings.Contains(string(data), `"`+name+`"`) {
			t.Errorf("tools/list missing %s", name)
		}
	}
}
