package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"github.com/wricardo/kalaha-game/game/engine"
	"github.com/wricardo/kalaha-game/game/service"
)

// Version is reported to MCP clients
const Version = "1.0.0"

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Kalaha",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Kalaha - MCP Interface

Two players share a board of two rows of six pits plus one store each.
Every tool proxies to the REST API server.

AVAILABLE TOOLS:
- create_session: Start a new game (optional ruleset and player names)
- list_sessions / get_session: Inspect games
- game_state: Board, scores and whose turn it is
- move: Sow the stones of one pit (1-6) for the player to move
- bulk_move: Several pits in order, stopping at the first rejected one
- reset_game: Start over (optionally with a different stone count)
- set_player_names: Rename players
- move_history: Past moves
- list_configs: Available rulesets
- game_instructions: Full rules`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new Kalaha game session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_name": map[string]interface{}{
					"type":        "string",
					"description": "Ruleset to use, see list_configs (optional)",
				},
				"player_a": map[string]interface{}{
					"type":        "string",
					"description": "Name of player A, who moves first (optional)",
				},
				"player_b": map[string]interface{}{
					"type":        "string",
					"description": "Name of player B (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the board, stores, legal moves and whose turn it is",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Sow the stones of one of the current player's pits",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"pit": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"maximum":     engine.PitsPerRow,
					"description": "Pit number 1-6 of the player to move",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why this pit was chosen",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before moving",
				},
			},
			Required: []string{"session_id", "pit"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: "Play several pits in order; stops at the first rejected move",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"pits": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type":    "integer",
						"minimum": 1,
						"maximum": engine.PitsPerRow,
					},
					"maxItems":    engine.MaxBulkMoves,
					"description": "Pits to play, each for whoever is to move at that point",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the plan behind this sequence",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before moving",
				},
			},
			Required: []string{"session_id", "pits"},
		},
	}, c.handleBulkMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Start the game over, keeping player names",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"starting_stones": map[string]interface{}{
					"type":        "integer",
					"minimum":     engine.MinStartingStones,
					"maximum":     engine.MaxStartingStones,
					"description": "Stones per pit for the new game (optional, defaults to the previous count)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_player_names",
		Description: "Rename one or both players",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"player_a": map[string]interface{}{
					"type":        "string",
					"description": "New name for player A (optional)",
				},
				"player_b": map[string]interface{}{
					"type":        "string",
					"description": "New name for player B (optional)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleSetPlayerNames)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get move history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Oldest first (asc) or newest first (desc, default)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available rulesets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the complete Kalaha rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Tool arguments

type sessionArgs struct {
	SessionID string `mapstructure:"session_id"`
}

type createSessionArgs struct {
	ConfigName string `mapstructure:"config_name"`
	PlayerA    string `mapstructure:"player_a"`
	PlayerB    string `mapstructure:"player_b"`
}

type moveArgs struct {
	SessionID string `mapstructure:"session_id"`
	Pit       *int   `mapstructure:"pit"`
	Intent    string `mapstructure:"intent"`
	Reset     bool   `mapstructure:"reset"`
}

type bulkMoveArgs struct {
	SessionID string `mapstructure:"session_id"`
	Pits      []int  `mapstructure:"pits"`
	Intent    string `mapstructure:"intent"`
	Reset     bool   `mapstructure:"reset"`
}

type resetArgs struct {
	SessionID      string `mapstructure:"session_id"`
	StartingStones int    `mapstructure:"starting_stones"`
}

type playerNamesArgs struct {
	SessionID           string `mapstructure:"session_id"`
	service.PlayerNames `mapstructure:",squash"`
}

type historyArgs struct {
	SessionID string `mapstructure:"session_id"`
	Page      int    `mapstructure:"page"`
	Limit     int    `mapstructure:"limit"`
	Order     string `mapstructure:"order"`
}

// decodeArgs copies the tool arguments into dst. JSON numbers arrive as
// float64 and are converted to the target field types.
func decodeArgs(request mcp.CallToolRequest, dst interface{}) error {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook:       wholeNumberHook,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// wholeNumberHook refuses fractional numbers for integer fields, which weak
// typing would otherwise truncate
func wholeNumberHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	if f, ok := data.(float64); ok && f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not a whole number", f)
	}
	return data, nil
}

func requireSession(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("session_id is required")
	}
	return nil
}

func sessionPath(id string, suffix string) string {
	return "/api/sessions/" + url.PathEscape(id) + suffix
}

// APIError is a failed REST call
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
			return &APIError{Status: resp.StatusCode, Code: errResp.Code, Message: errResp.Error}
		}
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("API error: %d", resp.StatusCode)}
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args createSessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]string{}
	if args.ConfigName != "" {
		body["config_id"] = args.ConfigName
	}
	if args.PlayerA != "" {
		body["player_a"] = args.PlayerA
	}
	if args.PlayerB != "" {
		body["player_b"] = args.PlayerB
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s", session.ID, session.ConfigName, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "in progress"
		if s.GameState != nil {
			status = engine.StatusLine(s.GameState)
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Created: %s) %s\n",
			s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"), status)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := requireSession(args.SessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(args.SessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := requireSession(args.SessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(args.SessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args moveArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := requireSession(args.SessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if args.Pit == nil {
		return mcp.NewToolResultError("pit is required"), nil
	}

	body := map[string]interface{}{
		"pit":   *args.Pit,
		"reset": args.Reset,
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(args.SessionID, "/move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args bulkMoveArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := requireSession(args.SessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(args.Pits) == 0 {
		return mcp.NewToolResultError("pits must not be empty"), nil
	}

	body := map[string]interface{}{
		"pits":  args.Pits,
		"reset": args.Reset,
	}

	var result service.BulkMoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(args.SessionID, "/bulk-move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkMoveResult(args.SessionID, &result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args resetArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := requireSession(args.SessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var body interface{}
	if args.StartingStones > 0 {
		body = map[string]int{"starting_stones": args.StartingStones}
	}

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(args.SessionID, "/reset"), body, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleSetPlayerNames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args playerNamesArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := requireSession(args.SessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "PUT", sessionPath(args.SessionID, "/players"), args.PlayerNames, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Players: A = %s, B = %s\n\n%s", state.PlayerAName, state.PlayerBName, formatGameState(&state))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args historyArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := requireSession(args.SessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{}
	if args.Page > 0 {
		query.Set("page", fmt.Sprint(args.Page))
	}
	if args.Limit > 0 {
		query.Set("limit", fmt.Sprint(args.Limit))
	}
	if args.Order != "" {
		query.Set("order", args.Order)
	}
	path := sessionPath(args.SessionID, "/history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Stones per pit: %d\n\n",
			config.ConfigID, config.Format, config.Description, config.StartingStones)
	}

	return mcp.NewToolResultText(b.String()), nil
}

const instructions = `Kalaha - Complete Rules

BOARD:
Two rows of six pits and two stores. Player A owns the bottom row and the
store on its right; player B owns the top row and the store on its left.
Pits are numbered 1 to 6 from each player's left. Every pit starts with the
same number of stones (six in the classic ruleset).

A MOVE:
The player to move picks one of their non-empty pits, takes all of its
stones and sows them one by one counter-clockwise: along their own row
towards their store, into their own store, then along the opponent's row.
The opponent's store is skipped.

EXTRA TURN:
If the last stone lands in the mover's own store, they move again.

CAPTURE:
If the last stone lands in an empty pit on the mover's side and the
opposite pit holds stones, both the last stone and the opposite pit's
stones go to the mover's store.

END OF GAME:
The game ends as soon as either row is empty. Each player then moves the
stones left in their own row into their own store. The larger store wins;
equal stores are a draw.

TOOLS:
- move takes a pit 1-6 for whoever is to move (see "turn" in game_state)
- bulk_move plays a list of pits and stops at the first illegal one
- Rejected moves report invalid_pit, empty_pit or game_over and change nothing

TIPS:
- A pit whose stone count equals its distance to the store gives an extra turn
  (pit 1 needs 6 stones, pit 6 needs 1)
- Chain extra turns before making a capture
- Keep an eye on the opponent's empty pits facing your full ones`

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", session.ID)
	fmt.Fprintf(&b, "Config: %s\n", session.ConfigName)
	fmt.Fprintf(&b, "Created: %s\n", session.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Last accessed: %s\n\n", session.LastAccessedAt.Format(time.RFC3339))
	b.WriteString(formatGameState(session.GameState))
	return b.String()
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available\n"
	}

	var b strings.Builder
	b.WriteString(engine.RenderBoard(state))
	b.WriteString("\n")
	fmt.Fprintf(&b, "A (%s): %d   B (%s): %d\n",
		state.PlayerAName, state.Board.Stores[engine.PlayerA],
		state.PlayerBName, state.Board.Stores[engine.PlayerB])
	fmt.Fprintf(&b, "Moves played: %d\n", state.TotalMoves)
	b.WriteString(engine.StatusLine(state))
	b.WriteString("\n")

	if !state.GameOver {
		fmt.Fprintf(&b, "Legal pits for %s: %s\n", state.Turn, formatPits(state.LegalMoves()))
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", state.Message)
	}
	return b.String()
}

func formatPits(pits []int) string {
	parts := make([]string, len(pits))
	for i, p := range pits {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ", ")
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder

	if m := result.Move; m != nil {
		fmt.Fprintf(&b, "%s played pit %d: %d stones sown, last in %s\n",
			m.Player, m.Pit, m.StonesSown, engine.SlotLabel(m.LastSlot))
		if m.Captured {
			fmt.Fprintf(&b, "Captured %d stones\n", m.CapturedCount)
		}
		if m.ExtraTurn && !m.GameOver {
			b.WriteString("Extra turn!\n")
		}
	}

	for _, ev := range result.Events {
		if ev.Type == service.EventReset {
			fmt.Fprintf(&b, "(%s)\n", ev.Message)
		}
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session %s: executed %d of %d moves\n", sessionID, result.MovesExecuted, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&b, "Request truncated to %d moves\n", result.Limit)
	}

	for i, m := range result.Moves {
		line := fmt.Sprintf("%2d. %s pit %d -> %s", i+1, m.Player, m.Pit, engine.SlotLabel(m.LastSlot))
		if m.Captured {
			line += fmt.Sprintf(", captured %d", m.CapturedCount)
		}
		if m.ExtraTurn && !m.GameOver {
			line += ", extra turn"
		}
		b.WriteString(line + "\n")
	}

	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on move %d [%s]: %s\n", result.StoppedOnMove, result.StopReasonCode, result.StoppedReason)
	}

	fmt.Fprintf(&b, "Stores: A %d -> %d, B %d -> %d\n\n",
		result.StartStores[engine.PlayerA], result.EndStores[engine.PlayerA],
		result.StartStores[engine.PlayerB], result.EndStores[engine.PlayerB])
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (page %d of %d, %d moves total):\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	for _, m := range history.Moves {
		line := fmt.Sprintf("#%d %s pit %d: %d sown, last in %s, stores %d-%d",
			m.MoveNumber, m.Player, m.Pit, m.StonesSown, engine.SlotLabel(m.LastSlot),
			m.Stores[engine.PlayerA], m.Stores[engine.PlayerB])
		if m.CapturedCount > 0 {
			line += fmt.Sprintf(", captured %d", m.CapturedCount)
		}
		if m.ExtraTurn {
			line += ", extra turn"
		}
		b.WriteString(line + "\n")
	}

	if history.HasNext {
		fmt.Fprintf(&b, "\nMore moves on page %d\n", history.Page+1)
	}
	return b.String()
}
