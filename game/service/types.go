package service

import (
	"errors"
	"time"

	"github.com/wricardo/kalaha-game/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// Event types emitted by game operations
const (
	EventMove      = "move"
	EventCapture   = "capture"
	EventExtraTurn = "extra_turn"
	EventGameOver  = "game_over"
	EventReset     = "reset"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// PlayerNames carries optional display names. Blank fields are left unchanged.
type PlayerNames struct {
	PlayerA string `json:"player_a,omitempty" mapstructure:"player_a"`
	PlayerB string `json:"player_b,omitempty" mapstructure:"player_b"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success    bool               `json:"success"`
	GameState  *engine.GameState  `json:"game_state"`
	Message    string             `json:"message"`
	Events     []GameEvent        `json:"events,omitempty"`
	Move       *engine.MoveResult `json:"move,omitempty"`
	LegalMoves []int              `json:"legal_moves"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	// Summary
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // invalid_pit|empty_pit|game_over
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the rejected move
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	// Start/end snapshot
	StartStores [2]int `json:"start_stores"`
	EndStores   [2]int `json:"end_stores"`

	// Per-move summary without the sowing trace
	Moves []engine.MoveResult `json:"moves,omitempty"`

	// Final status
	GameOver   bool   `json:"game_over"`
	Message    string `json:"message,omitempty"`
	LegalMoves []int  `json:"legal_moves"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"` // "move", "capture", "extra_turn", "game_over", "reset"
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Player    *engine.Player `json:"player,omitempty"`
	Pit       int            `json:"pit,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename       string `json:"filename"`
	ConfigID       string `json:"config_id"` // The identifier to use for session creation
	Name           string `json:"name"`      // Display name
	Description    string `json:"description"`
	StartingStones int    `json:"starting_stones"`
	Format         string `json:"format"` // "json" or "yaml"
}
