package engine

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	Snapshot() GameState
	Restore(state GameState) error
	Reset(startingStones int) *GameState
	IsGameOver() bool
	Turn() Player
	Winner() (Player, bool)

	// Moves
	ApplyMove(pit int) (*MoveResult, error)
	CanMove(pit int) bool
	LegalMoves() []int
	BulkMove(pits []int) ([]*MoveResult, error)

	// Players
	SetPlayerNames(nameA, nameB string)

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

// GameEngine implements the Engine interface. It is not safe for concurrent
// use; callers serialize access.
type GameEngine struct {
	state  *GameState
	config *GameConfig
	now    func() time.Time
}

// Option customizes a GameEngine
type Option func(*GameEngine)

// WithClock sets the clock used for move history timestamps
func WithClock(now func() time.Time) Option {
	return func(e *GameEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *GameConfig, opts ...Option) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	engine := &GameEngine{
		config: config.withDefaults(),
		state:  InitGameStateFromConfig(config),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(engine)
	}

	return engine, nil
}

// NewEngineWithDefaults creates a new game engine with the classic ruleset
func NewEngineWithDefaults(opts ...Option) *GameEngine {
	engine, _ := NewEngine(DefaultGameConfig(), opts...)
	return engine
}

// NewEngineFromState rebuilds an engine from a snapshot
func NewEngineFromState(config *GameConfig, state GameState, opts ...Option) (*GameEngine, error) {
	if config == nil {
		config = DefaultGameConfig()
	}
	engine, err := NewEngine(config, opts...)
	if err != nil {
		return nil, err
	}
	if err := engine.Restore(state); err != nil {
		return nil, err
	}
	return engine, nil
}

// GetState returns the live game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// Snapshot returns a deep copy of the current state
func (e *GameEngine) Snapshot() GameState {
	return e.state.Clone()
}

// Restore replaces the state with a validated copy of state
func (e *GameEngine) Restore(state GameState) error {
	if err := ValidateState(&state); err != nil {
		return err
	}
	restored := state.Clone()
	e.state = &restored
	return nil
}

// ValidateState checks the structural rules every reachable state obeys
func ValidateState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("%w: state cannot be nil", ErrInvalidState)
	}
	if !state.Turn.Valid() {
		return fmt.Errorf("%w: turn %d", ErrInvalidState, int(state.Turn))
	}
	if state.StartingStones < MinStartingStones || state.StartingStones > MaxStartingStones {
		return fmt.Errorf("%w: starting_stones %d out of range", ErrInvalidState, state.StartingStones)
	}
	for _, p := range []Player{PlayerA, PlayerB} {
		for col, n := range state.Board.Pits[p] {
			if n < 0 {
				return fmt.Errorf("%w: pit %s%d is negative", ErrInvalidState, p, col+1)
			}
		}
		if state.Board.Stores[p] < 0 {
			return fmt.Errorf("%w: store %s is negative", ErrInvalidState, p)
		}
	}
	if state.Winner != nil && !state.Winner.Valid() {
		return fmt.Errorf("%w: winner %d", ErrInvalidState, int(*state.Winner))
	}
	return validateOutcome(state)
}

// validateOutcome checks the game-over flags against the board. A running
// game with an empty row could never end, since the sweep only follows a move.
func validateOutcome(state *GameState) error {
	board := state.Board
	if !state.GameOver {
		if state.Winner != nil || state.Draw {
			return fmt.Errorf("%w: result set on a running game", ErrInvalidState)
		}
		for _, p := range []Player{PlayerA, PlayerB} {
			if board.RowEmpty(p) {
				return fmt.Errorf("%w: row %s is empty but the game is not over", ErrInvalidState, p)
			}
		}
		return nil
	}

	if !board.RowEmpty(PlayerA) || !board.RowEmpty(PlayerB) {
		return fmt.Errorf("%w: stones left in the pits of a finished game", ErrInvalidState)
	}
	a, b := board.Stores[PlayerA], board.Stores[PlayerB]
	switch {
	case state.Draw && state.Winner != nil:
		return fmt.Errorf("%w: both draw and winner set", ErrInvalidState)
	case state.Draw:
		if a != b {
			return fmt.Errorf("%w: draw with stores %d-%d", ErrInvalidState, a, b)
		}
	case state.Winner != nil:
		w := *state.Winner
		if board.Stores[w] <= board.Stores[w.Other()] {
			return fmt.Errorf("%w: winner %s does not hold the larger store", ErrInvalidState, w)
		}
	default:
		return fmt.Errorf("%w: finished game without a result", ErrInvalidState)
	}
	return nil
}

// Reset starts a fresh game. A non-positive count reuses the previous one.
// Player names survive, history does not.
func (e *GameEngine) Reset(startingStones int) *GameState {
	if startingStones <= 0 {
		startingStones = e.state.StartingStones
	}
	if startingStones > MaxStartingStones {
		startingStones = MaxStartingStones
	}

	nameA, nameB := e.state.PlayerAName, e.state.PlayerBName
	cfg := *e.config
	cfg.StartingStones = startingStones
	cfg.PlayerAName = nameA
	cfg.PlayerBName = nameB

	e.state = InitGameStateFromConfig(&cfg)
	return e.state
}

// IsGameOver returns whether the game is over
func (e *GameEngine) IsGameOver() bool {
	return e.state.GameOver
}

// Turn returns the player to move
func (e *GameEngine) Turn() Player {
	return e.state.Turn
}

// Winner returns the winning player. ok is false while the game runs or on a draw.
func (e *GameEngine) Winner() (Player, bool) {
	if e.state.Winner == nil {
		return PlayerA, false
	}
	return *e.state.Winner, true
}

// ApplyMove plays the 1-based pit for the player to move
func (e *GameEngine) ApplyMove(pit int) (*MoveResult, error) {
	result, err := e.state.ApplyMove(pit, e.config)
	if err != nil {
		return nil, err
	}
	e.state.AddMoveToHistory(result, e.now())
	return result, nil
}

// CanMove reports whether the player to move may play pit
func (e *GameEngine) CanMove(pit int) bool {
	return e.state.validateMove(pit) == nil
}

// LegalMoves returns every playable pit for the player to move
func (e *GameEngine) LegalMoves() []int {
	return e.state.LegalMoves()
}

// SetPlayerNames updates display names. Blank names keep the current value.
func (e *GameEngine) SetPlayerNames(nameA, nameB string) {
	if name := normalizeName(nameA); name != "" {
		e.state.PlayerAName = name
	}
	if name := normalizeName(nameB); name != "" {
		e.state.PlayerBName = name
	}
}

func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= MaxPlayerNameLength {
		return name
	}
	// Cut on a rune boundary so the name stays valid UTF-8
	end := 0
	for i := 0; i < MaxPlayerNameLength; i++ {
		_, size := utf8.DecodeRuneInString(name[end:])
		end += size
	}
	return strings.TrimSpace(name[:end])
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new game configuration and resets the game
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}

	e.config = config.withDefaults()
	e.state = InitGameStateFromConfig(config)
	return nil
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.state.MoveHistory
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.state.MoveHistory) == 0 {
		return nil
	}
	return &e.state.MoveHistory[len(e.state.MoveHistory)-1]
}

// BulkMove plays pits in order and stops at the first rejected move. The
// results of the moves played so far are returned alongside that error.
func (e *GameEngine) BulkMove(pits []int) ([]*MoveResult, error) {
	results := make([]*MoveResult, 0, len(pits))

	for _, pit := range pits {
		result, err := e.ApplyMove(pit)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	return results, nil
}
