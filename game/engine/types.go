package engine

import (
	"fmt"
	"strings"
)

// Player identifies one side of the board
type Player int

const (
	PlayerA Player = iota
	PlayerB
)

const (
	// Board geometry
	PitsPerRow = 6
	StoreIndex = PitsPerRow // column used for a store slot

	// Validation constants
	DefaultStartingStones = 6
	MinStartingStones     = 1
	MaxStartingStones     = 24
	MaxPlayerNameLength   = 32
	MaxBulkMoves          = 50
	WebSocketBufferSize   = 256

	DefaultPlayerAName = "Player1"
	DefaultPlayerBName = "Player2"
)

// Other returns the opponent of p
func (p Player) Other() Player {
	if p == PlayerA {
		return PlayerB
	}
	return PlayerA
}

// Valid reports whether p is one of the two players
func (p Player) Valid() bool {
	return p == PlayerA || p == PlayerB
}

func (p Player) String() string {
	switch p {
	case PlayerA:
		return "A"
	case PlayerB:
		return "B"
	default:
		return fmt.Sprintf("Player(%d)", int(p))
	}
}

// MarshalText encodes a player as "A" or "B"
func (p Player) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid player %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText accepts "A"/"B" (case-insensitive)
func (p *Player) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "A":
		*p = PlayerA
	case "B":
		*p = PlayerB
	default:
		return fmt.Errorf("invalid player %q", string(text))
	}
	return nil
}

// SlotKind distinguishes pits from stores
type SlotKind string

const (
	PitSlot   SlotKind = "pit"
	StoreSlot SlotKind = "store"
)

// Slot is one position of the sowing ring. Column is 0-based for pits and
// StoreIndex for a store.
type Slot struct {
	Row    Player   `json:"row"`
	Column int      `json:"column"`
	Kind   SlotKind `json:"kind"`
}

// IsStoreOf reports whether the slot is the store owned by p
func (s Slot) IsStoreOf(p Player) bool {
	return s.Kind == StoreSlot && s.Row == p
}

// Board holds pit counts per row and both stores
type Board struct {
	Pits   [2][PitsPerRow]int `json:"pits"`
	Stores [2]int             `json:"stores"`
}

// Total returns every stone on the board including stores
func (b Board) Total() int {
	total := b.Stores[PlayerA] + b.Stores[PlayerB]
	for row := range b.Pits {
		for _, n := range b.Pits[row] {
			total += n
		}
	}
	return total
}

// RowSum returns the stones left in a player's pits
func (b Board) RowSum(p Player) int {
	sum := 0
	for _, n := range b.Pits[p] {
		sum += n
	}
	return sum
}

// RowEmpty reports whether every pit of a player's row is empty
func (b Board) RowEmpty(p Player) bool {
	return b.RowSum(p) == 0
}

// GameState represents the complete game state
type GameState struct {
	Board          Board              `json:"board"`
	Turn           Player             `json:"turn"`
	PlayerAName    string             `json:"player_a_name"`
	PlayerBName    string             `json:"player_b_name"`
	StartingStones int                `json:"starting_stones"`
	GameOver       bool               `json:"game_over"`
	Winner         *Player            `json:"winner,omitempty"`
	Draw           bool               `json:"draw,omitempty"`
	Message        string             `json:"message"`
	ConfigName     string             `json:"config_name"`
	MoveHistory    []MoveHistoryEntry `json:"move_history"`
	TotalMoves     int                `json:"total_moves"`
}

// PlayerName returns the display label for p
func (gs *GameState) PlayerName(p Player) string {
	if p == PlayerB {
		return gs.PlayerBName
	}
	return gs.PlayerAName
}

// Clone returns a deep copy of the state
func (gs *GameState) Clone() GameState {
	out := *gs
	if gs.Winner != nil {
		w := *gs.Winner
		out.Winner = &w
	}
	out.MoveHistory = append([]MoveHistoryEntry(nil), gs.MoveHistory...)
	if out.MoveHistory == nil {
		out.MoveHistory = []MoveHistoryEntry{}
	}
	return out
}

// StepKind labels one entry in a move trace
type StepKind string

const (
	StepSow     StepKind = "sow"
	StepCapture StepKind = "capture"
	StepSweep   StepKind = "sweep"
)

// Step is an intermediate board after one stone placement, a capture or the
// end-of-game sweep.
type Step struct {
	Kind  StepKind `json:"kind"`
	Slot  Slot     `json:"slot"`
	Board Board    `json:"board"`
}

// MoveResult describes what a successful move did
type MoveResult struct {
	Player        Player  `json:"player"`
	Pit           int     `json:"pit"`
	StonesSown    int     `json:"stones_sown"`
	LastSlot      Slot    `json:"last_slot"`
	Captured      bool    `json:"captured"`
	CapturedCount int     `json:"captured_count,omitempty"`
	ExtraTurn     bool    `json:"extra_turn"`
	NextTurn      Player  `json:"next_turn"`
	GameOver      bool    `json:"game_over"`
	Winner        *Player `json:"winner,omitempty"`
	Draw          bool    `json:"draw,omitempty"`
	Board         Board   `json:"board"`
	Steps         []Step  `json:"steps"`
}

// MoveHistoryEntry represents a single move in the game history
type MoveHistoryEntry struct {
	MoveNumber    int    `json:"move_number"`
	Player        Player `json:"player"`
	Pit           int    `json:"pit"`
	StonesSown    int    `json:"stones_sown"`
	LastSlot      Slot   `json:"last_slot"`
	CapturedCount int    `json:"captured_count,omitempty"`
	ExtraTurn     bool   `json:"extra_turn,omitempty"`
	Stores        [2]int `json:"stores"`
	Timestamp     int64  `json:"timestamp"`
}
