package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Messages holds the templates used for GameState.Message
type Messages struct {
	Welcome   string `json:"welcome" yaml:"welcome"`       // %s = player to move
	Turn      string `json:"turn" yaml:"turn"`             // %s = player to move
	ExtraTurn string `json:"extra_turn" yaml:"extra_turn"` // %s = mover
	Capture   string `json:"capture" yaml:"capture"`       // %s = mover, %d = stones captured
	Victory   string `json:"victory" yaml:"victory"`       // %s = winner, %d = winner store, %d = loser store
	Draw      string `json:"draw" yaml:"draw"`             // %d = store each
}

// GameConfig describes one ruleset
type GameConfig struct {
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description" yaml:"description"`
	StartingStones int      `json:"starting_stones" yaml:"starting_stones"`
	PlayerAName    string   `json:"player_a_name,omitempty" yaml:"player_a_name,omitempty"`
	PlayerBName    string   `json:"player_b_name,omitempty" yaml:"player_b_name,omitempty"`
	Messages       Messages `json:"messages" yaml:"messages"`
}

var defaultMessages = Messages{
	Welcome:   "Welcome to Kalaha! %s starts.",
	Turn:      "%s to move",
	ExtraTurn: "Last stone in the store, %s plays again!",
	Capture:   "%s captured %d stones!",
	Victory:   "Game over! %s wins %d to %d.",
	Draw:      "Game over! Draw at %d stones each.",
}

// DefaultGameConfig returns the classic six-stone ruleset
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:           "classic",
		Description:    "Classic Kalaha with six stones per pit, captures and extra turns",
		StartingStones: DefaultStartingStones,
		PlayerAName:    DefaultPlayerAName,
		PlayerBName:    DefaultPlayerBName,
		Messages:       defaultMessages,
	}
}

// withDefaults returns a copy with every blank field filled in
func (c *GameConfig) withDefaults() *GameConfig {
	out := *c
	if out.StartingStones == 0 {
		out.StartingStones = DefaultStartingStones
	}
	if strings.TrimSpace(out.PlayerAName) == "" {
		out.PlayerAName = DefaultPlayerAName
	}
	if strings.TrimSpace(out.PlayerBName) == "" {
		out.PlayerBName = DefaultPlayerBName
	}
	m := &out.Messages
	if m.Welcome == "" {
		m.Welcome = defaultMessages.Welcome
	}
	if m.Turn == "" {
		m.Turn = defaultMessages.Turn
	}
	if m.ExtraTurn == "" {
		m.ExtraTurn = defaultMessages.ExtraTurn
	}
	if m.Capture == "" {
		m.Capture = defaultMessages.Capture
	}
	if m.Victory == "" {
		m.Victory = defaultMessages.Victory
	}
	if m.Draw == "" {
		m.Draw = defaultMessages.Draw
	}
	return &out
}

// ValidateGameConfig validates a ruleset for correctness
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is required")
	}
	if strings.TrimSpace(config.Name) == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if strings.TrimSpace(config.Description) == "" {
		return fmt.Errorf("config validation: description is required")
	}

	// Zero means "use the default"
	if config.StartingStones != 0 &&
		(config.StartingStones < MinStartingStones || config.StartingStones > MaxStartingStones) {
		return fmt.Errorf("config validation: starting_stones must be between %d and %d, got %d",
			MinStartingStones, MaxStartingStones, config.StartingStones)
	}

	if utf8.RuneCountInString(config.PlayerAName) > MaxPlayerNameLength {
		return fmt.Errorf("config validation: player_a_name must be at most %d characters", MaxPlayerNameLength)
	}
	if utf8.RuneCountInString(config.PlayerBName) > MaxPlayerNameLength {
		return fmt.Errorf("config validation: player_b_name must be at most %d characters", MaxPlayerNameLength)
	}

	templates := []struct {
		field string
		value string
		verbs []string
	}{
		{"welcome", config.Messages.Welcome, []string{"%s"}},
		{"turn", config.Messages.Turn, []string{"%s"}},
		{"extra_turn", config.Messages.ExtraTurn, []string{"%s"}},
		{"capture", config.Messages.Capture, []string{"%s", "%d"}},
		{"victory", config.Messages.Victory, []string{"%s", "%d", "%d"}},
		{"draw", config.Messages.Draw, []string{"%d"}},
	}
	for _, tmpl := range templates {
		if tmpl.value == "" {
			continue
		}
		if err := checkVerbs(tmpl.value, tmpl.verbs); err != nil {
			return fmt.Errorf("config validation: messages.%s %v", tmpl.field, err)
		}
	}

	return nil
}

// checkVerbs ensures the template uses exactly the expected verbs in order
func checkVerbs(tmpl string, want []string) error {
	var got []string
	for i := 0; i < len(tmpl)-1; i++ {
		if tmpl[i] != '%' {
			continue
		}
		next := tmpl[i+1]
		i++
		if next == '%' {
			continue
		}
		got = append(got, "%"+string(next))
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		return fmt.Errorf("must contain %s in that order, got %q", strings.Join(want, " "), tmpl)
	}
	return nil
}

// InitGameStateFromConfig creates a fresh game state for the ruleset
func InitGameStateFromConfig(config *GameConfig) *GameState {
	if config == nil {
		config = DefaultGameConfig()
	}
	config = config.withDefaults()

	state := newGameState(config.StartingStones)
	state.PlayerAName = config.PlayerAName
	state.PlayerBName = config.PlayerBName
	state.ConfigName = config.Name
	state.Message = fmt.Sprintf(config.Messages.Welcome, state.PlayerAName)
	return state
}

// newGameState seeds every pit, zeroes both stores and hands the turn to A
func newGameState(startingStones int) *GameState {
	state := &GameState{
		Turn:           PlayerA,
		StartingStones: startingStones,
		MoveHistory:    []MoveHistoryEntry{},
	}
	for row := range state.Board.Pits {
		for col := range state.Board.Pits[row] {
			state.Board.Pits[row][col] = startingStones
		}
	}
	return state
}
