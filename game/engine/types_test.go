package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationConstants(t *testing.T) {
	tests := []struct {
		name     string
		actual   int
		expected int
	}{
		{"PitsPerRow", PitsPerRow, 6},
		{"StoreIndex", StoreIndex, 6},
		{"DefaultStartingStones", DefaultStartingStones, 6},
		{"MinStartingStones", MinStartingStones, 1},
		{"MaxStartingStones", MaxStartingStones, 24},
		{"MaxBulkMoves", MaxBulkMoves, 50},
		{"WebSocketBufferSize", WebSocketBufferSize, 256},
	}

	for _, test := range tests {
		if test.actual != test.expected {
			t.Errorf("%s: expected %d, got %d", test.name, test.expected, test.actual)
		}
	}
}

func TestPlayer(t *testing.T) {
	assert.Equal(t, PlayerB, PlayerA.Other())
	assert.Equal(t, PlayerA, PlayerB.Other())
	assert.Equal(t, "A", PlayerA.String())
	assert.Equal(t, "B", PlayerB.String())
	assert.False(t, Player(2).Valid())
	assert.Equal(t, "Player(7)", Player(7).String())
}

func TestPlayerTextMarshaling(t *testing.T) {
	data, err := json.Marshal(map[string]Player{"turn": PlayerB})
	require.NoError(t, err)
	assert.JSONEq(t, `{"turn":"B"}`, string(data))

	var decoded struct {
		Turn Player `json:"turn"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"turn":"b"}`), &decoded))
	assert.Equal(t, PlayerB, decoded.Turn)

	assert.Error(t, json.Unmarshal([]byte(`{"turn":"C"}`), &decoded))

	_, err = json.Marshal(Player(3))
	assert.Error(t, err)
}

func TestBoardCounts(t *testing.T) {
	b := Board{
		Pits:   [2][PitsPerRow]int{{1, 2, 3, 0, 0, 0}, {0, 0, 0, 0, 0, 0}},
		Stores: [2]int{4, 5},
	}

	assert.Equal(t, 15, b.Total())
	assert.Equal(t, 6, b.RowSum(PlayerA))
	assert.False(t, b.RowEmpty(PlayerA))
	assert.True(t, b.RowEmpty(PlayerB))
}

func TestSlotIsStoreOf(t *testing.T) {
	store := Slot{Row: PlayerA, Column: StoreIndex, Kind: StoreSlot}
	pit := Slot{Row: PlayerA, Column: 2, Kind: PitSlot}

	assert.True(t, store.IsStoreOf(PlayerA))
	assert.False(t, store.IsStoreOf(PlayerB))
	assert.False(t, pit.IsStoreOf(PlayerA))
}

func TestGameStateClone(t *testing.T) {
	winner := PlayerB
	state := InitGameStateFromConfig(nil)
	state.Winner = &winner
	state.MoveHistory = append(state.MoveHistory, MoveHistoryEntry{MoveNumber: 1, Pit: 3})

	clone := state.Clone()
	clone.Board.Pits[PlayerA][0] = 99
	*clone.Winner = PlayerA
	clone.MoveHistory[0].Pit = 5

	assert.Equal(t, 6, state.Board.Pits[PlayerA][0])
	assert.Equal(t, PlayerB, *state.Winner)
	assert.Equal(t, 3, state.MoveHistory[0].Pit)
}

func TestGameStateCloneKeepsEmptyHistory(t *testing.T) {
	state := &GameState{StartingStones: 6}
	clone := state.Clone()

	require.NotNil(t, clone.MoveHistory)
	data, err := json.Marshal(clone)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"move_history":[]`)
}

func TestMoveResultJSON(t *testing.T) {
	winner := PlayerA
	result := MoveResult{
		Player:   PlayerA,
		Pit:      1,
		LastSlot: Slot{Row: PlayerA, Column: StoreIndex, Kind: StoreSlot},
		NextTurn: PlayerA,
		Winner:   &winner,
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "A", fields["player"])
	assert.Equal(t, "A", fields["winner"])
	assert.Equal(t, map[string]any{"row": "A", "column": float64(6), "kind": "store"}, fields["last_slot"])
}
