// Package engine provides the rules of Kalaha (six-pit Mancala).
//
// The engine package implements the game mechanics including:
//   - Sowing along the acting player's lap, skipping the opponent's store
//   - Captures into the mover's store and extra turns
//   - End of game detection with the final sweep of each row
//   - Snapshot and restore of the complete game state
//   - Ruleset validation and message templates
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState holds the board, the player to move
// and the move history, while GameConfig names a ruleset with its starting
// stone count and message templates.
//
// Usage:
//
//	gameEngine := engine.NewEngineWithDefaults()
//
//	result, err := gameEngine.ApplyMove(3)
//	if errors.Is(err, engine.ErrEmptyPit) {
//		// pick another pit
//	}
//	fmt.Print(engine.RenderBoard(gameEngine.GetState()))
//
// Game Rules:
//
// Each player owns a row of six pits and a store. A move empties one of the
// mover's pits and drops one stone per slot along their own row, their store
// and the opponent's row, then back around. A last stone in the mover's own
// store earns another turn. A last stone in an empty pit of the mover's row
// captures the facing pit. The game ends when either row is empty; remaining
// stones go to the owner of the row and the larger store wins.
//
// The engine does no I/O and is not safe for concurrent use.
package engine
