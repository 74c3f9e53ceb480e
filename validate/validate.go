// Command validate checks the ruleset files in a configs directory. For each
// .json, .yaml or .yml file it verifies:
//   - the file parses and passes ruleset validation
//   - which message templates fall back to the defaults
//   - a full game can be played to the end with the ruleset, keeping every
//     stone on the board, and the game stops within the move limit
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/kalaha-game/game/config"
	"github.com/wricardo/kalaha-game/game/engine"
)

var errInvalid = errors.New("some configurations have errors")

// maxGameMoves bounds the playthrough. Every move puts at least one stone
// closer to a store, so real games end far below this.
const maxGameMoves = 1000

// ValidationResult captures the outcome of validating a single file.
// Errors holds problems; Info holds the summary shown for valid files.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

// validateConfig parses one ruleset file and plays a game with it
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	cfg, err := config.ParseFile(filePath)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	defaulted := []string{}
	for field, value := range map[string]string{
		"welcome":    cfg.Messages.Welcome,
		"turn":       cfg.Messages.Turn,
		"extra_turn": cfg.Messages.ExtraTurn,
		"capture":    cfg.Messages.Capture,
		"victory":    cfg.Messages.Victory,
		"draw":       cfg.Messages.Draw,
	} {
		if value == "" {
			defaulted = append(defaulted, field)
		}
	}
	sort.Strings(defaulted)

	playthrough := validatePlaythrough(cfg)
	result.Errors = append(result.Errors, playthrough.Errors...)
	if !playthrough.Valid {
		result.Valid = false
	}

	if result.Valid {
		stones := cfg.StartingStones
		if stones == 0 {
			stones = engine.DefaultStartingStones
		}
		result.info("✓ Name: %s", cfg.Name)
		result.info("✓ Stones per pit: %d (%d on the board)", stones, stones*engine.PitsPerRow*2)
		if len(defaulted) > 0 {
			result.info("✓ Default messages: %s", strings.Join(defaulted, ", "))
		} else {
			result.info("✓ All messages customized")
		}
		result.Info = append(result.Info, playthrough.Info...)
	}

	return result
}

// validatePlaythrough plays lowest-legal-pit against lowest-legal-pit until
// the game ends, checking stone conservation after every move.
func validatePlaythrough(cfg *engine.GameConfig) ValidationResult {
	result := ValidationResult{Valid: true}

	game, err := engine.NewEngine(cfg)
	if err != nil {
		result.fail("Cannot start a game: %v", err)
		return result
	}

	total := game.GetState().Board.Total()
	moves := 0
	for !game.IsGameOver() {
		if moves >= maxGameMoves {
			result.fail("Game did not finish within %d moves", maxGameMoves)
			return result
		}

		legal := game.LegalMoves()
		if len(legal) == 0 {
			result.fail("No legal moves for %s on move %d but the game is not over", game.Turn(), moves+1)
			return result
		}

		if _, err := game.ApplyMove(legal[0]); err != nil {
			result.fail("Move %d (pit %d) rejected: %v", moves+1, legal[0], err)
			return result
		}
		moves++

		if got := game.GetState().Board.Total(); got != total {
			result.fail("Stone count changed on move %d: %d -> %d", moves, total, got)
			return result
		}
	}

	state := game.GetState()
	if state.Board.RowSum(engine.PlayerA) != 0 || state.Board.RowSum(engine.PlayerB) != 0 {
		result.fail("Game ended with stones left in the pits")
		return result
	}

	result.info("✓ Playthrough: %d moves, %s", moves, engine.StatusLine(state))
	return result
}

// findRulesets lists ruleset files in dir in name order
func findRulesets(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// report prints every result and returns whether all were valid
func report(out io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(out, "✅ VALID")
			for _, line := range result.Info {
				fmt.Fprintln(out, "  "+line)
			}
			continue
		}

		allValid = false
		fmt.Fprintln(out, "❌ INVALID")
		for _, err := range result.Errors {
			fmt.Fprintln(out, "  ❌ "+err)
		}
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(out, "✅ All configurations are valid!")
	} else {
		fmt.Fprintln(out, "❌ Some configurations have errors")
	}
	return allValid
}

func run(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("dir")
	if cmd.Args().Len() > 0 {
		dir = cmd.Args().First()
	}

	files, err := findRulesets(dir)
	if err != nil {
		return fmt.Errorf("finding config files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no ruleset files in %s", dir)
	}

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, validateConfig(file))
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	if !report(out, results) {
		return errInvalid
	}
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check Kalaha ruleset files",
		ArgsUsage: "[configs-dir]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "configs", Usage: "Directory containing rulesets"},
		},
		Action: run,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
