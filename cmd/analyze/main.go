// Command analyze prints opening heuristics for each ruleset in a configs
// directory: what every first move does, the longest chain of extra turns
// the first player can open with, and how a greedy self-play game ends.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/kalaha-game/game/config"
	"github.com/wricardo/kalaha-game/game/engine"
	"github.com/wricardo/kalaha-game/game/strategy"
)

const (
	// maxChainDepth bounds the extra-turn search
	maxChainDepth = 24
	// maxGreedyMoves bounds self-play
	maxGreedyMoves = 1000
)

// OpeningMove summarizes one possible first move
type OpeningMove struct {
	Pit       int
	Stones    int
	LastSlot  string
	ExtraTurn bool
	Captured  int
	StoreGain int
}

// Analysis is the report for one ruleset
type Analysis struct {
	ConfigID       string
	Name           string
	StartingStones int
	Openings       []OpeningMove
	BestChain      []int
	GreedyMoves    int
	GreedyResult   string
	GreedyStores   [2]int
}

// analyzeConfig builds the report for one ruleset
func analyzeConfig(id string, cfg *engine.GameConfig) (*Analysis, error) {
	game, err := engine.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	start := game.Snapshot()

	a := &Analysis{
		ConfigID:       id,
		Name:           cfg.Name,
		StartingStones: start.StartingStones,
	}

	for pit := 1; pit <= engine.PitsPerRow; pit++ {
		result, err := strategy.Try(cfg, start, pit)
		if err != nil {
			return nil, err
		}
		a.Openings = append(a.Openings, OpeningMove{
			Pit:       pit,
			Stones:    result.StonesSown,
			LastSlot:  engine.SlotLabel(result.LastSlot),
			ExtraTurn: result.ExtraTurn,
			Captured:  result.CapturedCount,
			StoreGain: result.Board.Stores[engine.PlayerA] - start.Board.Stores[engine.PlayerA],
		})
	}

	if a.BestChain, err = strategy.LongestChain(cfg, start, maxChainDepth); err != nil {
		return nil, err
	}

	if err := greedyGame(cfg, start, a); err != nil {
		return nil, err
	}
	return a, nil
}

func greedyGame(cfg *engine.GameConfig, start engine.GameState, a *Analysis) error {
	final, moves, err := strategy.SelfPlay(cfg, start, strategy.Greedy{}, strategy.Greedy{}, maxGreedyMoves)
	if err != nil {
		return err
	}

	a.GreedyMoves = moves
	a.GreedyResult = engine.StatusLine(final)
	a.GreedyStores = final.Board.Stores
	return nil
}

func printAnalysis(out io.Writer, a *Analysis) {
	fmt.Fprintf(out, "\n=== Analyzing %s ===\n", a.ConfigID)
	fmt.Fprintf(out, "Name: %s\n", a.Name)
	fmt.Fprintf(out, "Stones per pit: %d\n", a.StartingStones)

	fmt.Fprintln(out, "Openings for A:")
	for _, o := range a.Openings {
		line := fmt.Sprintf("  pit %d: %2d stones, last in %s, store +%d", o.Pit, o.Stones, o.LastSlot, o.StoreGain)
		if o.ExtraTurn {
			line += ", extra turn"
		}
		if o.Captured > 0 {
			line += fmt.Sprintf(", captures %d", o.Captured)
		}
		fmt.Fprintln(out, line)
	}

	pits := make([]string, len(a.BestChain))
	for i, p := range a.BestChain {
		pits[i] = fmt.Sprint(p)
	}
	fmt.Fprintf(out, "Longest opening chain: %d moves [%s]\n", len(a.BestChain), strings.Join(pits, " "))
	fmt.Fprintf(out, "Greedy self-play: %s after %d moves\n", a.GreedyResult, a.GreedyMoves)
}

func run(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("dir")
	if cmd.Args().Len() > 0 {
		dir = cmd.Args().First()
	}

	manager, err := config.NewManager(dir)
	if err != nil {
		return err
	}
	infos, err := manager.ListConfigs()
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}

	for _, info := range infos {
		cfg, err := manager.LoadConfig(info.ConfigID)
		if err != nil {
			fmt.Fprintf(out, "\n=== %s ===\nError loading: %v\n", info.ConfigID, err)
			continue
		}
		analysis, err := analyzeConfig(info.ConfigID, cfg)
		if err != nil {
			fmt.Fprintf(out, "\n=== %s ===\nError analyzing: %v\n", info.ConfigID, err)
			continue
		}
		printAnalysis(out, analysis)
	}
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Print opening heuristics for Kalaha rulesets",
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
