// Command bot drives a running game server through its REST API, playing
// both sides of a session with offline move pickers until the game ends. It
// is a soak tool: any rejected move fails the run. The moves show up live
// for anyone watching the session over WebSocket.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/kalaha-game/game/engine"
	"github.com/wricardo/kalaha-game/game/service"
	"github.com/wricardo/kalaha-game/game/strategy"
	"github.com/wricardo/kalaha-game/logging"
)

// Options controls one bot run
type Options struct {
	Ruleset   string
	SessionID string
	Reset     bool
	StrategyA strategy.Strategy
	StrategyB strategy.Strategy
	MaxMoves  int
	Delay     time.Duration
}

// Outcome is what a finished run reports
type Outcome struct {
	SessionID string
	Moves     int
	State     *engine.GameState
}

// play drives a session until the game ends or MaxMoves moves were made
func play(ctx context.Context, client *Client, opts Options, logger *zap.Logger) (*Outcome, error) {
	var info *service.SessionInfo
	var err error

	if opts.SessionID != "" {
		info, err = client.GetSession(ctx, opts.SessionID)
	} else {
		info, err = client.CreateSession(ctx, opts.Ruleset, service.PlayerNames{
			PlayerA: "bot-" + opts.StrategyA.Name(),
			PlayerB: "bot-" + opts.StrategyB.Name(),
		})
	}
	if err != nil {
		return nil, err
	}
	logger.Info("playing session", zap.String("session", info.ID), zap.String("config", info.ConfigName))

	state := info.GameState
	if opts.Reset || state.GameOver {
		if state, err = client.Reset(ctx, info.ID); err != nil {
			return nil, err
		}
	}

	out := &Outcome{SessionID: info.ID, State: state}
	for !state.GameOver {
		if out.Moves >= opts.MaxMoves {
			logger.Warn("move limit reached", zap.Int("moves", out.Moves))
			break
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		s := opts.StrategyA
		if state.Turn == engine.PlayerB {
			s = opts.StrategyB
		}
		pit, err := s.NextMove(info.GameConfig, *state)
		if err != nil {
			return out, fmt.Errorf("%s strategy for %s: %w", s.Name(), state.Turn, err)
		}

		result, err := client.Move(ctx, info.ID, pit)
		if err != nil {
			return out, err
		}
		out.Moves++
		state = result.GameState
		out.State = state

		if m := result.Move; m != nil {
			logger.Debug("move",
				zap.Stringer("player", m.Player),
				zap.Int("pit", m.Pit),
				zap.String("last", engine.SlotLabel(m.LastSlot)),
				zap.Int("captured", m.CapturedCount),
				zap.Bool("extra_turn", m.ExtraTurn))
		}

		if opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}

	logger.Info("game finished",
		zap.String("session", out.SessionID),
		zap.Int("moves", out.Moves),
		zap.String("result", engine.StatusLine(out.State)))
	return out, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger, err := logging.New(cmd.Bool("v"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := strategy.ByName(cmd.String("strategy-a"))
	if err != nil {
		return err
	}
	b, err := strategy.ByName(cmd.String("strategy-b"))
	if err != nil {
		return err
	}

	opts := Options{
		Ruleset:   cmd.String("ruleset"),
		SessionID: cmd.String("continue"),
		Reset:     cmd.Bool("reset"),
		StrategyA: a,
		StrategyB: b,
		MaxMoves:  int(cmd.Int("max-moves")),
		Delay:     cmd.Duration("delay"),
	}

	outcome, err := play(ctx, NewClient(cmd.String("url")), opts, logger)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "Session %s after %d moves\n", outcome.SessionID, outcome.Moves)
	fmt.Fprint(out, engine.RenderBoard(outcome.State))
	fmt.Fprintln(out, engine.StatusLine(outcome.State))
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "bot",
		Usage: "Play a full Kalaha game on a game server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL"},
			&cli.StringFlag{Name: "ruleset", Usage: "Ruleset for a new session"},
			&cli.StringFlag{Name: "continue", Usage: "Resume an existing session by ID"},
			&cli.BoolFlag{Name: "reset", Usage: "Reset the session before playing"},
			&cli.StringFlag{Name: "strategy-a", Value: "greedy", Usage: "Strategy for player A (greedy or lowest)"},
			&cli.StringFlag{Name: "strategy-b", Value: "greedy", Usage: "Strategy for player B (greedy or lowest)"},
			&cli.IntFlag{Name: "max-moves", Value: 500, Usage: "Stop after this many moves"},
			&cli.DurationFlag{Name: "delay", Usage: "Pause between moves"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
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
