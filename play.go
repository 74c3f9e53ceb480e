package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/kalaha-game/game/engine"
	"github.com/wricardo/kalaha-game/game/service"
	"github.com/wricardo/kalaha-game/settings"
)

const historyPageSize = 100

const playHelp = `Commands:
  1-6       sow that pit for the player to move
  reset     start over
  board     show the board again
  history   list the moves so far
  help      show this help
  quit      leave the game
`

// runPlay starts an in-memory session and plays it on stdin/stdout
func runPlay(ctx context.Context, cmd *cli.Command) error {
	st, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Terminal games are never persisted
	st.Store = settings.StoreMemory

	svc, err := buildServices(st, logger)
	if err != nil {
		return err
	}

	info, err := svc.game.CreateSession(ctx, cmd.String("ruleset"), service.PlayerNames{
		PlayerA: cmd.String("player-a"),
		PlayerB: cmd.String("player-b"),
	})
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if r := cmd.Root().Reader; r != nil {
		in = r
	}
	var out io.Writer = os.Stdout
	if w := cmd.Root().Writer; w != nil {
		out = w
	}

	return playLoop(ctx, svc.game, info.ID, in, out)
}

// playLoop reads commands line by line until quit or end of input
func playLoop(ctx context.Context, game service.GameService, sessionID string, in io.Reader, out io.Writer) error {
	state, err := game.GetGameState(ctx, sessionID)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, state.Message)
	printBoard(out, state)
	fmt.Fprint(out, playHelp)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		switch line {
		case "":
			continue
		case "q", "quit", "exit":
			fmt.Fprintln(out, "Bye.")
			return nil
		case "h", "help", "?":
			fmt.Fprint(out, playHelp)
		case "b", "board":
			if state, err = game.GetGameState(ctx, sessionID); err != nil {
				return err
			}
			printBoard(out, state)
		case "r", "reset":
			if state, err = game.Reset(ctx, sessionID, 0); err != nil {
				return err
			}
			fmt.Fprintln(out, state.Message)
			printBoard(out, state)
		case "history":
			if err := printHistory(ctx, out, game, sessionID, historyPageSize); err != nil {
				return err
			}
		default:
			pit, convErr := strconv.Atoi(line)
			if convErr != nil {
				fmt.Fprintf(out, "Unknown command %q, type help\n", line)
				continue
			}

			result, err := game.Move(ctx, sessionID, pit, false)
			if err != nil {
				fmt.Fprintf(out, "Move rejected: %v\n", err)
				continue
			}

			state = result.GameState
			fmt.Fprintln(out, result.Message)
			printBoard(out, state)
			if state.GameOver {
				fmt.Fprintln(out, "Type reset to play again or quit to leave.")
			}
		}
	}
}

// printHistory lists every move, oldest first, pageSize moves per request
func printHistory(ctx context.Context, out io.Writer, game service.GameService, sessionID string, pageSize int) error {
	opts := service.HistoryOptions{Order: "asc", Limit: pageSize, Page: 1}
	for {
		history, err := game.GetMoveHistory(ctx, sessionID, opts)
		if err != nil {
			return err
		}
		if history.TotalMoves == 0 {
			fmt.Fprintln(out, "No moves yet.")
			return nil
		}
		for _, m := range history.Moves {
			fmt.Fprintf(out, "#%d %s pit %d -> %s\n", m.MoveNumber, m.Player, m.Pit, engine.SlotLabel(m.LastSlot))
		}
		if !history.HasNext {
			return nil
		}
		opts.Page++
	}
}

func printBoard(out io.Writer, state *engine.GameState) {
	fmt.Fprintln(out)
	fmt.Fprint(out, engine.RenderBoard(state))
	fmt.Fprintln(out, engine.StatusLine(state))
}
