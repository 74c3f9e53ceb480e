package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap/zaptest"

	"github.com/wricardo/kalaha-game/game/service"
	"github.com/wricardo/kalaha-game/settings"
	"github.com/wricardo/kalaha-game/transport/mcp"
)

func TestConstants(t *testing.T) {
	assert.Equal(t, "1.0.0", Version)
	assert.Equal(t, "Kalaha Game Server", AppName)
}

func TestNewApp(t *testing.T) {
	app := newApp()

	assert.Equal(t, Version, app.Version)
	require.NotNil(t, app.Action, "serve should be the default action")

	names := map[string]*cli.Command{}
	for _, c := range app.Commands {
		names[c.Name] = c
	}
	for _, want := range []string{"serve", "stdio-mcp", "play"} {
		assert.Contains(t, names, want)
	}
	assert.Contains(t, names["stdio-mcp"].Aliases, "mcp")
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadSettings_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("KALAHA_PORT", "7000")
	t.Setenv("KALAHA_STORE", "file")

	var got *settings.Settings
	app := newApp()
	app.Action = func(ctx context.Context, cmd *cli.Command) error {
		var err error
		got, err = loadSettings(cmd)
		return err
	}

	err := app.Run(context.Background(), []string{"kalaha",
		"--port", "9090",
		"--store", "MEMORY",
		"--config-dir", "configs",
		"--env-file", missingEnvFile(t),
	})
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, 9090, got.Port)
	assert.Equal(t, settings.StoreMemory, got.Store)
	assert.Equal(t, "configs", got.ConfigDir)
}

func TestLoadSettings_EnvironmentWithoutFlags(t *testing.T) {
	t.Setenv("KALAHA_PORT", "7000")

	var got *settings.Settings
	app := newApp()
	app.Action = func(ctx context.Context, cmd *cli.Command) error {
		var err error
		got, err = loadSettings(cmd)
		return err
	}

	require.NoError(t, app.Run(context.Background(), []string{"kalaha", "--env-file", missingEnvFile(t)}))
	assert.Equal(t, 7000, got.Port)
}

func TestLoadSettings_InvalidFlag(t *testing.T) {
	app := newApp()
	app.Action = func(ctx context.Context, cmd *cli.Command) error {
		_, err := loadSettings(cmd)
		return err
	}

	err := app.Run(context.Background(), []string{"kalaha", "--port", "70000", "--env-file", missingEnvFile(t)})
	assert.Error(t, err)
}

func testSettings(t *testing.T, store string) *settings.Settings {
	dir := t.TempDir()
	return &settings.Settings{
		Host:            "localhost",
		Port:            8080,
		ConfigDir:       "configs",
		Store:           store,
		SessionsDir:     filepath.Join(dir, "sessions"),
		SQLitePath:      filepath.Join(dir, "sessions.db"),
		SessionTTL:      time.Hour,
		CleanupInterval: time.Hour,
		SyncInterval:    10 * time.Millisecond,
	}
}

func TestBuildServices_Stores(t *testing.T) {
	tests := []struct {
		store      string
		persistent bool
	}{
		{settings.StoreMemory, false},
		{settings.StoreFile, true},
		{settings.StoreSQLite, true},
	}

	for _, tt := range tests {
		t.Run(tt.store, func(t *testing.T) {
			logger := zaptest.NewLogger(t)
			st := testSettings(t, tt.store)
			ctx := context.Background()

			svc, err := buildServices(st, logger)
			require.NoError(t, err)
			assert.Equal(t, tt.persistent, svc.persistence != nil)

			info, err := svc.game.CreateSession(ctx, "classic", service.PlayerNames{PlayerA: "Ann"})
			require.NoError(t, err)
			_, err = svc.game.Move(ctx, info.ID, 1, false)
			require.NoError(t, err)
			require.NoError(t, svc.close())

			reopened, err := buildServices(st, logger)
			require.NoError(t, err)
			defer reopened.close()

			if !tt.persistent {
				assert.Equal(t, 0, reopened.sessions.Count())
				return
			}

			assert.Equal(t, 1, reopened.sessions.Count())
			state, err := reopened.game.GetGameState(ctx, info.ID)
			require.NoError(t, err)
			assert.Equal(t, "Ann", state.PlayerAName)
			assert.Equal(t, 1, state.TotalMoves)
		})
	}
}

func TestBuildServices_Errors(t *testing.T) {
	logger := zaptest.NewLogger(t)

	st := testSettings(t, settings.StoreMemory)
	st.ConfigDir = "/non/existent/path"
	_, err := buildServices(st, logger)
	assert.Error(t, err)

	st = testSettings(t, "redis")
	_, err = buildServices(st, logger)
	assert.ErrorContains(t, err, "unknown session store")
}

func TestRunMaintenance_PrunesDeletedSessions(t *testing.T) {
	logger := zaptest.NewLogger(t)
	st := testSettings(t, settings.StoreFile)

	svc, err := buildServices(st, logger)
	require.NoError(t, err)

	info, err := svc.game.CreateSession(context.Background(), "", service.PlayerNames{})
	require.NoError(t, err)
	require.Equal(t, 1, svc.sessions.Count())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runMaintenance(ctx, svc, st, logger)
		close(done)
	}()

	require.NoError(t, svc.persistence.Delete(info.ID))
	assert.Eventually(t, func() bool { return svc.sessions.Count() == 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestMCPHandler(t *testing.T) {
	handler := mcpHandler(mcp.NewClient("http://localhost:0"))

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`)
	handler(rec, httptest.NewRequest(http.MethodPost, "/mcp", body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"bulk_move"`)
}

func TestExternalAPIAvailable(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer healthy.Close()

	assert.True(t, externalAPIAvailable(context.Background(), healthy.URL))
	assert.False(t, externalAPIAvailable(context.Background(), "http://127.0.0.1:1"))
}

func TestStartInternalAPI(t *testing.T) {
	logger := zaptest.NewLogger(t)
	svc, err := buildServices(testSettings(t, settings.StoreMemory), logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	baseURL, err := startInternalAPI(ctx, svc, logger)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(baseURL, "http://127.0.0.1:"))
	assert.Eventually(t, func() bool { return externalAPIAvailable(ctx, baseURL) }, 2*time.Second, 20*time.Millisecond)
}

func TestPlayLoop(t *testing.T) {
	logger := zaptest.NewLogger(t)
	svc, err := buildServices(testSettings(t, settings.StoreMemory), logger)
	require.NoError(t, err)

	ctx := context.Background()
	info, err := svc.game.CreateSession(ctx, "classic", service.PlayerNames{PlayerA: "Ann", PlayerB: "Ben"})
	require.NoError(t, err)

	input := strings.Join([]string{"1", "1", "9", "foo", "", "history", "board", "reset", "quit", "2"}, "\n")
	var out bytes.Buffer
	require.NoError(t, playLoop(ctx, svc.game, info.ID, strings.NewReader(input), &out))

	text := out.String()
	assert.Contains(t, text, "Welcome to Kalaha!")
	assert.Contains(t, text, "Ann plays again!")
	assert.Contains(t, text, "Move rejected")
	assert.Contains(t, text, "empty")
	assert.Contains(t, text, `Unknown command "foo"`)
	assert.Contains(t, text, "#1 A pit 1 -> store A")
	assert.Contains(t, text, "Bye.")

	// Input after quit is never read
	state, err := svc.game.GetGameState(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, state.TotalMoves)
}

func TestPlayLoop_EndOfInput(t *testing.T) {
	logger := zaptest.NewLogger(t)
	svc, err := buildServices(testSettings(t, settings.StoreMemory), logger)
	require.NoError(t, err)

	ctx := context.Background()
	info, err := svc.game.CreateSession(ctx, "", service.PlayerNames{})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, playLoop(ctx, svc.game, info.ID, strings.NewReader("3\n"), &out))

	state, err := svc.game.GetGameState(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.TotalMoves)
}

func TestPrintHistory_AllPages(t *testing.T) {
	logger := zaptest.NewLogger(t)
	svc, err := buildServices(testSettings(t, settings.StoreMemory), logger)
	require.NoError(t, err)

	ctx := context.Background()
	info, err := svc.game.CreateSession(ctx, "classic", service.PlayerNames{})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printHistory(ctx, &out, svc.game, info.ID, 2))
	assert.Equal(t, "No moves yet.\n", out.String())

	// A: 1 (extra turn), 2; B: 1; A: 3; B: 2
	for _, pit := range []int{1, 2, 1, 3, 2} {
		_, err := svc.game.Move(ctx, info.ID, pit, false)
		require.NoError(t, err)
	}

	out.Reset()
	require.NoError(t, printHistory(ctx, &out, svc.game, info.ID, 2))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	for i, line := range lines {
		assert.True(t, strings.HasPrefix(line, fmt.Sprintf("#%d ", i+1)), line)
	}
	assert.Equal(t, "#1 A pit 1 -> store A", lines[0])
}

func TestPlayCommand(t *testing.T) {
	app := newApp()
	var out bytes.Buffer
	app.Reader = strings.NewReader("help\nquit\n")
	app.Writer = &out

	err := app.Run(context.Background(), []string{"kalaha",
		"--config-dir", "configs",
		"--env-file", missingEnvFile(t),
		"play", "--ruleset", "quick", "--player-a", "Ann",
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Ann")
	assert.Contains(t, text, "[  4]")
	assert.Contains(t, text, "sow that pit")
}
