// Command kalaha runs the Kalaha game server.
//
// Subcommands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket
//     updates and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server against an external API, or an
//     internal one when none answers
//  3. "play" runs a two-player game in the terminal
//
// Settings come from the environment (and a .env file); flags override them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/kalaha-game/api"
	"github.com/wricardo/kalaha-game/game/config"
	"github.com/wricardo/kalaha-game/game/service"
	"github.com/wricardo/kalaha-game/game/session"
	"github.com/wricardo/kalaha-game/logging"
	"github.com/wricardo/kalaha-game/settings"
	"github.com/wricardo/kalaha-game/transport/mcp"
	"github.com/wricardo/kalaha-game/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Kalaha Game Server"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the command tree. Flags on the root are visible to every
// subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "kalaha",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "HTTP server host (KALAHA_HOST)"},
			&cli.IntFlag{Name: "port", Usage: "HTTP server port (KALAHA_PORT)"},
			&cli.StringFlag{Name: "config-dir", Usage: "Directory containing rulesets (CONFIG_DIR)"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging (KALAHA_DEBUG)"},
			&cli.StringFlag{Name: "store", Usage: "Session store: file, sqlite or memory (KALAHA_STORE)"},
			&cli.StringFlag{Name: "sessions-dir", Usage: "Directory for the file store (KALAHA_SESSIONS_DIR)"},
			&cli.StringFlag{Name: "sqlite-path", Usage: "Database file for the sqlite store (KALAHA_SQLITE_PATH)"},
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "Environment file to load if present"},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run the HTTP server with REST API, WebSocket and MCP endpoint",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "ngrok", Usage: "Expose the server through an ngrok tunnel (NGROK_ENABLED)"},
					&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (NGROK_AUTHTOKEN)"},
					&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (NGROK_DOMAIN)"},
				},
				Action: runServe,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run an MCP stdio server, starting an internal API if none is reachable",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api", Usage: "External API to try first (KALAHA_EXTERNAL_API)"},
				},
				Action: runStdioMCP,
			},
			{
				Name:  "play",
				Usage: "Play a game in the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "ruleset", Usage: "Ruleset to play (default: first available)"},
					&cli.StringFlag{Name: "player-a", Usage: "Name of player A"},
					&cli.StringFlag{Name: "player-b", Usage: "Name of player B"},
				},
				Action: runPlay,
			},
		},
	}
}

// loadSettings reads the environment and applies any flags that were set
func loadSettings(cmd *cli.Command) (*settings.Settings, error) {
	st, err := settings.Load(cmd.String("env-file"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		st.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		st.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("config-dir") {
		st.ConfigDir = cmd.String("config-dir")
	}
	if cmd.IsSet("debug") {
		st.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("store") {
		st.Store = cmd.String("store")
	}
	if cmd.IsSet("sessions-dir") {
		st.SessionsDir = cmd.String("sessions-dir")
	}
	if cmd.IsSet("sqlite-path") {
		st.SQLitePath = cmd.String("sqlite-path")
	}
	if cmd.IsSet("ngrok") {
		st.NgrokEnabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		st.NgrokToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		st.NgrokDomain = cmd.String("ngrok-domain")
	}
	if cmd.IsSet("api") {
		st.ExternalAPI = cmd.String("api")
	}

	if err := st.Validate(); err != nil {
		return nil, err
	}
	return st, nil
}

func setup(cmd *cli.Command) (*settings.Settings, *zap.Logger, error) {
	st, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(st.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return st, logger, nil
}

// services bundles what the subcommands share
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence session.SessionPersistence
	close       func() error
}

// buildServices wires the config manager, the session store selected by
// st.Store and the game service. Persisted sessions are loaded eagerly.
func buildServices(st *settings.Settings, logger *zap.Logger) (*services, error) {
	configManager, err := config.NewManager(st.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	svc := &services{close: func() error { return nil }}

	switch st.Store {
	case settings.StoreFile:
		fp, err := session.NewFilePersistence(st.SessionsDir, configManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		svc.persistence = fp
	case settings.StoreSQLite:
		sp, err := session.NewSQLitePersistence(st.SQLitePath, configManager)
		if err != nil {
			return nil, fmt.Errorf("failed to open session database: %w", err)
		}
		svc.persistence = sp
		svc.close = sp.Close
	case settings.StoreMemory:
	default:
		return nil, fmt.Errorf("unknown session store %q", st.Store)
	}

	if svc.persistence != nil {
		svc.sessions = session.NewManagerWithPersistence(svc.persistence, logger)
		if err := svc.sessions.LoadPersistedSessions(); err != nil {
			logger.Warn("failed to load persisted sessions", zap.Error(err))
		}
	} else {
		svc.sessions = session.NewManager(logger)
	}

	svc.game = service.NewGameService(svc.sessions, configManager, service.WithLogger(logger))
	logger.Info("services ready",
		zap.String("store", st.Store),
		zap.String("config_dir", st.ConfigDir),
		zap.Int("sessions", svc.sessions.Count()))

	return svc, nil
}

// runMaintenance prunes idle sessions and, with a persistent store, drops
// sessions whose stored copy disappeared. It returns when ctx is done.
func runMaintenance(ctx context.Context, svc *services, st *settings.Settings, logger *zap.Logger) {
	cleanup := time.NewTicker(st.CleanupInterval)
	defer cleanup.Stop()

	var syncC <-chan time.Time
	if svc.persistence != nil {
		syncTicker := time.NewTicker(st.SyncInterval)
		defer syncTicker.Stop()
		syncC = syncTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			if removed := svc.sessions.CleanupExpiredSessions(st.SessionTTL); removed > 0 {
				logger.Info("cleaned up expired sessions", zap.Int("removed", removed))
			}
		case <-syncC:
			if pruned := svc.sessions.SyncWithPersistence(); pruned > 0 {
				logger.Info("store sync pruned sessions", zap.Int("pruned", pruned))
			}
		}
	}
}

// mcpHandler serves single JSON-RPC messages over HTTP POST
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		if response == nil {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the API at the root and the MCP endpoint at /mcp
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	router := http.NewServeMux()
	router.Handle("/", apiServer)
	router.HandleFunc("/mcp", mcpHandler(mcpClient))
	return router
}

// runServe starts the HTTP server and, if enabled, an ngrok tunnel. It
// blocks until SIGINT or SIGTERM.
func runServe(ctx context.Context, cmd *cli.Command) error {
	st, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	svc, err := buildServices(st, logger)
	if err != nil {
		return err
	}
	defer svc.close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runMaintenance(ctx, svc, st, logger)

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	apiServer := api.NewServer(svc.game, hub, logger)
	addr := st.Addr()
	router := newRouter(apiServer, mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if st.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, st, router, logger)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		stop()
		wg.Wait()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	wg.Wait()
	<-hub.Done()

	if err := svc.sessions.SaveAllSessions(); err != nil {
		logger.Error("failed to save sessions", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, st *settings.Settings, handler http.Handler, logger *zap.Logger) {
	if st.NgrokToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if st.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(st.NgrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	logger.Info("starting ngrok tunnel", zap.String("domain", st.NgrokDomain))
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(st.NgrokToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	url := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", url),
		zap.String("api", url+"/api"),
		zap.String("websocket", url+"/ws?session=<session_id>"),
		zap.String("mcp", url+"/mcp"))

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// externalAPIAvailable reports whether an API server answers at baseURL
func externalAPIAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalAPI serves the API on a random loopback port and returns its
// base URL. The server stops when ctx is done.
func startInternalAPI(ctx context.Context, svc *services, logger *zap.Logger) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to get available port: %w", err)
	}

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	httpServer := &http.Server{Handler: api.NewServer(svc.game, hub, logger)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("internal HTTP server error", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	return "http://" + listener.Addr().String(), nil
}

// runStdioMCP serves MCP over stdin/stdout. It reuses an external API when
// one answers and otherwise starts an internal one on a loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	st, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseURL := st.ExternalAPI
	if externalAPIAvailable(ctx, baseURL) {
		logger.Info("using external API server", zap.String("url", baseURL))
	} else {
		logger.Info("no external API server found, starting internal one", zap.String("tried", baseURL))

		svc, err := buildServices(st, logger)
		if err != nil {
			return err
		}
		defer svc.close()
		go runMaintenance(ctx, svc, st, logger)

		if baseURL, err = startInternalAPI(ctx, svc, logger); err != nil {
			return err
		}
		logger.Info("internal API server started", zap.String("url", baseURL))
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
