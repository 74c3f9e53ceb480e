package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/kalaha-game/game/engine"
	"github.com/wricardo/kalaha-game/game/service"
	"github.com/wricardo/kalaha-game/transport/websocket"
)

// Error codes returned in the JSON error body
const (
	CodeInvalidPit    = "invalid_pit"
	CodeEmptyPit      = "empty_pit"
	CodeGameOver      = "game_over"
	CodeNotFound      = "not_found"
	CodeInvalidConfig = "invalid_config"
	CodeBadRequest    = "bad_request"
	CodeInternal      = "internal"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *zap.Logger
}

// NewServer creates a new API server. hub may be nil, in which case no
// websocket route is served and nothing is broadcast.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	if hub != nil {
		hub.SetActionHandler(s.handleClientAction)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("", s.handleIndex).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/board", s.handleGetBoard).Methods("GET")
	api.HandleFunc("/sessions/{id}/move", s.handleMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/bulk-move", s.handleBulkMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/players", s.handleSetPlayers).Methods("PUT", "POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	if s.hub != nil {
		s.router.HandleFunc("/ws", s.handleWebSocket)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// StatusForError maps service and engine errors to an HTTP status and code
func StatusForError(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrInvalidPitIndex):
		return http.StatusBadRequest, CodeInvalidPit
	case errors.Is(err, engine.ErrEmptyPit):
		return http.StatusConflict, CodeEmptyPit
	case errors.Is(err, engine.ErrGameOver):
		return http.StatusConflict, CodeGameOver
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrConfigNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, service.ErrInvalidConfig):
		return http.StatusBadRequest, CodeInvalidConfig
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := StatusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}
	respondError(w, status, code, err.Error())
}

// decodeBody decodes an optional JSON body. An empty body leaves dst as is.
func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) broadcast(sessionID string, state *engine.GameState) {
	if s.hub != nil && state != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name": "kalaha",
		"endpoints": []string{
			"POST /api/sessions",
			"GET /api/sessions",
			"GET /api/sessions/{id}",
			"DELETE /api/sessions/{id}",
			"GET /api/sessions/{id}/state",
			"GET /api/sessions/{id}/board",
			"POST /api/sessions/{id}/move",
			"POST /api/sessions/{id}/bulk-move",
			"POST /api/sessions/{id}/reset",
			"PUT /api/sessions/{id}/players",
			"GET /api/sessions/{id}/history",
			"GET /api/configs",
			"POST /api/configs",
			"GET /api/configs/{name}",
			"GET /ws?session={id}",
		},
	})
}

// Session Handlers

// CreateSessionRequest is the body of POST /api/sessions
type CreateSessionRequest struct {
	ConfigID   string `json:"config_id,omitempty"`
	ConfigName string `json:"config_name,omitempty"` // alias of config_id
	PlayerA    string `json:"player_a,omitempty"`
	PlayerB    string `json:"player_b,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return
	}

	configID := req.ConfigID
	if configID == "" {
		configID = req.ConfigName
	}

	session, err := s.service.CreateSession(r.Context(), configID, service.PlayerNames{
		PlayerA: req.PlayerA,
		PlayerB: req.PlayerB,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created" or "accessed" (default)
	order := query.Get("order") // "asc" or "desc" (default)
	configFilter := query.Get("config")

	if sortBy != "created" {
		sortBy = "accessed"
	}
	if order != "asc" {
		order = "desc"
	}

	total := len(sessions)
	if configFilter != "" {
		filtered := sessions[:0]
		for _, session := range sessions {
			if session.ConfigName == configFilter {
				filtered = append(filtered, session)
			}
		}
		sessions = filtered
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s\n%s\n", engine.RenderBoard(state), engine.StatusLine(state))
}

// MoveRequest is the body of POST /api/sessions/{id}/move
type MoveRequest struct {
	Pit   *int `json:"pit"`
	Reset bool `json:"reset,omitempty"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return
	}
	if req.Pit == nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "pit is required")
		return
	}

	result, err := s.service.Move(r.Context(), sessionID, *req.Pit, req.Reset)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.broadcast(sessionID, result.GameState)
	respondJSON(w, http.StatusOK, result)
}

// BulkMoveRequest is the body of POST /api/sessions/{id}/bulk-move
type BulkMoveRequest struct {
	Pits  []int `json:"pits"`
	Reset bool  `json:"reset,omitempty"`
}

func (s *Server) handleBulkMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req BulkMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return
	}
	if len(req.Pits) == 0 {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "pits must not be empty")
		return
	}

	result, err := s.service.BulkMove(r.Context(), sessionID, req.Pits, req.Reset)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.broadcast(sessionID, result.GameState)

	s.logger.Info("bulk move",
		zap.String("session", sessionID),
		zap.Int("executed", result.MovesExecuted),
		zap.Int("requested", result.RequestedMoves),
		zap.String("stop", result.StopReasonCode),
		zap.Ints("stores", result.EndStores[:]))

	respondJSON(w, http.StatusOK, result)
}

// ResetRequest is the optional body of POST /api/sessions/{id}/reset
type ResetRequest struct {
	StartingStones int `json:"starting_stones,omitempty"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req ResetRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return
	}

	state, err := s.service.Reset(r.Context(), sessionID, req.StartingStones)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.broadcast(sessionID, state)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game reset successfully",
		"state":   state,
	})
}

func (s *Server) handleSetPlayers(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var names service.PlayerNames
	if err := json.NewDecoder(r.Body).Decode(&names); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return
	}

	state, err := s.service.SetPlayerNames(r.Context(), sessionID, names)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.broadcast(sessionID, state)
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetMoveHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	config, err := s.service.LoadConfig(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, config)
}

// CreateConfigRequest is the body of POST /api/configs. Format picks the
// file type ("json" or "yaml"); JSON is the default.
type CreateConfigRequest struct {
	engine.GameConfig
	Format string `json:"format,omitempty"`
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req CreateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(w, http.StatusBadRequest, CodeInvalidConfig, "Config name is required")
		return
	}

	filename := name
	switch strings.ToLower(req.Format) {
	case "yaml", "yml":
		filename += ".yaml"
	case "", "json":
	default:
		respondError(w, http.StatusBadRequest, CodeBadRequest, "format must be json or yaml")
		return
	}

	gameConfig := req.GameConfig
	gameConfig.Name = name
	if err := s.service.SaveConfig(r.Context(), filename, &gameConfig); err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": name,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "session parameter required")
		return
	}

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.hub.ServeWS(w, r, session.ID)

	// New subscribers start from the current position
	s.broadcast(session.ID, session.GameState)
}

// handleClientAction runs websocket actions through the same service as REST
func (s *Server) handleClientAction(ctx context.Context, sessionID string, action websocket.Action) error {
	switch action.Action {
	case websocket.ActionMove:
		result, err := s.service.Move(ctx, sessionID, action.Pit, false)
		if err != nil {
			return err
		}
		s.broadcast(sessionID, result.GameState)
		return nil

	case websocket.ActionReset:
		state, err := s.service.Reset(ctx, sessionID, action.StartingStones)
		if err != nil {
			return err
		}
		s.broadcast(sessionID, state)
		return nil

	default:
		return fmt.Errorf("unknown action %q", action.Action)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
