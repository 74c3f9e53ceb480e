package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wricardo/kalaha-game/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
	mu       sync.Mutex
}

// Option customizes the game service
type Option func(*gameServiceImpl)

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *gameServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used for event timestamps
func WithClock(now func() time.Time) Option {
	return func(s *gameServiceImpl) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the event ID generator
func WithIDGenerator(newID func() string) Option {
	return func(s *gameServiceImpl) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		logger:   zap.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	state := sess.Engine.Snapshot()
	configID := sess.ConfigID
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      &state,
		GameConfig:     sess.Config,
	}
}

// getSession loads a session and marks it as accessed. Callers hold s.mu.
func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if err := s.sessions.UpdateLastAccessed(sess.ID); err != nil {
		s.logger.Debug("update last accessed", zap.String("session", sess.ID), zap.Error(err))
	}
	return sess, nil
}

func (s *gameServiceImpl) persist(sess *Session, op string) {
	if err := s.sessions.Save(sess.ID); err != nil {
		s.logger.Warn("failed to persist session",
			zap.String("session", sess.ID), zap.String("op", op), zap.Error(err))
	}
}

func (s *gameServiceImpl) event(eventType, message string) GameEvent {
	return GameEvent{
		ID:        s.newID(),
		Type:      eventType,
		Message:   message,
		Timestamp: s.now(),
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string, names PlayerNames) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					configIDs := make([]string, 0, len(availableConfigs))
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s' (available: %v)", ErrConfigNotFound, configName, configIDs)
				}
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if names.PlayerA != "" || names.PlayerB != "" {
		sess.Engine.SetPlayerNames(names.PlayerA, names.PlayerB)
		s.persist(sess, "create")
	}

	s.logger.Info("session created",
		zap.String("session", sess.ID),
		zap.String("config", configID),
		zap.Int("starting_stones", sess.Engine.GetState().StartingStones))

	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.logger.Info("session deleted", zap.String("session", sessionID))
	return nil
}

// Move plays a single pit for the player to move. A rejected move returns
// the engine's *engine.MoveError and leaves the game untouched apart from an
// optional reset.
func (s *gameServiceImpl) Move(ctx context.Context, sessionID string, pit int, reset bool) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	events := []GameEvent{}
	if reset {
		sess.Engine.Reset(0)
		events = append(events, s.event(EventReset, "Game reset to initial state"))
		s.persist(sess, "reset")
	}

	move, err := sess.Engine.ApplyMove(pit)
	if err != nil {
		s.logger.Debug("move rejected",
			zap.String("session", sess.ID), zap.Int("pit", pit), zap.Error(err))
		return nil, fmt.Errorf("session %s: %w", sess.ID, err)
	}

	s.logMove(sess, move)
	events = append(events, s.moveEvents(sess, move)...)
	s.persist(sess, "move")

	state := sess.Engine.Snapshot()
	return &MoveResult{
		Success:    true,
		GameState:  &state,
		Message:    state.Message,
		Events:     events,
		Move:       move,
		LegalMoves: sess.Engine.LegalMoves(),
	}, nil
}

// BulkMove plays pits in order and stops at the first rejected move
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, pits []int, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkMoveResult{
		RequestedMoves: len(pits),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		sess.Engine.Reset(0)
		result.Events = append(result.Events, s.event(EventReset, "Game reset to initial state"))
	}
	result.StartStores = sess.Engine.GetState().Board.Stores

	// Limit moves to prevent abuse
	if len(pits) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		pits = pits[:engine.MaxBulkMoves]
	}

	for i, pit := range pits {
		if err := ctx.Err(); err != nil {
			result.Success = false
			result.StoppedReason = err.Error()
			result.StopReasonCode = "canceled"
			result.StoppedOnMove = i + 1
			break
		}

		move, err := sess.Engine.ApplyMove(pit)
		if err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d rejected: %v", i+1, err)
			result.StopReasonCode = engine.ErrorCode(err)
			result.StoppedOnMove = i + 1
			break
		}

		s.logMove(sess, move)
		result.MovesExecuted++
		result.Events = append(result.Events, s.moveEvents(sess, move)...)

		summary := *move
		summary.Steps = nil
		result.Moves = append(result.Moves, summary)
	}

	state := sess.Engine.Snapshot()
	result.GameState = &state
	result.EndStores = state.Board.Stores
	result.GameOver = state.GameOver
	result.Message = state.Message
	result.LegalMoves = sess.Engine.LegalMoves()

	s.persist(sess, "bulk_move")

	return result, nil
}

// Reset starts a new game in the session. startingStones <= 0 keeps the
// previous count.
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string, startingStones int) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Engine.Reset(startingStones)
	s.persist(sess, "reset")

	state := sess.Engine.Snapshot()
	s.logger.Info("game reset",
		zap.String("session", sess.ID), zap.Int("starting_stones", state.StartingStones))
	return &state, nil
}

// SetPlayerNames renames one or both players
func (s *gameServiceImpl) SetPlayerNames(ctx context.Context, sessionID string, names PlayerNames) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Engine.SetPlayerNames(names.PlayerA, names.PlayerB)
	s.persist(sess, "players")

	state := sess.Engine.Snapshot()
	return &state, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.Snapshot()
	return &state, nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if err := s.configs.SaveConfig(configName, config); err != nil {
		return err
	}
	s.logger.Info("config saved", zap.String("config", configName))
	return nil
}

func (s *gameServiceImpl) logMove(sess *Session, move *engine.MoveResult) {
	s.logger.Info("move",
		zap.String("session", sess.ID),
		zap.Stringer("player", move.Player),
		zap.Int("pit", move.Pit),
		zap.Int("sown", move.StonesSown),
		zap.Int("captured", move.CapturedCount),
		zap.Bool("extra_turn", move.ExtraTurn),
		zap.Ints("stores", move.Board.Stores[:]),
		zap.Bool("game_over", move.GameOver))
}

// moveEvents generates events from a move
func (s *gameServiceImpl) moveEvents(sess *Session, move *engine.MoveResult) []GameEvent {
	state := sess.Engine.GetState()
	mover := move.Player
	name := state.PlayerName(mover)

	ev := s.event(EventMove, fmt.Sprintf("%s sowed %d stones from pit %d, last stone in %s",
		name, move.StonesSown, move.Pit, engine.SlotLabel(move.LastSlot)))
	ev.Player = &mover
	ev.Pit = move.Pit
	events := []GameEvent{ev}

	if move.Captured {
		ev := s.event(EventCapture, fmt.Sprintf("%s captured %d stones", name, move.CapturedCount))
		ev.Player = &mover
		ev.Pit = move.Pit
		events = append(events, ev)
	}

	if move.ExtraTurn && !move.GameOver {
		ev := s.event(EventExtraTurn, fmt.Sprintf("%s plays again", name))
		ev.Player = &mover
		events = append(events, ev)
	}

	if move.GameOver {
		ev := s.event(EventGameOver, state.Message)
		if move.Winner != nil {
			winner := *move.Winner
			ev.Player = &winner
		}
		events = append(events, ev)
	}

	return events
}
