package session

import (
	"fmt"
	"time"

	"github.com/wricardo/kalaha-game/game/engine"
	"github.com/wricardo/kalaha-game/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the stored form of a session
type PersistedSessionData struct {
	ID             string            `json:"id"`
	ConfigName     string            `json:"config_name"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
}

// toPersisted snapshots a live session
func toPersisted(session *service.Session) PersistedSessionData {
	state := session.Engine.Snapshot()
	configID := session.ConfigID
	if configID == "" && session.Config != nil {
		configID = session.Config.Name
	}
	return PersistedSessionData{
		ID:             session.ID,
		ConfigName:     configID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameState:      &state,
	}
}

// fromPersisted rebuilds a session with its ruleset and a restored engine
func fromPersisted(data PersistedSessionData, configs service.ConfigManager) (*service.Session, error) {
	if data.GameState == nil {
		return nil, fmt.Errorf("session %s has no game state", data.ID)
	}

	gameConfig, err := configs.LoadConfig(data.ConfigName)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s': %w", data.ConfigName, err)
	}

	gameEngine, err := engine.NewEngineFromState(gameConfig, *data.GameState)
	if err != nil {
		return nil, fmt.Errorf("failed to restore game state: %w", err)
	}

	return &service.Session{
		ID:             data.ID,
		ConfigID:       data.ConfigName,
		Engine:         gameEngine,
		Config:         gameConfig,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}
