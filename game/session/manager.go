package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/kalaha-game/game/engine"
	"github.com/wricardo/kalaha-game/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Manager handles game session lifecycle
type Manager struct {
	sessions    map[string]*service.Session
	persistence SessionPersistence
	logger      *zap.Logger
	mu          sync.RWMutex
}

// NewManager creates an in-memory session manager
func NewManager(logger *zap.Logger) *Manager {
	return NewManagerWithPersistence(nil, logger)
}

// NewManagerWithPersistence creates a session manager backed by persistence
func NewManagerWithPersistence(persistence SessionPersistence, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions:    make(map[string]*service.Session),
		persistence: persistence,
		logger:      logger,
	}
}

// Create creates a new session with the given ID and ruleset. An empty ID
// gets a random 4-character one.
func (m *Manager) Create(id, configID string, config *engine.GameConfig) (*service.Session, error) {
	if id != "" && !validSessionID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	if config == nil {
		config = engine.DefaultGameConfig()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.generateSessionID()
	} else if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	now := time.Now()
	session := &service.Session{
		ID:             id,
		ConfigID:       configID,
		Engine:         eng,
		Config:         config,
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	m.sessions[strings.ToLower(id)] = session

	if m.persistence != nil {
		if err := m.persistence.Save(session); err != nil {
			m.logger.Warn("failed to persist new session", zap.String("session", id), zap.Error(err))
		}
	}

	return session, nil
}

// Get retrieves a session by ID (case-insensitive), falling back to persistence
func (m *Manager) Get(id string) (*service.Session, error) {
	key := strings.ToLower(id)

	m.mu.RLock()
	session, exists := m.sessions[key]
	m.mu.RUnlock()

	if exists {
		return session, nil
	}

	if m.persistence != nil && m.persistence.Exists(id) {
		loaded, err := m.persistence.Load(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted session: %w", err)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		// Another caller may have loaded it first
		if session, exists := m.sessions[key]; exists {
			return session, nil
		}
		m.sessions[key] = loaded
		return loaded, nil
	}

	return nil, ErrSessionNotFound
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id, configID string, config *engine.GameConfig) (*service.Session, error) {
	session, err := m.Get(id)
	if err == nil {
		return session, nil
	}

	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, configID, config)
	}

	return nil, err
}

// List returns all sessions held in memory
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}

	return result
}

// Delete removes a session from memory and persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	_, inMemory := m.sessions[key]
	delete(m.sessions, key)

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteFromMemory removes a session from memory only
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.sessions[key]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, key)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}

	session.LastAccessedAt = time.Now()
	return nil
}

// Save saves a specific session to persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	return m.persistence.Save(session)
}

// CleanupExpiredSessions drops sessions from memory that haven't been
// accessed within maxAge. Persisted copies are kept.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for key, session := range m.sessions {
		if session.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, key)
			removed++
		}
	}

	if removed > 0 {
		m.logger.Info("expired sessions removed", zap.Int("count", removed))
	}
	return removed
}

// SyncWithPersistence drops in-memory sessions whose stored copy has been
// removed behind the manager's back. It returns the number pruned.
func (m *Manager) SyncWithPersistence() int {
	if m.persistence == nil {
		return 0
	}

	pruned := 0
	for _, session := range m.List() {
		if m.persistence.Exists(session.ID) {
			continue
		}
		if err := m.DeleteFromMemory(session.ID); err == nil {
			pruned++
			m.logger.Info("pruned session missing from storage", zap.String("session", session.ID))
		}
	}
	return pruned
}

// Count returns the number of sessions in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID returns an unused random 4-character hex ID. Callers hold m.mu.
func (m *Manager) generateSessionID() string {
	for {
		bytes := make([]byte, 2)
		_, _ = rand.Read(bytes)
		id := hex.EncodeToString(bytes)
		if !m.sessionExists(id) && (m.persistence == nil || !m.persistence.Exists(id)) {
			return id
		}
	}
}

// sessionExists checks if a session exists (case-insensitive). Callers hold m.mu.
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}

// LoadPersistedSessions loads all persisted sessions into memory
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	sessionIDs, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loadedCount := 0
	for _, id := range sessionIDs {
		if m.sessionExists(id) {
			continue
		}

		session, err := m.persistence.Load(id)
		if err != nil {
			m.logger.Warn("failed to load persisted session", zap.String("session", id), zap.Error(err))
			continue
		}

		m.sessions[strings.ToLower(id)] = session
		loadedCount++
	}

	if loadedCount > 0 {
		m.logger.Info("loaded persisted sessions", zap.Int("count", loadedCount))
	}

	return nil
}

// SaveAllSessions saves all in-memory sessions to persistence
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	sessions := m.List()

	errorCount := 0
	for _, session := range sessions {
		if err := m.persistence.Save(session); err != nil {
			m.logger.Warn("failed to save session", zap.String("session", session.ID), zap.Error(err))
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d sessions", errorCount)
	}

	return nil
}

// validSessionID accepts short IDs made of letters, digits, '-' and '_'
func validSessionID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
