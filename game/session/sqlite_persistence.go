package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wricardo/kalaha-game/game/engine"
	"github.com/wricardo/kalaha-game/game/service"
)

const sessionsSchema = `CREATE TABLE IF NOT EXISTS sessions (
	id               TEXT PRIMARY KEY,
	config_name      TEXT NOT NULL,
	created_at       INTEGER NOT NULL,
	last_accessed_at INTEGER NOT NULL,
	state_json       TEXT NOT NULL
)`

// SQLitePersistence implements SessionPersistence on a SQLite sessions table
type SQLitePersistence struct {
	sqlDB         *sql.DB
	configManager service.ConfigManager
	timeout       time.Duration
}

// NewSQLitePersistence opens (and creates if needed) the session database at path
func NewSQLitePersistence(path string, configManager service.ConfigManager) (*SQLitePersistence, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(sessionsSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}

	return &SQLitePersistence{
		sqlDB:         sqlDB,
		configManager: configManager,
		timeout:       5 * time.Second,
	}, nil
}

// Close releases the underlying SQLite connection
func (sp *SQLitePersistence) Close() error {
	if sp == nil || sp.sqlDB == nil {
		return nil
	}
	return sp.sqlDB.Close()
}

func (sp *SQLitePersistence) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), sp.timeout)
}

// Save upserts a session row
func (sp *SQLitePersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	data := toPersisted(session)
	stateJSON, err := json.Marshal(data.GameState)
	if err != nil {
		return fmt.Errorf("failed to marshal game state: %w", err)
	}

	ctx, cancel := sp.ctx()
	defer cancel()

	_, err = sp.sqlDB.ExecContext(ctx,
		`INSERT INTO sessions (id, config_name, created_at, last_accessed_at, state_json)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		    config_name = excluded.config_name,
		    last_accessed_at = excluded.last_accessed_at,
		    state_json = excluded.state_json`,
		strings.ToLower(data.ID),
		data.ConfigName,
		data.CreatedAt.UnixMilli(),
		data.LastAccessedAt.UnixMilli(),
		string(stateJSON),
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", data.ID, err)
	}
	return nil
}

// Load reads a session row and restores its engine
func (sp *SQLitePersistence) Load(id string) (*service.Session, error) {
	ctx, cancel := sp.ctx()
	defer cancel()

	row := sp.sqlDB.QueryRowContext(ctx,
		`SELECT id, config_name, created_at, last_accessed_at, state_json
		 FROM sessions WHERE id = ?`,
		strings.ToLower(id),
	)

	var data PersistedSessionData
	var createdAt, accessedAt int64
	var stateJSON string
	if err := row.Scan(&data.ID, &data.ConfigName, &createdAt, &accessedAt, &stateJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var state engine.GameState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game state: %w", err)
	}
	data.GameState = &state
	data.CreatedAt = time.UnixMilli(createdAt)
	data.LastAccessedAt = time.UnixMilli(accessedAt)

	return fromPersisted(data, sp.configManager)
}

// Delete removes a session row
func (sp *SQLitePersistence) Delete(id string) error {
	ctx, cancel := sp.ctx()
	defer cancel()

	res, err := sp.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, strings.ToLower(id))
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns every stored session ID
func (sp *SQLitePersistence) ListAll() ([]string, error) {
	ctx, cancel := sp.ctx()
	defer cancel()

	rows, err := sp.sqlDB.QueryContext(ctx, `SELECT id FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists reports whether a row exists for id
func (sp *SQLitePersistence) Exists(id string) bool {
	ctx, cancel := sp.ctx()
	defer cancel()

	var one int
	err := sp.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, strings.ToLower(id)).Scan(&one)
	return err == nil
}
