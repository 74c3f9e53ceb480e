package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	for _, key := range []string{"KALAHA_HOST", "KALAHA_PORT", "CONFIG_DIR", "KALAHA_STORE", "KALAHA_SESSION_TTL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	s, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "localhost", s.Host)
	assert.Equal(t, 8080, s.Port)
	assert.Equal(t, "configs", s.ConfigDir)
	assert.Equal(t, StoreFile, s.Store)
	assert.Equal(t, 24*time.Hour, s.SessionTTL)
	assert.Equal(t, 5*time.Second, s.SyncInterval)
	assert.Equal(t, "localhost:8080", s.Addr())
}

func TestParse_Environment(t *testing.T) {
	t.Setenv("KALAHA_PORT", "9191")
	t.Setenv("KALAHA_STORE", "SQLite")
	t.Setenv("KALAHA_SESSION_TTL", "30m")
	t.Setenv("NGROK_ENABLED", "true")

	s, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 9191, s.Port)
	assert.Equal(t, StoreSQLite, s.Store)
	assert.Equal(t, 30*time.Minute, s.SessionTTL)
	assert.True(t, s.NgrokEnabled)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad port", "KALAHA_PORT", "70000"},
		{"not a number", "KALAHA_PORT", "eighty"},
		{"unknown store", "KALAHA_STORE", "redis"},
		{"zero ttl", "KALAHA_SESSION_TTL", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("KALAHA_SESSIONS_DIR=/tmp/kalaha-sessions\n"), 0644))

	// godotenv never overrides variables already set
	t.Setenv("KALAHA_SESSIONS_DIR", "")
	os.Unsetenv("KALAHA_SESSIONS_DIR")
	t.Cleanup(func() { os.Unsetenv("KALAHA_SESSIONS_DIR") })

	s, err := Load(envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/kalaha-sessions", s.SessionsDir)
}
