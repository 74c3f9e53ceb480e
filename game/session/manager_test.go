package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wricardo/kalaha-game/game/engine"
)

func createTestConfig() *engine.GameConfig {
	return &engine.GameConfig{
		Name:           "test",
		Description:    "Test configuration",
		StartingStones: 4,
	}
}

func TestManager_Create(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t))
	config := createTestConfig()

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{"generated id", "", nil},
		{"explicit id", "game-1", nil},
		{"duplicate id", "game-1", ErrSessionAlreadyExists},
		{"duplicate id other case", "GAME-1", ErrSessionAlreadyExists},
		{"bad characters", "../x", ErrInvalidSessionID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := manager.Create(tt.id, "test", config)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, session.ID)
			assert.Equal(t, "test", session.ConfigID)
			assert.Equal(t, 4, session.Engine.GetState().StartingStones)
			assert.False(t, session.CreatedAt.IsZero())
		})
	}

	assert.Equal(t, 2, manager.Count())
}

func TestManager_CreateNilConfigUsesDefault(t *testing.T) {
	manager := NewManager(nil)
	session, err := manager.Create("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultStartingStones, session.Engine.GetState().StartingStones)
}

func TestManager_Get(t *testing.T) {
	manager := NewManager(nil)
	created, err := manager.Create("AbCd", "test", createTestConfig())
	require.NoError(t, err)

	for _, id := range []string{"AbCd", "abcd", "ABCD"} {
		got, err := manager.Get(id)
		require.NoError(t, err, id)
		assert.Same(t, created, got)
	}

	_, err = manager.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_GetOrCreate(t *testing.T) {
	manager := NewManager(nil)
	config := createTestConfig()

	first, err := manager.GetOrCreate("goc", "test", config)
	require.NoError(t, err)

	second, err := manager.GetOrCreate("goc", "test", config)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, manager.Count())
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager(nil)
	_, err := manager.Create("del1", "test", createTestConfig())
	require.NoError(t, err)

	require.NoError(t, manager.Delete("DEL1"))
	_, err = manager.Get("del1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, manager.Delete("del1"), ErrSessionNotFound)
}

func TestManager_List(t *testing.T) {
	manager := NewManager(nil)
	assert.Empty(t, manager.List())

	for i := 0; i < 3; i++ {
		_, err := manager.Create(fmt.Sprintf("list-%d", i), "test", createTestConfig())
		require.NoError(t, err)
	}
	assert.Len(t, manager.List(), 3)
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t))
	config := createTestConfig()

	old, err := manager.Create("old", "test", config)
	require.NoError(t, err)
	_, err = manager.Create("new", "test", config)
	require.NoError(t, err)

	old.LastAccessedAt = time.Now().Add(-2 * time.Hour)

	removed := manager.CleanupExpiredSessions(time.Hour)
	assert.Equal(t, 1, removed)

	_, err = manager.Get("old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = manager.Get("new")
	assert.NoError(t, err)
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager(nil)
	session, err := manager.Create("touch", "test", createTestConfig())
	require.NoError(t, err)

	session.LastAccessedAt = time.Now().Add(-time.Hour)
	require.NoError(t, manager.UpdateLastAccessed("TOUCH"))
	assert.WithinDuration(t, time.Now(), session.LastAccessedAt, time.Second)

	assert.ErrorIs(t, manager.UpdateLastAccessed("nope"), ErrSessionNotFound)
}

func TestManager_SaveWithoutPersistence(t *testing.T) {
	manager := NewManager(nil)
	assert.NoError(t, manager.Save("anything"))
	assert.NoError(t, manager.SaveAllSessions())
	assert.NoError(t, manager.LoadPersistedSessions())
	assert.Equal(t, 0, manager.SyncWithPersistence())
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager(nil)
	config := createTestConfig()

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i%10)
			if _, err := manager.GetOrCreate(id, "test", config); err != nil && !errors.Is(err, ErrSessionAlreadyExists) {
				errs <- err
			}
			manager.List()
			_ = manager.UpdateLastAccessed(id)
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error during concurrent access: %v", err)
	}
	assert.Equal(t, 10, manager.Count())
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := NewManager(nil)
	config := createTestConfig()

	session1, err := manager.Create("iso-1", "test", config)
	require.NoError(t, err)
	session2, err := manager.Create("iso-2", "test", config)
	require.NoError(t, err)

	_, err = session1.Engine.ApplyMove(3)
	require.NoError(t, err)

	assert.Equal(t, engine.PlayerA, session2.Engine.Turn())
	assert.Equal(t, 4, session2.Engine.GetState().Board.Pits[engine.PlayerA][2])
	assert.Equal(t, 0, session1.Engine.GetState().Board.Pits[engine.PlayerA][2])
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := NewManager(nil)
	config := createTestConfig()

	generatedIDs := make(map[string]bool)
	for i := 0; i < 50; i++ {
		session, err := manager.Create("", "test", config)
		require.NoError(t, err)

		assert.False(t, generatedIDs[session.ID], "duplicate session ID %s", session.ID)
		generatedIDs[session.ID] = true

		assert.Len(t, session.ID, 4)
		assert.True(t, validSessionID(session.ID))
	}
}

func TestValidSessionID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"ab12", true},
		{"Game_1-x", true},
		{"", false},
		{"a/b", false},
		{"..", false},
		{"has space", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, validSessionID(tt.id), tt.id)
	}
}
