package memory

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/avvvet/officebuddy/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisStore needs a Redis server; REDIS_URL overrides the default
func setupRedisStore(t *testing.T) *RedisStore {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}
	store, err := NewRedisStore(url, time.Minute)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return store
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := setupRedisStore(t)
	defer store.Close()

	ctx := context.Background()
	id := "test-" + t.Name()
	defer store.DeleteSession(ctx, id)

	_, err := store.LoadSession(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	state := &ConversationState{
		SessionID: id,
		User:      models.UserProfile{UserID: "u1"},
		Pending: &models.PendingAction{
			TargetOperationID: "desk_book",
			OptionsData:       []map[string]any{{"id": "d1", "desk_code": "DSK-1"}},
		},
	}
	require.NoError(t, store.SaveSession(ctx, state))

	loaded, err := store.LoadSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "desk_book", loaded.Pending.TargetOperationID)
	assert.Equal(t, "DSK-1", loaded.Pending.OptionsData[0]["desk_code"])

	exists, err := store.SessionExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, store.UpdateActivity(ctx, id))

	require.NoError(t, store.DeleteSession(ctx, id))
	assert.ErrorIs(t, store.UpdateActivity(ctx, id), ErrSessionNotFound)
}
