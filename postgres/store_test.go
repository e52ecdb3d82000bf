package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/deepnoodle-ai/campaign"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func testStore(t *testing.T) *SessionStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("campaign"),
		tcpostgres.WithUsername("campaign"),
		tcpostgres.WithPassword("campaign"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(container))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testCheckpoint(sessionID string, version int64) *campaign.Checkpoint {
	now := time.Now().UTC().Truncate(time.Second)
	return &campaign.Checkpoint{
		ID:        campaign.NewCheckpointID(),
		SessionID: sessionID,
		GraphName: "campaign",
		Status:    campaign.StatusRunning,
		NextNode:  "planner",
		Version:   version,
		State:     &campaign.WorkflowState{Goal: "Launch a product update email"},
		StartTime: now,
		UpdatedAt: now,
	}
}

func TestSessionStore(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	t.Run("get unknown session", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		require.ErrorIs(t, err, campaign.ErrSessionNotFound)
	})

	t.Run("put and get round trip", func(t *testing.T) {
		checkpoint := testCheckpoint("session-1", 1)
		require.NoError(t, store.Put(ctx, checkpoint))

		loaded, err := store.Get(ctx, "session-1")
		require.NoError(t, err)
		assert.Equal(t, checkpoint.ID, loaded.ID)
		assert.Equal(t, campaign.StatusRunning, loaded.Status)
		assert.Equal(t, campaign.NodeName("planner"), loaded.NextNode)
		assert.Equal(t, int64(1), loaded.Version)
		assert.Equal(t, "Launch a product update email", loaded.State.Goal)
	})

	t.Run("sequential version updates", func(t *testing.T) {
		next := testCheckpoint("session-1", 2)
		next.Status = campaign.StatusPaused
		next.NextNode = "reviewer"
		require.NoError(t, store.Put(ctx, next))

		loaded, err := store.Get(ctx, "session-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), loaded.Version)
		assert.Equal(t, campaign.StatusPaused, loaded.Status)
	})

	t.Run("stale write loses the race", func(t *testing.T) {
		err := store.Put(ctx, testCheckpoint("session-1", 2))
		require.ErrorIs(t, err, campaign.ErrVersionConflict)
	})

	t.Run("double insert conflicts", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, testCheckpoint("session-2", 1)))
		err := store.Put(ctx, testCheckpoint("session-2", 1))
		require.ErrorIs(t, err, campaign.ErrVersionConflict)
	})

	t.Run("list sessions", func(t *testing.T) {
		summaries, err := store.ListSessions(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, "Launch a product update email", summaries[0].Goal)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "session-1"))
		require.NoError(t, store.Delete(ctx, "session-1"))
		_, err := store.Get(ctx, "session-1")
		require.ErrorIs(t, err, campaign.ErrSessionNotFound)
	})
}
