package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp1d3rx/atui/pkg/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSession() session.ForwardSession {
	started := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	return session.ForwardSession{
		Spec: session.ForwardSpec{
			InstanceID: "i-0abc123",
			Name:       "postgres",
			RemotePort: 5432,
			LocalPort:  15432,
		},
		State:     session.StateActive,
		StartedAt: started,
		Command:   "aws ssm start-session --target i-0abc123",
	}
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, path, store.Path())
}

func TestUpsertAndLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)

	sess := sampleSession()
	require.NoError(t, store.Upsert(sess))

	loaded, err := store.LoadAll("i-0abc123")
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[0]
	assert.Equal(t, sess.Spec, got.Spec)
	assert.Equal(t, session.StateActive, got.State)
	assert.True(t, got.StartedAt.Equal(sess.StartedAt))
	assert.Nil(t, got.EndedAt)
	assert.Equal(t, sess.Command, got.Command)
	assert.Empty(t, got.Reason)
}

func TestUpsertReplacesExistingKey(t *testing.T) {
	store := openTestStore(t)

	sess := sampleSession()
	require.NoError(t, store.Upsert(sess))

	ended := sess.StartedAt.Add(5 * time.Minute)
	sess.State = session.StateStopped
	sess.EndedAt = &ended
	sess.Reason = "stopped"
	require.NoError(t, store.Upsert(sess))

	loaded, err := store.LoadAll("i-0abc123")
	require.NoError(t, err)
	require.Len(t, loaded, 1, "one row per key, not one per write")

	got := loaded[0]
	assert.Equal(t, session.StateStopped, got.State)
	require.NotNil(t, got.EndedAt)
	assert.True(t, got.EndedAt.Equal(ended))
	assert.Equal(t, "stopped", got.Reason)
}

func TestLoadAllFiltersByInstance(t *testing.T) {
	store := openTestStore(t)

	first := sampleSession()
	second := sampleSession()
	second.Spec.InstanceID = "i-0def456"
	require.NoError(t, store.Upsert(first))
	require.NoError(t, store.Upsert(second))

	all, err := store.LoadAll("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := store.LoadAll("i-0def456")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "i-0def456", one[0].Spec.InstanceID)
}

func TestLoadAllSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(sampleSession()))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.LoadAll("")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, session.StateActive, loaded[0].State)
}

func TestAppendAndReadEvents(t *testing.T) {
	store := openTestStore(t)

	key := session.Key{InstanceID: "i-0abc123", Name: "postgres"}
	base := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	transitions := []session.Change{
		{Key: key, From: session.StateStopped, To: session.StateActive, At: base},
		{Key: key, From: session.StateActive, To: session.StateErrored, At: base.Add(time.Minute), Reason: "process exited"},
	}
	for _, change := range transitions {
		require.NoError(t, store.AppendEvent(change))
	}

	events, err := store.Events("i-0abc123", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// newest first
	assert.Equal(t, session.StateErrored, events[0].To)
	assert.Equal(t, "process exited", events[0].Reason)
	assert.Equal(t, session.StateActive, events[1].To)
	assert.NotEqual(t, events[0].ID, events[1].ID)

	limited, err := store.Events("i-0abc123", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPruneKeepsActiveAndRecentRows(t *testing.T) {
	store := openTestStore(t)

	key := session.Key{InstanceID: "i-0abc123", Name: "postgres"}
	old := time.Now().Add(-60 * 24 * time.Hour)

	// old terminal row, written directly so updated_at lands in the past
	_, err := store.db.Exec(`
		INSERT INTO forward_sessions
			(instance_id, forward_name, remote_port, local_port, remote_host,
			 state, started_at, ended_at, command, reason, updated_at)
		VALUES (?, ?, 5432, 15432, '', ?, ?, ?, '', 'stopped', ?)`,
		key.InstanceID, "stale", string(session.StateStopped),
		encodeTime(old), encodeTime(old), encodeTime(old),
	)
	require.NoError(t, err)
	_, err = store.db.Exec(`
		INSERT INTO forward_sessions
			(instance_id, forward_name, remote_port, local_port, remote_host,
			 state, started_at, ended_at, command, reason, updated_at)
		VALUES (?, ?, 6379, 16379, '', ?, ?, '', '', '', ?)`,
		key.InstanceID, "old-but-active", string(session.StateActive),
		encodeTime(old), encodeTime(old),
	)
	require.NoError(t, err)

	require.NoError(t, store.Upsert(sampleSession()))
	require.NoError(t, store.AppendEvent(session.Change{
		Key: key, From: session.StateActive, To: session.StateStopped, At: old,
	}))

	pruned, err := store.Prune(time.Now().Add(-30 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned, "one stale session plus one old event")

	remaining, err := store.LoadAll("")
	require.NoError(t, err)
	names := make([]string, 0, len(remaining))
	for _, sess := range remaining {
		names = append(names, sess.Spec.Name)
	}
	assert.ElementsMatch(t, []string{"postgres", "old-but-active"}, names)
}
