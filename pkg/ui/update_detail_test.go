package ui

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp1d3rx/atui/pkg/aws"
	"github.com/sp1d3rx/atui/pkg/history"
	"github.com/sp1d3rx/atui/pkg/presets"
	"github.com/sp1d3rx/atui/pkg/session"
)

// stubSupervisor accepts every start so model tests need no real processes.
type stubSupervisor struct {
	started map[session.Key][]string
}

func newStubSupervisor() *stubSupervisor {
	return &stubSupervisor{started: make(map[session.Key][]string)}
}

func (s *stubSupervisor) Start(key session.Key, argv []string) error {
	s.started[key] = argv
	return nil
}

func (s *stubSupervisor) Poll() []session.Exit { return nil }

func (s *stubSupervisor) Stop(key session.Key) session.StopResult {
	if _, ok := s.started[key]; !ok {
		return session.StopResult{Active: false}
	}
	delete(s.started, key)
	return session.StopResult{Active: true, Clean: true, Reason: "stopped"}
}

func (s *stubSupervisor) StopAll() []session.StopOutcome { return nil }

func newTestModel(t *testing.T, events EventLog) *Model {
	t.Helper()
	manager := session.NewManager(session.ManagerConfig{
		Supervisor: newStubSupervisor(),
		Build: func(spec session.ForwardSpec) ([]string, error) {
			target := aws.Target{InstanceID: spec.InstanceID}
			return target.PortForwardCommand(spec.RemotePort, spec.LocalPort, spec.RemoteHost)
		},
		Render:    aws.CommandString,
		Available: true,
	})
	return NewModel(Params{
		Profile:   "default",
		Region:    "us-west-1",
		Available: true,
		Manager:   manager,
		History:   events,
		Presets:   presets.DefaultConfig(),
	})
}

func TestEnterDetailShowsPersistedHistory(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	key := session.Key{InstanceID: "i-0abc123", Name: "postgres"}
	base := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	require.NoError(t, store.AppendEvent(session.Change{
		Key: key, From: session.StateStopped, To: session.StateActive, At: base,
	}))
	require.NoError(t, store.AppendEvent(session.Change{
		Key: key, From: session.StateActive, To: session.StateErrored,
		At: base.Add(time.Minute), Reason: "process exited",
	}))

	m := newTestModel(t, store)
	m.enterDetail(aws.Instance{InstanceID: "i-0abc123", Name: "bastion"})

	// newest first, from disk rather than this run's manager
	require.Len(t, m.detailEvents, 2)
	assert.Equal(t, session.StateErrored, m.detailEvents[0].To)
	assert.Equal(t, session.StateActive, m.detailEvents[1].To)

	view := m.viewDetail()
	assert.Contains(t, view, "History")
	assert.Contains(t, view, "postgres")
	assert.Contains(t, view, "process exited")
}

func TestDetailHistoryRefreshesAfterTransitions(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	m := newTestModel(t, store)
	m.manager = session.NewManager(session.ManagerConfig{
		Store:      store,
		Supervisor: newStubSupervisor(),
		Build: func(spec session.ForwardSpec) ([]string, error) {
			return []string{"forwarder"}, nil
		},
		Available: true,
	})
	m.enterDetail(aws.Instance{InstanceID: "i-0abc123", Name: "bastion"})
	assert.Empty(t, m.detailEvents)

	spec := session.ForwardSpec{InstanceID: "i-0abc123", Name: "redis", RemotePort: 6379, LocalPort: 16379}
	_, err = m.manager.Add(spec)
	require.NoError(t, err)
	_, err = m.manager.Start(spec.Key())
	require.NoError(t, err)
	m.drainManagerChanges()

	require.Len(t, m.detailEvents, 1)
	assert.Equal(t, session.StateActive, m.detailEvents[0].To)
}

func TestEnterDetailWithoutHistorySource(t *testing.T) {
	m := newTestModel(t, nil)
	m.enterDetail(aws.Instance{InstanceID: "i-0abc123", Name: "bastion"})

	assert.Empty(t, m.detailEvents)
	assert.Contains(t, m.viewDetail(), "no recorded transitions")
}
