package session

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sp1d3rx/atui/pkg/logging"
)

// StartResult classifies the outcome of Manager.Start.
type StartResult int

const (
	StartStarted StartResult = iota
	StartAlreadyActive
	StartFailed
)

// StopStatus classifies the outcome of Manager.Stop.
type StopStatus int

const (
	StopClean StopStatus = iota
	StopForced
	StopNotActive
)

// ShutdownEntry reports how one active forward ended during Shutdown.
type ShutdownEntry struct {
	Key     Key
	Stopped bool
	Reason  string
}

// CommandBuilder turns a spec into the argv the supervisor will execute.
type CommandBuilder func(spec ForwardSpec) ([]string, error)

// CommandRenderer turns an argv into its user-visible string.
type CommandRenderer func(argv []string) string

// ManagerConfig wires the manager's collaborators.
type ManagerConfig struct {
	Store      Store             // nil means memory-only from the start
	Supervisor ProcessSupervisor // required
	Build      CommandBuilder    // required
	Render     CommandRenderer   // optional; defaults to space-joining
	Available  bool              // whether the supervised capability exists
	Now        func() time.Time  // optional clock override
}

// Manager owns the authoritative map of forward sessions and is the only
// writer of session state. All methods are serialized by one mutex; the UI
// adapter calls in from a single goroutine and the external processes are
// reached only through the supervisor.
type Manager struct {
	mu         sync.Mutex
	sessions   map[Key]*ForwardSession
	sup        ProcessSupervisor
	store      Store
	build      CommandBuilder
	render     CommandRenderer
	available  bool
	memoryOnly bool
	warning    string
	changes    []Change
	now        func() time.Time
}

// NewManager builds a manager, loads durable history, and reconciles rows
// left Active by a previous run: a fresh manager has no live processes, so
// those are corrected to Errored.
func NewManager(cfg ManagerConfig) *Manager {
	m := &Manager{
		sessions:  make(map[Key]*ForwardSession),
		sup:       cfg.Supervisor,
		store:     cfg.Store,
		build:     cfg.Build,
		render:    cfg.Render,
		available: cfg.Available,
		now:       cfg.Now,
	}
	if m.render == nil {
		m.render = func(argv []string) string { return strings.Join(argv, " ") }
	}
	if m.now == nil {
		m.now = time.Now
	}

	if m.store != nil {
		rows, err := m.store.LoadAll("")
		if err != nil {
			m.degrade(err)
			return m
		}
		for _, row := range rows {
			sess := row
			if sess.State == StateActive {
				m.transition(&sess, StateErrored, ReasonProcessLost)
				logging.LogDebug("Reconciled stale active forward %s", sess.Key())
			}
			m.sessions[sess.Key()] = &sess
		}
	}
	return m
}

// Add registers a spec as a Stopped session. Adding an existing key leaves
// the current record untouched.
func (m *Manager) Add(spec ForwardSpec) (ForwardSession, error) {
	if err := spec.Validate(); err != nil {
		return ForwardSession{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[spec.Key()]; ok {
		return *existing, nil
	}

	sess := &ForwardSession{Spec: spec, State: StateStopped}
	m.sessions[spec.Key()] = sess
	m.persist(*sess)
	logging.LogDebug("Added forward %s (%d -> %d)", spec.Key(), spec.LocalPort, spec.RemotePort)
	return *sess, nil
}

// Start builds the command for key and hands it to the supervisor. Starting
// an Active key is a no-op reported as StartAlreadyActive. A failed start
// lands the session in Errored with the failure reason; the built command is
// recorded either way so the UI preview always matches what would run.
func (m *Manager) Start(key Key) (StartResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[key]
	if !ok {
		return StartFailed, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if sess.State == StateActive {
		return StartAlreadyActive, nil
	}

	argv, err := m.build(sess.Spec)
	if err != nil {
		// rejected input, no state change
		return StartFailed, err
	}
	sess.Command = m.render(argv)

	if !m.available {
		m.transition(sess, StateErrored, ReasonCapabilityUnavailable)
		return StartFailed, ErrCapabilityUnavailable
	}

	if err := m.sup.Start(key, argv); err != nil {
		m.transition(sess, StateErrored, fmt.Sprintf("start failed: %v", err))
		return StartFailed, err
	}

	m.transition(sess, StateActive, "started")
	return StartStarted, nil
}

// Stop terminates the process behind an Active key. Stopping a non-Active key
// is a no-op reported as StopNotActive.
func (m *Manager) Stop(key Key) (StopStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[key]
	if !ok || sess.State != StateActive {
		logging.LogDebug("Stop requested for non-active forward %s", key)
		return StopNotActive, nil
	}

	result := m.sup.Stop(key)
	switch {
	case !result.Active:
		// process already reaped out of band; still a clean stop
		m.transition(sess, StateStopped, "process already gone")
		return StopClean, nil
	case result.Clean:
		m.transition(sess, StateStopped, result.Reason)
		return StopClean, nil
	default:
		m.transition(sess, StateErrored, result.Reason)
		return StopForced, nil
	}
}

// Tick reaps externally-terminated processes via the supervisor and applies
// their transitions. A key already driven to a terminal state by a user stop
// is skipped, so poll and stop never double-transition one record.
func (m *Manager) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, exit := range m.sup.Poll() {
		sess, ok := m.sessions[exit.Key]
		if !ok || sess.State != StateActive {
			continue
		}
		if exit.Clean {
			m.transition(sess, StateStopped, exit.Reason)
		} else {
			m.transition(sess, StateErrored, exit.Reason)
		}
	}
}

// Shutdown stops every active forward and returns only when each has reached
// a terminal state. With no active forwards it returns immediately; whether
// to confirm with the user first is the caller's policy, via ListActive.
func (m *Manager) Shutdown() []ShutdownEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	anyActive := false
	for _, sess := range m.sessions {
		if sess.State == StateActive {
			anyActive = true
			break
		}
	}
	if !anyActive {
		return nil
	}

	var entries []ShutdownEntry
	for _, outcome := range m.sup.StopAll() {
		sess, ok := m.sessions[outcome.Key]
		if !ok || sess.State != StateActive {
			continue
		}
		entry := ShutdownEntry{Key: outcome.Key, Reason: outcome.Result.Reason}
		if !outcome.Result.Active || outcome.Result.Clean {
			m.transition(sess, StateStopped, outcome.Result.Reason)
			entry.Stopped = true
		} else {
			m.transition(sess, StateErrored, outcome.Result.Reason)
		}
		entries = append(entries, entry)
	}

	// sessions the supervisor never knew about (e.g. marked active while the
	// capability was flapping) must still end terminal
	for _, sess := range m.sessions {
		if sess.State == StateActive {
			m.transition(sess, StateErrored, "no backing process at shutdown")
			entries = append(entries, ShutdownEntry{Key: sess.Key(), Reason: "no backing process at shutdown"})
		}
	}
	return entries
}

// ListForInstance returns every session for an instance, newest transition
// first.
func (m *Manager) ListForInstance(instanceID string) []ForwardSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ForwardSession
	for _, sess := range m.sessions {
		if sess.Spec.InstanceID == instanceID {
			out = append(out, *sess)
		}
	}
	sortSessions(out)
	return out
}

// ListActive returns every Active session across all instances.
func (m *Manager) ListActive() []ForwardSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ForwardSession
	for _, sess := range m.sessions {
		if sess.State == StateActive {
			out = append(out, *sess)
		}
	}
	sortSessions(out)
	return out
}

// Get returns the session for key, if tracked.
func (m *Manager) Get(key Key) (ForwardSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[key]
	if !ok {
		return ForwardSession{}, false
	}
	return *sess, true
}

// DrainChanges returns the transitions recorded since the last drain. The UI
// adapter calls this after every tick or user action to feed its activity log.
func (m *Manager) DrainChanges() []Change {
	m.mu.Lock()
	defer m.mu.Unlock()
	changes := m.changes
	m.changes = nil
	return changes
}

// Warning returns the degradation notice, if the history store has failed.
func (m *Manager) Warning() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warning
}

// MemoryOnly reports whether durable history has been given up on.
func (m *Manager) MemoryOnly() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.memoryOnly
}

// transition applies a state change with its timestamps, records the change
// for the UI, and writes through to the store. Callers hold m.mu.
func (m *Manager) transition(sess *ForwardSession, to State, reason string) {
	from := sess.State
	now := m.now()

	sess.State = to
	sess.Reason = reason
	if to == StateActive {
		sess.StartedAt = now
		sess.EndedAt = nil
		sess.Reason = ""
	} else {
		// every terminal transition is stamped, including failed starts that
		// were never Active, so in-memory ordering matches the store's
		ended := now
		sess.EndedAt = &ended
	}

	change := Change{Key: sess.Key(), From: from, To: to, At: now, Reason: reason}
	m.changes = append(m.changes, change)
	m.persist(*sess)
	m.audit(change)
}

func (m *Manager) persist(sess ForwardSession) {
	if m.store == nil || m.memoryOnly {
		return
	}
	if err := m.store.Upsert(sess); err != nil {
		m.degrade(err)
	}
}

func (m *Manager) audit(change Change) {
	if m.store == nil || m.memoryOnly {
		return
	}
	if err := m.store.AppendEvent(change); err != nil {
		m.degrade(err)
	}
}

// degrade switches to memory-only operation after a store failure. The UI
// keeps working; only durability is lost for the rest of the run.
func (m *Manager) degrade(err error) {
	m.memoryOnly = true
	m.warning = fmt.Sprintf("history store unavailable, continuing without persistence: %v", err)
	logging.LogError("History store failure, degrading to memory-only: %v", err)
}

func sortSessions(sessions []ForwardSession) {
	sort.Slice(sessions, func(i, j int) bool {
		ti, tj := sessions[i].LastTransition(), sessions[j].LastTransition()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return sessions[i].Spec.Name < sessions[j].Spec.Name
	})
}
