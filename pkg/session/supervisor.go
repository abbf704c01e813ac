package session

import (
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/sp1d3rx/atui/pkg/logging"
)

// DefaultGrace is how long a forward process gets to exit after SIGTERM
// before it is force-killed.
const DefaultGrace = 3 * time.Second

// killWait bounds the wait after SIGKILL so StopAll always returns.
const killWait = 2 * time.Second

// Exit describes a process the supervisor found terminated on its own.
type Exit struct {
	Key    Key
	Clean  bool
	Reason string
}

// StopResult reports the outcome of stopping one process. Active is false
// when there was nothing to stop (idempotent). Clean is true when the process
// ended without requiring SIGKILL.
type StopResult struct {
	Active bool
	Clean  bool
	Reason string
}

// StopOutcome pairs a key with its StopAll result.
type StopOutcome struct {
	Key    Key
	Result StopResult
}

// ProcessSupervisor is the process-control surface the manager drives. It is
// satisfied by Supervisor and by test fakes.
type ProcessSupervisor interface {
	Start(key Key, argv []string) error
	Poll() []Exit
	Stop(key Key) StopResult
	StopAll() []StopOutcome
}

type procHandle struct {
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error // written before done is closed
}

// Supervisor owns the running forward processes, one per active key. It never
// blocks on a running process outside of Stop's bounded grace window.
type Supervisor struct {
	mu    sync.Mutex
	procs map[Key]*procHandle

	// Grace is the SIGTERM-to-SIGKILL escalation window.
	Grace time.Duration
}

func NewSupervisor() *Supervisor {
	return &Supervisor{
		procs: make(map[Key]*procHandle),
		Grace: DefaultGrace,
	}
}

// Start launches argv as a detached long-running process for key. It returns
// once the process has been spawned; it never waits for completion.
func (s *Supervisor) Start(key Key, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command for %s", key)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	// own process group, so stop can signal the whole tree
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	h := &procHandle{cmd: cmd, done: make(chan struct{})}

	// claim the key before spawning, so concurrent starts on one key can
	// never both launch a process
	s.mu.Lock()
	if _, exists := s.procs[key]; exists {
		s.mu.Unlock()
		return fmt.Errorf("forward %s already has a running process", key)
	}
	s.procs[key] = h
	s.mu.Unlock()

	if err := cmd.Start(); err != nil {
		s.mu.Lock()
		delete(s.procs, key)
		s.mu.Unlock()
		logging.LogError("Failed to start forward process for %s: %v", key, err)
		return fmt.Errorf("starting forward process: %w", err)
	}

	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()

	logging.LogDebug("Started forward process for %s (PID %d)", key, cmd.Process.Pid)
	return nil
}

// Poll reaps processes that exited on their own. Non-blocking; safe to call
// on every UI tick.
func (s *Supervisor) Poll() []Exit {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exits []Exit
	for key, h := range s.procs {
		select {
		case <-h.done:
			exit := Exit{Key: key, Clean: h.waitErr == nil}
			if h.waitErr == nil {
				exit.Reason = "process exited"
			} else {
				exit.Reason = fmt.Sprintf("process exited: %v", h.waitErr)
			}
			delete(s.procs, key)
			logging.LogDebug("Poll: forward %s terminated (%s)", key, exit.Reason)
			exits = append(exits, exit)
		default:
		}
	}
	return exits
}

// Running reports whether a process is tracked for key.
func (s *Supervisor) Running(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.procs[key]
	return exists
}

// Stop requests graceful termination and escalates to SIGKILL after the grace
// period. It blocks at most Grace + killWait. Stopping an already-reaped
// process reports a clean stop.
func (s *Supervisor) Stop(key Key) StopResult {
	s.mu.Lock()
	h, exists := s.procs[key]
	if !exists {
		s.mu.Unlock()
		logging.LogDebug("Stop: no process tracked for %s", key)
		return StopResult{Active: false}
	}
	// claim the handle so Poll cannot double-report this key
	delete(s.procs, key)
	s.mu.Unlock()

	select {
	case <-h.done:
		return StopResult{Active: true, Clean: true, Reason: "process already exited"}
	default:
	}

	grace := s.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}

	signalGroup(h.cmd, syscall.SIGTERM)
	select {
	case <-h.done:
		logging.LogDebug("Stop: forward %s terminated gracefully", key)
		return StopResult{Active: true, Clean: true, Reason: "stopped"}
	case <-time.After(grace):
	}

	signalGroup(h.cmd, syscall.SIGKILL)
	select {
	case <-h.done:
		logging.LogDebug("Stop: forward %s required SIGKILL", key)
		return StopResult{Active: true, Clean: false, Reason: "forced stop after grace period"}
	case <-time.After(killWait):
		logging.LogError("Stop: forward %s unresponsive after SIGKILL", key)
		return StopResult{Active: true, Clean: false, Reason: "process unresponsive after forced stop"}
	}
}

// StopAll stops every tracked process and returns only after each one has
// been asked to stop and its grace window has elapsed.
func (s *Supervisor) StopAll() []StopOutcome {
	s.mu.Lock()
	keys := make([]Key, 0, len(s.procs))
	for key := range s.procs {
		keys = append(keys, key)
	}
	s.mu.Unlock()

	outcomes := make([]StopOutcome, 0, len(keys))
	for _, key := range keys {
		outcomes = append(outcomes, StopOutcome{Key: key, Result: s.Stop(key)})
	}
	return outcomes
}

// signalGroup signals the whole process group, falling back to the process
// itself when the group is gone.
func signalGroup(cmd *exec.Cmd, sig syscall.Signal) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, sig); err != nil {
		_ = cmd.Process.Signal(sig)
	}
}
