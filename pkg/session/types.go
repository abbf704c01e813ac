package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle state of a forward session. Stopped covers both
// "never started" and "cleanly ended".
type State string

const (
	StateStopped State = "stopped"
	StateActive  State = "active"
	StateErrored State = "errored"
)

// Reason strings attached to manager-initiated transitions.
const (
	ReasonCapabilityUnavailable = "capability unavailable"
	ReasonProcessLost           = "process lost on restart"
)

var (
	// ErrInvalidSpec rejects malformed forward specs before any state change
	ErrInvalidSpec = errors.New("invalid forward spec")
	// ErrNotFound reports an operation on a key the manager does not track
	ErrNotFound = errors.New("forward session not found")
	// ErrCapabilityUnavailable reports that the supervised capability (the
	// aws CLI) is missing, so sessions can only be previewed
	ErrCapabilityUnavailable = errors.New(ReasonCapabilityUnavailable)
)

// Key uniquely identifies a forward per instance.
type Key struct {
	InstanceID string
	Name       string
}

func (k Key) String() string {
	return k.InstanceID + "/" + k.Name
}

// ForwardSpec is a user-defined port mapping for one instance. Immutable once
// added; re-adding the same key is a no-op.
type ForwardSpec struct {
	InstanceID string
	Name       string
	RemotePort int
	LocalPort  int
	RemoteHost string // optional; empty means the instance itself
}

func (s ForwardSpec) Key() Key {
	return Key{InstanceID: s.InstanceID, Name: s.Name}
}

func (s ForwardSpec) Validate() error {
	if strings.TrimSpace(s.InstanceID) == "" {
		return fmt.Errorf("%w: empty instance id", ErrInvalidSpec)
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: empty forward name", ErrInvalidSpec)
	}
	if s.RemotePort < 1 || s.RemotePort > 65535 {
		return fmt.Errorf("%w: remote port %d out of range", ErrInvalidSpec, s.RemotePort)
	}
	if s.LocalPort < 1 || s.LocalPort > 65535 {
		return fmt.Errorf("%w: local port %d out of range", ErrInvalidSpec, s.LocalPort)
	}
	return nil
}

// ForwardSession is the runtime and durable record of one forward.
type ForwardSession struct {
	Spec      ForwardSpec
	State     State
	StartedAt time.Time
	EndedAt   *time.Time
	Command   string // display string of the last built command
	Reason    string // last termination/failure reason, empty if none
}

func (s ForwardSession) Key() Key {
	return s.Spec.Key()
}

// LastTransition is the timestamp used for most-recent-first ordering.
func (s ForwardSession) LastTransition() time.Time {
	if s.EndedAt != nil {
		return *s.EndedAt
	}
	return s.StartedAt
}

// Change is one observed state transition, emitted to the UI adapter and
// appended to the durable audit trail.
type Change struct {
	Key    Key
	From   State
	To     State
	At     time.Time
	Reason string
}

// Store is the durability contract the manager writes through. Implemented by
// the SQLite history store; a nil store means memory-only operation.
type Store interface {
	// Upsert replaces or inserts the latest record for the session's key.
	Upsert(sess ForwardSession) error
	// LoadAll returns the current record per key, newest transition first.
	// An empty instanceID returns records for every instance.
	LoadAll(instanceID string) ([]ForwardSession, error)
	// AppendEvent records one transition in the append-only audit trail.
	AppendEvent(change Change) error
}
