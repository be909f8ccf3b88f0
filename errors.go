package gesture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrStop is returned by a listener to stop its own registration from
	// participating in the rest of the episode.
	ErrStop = errors.New("gesture: stop listening")

	// ErrNotTerminal is returned by Event.StopPropagation when the match is
	// a continuing (non-terminal) one. Only Event.StopAll is allowed there.
	ErrNotTerminal = errors.New("gesture: can not stop propagation on an event not marked as end")

	// ErrPanic wraps a panic recovered from an identifier or listener.
	ErrPanic = errors.New("gesture: panic")

	// ErrClosed is reported when raw events reach a closed arbiter.
	ErrClosed = errors.New("gesture: arbiter is closed")
)

// Stage identifies where a fault happened.
type Stage uint8

const (
	StageIdentify Stage = iota // Identifier.Identify
	StageListener              // listener callback
)

// String returns the stage name.
func (s Stage) String() string {
	if s == StageListener {
		return "listener"
	}
	return "identify"
}

// Fault records a failure isolated to one registration. The registration is
// dropped for the rest of its episode; its siblings are unaffected.
type Fault struct {
	Episode      uuid.UUID
	Registration RegistrationID
	Identifier   string
	Stage        Stage
	Err          error
	Time         time.Time
}

// Error implements error.
func (f Fault) Error() string {
	return fmt.Sprintf("gesture: %s %q (registration %d): %v", f.Stage, f.Identifier, f.Registration, f.Err)
}

// Unwrap returns the underlying error.
func (f Fault) Unwrap() error { return f.Err }

// FaultLog is a bounded log of the most recent faults. When full the oldest
// entry is discarded.
type FaultLog struct {
	mu      sync.Mutex
	entries []Fault
	size    int
}

// NewFaultLog creates a log holding up to size faults. size < 1 means 1.
func NewFaultLog(size int) *FaultLog {
	if size < 1 {
		size = 1
	}
	return &FaultLog{size: size}
}

// Add appends f, evicting the oldest fault when the log is full.
func (l *FaultLog) Add(f Fault) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == l.size {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, f)
}

// Entries returns a copy of the logged faults, oldest first.
func (l *FaultLog) Entries() []Fault {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Fault, len(l.entries))
	copy(out, l.entries)
	return out
}

// Drain returns the logged faults and empties the log.
func (l *FaultLog) Drain() []Fault {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.entries
	l.entries = nil
	return out
}

// Len returns the number of logged faults.
func (l *FaultLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrPanic, r)
}
