package platform

import "sync"

// SessionState is the lifecycle of one hotkey registration.
type SessionState int

const (
	Unregistered SessionState = iota
	Registering
	Registered
	Unregistering
)

func (s SessionState) String() string {
	switch s {
	case Registering:
		return "registering"
	case Registered:
		return "registered"
	case Unregistering:
		return "unregistering"
	default:
		return "unregistered"
	}
}

// StateReporter is implemented by backends that expose their session
// state for diagnostics.
type StateReporter interface {
	SessionState() SessionState
	// SessionBinding is the binding the session holds, or the zero
	// Binding while unregistered.
	SessionBinding() Binding
}

// SessionTracker records session transitions for a backend.
type SessionTracker struct {
	mu      sync.Mutex
	state   SessionState
	binding Binding
}

// Set moves the tracker to state for binding.
func (t *SessionTracker) Set(state SessionState, binding Binding) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	if state == Unregistered {
		t.binding = Binding{}
		return
	}
	t.binding = binding
}

// SessionState returns the current state.
func (t *SessionTracker) SessionState() SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Binding returns the binding of the current session, if any.
func (t *SessionTracker) Binding() Binding {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.binding
}
