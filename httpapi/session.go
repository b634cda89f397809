package httpapi

import (
	"sync"

	"pkt.systems/loopgate/schema"
)

// SessionState tracks a feedback session's lifecycle.
type SessionState int

const (
	// StateStarting covers setup before the listener is bound.
	StateStarting SessionState = iota
	// StateListening means the UI is reachable and feedback may be submitted.
	StateListening
	// StateSubmitted means feedback was accepted and the handoff file written.
	StateSubmitted
	// StateClosing means shutdown has begun.
	StateClosing
	// StateTerminated means the session is finished.
	StateTerminated
)

func (s SessionState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateSubmitted:
		return "submitted"
	case StateClosing:
		return "closing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// session guards the state machine. Submission is first-wins: once a
// submission is accepted every later attempt fails.
type session struct {
	mu    sync.Mutex
	state SessionState
}

func (s *session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) markListening() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStarting {
		s.state = StateListening
	}
}

// submit transitions Listening -> Submitted.
func (s *session) submit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateListening:
		s.state = StateSubmitted
		return nil
	case StateStarting:
		return schema.ErrInvalidRequest
	default:
		return schema.ErrAlreadySubmitted
	}
}

// rollback returns to Listening after a failed handoff write.
func (s *session) rollback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitted {
		s.state = StateListening
	}
}

func (s *session) beginClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateTerminated {
		s.state = StateClosing
	}
}

func (s *session) markTerminated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateTerminated
}
