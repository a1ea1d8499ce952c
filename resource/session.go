package resource

import (
	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/value"
)

// Session scopes the borrows taken while converting one call's arguments.
// Every proxy resolved through it stays pinned until Close. A session is
// used by one goroutine at a time; handing it to the runtime thread after
// encoding is fine.
type Session struct {
	m     *Manager
	dones []func()
}

// Session starts a borrow scope.
func (m *Manager) Session() *Session {
	return &Session{m: m}
}

// Resolve acquires ref for the lifetime of the session.
func (s *Session) Resolve(ref *value.Ref) (engine.Value, error) {
	v, done, err := s.m.Acquire(ref)
	if err != nil {
		return nil, err
	}
	s.dones = append(s.dones, done)
	return v, nil
}

// Wrap issues a proxy for a runtime result.
func (s *Session) Wrap(v engine.Value) (*value.Ref, error) {
	return s.m.Wrap(v)
}

// Close returns every borrow taken by the session.
func (s *Session) Close() {
	for _, done := range s.dones {
		done()
	}
	s.dones = nil
}
