// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dase

import (
	"sync"

	"github.com/pkg/errors"
)

// A Session is the surface through which front ends drive an engine:
// configure once, then Step and SetRole repeatedly, then Snapshot to
// externalize results.
//
// A Session serializes all calls to its engine and is safe for concurrent use.
// The session owns its engine; Close disposes it.
//
type Session struct {
	mu sync.Mutex
	e  *Engine
}

// NewSession returns a session driving e. The session takes ownership of e.
//
func NewSession(e *Engine) *Session {
	return &Session{e: e}
}

// Configure (re)initializes the engine with n nodes. If roles are given, node
// i is assigned roles[i % len(roles)]; otherwise all nodes are Worker nodes.
//
// On error, the previous configuration is left intact.
//
func (s *Session) Configure(n int, roles ...Role) error {
	for i, r := range roles {
		if !r.Valid() {
			return errors.Errorf("configure: invalid role %v at position %d", r, i)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.e.Initialize(n); err != nil {
		return errors.WithMessage(err, "configure")
	}
	if len(roles) == 0 {
		return nil
	}
	_, err := s.e.PerformRoleSwitch(func(i int) Role { return roles[i%len(roles)] })
	return err
}

// Step runs one wave with the given base input and returns its aggregate
// output.
//
func (s *Session) Step(base float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.e.ExecuteWave(base)
}

// SetRole switches node i to role r.
//
func (s *Session) SetRole(i int, r Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.e.SetRole(i, r)
	return err
}

// SwitchRoles applies a role pattern to all nodes and returns the number of
// nodes whose role changed.
//
func (s *Session) SwitchRoles(pattern func(i int) Role) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.e.PerformRoleSwitch(pattern)
}

// Snapshot returns the index, role and value of every node, ordered by index.
// It returns nil after Close.
//
func (s *Session) Snapshot() []NodeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	// only fails once closed: the session lock rules out concurrent use.
	snap, _ := s.e.Snapshot()
	return snap
}

// Stats returns the engine counters, or zero Stats after Close.
//
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, _ := s.e.Stats()
	return st
}

// Len returns the configured node count.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.e.Len()
}

// Close disposes the session engine. Further calls fail with ErrDisposed, and
// Step panics with it.
//
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.e.Dispose()
}
