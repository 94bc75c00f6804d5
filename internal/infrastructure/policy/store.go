package policy

import (
	"sync/atomic"

	"parkalert/internal/domain/parking"
	"parkalert/internal/ports"
)

// Store holds the policy in force. Readers never block a reload.
type Store struct {
	current atomic.Pointer[parking.Policy]
}

var _ ports.PolicySource = (*Store)(nil)

func NewStore(initial parking.Policy) *Store {
	s := &Store{}
	s.Swap(initial)
	return s
}

func (s *Store) Current() parking.Policy {
	p := s.current.Load()
	if p == nil {
		return parking.DefaultPolicy()
	}
	return *p
}

func (s *Store) Swap(p parking.Policy) {
	s.current.Store(&p)
}
