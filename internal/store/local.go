// internal/store/local.go
package store

import (
	"strings"
	"sync"
)

// Local keeps the registry in memory.
type Local struct {
	genesis string
	nodes   []string
	mu      sync.RWMutex
}

func NewLocal() *Local {
	return &Local{}
}

func (s *Local) Save(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.genesis = strings.TrimSpace(address)
	return nil
}

func (s *Local) Load() (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.genesis, s.genesis != "", nil
}

func (s *Local) SaveList(addresses []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = cleanList(addresses)
	return nil
}

func (s *Local) LoadList() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.nodes))
	copy(out, s.nodes)
	return out, nil
}

func (s *Local) Close() error { return nil }
