// Package master owns the process-wide master census table and the execute
// and merge operations that read and write it.
package master

import (
	"sync"

	"census-grid/census"
)

// Store is a single-slot, mutex-guarded holder for the master table. Every
// successful write bumps the version so writers can detect lost updates.
type Store struct {
	mu      sync.RWMutex
	table   census.Table
	set     bool
	version uint64
}

// NewStore returns an unset store.
func NewStore() *Store {
	return &Store{}
}

// Load returns a copy of the master table, its version and whether it is set.
func (s *Store) Load() (census.Table, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Clone(), s.version, s.set
}

// Len returns the number of rows in the master table.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.table)
}

// Replace overwrites the master table and returns the new version.
func (s *Store) Replace(t census.Table) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = t.Clone()
	s.set = true
	s.version++
	return s.version
}

// CompareAndSwap replaces the table only if the version is still the one
// the caller read.
func (s *Store) CompareAndSwap(version uint64, t census.Table) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version {
		return s.version, false
	}
	s.table = t.Clone()
	s.set = true
	s.version++
	return s.version, true
}

// loadOrReset returns a copy of the master table and its version. An unset or
// empty table is first replaced by fn's table under the same lock, so no
// writer can interleave between the check and the read.
func (s *Store) loadOrReset(fn func() census.Table) (census.Table, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reset := false
	if !s.set || len(s.table) == 0 {
		s.table = fn()
		s.set = true
		s.version++
		reset = true
	}
	return s.table.Clone(), s.version, reset
}

// Reset unsets the store.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = nil
	s.set = false
	s.version++
}
