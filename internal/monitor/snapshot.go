// Package monitor contains the reconciliation engine: the mode state machine
// that picks the authoritative data source, the progress aggregation that
// reduces raw signals to one status view, the deduplicated event stream, and
// the poll loop tying them together.
package monitor

import (
	"sync"
	"time"

	"github.com/agentmon/agentmon/internal/config"
)

// Snapshot is the single consistent status view the renderer depends on.
// It is immutable once produced; a new snapshot replaces the old one
// atomically.
type Snapshot struct {
	// Source is the data source this snapshot was computed from. Percent
	// values from different sources are never blended.
	Source Mode

	Status       string
	StatusDetail string
	Severity     config.Severity

	// Percent is 0-100. Within one source's lifetime it does not go
	// backwards under normal operation; a source switch may reset the
	// basis.
	Percent int

	Units []UnitRow

	// Generation orders snapshots; the store refuses stale publishes.
	Generation uint64
	Taken      time.Time
}

// UnitRow is one monitored entity: a bootstrapping host early on, a joined
// node later. Ids from the two sources are unrelated.
type UnitRow struct {
	ID           string
	DisplayName  string
	Role         string // master|worker|unknown
	State        string
	DiskSummary  string
	ProgressText string

	// Validations groups the host's validation findings by category.
	// Populated from the orchestration API only.
	Validations map[string][]ValidationFinding
}

// ValidationFinding is one host validation check result.
type ValidationFinding struct {
	Category string
	CheckID  string
	Status   string // success|failure|error|pending
	Message  string
}

// Store holds the current snapshot and hands it to the renderer atomically.
// Background cycles publish with the generation they were started under;
// a cycle that was overtaken by a newer one is dropped, so the visible
// snapshot never moves backwards in generation order.
type Store struct {
	mu        sync.RWMutex
	current   *Snapshot
	published uint64
	started   uint64
}

// NewStore creates an empty snapshot store.
func NewStore() *Store {
	return &Store{}
}

// Begin reserves the generation for a poll cycle about to start.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
	return s.started
}

// Publish installs the snapshot unless a later cycle already published.
// Returns false when the snapshot was stale and dropped.
func (s *Store) Publish(snap *Snapshot, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation < s.published {
		return false
	}
	snap.Generation = generation
	s.published = generation
	s.current = snap
	return true
}

// Current returns the latest snapshot, nil before the first publish.
func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
