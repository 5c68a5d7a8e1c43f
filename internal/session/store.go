package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/quantview/internal/core"
)

// GaugeRecorder tracks the live session count. *metrics.Registry satisfies it.
type GaugeRecorder interface {
	SetSessionsActive(count int)
}

type entry struct {
	coord    *Coordinator
	lastSeen time.Time
}

// Store keeps coordinators in memory, keyed by session id.
type Store struct {
	sessions map[string]*entry
	order    []string // Track insertion order for eviction
	maxSize  int
	ttl      time.Duration
	factory  func() *Coordinator
	recorder GaugeRecorder
	now      func() time.Time
	mu       sync.Mutex
}

// NewStore creates a session store. factory builds a fresh coordinator for
// each new session. A ttl of zero disables idle expiry.
func NewStore(maxSize int, ttl time.Duration, factory func() *Coordinator) *Store {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Store{
		sessions: make(map[string]*entry),
		order:    make([]string, 0, maxSize),
		maxSize:  maxSize,
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
	}
}

// SetRecorder sets the gauge updated on every size change.
func (s *Store) SetRecorder(r GaugeRecorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = r
}

// Create starts a new session and returns its id.
func (s *Store) Create() (string, *Coordinator) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	// Evict oldest if at capacity
	for len(s.sessions) >= s.maxSize && len(s.order) > 0 {
		oldest := s.order[0]
		delete(s.sessions, oldest)
		s.order = s.order[1:]
	}

	id := uuid.NewString()
	coord := s.factory()
	s.sessions[id] = &entry{coord: coord, lastSeen: s.now()}
	s.order = append(s.order, id)
	s.reportLocked()

	return id, coord
}

// Get returns the coordinator for id and marks the session as used.
func (s *Store) Get(id string) (*Coordinator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok || s.expiredLocked(e) {
		return nil, core.ErrSessionNotFound
	}
	e.lastSeen = s.now()
	return e.coord, nil
}

// GetOrCreate returns the session for id, creating a new one when id is
// unknown or expired. The returned id is the one to hand back to the client.
func (s *Store) GetOrCreate(id string) (string, *Coordinator, bool) {
	if id != "" {
		if coord, err := s.Get(id); err == nil {
			return id, coord, false
		}
	}
	newID, coord := s.Create()
	return newID, coord, true
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *Store) sweepLocked() int {
	if s.ttl <= 0 {
		return 0
	}
	removed := 0
	kept := s.order[:0]
	for _, id := range s.order {
		e, ok := s.sessions[id]
		if !ok {
			continue
		}
		if s.expiredLocked(e) {
			delete(s.sessions, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	if removed > 0 {
		s.reportLocked()
	}
	return removed
}

func (s *Store) expiredLocked(e *entry) bool {
	return s.ttl > 0 && s.now().Sub(e.lastSeen) > s.ttl
}

func (s *Store) reportLocked() {
	if s.recorder != nil {
		s.recorder.SetSessionsActive(len(s.sessions))
	}
}
