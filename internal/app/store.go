package app

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"duelsol/internal/domain"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrMatchExists   = errors.New("match already exists")
	ErrMatchFull     = errors.New("match already has two players")
)

// MatchStatus is the lifecycle stage of a match.
type MatchStatus string

const (
	StatusLobby   MatchStatus = "lobby"
	StatusPlaying MatchStatus = "playing"
	StatusEnded   MatchStatus = "ended"
)

// DefaultRecentMoveCap bounds the per-match replay-detection cache.
const DefaultRecentMoveCap = 500

// Match owns everything about one duel: the canonical host-perspective
// state, the revision clock, the replay cache and the roster. All access to
// a match's internals happens under its mutex; no other component may keep a
// long-lived reference across calls.
type Match struct {
	ID      string
	Seed    string
	Status  MatchStatus
	Players [2]string // host, guest; empty string for an open seat
	BotID   string
	Mode    domain.ShuffleMode

	// Rev is a logical clock bumped exactly once per authoritative action
	// (deal, accepted apply, reset); passive reads never touch it.
	Rev           int64
	Snapshot      *Snapshot
	LastInvariant *domain.InvariantReport
	Corrupt       bool

	state      *domain.GameState
	expected   map[string]struct{}
	recent     *recentMoves
	lastActive time.Time
	mu         sync.Mutex
}

// HostID returns the host seat occupant.
func (m *Match) HostID() string { return m.Players[0] }

// GuestID returns the guest seat occupant.
func (m *Match) GuestID() string { return m.Players[1] }

// sideOf maps a player id onto its canonical board half. Anyone who is not
// the host, including the bot, lives on the opp half.
func (m *Match) sideOf(playerID string) domain.SideID {
	if playerID != "" && playerID == m.Players[0] {
		return domain.SideYou
	}
	return domain.SideOpp
}

// recentMoves is a bounded FIFO set of processed move ids. Resubmitting an
// id already present is recognized as a replay, not applied twice.
type recentMoves struct {
	cap   int
	order []string
	set   map[string]struct{}
}

func newRecentMoves(cap int) *recentMoves {
	if cap <= 0 {
		cap = DefaultRecentMoveCap
	}
	return &recentMoves{cap: cap, set: make(map[string]struct{}, cap)}
}

func (r *recentMoves) Seen(id string) bool {
	_, ok := r.set[id]
	return ok
}

func (r *recentMoves) Add(id string) {
	if id == "" || r.Seen(id) {
		return
	}
	if len(r.order) >= r.cap {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.set, oldest)
	}
	r.order = append(r.order, id)
	r.set[id] = struct{}{}
}

// Store is the in-memory match directory. Matches are created on host
// request, looked up by id, and torn down by the TTL sweep; nothing here
// persists across process restarts.
type Store struct {
	mu      sync.RWMutex
	matches map[string]*Match
	ttl     time.Duration
	recent  int
	now     func() time.Time
}

// NewStore builds a Store reclaiming matches idle longer than ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		matches: make(map[string]*Match),
		ttl:     ttl,
		recent:  DefaultRecentMoveCap,
		now:     time.Now,
	}
}

// SetRecentMoveCap overrides the replay-cache bound for newly created
// matches.
func (s *Store) SetRecentMoveCap(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = n
}

// Create registers a new match. An empty id is replaced with a fresh UUID.
func (s *Store) Create(id string) (*Match, error) {
	if id == "" {
		id = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[id]; ok {
		return nil, ErrMatchExists
	}
	m := &Match{
		ID:         id,
		Status:     StatusLobby,
		recent:     newRecentMoves(s.recent),
		lastActive: s.now(),
	}
	s.matches[id] = m
	return m, nil
}

// Get looks a match up by id.
func (s *Store) Get(id string) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

// Remove drops a match from the directory.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, id)
}

// Len reports the number of live matches.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}

// Sweep reclaims matches idle past the TTL and returns how many were
// removed.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, m := range s.matches {
		m.mu.Lock()
		idle := m.lastActive.Before(cutoff)
		m.mu.Unlock()
		if idle {
			delete(s.matches, id)
			removed++
		}
	}
	return removed
}
