package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"duelsol/internal/domain"
)

// Snapshot is an immutable record of canonical state at a point in time.
// The hash is a content fingerprint used for change-correlation logging, not
// security; projected (guest) snapshots keep the canonical hash so both
// players correlate against the same fingerprint.
type Snapshot struct {
	State        *domain.GameState `json:"state"`
	Seed         string            `json:"seed"`
	SnapshotHash string            `json:"snapshotHash"`
	MatchRev     int64             `json:"matchRev"`
	At           int64             `json:"at"`
}

// InitOptions configures the first deal of a match.
type InitOptions struct {
	Seed    string
	WithBot bool
	Mode    domain.ShuffleMode
}

// ValidateResult is the read-only verdict over a proposed move.
type ValidateResult struct {
	OK     bool            `json:"ok"`
	Reason domain.Reason   `json:"reason,omitempty"`
	Kind   domain.MoveKind `json:"kind"`
	Actor  string          `json:"actor"`
}

// MoveMeta carries transport context for a raw apply.
type MoveMeta struct {
	Actor string
	Sys   bool
}

// ApplyResult reports a raw apply against canonical state.
type ApplyResult struct {
	OK                      bool
	Reason                  domain.Reason
	State                   *domain.GameState
	ResolvedFoundationIndex int
}

// CommitResult is the outcome of the composed validate-and-apply entry
// point. On rejection Airbag carries the current authoritative snapshot so a
// drifted client can re-sync instead of guessing.
type CommitResult struct {
	OK                      bool          `json:"ok"`
	Reason                  domain.Reason `json:"reason,omitempty"`
	Rejected                bool          `json:"rejected,omitempty"`
	Replayed                bool          `json:"replayed,omitempty"`
	ResolvedFoundationIndex int           `json:"resolvedFoundationIndex"`
	Snapshot                *Snapshot     `json:"-"`
	Airbag                  *Snapshot     `json:"-"`
}

// Service exposes the authoritative match-state engine: deal, validate,
// apply, snapshot and invariant checking over the matches in a Store.
type Service struct {
	store  *Store
	logger runtime.Logger
	now    func() time.Time
}

// NewService builds a Service. A nil logger is replaced with a no-op one.
func NewService(store *Store, logger runtime.Logger) *Service {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Store returns the underlying match directory.
func (s *Service) Store() *Store { return s.store }

// CreateMatch registers a new match, generating an id when empty.
func (s *Service) CreateMatch(id string) (*Match, error) {
	return s.store.Create(id)
}

// JoinPlayer seats a player (or the bot) in the match. Seat 0 is the host.
func (s *Service) JoinPlayer(matchID, userID string, isBot bool) (int, error) {
	m, err := s.store.Get(matchID)
	if err != nil {
		return -1, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, seat := range m.Players {
		if seat == userID {
			return i, nil
		}
	}
	for i := range m.Players {
		if m.Players[i] == "" {
			m.Players[i] = userID
			if isBot {
				m.BotID = userID
			}
			m.lastActive = s.now()
			return i, nil
		}
	}
	return -1, ErrMatchFull
}

// LeavePlayer frees a seat. State and revision are untouched; an abandoned
// match is reclaimed by the TTL sweep.
func (s *Service) LeavePlayer(matchID, userID string) {
	m, err := s.store.Get(matchID)
	if err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, seat := range m.Players {
		if seat == userID {
			m.Players[i] = ""
			if m.BotID == userID {
				m.BotID = ""
			}
		}
	}
}

// EnsureInitialSnapshot deals the first authoritative snapshot if the match
// has none yet, and returns the current snapshot either way. Bot-backed
// matches deal the legacy single 52-card board; human duels deal dual
// 104-card boards.
func (s *Service) EnsureInitialSnapshot(matchID string, opts InitOptions) *Snapshot {
	m, err := s.store.Get(matchID)
	if err != nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Snapshot != nil {
		return m.Snapshot
	}
	seed := opts.Seed
	if seed == "" {
		seed = m.ID
	}
	mode := opts.Mode
	if mode == "" {
		mode = domain.ShuffleSplit
	}
	s.dealLocked(m, seed, mode, opts.WithBot || m.BotID != "")
	return m.Snapshot
}

// ResetMatch re-deals a match in place, keeping the roster. This is an
// authoritative action and bumps the revision.
func (s *Service) ResetMatch(matchID, seed string) *Snapshot {
	m, err := s.store.Get(matchID)
	if err != nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if seed == "" {
		seed = fmt.Sprintf("%s/%d", m.ID, m.Rev)
	}
	s.dealLocked(m, seed, m.Mode, m.BotID != "")
	return m.Snapshot
}

func (s *Service) dealLocked(m *Match, seed string, mode domain.ShuffleMode, withBot bool) {
	if withBot {
		m.state = domain.DealLegacy(seed)
	} else {
		m.state = domain.DealSided(seed, mode)
	}
	m.Seed = seed
	m.Mode = mode
	m.Status = StatusPlaying
	m.Corrupt = false
	m.expected = domain.CollectCardIDs(m.state)
	m.Rev++
	m.Snapshot = s.snapshotLocked(m)
	report := domain.ValidateInvariant(m.state, m.expected)
	m.LastInvariant = &report
	m.lastActive = s.now()
	s.logger.Info("deal: match=%s rev=%d schema=%s cards=%d hash=%s",
		m.ID, m.Rev, domain.DetectSchema(m.state), report.Total, report.Hash)
}

func (s *Service) snapshotLocked(m *Match) *Snapshot {
	return &Snapshot{
		State:        m.state,
		Seed:         m.Seed,
		SnapshotHash: domain.SnapshotHash(m.state),
		MatchRev:     m.Rev,
		At:           s.now().UnixMilli(),
	}
}

// ValidateMove runs the read-only predicate against the canonical state.
func (s *Service) ValidateMove(matchID string, mv *domain.Move, actor string) ValidateResult {
	res := ValidateResult{Actor: actor}
	if mv != nil {
		res.Kind = mv.Kind
	}
	m, err := s.store.Get(matchID)
	if err != nil {
		res.Reason = domain.ReasonStateMissing
		return res
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		res.Reason = domain.ReasonStateMissing
		return res
	}
	if reason := domain.Validate(m.state, mv); reason != domain.ReasonNone {
		res.Reason = reason
		return res
	}
	res.OK = true
	return res
}

// ApplyMove mutates canonical state without touching the revision clock,
// replay cache or snapshot. Transport code should call
// ValidateAndApplyMove instead; this raw form exists for the composed path
// and direct engine exercises.
func (s *Service) ApplyMove(matchID string, mv *domain.Move, meta MoveMeta) ApplyResult {
	m, err := s.store.Get(matchID)
	if err != nil {
		return ApplyResult{Reason: domain.ReasonStateMissing, ResolvedFoundationIndex: -1}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return s.applyLocked(m, mv)
}

func (s *Service) applyLocked(m *Match, mv *domain.Move) ApplyResult {
	if m.state == nil {
		return ApplyResult{Reason: domain.ReasonStateMissing, ResolvedFoundationIndex: -1}
	}
	out := domain.Apply(m.state, mv)
	if !out.OK() {
		return ApplyResult{Reason: out.Reason, ResolvedFoundationIndex: -1}
	}
	m.lastActive = s.now()
	return ApplyResult{OK: true, State: m.state, ResolvedFoundationIndex: out.ResolvedFoundationIndex}
}

// ValidateAndApplyMove is the composed, side-effecting entry point:
// replay detection, validation, revision bump, apply, conservation check and
// snapshot refresh happen as one unit under the match lock.
func (s *Service) ValidateAndApplyMove(matchID string, mv *domain.Move, actor string, sys bool) CommitResult {
	res := CommitResult{ResolvedFoundationIndex: -1}
	m, err := s.store.Get(matchID)
	if err != nil {
		res.Reason = domain.ReasonStateMissing
		return res
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		res.Reason = domain.ReasonStateMissing
		return res
	}

	if mv != nil && mv.MoveID != "" && m.recent.Seen(mv.MoveID) {
		res.OK = true
		res.Replayed = true
		res.Snapshot = m.Snapshot
		return res
	}

	if reason := domain.Validate(m.state, mv); reason != domain.ReasonNone {
		res.Reason = reason
		res.Rejected = true
		res.Airbag = m.Snapshot
		if sys {
			// System-originated moves are pre-validated by their producer,
			// so a rejection here is worth surfacing.
			s.logger.Warn("reject sys move: match=%s rev=%d actor=%s kind=%s reason=%s",
				m.ID, m.Rev, actor, moveKind(mv), reason)
		} else {
			s.logger.Debug("reject: match=%s rev=%d actor=%s kind=%s reason=%s",
				m.ID, m.Rev, actor, moveKind(mv), reason)
		}
		return res
	}

	// Revision bumps strictly before the apply so every snapshot carries a
	// monotonically increasing logical version.
	m.Rev++
	out := domain.Apply(m.state, mv)
	if !out.OK() {
		res.Reason = out.Reason
		res.Rejected = true
		res.Airbag = m.Snapshot
		s.logger.Error("apply failed after validate: match=%s rev=%d kind=%s reason=%s",
			m.ID, m.Rev, moveKind(mv), out.Reason)
		return res
	}

	if report := domain.CheckConservation(m.state, m.expected); !report.OK {
		m.Corrupt = true
		s.logger.Warn("conservation violated: match=%s rev=%d actor=%s kind=%s reason=%s dup=%v missing=%v unknown=%v zones=[%s]",
			m.ID, m.Rev, actor, moveKind(mv), report.Reason,
			report.DuplicateIDs, report.MissingIDs, report.UnknownIDs, formatZones(report.Zones))
	}

	m.Snapshot = s.snapshotLocked(m)
	if mv.MoveID != "" {
		m.recent.Add(mv.MoveID)
	}
	m.lastActive = s.now()

	res.OK = true
	res.ResolvedFoundationIndex = out.ResolvedFoundationIndex
	res.Snapshot = m.Snapshot
	return res
}

// GetSnapshotForPlayer returns the current snapshot oriented for the
// requesting player: the host sees canonical state, the guest a
// perspective-swapped view.
func (s *Service) GetSnapshotForPlayer(matchID, playerID string) *Snapshot {
	m, err := s.store.Get(matchID)
	if err != nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Snapshot == nil {
		return nil
	}
	side := m.sideOf(playerID)
	if side == domain.SideYou {
		return m.Snapshot
	}
	view := *m.Snapshot
	view.State = domain.ProjectForSide(m.Snapshot.State, side)
	return &view
}

// CheckMatchInvariant runs the deep card-id scan on demand and records the
// report on the match. Corruption only ever sets the flag; the engine never
// repairs state on its own.
func (s *Service) CheckMatchInvariant(matchID string) *domain.InvariantReport {
	m, err := s.store.Get(matchID)
	if err != nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil
	}
	report := domain.ValidateInvariant(m.state, m.expected)
	m.LastInvariant = &report
	if !report.OK {
		m.Corrupt = true
		s.logger.Warn("invariant check failed: match=%s rev=%d reason=%s total=%d expected=%d hash=%s",
			m.ID, m.Rev, report.Reason, report.Total, report.Expected, report.Hash)
	}
	return &report
}

func moveKind(mv *domain.Move) domain.MoveKind {
	if mv == nil {
		return ""
	}
	return mv.Kind
}

func formatZones(zones []domain.ZoneCount) string {
	parts := make([]string, 0, len(zones))
	for _, z := range zones {
		parts = append(parts, fmt.Sprintf("%s=%d", z.Zone, z.Count))
	}
	return strings.Join(parts, " ")
}

// nopLogger satisfies runtime.Logger for callers that pass no logger.
type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{})                     {}
func (nopLogger) Info(string, ...interface{})                      {}
func (nopLogger) Warn(string, ...interface{})                      {}
func (nopLogger) Error(string, ...interface{})                     {}
func (nopLogger) WithField(string, interface{}) runtime.Logger     { return nopLogger{} }
func (nopLogger) WithFields(map[string]interface{}) runtime.Logger { return nopLogger{} }
func (nopLogger) Fields() map[string]interface{}                   { return nil }
