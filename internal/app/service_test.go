package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duelsol/internal/domain"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewStore(time.Hour), nil)
}

// botMatch seats a human host against the bot and deals the legacy board.
func botMatch(t *testing.T, svc *Service, id string) *Match {
	t.Helper()
	m, err := svc.CreateMatch(id)
	require.NoError(t, err)
	_, err = svc.JoinPlayer(id, "host", false)
	require.NoError(t, err)
	_, err = svc.JoinPlayer(id, "bot-1", true)
	require.NoError(t, err)
	require.NotNil(t, svc.EnsureInitialSnapshot(id, InitOptions{Seed: "fixed"}))
	return m
}

// duelMatch seats two humans and deals the dual sided board.
func duelMatch(t *testing.T, svc *Service, id string) *Match {
	t.Helper()
	m, err := svc.CreateMatch(id)
	require.NoError(t, err)
	_, err = svc.JoinPlayer(id, "host", false)
	require.NoError(t, err)
	_, err = svc.JoinPlayer(id, "guest", false)
	require.NoError(t, err)
	require.NotNil(t, svc.EnsureInitialSnapshot(id, InitOptions{Seed: "fixed"}))
	return m
}

func drawMove(id string) *domain.Move {
	return &domain.Move{
		MoveID: id,
		Kind:   domain.MoveDraw,
		From:   &domain.ZoneRef{Zone: domain.ZoneStock, SideOwner: domain.SideYou},
	}
}

func TestJoinAndLeave(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateMatch("m")
	require.NoError(t, err)

	seat, err := svc.JoinPlayer("m", "alice", false)
	require.NoError(t, err)
	assert.Equal(t, 0, seat)

	seat, err = svc.JoinPlayer("m", "bot-1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, seat)

	// rejoining returns the held seat instead of failing
	seat, err = svc.JoinPlayer("m", "alice", false)
	require.NoError(t, err)
	assert.Equal(t, 0, seat)

	_, err = svc.JoinPlayer("m", "charlie", false)
	assert.ErrorIs(t, err, ErrMatchFull)

	m, err := svc.Store().Get("m")
	require.NoError(t, err)
	assert.Equal(t, "bot-1", m.BotID)

	svc.LeavePlayer("m", "bot-1")
	assert.Empty(t, m.GuestID())
	assert.Empty(t, m.BotID)

	seat, err = svc.JoinPlayer("m", "charlie", false)
	require.NoError(t, err)
	assert.Equal(t, 1, seat)
}

func TestEnsureInitialSnapshotSchemaSelection(t *testing.T) {
	svc := newTestService(t)

	bm := botMatch(t, svc, "vs-bot")
	assert.Equal(t, domain.SchemaLegacyRoot, domain.DetectSchema(bm.Snapshot.State))
	assert.Equal(t, int64(1), bm.Rev)
	assert.Equal(t, StatusPlaying, bm.Status)
	require.NotNil(t, bm.LastInvariant)
	assert.True(t, bm.LastInvariant.OK)
	assert.Equal(t, 52, bm.LastInvariant.Total)

	dm := duelMatch(t, svc, "vs-human")
	assert.Equal(t, domain.SchemaV1Sided, domain.DetectSchema(dm.Snapshot.State))
	assert.Equal(t, 104, dm.LastInvariant.Total)

	// repeated calls do not re-deal
	first := dm.Snapshot
	again := svc.EnsureInitialSnapshot("vs-human", InitOptions{Seed: "other"})
	assert.Same(t, first, again)
	assert.Equal(t, int64(1), dm.Rev)
	assert.Equal(t, "fixed", dm.Seed)
}

func TestValidateMove(t *testing.T) {
	svc := newTestService(t)
	botMatch(t, svc, "m")

	res := svc.ValidateMove("m", drawMove("v1"), "host")
	assert.True(t, res.OK)
	assert.Equal(t, domain.MoveDraw, res.Kind)
	assert.Equal(t, "host", res.Actor)

	bad := svc.ValidateMove("m", &domain.Move{Kind: domain.MoveToFound}, "host")
	assert.False(t, bad.OK)
	assert.Equal(t, domain.ReasonFromEmpty, bad.Reason)

	missing := svc.ValidateMove("nope", drawMove("v2"), "host")
	assert.Equal(t, domain.ReasonStateMissing, missing.Reason)
}

func TestValidateAndApplyBumpsRevisionPerAcceptedMove(t *testing.T) {
	svc := newTestService(t)
	m := botMatch(t, svc, "m")
	require.Equal(t, int64(1), m.Rev)

	res := svc.ValidateAndApplyMove("m", drawMove("mv-1"), "host", false)
	require.True(t, res.OK)
	assert.False(t, res.Rejected)
	assert.Equal(t, int64(2), res.Snapshot.MatchRev)

	res = svc.ValidateAndApplyMove("m", drawMove("mv-2"), "host", false)
	require.True(t, res.OK)
	assert.Equal(t, int64(3), res.Snapshot.MatchRev)
	assert.Equal(t, int64(3), m.Rev)
}

func TestValidateAndApplyReplayIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	m := botMatch(t, svc, "m")

	first := svc.ValidateAndApplyMove("m", drawMove("same-id"), "host", false)
	require.True(t, first.OK)
	wasteLen := len(m.Snapshot.State.Waste)

	second := svc.ValidateAndApplyMove("m", drawMove("same-id"), "host", false)
	assert.True(t, second.OK)
	assert.True(t, second.Replayed)
	assert.Same(t, first.Snapshot, second.Snapshot)
	assert.Equal(t, int64(2), m.Rev)
	assert.Equal(t, wasteLen, len(m.Snapshot.State.Waste))
}

func TestValidateAndApplyRejectLeavesStateUntouched(t *testing.T) {
	svc := newTestService(t)
	m := botMatch(t, svc, "m")
	before := m.Snapshot
	hash := before.SnapshotHash

	// waste is empty right after a deal, so a foundation move has no source
	res := svc.ValidateAndApplyMove("m", &domain.Move{MoveID: "bad-1", Kind: domain.MoveToFound}, "host", false)
	assert.False(t, res.OK)
	assert.True(t, res.Rejected)
	assert.Equal(t, domain.ReasonFromEmpty, res.Reason)
	assert.Same(t, before, res.Airbag, "rejection carries the authoritative snapshot for re-sync")

	assert.Equal(t, int64(1), m.Rev)
	assert.Equal(t, hash, domain.SnapshotHash(m.state))
	assert.False(t, m.recent.Seen("bad-1"), "rejected ids must stay replayable")
}

func TestGetSnapshotForPlayerPerspective(t *testing.T) {
	svc := newTestService(t)
	m := duelMatch(t, svc, "m")

	host := svc.GetSnapshotForPlayer("m", "host")
	require.NotNil(t, host)
	assert.Same(t, m.Snapshot, host)

	guest := svc.GetSnapshotForPlayer("m", "guest")
	require.NotNil(t, guest)
	assert.NotSame(t, m.Snapshot, guest)
	assert.Equal(t, host.SnapshotHash, guest.SnapshotHash, "projected view keeps the canonical fingerprint")
	assert.Equal(t, host.MatchRev, guest.MatchRev)

	// the guest sees their own half under "you"
	require.NotNil(t, guest.State.You)
	assert.Equal(t, host.State.Opp.Stock, guest.State.You.Stock)
	assert.Equal(t, host.State.You.Stock, guest.State.Opp.Stock)

	// canonical state is untouched by projection
	assert.Equal(t, host.SnapshotHash, domain.SnapshotHash(m.state))
}

func TestResetMatchRedeals(t *testing.T) {
	svc := newTestService(t)
	m := botMatch(t, svc, "m")
	require.True(t, svc.ValidateAndApplyMove("m", drawMove("mv-1"), "host", false).OK)
	require.Equal(t, int64(2), m.Rev)

	snap := svc.ResetMatch("m", "round-2")
	require.NotNil(t, snap)
	assert.Equal(t, int64(3), snap.MatchRev)
	assert.Equal(t, "round-2", m.Seed)
	assert.Empty(t, m.state.Waste, "fresh deal starts with an empty waste")
	assert.False(t, m.Corrupt)
}

func TestCheckMatchInvariantFlagsCorruption(t *testing.T) {
	svc := newTestService(t)
	m := botMatch(t, svc, "m")

	report := svc.CheckMatchInvariant("m")
	require.NotNil(t, report)
	assert.True(t, report.OK)
	assert.False(t, m.Corrupt)

	// duplicate a stock card into the waste behind the engine's back
	m.mu.Lock()
	m.state.Waste = append(m.state.Waste, m.state.Stock[0])
	m.mu.Unlock()

	report = svc.CheckMatchInvariant("m")
	require.NotNil(t, report)
	assert.False(t, report.OK)
	assert.Equal(t, domain.ReasonDuplicateCardIDs, report.Reason)
	assert.True(t, m.Corrupt, "corruption is flagged, never auto-repaired")
}
