package app

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreateAndGet(t *testing.T) {
	s := NewStore(time.Hour)

	m, err := s.Create("duel-1")
	require.NoError(t, err)
	assert.Equal(t, "duel-1", m.ID)
	assert.Equal(t, StatusLobby, m.Status)

	_, err = s.Create("duel-1")
	assert.ErrorIs(t, err, ErrMatchExists)

	got, err := s.Get("duel-1")
	require.NoError(t, err)
	assert.Same(t, m, got)

	_, err = s.Get("nope")
	assert.ErrorIs(t, err, ErrMatchNotFound)

	anon, err := s.Create("")
	require.NoError(t, err)
	assert.NotEmpty(t, anon.ID)
	assert.Equal(t, 2, s.Len())
}

func TestStoreSweepReclaimsIdleMatches(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(10 * time.Minute)
	s.now = func() time.Time { return clock }

	_, err := s.Create("stale")
	require.NoError(t, err)

	clock = clock.Add(5 * time.Minute)
	fresh, err := s.Create("fresh")
	require.NoError(t, err)

	clock = clock.Add(6 * time.Minute)
	removed := s.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())

	got, err := s.Get("fresh")
	require.NoError(t, err)
	assert.Same(t, fresh, got)

	_, err = s.Get("stale")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestRecentMovesBoundedFIFO(t *testing.T) {
	r := newRecentMoves(3)

	for i := 0; i < 4; i++ {
		r.Add(fmt.Sprintf("mv-%d", i))
	}
	assert.False(t, r.Seen("mv-0"), "oldest id should be evicted at cap")
	for i := 1; i < 4; i++ {
		assert.True(t, r.Seen(fmt.Sprintf("mv-%d", i)))
	}

	// re-adding a present id must not grow the window
	r.Add("mv-3")
	assert.Len(t, r.order, 3)

	r.Add("")
	assert.False(t, r.Seen(""))
}

func TestMatchSideOf(t *testing.T) {
	m := &Match{Players: [2]string{"host", "guest"}}
	assert.Equal(t, "host", m.HostID())
	assert.Equal(t, "guest", m.GuestID())
	assert.Equal(t, "you", string(m.sideOf("host")))
	assert.Equal(t, "opp", string(m.sideOf("guest")))
	assert.Equal(t, "opp", string(m.sideOf("stranger")))
}
