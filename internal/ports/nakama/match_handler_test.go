package nakama

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/heroiclabs/nakama-common/runtime"

	"duelsol/internal/domain"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy
// the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// mockPresence is a minimal runtime.Presence for driving the handler.
type mockPresence struct {
	userID string
}

func (p *mockPresence) GetUserId() string                 { return p.userID }
func (p *mockPresence) GetSessionId() string              { return "session-" + p.userID }
func (p *mockPresence) GetNodeId() string                 { return "node" }
func (p *mockPresence) GetHidden() bool                   { return false }
func (p *mockPresence) GetPersistence() bool              { return true }
func (p *mockPresence) GetUsername() string               { return p.userID }
func (p *mockPresence) GetStatus() string                 { return "" }
func (p *mockPresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }

// mockMatchData is a client message addressed to the handler.
type mockMatchData struct {
	mockPresence
	opCode int64
	data   []byte
}

func (d *mockMatchData) GetOpCode() int64      { return d.opCode }
func (d *mockMatchData) GetData() []byte       { return append([]byte(nil), d.data...) }
func (d *mockMatchData) GetReliable() bool     { return true }
func (d *mockMatchData) GetReceiveTime() int64 { return 0 }

type sentMessage struct {
	opCode  int64
	data    []byte
	targets []runtime.Presence
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	messages     []sentMessage
	labelUpdates int
	lastLabel    string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.messages = append(md.messages, sentMessage{
		opCode:  opCode,
		data:    append([]byte(nil), data...),
		targets: presences,
	})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	md.lastLabel = label
	return nil
}

func (md *mockDispatcher) lastOf(opCode int64) *sentMessage {
	for i := len(md.messages) - 1; i >= 0; i-- {
		if md.messages[i].opCode == opCode {
			return &md.messages[i]
		}
	}
	return nil
}

func (md *mockDispatcher) countOf(opCode int64) int {
	n := 0
	for _, m := range md.messages {
		if m.opCode == opCode {
			n++
		}
	}
	return n
}

func testCtx(env map[string]string) context.Context {
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_MATCH_ID, "test-match") //nolint:staticcheck
	if env != nil {
		ctx = context.WithValue(ctx, runtime.RUNTIME_CTX_ENV, env) //nolint:staticcheck
	}
	return ctx
}

func initHandler(t *testing.T, env map[string]string) (*matchHandler, *MatchState, context.Context) {
	t.Helper()
	mh := &matchHandler{}
	ctx := testCtx(env)
	raw, tickRate, label := mh.MatchInit(ctx, noopLogger{}, nil, nil, map[string]interface{}{"seed": "port-test"})
	if raw == nil {
		t.Fatal("MatchInit returned nil state")
	}
	if tickRate != 1 {
		t.Fatalf("tickRate = %d, want 1", tickRate)
	}
	var ml matchLabel
	if err := json.Unmarshal([]byte(label), &ml); err != nil {
		t.Fatalf("label is not JSON: %v", err)
	}
	if ml.Open != 2 || ml.Phase != "lobby" || ml.Game != "duelsol" {
		t.Fatalf("unexpected initial label: %+v", ml)
	}
	return mh, raw.(*MatchState), ctx
}

func joinPlayers(t *testing.T, mh *matchHandler, ctx context.Context, state *MatchState, md *mockDispatcher, userIDs ...string) {
	t.Helper()
	presences := make([]runtime.Presence, 0, len(userIDs))
	for _, id := range userIDs {
		p := &mockPresence{userID: id}
		ok := false
		if _, allowed, _ := mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, md, state.Tick, state, p, nil); allowed {
			ok = true
		}
		if !ok {
			t.Fatalf("join attempt for %s denied", id)
		}
		presences = append(presences, p)
	}
	raw := mh.MatchJoin(ctx, noopLogger{}, nil, nil, md, state.Tick, state, presences)
	if raw == nil {
		t.Fatal("MatchJoin returned nil state")
	}
}

func TestMatchDealsWhenBothSeatsFill(t *testing.T) {
	mh, state, ctx := initHandler(t, nil)
	md := &mockDispatcher{}

	joinPlayers(t, mh, ctx, state, md, "host")
	if state.dealt() {
		t.Fatal("match dealt with one seat open")
	}

	joinPlayers(t, mh, ctx, state, md, "guest")
	if !state.dealt() {
		t.Fatal("match not dealt with both seats filled")
	}

	var ml matchLabel
	if err := json.Unmarshal([]byte(md.lastLabel), &ml); err != nil {
		t.Fatalf("label: %v", err)
	}
	if ml.Open != 0 || ml.Phase != "playing" {
		t.Fatalf("label after deal = %+v, want open=0 phase=playing", ml)
	}

	// every player got a private snapshot
	if md.countOf(OpSnapshot) < 2 {
		t.Fatalf("got %d snapshot sends, want at least one per player", md.countOf(OpSnapshot))
	}
	msg := md.lastOf(OpSnapshot)
	if len(msg.targets) != 1 {
		t.Fatalf("snapshot broadcast to %d targets, want private send", len(msg.targets))
	}
	var ev snapshotEvent
	if err := json.Unmarshal(msg.data, &ev); err != nil {
		t.Fatalf("snapshot event: %v", err)
	}
	if ev.Snapshot == nil || ev.Snapshot.MatchRev != 1 {
		t.Fatalf("snapshot event = %+v, want rev 1", ev.Snapshot)
	}
	if domain.DetectSchema(ev.Snapshot.State) != domain.SchemaV1Sided {
		t.Fatal("human duel should deal the dual-board schema")
	}
}

func TestJoinAttemptRejectsThirdPlayer(t *testing.T) {
	mh, state, ctx := initHandler(t, nil)
	md := &mockDispatcher{}
	joinPlayers(t, mh, ctx, state, md, "host", "guest")

	_, allowed, reason := mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, md, state.Tick, state, &mockPresence{userID: "third"}, nil)
	if allowed {
		t.Fatal("third player admitted to a full match")
	}
	if reason == "" {
		t.Fatal("expected a rejection reason")
	}

	// a returning player is always let back in
	_, allowed, _ = mh.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, md, state.Tick, state, &mockPresence{userID: "guest"}, nil)
	if !allowed {
		t.Fatal("returning guest denied")
	}
}

func TestHandleMoveAcceptAndReject(t *testing.T) {
	mh, state, ctx := initHandler(t, nil)
	md := &mockDispatcher{}
	joinPlayers(t, mh, ctx, state, md, "host", "guest")

	draw := []byte(`{"moveId":"mv-1","kind":"draw","from":{"zone":"stock","sideOwner":"you"}}`)
	msg := &mockMatchData{mockPresence: mockPresence{userID: "host"}, opCode: OpMove, data: draw}
	mh.MatchLoop(ctx, noopLogger{}, nil, nil, md, 1, state, []runtime.MatchData{msg})

	applied := md.lastOf(OpMoveApplied)
	if applied == nil {
		t.Fatal("no OpMoveApplied broadcast for a legal draw")
	}
	var appliedEv moveAppliedEvent
	if err := json.Unmarshal(applied.data, &appliedEv); err != nil {
		t.Fatalf("applied event: %v", err)
	}
	if appliedEv.Actor != "host" || appliedEv.Kind != domain.MoveDraw || appliedEv.MatchRev != 2 {
		t.Fatalf("applied event = %+v", appliedEv)
	}

	// a foundation move with nothing in the waste is illegal
	bad := []byte(`{"moveId":"mv-2","kind":"toFound","from":{"zone":"waste","sideOwner":"opp"}}`)
	msg = &mockMatchData{mockPresence: mockPresence{userID: "guest"}, opCode: OpMove, data: bad}
	mh.MatchLoop(ctx, noopLogger{}, nil, nil, md, 2, state, []runtime.MatchData{msg})

	rejected := md.lastOf(OpMoveRejected)
	if rejected == nil {
		t.Fatal("no OpMoveRejected sent for an illegal move")
	}
	if len(rejected.targets) != 1 || rejected.targets[0].GetUserId() != "guest" {
		t.Fatal("rejection must go to the sender only")
	}
	var rejectedEv moveRejectedEvent
	if err := json.Unmarshal(rejected.data, &rejectedEv); err != nil {
		t.Fatalf("rejected event: %v", err)
	}
	if rejectedEv.Reason != domain.ReasonFromEmpty {
		t.Fatalf("reason = %s, want %s", rejectedEv.Reason, domain.ReasonFromEmpty)
	}
	if rejectedEv.Airbag == nil || rejectedEv.Airbag.MatchRev != 2 {
		t.Fatalf("airbag = %+v, want the authoritative rev-2 snapshot", rejectedEv.Airbag)
	}
	if count := md.countOf(OpMoveApplied); count != 1 {
		t.Fatalf("rejected move produced %d applied broadcasts, want 1 total", count)
	}
}

func TestReplaySendsSingleAcceptedResult(t *testing.T) {
	mh, state, ctx := initHandler(t, nil)
	md := &mockDispatcher{}
	joinPlayers(t, mh, ctx, state, md, "host", "guest")

	draw := []byte(`{"moveId":"dup","kind":"draw","from":{"zone":"stock","sideOwner":"you"}}`)
	for tick := int64(1); tick <= 2; tick++ {
		msg := &mockMatchData{mockPresence: mockPresence{userID: "host"}, opCode: OpMove, data: draw}
		mh.MatchLoop(ctx, noopLogger{}, nil, nil, md, tick, state, []runtime.MatchData{msg})
	}

	applied := md.lastOf(OpMoveApplied)
	var ev moveAppliedEvent
	if err := json.Unmarshal(applied.data, &ev); err != nil {
		t.Fatalf("applied event: %v", err)
	}
	if !ev.Replayed {
		t.Fatal("second submission of the same move id must be flagged as replayed")
	}
	if ev.MatchRev != 2 {
		t.Fatalf("replay advanced the revision to %d", ev.MatchRev)
	}
}

func TestNewGameRequiresHost(t *testing.T) {
	mh, state, ctx := initHandler(t, nil)
	md := &mockDispatcher{}
	joinPlayers(t, mh, ctx, state, md, "host", "guest")

	msg := &mockMatchData{mockPresence: mockPresence{userID: "guest"}, opCode: OpRequestNewGame}
	mh.MatchLoop(ctx, noopLogger{}, nil, nil, md, 1, state, []runtime.MatchData{msg})
	if md.lastOf(OpMatchReset) != nil {
		t.Fatal("guest triggered a reset")
	}
	if md.lastOf(OpError) == nil {
		t.Fatal("guest got no error for an unauthorized reset")
	}

	msg = &mockMatchData{mockPresence: mockPresence{userID: "host"}, opCode: OpRequestNewGame, data: []byte(`{"seed":"round-2"}`)}
	mh.MatchLoop(ctx, noopLogger{}, nil, nil, md, 2, state, []runtime.MatchData{msg})
	reset := md.lastOf(OpMatchReset)
	if reset == nil {
		t.Fatal("host reset produced no OpMatchReset")
	}
	var ev map[string]interface{}
	if err := json.Unmarshal(reset.data, &ev); err != nil {
		t.Fatalf("reset event: %v", err)
	}
	if ev["seed"] != "round-2" {
		t.Fatalf("reset seed = %v", ev["seed"])
	}
}

func TestBotFillsSeatAndPlays(t *testing.T) {
	env := map[string]string{
		"duelsol_bots_enabled":       "true",
		"duelsol_bot_fill_delay_sec": "1",
		"duelsol_bot_delay_sec":      "1",
	}
	mh, state, ctx := initHandler(t, env)
	md := &mockDispatcher{}
	joinPlayers(t, mh, ctx, state, md, "host")

	for tick := int64(1); tick <= 10; tick++ {
		raw := mh.MatchLoop(ctx, noopLogger{}, nil, nil, md, tick, state, nil)
		if raw == nil {
			t.Fatalf("match terminated at tick %d", tick)
		}
	}

	if state.Bot == nil {
		t.Fatal("bot never took the open seat")
	}
	if !state.dealt() {
		t.Fatal("bot match never dealt")
	}
	m, err := state.App.Store().Get(state.MatchID)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if domain.DetectSchema(m.Snapshot.State) != domain.SchemaLegacyRoot {
		t.Fatal("bot-backed match should deal the legacy single board")
	}

	applied := md.lastOf(OpMoveApplied)
	if applied == nil {
		t.Fatal("bot made no moves within the tick budget")
	}
	var ev moveAppliedEvent
	if err := json.Unmarshal(applied.data, &ev); err != nil {
		t.Fatalf("applied event: %v", err)
	}
	if ev.Actor != state.Bot.ID {
		t.Fatalf("last move by %s, want bot %s", ev.Actor, state.Bot.ID)
	}
}

func TestMatchSignalReturnsCanonicalSnapshot(t *testing.T) {
	mh, state, ctx := initHandler(t, nil)
	md := &mockDispatcher{}
	joinPlayers(t, mh, ctx, state, md, "host", "guest")

	_, payload := mh.MatchSignal(ctx, noopLogger{}, nil, nil, md, 1, state, "")
	var ev snapshotEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		t.Fatalf("signal payload: %v", err)
	}
	if ev.MatchID != state.MatchID || ev.Snapshot == nil {
		t.Fatalf("signal payload = %+v", ev)
	}
}

func TestMatchLeaveBroadcastsDeparture(t *testing.T) {
	mh, state, ctx := initHandler(t, nil)
	md := &mockDispatcher{}
	joinPlayers(t, mh, ctx, state, md, "host", "guest")

	raw := mh.MatchLeave(ctx, noopLogger{}, nil, nil, md, state.Tick, state, []runtime.Presence{&mockPresence{userID: "guest"}})
	if raw == nil {
		t.Fatal("match terminated with a human still seated")
	}

	msg := md.lastOf(OpPlayerLeft)
	if msg == nil {
		t.Fatal("no OpPlayerLeft broadcast after a player left")
	}
	var ev rosterEvent
	if err := json.Unmarshal(msg.data, &ev); err != nil {
		t.Fatalf("roster event: %v", err)
	}
	if len(ev.Left) != 1 || ev.Left[0] != "guest" {
		t.Fatalf("left = %v, want [guest]", ev.Left)
	}
	if ev.Seats[1] != "" {
		t.Fatalf("seat 1 = %q, want freed", ev.Seats[1])
	}

	var ml matchLabel
	if err := json.Unmarshal([]byte(md.lastLabel), &ml); err != nil {
		t.Fatalf("label: %v", err)
	}
	if ml.Open != 1 {
		t.Fatalf("label open = %d, want 1", ml.Open)
	}

	raw = mh.MatchLeave(ctx, noopLogger{}, nil, nil, md, state.Tick, state, []runtime.Presence{&mockPresence{userID: "host"}})
	if raw != nil {
		t.Fatal("match not terminated after the last human left")
	}
}
