package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/heroiclabs/nakama-common/runtime"

	"duelsol/internal/app"
	"duelsol/internal/bot"
	"duelsol/internal/config"
	"duelsol/internal/domain"
)

const (
	MatchLabelKey_OpenSeats = "open" // Key for the open seats in the match label

	// sweepEveryTicks spaces the idle-match TTL checks at the 1/s tick rate.
	sweepEveryTicks = 60
)

// matchLabel is the queryable JSON label kept up to date on the match.
type matchLabel struct {
	Open  int    `json:"open"`
	Game  string `json:"game"`
	Phase string `json:"phase"`
}

// rosterEvent announces seat changes. Left carries the departed user ids on
// OpPlayerLeft broadcasts.
type rosterEvent struct {
	Seats [2]string `json:"seats"`
	Host  string    `json:"host"`
	Bot   string    `json:"bot,omitempty"`
	Left  []string  `json:"left,omitempty"`
}

// snapshotEvent carries a perspective-projected snapshot to one player.
type snapshotEvent struct {
	MatchID  string        `json:"matchId"`
	Snapshot *app.Snapshot `json:"snapshot"`
}

// moveAppliedEvent announces an accepted move to both players.
type moveAppliedEvent struct {
	Actor                   string          `json:"actor"`
	Kind                    domain.MoveKind `json:"kind"`
	MoveID                  string          `json:"moveId,omitempty"`
	Replayed                bool            `json:"replayed,omitempty"`
	ResolvedFoundationIndex int             `json:"resolvedFoundationIndex"`
	MatchRev                int64           `json:"matchRev"`
}

// moveRejectedEvent goes back to the sender only, carrying the authoritative
// snapshot so a drifted client can re-sync.
type moveRejectedEvent struct {
	Reason domain.Reason `json:"reason"`
	MoveID string        `json:"moveId,omitempty"`
	Airbag *app.Snapshot `json:"airbag,omitempty"`
}

type errorEvent struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MatchState holds the authoritative runtime state for the Nakama match
// handler. The engine state itself lives behind the app service; this layer
// only tracks presences, the bot seat and tick bookkeeping.
type MatchState struct {
	MatchID   string
	Seats     [2]string // host, guest; empty string means the seat is open
	Presences map[string]runtime.Presence
	App       *app.Service
	Tick      int64

	Seed        string
	BotsEnabled bool
	// BotDelayTicks spaces bot moves; BotFillDelayTicks is how long a solo
	// human waits before a bot takes the open seat.
	BotDelayTicks     int64
	BotFillDelayTicks int64
	Bot               *bot.Agent

	soloSinceTick  int64
	botNextActTick int64
	botIdle        bool
	botRecycles    int
	lastSweepTick  int64
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetHumanPlayerCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" && !bot.IsBotID(seat) {
			count++
		}
	}
	return count
}

func (ms *MatchState) dealt() bool {
	m, err := ms.App.Store().Get(ms.MatchID)
	return err == nil && m.Snapshot != nil
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	if err := config.LoadEngineConfig("data/engine_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load engine config: %v", err)
	}

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)

	store := app.NewStore(config.MatchTTL())
	store.SetRecentMoveCap(config.RecentMoveCap())
	svc := app.NewService(store, logger)
	if _, err := svc.CreateMatch(matchID); err != nil {
		logger.Error("MatchInit: Failed to register match %s: %v", matchID, err)
		return nil, 0, ""
	}

	state := &MatchState{
		MatchID:           matchID,
		Presences:         make(map[string]runtime.Presence),
		App:               svc,
		BotsEnabled:       true,
		BotDelayTicks:     ticksFor(config.BotMoveDelay().Milliseconds()),
		BotFillDelayTicks: 5,
	}

	if seed, ok := params["seed"].(string); ok {
		state.Seed = seed
	}

	// Environment overrides for server operators.
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if val, ok := env["duelsol_bots_enabled"]; ok {
			state.BotsEnabled = val == "true"
		}
		if val, ok := env["duelsol_bot_delay_sec"]; ok {
			if i, err := strconv.Atoi(val); err == nil && i > 0 {
				state.BotDelayTicks = int64(i)
			}
		}
		if val, ok := env["duelsol_bot_fill_delay_sec"]; ok {
			if i, err := strconv.Atoi(val); err == nil && i > 0 {
				state.BotFillDelayTicks = int64(i)
			}
		}
		if val, ok := env["duelsol_seed"]; ok && state.Seed == "" {
			state.Seed = val
		}
	}

	label, err := labelBytes(state, "lobby")
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, string(label)
}

func ticksFor(delayMs int64) int64 {
	ticks := delayMs / 1000
	if ticks < 1 {
		ticks = 1
	}
	return ticks
}

func labelBytes(state *MatchState, phase string) ([]byte, error) {
	return json.Marshal(matchLabel{
		Open:  state.GetOpenSeatsCount(),
		Game:  "duelsol",
		Phase: phase,
	})
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Returning players always get their seat back.
	for _, seat := range matchState.Seats {
		if seat == presence.GetUserId() {
			return state, true, ""
		}
	}

	// An invitation token, when presented, must match this match.
	if token := metadata["token"]; token != "" {
		if secret := config.JoinTokenSecret(); secret != "" {
			ts := app.NewTokenService(secret, config.JoinTokenIssuer(), config.JoinTokenTTL())
			claims, err := ts.VerifyJoinToken(token)
			if err != nil {
				logger.Warn("MatchJoinAttempt: User %s presented a bad token: %v", presence.GetUserId(), err)
				return state, false, "invalid invitation token"
			}
			if claims.MatchID != matchState.MatchID {
				return state, false, "invitation is for a different match"
			}
		}
	}

	if matchState.GetOpenSeatsCount() > 0 {
		return state, true, ""
	}
	// A bot seat yields to a human.
	if matchState.Bot != nil {
		return state, true, ""
	}
	return state, false, "Match full"
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
		if mh.seated(matchState, p.GetUserId()) {
			continue
		}

		if matchState.GetOpenSeatsCount() == 0 && matchState.Bot != nil && !matchState.dealt() {
			mh.evictBot(matchState, logger)
		}

		seat, err := matchState.App.JoinPlayer(matchState.MatchID, p.GetUserId(), false)
		if err != nil {
			logger.Warn("MatchJoin: User %s joined but no seat was available: %v", p.GetUserId(), err)
			continue
		}
		matchState.Seats[seat] = p.GetUserId()
		logger.Info("MatchJoin: User %s seated at %d", p.GetUserId(), seat)
	}

	if matchState.GetOpenSeatsCount() == 0 {
		mh.ensureDealt(matchState, dispatcher, logger)
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastRoster(matchState, dispatcher, logger, OpPlayerJoined)
	mh.sendPrivateSnapshots(matchState, dispatcher, logger, presences...)

	return matchState
}

func (mh *matchHandler) seated(state *MatchState, userID string) bool {
	for _, seat := range state.Seats {
		if seat == userID {
			return true
		}
	}
	return false
}

func (mh *matchHandler) evictBot(state *MatchState, logger runtime.Logger) {
	if state.Bot == nil {
		return
	}
	botID := state.Bot.ID
	state.App.LeavePlayer(state.MatchID, botID)
	for i, seat := range state.Seats {
		if seat == botID {
			state.Seats[i] = ""
		}
	}
	state.Bot = nil
	logger.Info("evictBot: Bot %s yielded its seat", botID)
}

// ensureDealt deals the first board once both seats are filled.
func (mh *matchHandler) ensureDealt(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.dealt() {
		return
	}
	snap := state.App.EnsureInitialSnapshot(state.MatchID, app.InitOptions{
		Seed:    state.Seed,
		WithBot: state.Bot != nil,
		Mode:    domain.ShuffleMode(config.DefaultShuffleMode()),
	})
	if snap == nil {
		logger.Error("ensureDealt: No snapshot after deal for match %s", state.MatchID)
		return
	}
	state.botIdle = false
	state.botRecycles = 0
	mh.updateLabel(state, dispatcher, logger)
	mh.sendPrivateSnapshots(state, dispatcher, logger)
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	left := make([]string, 0, len(presences))
	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
		matchState.App.LeavePlayer(matchState.MatchID, p.GetUserId())
		left = append(left, p.GetUserId())
		for i, seat := range matchState.Seats {
			if seat == p.GetUserId() {
				matchState.Seats[i] = ""
				logger.Debug("MatchLeave: User %s left, seat %d freed.", p.GetUserId(), i)
			}
		}
	}

	if matchState.GetHumanPlayerCount() == 0 {
		logger.Info("MatchLeave: Terminating match with no humans.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastRoster(matchState, dispatcher, logger, OpPlayerLeft, left...)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpMove:
			mh.handleMove(matchState, dispatcher, logger, msg)
		case OpRequestSnapshot:
			mh.sendPrivateSnapshots(matchState, dispatcher, logger, matchState.Presences[msg.GetUserId()])
		case OpRequestNewGame:
			mh.handleNewGame(matchState, dispatcher, logger, msg)
		case OpCheckInvariant:
			mh.handleCheckInvariant(matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.BotsEnabled {
		mh.processBot(matchState, dispatcher, logger)
	}

	// Idle reclaim: when the TTL sweep drops this match, stop hosting it.
	if tick-matchState.lastSweepTick >= sweepEveryTicks {
		matchState.lastSweepTick = tick
		if matchState.App.Store().Sweep() > 0 {
			logger.Info("MatchLoop: Match %s idle past TTL, terminating.", matchState.MatchID)
			return nil
		}
	}

	return matchState
}

func (mh *matchHandler) handleMove(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if !mh.seated(state, senderID) {
		mh.sendError(state, dispatcher, logger, senderID, 403, "not seated in this match")
		return
	}

	var mv domain.Move
	if err := json.Unmarshal(msg.GetData(), &mv); err != nil {
		logger.Warn("handleMove: Malformed move from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, "malformed move payload")
		return
	}

	res := state.App.ValidateAndApplyMove(state.MatchID, &mv, senderID, false)
	if !res.OK {
		event := moveRejectedEvent{Reason: res.Reason, MoveID: mv.MoveID}
		if res.Airbag != nil {
			view := state.App.GetSnapshotForPlayer(state.MatchID, senderID)
			event.Airbag = view
		}
		mh.sendTo(state, dispatcher, logger, senderID, OpMoveRejected, event)
		return
	}

	mh.broadcast(state, dispatcher, logger, OpMoveApplied, moveAppliedEvent{
		Actor:                   senderID,
		Kind:                    mv.Kind,
		MoveID:                  mv.MoveID,
		Replayed:                res.Replayed,
		ResolvedFoundationIndex: res.ResolvedFoundationIndex,
		MatchRev:                res.Snapshot.MatchRev,
	})
	mh.sendPrivateSnapshots(state, dispatcher, logger)
}

func (mh *matchHandler) handleNewGame(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	m, err := state.App.Store().Get(state.MatchID)
	if err != nil || m.HostID() != senderID {
		logger.Warn("handleNewGame: User %s requested a reset but is not the host", senderID)
		mh.sendError(state, dispatcher, logger, senderID, 403, "only the host can start a new game")
		return
	}

	var req struct {
		Seed string `json:"seed"`
	}
	_ = json.Unmarshal(msg.GetData(), &req)

	snap := state.App.ResetMatch(state.MatchID, req.Seed)
	if snap == nil {
		mh.sendError(state, dispatcher, logger, senderID, 500, "reset failed")
		return
	}
	state.botIdle = false
	state.botRecycles = 0

	mh.broadcast(state, dispatcher, logger, OpMatchReset, map[string]interface{}{
		"matchRev": snap.MatchRev,
		"seed":     snap.Seed,
	})
	mh.sendPrivateSnapshots(state, dispatcher, logger)
}

func (mh *matchHandler) handleCheckInvariant(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	report := state.App.CheckMatchInvariant(state.MatchID)
	if report == nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), 404, "no state to check")
		return
	}
	mh.sendTo(state, dispatcher, logger, msg.GetUserId(), OpInvariantReport, report)
}

// processBot fills the open seat after a solo wait, then plays the bot's own
// board between delays.
func (mh *matchHandler) processBot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Bot == nil && !state.dealt() {
		if state.GetHumanPlayerCount() == 1 && state.GetOpenSeatsCount() == 1 {
			if state.soloSinceTick == 0 {
				state.soloSinceTick = state.Tick
			}
			if state.Tick-state.soloSinceTick >= state.BotFillDelayTicks {
				mh.fillBotSeat(state, dispatcher, logger)
				state.soloSinceTick = 0
			}
		} else {
			state.soloSinceTick = 0
		}
	}

	if state.Bot == nil || state.botIdle || !state.dealt() {
		return
	}
	if state.botNextActTick == 0 {
		state.botNextActTick = state.Tick + state.BotDelayTicks
		return
	}
	if state.Tick < state.botNextActTick {
		return
	}
	state.botNextActTick = state.Tick + state.BotDelayTicks

	m, err := state.App.Store().Get(state.MatchID)
	if err != nil || m.Snapshot == nil {
		return
	}
	mv, err := state.Bot.Play(m.Snapshot.State)
	if err != nil {
		logger.Error("processBot: Bot %s failed to calculate a move: %v", state.Bot.ID, err)
		return
	}
	if mv == nil {
		state.botIdle = true
		logger.Debug("processBot: Bot %s is out of moves", state.Bot.ID)
		return
	}

	// Stock cycling without any other move means the bot's position is
	// dead; stop burning ticks on it.
	if mv.Kind == domain.MoveRecycle {
		state.botRecycles++
		if state.botRecycles > 1 {
			state.botIdle = true
			return
		}
	} else if mv.Kind != domain.MoveDraw {
		state.botRecycles = 0
	}

	res := state.App.ValidateAndApplyMove(state.MatchID, mv, state.Bot.ID, false)
	if !res.OK {
		logger.Warn("processBot: Bot %s move %s rejected: %s", state.Bot.ID, mv.Kind, res.Reason)
		state.botIdle = true
		return
	}

	mh.broadcast(state, dispatcher, logger, OpMoveApplied, moveAppliedEvent{
		Actor:                   state.Bot.ID,
		Kind:                    mv.Kind,
		MoveID:                  mv.MoveID,
		ResolvedFoundationIndex: res.ResolvedFoundationIndex,
		MatchRev:                res.Snapshot.MatchRev,
	})
	mh.sendPrivateSnapshots(state, dispatcher, logger)
}

func (mh *matchHandler) fillBotSeat(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	identity := bot.PickIdentity(state.MatchID)
	difficulty := identity.Difficulty
	if override := config.BotDifficulty(); override != "" {
		difficulty = override
	}
	brain, err := bot.NewBrain(bot.ParseLevel(difficulty))
	if err != nil {
		logger.Error("fillBotSeat: %v", err)
		return
	}

	seat, err := state.App.JoinPlayer(state.MatchID, identity.UserID, true)
	if err != nil {
		logger.Error("fillBotSeat: Could not seat bot %s: %v", identity.UserID, err)
		return
	}
	state.Seats[seat] = identity.UserID
	state.Bot = &bot.Agent{ID: identity.UserID, Name: identity.DisplayName, Side: domain.SideOpp, Strategy: brain}
	logger.Info("fillBotSeat: Added bot %s (%s) to seat %d", identity.DisplayName, identity.UserID, seat)

	if state.GetOpenSeatsCount() == 0 {
		mh.ensureDealt(state, dispatcher, logger)
	}
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastRoster(state, dispatcher, logger, OpPlayerJoined)
	mh.sendPrivateSnapshots(state, dispatcher, logger)
}

// MatchTerminate is called when the match is shut down.
func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	matchState.App.Store().Remove(matchState.MatchID)
	logger.Info("MatchTerminate: Match %s shut down.", matchState.MatchID)
	return matchState
}

// MatchSignal answers out-of-band queries with the canonical snapshot, which
// operators use to inspect a live match.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, ""
	}
	m, err := matchState.App.Store().Get(matchState.MatchID)
	if err != nil || m.Snapshot == nil {
		return matchState, "{}"
	}
	payload, err := json.Marshal(snapshotEvent{MatchID: matchState.MatchID, Snapshot: m.Snapshot})
	if err != nil {
		logger.Error("MatchSignal: %v", err)
		return matchState, "{}"
	}
	return matchState, string(payload)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	phase := "lobby"
	if state.dealt() {
		phase = "playing"
	}
	label, err := labelBytes(state, phase)
	if err != nil {
		logger.Error("updateLabel: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(label)); err != nil {
		logger.Error("updateLabel: %v", err)
	}
}

func (mh *matchHandler) broadcastRoster(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, opCode int64, left ...string) {
	event := rosterEvent{Seats: state.Seats, Host: state.Seats[0], Left: left}
	if state.Bot != nil {
		event.Bot = state.Bot.ID
	}
	mh.broadcast(state, dispatcher, logger, opCode, event)
}

// sendPrivateSnapshots sends each given presence (or every presence when none
// are named) its own perspective-projected snapshot.
func (mh *matchHandler) sendPrivateSnapshots(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, targets ...runtime.Presence) {
	if len(targets) == 0 {
		targets = make([]runtime.Presence, 0, len(state.Presences))
		for _, p := range state.Presences {
			targets = append(targets, p)
		}
	}
	for _, p := range targets {
		if p == nil {
			continue
		}
		snap := state.App.GetSnapshotForPlayer(state.MatchID, p.GetUserId())
		if snap == nil {
			continue
		}
		payload, err := json.Marshal(snapshotEvent{MatchID: state.MatchID, Snapshot: snap})
		if err != nil {
			logger.Error("sendPrivateSnapshots: %v", err)
			continue
		}
		if err := dispatcher.BroadcastMessage(OpSnapshot, payload, []runtime.Presence{p}, nil, true); err != nil {
			logger.Error("sendPrivateSnapshots: %v", err)
		}
	}
}

func (mh *matchHandler) broadcast(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, opCode int64, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("broadcast: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(opCode, payload, nil, nil, true); err != nil {
		logger.Error("broadcast: %v", err)
	}
}

func (mh *matchHandler) sendTo(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, opCode int64, event interface{}) {
	p, ok := state.Presences[userID]
	if !ok {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("sendTo: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(opCode, payload, []runtime.Presence{p}, nil, true); err != nil {
		logger.Error("sendTo: %v", err)
	}
}

func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	mh.sendTo(state, dispatcher, logger, userID, OpError, errorEvent{Code: code, Message: message})
}
