package domain

// movePlan is the fully-resolved form of a proposed move: concrete piles,
// source offset and card count. Validate throws the plan away; Apply executes
// it. All legality checks happen during planning, so an apply never mutates
// state for a move that ends up rejected.
type movePlan struct {
	kind     MoveKind
	srcZone  Zone
	src      *Pile
	dst      *Pile
	lane     int
	srcIndex int
	count    int
}

// Validate is the read-only predicate over a proposed move. It encodes the
// Klondike legality rules plus the bounded drift-tolerance heuristics
// (opposite-side retry, waste re-order scan) and never mutates state.
func Validate(st *GameState, mv *Move) Reason {
	_, reason := planMove(st, mv)
	return reason
}

func planMove(st *GameState, mv *Move) (movePlan, Reason) {
	none := movePlan{lane: -1}
	if st == nil {
		return none, ReasonStateMissing
	}
	schema := DetectSchema(st)
	if schema == SchemaUnknown {
		return none, ReasonUnsupportedStateSchema
	}
	if mv == nil || !mv.KnownKind() {
		return none, ReasonBadKind
	}

	switch mv.Kind {
	case MoveFlip:
		return planWithSideRetry(st, schema, mv, planFlip)
	case MoveDraw:
		return planDraw(st, schema, mv)
	case MoveRecycle:
		return planRecycle(st, schema, mv)
	case MoveToFound:
		return planWithSideRetry(st, schema, mv, planToFound)
	case MoveToPile:
		return planWithSideRetry(st, schema, mv, planToPile)
	}
	return none, ReasonBadKind
}

// planWithSideRetry runs a planner once on the naturally-inferred side and,
// on failure with a dual-sided schema, exactly once more with the opposite
// side forced. This absorbs perspective drift between two independently
// tracked client viewpoints without rejecting an otherwise-legal move. The
// retry never recurses; the primary attempt's reason is what gets reported.
func planWithSideRetry(st *GameState, schema Schema, mv *Move, plan func(*GameState, Schema, *Move, SideID) (movePlan, Reason)) (movePlan, Reason) {
	p, reason := plan(st, schema, mv, SideNone)
	if reason == ReasonNone || schema != SchemaV1Sided {
		return p, reason
	}
	ref := mv.From
	if ref == nil {
		ref = mv.To
	}
	natural := inferSide(mv, ref, SideNone)
	if p2, r2 := plan(st, schema, mv, natural.Opposite()); r2 == ReasonNone {
		return p2, ReasonNone
	}
	return p, reason
}

// planFlip turns a face-down tableau top face up. Flips carry no card id to
// infer side from, so they lean on the opposite-side retry when the first
// resolution lands on a column with nothing to flip.
func planFlip(st *GameState, schema Schema, mv *Move, forced SideID) (movePlan, Reason) {
	none := movePlan{lane: -1}
	ref := mv.From
	if ref == nil {
		ref = mv.To
	}
	if ref == nil || ref.Zone != ZoneTableau {
		return none, ReasonBadFrom
	}
	pile := resolvePile(st, schema, mv, ref, forced)
	if pile == nil {
		return none, ReasonBadFrom
	}
	top := pile.Top()
	if top == nil {
		return none, ReasonFlipNoCards
	}
	if top.FaceUp {
		return none, ReasonFlipNotNeeded
	}
	return movePlan{kind: MoveFlip, srcZone: ZoneTableau, src: pile, lane: -1, srcIndex: len(*pile) - 1, count: 1}, ReasonNone
}

// planDraw resolves stock->waste. Draws never reject on card-id mismatch:
// the client may be locally ahead of the authoritative clock, so its id
// assertion is advisory only.
func planDraw(st *GameState, schema Schema, mv *Move) (movePlan, Reason) {
	none := movePlan{lane: -1}
	side := inferSide(mv, mv.From, SideNone)
	b := st.Board(schema, side)
	if b == nil {
		return none, ReasonBadPiles
	}
	if len(*b.Stock) == 0 && schema == SchemaV1Sided {
		if alt := st.Board(schema, side.Opposite()); alt != nil && len(*alt.Stock) > 0 {
			b = alt
		}
	}
	if len(*b.Stock) == 0 {
		return none, ReasonStockEmpty
	}
	return movePlan{kind: MoveDraw, srcZone: ZoneStock, src: b.Stock, dst: b.Waste, lane: -1, srcIndex: len(*b.Stock) - 1, count: 1}, ReasonNone
}

func planRecycle(st *GameState, schema Schema, mv *Move) (movePlan, Reason) {
	none := movePlan{lane: -1}
	side := inferSide(mv, mv.From, SideNone)
	b := st.Board(schema, side)
	if b == nil {
		return none, ReasonBadPiles
	}
	if (len(*b.Waste) == 0 || len(*b.Stock) != 0) && schema == SchemaV1Sided {
		if alt := st.Board(schema, side.Opposite()); alt != nil && len(*alt.Waste) > 0 && len(*alt.Stock) == 0 {
			b = alt
		}
	}
	if len(*b.Waste) == 0 {
		return none, ReasonWasteEmpty
	}
	if len(*b.Stock) != 0 {
		return none, ReasonBadPiles
	}
	return movePlan{kind: MoveRecycle, srcZone: ZoneWaste, src: b.Waste, dst: b.Stock, lane: -1, srcIndex: 0, count: len(*b.Waste)}, ReasonNone
}

// planToFound resolves the source card and auto-selects the destination lane.
// A mismatched card id on a waste source falls back to scanning the waste for
// that id before rejecting: clients display only the top three waste cards
// and routinely re-order around the authoritative view.
func planToFound(st *GameState, schema Schema, mv *Move, forced SideID) (movePlan, Reason) {
	none := movePlan{lane: -1}
	fromRef := mv.From
	if fromRef == nil {
		fromRef = &ZoneRef{Zone: ZoneWaste, Index: -1}
	}
	src := resolvePile(st, schema, mv, fromRef, forced)
	if src == nil {
		return none, ReasonBadFrom
	}
	if len(*src) == 0 {
		return none, ReasonFromEmpty
	}
	idx := len(*src) - 1
	card := (*src)[idx]
	if mv.CardID != "" && card.ID != mv.CardID {
		j := -1
		if fromRef.Zone == ZoneWaste {
			j = indexOfCard(*src, mv.CardID)
		}
		if j < 0 {
			return none, ReasonCardNotOnTop
		}
		idx, card = j, (*src)[j]
	}
	if !card.FaceUp {
		return none, ReasonCardFaceDown
	}
	lane, reason := ResolveFoundationLane(st, card)
	if reason != ReasonNone {
		return none, reason
	}
	return movePlan{kind: MoveToFound, srcZone: fromRef.Zone, src: src, lane: lane, srcIndex: idx, count: 1}, ReasonNone
}

// planToPile resolves a waste- or tableau-sourced move onto a tableau column.
// Count mismatches, face-down sources and unresolved zones are hard rejects,
// never silently clamped.
func planToPile(st *GameState, schema Schema, mv *Move, forced SideID) (movePlan, Reason) {
	none := movePlan{lane: -1}
	if mv.To == nil || mv.To.Zone != ZoneTableau {
		return none, ReasonBadTo
	}
	dst := resolvePile(st, schema, mv, mv.To, SideNone)
	if dst == nil {
		return none, ReasonBadTo
	}

	fromRef := mv.From
	if fromRef == nil {
		fromRef = &ZoneRef{Zone: ZoneWaste, Index: -1}
	}
	src := resolvePile(st, schema, mv, fromRef, forced)
	if src == nil {
		return none, ReasonBadFrom
	}
	if src == dst {
		return none, ReasonBadTo
	}
	if len(*src) == 0 {
		return none, ReasonFromEmpty
	}

	var start int
	switch fromRef.Zone {
	case ZoneWaste:
		if mv.Count > 1 {
			return none, ReasonBadCount
		}
		start = len(*src) - 1
		top := (*src)[start]
		if mv.CardID != "" && top.ID != mv.CardID {
			return none, ReasonCardNotOnTop
		}
		if !top.FaceUp {
			return none, ReasonCardFaceDown
		}
	case ZoneTableau:
		if mv.CardID != "" {
			start = indexOfCard(*src, mv.CardID)
			if start < 0 {
				return none, ReasonCardNotOnTop
			}
		} else {
			count := mv.Count
			if count <= 0 {
				count = 1
			}
			start = len(*src) - count
			if start < 0 {
				return none, ReasonBadCount
			}
		}
		run := (*src)[start:]
		if mv.Count > 0 && len(run) != mv.Count {
			return none, ReasonBadCount
		}
		if reason, ok := validRun(run); !ok {
			return none, reason
		}
	default:
		return none, ReasonBadFrom
	}

	lead := (*src)[start]
	if top := dst.Top(); top == nil {
		if lead.Rank != RankKing {
			return none, ReasonTableauEmptyNeedsKing
		}
	} else {
		if !top.FaceUp {
			return none, ReasonCardFaceDown
		}
		if IsRedSuit(lead.Suit) == IsRedSuit(top.Suit) {
			return none, ReasonTableauColorSame
		}
		if lead.Rank != top.Rank-1 {
			return none, ReasonTableauRankNotDesc
		}
	}
	return movePlan{kind: MoveToPile, srcZone: fromRef.Zone, src: src, dst: dst, lane: -1, srcIndex: start, count: len(*src) - start}, ReasonNone
}
