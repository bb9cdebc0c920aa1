package domain

// ApplyOutcome is the result of executing a move against canonical state.
// ResolvedFoundationIndex reports the lane the engine actually chose for a
// toFound move (-1 otherwise) so the caller can broadcast the real lane
// instead of the client's advisory hint.
type ApplyOutcome struct {
	Reason                  Reason
	ResolvedFoundationIndex int
}

// OK reports whether the move was applied.
func (o ApplyOutcome) OK() bool {
	return o.Reason == ReasonNone
}

// Apply validates and executes a move against st. Every legality check runs
// before the first mutation, so a rejected move leaves state untouched; the
// splice and push of an accepted move cannot fail halfway.
func Apply(st *GameState, mv *Move) ApplyOutcome {
	plan, reason := planMove(st, mv)
	if reason != ReasonNone {
		return ApplyOutcome{Reason: reason, ResolvedFoundationIndex: -1}
	}

	switch plan.kind {
	case MoveFlip:
		(*plan.src)[plan.srcIndex].FaceUp = true

	case MoveDraw:
		card := (*plan.src)[plan.srcIndex]
		*plan.src = (*plan.src)[:plan.srcIndex]
		card.FaceUp = true
		*plan.dst = append(*plan.dst, card)

	case MoveRecycle:
		waste := *plan.src
		stock := make(Pile, 0, len(waste))
		for i := len(waste) - 1; i >= 0; i-- {
			card := waste[i]
			card.FaceUp = false
			stock = append(stock, card)
		}
		*plan.dst = stock
		*plan.src = Pile{}

	case MoveToFound:
		card := (*plan.src)[plan.srcIndex]
		*plan.src = append((*plan.src)[:plan.srcIndex], (*plan.src)[plan.srcIndex+1:]...)
		card.FaceUp = true
		lane := &st.Foundations[plan.lane]
		lane.Cards = append(lane.Cards, card)
		revealTail(plan)
		return ApplyOutcome{ResolvedFoundationIndex: plan.lane}

	case MoveToPile:
		run := append(Pile(nil), (*plan.src)[plan.srcIndex:]...)
		*plan.src = (*plan.src)[:plan.srcIndex]
		*plan.dst = append(*plan.dst, run...)
		revealTail(plan)
	}
	return ApplyOutcome{ResolvedFoundationIndex: -1}
}

// revealTail applies the standard Klondike reveal: after a tableau-source
// removal, a newly-exposed face-down tail card is flipped face-up.
func revealTail(plan movePlan) {
	if plan.srcZone != ZoneTableau {
		return
	}
	if top := plan.src.Top(); top != nil && !top.FaceUp {
		top.FaceUp = true
	}
}
