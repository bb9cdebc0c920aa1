package domain

// inferSide picks the board half a zone reference addresses, in fixed
// priority order: an explicit retry override, the card-id prefix convention,
// an explicit owner on the reference, then the non-local half. The canonical
// state is host-perspective, so "non-local" is the opp half.
func inferSide(mv *Move, ref *ZoneRef, forced SideID) SideID {
	if forced != SideNone {
		return forced
	}
	if mv != nil {
		if s := SideOfCardID(mv.CardID); s != SideNone {
			return s
		}
	}
	if ref != nil && ref.SideOwner != SideNone {
		return ref.SideOwner
	}
	return SideOpp
}

// resolvePile maps a zone reference onto the concrete pile it reads/writes.
// Foundation lanes are not resolved here; they are auto-selected per card by
// resolveFoundationLane. Returns nil for unresolvable references.
func resolvePile(st *GameState, schema Schema, mv *Move, ref *ZoneRef, forced SideID) *Pile {
	if ref == nil {
		return nil
	}
	side := inferSide(mv, ref, forced)
	b := st.Board(schema, side)
	if b == nil {
		return nil
	}
	switch ref.Zone {
	case ZoneStock:
		return b.Stock
	case ZoneWaste:
		return b.Waste
	case ZoneTableau:
		return b.TableauAt(ref.Index)
	}
	return nil
}

// ResolveFoundationLane selects the destination lane for an incoming card.
// Candidates are every lane bound to the card's suit; a candidate is legal if
// it is empty and the card is an Ace, or its top is the same suit one rank
// below. Among legal lanes the highest current top rank wins, ties broken by
// the lowest lane index, which makes placement behave as one global pool that
// privileges lanes closer to completion. The caller's lane hint is advisory
// only and never consulted.
//
// Returns the lane index, or -1 with the rejection reason.
func ResolveFoundationLane(st *GameState, card Card) (int, Reason) {
	best := -1
	bestTop := -2
	sawCandidate := false
	sawNonEmpty := false
	for i := range st.Foundations {
		lane := &st.Foundations[i]
		suit, ok := NormalizeSuit(lane.Suit)
		if !ok || suit != card.Suit {
			continue
		}
		sawCandidate = true
		top := lane.Cards.Top()
		if top == nil {
			if card.Rank == RankAce && bestTop < -1 {
				best = i
				bestTop = -1
			}
			continue
		}
		sawNonEmpty = true
		if card.Rank == top.Rank+1 && top.Rank > bestTop {
			best = i
			bestTop = top.Rank
		}
	}
	if best >= 0 {
		return best, ReasonNone
	}
	if !sawCandidate {
		return -1, ReasonFoundationSuitMismatch
	}
	if !sawNonEmpty && card.Rank != RankAce {
		return -1, ReasonFoundationRequiresAce
	}
	return -1, ReasonFoundationRankNotNext
}

// CanStackTableau reports whether moving may be placed on onto per the
// descending alternating-color rule.
func CanStackTableau(moving, onto Card) bool {
	return moving.Rank == onto.Rank-1 && IsRedSuit(moving.Suit) != IsRedSuit(onto.Suit)
}

// validRun reports whether cards form a face-up descending alternating-color
// run, i.e. a slice legal to transfer between tableau columns as one unit.
func validRun(cards []Card) (Reason, bool) {
	for i, c := range cards {
		if !c.FaceUp {
			return ReasonCardFaceDown, false
		}
		if i == 0 {
			continue
		}
		prev := cards[i-1]
		if c.Rank != prev.Rank-1 {
			return ReasonTableauRankNotDesc, false
		}
		if IsRedSuit(c.Suit) == IsRedSuit(prev.Suit) {
			return ReasonTableauColorSame, false
		}
	}
	return ReasonNone, true
}

// indexOfCard returns the position of id within the pile, or -1.
func indexOfCard(p Pile, id string) int {
	for i := range p {
		if p[i].ID == id {
			return i
		}
	}
	return -1
}
