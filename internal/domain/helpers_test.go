package domain

// Test fixture helpers. States built here are deliberately tiny: the
// conservation invariant is exercised separately against full deals.

func tc(side SideID, salt int, suit string, rank int, faceUp bool) Card {
	return Card{ID: CardID(side, salt, suit, rank), Suit: suit, Rank: rank, FaceUp: faceUp}
}

// legacyState builds a minimal single-board state with empty piles and 4
// foundation lanes.
func legacyState() *GameState {
	return &GameState{
		Stock:       Pile{},
		Waste:       Pile{},
		Tableau:     make([]Pile, TableauColumns),
		Foundations: emptyLanes(4),
	}
}

// sidedState builds a minimal dual-board state with empty piles and 8
// foundation lanes.
func sidedState() *GameState {
	mk := func() *Side {
		return &Side{Stock: Pile{}, Waste: Pile{}, Tableau: make([]Pile, TableauColumns)}
	}
	return &GameState{
		You:         mk(),
		Opp:         mk(),
		Foundations: emptyLanes(8),
	}
}

// laneWith stacks cards rank 0..topRank of the lane's suit into lane idx.
func laneWith(st *GameState, idx int, topRank int) {
	suit := st.Foundations[idx].Suit
	for r := RankAce; r <= topRank; r++ {
		st.Foundations[idx].Cards = append(st.Foundations[idx].Cards, tc(SideYou, 90+idx*13+r, suit, r, true))
	}
}

func zref(zone Zone, idx int) *ZoneRef {
	return &ZoneRef{Zone: zone, Index: idx}
}
