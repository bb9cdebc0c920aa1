package domain

// ProjectForSide derives the view of canonical host-perspective state for
// one side. The host sees the state unchanged; the guest receives a
// shallow-cloned view with the you/opp halves swapped and the 8 foundation
// lanes split-swapped (lanes 0-3 <-> 4-7), so "my side" always reads as you.
// Mutation still happens only against the single canonical copy; callers
// must treat projections as read-only.
func ProjectForSide(st *GameState, side SideID) *GameState {
	if st == nil || side != SideOpp {
		return st
	}
	if DetectSchema(st) != SchemaV1Sided {
		return st
	}
	view := *st
	view.You, view.Opp = st.Opp, st.You
	if len(st.Foundations) == 8 {
		lanes := make([]FoundationLane, 0, 8)
		lanes = append(lanes, st.Foundations[4:]...)
		lanes = append(lanes, st.Foundations[:4]...)
		view.Foundations = lanes
	}
	return &view
}
