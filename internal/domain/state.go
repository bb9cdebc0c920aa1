package domain

// TableauColumns is the Klondike column count per board side.
const TableauColumns = 7

// Pile is an ordered card sequence with stack semantics at the tail. Bulk
// tableau transfers move a contiguous face-up tail slice atomically.
type Pile []Card

// Top returns a pointer to the tail card, or nil for an empty pile.
func (p Pile) Top() *Card {
	if len(p) == 0 {
		return nil
	}
	return &p[len(p)-1]
}

// Side owns one player's stock, waste and tableau columns in the dual-board
// schema.
type Side struct {
	Stock   Pile   `json:"stock"`
	Waste   Pile   `json:"waste"`
	Tableau []Pile `json:"tableau"`
}

// FoundationLane is one ascending same-suit stack. The suit binding is fixed
// at deal time; a lane only ever accepts its own suit.
type FoundationLane struct {
	Suit  string `json:"suit"`
	Cards Pile   `json:"cards"`
}

// GameState is the closed union over the two historical wire shapes.
//
// legacy_root populates Stock/Waste/Tableau at the root with 4 foundation
// lanes; v1_sided populates You/Opp with 8 lanes. Historical clients omit any
// version tag, so DetectSchema decides structurally.
type GameState struct {
	// legacy_root single-board fields.
	Stock   Pile   `json:"stock,omitempty"`
	Waste   Pile   `json:"waste,omitempty"`
	Tableau []Pile `json:"tableau,omitempty"`

	// v1_sided dual-board fields, host perspective.
	You *Side `json:"you,omitempty"`
	Opp *Side `json:"opp,omitempty"`

	Foundations []FoundationLane `json:"foundations"`

	// ExpectedTotalCards overrides the schema-derived deck total (52/104)
	// for invariant checks when present.
	ExpectedTotalCards int `json:"expectedTotalCards,omitempty"`
}

// Schema tags which wire shape a state object uses.
type Schema int

const (
	SchemaUnknown Schema = iota
	SchemaLegacyRoot
	SchemaV1Sided
)

func (s Schema) String() string {
	switch s {
	case SchemaLegacyRoot:
		return "legacy_root"
	case SchemaV1Sided:
		return "v1_sided"
	}
	return "unknown"
}

// DetectSchema classifies a state object by shape. It is the only place the
// engine probes structure; everything downstream switches on the tag.
func DetectSchema(st *GameState) Schema {
	if st == nil {
		return SchemaUnknown
	}
	if st.You != nil && st.Opp != nil && st.You.Tableau != nil && st.Opp.Tableau != nil {
		return SchemaV1Sided
	}
	if st.Tableau != nil {
		return SchemaLegacyRoot
	}
	return SchemaUnknown
}

// ExpectedDeckTotal returns the card count the conservation invariant holds
// this state to: an explicit override if present, else 104 for dual boards
// and 52 for the legacy single board.
func (st *GameState) ExpectedDeckTotal(schema Schema) int {
	if st.ExpectedTotalCards > 0 {
		return st.ExpectedTotalCards
	}
	if schema == SchemaV1Sided {
		return 104
	}
	return 52
}

// Board is the zone-accessor indirection over one addressable half: the rest
// of the engine reads and writes piles through it without re-probing schema.
type Board struct {
	Stock   *Pile
	Waste   *Pile
	Tableau []Pile
}

// TableauAt returns the column pile pointer, or nil when the index is outside
// [0, TableauColumns).
func (b *Board) TableauAt(idx int) *Pile {
	if b == nil || idx < 0 || idx >= len(b.Tableau) {
		return nil
	}
	return &b.Tableau[idx]
}

// Board resolves the addressable half for a side. The legacy schema has a
// single implicit side, so both SideYou and SideOpp land on the root board.
func (st *GameState) Board(schema Schema, side SideID) *Board {
	switch schema {
	case SchemaLegacyRoot:
		return &Board{Stock: &st.Stock, Waste: &st.Waste, Tableau: st.Tableau}
	case SchemaV1Sided:
		half := st.You
		if side == SideOpp {
			half = st.Opp
		}
		if half == nil {
			return nil
		}
		return &Board{Stock: &half.Stock, Waste: &half.Waste, Tableau: half.Tableau}
	}
	return nil
}
