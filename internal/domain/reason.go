package domain

// Reason is a closed rejection/diagnostic code. Rule rejections are normal
// control flow and travel as codes alongside ok:false, never as Go errors.
type Reason string

// ReasonNone marks an accepted move.
const ReasonNone Reason = ""

// Structural failures.
const (
	ReasonStateMissing           Reason = "state_missing"
	ReasonUnsupportedStateSchema Reason = "unsupported_state_schema"
	ReasonBadFrom                Reason = "bad_from"
	ReasonBadTo                  Reason = "bad_to"
	ReasonBadPiles               Reason = "bad_piles"
	ReasonBadFoundation          Reason = "bad_foundation"
	ReasonBadCount               Reason = "bad_count"
	ReasonBadKind                Reason = "bad_kind"
)

// Rule violations.
const (
	ReasonFoundationRequiresAce  Reason = "foundation_requires_ace"
	ReasonFoundationSuitMismatch Reason = "foundation_suit_mismatch"
	ReasonFoundationRankNotNext  Reason = "foundation_rank_not_next"
	ReasonTableauEmptyNeedsKing  Reason = "tableau_empty_requires_king"
	ReasonTableauColorSame       Reason = "tableau_color_same"
	ReasonTableauRankNotDesc     Reason = "tableau_rank_not_desc"
	ReasonCardFaceDown           Reason = "card_face_down"
)

// Identity drift between a client's believed state and the canonical one.
const (
	ReasonCardNotOnTop Reason = "card_not_on_top"
	ReasonFromEmpty    Reason = "from_empty"
)

// Empty-pile conditions.
const (
	ReasonStockEmpty    Reason = "stock_empty"
	ReasonWasteEmpty    Reason = "waste_empty"
	ReasonFlipNoCards   Reason = "flip_no_cards"
	ReasonFlipNotNeeded Reason = "flip_not_needed"
)

// Corruption findings. These never block the triggering move; they are
// logged and flagged by the invariant checker only.
const (
	ReasonUnknownCardIDs       Reason = "unknown_card_ids_present"
	ReasonDuplicateCardIDs     Reason = "duplicate_card_ids"
	ReasonMissingCards         Reason = "missing_cards"
	ReasonInvariantCheckFailed Reason = "invariant_check_failed"
)
