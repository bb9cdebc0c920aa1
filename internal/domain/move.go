package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// MoveKind tags the move union. Moves are the only state-transition currency
// the engine accepts once an authoritative snapshot exists.
type MoveKind string

const (
	MoveFlip    MoveKind = "flip"
	MoveRecycle MoveKind = "recycle"
	MoveToFound MoveKind = "toFound"
	MoveToPile  MoveKind = "toPile"
	MoveDraw    MoveKind = "draw"
)

// Zone identifies a pile family after token normalization.
type Zone string

const (
	ZoneNone       Zone = ""
	ZoneTableau    Zone = "tableau"
	ZoneWaste      Zone = "waste"
	ZoneStock      Zone = "stock"
	ZoneFoundation Zone = "foundation"
)

// NormalizeZone maps the historical zone tokens onto the canonical set.
func NormalizeZone(tok string) Zone {
	switch strings.ToLower(strings.TrimSpace(tok)) {
	case "pile", "tableau", "tab":
		return ZoneTableau
	case "found", "foundation", "foundations", "fnd":
		return ZoneFoundation
	case "waste":
		return ZoneWaste
	case "stock":
		return ZoneStock
	}
	return ZoneNone
}

// ZoneRef is a normalized from/to descriptor. Index is -1 when the client
// sent none; Suit is the raw foundation suit hint (normalized at resolution).
type ZoneRef struct {
	Zone      Zone
	Index     int
	SideOwner SideID
	Suit      string
}

// zoneRefWire is the object form of a zone descriptor on the wire.
type zoneRefWire struct {
	Zone      string `json:"zone"`
	Idx       *int   `json:"idx"`
	UIIndex   *int   `json:"uiIndex"`
	F         *int   `json:"f"`
	SideOwner string `json:"sideOwner"`
	Suit      string `json:"suit"`
}

// UnmarshalJSON accepts both the compact string forms ("t3", "waste",
// "stock", "f:♠") and the object form with zone/idx/uiIndex/f/sideOwner/suit.
func (z *ZoneRef) UnmarshalJSON(data []byte) error {
	*z = ZoneRef{Index: -1}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		z.fromToken(s)
		return nil
	}

	var w zoneRefWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	z.Zone = NormalizeZone(w.Zone)
	switch {
	case w.Idx != nil:
		z.Index = *w.Idx
	case w.UIIndex != nil:
		z.Index = *w.UIIndex
	case w.F != nil:
		z.Index = *w.F
	}
	switch SideID(w.SideOwner) {
	case SideYou, SideOpp:
		z.SideOwner = SideID(w.SideOwner)
	}
	z.Suit = w.Suit
	return nil
}

// MarshalJSON emits the object form.
func (z ZoneRef) MarshalJSON() ([]byte, error) {
	w := zoneRefWire{Zone: string(z.Zone), SideOwner: string(z.SideOwner), Suit: z.Suit}
	if z.Index >= 0 {
		idx := z.Index
		w.Idx = &idx
	}
	return json.Marshal(w)
}

func (z *ZoneRef) fromToken(tok string) {
	tok = strings.TrimSpace(tok)
	switch {
	case tok == "waste":
		z.Zone = ZoneWaste
	case tok == "stock":
		z.Zone = ZoneStock
	case strings.HasPrefix(tok, "t"):
		if n, err := strconv.Atoi(tok[1:]); err == nil {
			z.Zone = ZoneTableau
			z.Index = n
		}
	case strings.HasPrefix(tok, "f:"):
		z.Zone = ZoneFoundation
		z.Suit = tok[2:]
	default:
		z.Zone = NormalizeZone(tok)
	}
}

// Move is a proposed state transition. CardID, when present, is an identity
// assertion the source pile must satisfy; Count declares run length for bulk
// tableau transfers. MoveID is the transport-level idempotency key.
type Move struct {
	MoveID string   `json:"moveId,omitempty"`
	Kind   MoveKind `json:"kind"`
	CardID string   `json:"cardId,omitempty"`
	Count  int      `json:"count,omitempty"`
	From   *ZoneRef `json:"from,omitempty"`
	To     *ZoneRef `json:"to,omitempty"`
}

// KnownKind reports whether the kind is part of the move taxonomy.
func (m *Move) KnownKind() bool {
	switch m.Kind {
	case MoveFlip, MoveRecycle, MoveToFound, MoveToPile, MoveDraw:
		return true
	}
	return false
}
