package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Suit glyphs as stored on cards and foundation lanes. Legacy clients send
// single-letter codes instead; NormalizeSuit maps both onto the glyph form.
const (
	SuitSpades   = "♠"
	SuitHearts   = "♥"
	SuitDiamonds = "♦"
	SuitClubs    = "♣"
)

// Ranks run 0..12 with Ace low and King high.
const (
	RankAce  = 0
	RankKing = 12
)

// Suits lists the four suits in deal order.
var Suits = []string{SuitSpades, SuitHearts, SuitDiamonds, SuitClubs}

// Card is a single playing card. ID is the unit of conservation: it is unique
// within a match and survives every move, unlike positional references.
type Card struct {
	ID     string `json:"id"`
	Suit   string `json:"suit"`
	Rank   int    `json:"rank"`
	FaceUp bool   `json:"faceUp"`
}

// Color returns "red" or "black" for the card's suit.
func (c Card) Color() string {
	if IsRedSuit(c.Suit) {
		return "red"
	}
	return "black"
}

// IsRedSuit reports whether the suit glyph is hearts or diamonds.
func IsRedSuit(suit string) bool {
	return suit == SuitHearts || suit == SuitDiamonds
}

// NormalizeSuit maps either a legacy letter code ("S","H","D","C") or a glyph
// onto the canonical glyph. The second return is false for unrecognized input.
func NormalizeSuit(s string) (string, bool) {
	switch strings.TrimSpace(s) {
	case SuitSpades, "S", "s":
		return SuitSpades, true
	case SuitHearts, "H", "h":
		return SuitHearts, true
	case SuitDiamonds, "D", "d":
		return SuitDiamonds, true
	case SuitClubs, "C", "c":
		return SuitClubs, true
	}
	return "", false
}

// SideID addresses one half of a dual-sided board in canonical
// (host-perspective) terms.
type SideID string

const (
	SideNone SideID = ""
	SideYou  SideID = "you"
	SideOpp  SideID = "opp"
)

// Opposite returns the other board half.
func (s SideID) Opposite() SideID {
	switch s {
	case SideYou:
		return SideOpp
	case SideOpp:
		return SideYou
	}
	return SideNone
}

func sidePrefix(s SideID) string {
	if s == SideOpp {
		return "O"
	}
	return "Y"
}

// CardID builds the canonical card identity: owner prefix, positional salt
// from the deal, then suit and rank, e.g. "Y-0-♠-12".
func CardID(side SideID, salt int, suit string, rank int) string {
	return fmt.Sprintf("%s-%d-%s-%d", sidePrefix(side), salt, suit, rank)
}

// SideOfCardID recovers the owner side from the id prefix convention, or
// SideNone when the id does not carry one.
func SideOfCardID(id string) SideID {
	switch {
	case strings.HasPrefix(id, "Y-"):
		return SideYou
	case strings.HasPrefix(id, "O-"):
		return SideOpp
	}
	return SideNone
}

// WellFormedCardID reports whether an id matches the owner-salt-suit-rank
// scheme produced at deal time. Placeholder or foreign ids fail this check.
func WellFormedCardID(id string) bool {
	parts := strings.SplitN(id, "-", 4)
	if len(parts) != 4 {
		return false
	}
	if parts[0] != "Y" && parts[0] != "O" {
		return false
	}
	if _, err := strconv.Atoi(parts[1]); err != nil {
		return false
	}
	if _, ok := NormalizeSuit(parts[2]); !ok {
		return false
	}
	rank, err := strconv.Atoi(parts[3])
	if err != nil || rank < RankAce || rank > RankKing {
		return false
	}
	return true
}
