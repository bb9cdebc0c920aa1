package domain

import (
	"hash/fnv"
	"math/rand"
)

// ShuffleMode selects how the two boards of a dual-sided match relate.
type ShuffleMode string

const (
	// ShuffleShared derives both boards from the same base permutation.
	ShuffleShared ShuffleMode = "shared"
	// ShuffleSplit salts each side's deck by owner before shuffling,
	// producing independent boards.
	ShuffleSplit ShuffleMode = "split"
)

// SeedHash reduces a string seed to the 32-bit value that drives the
// permutation generator. Identical seeds always produce identical deals.
func SeedHash(seed string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(seed))
	return h.Sum32()
}

// newOrderedDeck returns one ordered 52-card deck, face down, with ids left
// unassigned until the post-shuffle position is known (see ShuffledDeck).
func newOrderedDeck() []Card {
	deck := make([]Card, 0, 52)
	for _, suit := range Suits {
		for rank := RankAce; rank <= RankKing; rank++ {
			deck = append(deck, Card{Suit: suit, Rank: rank})
		}
	}
	return deck
}

// ShuffledDeck produces the owner's 52-card deck permuted by seed. Card ids
// encode owner and post-shuffle position so identity survives every later
// move.
func ShuffledDeck(seed string, owner SideID) []Card {
	deck := newOrderedDeck()
	rng := rand.New(rand.NewSource(int64(SeedHash(seed))))
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	for i := range deck {
		deck[i].ID = CardID(owner, i, deck[i].Suit, deck[i].Rank)
	}
	return deck
}

// saltedSeed derives the per-owner seed used by split-mode shuffles.
func saltedSeed(seed string, owner SideID) string {
	return seed + ":" + string(owner)
}

// dealBoard lays a shuffled deck into the classic Klondike triangle: column p
// receives p+1 cards with only the last one face up; the remainder forms the
// face-down stock.
func dealBoard(deck []Card) Side {
	side := Side{Tableau: make([]Pile, TableauColumns)}
	i := 0
	for col := 0; col < TableauColumns; col++ {
		pile := make(Pile, 0, col+1)
		for n := 0; n <= col; n++ {
			card := deck[i]
			card.FaceUp = n == col
			pile = append(pile, card)
			i++
		}
		side.Tableau[col] = pile
	}
	side.Stock = append(Pile{}, deck[i:]...)
	side.Waste = Pile{}
	return side
}

func emptyLanes(n int) []FoundationLane {
	lanes := make([]FoundationLane, 0, n)
	for i := 0; i < n; i++ {
		lanes = append(lanes, FoundationLane{Suit: Suits[i%len(Suits)], Cards: Pile{}})
	}
	return lanes
}

// DealLegacy builds the single-board 52-card layout with 4 foundation lanes.
func DealLegacy(seed string) *GameState {
	board := dealBoard(ShuffledDeck(seed, SideYou))
	return &GameState{
		Stock:       board.Stock,
		Waste:       board.Waste,
		Tableau:     board.Tableau,
		Foundations: emptyLanes(4),
	}
}

// DealSided builds the dual-board 104-card layout with 8 foundation lanes.
// In shared mode both boards follow the same base permutation; in split mode
// each side's deck is salted by owner first.
func DealSided(seed string, mode ShuffleMode) *GameState {
	youSeed, oppSeed := seed, seed
	if mode == ShuffleSplit {
		youSeed = saltedSeed(seed, SideYou)
		oppSeed = saltedSeed(seed, SideOpp)
	}
	you := dealBoard(ShuffledDeck(youSeed, SideYou))
	opp := dealBoard(ShuffledDeck(oppSeed, SideOpp))
	return &GameState{
		You:         &you,
		Opp:         &opp,
		Foundations: emptyLanes(8),
	}
}
