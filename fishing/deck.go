package fishing

import "math/rand"

// Suits and Ranks of the standard 52-card deck. Ten is the two-char
// rank "10" to match the card assets.
var (
	Suits = []string{"S", "H", "D", "C"}
	Ranks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}
)

// Card is one playing card.
type Card struct {
	Suit string `json:"suit"`
	Rank string `json:"rank"`
}

// NewDeck builds the 52 cards in suit-then-rank order.
func NewDeck() []Card {
	deck := make([]Card, 0, len(Suits)*len(Ranks))
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// Shuffle returns a shuffled copy.
func Shuffle(deck []Card) []Card {
	out := append([]Card(nil), deck...)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func cardsOfRank(hand []Card, rank string) []Card {
	var out []Card
	for _, c := range hand {
		if c.Rank == rank {
			out = append(out, c)
		}
	}
	return out
}

func withoutCards(hand []Card, gone []Card) []Card {
	out := make([]Card, 0, len(hand))
	for _, c := range hand {
		removed := false
		for _, g := range gone {
			if c == g {
				removed = true
				break
			}
		}
		if !removed {
			out = append(out, c)
		}
	}
	return out
}
