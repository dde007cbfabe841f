package engine

import (
	"fmt"

	"royalletters/internal/rng"
)

// BuildDeck expands every definition into its copies, in definition order,
// and shuffles the result with the stream.
func BuildDeck(cat *Catalog, stream *rng.Stream) []CardID {
	cards := make([]CardID, 0, cat.Size())
	for _, d := range cat.defs {
		for i := 0; i < d.Count; i++ {
			cards = append(cards, d.ID)
		}
	}
	return rng.Shuffle(stream, cards)
}

// Deal is the result of setting up a round.
type Deal struct {
	Hands             [][]CardID
	RemainingDeck     []CardID
	BurnedCard        CardID
	BurnedCardsFaceUp []CardID
}

// DealRound burns one card face down, burns the face-up cards a two player
// round requires, then deals one card per player in seat order.
func DealRound(deck []CardID, players int, spec RulesetSpec) (Deal, error) {
	if players < spec.MinPlayers || players > spec.MaxPlayers {
		return Deal{}, &ConfigError{Reason: fmt.Sprintf("%d players outside %d-%d", players, spec.MinPlayers, spec.MaxPlayers)}
	}
	faceUp := spec.FaceUpBurnFor(players)
	if need := 1 + faceUp + players; len(deck) < need {
		return Deal{}, fmt.Errorf("deck of %d cannot deal %d players: %w", len(deck), players, ErrDeckEmpty)
	}

	rest := deck
	d := Deal{BurnedCard: rest[0]}
	rest = rest[1:]
	if faceUp > 0 {
		d.BurnedCardsFaceUp = append([]CardID(nil), rest[:faceUp]...)
		rest = rest[faceUp:]
	}
	d.Hands = make([][]CardID, players)
	for i := 0; i < players; i++ {
		d.Hands[i] = []CardID{rest[0]}
		rest = rest[1:]
	}
	d.RemainingDeck = append([]CardID(nil), rest...)
	return d, nil
}
