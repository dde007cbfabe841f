// Package ai chooses actions for computer-controlled seats.
package ai

import (
	"slices"
	"sync"

	"royalletters/internal/engine"
	"royalletters/internal/rng"
)

// Policy picks one of the legal actions for a player. It is only asked when
// it is that player's turn and legal is not empty. view is the state as the
// player may see it.
type Policy interface {
	Choose(view *engine.GameState, playerID string, legal []engine.GameAction) engine.GameAction
}

// Baseline scores each legal action with simple card heuristics and breaks
// ties with its own seeded stream, so a seat replays identically.
type Baseline struct {
	cat    *engine.Catalog
	mu     sync.Mutex
	stream *rng.Stream
}

func NewBaseline(cat *engine.Catalog, seed string) *Baseline {
	return &Baseline{cat: cat, stream: rng.New(seed)}
}

func (b *Baseline) Choose(view *engine.GameState, playerID string, legal []engine.GameAction) engine.GameAction {
	if len(legal) == 1 {
		return legal[0]
	}
	me := view.Player(playerID)
	unseen := b.unseen(view, me)

	best := []int{}
	bestScore := 0.0
	for i, a := range legal {
		sc := b.score(view, me, unseen, a)
		switch {
		case len(best) == 0 || sc > bestScore:
			best = []int{i}
			bestScore = sc
		case sc == bestScore:
			best = append(best, i)
		}
	}
	b.mu.Lock()
	pick := best[b.stream.Intn(len(best))]
	b.mu.Unlock()
	return legal[pick]
}

// unseen counts the cards the player cannot account for: the full deck
// minus their own hand, every discard pile and the face-up burn cards.
func (b *Baseline) unseen(view *engine.GameState, me *engine.PlayerState) map[engine.CardID]int {
	m := b.cat.Multiset()
	take := func(ids []engine.CardID) {
		for _, c := range ids {
			if m[c] > 0 {
				m[c]--
			}
		}
	}
	take(me.Hand)
	take(view.BurnedCardsFaceUp)
	for _, p := range view.Players {
		take(p.DiscardPile)
	}
	return m
}

func (b *Baseline) score(view *engine.GameState, me *engine.PlayerState, unseen map[engine.CardID]int, a engine.GameAction) float64 {
	if a.Type == engine.ActionChancellorReturn {
		return float64(b.cat.Value(kept(me.Hand, a.CardsToReturn)))
	}
	def, _ := b.cat.Get(a.CardID)
	other := kept(me.Hand, []engine.CardID{a.CardID})
	otherValue := b.cat.Value(other)

	if def.Effect.RequiresTargetPlayer && a.TargetPlayerID == "" {
		return 0
	}
	sc := 0.0
	switch {
	case def.Effect.Has(engine.CondEliminateOnDiscard):
		return -100
	case def.Effect.Has(engine.CondRevengeAfterGuard):
		sc = 8
	case def.Effect.RequiresTargetCardType:
		total := 0
		for _, n := range unseen {
			total += n
		}
		if total > 0 {
			sc = 10 * float64(unseen[a.TargetCardGuess]) / float64(total)
		}
	}
	switch a.CardID {
	case engine.CardBaron:
		sc = float64(otherValue - 4)
	case engine.CardHandmaid:
		sc = 3
	case engine.CardPriest, engine.CardCountess:
		sc = 2
	case engine.CardChancellor:
		sc = 2.5
	case engine.CardSpy:
		sc = 1.5
	case engine.CardKing:
		sc = float64(5-otherValue) / 2
	case engine.CardPrince:
		sc = 2
		if a.TargetPlayerID == me.ID {
			sc = -1
			if otherValue <= 1 {
				sc = 1
			}
		}
	}
	if t := view.Player(a.TargetPlayerID); t != nil && t.ID != me.ID {
		// lean towards the leader
		sc += 0.1 * float64(t.Tokens)
	}
	return sc
}

// kept returns the card left in hand once the given cards are gone.
func kept(hand, gone []engine.CardID) engine.CardID {
	left := slices.Clone(hand)
	for _, g := range gone {
		if k := slices.Index(left, g); k >= 0 {
			left = slices.Delete(left, k, k+1)
		}
	}
	if len(left) == 0 {
		return ""
	}
	return left[0]
}

// First always takes the first legal action.
type First struct{}

func (First) Choose(view *engine.GameState, playerID string, legal []engine.GameAction) engine.GameAction {
	return legal[0]
}
