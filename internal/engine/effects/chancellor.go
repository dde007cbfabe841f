package effects

import (
	"fmt"

	"royalletters/internal/engine"
)

// Chancellor draws up to two cards; the player then puts all but one on the
// bottom of the deck with a CHANCELLOR_RETURN action.
type Chancellor struct{}

func (Chancellor) Card() engine.CardID { return engine.CardChancellor }

func (Chancellor) Validate(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) error {
	return nil
}

func (Chancellor) Resolve(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) (*engine.GameState, engine.Outcome) {
	next := s.Clone()
	ai := next.ActivePlayerIndex
	var drawn []engine.CardID
	for len(drawn) < 2 {
		c, ok := next.DrawFor(ai)
		if !ok {
			break
		}
		drawn = append(drawn, c)
	}
	if len(drawn) == 0 {
		return next, engine.Outcome{Message: a.PlayerID + " finds the deck empty"}
	}
	next.ChancellorCards = drawn
	next.Phase = engine.PhaseChancellorResolving
	return next, engine.Outcome{Message: fmt.Sprintf("%s draws %d card(s)", a.PlayerID, len(drawn))}
}

// ValidateReturn requires the returned cards to leave exactly one in hand.
func (Chancellor) ValidateReturn(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) error {
	p := s.ActivePlayer()
	if want := len(p.Hand) - 1; len(a.CardsToReturn) != want {
		return fmt.Errorf("%w: return %d card(s), got %d", engine.ErrInvalidReturn, want, len(a.CardsToReturn))
	}
	left := append([]engine.CardID(nil), p.Hand...)
	for _, c := range a.CardsToReturn {
		k := -1
		for i, h := range left {
			if h == c {
				k = i
				break
			}
		}
		if k < 0 {
			return fmt.Errorf("%w: %s not in hand", engine.ErrInvalidReturn, c)
		}
		left = append(left[:k], left[k+1:]...)
	}
	return nil
}

// ResolveReturn puts the cards under the deck in the given order; the last
// one listed ends up at the very bottom.
func (Chancellor) ResolveReturn(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) (*engine.GameState, engine.Outcome) {
	next := s.Clone()
	ai := next.ActivePlayerIndex
	for _, c := range a.CardsToReturn {
		next.TakeFromHand(ai, c)
		next.Deck = append(next.Deck, c)
	}
	next.ChancellorCards = nil
	next.Phase = engine.PhaseResolvingAction
	return next, engine.Outcome{Message: fmt.Sprintf("%s keeps one card", a.PlayerID)}
}
