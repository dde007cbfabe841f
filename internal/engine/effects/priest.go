package effects

import "royalletters/internal/engine"

// Priest shows the target's hand to the acting player only.
type Priest struct{}

func (Priest) Card() engine.CardID { return engine.CardPriest }

func (Priest) Validate(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) error {
	return nil
}

func (Priest) Resolve(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) (*engine.GameState, engine.Outcome) {
	next := s.Clone()
	_, t := target(next, a)
	out := engine.Outcome{Message: a.PlayerID + " looked at " + t.ID + "'s hand"}
	if len(t.Hand) > 0 {
		out.RevealedCard = t.Hand[0]
	}
	return next, out
}
