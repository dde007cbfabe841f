package effects

import "royalletters/internal/engine"

// King trades hands between the actor and the target.
type King struct{}

func (King) Card() engine.CardID { return engine.CardKing }

func (King) Validate(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) error {
	return nil
}

func (King) Resolve(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) (*engine.GameState, engine.Outcome) {
	next := s.Clone()
	me := next.ActivePlayer()
	_, t := target(next, a)
	me.Hand, t.Hand = t.Hand, me.Hand
	return next, engine.Outcome{Message: a.PlayerID + " traded hands with " + t.ID}
}
