package effects

import "royalletters/internal/engine"

// Handmaid protects the actor until the start of their next turn.
type Handmaid struct{}

func (Handmaid) Card() engine.CardID { return engine.CardHandmaid }

func (Handmaid) Validate(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) error {
	return nil
}

func (Handmaid) Resolve(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) (*engine.GameState, engine.Outcome) {
	next := s.Clone()
	next.ActivePlayer().Status = engine.StatusProtected
	return next, engine.Outcome{Message: a.PlayerID + " is protected"}
}
