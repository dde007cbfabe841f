package effects

import "royalletters/internal/engine"

// Baron compares hands; the lower value is out, a tie changes nothing.
type Baron struct{}

func (Baron) Card() engine.CardID { return engine.CardBaron }

func (Baron) Validate(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) error {
	return nil
}

func (Baron) Resolve(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) (*engine.GameState, engine.Outcome) {
	next := s.Clone()
	ai := next.ActivePlayerIndex
	ti, t := target(next, a)
	mine, theirs := next.HandValue(cat, ai), next.HandValue(cat, ti)
	switch {
	case mine > theirs:
		next.Eliminate(ti)
		return next, engine.Outcome{EliminatedPlayerID: t.ID, Message: a.PlayerID + " wins the comparison against " + t.ID}
	case mine < theirs:
		next.Eliminate(ai)
		return next, engine.Outcome{EliminatedPlayerID: a.PlayerID, Message: t.ID + " wins the comparison against " + a.PlayerID}
	default:
		return next, engine.Outcome{Message: a.PlayerID + " and " + t.ID + " tie"}
	}
}
