package effects

import (
	"fmt"

	"royalletters/internal/engine"
)

// Guard names a card; a target holding a card of that value is out.
type Guard struct{}

func (Guard) Card() engine.CardID { return engine.CardGuard }

func (Guard) Validate(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) error {
	return validateGuess(cat, a)
}

// validateGuess rejects naming the played card's own rank.
func validateGuess(cat *engine.Catalog, a engine.GameAction) error {
	if _, ok := cat.Get(a.TargetCardGuess); !ok {
		return fmt.Errorf("%w: %q", engine.ErrIllegalGuess, a.TargetCardGuess)
	}
	if cat.Value(a.TargetCardGuess) == cat.Value(a.CardID) {
		return fmt.Errorf("%w: cannot name %s", engine.ErrIllegalGuess, a.TargetCardGuess)
	}
	return nil
}

func (Guard) Resolve(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) (*engine.GameState, engine.Outcome) {
	next := s.Clone()
	ti, t := target(next, a)
	next.LastGuard = &engine.GuardMark{ActorID: a.PlayerID, TargetID: t.ID, Turn: next.TurnCount}
	if next.HandValue(cat, ti) != cat.Value(a.TargetCardGuess) {
		return next, engine.Outcome{Message: fmt.Sprintf("%s does not hold %s", t.ID, a.TargetCardGuess)}
	}
	next.Eliminate(ti)
	return next, engine.Outcome{
		EliminatedPlayerID: t.ID,
		Message:            fmt.Sprintf("%s held %s", t.ID, a.TargetCardGuess),
	}
}
