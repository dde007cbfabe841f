package effects

import (
	"fmt"

	"royalletters/internal/engine"
)

// Prince makes the target discard their hand and draw again. With an empty
// deck the replacement is the face-down burn card.
type Prince struct{}

func (Prince) Card() engine.CardID { return engine.CardPrince }

func (Prince) Validate(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) error {
	return nil
}

func (Prince) Resolve(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) (*engine.GameState, engine.Outcome) {
	next := s.Clone()
	ti, t := target(next, a)
	discarded := append([]engine.CardID(nil), t.Hand...)
	for _, c := range discarded {
		if next.Discard(cat, ti, c) {
			return next, engine.Outcome{
				EliminatedPlayerID: t.ID,
				Message:            fmt.Sprintf("%s discarded %s and is out", t.ID, c),
			}
		}
	}
	if _, ok := next.DrawFor(ti); !ok {
		next.DrawBurned(ti)
	}
	return next, engine.Outcome{Message: fmt.Sprintf("%s discarded %v and drew a new card", t.ID, discarded)}
}
