package effects

import (
	"fmt"

	"royalletters/internal/engine"
)

// CookieGuard is the house-rule revenge card. On the turn after a Guard
// targeted its holder, it knocks out whoever played that Guard.
type CookieGuard struct{}

func (CookieGuard) Card() engine.CardID { return engine.CardCookieGuard }

// Targets allows only the player whose Guard targeted the actor.
func (CookieGuard) Targets(s *engine.GameState, cat *engine.Catalog, actor int) []int {
	g := s.LastGuard
	if g == nil || g.TargetID != s.Players[actor].ID {
		return nil
	}
	i := s.PlayerIndex(g.ActorID)
	if i < 0 || i == actor {
		return nil
	}
	if p := &s.Players[i]; !p.InRound() || p.Status == engine.StatusProtected {
		return nil
	}
	return []int{i}
}

func (CookieGuard) Validate(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) error {
	if g := s.LastGuard; g == nil || g.TargetID != a.PlayerID || g.ActorID != a.TargetPlayerID {
		return fmt.Errorf("%w: no guard to avenge", engine.ErrInvalidTarget)
	}
	return nil
}

func (CookieGuard) Resolve(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) (*engine.GameState, engine.Outcome) {
	next := s.Clone()
	ti, t := target(next, a)
	next.LastGuard = nil
	next.Eliminate(ti)
	return next, engine.Outcome{
		EliminatedPlayerID: t.ID,
		Message:            fmt.Sprintf("%s takes revenge on %s", a.PlayerID, t.ID),
	}
}
