// Package effects holds one resolver per card identity.
package effects

import "royalletters/internal/engine"

// Register adds every card resolver to r.
func Register(r *engine.Registry) {
	r.Register(Spy{})
	r.Register(Guard{})
	r.Register(CookieGuard{})
	r.Register(Priest{})
	r.Register(Baron{})
	r.Register(Handmaid{})
	r.Register(Prince{})
	r.Register(Chancellor{})
	r.Register(King{})
	r.Register(Countess{})
	r.Register(Princess{})
}

// NewRegistry returns a registry holding every resolver.
func NewRegistry() *engine.Registry {
	r := engine.NewRegistry()
	Register(r)
	return r
}

// passive is embedded by cards whose rule the engine applies on its own.
type passive struct{}

func (passive) Validate(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) error {
	return nil
}

func (passive) Resolve(s *engine.GameState, cat *engine.Catalog, a engine.GameAction) (*engine.GameState, engine.Outcome) {
	return s.Clone(), engine.Outcome{}
}

func target(s *engine.GameState, a engine.GameAction) (int, *engine.PlayerState) {
	i := s.PlayerIndex(a.TargetPlayerID)
	if i < 0 {
		return -1, nil
	}
	return i, &s.Players[i]
}
