package engine

import "fmt"

// Outcome is what a resolver reports besides the new state.
type Outcome struct {
	RevealedCard       CardID
	EliminatedPlayerID string
	Message            string
}

// Resolver implements one card's rule. Validate runs after the engine has
// checked phase, turn, hand and generic targeting. Resolve receives a state
// in which the played card has already been discarded and returns a new
// state; it must not modify its input.
type Resolver interface {
	Card() CardID
	Validate(s *GameState, cat *Catalog, a GameAction) error
	Resolve(s *GameState, cat *Catalog, a GameAction) (*GameState, Outcome)
}

// Returner is implemented by resolvers that need a follow-up
// CHANCELLOR_RETURN action before the turn can end.
type Returner interface {
	ValidateReturn(s *GameState, cat *Catalog, a GameAction) error
	ResolveReturn(s *GameState, cat *Catalog, a GameAction) (*GameState, Outcome)
}

// Registry maps card ids to their resolvers.
type Registry struct {
	resolvers map[CardID]Resolver
}

func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[CardID]Resolver)}
}

func (r *Registry) Register(res Resolver) {
	r.resolvers[res.Card()] = res
}

func (r *Registry) Get(id CardID) (Resolver, error) {
	res, ok := r.resolvers[id]
	if !ok {
		return nil, fmt.Errorf("%w: no resolver for %q", ErrUnknownCard, id)
	}
	return res, nil
}

// Returner finds the resolver handling CHANCELLOR_RETURN.
func (r *Registry) Returner() (Returner, error) {
	res, err := r.Get(CardChancellor)
	if err != nil {
		return nil, err
	}
	ret, ok := res.(Returner)
	if !ok {
		return nil, fmt.Errorf("%w: %q cannot take returns", ErrUnknownAction, CardChancellor)
	}
	return ret, nil
}
