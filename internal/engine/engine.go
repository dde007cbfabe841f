package engine

import (
	"errors"
	"fmt"
)

// Engine owns one game: its rules and the current state version. It is not
// safe for concurrent writers; callers serialize access the way the host does.
// States it hands out are never modified afterwards and can be read freely.
type Engine struct {
	rules Rules
	state *GameState
}

// New validates the config and returns an engine in LOBBY.
func New(cfg GameConfig, registry *Registry) (*Engine, error) {
	if cfg.Ruleset == "" {
		cfg.Ruleset = Ruleset2019
	}
	if _, err := cfg.Ruleset.Spec(); err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	cat, err := LoadCatalog(cfg.Ruleset)
	if err != nil {
		return nil, err
	}
	return NewWithCatalog(cfg, cat, registry)
}

// NewWithCatalog is New with caller-supplied card data.
func NewWithCatalog(cfg GameConfig, cat *Catalog, registry *Registry) (*Engine, error) {
	for _, d := range cat.Definitions() {
		if _, err := registry.Get(d.ID); err != nil {
			return nil, &ConfigError{Reason: err.Error()}
		}
	}
	s, err := NewGameState(cfg, cat)
	if err != nil {
		return nil, err
	}
	return &Engine{rules: Rules{Catalog: cat, Registry: registry}, state: s}, nil
}

// Rules returns the catalog and registry the engine plays with.
func (e *Engine) Rules() Rules { return e.rules }

// Catalog returns the card data of the game.
func (e *Engine) Catalog() *Catalog { return e.rules.Catalog }

// State returns the current state. Callers must not modify it.
func (e *Engine) State() *GameState { return e.state }

// SetState replaces the current state wholesale. Only structural shape is
// checked: the state must come from this engine's host.
func (e *Engine) SetState(s *GameState) error {
	if s == nil {
		return errors.New("nil state")
	}
	if len(s.Players) != len(e.state.Players) {
		return fmt.Errorf("state has %d players, engine has %d", len(s.Players), len(e.state.Players))
	}
	if s.Ruleset != e.rules.Catalog.Ruleset() {
		return fmt.Errorf("state ruleset %q does not match %q", s.Ruleset, e.rules.Catalog.Ruleset())
	}
	e.state = s.Clone()
	return nil
}

// StartRound deals a new round. See StartRound.
func (e *Engine) StartRound(seed string) (*GameState, error) {
	next, err := StartRound(e.state, e.rules, seed)
	if err != nil {
		return e.state, err
	}
	e.state = next
	return next, nil
}

// DrawPhase runs the active player's draw. See DrawPhase.
func (e *Engine) DrawPhase() (*GameState, error) {
	next, err := DrawPhase(e.state, e.rules)
	e.state = next
	return next, err
}

// ApplyMove validates and applies one action.
func (e *Engine) ApplyMove(a GameAction) ActionResult {
	res := ApplyMove(e.state, e.rules, a)
	if res.Success {
		e.state = res.NewState
	}
	return res
}

// Advance applies an action and, when the turn passed, performs the next
// player's draw. This is the step every peer executes for an accepted action.
func (e *Engine) Advance(a GameAction) ActionResult {
	res := e.ApplyMove(a)
	if !res.Success {
		return res
	}
	if e.state.Phase == PhaseTurnStart {
		next, _ := e.DrawPhase()
		res.NewState = next
	}
	return res
}

// AbortRound forces ROUND_END with an explanatory log entry.
func (e *Engine) AbortRound(reason string) (*GameState, error) {
	next, err := AbortRound(e.state, reason)
	if err != nil {
		return e.state, err
	}
	e.state = next
	return next, nil
}

// LegalActions lists every action the player may submit now.
func (e *Engine) LegalActions(playerID string) []GameAction {
	return LegalActions(e.state, e.rules, playerID)
}
