package engine

import (
	"errors"
	"fmt"
	"slices"

	"royalletters/internal/rng"
)

var (
	ErrWrongPhase       = errors.New("wrong phase for this action")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrCardNotHeld      = errors.New("card not in hand")
	ErrInvalidTarget    = errors.New("invalid target")
	ErrTargetProtected  = errors.New("target is protected")
	ErrIllegalGuess     = errors.New("illegal guess")
	ErrMustPlayCountess = errors.New("countess must be discarded")
	ErrInvalidReturn    = errors.New("invalid chancellor return")
	ErrDeckEmpty        = errors.New("deck is empty")
	ErrUnknownCard      = errors.New("unknown card")
	ErrUnknownAction    = errors.New("unknown action")
	ErrGameOver         = errors.New("game is over")
)

// ConfigError reports a game configuration that cannot be started.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "invalid game config: " + e.Reason }

// PlayerConfig describes a seat at creation time.
type PlayerConfig struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	AvatarID string `json:"avatarId,omitempty"`
	IsHost   bool   `json:"isHost,omitempty"`
	IsAI     bool   `json:"isAI,omitempty"`
}

// GameConfig holds configuration for creating a new game.
type GameConfig struct {
	Players     []PlayerConfig `json:"players"`
	TokensToWin int            `json:"tokensToWin,omitempty"` // 0 uses the ruleset table
	Ruleset     Ruleset        `json:"ruleset,omitempty"`     // default 2019
	Seed        string         `json:"seed,omitempty"`        // empty draws a fresh game seed
}

var palette = []string{"crimson", "royalblue", "goldenrod", "seagreen", "darkorchid", "darkorange"}

// Rules bundles the immutable inputs every transition needs.
type Rules struct {
	Catalog  *Catalog
	Registry *Registry
}

// NewGameState validates the config and builds the LOBBY state.
func NewGameState(cfg GameConfig, cat *Catalog) (*GameState, error) {
	spec, err := cat.Ruleset().Spec()
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	n := len(cfg.Players)
	if n < spec.MinPlayers || n > spec.MaxPlayers {
		return nil, &ConfigError{Reason: fmt.Sprintf("%d players, ruleset %s allows %d-%d", n, cat.Ruleset(), spec.MinPlayers, spec.MaxPlayers)}
	}
	if cfg.TokensToWin < 0 {
		return nil, &ConfigError{Reason: "negative tokens to win"}
	}
	seen := make(map[string]bool, n)
	s := &GameState{
		Players:     make([]PlayerState, n),
		Phase:       PhaseLobby,
		GameSeed:    cfg.Seed,
		Ruleset:     cat.Ruleset(),
		TokensToWin: cfg.TokensToWin,
		Logs:        []LogEntry{},
	}
	if s.TokensToWin == 0 {
		s.TokensToWin = spec.TokensToWin(n)
	}
	if s.GameSeed == "" {
		s.GameSeed = rng.NewSeed()
	}
	for i, pc := range cfg.Players {
		if pc.ID == "" {
			return nil, &ConfigError{Reason: fmt.Sprintf("player %d has no id", i)}
		}
		if seen[pc.ID] {
			return nil, &ConfigError{Reason: fmt.Sprintf("duplicate player id %q", pc.ID)}
		}
		seen[pc.ID] = true
		avatar := pc.AvatarID
		if avatar == "" {
			avatar = fmt.Sprintf("avatar-%d", i+1)
		}
		s.Players[i] = PlayerState{
			ID:       pc.ID,
			Name:     pc.Name,
			Color:    palette[i%len(palette)],
			AvatarID: avatar,
			Status:   StatusPlaying,
			IsHost:   pc.IsHost,
			IsAI:     pc.IsAI,
		}
	}
	return s, nil
}

// StartRound builds and deals a new round. An empty seed derives the round
// seed from the game seed. The round rests in TURN_START until DrawPhase.
func StartRound(s *GameState, rules Rules, seed string) (*GameState, error) {
	switch s.Phase {
	case PhaseLobby, PhaseRoundEnd:
	case PhaseGameEnd:
		return s, ErrGameOver
	default:
		return s, fmt.Errorf("start round in %s: %w", s.Phase, ErrWrongPhase)
	}
	spec, err := s.Ruleset.Spec()
	if err != nil {
		return s, err
	}

	next := s.Clone()
	next.Version++
	next.Phase = PhaseRoundStart
	next.RoundCount++
	if seed == "" {
		seed = rng.Derive(next.GameSeed, next.RoundCount)
	}
	next.RngSeed = seed

	deal, err := DealRound(BuildDeck(rules.Catalog, rng.New(seed)), len(next.Players), spec)
	if err != nil {
		return s, err
	}
	next.Deck = deal.RemainingDeck
	next.BurnedCard = deal.BurnedCard
	next.BurnedCardsFaceUp = deal.BurnedCardsFaceUp
	for i := range next.Players {
		p := &next.Players[i]
		p.Hand = deal.Hands[i]
		p.DiscardPile = nil
		p.Status = StatusPlaying
	}
	next.WinnerIDs = nil
	next.PendingAction = nil
	next.ChancellorCards = nil
	next.LastGuard = nil
	next.ActivePlayerIndex = (next.RoundCount - 1) % len(next.Players)
	next.TurnCount++
	next.Phase = PhaseTurnStart
	next.AppendLog(LogEntry{
		Kind:     LogRoundStart,
		PlayerID: next.ActivePlayer().ID,
		Message:  fmt.Sprintf("round %d started, %s goes first", next.RoundCount, next.ActivePlayer().ID),
	})
	return next, nil
}

// DrawPhase gives the active player the top card of the deck. With an empty
// deck the round ends instead; the round-ended state is returned together
// with ErrDeckEmpty.
func DrawPhase(s *GameState, rules Rules) (*GameState, error) {
	if s.Phase != PhaseTurnStart {
		return s, fmt.Errorf("draw in %s: %w", s.Phase, ErrWrongPhase)
	}
	next := s.Clone()
	next.Version++
	if len(next.Deck) == 0 {
		return endRound(next, rules.Catalog), ErrDeckEmpty
	}
	next.DrawFor(next.ActivePlayerIndex)
	next.AppendLog(LogEntry{Kind: LogDraw, PlayerID: next.ActivePlayer().ID, Message: next.ActivePlayer().ID + " draws"})
	next.Phase = PhaseWaitingForAction
	return next, nil
}

// Validate checks an action against the state without applying it.
func Validate(s *GameState, rules Rules, a GameAction) error {
	switch a.Type {
	case ActionPlayCard:
		_, err := validatePlay(s, rules, a)
		return err
	case ActionChancellorReturn:
		_, err := validateReturn(s, rules, a)
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
}

// ApplyMove validates and applies one action. It never partially applies:
// on failure the result carries s itself.
func ApplyMove(s *GameState, rules Rules, a GameAction) ActionResult {
	switch a.Type {
	case ActionPlayCard:
		return applyPlay(s, rules, a)
	case ActionChancellorReturn:
		return applyReturn(s, rules, a)
	default:
		return rejected(s, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type))
	}
}

// AbortRound forces the round to ROUND_END without a winner.
func AbortRound(s *GameState, reason string) (*GameState, error) {
	if s.Phase.Settled() {
		return s, fmt.Errorf("abort in %s: %w", s.Phase, ErrWrongPhase)
	}
	next := s.Clone()
	next.Version++
	next.Phase = PhaseRoundEnd
	next.PendingAction = nil
	next.ChancellorCards = nil
	next.WinnerIDs = nil
	next.AppendLog(LogEntry{Kind: LogAborted, Message: "round aborted: " + reason})
	return next, nil
}

func checkTurn(s *GameState, playerID string, phase GamePhase) error {
	if s.Phase == PhaseGameEnd {
		return ErrGameOver
	}
	if s.Phase != phase {
		return fmt.Errorf("%w: %s", ErrWrongPhase, s.Phase)
	}
	if p := s.ActivePlayer(); p == nil || p.ID != playerID {
		return ErrNotYourTurn
	}
	return nil
}

func validatePlay(s *GameState, rules Rules, a GameAction) (Resolver, error) {
	if err := checkTurn(s, a.PlayerID, PhaseWaitingForAction); err != nil {
		return nil, err
	}
	actor := s.ActivePlayer()
	if !actor.Holds(a.CardID) {
		return nil, fmt.Errorf("%w: %s", ErrCardNotHeld, a.CardID)
	}
	def, ok := rules.Catalog.Get(a.CardID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCard, a.CardID)
	}
	if err := checkForcedDiscard(actor, rules.Catalog, a.CardID); err != nil {
		return nil, err
	}
	res, err := rules.Registry.Get(a.CardID)
	if err != nil {
		return nil, err
	}

	if !def.Effect.RequiresTargetPlayer {
		if a.TargetPlayerID != "" {
			return nil, fmt.Errorf("%w: %s takes no target", ErrInvalidTarget, a.CardID)
		}
	} else if err := checkTarget(s, rules, def, a); err != nil {
		return nil, err
	}
	if def.Effect.RequiresTargetCardType && a.TargetPlayerID != "" {
		if _, ok := rules.Catalog.Get(a.TargetCardGuess); !ok {
			return nil, fmt.Errorf("%w: %q", ErrIllegalGuess, a.TargetCardGuess)
		}
	}
	if a.TargetPlayerID == "" && a.TargetCardGuess != "" {
		return nil, fmt.Errorf("%w: %q without a target", ErrIllegalGuess, a.TargetCardGuess)
	}
	if !def.Effect.RequiresTargetCardType && a.TargetCardGuess != "" {
		return nil, fmt.Errorf("%w: %s takes no guess", ErrIllegalGuess, a.CardID)
	}
	if a.TargetPlayerID == "" && def.Effect.RequiresTargetPlayer {
		// played without effect
		return res, nil
	}
	if err := res.Validate(s, rules.Catalog, a); err != nil {
		return nil, err
	}
	return res, nil
}

// checkForcedDiscard rejects playing anything but a card whose condition
// forces it out alongside another held card.
func checkForcedDiscard(p *PlayerState, cat *Catalog, played CardID) error {
	for _, held := range p.Hand {
		if held == played {
			continue
		}
		def, _ := cat.Get(held)
		for _, forcer := range def.Effect.ForcedBy() {
			if p.Holds(forcer) {
				return fmt.Errorf("%w: holding %s with %s", ErrMustPlayCountess, held, forcer)
			}
		}
	}
	return nil
}

// Targeter lets a resolver narrow the players its card may target.
type Targeter interface {
	Targets(s *GameState, cat *Catalog, actor int) []int
}

// Targets returns the seats a card played by actor may target.
func Targets(s *GameState, rules Rules, actor int, card CardID) []int {
	if res, err := rules.Registry.Get(card); err == nil {
		if t, ok := res.(Targeter); ok {
			return t.Targets(s, rules.Catalog, actor)
		}
	}
	def, _ := rules.Catalog.Get(card)
	var out []int
	for i := range s.Players {
		p := &s.Players[i]
		if i == actor {
			if def.Effect.CanTargetSelf {
				out = append(out, i)
			}
			continue
		}
		if p.InRound() && p.Status != StatusProtected {
			out = append(out, i)
		}
	}
	return out
}

func checkTarget(s *GameState, rules Rules, def CardDefinition, a GameAction) error {
	actor := s.ActivePlayerIndex
	allowed := Targets(s, rules, actor, def.ID)
	if a.TargetPlayerID == "" {
		if len(allowed) > 0 {
			return fmt.Errorf("%w: %s needs a target", ErrInvalidTarget, def.ID)
		}
		return nil
	}
	ti := s.PlayerIndex(a.TargetPlayerID)
	if ti < 0 {
		return fmt.Errorf("%w: unknown player %q", ErrInvalidTarget, a.TargetPlayerID)
	}
	if slices.Contains(allowed, ti) {
		return nil
	}
	t := &s.Players[ti]
	switch {
	case ti == actor:
		return fmt.Errorf("%w: %s cannot target yourself", ErrInvalidTarget, def.ID)
	case !t.InRound():
		return fmt.Errorf("%w: %s is out of the round", ErrInvalidTarget, t.ID)
	case t.Status == StatusProtected:
		return fmt.Errorf("%w: %s", ErrTargetProtected, t.ID)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidTarget, t.ID)
	}
}

func applyPlay(s *GameState, rules Rules, a GameAction) ActionResult {
	res, err := validatePlay(s, rules, a)
	if err != nil {
		return rejected(s, err)
	}
	cat := rules.Catalog

	next := s.Clone()
	next.Version++
	next.Phase = PhaseResolvingAction
	pending := a.clone()
	next.PendingAction = &pending
	next.AppendLog(LogEntry{
		Kind:     LogPlay,
		PlayerID: a.PlayerID,
		TargetID: a.TargetPlayerID,
		CardID:   a.CardID,
		Message:  a.String(),
	})

	result := ActionResult{Success: true, Message: a.String()}
	actor := next.ActivePlayerIndex
	switch {
	case next.Discard(cat, actor, a.CardID):
		result.EliminatedPlayerID = a.PlayerID
		next.AppendLog(LogEntry{Kind: LogEliminated, PlayerID: a.PlayerID, CardID: a.CardID, Message: a.PlayerID + " discarded " + string(a.CardID) + " and is out"})
	case a.TargetPlayerID == "" && needsTarget(cat, a.CardID):
		next.AppendLog(LogEntry{Kind: LogEffect, PlayerID: a.PlayerID, CardID: a.CardID, Message: "no valid target, no effect"})
	default:
		var out Outcome
		next, out = res.Resolve(next, cat, a)
		result.RevealedCard = out.RevealedCard
		result.EliminatedPlayerID = out.EliminatedPlayerID
		if out.Message != "" {
			result.Message = out.Message
			next.AppendLog(LogEntry{Kind: LogEffect, PlayerID: a.PlayerID, TargetID: a.TargetPlayerID, CardID: a.CardID, Message: out.Message})
		}
		if out.EliminatedPlayerID != "" {
			next.AppendLog(LogEntry{Kind: LogEliminated, PlayerID: out.EliminatedPlayerID, Message: out.EliminatedPlayerID + " is out"})
		}
	}
	result.NewState = finishTurn(next, cat)
	return result
}

func needsTarget(cat *Catalog, id CardID) bool {
	def, _ := cat.Get(id)
	return def.Effect.RequiresTargetPlayer
}

func validateReturn(s *GameState, rules Rules, a GameAction) (Returner, error) {
	if err := checkTurn(s, a.PlayerID, PhaseChancellorResolving); err != nil {
		return nil, err
	}
	ret, err := rules.Registry.Returner()
	if err != nil {
		return nil, err
	}
	if err := ret.ValidateReturn(s, rules.Catalog, a); err != nil {
		return nil, err
	}
	return ret, nil
}

func applyReturn(s *GameState, rules Rules, a GameAction) ActionResult {
	ret, err := validateReturn(s, rules, a)
	if err != nil {
		return rejected(s, err)
	}
	next := s.Clone()
	next.Version++
	next.Phase = PhaseResolvingAction
	next, out := ret.ResolveReturn(next, rules.Catalog, a)
	next.AppendLog(LogEntry{
		Kind:     LogReturn,
		PlayerID: a.PlayerID,
		Message:  fmt.Sprintf("%s returns %d card(s) to the bottom of the deck", a.PlayerID, len(a.CardsToReturn)),
	})
	result := ActionResult{Success: true, Message: out.Message}
	if result.Message == "" {
		result.Message = a.String()
	}
	result.NewState = finishTurn(next, rules.Catalog)
	return result
}

// finishTurn ends the turn unless a follow-up action is pending.
func finishTurn(next *GameState, cat *Catalog) *GameState {
	if next.Phase == PhaseChancellorResolving {
		return next
	}
	next.PendingAction = nil
	// a Guard target's reaction window closes with their own turn
	if g := next.LastGuard; g != nil && g.TargetID == next.ActivePlayer().ID {
		next.LastGuard = nil
	}
	if len(next.Remaining()) <= 1 {
		return endRound(next, cat)
	}
	return advanceTurn(next, cat)
}

// advanceTurn passes the turn to the next player still in the round. That
// player's protection lapses as the turn starts.
func advanceTurn(next *GameState, cat *Catalog) *GameState {
	n := len(next.Players)
	for step := 1; step <= n; step++ {
		i := (next.ActivePlayerIndex + step) % n
		if next.Players[i].InRound() {
			next.ActivePlayerIndex = i
			break
		}
	}
	p := next.ActivePlayer()
	if p.Status == StatusProtected {
		p.Status = StatusPlaying
	}
	next.TurnCount++
	next.Phase = PhaseTurnStart
	if len(next.Deck) == 0 {
		return endRound(next, cat)
	}
	return next
}
