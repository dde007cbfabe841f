package engine

import "slices"

// Status is a player's standing within the current round.
type Status string

const (
	StatusPlaying    Status = "PLAYING"
	StatusEliminated Status = "ELIMINATED"
	StatusProtected  Status = "PROTECTED"
	StatusWonRound   Status = "WON_ROUND"
)

// PlayerState holds one player's state.
type PlayerState struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	AvatarID    string   `json:"avatarId"`
	Hand        []CardID `json:"hand"`
	DiscardPile []CardID `json:"discardPile"`
	Tokens      int      `json:"tokens"`
	Status      Status   `json:"status"`
	IsHost      bool     `json:"isHost"`
	IsAI        bool     `json:"isAI,omitempty"`
}

// InRound reports whether the player has not been knocked out this round.
func (p *PlayerState) InRound() bool {
	return p.Status != StatusEliminated
}

// Holds reports whether the player's hand contains the card.
func (p *PlayerState) Holds(id CardID) bool {
	return slices.Contains(p.Hand, id)
}

// GuardMark remembers the last Guard play for the Cookie Guard reaction.
type GuardMark struct {
	ActorID  string `json:"actorId"`
	TargetID string `json:"targetId"`
	Turn     int    `json:"turn"`
}

// GameState is one immutable version of the game. A value handed out by the
// engine is never modified again; every accepted transition builds a new one.
type GameState struct {
	Version           int           `json:"version"`
	Players           []PlayerState `json:"players"`
	Deck              []CardID      `json:"deck"` // top is index 0
	BurnedCard        CardID        `json:"burnedCard,omitempty"`
	BurnedCardsFaceUp []CardID      `json:"burnedCardsFaceUp,omitempty"`
	ActivePlayerIndex int           `json:"activePlayerIndex"`
	Phase             GamePhase     `json:"phase"`
	PendingAction     *GameAction   `json:"pendingAction,omitempty"`
	WinnerIDs         []string      `json:"winnerIds,omitempty"`
	Logs              []LogEntry    `json:"logs"`
	GameSeed          string        `json:"gameSeed"`
	RngSeed           string        `json:"rngSeed"`
	RoundCount        int           `json:"roundCount"`
	TurnCount         int           `json:"turnCount"`
	Ruleset           Ruleset       `json:"ruleset"`
	TokensToWin       int           `json:"tokensToWin"`
	ChancellorCards   []CardID      `json:"chancellorCards,omitempty"`
	LastGuard         *GuardMark    `json:"lastGuard,omitempty"`
}

// Clone returns a deep copy that shares no memory with s.
func (s *GameState) Clone() *GameState {
	c := *s
	c.Players = make([]PlayerState, len(s.Players))
	for i, p := range s.Players {
		p.Hand = slices.Clone(p.Hand)
		p.DiscardPile = slices.Clone(p.DiscardPile)
		c.Players[i] = p
	}
	c.Deck = slices.Clone(s.Deck)
	c.BurnedCardsFaceUp = slices.Clone(s.BurnedCardsFaceUp)
	c.WinnerIDs = slices.Clone(s.WinnerIDs)
	c.Logs = slices.Clone(s.Logs)
	c.ChancellorCards = slices.Clone(s.ChancellorCards)
	if s.PendingAction != nil {
		a := s.PendingAction.clone()
		c.PendingAction = &a
	}
	if s.LastGuard != nil {
		g := *s.LastGuard
		c.LastGuard = &g
	}
	return &c
}

// PlayerIndex returns the seat of a player id, or -1.
func (s *GameState) PlayerIndex(id string) int {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// Player finds a player by id.
func (s *GameState) Player(id string) *PlayerState {
	if i := s.PlayerIndex(id); i >= 0 {
		return &s.Players[i]
	}
	return nil
}

// ActivePlayer returns the player whose turn it is.
func (s *GameState) ActivePlayer() *PlayerState {
	if s.ActivePlayerIndex < 0 || s.ActivePlayerIndex >= len(s.Players) {
		return nil
	}
	return &s.Players[s.ActivePlayerIndex]
}

// Remaining returns the seats of players still in the round, in seat order.
func (s *GameState) Remaining() []int {
	var idx []int
	for i := range s.Players {
		if s.Players[i].InRound() {
			idx = append(idx, i)
		}
	}
	return idx
}

// CountCards tallies every card across deck, burn piles, hands and discards.
func (s *GameState) CountCards() map[CardID]int {
	m := map[CardID]int{}
	for _, c := range s.Deck {
		m[c]++
	}
	if s.BurnedCard != "" {
		m[s.BurnedCard]++
	}
	for _, c := range s.BurnedCardsFaceUp {
		m[c]++
	}
	for _, p := range s.Players {
		for _, c := range p.Hand {
			m[c]++
		}
		for _, c := range p.DiscardPile {
			m[c]++
		}
	}
	return m
}

// The helpers below mutate s. They are only called on a fresh clone that has
// not been published yet.

// DrawFor moves the top card of the deck into a player's hand.
func (s *GameState) DrawFor(i int) (CardID, bool) {
	if len(s.Deck) == 0 {
		return "", false
	}
	c := s.Deck[0]
	s.Deck = s.Deck[1:]
	s.Players[i].Hand = append(s.Players[i].Hand, c)
	return c, true
}

// DrawBurned moves the face-down burn card into a player's hand.
func (s *GameState) DrawBurned(i int) (CardID, bool) {
	if s.BurnedCard == "" {
		return "", false
	}
	c := s.BurnedCard
	s.BurnedCard = ""
	s.Players[i].Hand = append(s.Players[i].Hand, c)
	return c, true
}

// TakeFromHand removes one copy of a card from a player's hand.
func (s *GameState) TakeFromHand(i int, id CardID) bool {
	h := s.Players[i].Hand
	for k, c := range h {
		if c == id {
			s.Players[i].Hand = slices.Delete(slices.Clone(h), k, k+1)
			return true
		}
	}
	return false
}

// Discard moves a card from a player's hand onto their discard pile. A card
// that eliminates on discard knocks its owner out no matter how it left the
// hand. It reports whether the player was eliminated.
func (s *GameState) Discard(cat *Catalog, i int, id CardID) bool {
	if !s.TakeFromHand(i, id) {
		return false
	}
	s.Players[i].DiscardPile = append(s.Players[i].DiscardPile, id)
	if def, ok := cat.Get(id); ok && def.Effect.Has(CondEliminateOnDiscard) {
		s.Eliminate(i)
		return true
	}
	return false
}

// Eliminate knocks a player out, moving the rest of their hand to the discard pile.
func (s *GameState) Eliminate(i int) {
	p := &s.Players[i]
	p.DiscardPile = append(p.DiscardPile, p.Hand...)
	p.Hand = nil
	p.Status = StatusEliminated
}

// HandValue returns the value of the player's held card, or -1 with no card.
func (s *GameState) HandValue(cat *Catalog, i int) int {
	h := s.Players[i].Hand
	if len(h) == 0 {
		return -1
	}
	best := -1
	for _, c := range h {
		best = max(best, cat.Value(c))
	}
	return best
}
