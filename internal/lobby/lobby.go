package lobby

import (
	"errors"
	"fmt"
	"sync"

	"royalletters/internal/engine"
)

var (
	ErrStarted          = errors.New("game already started")
	ErrFull             = errors.New("lobby is full")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrNotReady         = errors.New("not all players ready")
)

// PlayerInfo holds lobby-level player information.
type PlayerInfo struct {
	ID       string
	Name     string
	AvatarID string
	Ready    bool
	IsHost   bool
	IsAI     bool
}

// Lobby is the roster of a room before its first round.
type Lobby struct {
	mu         sync.Mutex
	ID         string
	Ruleset    engine.Ruleset
	Players    []*PlayerInfo
	MaxPlayers int
	MinPlayers int
	Started    bool
}

// NewLobby creates a lobby sized by the ruleset's player bounds.
func NewLobby(id string, ruleset engine.Ruleset) (*Lobby, error) {
	spec, err := ruleset.Spec()
	if err != nil {
		return nil, err
	}
	return &Lobby{
		ID:         id,
		Ruleset:    ruleset,
		MaxPlayers: spec.MaxPlayers,
		MinPlayers: spec.MinPlayers,
	}, nil
}

// Join adds a player. Joining again with a known id updates the seat; after
// the start only known ids are accepted.
func (l *Lobby) Join(p PlayerInfo) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p.ID == "" {
		return fmt.Errorf("join: empty player id")
	}
	for _, existing := range l.Players {
		if existing.ID == p.ID {
			existing.Name = p.Name
			if p.AvatarID != "" {
				existing.AvatarID = p.AvatarID
			}
			existing.Ready = p.Ready || existing.IsAI
			return nil
		}
	}
	if l.Started {
		return ErrStarted
	}
	if len(l.Players) >= l.MaxPlayers {
		return ErrFull
	}
	if p.IsAI {
		p.Ready = true
	}
	l.Players = append(l.Players, &p)
	return nil
}

// Leave removes a player before the start. It reports whether the id was seated.
func (l *Lobby) Leave(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Started {
		return false
	}
	for i, p := range l.Players {
		if p.ID == id {
			l.Players = append(l.Players[:i], l.Players[i+1:]...)
			return true
		}
	}
	return false
}

// SetReady toggles a player's ready state.
func (l *Lobby) SetReady(id string, ready bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.Players {
		if p.ID == id {
			p.Ready = ready
			return
		}
	}
}

// Has reports whether the id holds a seat.
func (l *Lobby) Has(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.Players {
		if p.ID == id {
			return true
		}
	}
	return false
}

// CanStart returns true if enough players are seated and all are ready.
func (l *Lobby) CanStart() bool {
	return l.check() == nil
}

func (l *Lobby) check() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Started {
		return ErrStarted
	}
	if len(l.Players) < l.MinPlayers {
		return ErrNotEnoughPlayers
	}
	for _, p := range l.Players {
		if !p.Ready {
			return fmt.Errorf("%w: %s", ErrNotReady, p.ID)
		}
	}
	return nil
}

// Start marks the lobby as started.
func (l *Lobby) Start() error {
	if err := l.check(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Started = true
	return nil
}

// IsStarted reports whether the first round was dealt.
func (l *Lobby) IsStarted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Started
}

// GetPlayers returns a copy of the player list.
func (l *Lobby) GetPlayers() []PlayerInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]PlayerInfo, len(l.Players))
	for i, p := range l.Players {
		out[i] = *p
	}
	return out
}

// Configs returns the seats in join order as engine player configs.
func (l *Lobby) Configs() []engine.PlayerConfig {
	players := l.GetPlayers()
	out := make([]engine.PlayerConfig, len(players))
	for i, p := range players {
		out[i] = engine.PlayerConfig{ID: p.ID, Name: p.Name, AvatarID: p.AvatarID, IsHost: p.IsHost, IsAI: p.IsAI}
	}
	return out
}
