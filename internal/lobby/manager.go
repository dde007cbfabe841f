package lobby

import (
	"sync"

	"github.com/google/uuid"

	"royalletters/internal/engine"
)

// Manager manages multiple lobbies.
type Manager struct {
	mu      sync.Mutex
	lobbies map[string]*Lobby
}

func NewManager() *Manager {
	return &Manager{lobbies: make(map[string]*Lobby)}
}

// Create creates a new lobby for the ruleset and returns it.
func (m *Manager) Create(ruleset engine.Ruleset) (*Lobby, error) {
	lob, err := NewLobby(uuid.NewString(), ruleset)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lobbies[lob.ID] = lob
	return lob, nil
}

// Get returns a lobby by ID.
func (m *Manager) Get(id string) *Lobby {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lobbies[id]
}

// Remove forgets a lobby.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lobbies, id)
}
