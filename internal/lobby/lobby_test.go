package lobby_test

import (
	"errors"
	"testing"

	"royalletters/internal/engine"
	"royalletters/internal/lobby"
)

func newLobby(t *testing.T, r engine.Ruleset) *lobby.Lobby {
	t.Helper()
	l, err := lobby.NewLobby("room", r)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestLobbyCapacityFollowsRuleset(t *testing.T) {
	tests := []struct {
		ruleset engine.Ruleset
		max     int
	}{
		{engine.RulesetClassic, 4},
		{engine.Ruleset2019, 6},
	}
	for _, tt := range tests {
		t.Run(string(tt.ruleset), func(t *testing.T) {
			l := newLobby(t, tt.ruleset)
			for i := 0; i < tt.max; i++ {
				if err := l.Join(lobby.PlayerInfo{ID: string(rune('a' + i))}); err != nil {
					t.Fatalf("join %d: %v", i, err)
				}
			}
			if err := l.Join(lobby.PlayerInfo{ID: "late"}); !errors.Is(err, lobby.ErrFull) {
				t.Fatalf("expected ErrFull, got %v", err)
			}
		})
	}
}

func TestLobbyUnknownRuleset(t *testing.T) {
	if _, err := lobby.NewLobby("x", "nope"); err == nil {
		t.Fatal("expected error")
	}
}

func TestLobbyStartNeedsReadyPlayers(t *testing.T) {
	l := newLobby(t, engine.Ruleset2019)
	l.Join(lobby.PlayerInfo{ID: "h", Name: "Host", IsHost: true, Ready: true})
	if err := l.Start(); !errors.Is(err, lobby.ErrNotEnoughPlayers) {
		t.Fatalf("expected ErrNotEnoughPlayers, got %v", err)
	}
	l.Join(lobby.PlayerInfo{ID: "g", Name: "Guest"})
	if l.CanStart() {
		t.Fatal("guest is not ready")
	}
	if err := l.Start(); !errors.Is(err, lobby.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	l.SetReady("g", true)
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	if err := l.Start(); !errors.Is(err, lobby.ErrStarted) {
		t.Fatalf("second start: %v", err)
	}
}

func TestLobbyAISeatsAreReady(t *testing.T) {
	l := newLobby(t, engine.Ruleset2019)
	l.Join(lobby.PlayerInfo{ID: "h", Ready: true})
	l.Join(lobby.PlayerInfo{ID: "bot", IsAI: true})
	if !l.CanStart() {
		t.Fatal("AI seat should be ready")
	}
}

func TestLobbyRejoinAfterStart(t *testing.T) {
	l := newLobby(t, engine.RulesetClassic)
	l.Join(lobby.PlayerInfo{ID: "a", Name: "A", Ready: true})
	l.Join(lobby.PlayerInfo{ID: "b", Name: "B", Ready: true})
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	if err := l.Join(lobby.PlayerInfo{ID: "b", Name: "Bee", Ready: true}); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if err := l.Join(lobby.PlayerInfo{ID: "c"}); !errors.Is(err, lobby.ErrStarted) {
		t.Fatalf("new seat after start: %v", err)
	}
	if l.Leave("a") {
		t.Fatal("seats are fixed once started")
	}
	cfgs := l.Configs()
	if len(cfgs) != 2 || cfgs[1].Name != "Bee" {
		t.Fatalf("configs: %+v", cfgs)
	}
}

func TestManager(t *testing.T) {
	m := lobby.NewManager()
	l, err := m.Create(engine.RulesetHouse)
	if err != nil {
		t.Fatal(err)
	}
	if l.ID == "" || m.Get(l.ID) != l {
		t.Fatal("lobby not registered")
	}
	m.Remove(l.ID)
	if m.Get(l.ID) != nil {
		t.Fatal("lobby not removed")
	}
}
