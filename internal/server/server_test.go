package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"royalletters/internal/ai"
	"royalletters/internal/config"
	"royalletters/internal/engine"
	"royalletters/internal/peer"
	"royalletters/internal/protocol"
	"royalletters/internal/server"
)

func newServer(t *testing.T, cfg config.Server) (*server.Server, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	srv := server.New(ctx, cfg, zaptest.NewLogger(t))
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})
	return srv, ts
}

func createRoom(t *testing.T, ts *httptest.Server) server.CreatedRoom {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/create", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d", resp.StatusCode)
	}
	var created server.CreatedRoom
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	return created
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(20 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// guest dials a room and runs a mirror over the connection.
func guest(t *testing.T, created server.CreatedRoom, id string) (*peer.Mirror, *server.Conn, <-chan error) {
	t.Helper()
	conn, err := server.Dial(context.Background(), created.JoinURL+"&peer="+id, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	if conn.HostID() != created.HostID {
		t.Fatalf("host id %q, want %q", conn.HostID(), created.HostID)
	}
	m := peer.NewMirror(protocol.PlayerInfo{ID: id, Name: id, Ready: true}, conn, zaptest.NewLogger(t))
	done := make(chan error, 1)
	go func() { done <- conn.Run(context.Background(), m) }()
	if err := m.Join(conn.HostID()); err != nil {
		t.Fatal(err)
	}
	return m, conn, done
}

func TestCreateRoomAndQR(t *testing.T) {
	_, ts := newServer(t, config.Server{Ruleset: "2019", AutoNextRound: true})
	created := createRoom(t, ts)
	if created.RoomID == "" || created.HostID == "" {
		t.Fatalf("incomplete response: %+v", created)
	}
	if !strings.HasPrefix(created.JoinURL, "ws://") || !strings.Contains(created.JoinURL, created.RoomID) {
		t.Fatalf("join url %q", created.JoinURL)
	}

	resp, err := http.Get(ts.URL + created.QRURL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("qr: status %d, type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	tests := []struct {
		path string
		want int
	}{
		{"/api/qr", http.StatusBadRequest},
		{"/api/qr?room=nope", http.StatusNotFound},
		{"/api/state?room=nope", http.StatusNotFound},
		{"/api/create", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		resp, err := http.Get(ts.URL + tt.path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("GET %s: status %d, want %d", tt.path, resp.StatusCode, tt.want)
		}
	}
}

func TestStartAndPublicState(t *testing.T) {
	_, ts := newServer(t, config.Server{Ruleset: "classic", AISeats: 2, Seed: "bots"})
	created := createRoom(t, ts)

	get := func() *http.Response {
		resp, err := http.Get(ts.URL + "/api/state?room=" + created.RoomID)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}
	start := func() int {
		resp, err := http.Post(ts.URL+"/api/start?room="+created.RoomID, "", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	resp := get()
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("state before start: status %d", resp.StatusCode)
	}
	if code := start(); code != http.StatusNoContent {
		t.Fatalf("start: status %d", code)
	}
	// two bots play the round out, so a second call deals round two
	if code := start(); code != http.StatusNoContent {
		t.Fatalf("next round: status %d", code)
	}

	resp = get()
	defer resp.Body.Close()
	var s engine.GameState
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if len(s.Players) != 2 || s.RoundCount != 2 {
		t.Fatalf("players %d, round %d", len(s.Players), s.RoundCount)
	}
	for _, p := range s.Players {
		for _, c := range p.Hand {
			if c != engine.CardHidden {
				t.Fatalf("%s shows %s to spectators", p.ID, c)
			}
		}
	}
}

func TestGuestPlaysToGameEnd(t *testing.T) {
	for _, replay := range []bool{false, true} {
		name := "sync"
		if replay {
			name = "replay"
		}
		t.Run(name, func(t *testing.T) {
			srv, ts := newServer(t, config.Server{
				Ruleset:       "2019",
				AISeats:       1,
				AutoStartAt:   2,
				AutoNextRound: true,
				ReplayActions: replay,
				Seed:          "over-the-wire",
			})
			created := createRoom(t, ts)
			room := srv.Handlers().Room(created.RoomID)

			conn, err := server.Dial(context.Background(), created.JoinURL+"&peer=g1", zaptest.NewLogger(t))
			if err != nil {
				t.Fatal(err)
			}
			m := peer.NewMirror(protocol.PlayerInfo{ID: "g1", Name: "Guest", Ready: true}, conn, zaptest.NewLogger(t))
			last := -1
			m.OnState(func(s *engine.GameState) {
				if s.Version <= last {
					return
				}
				if a := s.ActivePlayer(); a == nil || a.ID != "g1" {
					return
				}
				legal := m.LegalActions()
				if len(legal) == 0 {
					return
				}
				last = s.Version
				if err := m.Submit(ai.First{}.Choose(s, "g1", legal)); err != nil {
					t.Errorf("submit: %v", err)
				}
			})
			done := make(chan error, 1)
			go func() { done <- conn.Run(context.Background(), m) }()
			if err := m.Join(conn.HostID()); err != nil {
				t.Fatal(err)
			}

			eventually(t, "game end", func() bool {
				s := room.Host.State()
				return s != nil && s.Phase == engine.PhaseGameEnd
			})
			eventually(t, "mirror to catch up", func() bool {
				s := m.State()
				return s != nil && s.Version == room.Host.State().Version
			})
			if _, rejected := m.LastRejection(); rejected {
				t.Error("host rejected a legal action")
			}

			conn.Close()
			<-done
		})
	}
}

func TestGuestDisconnect(t *testing.T) {
	srv, ts := newServer(t, config.Server{Ruleset: "2019", AISeats: 1, AutoStartAt: 2, Seed: "leave"})
	created := createRoom(t, ts)
	room := srv.Handlers().Room(created.RoomID)

	m, conn, done := guest(t, created, "g1")
	eventually(t, "round start", func() bool { return m.State() != nil })

	conn.Close()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		t.Logf("run: %v", err)
	}
	if !m.HostLost() {
		t.Fatal("mirror should treat the closed link as host loss")
	}
	eventually(t, "round to settle", func() bool {
		return room.Host.State().Phase == engine.PhaseRoundEnd
	})
	eventually(t, "hub to drop the peer", func() bool { return len(room.Hub.Connected()) == 0 })
}

func TestNextRoundAfterGuestRejoins(t *testing.T) {
	srv, ts := newServer(t, config.Server{Ruleset: "2019", AISeats: 1, AutoStartAt: 2, Seed: "rejoin"})
	created := createRoom(t, ts)
	room := srv.Handlers().Room(created.RoomID)
	deal := func() int {
		resp, err := http.Post(ts.URL+"/api/start?room="+created.RoomID, "", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	m, conn, done := guest(t, created, "g1")
	eventually(t, "round start", func() bool { return m.State() != nil })
	conn.Close()
	<-done
	eventually(t, "round to settle", func() bool {
		return room.Host.State().Phase == engine.PhaseRoundEnd
	})
	eventually(t, "hub to drop the peer", func() bool { return len(room.Hub.Connected()) == 0 })

	m, conn, done = guest(t, created, "g1")
	defer func() {
		conn.Close()
		<-done
	}()
	eventually(t, "state after rejoin", func() bool {
		s := m.State()
		return s != nil && s.Phase == engine.PhaseRoundEnd
	})

	if code := deal(); code != http.StatusNoContent {
		t.Fatalf("next round: status %d", code)
	}
	eventually(t, "round two on the guest", func() bool {
		s := m.State()
		return s != nil && s.RoundCount == 2 && s.Version == room.Host.State().Version
	})
	if code := deal(); code != http.StatusConflict {
		t.Fatalf("deal mid-round: status %d", code)
	}
}

func TestWSUnknownRoom(t *testing.T) {
	_, ts := newServer(t, config.Server{Ruleset: "2019"})
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?room=nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("response: %+v", resp)
	}
}

func TestHubSendUnknownPeer(t *testing.T) {
	hub := server.NewHub("room", zaptest.NewLogger(t))
	err := hub.Send("ghost", protocol.MustEnvelope(protocol.MsgError, protocol.ErrorMsg{Message: "x"}))
	if !errors.Is(err, server.ErrUnknownPeer) {
		t.Fatalf("got %v", err)
	}
}
