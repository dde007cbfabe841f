package peer_test

import (
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"royalletters/internal/ai"
	"royalletters/internal/engine"
	"royalletters/internal/lobby"
	"royalletters/internal/peer"
	"royalletters/internal/peer/mocks"
	"royalletters/internal/protocol"
)

// envType matches an envelope by message type.
type envType string

func (m envType) Matches(x any) bool {
	env, ok := x.(protocol.Envelope)
	return ok && env.Type == string(m)
}

func (m envType) String() string { return "envelope of type " + string(m) }

func newLobby(t *testing.T, r engine.Ruleset) *lobby.Lobby {
	t.Helper()
	l, err := lobby.NewLobby("room", r)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func info(id string) protocol.Envelope {
	return protocol.MustEnvelope(protocol.MsgPlayerInfo, protocol.PlayerInfo{ID: id, Name: id, Ready: true})
}

func sameState(t *testing.T, want, got *engine.GameState) {
	t.Helper()
	if want == nil || got == nil {
		t.Fatalf("missing state: host %v, mirror %v", want != nil, got != nil)
	}
	a, _ := json.Marshal(want)
	b, _ := json.Marshal(got)
	if string(a) != string(b) {
		t.Fatalf("mirror diverged at host version %d (mirror %d)\nhost:   %s\nmirror: %s", want.Version, got.Version, a, b)
	}
}

func TestHostAndMirrorStayInSync(t *testing.T) {
	tests := []struct {
		name   string
		replay bool
	}{
		{"full state", false},
		{"replayed actions", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := newLoopNet()
			host := peer.NewHost("host", newLobby(t, engine.Ruleset2019), net.end("host"),
				peer.Options{Seed: "sync", ReplayActions: tt.replay, Policy: ai.First{}}, zaptest.NewLogger(t))
			net.attach("host", host)
			mirror := peer.NewMirror(protocol.PlayerInfo{ID: "g1", Name: "Guest", Ready: true}, net.end("g1"), zaptest.NewLogger(t))
			net.attach("g1", mirror)

			if err := host.Seat(lobby.PlayerInfo{ID: "host", Name: "Host", IsHost: true, Ready: true}); err != nil {
				t.Fatal(err)
			}
			if _, err := host.AddAI("Bot"); err != nil {
				t.Fatal(err)
			}
			if err := mirror.Join("host"); err != nil {
				t.Fatal(err)
			}
			net.pump(t)
			if roster := mirror.Roster(); len(roster.Players) != 3 || roster.HostID != "host" {
				t.Fatalf("roster: %+v", roster)
			}

			if err := host.Start(); err != nil {
				t.Fatal(err)
			}
			net.pump(t)
			sameState(t, host.State(), mirror.State())

			for step := 0; ; step++ {
				if step > 5000 {
					t.Fatal("game did not finish")
				}
				s := host.State()
				if s.Phase == engine.PhaseGameEnd {
					break
				}
				if s.Phase == engine.PhaseRoundEnd {
					if err := host.NextRound(); err != nil {
						t.Fatal(err)
					}
					net.pump(t)
					sameState(t, host.State(), mirror.State())
					continue
				}
				switch id := s.ActivePlayer().ID; id {
				case "host":
					if res := host.Submit(host.LegalActions("host")[0]); !res.Success {
						t.Fatalf("host action rejected: %s", res.Message)
					}
				case "g1":
					legal := mirror.LegalActions()
					if len(legal) == 0 {
						t.Fatalf("mirror has no legal action in %s", s.Phase)
					}
					before := mirror.State()
					if err := mirror.Submit(legal[0]); err != nil {
						t.Fatal(err)
					}
					if mirror.State() != before {
						t.Fatal("mirror changed state before the host answered")
					}
				default:
					t.Fatalf("AI seat %s left waiting", id)
				}
				net.pump(t)
				sameState(t, host.State(), mirror.State())
			}
			if _, ok := mirror.LastRejection(); ok {
				t.Error("no action should have been rejected")
			}
		})
	}
}

func TestHostAbortsRoundWhenPlayerLeaves(t *testing.T) {
	net := newLoopNet()
	host := peer.NewHost("host", newLobby(t, engine.RulesetClassic), net.end("host"), peer.Options{Seed: "leave", AutoNextRound: true}, zaptest.NewLogger(t))
	net.attach("host", host)
	mirror := peer.NewMirror(protocol.PlayerInfo{ID: "g1", Ready: true}, net.end("g1"), zaptest.NewLogger(t))
	net.attach("g1", mirror)

	host.Seat(lobby.PlayerInfo{ID: "host", IsHost: true, Ready: true})
	mirror.Join("host")
	net.pump(t)
	if err := host.Start(); err != nil {
		t.Fatal(err)
	}
	net.pump(t)

	net.drop("g1")
	s := host.State()
	if s.Phase != engine.PhaseRoundEnd {
		t.Fatalf("expected ROUND_END, got %s", s.Phase)
	}
	if last := s.Logs[len(s.Logs)-1]; last.Kind != engine.LogAborted {
		t.Fatalf("last log %+v", last)
	}
	if len(host.Peers()) != 0 {
		t.Fatalf("peers: %v", host.Peers())
	}
	if err := host.NextRound(); err != nil {
		t.Fatalf("next round after abort: %v", err)
	}
}

func TestHostResumesWhenSeatRejoins(t *testing.T) {
	net := newLoopNet()
	host := peer.NewHost("host", newLobby(t, engine.RulesetClassic), net.end("host"), peer.Options{Seed: "leave", AutoNextRound: true}, zaptest.NewLogger(t))
	net.attach("host", host)
	first := peer.NewMirror(protocol.PlayerInfo{ID: "g1", Ready: true}, net.end("g1"), zaptest.NewLogger(t))
	net.attach("g1", first)

	host.Seat(lobby.PlayerInfo{ID: "host", IsHost: true, Ready: true})
	first.Join("host")
	net.pump(t)
	if err := host.Start(); err != nil {
		t.Fatal(err)
	}
	net.pump(t)
	net.drop("g1")
	if s := host.State(); s.Phase != engine.PhaseRoundEnd || s.RoundCount != 1 {
		t.Fatalf("after drop: phase %s round %d", s.Phase, s.RoundCount)
	}

	again := peer.NewMirror(protocol.PlayerInfo{ID: "g1", Ready: true}, net.end("g1"), zaptest.NewLogger(t))
	net.reconnect("g1", again)
	again.Join("host")
	net.pump(t)

	s := host.State()
	if s.RoundCount != 2 || s.Phase.Settled() {
		t.Fatalf("after rejoin: phase %s round %d", s.Phase, s.RoundCount)
	}
	sameState(t, s, again.State())
}

func TestHostRejectsBadSubmissions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mt := mocks.NewMockTransport(ctrl)
	mt.EXPECT().Send("g1", envType(protocol.MsgPlayerJoined)).Return(nil).AnyTimes()
	mt.EXPECT().Send("g1", envType(protocol.MsgRoundStart)).Return(nil).Times(1)
	mt.EXPECT().Send("g1", envType(protocol.MsgGameStateSync)).Return(nil).Times(1)
	mt.EXPECT().Send("g1", envType(protocol.MsgActionRejected)).Return(nil).Times(2)
	mt.EXPECT().Send("g1", envType(protocol.MsgError)).Return(nil).Times(2)

	host := peer.NewHost("host", newLobby(t, engine.Ruleset2019), mt, peer.Options{Seed: "bad"}, zaptest.NewLogger(t))
	host.Seat(lobby.PlayerInfo{ID: "host", IsHost: true, Ready: true})
	host.HandleMessage("g1", info("g1"))
	if err := host.Start(); err != nil {
		t.Fatal(err)
	}
	before := host.State()

	// acting for someone else
	host.HandleMessage("g1", protocol.MustEnvelope(protocol.MsgPlayerAction, engine.GameAction{
		Type: engine.ActionPlayCard, PlayerID: "host", CardID: before.Players[0].Hand[0],
	}))
	// a return sent as a play
	host.HandleMessage("g1", protocol.MustEnvelope(protocol.MsgPlayerAction, engine.GameAction{
		Type: engine.ActionChancellorReturn, PlayerID: "g1",
	}))
	host.HandleMessage("g1", protocol.Envelope{Type: protocol.MsgPlayerAction, Payload: json.RawMessage(`"oops"`)})
	host.HandleMessage("g1", protocol.Envelope{Type: "DANCE"})

	if host.State() != before {
		t.Fatal("rejected submissions changed the state")
	}
}

func TestHostAutoStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mt := mocks.NewMockTransport(ctrl)
	mt.EXPECT().Send("g1", gomock.Any()).Return(nil).AnyTimes()

	host := peer.NewHost("host", newLobby(t, engine.Ruleset2019), mt, peer.Options{AutoStartAt: 2}, zaptest.NewLogger(t))
	host.Seat(lobby.PlayerInfo{ID: "host", IsHost: true, Ready: true})
	if host.State() != nil {
		t.Fatal("started with one seat")
	}
	host.HandleMessage("g1", info("g1"))
	s := host.State()
	if s == nil || s.Phase != engine.PhaseWaitingForAction {
		t.Fatalf("expected a dealt round, got %+v", s)
	}
}

func TestHostJoinRefusedWhenFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mt := mocks.NewMockTransport(ctrl)
	mt.EXPECT().Send(gomock.Any(), envType(protocol.MsgPlayerJoined)).Return(nil).AnyTimes()
	mt.EXPECT().Send("late", envType(protocol.MsgError)).Return(nil).Times(1)

	host := peer.NewHost("host", newLobby(t, engine.RulesetClassic), mt, peer.Options{}, zaptest.NewLogger(t))
	host.Seat(lobby.PlayerInfo{ID: "host", IsHost: true, Ready: true})
	for _, id := range []string{"a", "b", "c"} {
		host.HandleMessage(id, info(id))
	}
	host.HandleMessage("late", info("late"))
	if got := len(host.Peers()); got != 3 {
		t.Fatalf("peers: %d", got)
	}
}

func TestHostAIOnlyGameRunsToTheEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mt := mocks.NewMockTransport(ctrl)

	host := peer.NewHost("host", newLobby(t, engine.Ruleset2019), mt, peer.Options{Seed: "bots", AutoNextRound: true}, zaptest.NewLogger(t))
	var states []*engine.GameState
	host.OnState(func(s *engine.GameState) { states = append(states, s) })
	for _, name := range []string{"Ada", "Bea", "Cy"} {
		if _, err := host.AddAI(name); err != nil {
			t.Fatal(err)
		}
	}
	if err := host.Start(); err != nil {
		t.Fatal(err)
	}
	s := host.State()
	if s.Phase != engine.PhaseGameEnd || len(s.WinnerIDs) == 0 {
		t.Fatalf("phase %s winners %v", s.Phase, s.WinnerIDs)
	}
	if len(states) == 0 || states[len(states)-1] != s {
		t.Fatal("subscribers did not see the final state")
	}
	for i := 1; i < len(states); i++ {
		if states[i].Version <= states[i-1].Version {
			t.Fatalf("versions not increasing at %d", i)
		}
	}
}

func TestHostNotStarted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	host := peer.NewHost("host", newLobby(t, engine.Ruleset2019), mocks.NewMockTransport(ctrl), peer.Options{}, nil)
	if res := host.Submit(engine.GameAction{}); !errors.Is(res.Err, peer.ErrNotStarted) {
		t.Fatalf("submit: %v", res.Err)
	}
	if err := host.NextRound(); !errors.Is(err, peer.ErrNotStarted) {
		t.Fatalf("next round: %v", err)
	}
	if err := host.Start(); !errors.Is(err, lobby.ErrNotEnoughPlayers) {
		t.Fatalf("start alone: %v", err)
	}
}
