package peer_test

import (
	"errors"
	"testing"

	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"royalletters/internal/engine"
	"royalletters/internal/engine/effects"
	"royalletters/internal/peer"
	"royalletters/internal/peer/mocks"
	"royalletters/internal/protocol"
)

// hostState returns a dealt round the way a host would sync it.
func hostState(t *testing.T) *engine.GameState {
	t.Helper()
	e, err := engine.New(engine.GameConfig{
		Players: []engine.PlayerConfig{{ID: "host", IsHost: true}, {ID: "g1"}},
		Seed:    "mirror",
	}, effects.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.StartRound(""); err != nil {
		t.Fatal(err)
	}
	s, err := e.DrawPhase()
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func syncEnv(s *engine.GameState) protocol.Envelope {
	return protocol.MustEnvelope(protocol.MsgGameStateSync, protocol.StateSync{State: s})
}

func joinedMirror(t *testing.T, ctrl *gomock.Controller) (*peer.Mirror, *mocks.MockTransport) {
	t.Helper()
	mt := mocks.NewMockTransport(ctrl)
	mt.EXPECT().Send("host", envType(protocol.MsgPlayerInfo)).Return(nil).Times(1)
	m := peer.NewMirror(protocol.PlayerInfo{ID: "g1", Name: "Guest", Ready: true}, mt, zaptest.NewLogger(t))
	if err := m.Join("host"); err != nil {
		t.Fatal(err)
	}
	return m, mt
}

func TestMirrorAdoptsHostState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	m, _ := joinedMirror(t, ctrl)

	var seen int
	m.OnState(func(*engine.GameState) { seen++ })

	s := hostState(t)
	m.HandleMessage("host", syncEnv(s))
	sameState(t, s, m.State())
	if seen != 1 {
		t.Fatalf("callbacks: %d", seen)
	}

	// last writer wins, even for an older version
	older := s.Clone()
	older.Version = 1
	m.HandleMessage("host", syncEnv(older))
	if got := m.State().Version; got != 1 {
		t.Fatalf("version: %d", got)
	}
}

func TestMirrorIgnoresOtherSenders(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	m, _ := joinedMirror(t, ctrl)

	m.HandleMessage("impostor", syncEnv(hostState(t)))
	if m.State() != nil {
		t.Fatal("accepted a state from a peer other than the host")
	}
}

func TestMirrorSubmitDoesNotMutate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	m, mt := joinedMirror(t, ctrl)
	s := hostState(t)
	m.HandleMessage("host", syncEnv(s))
	before := m.State()

	mt.EXPECT().Send("host", envType(protocol.MsgPlayerAction)).Return(nil).Times(1)
	mt.EXPECT().Send("host", envType(protocol.MsgChancellorReturn)).Return(nil).Times(1)
	if err := m.Submit(engine.GameAction{Type: engine.ActionPlayCard, CardID: engine.CardHandmaid}); err != nil {
		t.Fatal(err)
	}
	if err := m.Submit(engine.GameAction{Type: engine.ActionChancellorReturn, CardsToReturn: []engine.CardID{engine.CardGuard}}); err != nil {
		t.Fatal(err)
	}
	if m.State() != before {
		t.Fatal("submit changed the local state")
	}
}

func TestMirrorHostLost(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	m, _ := joinedMirror(t, ctrl)
	s := hostState(t)
	m.HandleMessage("host", syncEnv(s))

	m.HandleDisconnect("someone-else")
	if m.HostLost() {
		t.Fatal("another peer leaving is not a host loss")
	}
	m.HandleDisconnect("host")
	if !m.HostLost() {
		t.Fatal("expected host lost")
	}
	if err := m.Submit(engine.GameAction{Type: engine.ActionPlayCard}); !errors.Is(err, peer.ErrHostLost) {
		t.Fatalf("submit: %v", err)
	}
	later := s.Clone()
	later.Version += 10
	m.HandleMessage("host", syncEnv(later))
	if m.State().Version != s.Version {
		t.Fatal("frozen mirror accepted a sync")
	}
	if m.LegalActions() != nil {
		t.Fatal("frozen mirror offers actions")
	}
}

func TestMirrorRequestsSyncOnDivergence(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	m, mt := joinedMirror(t, ctrl)
	s := hostState(t)
	m.HandleMessage("host", syncEnv(s))

	mt.EXPECT().Send("host", envType(protocol.MsgSyncRequest)).Return(nil).Times(2)

	active := s.ActivePlayer()
	// a valid action announced with the wrong version
	m.HandleMessage("host", protocol.MustEnvelope(protocol.MsgActionApplied, protocol.ActionApplied{
		Action:  engine.GameAction{Type: engine.ActionPlayCard, PlayerID: active.ID, CardID: active.Hand[0], TargetPlayerID: firstTarget(s)},
		Version: s.Version + 7,
	}))
	if m.State().Version != s.Version {
		t.Fatalf("diverged replay was kept: version %d", m.State().Version)
	}
	// a round start from a version the mirror never saw
	m.HandleMessage("host", protocol.MustEnvelope(protocol.MsgRoundStart, protocol.RoundStart{
		Seed: "x", GameSeed: s.GameSeed, Ruleset: s.Ruleset, Round: 2, TokensToWin: s.TokensToWin, Version: s.Version + 3,
	}))
	if m.State().RoundCount != s.RoundCount {
		t.Fatal("round start replayed from the wrong version")
	}
}

func TestMirrorKeepsPrivateResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	m, _ := joinedMirror(t, ctrl)

	m.HandleMessage("host", protocol.MustEnvelope(protocol.MsgActionResult, protocol.ActionResult{Version: 4, RevealedCard: engine.CardKing}))
	m.HandleMessage("host", protocol.MustEnvelope(protocol.MsgActionRejected, protocol.ActionRejected{Message: "not your turn"}))
	if r, ok := m.LastResult(); !ok || r.RevealedCard != engine.CardKing {
		t.Fatalf("result: %+v", r)
	}
	if r, ok := m.LastRejection(); !ok || r.Message != "not your turn" {
		t.Fatalf("rejection: %+v", r)
	}
}

func TestMirrorNotJoined(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	m := peer.NewMirror(protocol.PlayerInfo{ID: "g1"}, mocks.NewMockTransport(ctrl), nil)
	if err := m.Submit(engine.GameAction{}); !errors.Is(err, peer.ErrNotJoined) {
		t.Fatalf("submit: %v", err)
	}
}

// firstTarget picks any legal target for the active player's first card.
func firstTarget(s *engine.GameState) string {
	for i, p := range s.Players {
		if i != s.ActivePlayerIndex && p.InRound() {
			return p.ID
		}
	}
	return ""
}
