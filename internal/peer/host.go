package peer

import (
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"royalletters/internal/ai"
	"royalletters/internal/engine"
	"royalletters/internal/engine/effects"
	"royalletters/internal/lobby"
	"royalletters/internal/protocol"
)

var (
	ErrNotStarted = errors.New("game not started")
	ErrHostLost   = errors.New("host connection lost")
	ErrNotJoined  = errors.New("not joined to a host")
)

// Options configure a Host.
type Options struct {
	Ruleset     engine.Ruleset
	TokensToWin int
	Seed        string
	// ReplayActions broadcasts ACTION_APPLIED for peers to replay instead of
	// a full GAME_STATE_SYNC after every action.
	ReplayActions bool
	// AutoStartAt starts the game once this many ready seats are taken.
	AutoStartAt int
	// AutoNextRound deals the next round as soon as one is scored.
	AutoNextRound bool
	// Policy drives AI seats. Nil uses ai.Baseline.
	Policy ai.Policy
}

// Host is the authoritative peer. It applies every action serially on its
// engine and tells the other peers about the result.
type Host struct {
	mu        sync.Mutex
	id        string
	lobby     *lobby.Lobby
	transport Transport
	registry  *engine.Registry
	opts      Options
	log       *zap.Logger
	eng       *engine.Engine
	policy    ai.Policy
	peers     map[string]bool
	aborted   bool
	subs      []func(*engine.GameState)
	pending   []*engine.GameState
}

func NewHost(id string, lob *lobby.Lobby, t Transport, opts Options, log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Ruleset == "" {
		opts.Ruleset = lob.Ruleset
	}
	return &Host{
		id:        id,
		lobby:     lob,
		transport: t,
		registry:  effects.NewRegistry(),
		opts:      opts,
		log:       log.With(zap.String("room", lob.ID), zap.String("host", id)),
		policy:    opts.Policy,
		peers:     make(map[string]bool),
	}
}

func (h *Host) ID() string { return h.id }

func (h *Host) RoomID() string { return h.lobby.ID }

// OnState registers a callback for every new state. Callbacks run after the
// host's lock is released and may submit actions.
func (h *Host) OnState(fn func(*engine.GameState)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, fn)
}

// unlock releases the lock, then delivers states queued while it was held.
func (h *Host) unlock() {
	states := h.pending
	h.pending = nil
	subs := slices.Clone(h.subs)
	h.mu.Unlock()
	for _, s := range states {
		for _, fn := range subs {
			fn(s)
		}
	}
}

func (h *Host) publish(s *engine.GameState) {
	h.pending = append(h.pending, s)
}

// Seat takes a seat for a local player: the host's own or an AI.
func (h *Host) Seat(p lobby.PlayerInfo) error {
	h.mu.Lock()
	defer h.unlock()
	if err := h.lobby.Join(p); err != nil {
		return err
	}
	h.log.Info("seat taken", zap.String("player", p.ID), zap.Bool("ai", p.IsAI))
	h.broadcastRoster()
	h.maybeAutoStart()
	h.settle()
	return nil
}

// AddAI seats a computer-controlled player and returns its id.
func (h *Host) AddAI(name string) (string, error) {
	id := "ai-" + uuid.NewString()
	return id, h.Seat(lobby.PlayerInfo{ID: id, Name: name, IsAI: true, Ready: true})
}

// Start deals the first round.
func (h *Host) Start() error {
	h.mu.Lock()
	defer h.unlock()
	if err := h.start(); err != nil {
		return err
	}
	h.settle()
	return nil
}

// NextRound deals the next round after one was scored or aborted.
func (h *Host) NextRound() error {
	h.mu.Lock()
	defer h.unlock()
	if h.eng == nil {
		return ErrNotStarted
	}
	if err := h.startRound(); err != nil {
		return err
	}
	h.settle()
	return nil
}

// Deal starts the game, or deals the next round once it is running.
func (h *Host) Deal() error {
	h.mu.Lock()
	defer h.unlock()
	var err error
	if h.eng == nil {
		err = h.start()
	} else {
		err = h.startRound()
	}
	if err != nil {
		return err
	}
	h.settle()
	return nil
}

// Submit applies an action from the host's own seat.
func (h *Host) Submit(a engine.GameAction) engine.ActionResult {
	h.mu.Lock()
	defer h.unlock()
	if h.eng == nil {
		return engine.ActionResult{Message: ErrNotStarted.Error(), Err: ErrNotStarted}
	}
	res := h.apply(h.id, a)
	h.settle()
	return res
}

// Abort ends the current round without a winner.
func (h *Host) Abort(reason string) error {
	h.mu.Lock()
	defer h.unlock()
	if h.eng == nil {
		return ErrNotStarted
	}
	return h.abort(reason)
}

// State returns the authoritative state, or nil before the start.
func (h *Host) State() *engine.GameState {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.eng == nil {
		return nil
	}
	return h.eng.State()
}

// LegalActions lists what a player may submit now.
func (h *Host) LegalActions(playerID string) []engine.GameAction {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.eng == nil {
		return nil
	}
	return h.eng.LegalActions(playerID)
}

// Peers returns the remote peers that completed the handshake.
func (h *Host) Peers() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.peerIDs()
}

func (h *Host) HandleConnect(peerID string) {
	h.log.Debug("peer connected", zap.String("peer", peerID))
}

func (h *Host) HandleMessage(from string, env protocol.Envelope) {
	h.mu.Lock()
	defer h.unlock()

	switch env.Type {
	case protocol.MsgPlayerInfo:
		h.handleInfo(from, env)
	case protocol.MsgPlayerAction, protocol.MsgChancellorReturn:
		h.handleAction(from, env)
	case protocol.MsgSyncRequest:
		if h.eng == nil {
			h.sendError(from, ErrNotStarted.Error())
			return
		}
		h.log.Info("sync requested", zap.String("peer", from))
		h.sendState(from)
	default:
		h.log.Warn("unknown message type", zap.String("peer", from), zap.String("type", env.Type))
		h.sendError(from, "unknown message type "+env.Type)
		return
	}
	h.settle()
}

// HandleDisconnect drops the peer. Losing a player mid-round aborts it.
func (h *Host) HandleDisconnect(peerID string) {
	h.mu.Lock()
	defer h.unlock()

	if !h.peers[peerID] {
		return
	}
	delete(h.peers, peerID)
	h.log.Info("peer left", zap.String("peer", peerID))

	if h.eng == nil {
		if h.lobby.Leave(peerID) {
			h.broadcastRoster()
		}
		return
	}
	s := h.eng.State()
	if p := s.Player(peerID); p == nil || !p.InRound() || s.Phase.Settled() {
		return
	}
	if err := h.abort(peerID + " disconnected"); err != nil {
		h.log.Error("abort round", zap.Error(err))
	}
}

func (h *Host) handleInfo(from string, env protocol.Envelope) {
	var info protocol.PlayerInfo
	if err := env.Decode(&info); err != nil {
		h.log.Warn("dropping malformed message", zap.String("peer", from), zap.Error(err))
		h.sendError(from, err.Error())
		return
	}
	if info.ID == "" {
		info.ID = from
	}
	if info.ID != from {
		h.sendError(from, "player id does not match the connection")
		return
	}
	if err := h.lobby.Join(lobby.PlayerInfo{ID: from, Name: info.Name, AvatarID: info.AvatarID, Ready: info.Ready}); err != nil {
		h.log.Info("join refused", zap.String("peer", from), zap.Error(err))
		h.sendError(from, err.Error())
		return
	}
	h.peers[from] = true
	h.log.Info("player joined", zap.String("peer", from), zap.String("name", info.Name))
	h.broadcastRoster()
	if h.eng != nil {
		// rejoining a running game
		h.sendState(from)
		if h.aborted && h.seatsConnected() {
			h.log.Info("every seat is back", zap.Int("round", h.eng.State().RoundCount))
			h.aborted = false
		}
		return
	}
	h.maybeAutoStart()
}

func (h *Host) handleAction(from string, env protocol.Envelope) {
	var a engine.GameAction
	if err := env.Decode(&a); err != nil {
		h.log.Warn("dropping malformed message", zap.String("peer", from), zap.Error(err))
		h.sendError(from, err.Error())
		return
	}
	if h.eng == nil {
		h.sendError(from, ErrNotStarted.Error())
		return
	}
	want := engine.ActionPlayCard
	if env.Type == protocol.MsgChancellorReturn {
		want = engine.ActionChancellorReturn
	}
	if a.Type == "" {
		a.Type = want
	}
	switch {
	case a.Type != want:
		h.reject(from, a, "action type does not match "+env.Type)
	case a.PlayerID != from:
		h.reject(from, a, "cannot act for another player")
	default:
		h.apply(from, a)
	}
}

func (h *Host) maybeAutoStart() {
	if h.eng != nil || h.opts.AutoStartAt <= 0 {
		return
	}
	if len(h.lobby.GetPlayers()) < h.opts.AutoStartAt || !h.lobby.CanStart() {
		return
	}
	if err := h.start(); err != nil {
		h.log.Error("auto start", zap.Error(err))
	}
}

func (h *Host) start() error {
	if h.eng != nil {
		return lobby.ErrStarted
	}
	if !h.lobby.CanStart() {
		return h.lobby.Start()
	}
	eng, err := engine.New(engine.GameConfig{
		Players:     h.lobby.Configs(),
		TokensToWin: h.opts.TokensToWin,
		Ruleset:     h.opts.Ruleset,
		Seed:        h.opts.Seed,
	}, h.registry)
	if err != nil {
		return err
	}
	if err := h.lobby.Start(); err != nil {
		return err
	}
	h.eng = eng
	if h.policy == nil {
		h.policy = ai.NewBaseline(eng.Catalog(), eng.State().GameSeed+"/ai")
	}
	h.log.Info("game started",
		zap.Int("players", len(eng.State().Players)),
		zap.String("ruleset", string(eng.State().Ruleset)),
		zap.Int("tokens_to_win", eng.State().TokensToWin))
	h.broadcastRoster()
	return h.startRound()
}

func (h *Host) startRound() error {
	before := h.eng.State()
	s, err := h.eng.StartRound("")
	if err != nil {
		return err
	}
	h.aborted = false
	h.log.Info("round started", zap.Int("round", s.RoundCount), zap.String("seed", s.RngSeed))
	h.broadcast(protocol.MustEnvelope(protocol.MsgRoundStart, protocol.RoundStart{
		Seed:        s.RngSeed,
		GameSeed:    s.GameSeed,
		Ruleset:     s.Ruleset,
		Round:       s.RoundCount,
		Players:     configsOf(s),
		TokensToWin: s.TokensToWin,
		Version:     before.Version,
	}))
	if s, err = h.eng.DrawPhase(); err != nil && !errors.Is(err, engine.ErrDeckEmpty) {
		return err
	}
	if !h.opts.ReplayActions {
		h.broadcastState()
	}
	h.publish(s)
	return nil
}

func (h *Host) apply(from string, a engine.GameAction) engine.ActionResult {
	res := h.eng.Advance(a)
	if !res.Success {
		h.reject(from, a, res.Message)
		return res
	}
	s := h.eng.State()
	h.log.Debug("action applied", zap.String("action", a.String()), zap.Int("version", s.Version), zap.Stringer("phase", s.Phase))
	if res.RevealedCard != "" || res.EliminatedPlayerID != "" {
		h.send(from, protocol.MustEnvelope(protocol.MsgActionResult, protocol.ActionResult{
			Version:            s.Version,
			RevealedCard:       res.RevealedCard,
			EliminatedPlayerID: res.EliminatedPlayerID,
			Message:            res.Message,
		}))
	}
	if h.opts.ReplayActions {
		h.broadcast(protocol.MustEnvelope(protocol.MsgActionApplied, protocol.ActionApplied{Action: a, Version: s.Version}))
	} else {
		h.broadcastState()
	}
	switch s.Phase {
	case engine.PhaseRoundEnd:
		h.log.Info("round over", zap.Int("round", s.RoundCount), zap.Strings("winners", s.WinnerIDs))
	case engine.PhaseGameEnd:
		h.log.Info("game over", zap.Strings("winners", s.WinnerIDs))
	}
	h.publish(s)
	return res
}

func (h *Host) reject(from string, a engine.GameAction, msg string) {
	h.log.Info("action rejected", zap.String("peer", from), zap.String("action", a.String()), zap.String("reason", msg))
	h.send(from, protocol.MustEnvelope(protocol.MsgActionRejected, protocol.ActionRejected{Action: a, Message: msg}))
}

func (h *Host) abort(reason string) error {
	s, err := h.eng.AbortRound(reason)
	if err != nil {
		return err
	}
	h.aborted = true
	h.log.Warn("round aborted", zap.String("reason", reason), zap.Int("round", s.RoundCount))
	h.broadcast(protocol.MustEnvelope(protocol.MsgRoundAborted, protocol.RoundAborted{Reason: reason}))
	h.broadcastState()
	h.publish(s)
	return nil
}

// settle plays AI turns and deals automatic rounds until a person must act.
func (h *Host) settle() {
	if h.eng == nil {
		return
	}
	for {
		s := h.eng.State()
		switch {
		case s.Phase == engine.PhaseRoundEnd && h.opts.AutoNextRound && !h.aborted:
			if err := h.startRound(); err != nil {
				h.log.Error("next round", zap.Error(err))
				return
			}
		case s.Phase == engine.PhaseWaitingForAction || s.Phase == engine.PhaseChancellorResolving:
			p := s.ActivePlayer()
			if !p.IsAI {
				return
			}
			legal := h.eng.LegalActions(p.ID)
			if len(legal) == 0 {
				h.log.Error("AI seat has no legal action", zap.String("player", p.ID))
				return
			}
			a := h.policy.Choose(engine.ViewFor(s, p.ID), p.ID, legal)
			if res := h.apply(p.ID, a); !res.Success {
				return
			}
		default:
			return
		}
	}
}

// seatsConnected reports whether every remote human seat has a live peer.
func (h *Host) seatsConnected() bool {
	for _, p := range h.eng.State().Players {
		if !p.IsAI && p.ID != h.id && !h.peers[p.ID] {
			return false
		}
	}
	return true
}

func (h *Host) peerIDs() []string {
	ids := make([]string, 0, len(h.peers))
	for id := range h.peers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (h *Host) send(to string, env protocol.Envelope) {
	if !h.peers[to] {
		return
	}
	if err := h.transport.Send(to, env); err != nil {
		h.log.Warn("send failed", zap.String("peer", to), zap.String("type", env.Type), zap.Error(err))
	}
}

func (h *Host) sendError(to string, msg string) {
	if err := h.transport.Send(to, protocol.MustEnvelope(protocol.MsgError, protocol.ErrorMsg{Message: msg})); err != nil {
		h.log.Warn("send failed", zap.String("peer", to), zap.Error(err))
	}
}

func (h *Host) broadcast(env protocol.Envelope) {
	for _, id := range h.peerIDs() {
		h.send(id, env)
	}
}

func (h *Host) sendState(to string) {
	h.send(to, protocol.MustEnvelope(protocol.MsgGameStateSync, protocol.StateSync{State: h.eng.State()}))
}

func (h *Host) broadcastState() {
	h.broadcast(protocol.MustEnvelope(protocol.MsgGameStateSync, protocol.StateSync{State: h.eng.State()}))
}

func (h *Host) broadcastRoster() {
	h.broadcast(protocol.MustEnvelope(protocol.MsgPlayerJoined, protocol.PlayerJoined{
		RoomID:  h.lobby.ID,
		HostID:  h.id,
		Players: h.lobby.Configs(),
		Started: h.lobby.IsStarted(),
	}))
}

// configsOf recovers the seat configs a state was created from.
func configsOf(s *engine.GameState) []engine.PlayerConfig {
	out := make([]engine.PlayerConfig, len(s.Players))
	for i, p := range s.Players {
		out[i] = engine.PlayerConfig{ID: p.ID, Name: p.Name, AvatarID: p.AvatarID, IsHost: p.IsHost, IsAI: p.IsAI}
	}
	return out
}
