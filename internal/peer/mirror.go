package peer

import (
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"

	"royalletters/internal/engine"
	"royalletters/internal/engine/effects"
	"royalletters/internal/protocol"
)

// Mirror is a guest's replica of the host's game. It never changes its state
// in response to local input: actions go to the host, and the state follows
// what the host sends back. Only messages from the host learned at Join are
// accepted; once the host is gone the mirror stays frozen.
type Mirror struct {
	mu         sync.Mutex
	info       protocol.PlayerInfo
	hostID     string
	transport  Transport
	registry   *engine.Registry
	log        *zap.Logger
	eng        *engine.Engine
	roster     protocol.PlayerJoined
	hostLost   bool
	lastResult *protocol.ActionResult
	lastReject *protocol.ActionRejected
	subs       []func(*engine.GameState)
	pending    []*engine.GameState
}

func NewMirror(info protocol.PlayerInfo, t Transport, log *zap.Logger) *Mirror {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirror{
		info:      info,
		transport: t,
		registry:  effects.NewRegistry(),
		log:       log.With(zap.String("peer", info.ID)),
	}
}

func (m *Mirror) ID() string { return m.info.ID }

// OnState registers a callback for every state the mirror adopts.
func (m *Mirror) OnState(fn func(*engine.GameState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

func (m *Mirror) unlock() {
	states := m.pending
	m.pending = nil
	subs := slices.Clone(m.subs)
	m.mu.Unlock()
	for _, s := range states {
		for _, fn := range subs {
			fn(s)
		}
	}
}

// Join introduces the player to a host.
func (m *Mirror) Join(hostID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hostID = hostID
	m.hostLost = false
	return m.transport.Send(hostID, protocol.MustEnvelope(protocol.MsgPlayerInfo, m.info))
}

// Submit sends a candidate action to the host.
func (m *Mirror) Submit(a engine.GameAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.hostLost:
		return ErrHostLost
	case m.hostID == "":
		return ErrNotJoined
	}
	if a.PlayerID == "" {
		a.PlayerID = m.info.ID
	}
	typ := protocol.MsgPlayerAction
	if a.Type == engine.ActionChancellorReturn {
		typ = protocol.MsgChancellorReturn
	}
	return m.transport.Send(m.hostID, protocol.MustEnvelope(typ, a))
}

// State returns the replicated state, or nil before the first round.
func (m *Mirror) State() *engine.GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.eng == nil {
		return nil
	}
	return m.eng.State()
}

// LegalActions lists what the local player may submit now.
func (m *Mirror) LegalActions() []engine.GameAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.eng == nil || m.hostLost {
		return nil
	}
	return m.eng.LegalActions(m.info.ID)
}

func (m *Mirror) HostLost() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hostLost
}

// Roster returns the last roster the host announced.
func (m *Mirror) Roster() protocol.PlayerJoined {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roster
}

// LastResult returns the private outcome of the player's latest action.
func (m *Mirror) LastResult() (protocol.ActionResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastResult == nil {
		return protocol.ActionResult{}, false
	}
	return *m.lastResult, true
}

// LastRejection returns why the host refused the player's latest action.
func (m *Mirror) LastRejection() (protocol.ActionRejected, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastReject == nil {
		return protocol.ActionRejected{}, false
	}
	return *m.lastReject, true
}

func (m *Mirror) HandleConnect(peerID string) {}

func (m *Mirror) HandleMessage(from string, env protocol.Envelope) {
	m.mu.Lock()
	defer m.unlock()

	if m.hostLost || from != m.hostID {
		m.log.Warn("dropping message", zap.String("from", from), zap.String("type", env.Type), zap.Bool("host_lost", m.hostLost))
		return
	}
	var err error
	switch env.Type {
	case protocol.MsgPlayerJoined:
		var r protocol.PlayerJoined
		if err = env.Decode(&r); err == nil {
			m.roster = r
		}
	case protocol.MsgRoundStart:
		var rs protocol.RoundStart
		if err = env.Decode(&rs); err == nil {
			m.roundStart(rs)
		}
	case protocol.MsgGameStateSync:
		var st protocol.StateSync
		if err = env.Decode(&st); err == nil {
			m.adopt(st.State)
		}
	case protocol.MsgActionApplied:
		var aa protocol.ActionApplied
		if err = env.Decode(&aa); err == nil {
			m.replay(aa)
		}
	case protocol.MsgActionResult:
		var r protocol.ActionResult
		if err = env.Decode(&r); err == nil {
			m.lastResult = &r
		}
	case protocol.MsgActionRejected:
		var r protocol.ActionRejected
		if err = env.Decode(&r); err == nil {
			m.lastReject = &r
			m.log.Info("action rejected", zap.String("action", r.Action.String()), zap.String("reason", r.Message))
		}
	case protocol.MsgRoundAborted:
		var r protocol.RoundAborted
		if err = env.Decode(&r); err == nil {
			m.log.Info("round aborted", zap.String("reason", r.Reason))
		}
	case protocol.MsgError:
		var e protocol.ErrorMsg
		if err = env.Decode(&e); err == nil {
			m.log.Warn("host error", zap.String("message", e.Message))
		}
	default:
		m.log.Warn("unknown message type", zap.String("type", env.Type))
	}
	if err != nil {
		m.log.Warn("dropping malformed message", zap.String("type", env.Type), zap.Error(err))
	}
}

// HandleDisconnect freezes the mirror when the host goes away. There is no
// host migration.
func (m *Mirror) HandleDisconnect(peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if peerID != m.hostID || m.hostLost {
		return
	}
	m.hostLost = true
	m.log.Warn("host lost", zap.String("host", peerID))
}

// roundStart rebuilds the round from its seed. The mirror must be at the
// version the host started from, otherwise it asks for a full state.
func (m *Mirror) roundStart(rs protocol.RoundStart) {
	if m.eng == nil {
		eng, err := engine.New(engine.GameConfig{
			Players:     rs.Players,
			TokensToWin: rs.TokensToWin,
			Ruleset:     rs.Ruleset,
			Seed:        rs.GameSeed,
		}, m.registry)
		if err != nil {
			m.log.Warn("cannot build engine", zap.Error(err))
			m.requestSync(0)
			return
		}
		m.eng = eng
	}
	if v := m.eng.State().Version; v != rs.Version {
		m.log.Info("round start from another version", zap.Int("local", v), zap.Int("host", rs.Version))
		m.requestSync(v)
		return
	}
	if _, err := m.eng.StartRound(rs.Seed); err != nil {
		m.log.Warn("replay round start", zap.Error(err))
		m.requestSync(m.eng.State().Version)
		return
	}
	s, err := m.eng.DrawPhase()
	if err != nil && !errors.Is(err, engine.ErrDeckEmpty) {
		m.log.Warn("replay draw", zap.Error(err))
	}
	m.pending = append(m.pending, s)
}

// replay applies an accepted action locally and keeps the result only when
// it lands on the host's version.
func (m *Mirror) replay(aa protocol.ActionApplied) {
	if m.eng == nil {
		m.requestSync(0)
		return
	}
	prev := m.eng.State()
	res := m.eng.Advance(aa.Action)
	if got := m.eng.State().Version; !res.Success || got != aa.Version {
		m.log.Warn("replay diverged", zap.Int("local", got), zap.Int("host", aa.Version), zap.String("reason", res.Message))
		if err := m.eng.SetState(prev); err != nil {
			m.log.Error("restore state", zap.Error(err))
		}
		m.requestSync(prev.Version)
		return
	}
	m.pending = append(m.pending, m.eng.State())
}

// adopt replaces the local state wholesale: the host's latest word wins.
func (m *Mirror) adopt(s *engine.GameState) {
	if s == nil {
		m.log.Warn("empty state sync")
		return
	}
	if m.eng == nil || m.eng.SetState(s) != nil {
		eng, err := engine.New(engine.GameConfig{
			Players:     configsOf(s),
			TokensToWin: s.TokensToWin,
			Ruleset:     s.Ruleset,
			Seed:        s.GameSeed,
		}, m.registry)
		if err != nil {
			m.log.Warn("cannot build engine from state", zap.Error(err))
			return
		}
		if err := eng.SetState(s); err != nil {
			m.log.Warn("cannot adopt state", zap.Error(err))
			return
		}
		m.eng = eng
	}
	m.pending = append(m.pending, m.eng.State())
}

func (m *Mirror) requestSync(version int) {
	if err := m.transport.Send(m.hostID, protocol.MustEnvelope(protocol.MsgSyncRequest, protocol.SyncRequest{Version: version})); err != nil {
		m.log.Warn("sync request failed", zap.Error(err))
	}
}
