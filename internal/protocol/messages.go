package protocol

import "royalletters/internal/engine"

// Message types: host → peers
const (
	MsgPlayerJoined   = "PLAYER_JOINED"
	MsgRoundStart     = "ROUND_START"
	MsgGameStateSync  = "GAME_STATE_SYNC"
	MsgActionApplied  = "ACTION_APPLIED"
	MsgActionRejected = "ACTION_REJECTED"
	MsgActionResult   = "ACTION_RESULT"
	MsgRoundAborted   = "ROUND_ABORTED"
	MsgError          = "ERROR"
)

// Message types: peer → host
const (
	MsgPlayerInfo       = "PLAYER_INFO"
	MsgPlayerAction     = "PLAYER_ACTION"
	MsgChancellorReturn = "CHANCELLOR_RETURN"
	MsgSyncRequest      = "SYNC_REQUEST"
)

// PlayerInfo is the handshake a peer sends to take a seat.
type PlayerInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	AvatarID string `json:"avatarId,omitempty"`
	Ready    bool   `json:"ready"`
}

// PlayerJoined carries the roster after it changed.
type PlayerJoined struct {
	RoomID  string                `json:"roomId"`
	HostID  string                `json:"hostId"`
	Players []engine.PlayerConfig `json:"players"`
	Started bool                  `json:"started"`
}

// RoundStart announces the seed of a new round. Peers rebuild the deck from
// it; the shuffled deck itself is never sent. Version is the state version
// the round was started from.
type RoundStart struct {
	Seed        string                `json:"seed"`
	GameSeed    string                `json:"gameSeed"`
	Ruleset     engine.Ruleset        `json:"ruleset"`
	Round       int                   `json:"round"`
	Players     []engine.PlayerConfig `json:"players"`
	TokensToWin int                   `json:"tokensToWin"`
	Version     int                   `json:"version"`
}

// StateSync replaces a peer's state wholesale.
type StateSync struct {
	State *engine.GameState `json:"state"`
}

// ActionApplied announces an accepted action and the version it produced.
type ActionApplied struct {
	Action  engine.GameAction `json:"action"`
	Version int               `json:"version"`
}

// ActionRejected is sent to the submitter only.
type ActionRejected struct {
	Action  engine.GameAction `json:"action"`
	Message string            `json:"message"`
}

// ActionResult carries the private part of an outcome to the submitter.
type ActionResult struct {
	Version            int           `json:"version"`
	RevealedCard       engine.CardID `json:"revealedCard,omitempty"`
	EliminatedPlayerID string        `json:"eliminatedPlayerId,omitempty"`
	Message            string        `json:"message"`
}

// RoundAborted tells peers why the round ended early.
type RoundAborted struct {
	Reason string `json:"reason"`
}

// SyncRequest asks the host for a full state after a mismatch.
type SyncRequest struct {
	Version int `json:"version"`
}

// ErrorMsg is sent to a peer whose message could not be handled.
type ErrorMsg struct {
	Message string `json:"message"`
}
