package engine

import (
	"fmt"
	"slices"
)

// ActionType identifies player actions sent to ApplyMove.
type ActionType string

const (
	ActionPlayCard         ActionType = "PLAY_CARD"
	ActionChancellorReturn ActionType = "CHANCELLOR_RETURN"
)

// GameAction is a player's candidate move.
type GameAction struct {
	Type     ActionType `json:"type"`
	PlayerID string     `json:"playerId"`
	// PLAY_CARD
	CardID          CardID `json:"cardId,omitempty"`
	TargetPlayerID  string `json:"targetPlayerId,omitempty"`
	TargetCardGuess CardID `json:"targetCardGuess,omitempty"`
	// CHANCELLOR_RETURN, in bottom-of-deck order
	CardsToReturn []CardID `json:"cardsToReturn,omitempty"`
}

func (a GameAction) clone() GameAction {
	a.CardsToReturn = slices.Clone(a.CardsToReturn)
	return a
}

func (a GameAction) String() string {
	switch a.Type {
	case ActionChancellorReturn:
		return fmt.Sprintf("%s returns %v", a.PlayerID, a.CardsToReturn)
	default:
		s := fmt.Sprintf("%s plays %s", a.PlayerID, a.CardID)
		if a.TargetPlayerID != "" {
			s += " on " + a.TargetPlayerID
		}
		if a.TargetCardGuess != "" {
			s += " guessing " + string(a.TargetCardGuess)
		}
		return s
	}
}

// ActionResult is what ApplyMove reports. On failure NewState is the exact
// prior state.
type ActionResult struct {
	Success            bool       `json:"success"`
	Message            string     `json:"message"`
	RevealedCard       CardID     `json:"revealedCard,omitempty"`
	EliminatedPlayerID string     `json:"eliminatedPlayerId,omitempty"`
	NewState           *GameState `json:"newState"`
	Err                error      `json:"-"`
}

func rejected(s *GameState, err error) ActionResult {
	return ActionResult{Success: false, Message: err.Error(), NewState: s, Err: err}
}

// LogKind classifies audit log entries.
type LogKind string

const (
	LogRoundStart LogKind = "round_start"
	LogDraw       LogKind = "draw"
	LogPlay       LogKind = "play"
	LogEffect     LogKind = "effect"
	LogEliminated LogKind = "eliminated"
	LogReturn     LogKind = "return"
	LogRoundEnd   LogKind = "round_end"
	LogBonus      LogKind = "bonus"
	LogGameEnd    LogKind = "game_end"
	LogAborted    LogKind = "aborted"
)

// LogEntry is one line of the shared audit trail. It never carries private
// information such as a card revealed by a Priest.
type LogEntry struct {
	Seq      int     `json:"seq"`
	Round    int     `json:"round"`
	Kind     LogKind `json:"kind"`
	PlayerID string  `json:"playerId,omitempty"`
	TargetID string  `json:"targetId,omitempty"`
	CardID   CardID  `json:"cardId,omitempty"`
	Message  string  `json:"message"`
}

// AppendLog adds an entry to the audit trail.
func (s *GameState) AppendLog(e LogEntry) {
	e.Seq = len(s.Logs) + 1
	e.Round = s.RoundCount
	s.Logs = append(s.Logs, e)
}
