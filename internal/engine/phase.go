package engine

import "fmt"

// GamePhase represents the current phase of the game state machine.
type GamePhase int

const (
	PhaseLobby              GamePhase = iota // waiting for the first round
	PhaseRoundStart                          // deck being built and dealt
	PhaseTurnStart                           // active player about to draw
	PhaseWaitingForAction                    // active player holds two cards
	PhaseWaitingForTarget                    // a played card awaits its target
	PhaseResolvingAction                     // effect being applied
	PhaseChancellorResolving                 // Chancellor player must return cards
	PhaseRoundEnd                            // round scored, next round pending
	PhaseGameEnd                             // terminal
)

var phaseNames = map[GamePhase]string{
	PhaseLobby:               "LOBBY",
	PhaseRoundStart:          "ROUND_START",
	PhaseTurnStart:           "TURN_START",
	PhaseWaitingForAction:    "WAITING_FOR_ACTION",
	PhaseWaitingForTarget:    "WAITING_FOR_TARGET",
	PhaseResolvingAction:     "RESOLVING_ACTION",
	PhaseChancellorResolving: "CHANCELLOR_RESOLVING",
	PhaseRoundEnd:            "ROUND_END",
	PhaseGameEnd:             "GAME_END",
}

func (p GamePhase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "UNKNOWN"
}

// MarshalText encodes the phase by name.
func (p GamePhase) MarshalText() ([]byte, error) {
	s, ok := phaseNames[p]
	if !ok {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(s), nil
}

// UnmarshalText decodes a phase name.
func (p *GamePhase) UnmarshalText(b []byte) error {
	for k, v := range phaseNames {
		if v == string(b) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(b))
}

// Settled reports whether the phase sits between rounds or after the game.
func (p GamePhase) Settled() bool {
	return p == PhaseLobby || p == PhaseRoundEnd || p == PhaseGameEnd
}
