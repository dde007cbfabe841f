package engine

import "fmt"

// Ruleset names a rule variant.
type Ruleset string

const (
	RulesetClassic Ruleset = "classic"
	Ruleset2019    Ruleset = "2019"
	RulesetHouse   Ruleset = "house"
)

// RulesetSpec holds the numbers a ruleset fixes.
type RulesetSpec struct {
	MinPlayers int
	MaxPlayers int
	// FaceUpBurn is the number of extra face-up burn cards in a two player round.
	FaceUpBurn int
	// tokens indexed by player count
	tokens map[int]int
}

var rulesets = map[Ruleset]RulesetSpec{
	RulesetClassic: {
		MinPlayers: 2,
		MaxPlayers: 4,
		tokens:     map[int]int{2: 7, 3: 5, 4: 4},
	},
	Ruleset2019: {
		MinPlayers: 2,
		MaxPlayers: 6,
		FaceUpBurn: 3,
		tokens:     map[int]int{2: 6, 3: 5, 4: 4, 5: 3, 6: 3},
	},
	RulesetHouse: {
		MinPlayers: 2,
		MaxPlayers: 6,
		FaceUpBurn: 3,
		tokens:     map[int]int{2: 6, 3: 5, 4: 4, 5: 3, 6: 3},
	},
}

// Spec returns the numbers of a ruleset.
func (r Ruleset) Spec() (RulesetSpec, error) {
	s, ok := rulesets[r]
	if !ok {
		return RulesetSpec{}, fmt.Errorf("unknown ruleset %q", string(r))
	}
	return s, nil
}

// TokensToWin returns the default token threshold for a player count, or 0
// when the count is outside the ruleset's bounds.
func (s RulesetSpec) TokensToWin(players int) int {
	return s.tokens[players]
}

// FaceUpBurnFor returns how many face-up burn cards a round with n players sets aside.
func (s RulesetSpec) FaceUpBurnFor(players int) int {
	if players == 2 {
		return s.FaceUpBurn
	}
	return 0
}
