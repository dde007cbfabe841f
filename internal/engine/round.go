package engine

import (
	"fmt"
	"strings"
)

// endRound scores the round. Every player tied for the highest held card
// wins it and gains a token. A lone surviving Spy player gains a bonus token.
// Reaching the threshold ends the game; everyone at or past it wins.
func endRound(next *GameState, cat *Catalog) *GameState {
	remaining := next.Remaining()

	var winners []int
	if len(remaining) == 1 {
		winners = remaining
	} else {
		best := -2
		for _, i := range remaining {
			switch v := next.HandValue(cat, i); {
			case v > best:
				best = v
				winners = []int{i}
			case v == best:
				winners = append(winners, i)
			}
		}
	}

	next.WinnerIDs = make([]string, 0, len(winners))
	for _, i := range winners {
		p := &next.Players[i]
		p.Tokens++
		p.Status = StatusWonRound
		next.WinnerIDs = append(next.WinnerIDs, p.ID)
	}
	next.AppendLog(LogEntry{
		Kind:    LogRoundEnd,
		Message: fmt.Sprintf("round %d won by %s", next.RoundCount, strings.Join(next.WinnerIDs, ", ")),
	})

	var spies []int
	var spy CardID
	for _, i := range remaining {
		for _, c := range next.Players[i].DiscardPile {
			if def, ok := cat.Get(c); ok && def.Effect.Has(CondSoleSurvivorBonus) {
				spies = append(spies, i)
				spy = c
				break
			}
		}
	}
	if len(spies) == 1 {
		p := &next.Players[spies[0]]
		p.Tokens++
		next.AppendLog(LogEntry{Kind: LogBonus, PlayerID: p.ID, CardID: spy, Message: p.ID + " gains a token for the " + string(spy)})
	}

	next.Phase = PhaseRoundEnd
	next.PendingAction = nil
	next.ChancellorCards = nil

	if next.TokensToWin <= 0 {
		return next
	}
	var champions []string
	for _, p := range next.Players {
		if p.Tokens >= next.TokensToWin {
			champions = append(champions, p.ID)
		}
	}
	if len(champions) > 0 {
		next.Phase = PhaseGameEnd
		next.WinnerIDs = champions
		next.AppendLog(LogEntry{Kind: LogGameEnd, Message: "game won by " + strings.Join(champions, ", ")})
	}
	return next
}
