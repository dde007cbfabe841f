package engine

import "slices"

// LegalActions enumerates every action that would pass validation for the
// player, in a stable order.
func LegalActions(s *GameState, rules Rules, playerID string) []GameAction {
	p := s.ActivePlayer()
	if p == nil || p.ID != playerID {
		return nil
	}
	switch s.Phase {
	case PhaseWaitingForAction:
		return legalPlays(s, rules, p)
	case PhaseChancellorResolving:
		return legalReturns(s, rules, p)
	default:
		return nil
	}
}

func legalPlays(s *GameState, rules Rules, p *PlayerState) []GameAction {
	var out []GameAction
	var tried []CardID
	for _, card := range p.Hand {
		if slices.Contains(tried, card) {
			continue
		}
		tried = append(tried, card)
		def, ok := rules.Catalog.Get(card)
		if !ok {
			continue
		}
		targets := []string{""}
		if def.Effect.RequiresTargetPlayer {
			if seats := Targets(s, rules, s.ActivePlayerIndex, card); len(seats) > 0 {
				targets = targets[:0]
				for _, i := range seats {
					targets = append(targets, s.Players[i].ID)
				}
			}
		}
		guesses := []CardID{""}
		if def.Effect.RequiresTargetCardType {
			guesses = guesses[:0]
			for _, d := range rules.Catalog.Definitions() {
				guesses = append(guesses, d.ID)
			}
		}
		for _, t := range targets {
			for _, g := range guesses {
				a := GameAction{Type: ActionPlayCard, PlayerID: p.ID, CardID: card, TargetPlayerID: t}
				if t != "" {
					a.TargetCardGuess = g
				}
				if Validate(s, rules, a) == nil && !containsAction(out, a) {
					out = append(out, a)
				}
			}
		}
	}
	return out
}

func legalReturns(s *GameState, rules Rules, p *PlayerState) []GameAction {
	keep := len(p.Hand) - 1
	var out []GameAction
	for _, order := range orderings(len(p.Hand), keep) {
		ret := make([]CardID, len(order))
		for k, i := range order {
			ret[k] = p.Hand[i]
		}
		a := GameAction{Type: ActionChancellorReturn, PlayerID: p.ID, CardsToReturn: ret}
		if Validate(s, rules, a) == nil && !containsAction(out, a) {
			out = append(out, a)
		}
	}
	return out
}

// orderings returns every ordered selection of k distinct indexes below n.
func orderings(n, k int) [][]int {
	if k == 0 {
		return [][]int{{}}
	}
	var out [][]int
	var walk func(cur []int)
	walk = func(cur []int) {
		if len(cur) == k {
			out = append(out, slices.Clone(cur))
			return
		}
		for i := 0; i < n; i++ {
			if !slices.Contains(cur, i) {
				walk(append(cur, i))
			}
		}
	}
	walk(nil)
	return out
}

func containsAction(list []GameAction, a GameAction) bool {
	for _, b := range list {
		if b.Type == a.Type && b.PlayerID == a.PlayerID && b.CardID == a.CardID &&
			b.TargetPlayerID == a.TargetPlayerID && b.TargetCardGuess == a.TargetCardGuess &&
			slices.Equal(b.CardsToReturn, a.CardsToReturn) {
			return true
		}
	}
	return false
}
