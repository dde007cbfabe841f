package engine

// CardHidden stands in for a card the viewer may not see.
const CardHidden CardID = "hidden"

// ViewFor returns a copy of the state as one player may see it: other
// players' hands, the deck order, the face-down burn card and cards held
// mid-Chancellor by someone else are masked.
func ViewFor(s *GameState, playerID string) *GameState {
	v := s.Clone()
	for i := range v.Players {
		p := &v.Players[i]
		if p.ID == playerID {
			continue
		}
		for k := range p.Hand {
			p.Hand[k] = CardHidden
		}
	}
	for k := range v.Deck {
		v.Deck[k] = CardHidden
	}
	if v.BurnedCard != "" {
		v.BurnedCard = CardHidden
	}
	if a := v.ActivePlayer(); a == nil || a.ID != playerID {
		for k := range v.ChancellorCards {
			v.ChancellorCards[k] = CardHidden
		}
	}
	if v.PendingAction != nil && v.PendingAction.PlayerID != playerID {
		v.PendingAction.CardsToReturn = nil
	}
	return v
}
