package engine

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed carddata/*.json
var cardData embed.FS

// CardID identifies a card identity. A deck holds several copies of most ids.
type CardID string

const (
	CardSpy         CardID = "spy"
	CardGuard       CardID = "guard"
	CardCookieGuard CardID = "cookie_guard"
	CardPriest      CardID = "priest"
	CardBaron       CardID = "baron"
	CardHandmaid    CardID = "handmaid"
	CardPrince      CardID = "prince"
	CardChancellor  CardID = "chancellor"
	CardKing        CardID = "king"
	CardCountess    CardID = "countess"
	CardPrincess    CardID = "princess"
)

// Effect conditions understood by the engine.
const (
	CondEliminateOnDiscard = "eliminate_on_discard"
	CondSoleSurvivorBonus  = "sole_survivor_bonus"
	CondRevengeAfterGuard  = "revenge_after_guard"
	condDiscardIfHolding   = "discard_if_holding:"
)

// Effect describes what a card needs in order to be played.
type Effect struct {
	Type                   string   `json:"type"`
	RequiresTargetPlayer   bool     `json:"requiresTargetPlayer,omitempty"`
	RequiresTargetCardType bool     `json:"requiresTargetCardType,omitempty"`
	CanTargetSelf          bool     `json:"canTargetSelf,omitempty"`
	Condition              []string `json:"condition,omitempty"`
}

// Has reports whether the effect carries the given condition.
func (e Effect) Has(cond string) bool {
	for _, c := range e.Condition {
		if c == cond {
			return true
		}
	}
	return false
}

// ForcedBy returns the card ids that force this card to be discarded when
// held together with it.
func (e Effect) ForcedBy() []CardID {
	var ids []CardID
	for _, c := range e.Condition {
		if rest, ok := strings.CutPrefix(c, condDiscardIfHolding); ok {
			ids = append(ids, CardID(rest))
		}
	}
	return ids
}

// CardDefinition is one entry of the card data.
type CardDefinition struct {
	ID          CardID `json:"id"`
	Name        string `json:"name"`
	Value       int    `json:"value"`
	Count       int    `json:"count"`
	Description string `json:"description"`
	AssetPath   string `json:"assetPath"`
	Effect      Effect `json:"effect"`
}

// Catalog is the immutable card set of one ruleset.
type Catalog struct {
	ruleset Ruleset
	defs    []CardDefinition
	byID    map[CardID]CardDefinition
}

// LoadCatalog reads the embedded card data of a ruleset.
func LoadCatalog(r Ruleset) (*Catalog, error) {
	if _, err := r.Spec(); err != nil {
		return nil, err
	}
	data, err := cardData.ReadFile("carddata/" + string(r) + ".json")
	if err != nil {
		return nil, fmt.Errorf("read card data for %s: %w", r, err)
	}
	return ParseCatalog(r, data)
}

// ParseCatalog builds a catalog from a JSON CardDefinition array.
func ParseCatalog(r Ruleset, data []byte) (*Catalog, error) {
	var defs []CardDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse card data: %w", err)
	}
	c := &Catalog{ruleset: r, defs: defs, byID: make(map[CardID]CardDefinition, len(defs))}
	for _, d := range defs {
		if d.ID == "" || d.Count < 0 {
			return nil, fmt.Errorf("invalid card definition %q", d.ID)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate card definition %q", d.ID)
		}
		c.byID[d.ID] = d
	}
	return c, nil
}

// Ruleset returns the ruleset the catalog was loaded for.
func (c *Catalog) Ruleset() Ruleset { return c.ruleset }

// Definitions returns the definitions in data order.
func (c *Catalog) Definitions() []CardDefinition {
	out := make([]CardDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Get looks up a definition by id.
func (c *Catalog) Get(id CardID) (CardDefinition, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Value returns the ranking value of a card, or -1 for an unknown id.
func (c *Catalog) Value(id CardID) int {
	d, ok := c.byID[id]
	if !ok {
		return -1
	}
	return d.Value
}

// Size returns the total number of cards in a full deck.
func (c *Catalog) Size() int {
	n := 0
	for _, d := range c.defs {
		n += d.Count
	}
	return n
}

// Multiset returns the card counts of a full deck.
func (c *Catalog) Multiset() map[CardID]int {
	m := make(map[CardID]int, len(c.defs))
	for _, d := range c.defs {
		m[d.ID] += d.Count
	}
	return m
}
