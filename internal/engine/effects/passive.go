package effects

import "royalletters/internal/engine"

// Countess has no effect when played. The engine forces it out while its
// holder also has a King or Prince.
type Countess struct{ passive }

func (Countess) Card() engine.CardID { return engine.CardCountess }

// Princess knocks out whoever discards it; the engine checks that on every discard.
type Princess struct{ passive }

func (Princess) Card() engine.CardID { return engine.CardPrincess }

// Spy has no effect when played. Round scoring looks for it in discard piles.
type Spy struct{ passive }

func (Spy) Card() engine.CardID { return engine.CardSpy }
