package swipe

import "github.com/and161185/machtrueke/internal/model"

// Deck is a read-only queue of cards with a pointer to the active one.
// It is not safe for concurrent use on its own; Machine serializes access.
type Deck struct {
	cards []model.Card
	pos   int
}

// NewDeck returns a deck over a copy of cards.
func NewDeck(cards []model.Card) *Deck {
	return &Deck{cards: append([]model.Card(nil), cards...)}
}

// Active returns the card currently presented.
func (d *Deck) Active() (model.Card, bool) {
	if d.Exhausted() {
		return model.Card{}, false
	}
	return d.cards[d.pos], true
}

// Remaining counts the active card and the ones after it.
func (d *Deck) Remaining() int { return len(d.cards) - d.pos }

// Exhausted reports whether no card is left.
func (d *Deck) Exhausted() bool { return d.pos >= len(d.cards) }

// Replenish appends cards to the end of the queue. Consumed cards are dropped.
func (d *Deck) Replenish(cards []model.Card) {
	rest := append([]model.Card(nil), d.cards[d.pos:]...)
	d.cards = append(rest, cards...)
	d.pos = 0
}

func (d *Deck) advance() {
	if !d.Exhausted() {
		d.pos++
	}
}
