package oldmaid

import "fmt"

// Random is the source of randomness used for shuffling and blind draws.
// *math/rand/v2.Rand satisfies it; tests pass a seeded one.
type Random interface {
	// IntN returns a uniform value in [0, n). It panics if n <= 0.
	IntN(n int) int
}

// Deck is the draw pile. The top of the deck is the end of the slice.
type Deck struct {
	cards []Card
}

// BuildDeck returns an unshuffled deck with a boy and a girl card for every
// nationality followed by the trickster. Card ids start at 1.
func BuildDeck(nationalities []string, aliases Aliases) (*Deck, error) {
	if len(nationalities) == 0 {
		return nil, fmt.Errorf("build deck: no nationalities: %w", ErrConfig)
	}
	seen := make(map[string]bool, len(nationalities))
	cards := make([]Card, 0, 2*len(nationalities)+1)
	for _, raw := range nationalities {
		name := aliases.Normalize(raw)
		if name == "" || name == TricksterName {
			return nil, fmt.Errorf("build deck: invalid nationality %q: %w", raw, ErrConfig)
		}
		if seen[name] {
			return nil, fmt.Errorf("build deck: duplicate nationality %q: %w", name, ErrConfig)
		}
		seen[name] = true
		cards = append(cards,
			Card{ID: len(cards) + 1, Name: name, Type: CardBoy},
			Card{ID: len(cards) + 2, Name: name, Type: CardGirl},
		)
	}
	cards = append(cards, Card{ID: len(cards) + 1, Name: TricksterName, Type: CardTrickster})
	return &Deck{cards: cards}, nil
}

// Shuffle permutes the deck in place (Fisher-Yates).
func (d *Deck) Shuffle(r Random) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// DrawTop removes and returns the top card. ok is false when the deck is empty.
func (d *Deck) DrawTop() (card Card, ok bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	last := len(d.cards) - 1
	card = d.cards[last]
	d.cards = d.cards[:last]
	return card, true
}

// Size returns the number of cards left to draw.
func (d *Deck) Size() int {
	if d == nil {
		return 0
	}
	return len(d.cards)
}

// Cards returns a copy of the remaining cards, bottom first.
func (d *Deck) Cards() []Card {
	if d == nil {
		return nil
	}
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
