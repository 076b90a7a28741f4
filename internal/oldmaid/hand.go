package oldmaid

import "math"

// Hand is the ordered set of cards a player holds. Once the deck is empty the
// position of a card is all an opponent sees of it.
type Hand struct {
	cards []Card
}

// NewHand returns a hand holding cards in the given order.
func NewHand(cards ...Card) *Hand {
	h := &Hand{cards: make([]Card, 0, len(cards))}
	h.cards = append(h.cards, cards...)
	return h
}

func (h *Hand) Len() int { return len(h.cards) }

// Cards returns a copy of the hand in order.
func (h *Hand) Cards() []Card {
	out := make([]Card, len(h.cards))
	copy(out, h.cards)
	return out
}

// Positions returns 0..Len()-1, the handles opponents can draw by.
func (h *Hand) Positions() []int {
	out := make([]int, len(h.cards))
	for i := range out {
		out[i] = i
	}
	return out
}

func (h *Hand) index(cardID int) int {
	for i, c := range h.cards {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// Contains reports whether a card with cardID is in the hand.
func (h *Hand) Contains(cardID int) bool {
	return h.index(cardID) >= 0
}

// Find returns the card with cardID.
func (h *Hand) Find(cardID int) (Card, bool) {
	if i := h.index(cardID); i >= 0 {
		return h.cards[i], true
	}
	return Card{}, false
}

// HasTrickster reports whether the trickster is in the hand.
func (h *Hand) HasTrickster() bool {
	for _, c := range h.cards {
		if c.Type == CardTrickster {
			return true
		}
	}
	return false
}

// RemovePair removes the two cards by id and returns them in argument order.
func (h *Hand) RemovePair(id1, id2 int) (Card, Card, error) {
	i, j := h.index(id1), h.index(id2)
	if i < 0 || j < 0 || i == j {
		return Card{}, Card{}, ErrCardsNotOwned
	}
	a, b := h.cards[i], h.cards[j]
	hi, lo := i, j
	if lo > hi {
		hi, lo = lo, hi
	}
	h.removeAt(hi)
	h.removeAt(lo)
	return a, b, nil
}

// DrawAt removes and returns the card at position.
func (h *Hand) DrawAt(position int) (Card, error) {
	if position < 0 || position >= len(h.cards) {
		return Card{}, ErrInvalidPosition
	}
	c := h.cards[position]
	h.removeAt(position)
	return c, nil
}

func (h *Hand) removeAt(i int) {
	h.cards = append(h.cards[:i], h.cards[i+1:]...)
}

// Append adds card at the end of the hand.
func (h *Hand) Append(card Card) {
	h.cards = append(h.cards, card)
}

// Reorder rearranges the hand so that position k holds the card previously at
// newOrder[k]. newOrder must be a permutation of [0, Len()); otherwise the
// hand is left unchanged and ErrInvalidOrder is returned.
func (h *Hand) Reorder(newOrder []int) error {
	n := len(h.cards)
	if len(newOrder) != n {
		return ErrInvalidOrder
	}
	seen := make([]bool, n)
	for _, idx := range newOrder {
		if idx < 0 || idx >= n || seen[idx] {
			return ErrInvalidOrder
		}
		seen[idx] = true
	}
	reordered := make([]Card, n)
	for k, idx := range newOrder {
		reordered[k] = h.cards[idx]
	}
	h.cards = reordered
	return nil
}

// OrderFromNumbers converts a decoded JSON permutation into indices,
// rejecting values that are not whole numbers.
func OrderFromNumbers(raw []float64) ([]int, error) {
	order := make([]int, len(raw))
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, ErrInvalidOrder
		}
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, ErrInvalidOrder
		}
		order[i] = int(v)
	}
	return order, nil
}
