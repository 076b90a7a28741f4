package oldmaid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPair(t *testing.T) {
	tests := []struct {
		name string
		a, b Card
		want bool
	}{
		{"boy and girl", Card{1, "ceh", CardBoy}, Card{2, "ceh", CardGirl}, true},
		{"same type", Card{1, "ceh", CardBoy}, Card{3, "ceh", CardBoy}, false},
		{"different names", Card{1, "ceh", CardBoy}, Card{4, "roman", CardGirl}, false},
		{"trickster", Card{5, TricksterName, CardTrickster}, Card{2, "ceh", CardGirl}, false},
		{"case and whitespace", Card{1, " CEH ", CardBoy}, Card{2, "ceh", CardGirl}, true},
		{"legacy alias", Card{1, "Chinez", CardBoy}, Card{2, "chinezu", CardGirl}, true},
		{"both aliases", Card{1, "calusar", CardGirl}, Card{2, "romanu", CardBoy}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPair(tt.a, tt.b))
			assert.Equal(t, tt.want, IsPair(tt.b, tt.a), "IsPair must be symmetric")
		})
	}
}

func TestIsPairSymmetricOverDeck(t *testing.T) {
	deck, err := BuildDeck(DefaultNationalities, NewAliases(nil))
	require.NoError(t, err)
	cards := deck.Cards()

	pairs := 0
	for _, a := range cards {
		assert.False(t, IsPair(a, a), "card %d paired with itself", a.ID)
		for _, b := range cards {
			assert.Equal(t, IsPair(a, b), IsPair(b, a))
			if IsPair(a, b) {
				pairs++
			}
		}
	}
	// Every nationality pairs once in each direction.
	assert.Equal(t, 2*len(DefaultNationalities), pairs)
}

func TestAliasesNormalize(t *testing.T) {
	a := NewAliases(map[string]string{" Olandez ": "ROMAN"})

	assert.Equal(t, "roman", a.Normalize("olandez"))
	assert.Equal(t, "coreanu", a.Normalize("  Corean"))
	assert.Equal(t, "ceh", a.Normalize("CEH"))
	assert.Equal(t, "necunoscut", a.Normalize("Necunoscut"))

	// The package default table is not affected by extensions.
	assert.Equal(t, "olandez", NormalizeName("olandez"))
}
