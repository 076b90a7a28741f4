package oldmaid

import "strings"

// CardType is the face of a card. Every name has one boy and one girl card;
// the trickster has no partner.
type CardType string

const (
	CardBoy       CardType = "boy"
	CardGirl      CardType = "girl"
	CardTrickster CardType = "trickster"
)

// TricksterName is the name printed on the single unpaired card.
const TricksterName = "pacalici"

// Card is a single playing card. Cards are immutable once dealt.
type Card struct {
	ID   int      `json:"id"`
	Name string   `json:"name"`
	Type CardType `json:"type"`
}

// DefaultNationalities are the card names of the standard 33 card deck.
var DefaultNationalities = []string{
	"albanezu", "ceh", "chinezu", "coreanu",
	"mexican", "mongolu", "roman", "gradinar",
	"artist", "muzician", "cioban", "doctor",
	"marinar", "profesor", "bucatar", "fotbalist",
}

// defaultAliases maps retired card names to the name that replaced them.
// Old clients may still send the retired spelling.
var defaultAliases = map[string]string{
	"albanez":   "albanezu",
	"chinez":    "chinezu",
	"corean":    "coreanu",
	"mongol":    "mongolu",
	"mexicanu":  "mexican",
	"romanu":    "roman",
	"ceha":      "ceh",
	"calusar":   "roman",
	"pescar":    "marinar",
	"vanator":   "cioban",
	"brutar":    "bucatar",
	"mecanic":   "profesor",
	"militar":   "fotbalist",
	"cosmonaut": "artist",
}

// Aliases resolves legacy card names to canonical ones.
type Aliases map[string]string

// NewAliases returns the default alias table extended with extra.
// Keys and values of extra are normalized before they are stored.
func NewAliases(extra map[string]string) Aliases {
	a := make(Aliases, len(defaultAliases)+len(extra))
	for k, v := range defaultAliases {
		a[k] = v
	}
	for k, v := range extra {
		a[clean(k)] = clean(v)
	}
	return a
}

// Normalize lower-cases and trims name and resolves it through the table.
func (a Aliases) Normalize(name string) string {
	n := clean(name)
	if canonical, ok := a[n]; ok {
		return canonical
	}
	return n
}

// NormalizeName normalizes name against the default alias table.
func NormalizeName(name string) string {
	return Aliases(defaultAliases).Normalize(name)
}

func clean(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsPair reports whether a and b can be laid down together: same name,
// different types, and neither is the trickster.
func IsPair(a, b Card) bool {
	return isPairWith(Aliases(defaultAliases), a, b)
}

func isPairWith(aliases Aliases, a, b Card) bool {
	if a.Type == CardTrickster || b.Type == CardTrickster {
		return false
	}
	if a.Type == b.Type {
		return false
	}
	return aliases.Normalize(a.Name) == aliases.Normalize(b.Name)
}
