package oldmaid

import "fmt"

// RuleID names an optional house rule.
type RuleID string

const (
	// RuleNextPlayerOnly restricts drawing, once the deck is empty, to the
	// next active player in turn order.
	RuleNextPlayerOnly RuleID = "nextPlayerOnly"
)

// Rules holds the on/off state of every known house rule.
type Rules map[RuleID]bool

// DefaultRules returns every known rule with its default value.
func DefaultRules() Rules {
	return Rules{
		RuleNextPlayerOnly: false,
	}
}

// Set toggles a known rule.
func (r Rules) Set(id RuleID, enabled bool) error {
	if _, ok := r[id]; !ok {
		return ErrUnknownRule
	}
	r[id] = enabled
	return nil
}

func (r Rules) Enabled(id RuleID) bool { return r[id] }

// Clone returns an independent copy.
func (r Rules) Clone() Rules {
	out := make(Rules, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Settings configures a game. The zero value is not usable; start from
// DefaultSettings.
type Settings struct {
	MinPlayers    int
	MaxPlayers    int
	HandSize      int
	Nationalities []string
	Aliases       Aliases
	Rules         Rules
}

// DefaultSettings mirrors the standard table: 2 to 6 players, 4 cards each,
// 16 pairs plus the trickster.
func DefaultSettings() Settings {
	return Settings{
		MinPlayers:    2,
		MaxPlayers:    6,
		HandSize:      4,
		Nationalities: DefaultNationalities,
		Aliases:       NewAliases(nil),
		Rules:         DefaultRules(),
	}
}

// Validate reports rule ids the engine does not know.
func (s Settings) Validate() error {
	known := DefaultRules()
	for id := range s.Rules {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: rule %q: %w", ErrConfig, id, ErrUnknownRule)
		}
	}
	return nil
}
