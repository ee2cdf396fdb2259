// Package ability defines the six core abilities used by saving throws and
// stat blocks.
package ability

import (
	"fmt"
	"strings"
)

// Ability identifies one of the six core abilities.
type Ability int

const (
	Strength Ability = iota
	Dexterity
	Constitution
	Intelligence
	Wisdom
	Charisma
)

// Count is the number of abilities; stat arrays are indexed by Ability.
const Count = 6

// All lists every ability in index order.
var All = [Count]Ability{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}

var names = [Count]string{"strength", "dexterity", "constitution", "intelligence", "wisdom", "charisma"}

// Valid reports whether a is one of the six abilities.
func (a Ability) Valid() bool {
	return a >= Strength && a <= Charisma
}

// String returns the lowercase ability name, or "unknown".
func (a Ability) String() string {
	if !a.Valid() {
		return "unknown"
	}
	return names[a]
}

// Parse resolves a full name ("dexterity") or a three-letter abbreviation
// ("dex"), case-insensitively.
//
// Postcondition: Returns a valid Ability or an error.
func Parse(s string) (Ability, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if lower == n || (len(lower) == 3 && strings.HasPrefix(n, lower)) {
			return Ability(i), nil
		}
	}
	return 0, fmt.Errorf("ability: unknown ability %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Ability) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("ability: cannot marshal invalid ability %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Ability) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Mod computes the standard ability modifier using floor division: floor((score - 10) / 2).
// Postcondition: Returns floor((score - 10) / 2).
func Mod(score int) int {
	diff := score - 10
	if diff < 0 {
		return (diff - 1) / 2
	}
	return diff / 2
}
