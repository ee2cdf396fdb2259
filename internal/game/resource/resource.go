// Package resource implements the per-turn and per-encounter budgets that
// gate which actions a creature may take.
package resource

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a family of resource.
// The zero value (Action) is the basic per-turn action.
type Kind int

const (
	Action Kind = iota
	BonusAction
	SneakAttack
	SpellAction
	Ki
	Spell
)

var kindNames = map[Kind]string{
	Action:      "action",
	BonusAction: "bonus_action",
	SneakAttack: "sneak_attack",
	SpellAction: "spell_action",
	Ki:          "ki",
	Spell:       "spell",
}

// String returns the snake_case name of the kind, or "unknown".
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// PerTurn reports whether the kind refills at the start of every turn.
// Ki and spell slots are per-encounter budgets and never refill.
func (k Kind) PerTurn() bool {
	switch k {
	case Action, BonusAction, SneakAttack, SpellAction:
		return true
	default:
		return false
	}
}

// Resource is one budget token. Level is meaningful only for Spell.
type Resource struct {
	Kind  Kind
	Level int
}

// Convenience values for the non-leveled kinds.
var (
	ActionToken      = Resource{Kind: Action}
	BonusActionToken = Resource{Kind: BonusAction}
	SneakAttackToken = Resource{Kind: SneakAttack}
	SpellActionToken = Resource{Kind: SpellAction}
	KiToken          = Resource{Kind: Ki}
)

// SpellSlot returns the resource for one spell slot of the given level.
//
// Precondition: level >= 1.
func SpellSlot(level int) Resource {
	return Resource{Kind: Spell, Level: level}
}

// String returns the text form: "action", "ki", "spell:3", ...
func (r Resource) String() string {
	if r.Kind == Spell {
		return fmt.Sprintf("spell:%d", r.Level)
	}
	return r.Kind.String()
}

// Parse resolves the text form produced by String.
//
// Postcondition: Returns a Resource or a descriptive error.
func Parse(s string) (Resource, error) {
	text := strings.ToLower(strings.TrimSpace(s))
	if rest, ok := strings.CutPrefix(text, "spell:"); ok {
		level, err := strconv.Atoi(rest)
		if err != nil {
			return Resource{}, fmt.Errorf("resource: invalid spell level in %q: %w", s, err)
		}
		if level < 1 {
			return Resource{}, fmt.Errorf("resource: spell level in %q must be >= 1", s)
		}
		return SpellSlot(level), nil
	}
	for k, n := range kindNames {
		if k != Spell && n == text {
			return Resource{Kind: k}, nil
		}
	}
	return Resource{}, fmt.Errorf("resource: unknown resource %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Resource) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Resource) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
