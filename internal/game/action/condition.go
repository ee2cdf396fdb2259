package action

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/battleforge/internal/game/ability"
	"github.com/cory-johannsen/battleforge/internal/game/dice"
)

// ConditionKind selects which check a Condition performs.
type ConditionKind int

const (
	CondTrue ConditionKind = iota
	CondFalse
	CondHit
	CondSave
)

var conditionKindNames = map[ConditionKind]string{
	CondTrue:  "true",
	CondFalse: "false",
	CondHit:   "hit",
	CondSave:  "save",
}

// String returns the lowercase kind name, or "unknown".
func (k ConditionKind) String() string {
	if n, ok := conditionKindNames[k]; ok {
		return n
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k ConditionKind) MarshalText() ([]byte, error) {
	if _, ok := conditionKindNames[k]; !ok {
		return nil, fmt.Errorf("action: cannot marshal condition kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ConditionKind) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for kind, n := range conditionKindNames {
		if n == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("action: unknown condition kind %q", string(text))
}

// Condition is the gate of a branch node: an always/never predicate, an
// attack roll against armor class, or a saving throw against a DC.
type Condition struct {
	Kind           ConditionKind   `yaml:"kind"`
	AttackModifier int             `yaml:"attack_modifier,omitempty"`
	SaveDC         int             `yaml:"save_dc,omitempty"`
	Ability        ability.Ability `yaml:"ability,omitempty"`
}

// True returns a condition that always passes.
func True() Condition { return Condition{Kind: CondTrue} }

// False returns a condition that always fails.
func False() Condition { return Condition{Kind: CondFalse} }

// Hit returns an attack-roll condition with the given attack modifier.
func Hit(attackModifier int) Condition {
	return Condition{Kind: CondHit, AttackModifier: attackModifier}
}

// Save returns a saving-throw condition against dc using the target's
// save modifier for a.
func Save(dc int, a ability.Ability) Condition {
	return Condition{Kind: CondSave, SaveDC: dc, Ability: a}
}

// Validate reports authoring errors in the condition.
func (c Condition) Validate() error {
	switch c.Kind {
	case CondTrue, CondFalse, CondHit:
		return nil
	case CondSave:
		if !c.Ability.Valid() {
			return fmt.Errorf("save condition has invalid ability %d", int(c.Ability))
		}
		return nil
	default:
		return fmt.Errorf("unknown condition kind %d", int(c.Kind))
	}
}

// Pass evaluates the condition for source acting on target.
// Hit and Save draw exactly one d20 from r.Src; True and False draw nothing.
//
// Hit passes when d20 + AttackModifier + AttackBonus(source) >=
// ArmorClass(target) + ACBonus(target).
// Save passes when d20 + SaveModifier(target) + SaveBonus(target) >= SaveDC.
//
// Precondition: r.Src must be non-nil for Hit and Save.
func (c Condition) Pass(r *Resolution, source, target Combatant) bool {
	switch c.Kind {
	case CondTrue:
		return true
	case CondFalse:
		return false
	case CondHit:
		roll := dice.D20(r.Src)
		total := roll + c.AttackModifier + r.attackBonus(source)
		ac := target.ArmorClass() + r.acBonus(target)
		r.logger().Debug("attack roll",
			zap.String("source", source.Name()),
			zap.String("target", target.Name()),
			zap.Int("d20", roll),
			zap.Int("total", total),
			zap.Int("ac", ac),
		)
		return total >= ac
	case CondSave:
		roll := dice.D20(r.Src)
		total := roll + target.SaveModifier(c.Ability) + r.saveBonus(target, c.Ability)
		r.logger().Debug("saving throw",
			zap.String("target", target.Name()),
			zap.Stringer("ability", c.Ability),
			zap.Int("d20", roll),
			zap.Int("total", total),
			zap.Int("dc", c.SaveDC),
		)
		return total >= c.SaveDC
	default:
		panic(fmt.Sprintf("action: Pass on unknown condition kind %d", int(c.Kind)))
	}
}
