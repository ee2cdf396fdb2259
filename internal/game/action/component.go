// Package action implements the recursive component tree that describes what
// an action does, the two-phase pre-roll/apply evaluator over that tree, and
// the resource and charge gating of selectable actions.
package action

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/battleforge/internal/game/dice"
)

// Kind identifies the variant of a Component.
type Kind int

const (
	KindNothing Kind = iota
	KindDamage
	KindHalfDamage
	KindCondition
	KindMulti
	KindEffect
)

var kindNames = map[Kind]string{
	KindNothing:    "nothing",
	KindDamage:     "damage",
	KindHalfDamage: "half_damage",
	KindCondition:  "condition",
	KindMulti:      "multi",
	KindEffect:     "effect",
}

// String returns the snake_case kind name, or "unknown".
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("action: cannot marshal component kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for kind, n := range kindNames {
		if n == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("action: unknown component kind %q", string(text))
}

// Component is one node of an action's effect tree. Which fields are
// meaningful depends on Kind:
//
//	KindNothing    none
//	KindDamage     Damage, Rolled
//	KindHalfDamage Damage, Rolled (Rolled holds the halved value)
//	KindCondition  TargetCount, Condition, Success, Failure
//	KindMulti      Next
//	KindEffect     Effect, Rounds
//
// A nil Success or Failure behaves as Nothing.
type Component struct {
	Kind        Kind         `yaml:"kind"`
	TargetCount int          `yaml:"target_count,omitempty"`
	Condition   Condition    `yaml:"condition,omitempty"`
	Success     *Component   `yaml:"success,omitempty"`
	Failure     *Component   `yaml:"failure,omitempty"`
	Next        []Component  `yaml:"next,omitempty"`
	Damage      dice.Formula `yaml:"damage,omitempty"`
	Rolled      int          `yaml:"-"`
	Effect      string       `yaml:"effect,omitempty"`
	Rounds      int          `yaml:"rounds,omitempty"`
}

// Nothing returns the no-op leaf.
func Nothing() Component { return Component{Kind: KindNothing} }

// Damage returns a leaf that deals the rolled value of f.
func Damage(f dice.Formula) Component { return Component{Kind: KindDamage, Damage: f} }

// HalfDamage returns a leaf that deals half the rolled value of f, rounded down.
func HalfDamage(f dice.Formula) Component { return Component{Kind: KindHalfDamage, Damage: f} }

// Conditional returns a branch node selecting up to targetCount targets and
// applying success or failure per target depending on cond.
func Conditional(targetCount int, cond Condition, success, failure Component) Component {
	return Component{
		Kind:        KindCondition,
		TargetCount: targetCount,
		Condition:   cond,
		Success:     &success,
		Failure:     &failure,
	}
}

// Multi returns a sequence node applying every child in order.
func Multi(next ...Component) Component {
	return Component{Kind: KindMulti, Next: next}
}

// Effect returns a leaf applying the timed condition id for rounds rounds.
func Effect(id string, rounds int) Component {
	return Component{Kind: KindEffect, Effect: id, Rounds: rounds}
}

func orNothing(c *Component) *Component {
	if c == nil {
		return &Component{}
	}
	return c
}

// Validate reports every authoring error found in the tree.
func (c *Component) Validate() error {
	var errs []error
	c.validate("component", &errs)
	return errors.Join(errs...)
}

func (c *Component) validate(path string, errs *[]error) {
	switch c.Kind {
	case KindNothing:
	case KindDamage, KindHalfDamage:
		if c.Damage.Dice.Count < 0 || (c.Damage.Dice.Count > 0 && c.Damage.Dice.Faces < 1) {
			*errs = append(*errs, fmt.Errorf("%s: invalid damage formula %s", path, c.Damage))
		}
	case KindCondition:
		if c.TargetCount < 0 {
			*errs = append(*errs, fmt.Errorf("%s: target_count must be >= 0, got %d", path, c.TargetCount))
		}
		if err := c.Condition.Validate(); err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", path, err))
		}
		orNothing(c.Success).validate(path+".success", errs)
		orNothing(c.Failure).validate(path+".failure", errs)
	case KindMulti:
		for i := range c.Next {
			c.Next[i].validate(fmt.Sprintf("%s.next[%d]", path, i), errs)
		}
	case KindEffect:
		if c.Effect == "" {
			*errs = append(*errs, fmt.Errorf("%s: effect id must not be empty", path))
		}
		if c.Rounds < 0 {
			*errs = append(*errs, fmt.Errorf("%s: rounds must be >= 0, got %d", path, c.Rounds))
		}
	default:
		*errs = append(*errs, fmt.Errorf("%s: unknown component kind %d", path, int(c.Kind)))
	}
}

// Targets returns how many targets a top-level component selects.
// The mapping is fixed per kind and does not aggregate over children.
//
// Postcondition: Condition returns its field; Damage, HalfDamage, Multi and
// Effect return 1; Nothing returns 0.
func (c *Component) Targets() int {
	switch c.Kind {
	case KindCondition:
		return c.TargetCount
	case KindDamage, KindHalfDamage, KindMulti, KindEffect:
		return 1
	default:
		return 0
	}
}

// AverageDamage estimates the expected damage of the tree for decision making.
// For a Condition only the success branch counts.
func (c *Component) AverageDamage() float64 {
	switch c.Kind {
	case KindDamage:
		return c.Damage.Average()
	case KindHalfDamage:
		return c.Damage.Average() / 2
	case KindCondition:
		return orNothing(c.Success).AverageDamage()
	case KindMulti:
		total := 0.0
		for i := range c.Next {
			total += c.Next[i].AverageDamage()
		}
		return total
	default:
		return 0
	}
}

// Prepare pre-rolls every damage leaf once so that applying the tree to many
// targets deals the same amount to each. Condition nodes visit success before
// failure; Multi visits children in order. Nothing else draws.
//
// Postcondition: every Damage leaf holds its roll in Rolled; every HalfDamage
// leaf holds floor(roll/2).
func (c *Component) Prepare(src dice.Source) {
	switch c.Kind {
	case KindDamage:
		c.Rolled = c.Damage.Roll(src)
	case KindHalfDamage:
		c.Rolled = halve(c.Damage.Roll(src))
	case KindCondition:
		if c.Success != nil {
			c.Success.Prepare(src)
		}
		if c.Failure != nil {
			c.Failure.Prepare(src)
		}
	case KindMulti:
		for i := range c.Next {
			c.Next[i].Prepare(src)
		}
	}
}

// halve rounds toward negative infinity.
func halve(n int) int {
	if n < 0 {
		return (n - 1) / 2
	}
	return n / 2
}

// Apply evaluates the prepared tree for source acting on target.
//
// Precondition: Prepare has been called on c.
func (c *Component) Apply(r *Resolution, source, target Combatant) {
	switch c.Kind {
	case KindNothing:
	case KindDamage, KindHalfDamage:
		target.DecreaseHP(c.Rolled)
		r.logger().Debug("damage",
			zap.String("source", source.Name()),
			zap.String("target", target.Name()),
			zap.Stringer("kind", c.Kind),
			zap.Int("amount", c.Rolled),
		)
	case KindCondition:
		if c.Condition.Pass(r, source, target) {
			orNothing(c.Success).Apply(r, source, target)
		} else {
			orNothing(c.Failure).Apply(r, source, target)
		}
	case KindMulti:
		for i := range c.Next {
			c.Next[i].Apply(r, source, target)
		}
	case KindEffect:
		r.applyEffect(target, c.Effect, c.Rounds)
	default:
		panic(fmt.Sprintf("action: Apply on unknown component kind %d", int(c.Kind)))
	}
}

// Clone returns a deep copy of c.
func (c Component) Clone() Component {
	out := c
	if c.Success != nil {
		s := c.Success.Clone()
		out.Success = &s
	}
	if c.Failure != nil {
		f := c.Failure.Clone()
		out.Failure = &f
	}
	if c.Next != nil {
		out.Next = make([]Component, len(c.Next))
		for i := range c.Next {
			out.Next[i] = c.Next[i].Clone()
		}
	}
	return out
}
