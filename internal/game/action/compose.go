package action

import (
	"fmt"

	"github.com/cory-johannsen/battleforge/internal/game/dice"
)

// Add combines two trees of the same shape.
//
// Nothing is the identity on either side. Damage+Damage and
// HalfDamage+HalfDamage add formulas. Condition+Condition requires the same
// condition kind: target counts add and branches add pairwise, keeping the
// receiver's check parameters. Multi+Multi requires equal length and adds
// children pairwise. Rolled values are reset.
//
// Precondition: c and o have compatible shapes. Panics otherwise.
func (c Component) Add(o Component) Component {
	switch {
	case o.Kind == KindNothing:
		out := c.Clone()
		out.resetRolled()
		return out
	case c.Kind == KindNothing:
		out := o.Clone()
		out.resetRolled()
		return out
	case c.Kind != o.Kind:
		panic(fmt.Sprintf("action: cannot add %s component to %s component", o.Kind, c.Kind))
	}
	switch c.Kind {
	case KindDamage, KindHalfDamage:
		return Component{Kind: c.Kind, Damage: c.Damage.Add(o.Damage)}
	case KindCondition:
		if c.Condition.Kind != o.Condition.Kind {
			panic(fmt.Sprintf("action: cannot add %s condition to %s condition", o.Condition.Kind, c.Condition.Kind))
		}
		success := orNothing(c.Success).Add(*orNothing(o.Success))
		failure := orNothing(c.Failure).Add(*orNothing(o.Failure))
		return Conditional(c.TargetCount+o.TargetCount, c.Condition, success, failure)
	case KindMulti:
		if len(c.Next) != len(o.Next) {
			panic(fmt.Sprintf("action: cannot add multi of length %d to multi of length %d", len(o.Next), len(c.Next)))
		}
		next := make([]Component, len(c.Next))
		for i := range c.Next {
			next[i] = c.Next[i].Add(o.Next[i])
		}
		return Multi(next...)
	default:
		panic(fmt.Sprintf("action: %s components cannot be added", c.Kind))
	}
}

func (c *Component) resetRolled() {
	c.Rolled = 0
	c.eachBranch(func(b *Component) { b.resetRolled() })
	for i := range c.Next {
		c.Next[i].resetRolled()
	}
}

// Scale returns c repeated n times: damage formulas and target counts are
// multiplied by n.
//
// Precondition: n >= 0 and c contains no Effect leaf. Panics otherwise.
func (c Component) Scale(n int) Component {
	if n < 0 {
		panic(fmt.Sprintf("action: cannot scale component by negative factor %d", n))
	}
	switch c.Kind {
	case KindNothing:
		return Nothing()
	case KindDamage, KindHalfDamage:
		return Component{Kind: c.Kind, Damage: c.Damage.Mul(n)}
	case KindCondition:
		return Conditional(c.TargetCount*n, c.Condition, orNothing(c.Success).Scale(n), orNothing(c.Failure).Scale(n))
	case KindMulti:
		next := make([]Component, len(c.Next))
		for i := range c.Next {
			next[i] = c.Next[i].Scale(n)
		}
		return Multi(next...)
	default:
		panic(fmt.Sprintf("action: %s components cannot be scaled", c.Kind))
	}
}

// IncreaseDamage adds f to every damage leaf in the tree.
//
// Precondition: every damage leaf shares f's die faces, or one side has no dice.
func (c *Component) IncreaseDamage(f dice.Formula) {
	switch c.Kind {
	case KindDamage, KindHalfDamage:
		c.Damage = c.Damage.Add(f)
	case KindCondition:
		c.eachBranch(func(b *Component) { b.IncreaseDamage(f) })
	case KindMulti:
		for i := range c.Next {
			c.Next[i].IncreaseDamage(f)
		}
	}
}

// IncreaseTargetCount adds n to the target count of every Condition node.
func (c *Component) IncreaseTargetCount(n int) {
	switch c.Kind {
	case KindCondition:
		c.TargetCount += n
		c.eachBranch(func(b *Component) { b.IncreaseTargetCount(n) })
	case KindMulti:
		for i := range c.Next {
			c.Next[i].IncreaseTargetCount(n)
		}
	}
}

// SetHitModifier binds the attack modifier of every hit condition in the tree.
func (c *Component) SetHitModifier(n int) {
	switch c.Kind {
	case KindCondition:
		if c.Condition.Kind == CondHit {
			c.Condition.AttackModifier = n
		}
		c.eachBranch(func(b *Component) { b.SetHitModifier(n) })
	case KindMulti:
		for i := range c.Next {
			c.Next[i].SetHitModifier(n)
		}
	}
}

// SetSaveDC binds the DC of every save condition in the tree.
func (c *Component) SetSaveDC(dc int) {
	switch c.Kind {
	case KindCondition:
		if c.Condition.Kind == CondSave {
			c.Condition.SaveDC = dc
		}
		c.eachBranch(func(b *Component) { b.SetSaveDC(dc) })
	case KindMulti:
		for i := range c.Next {
			c.Next[i].SetSaveDC(dc)
		}
	}
}

func (c *Component) eachBranch(fn func(*Component)) {
	if c.Success != nil {
		fn(c.Success)
	}
	if c.Failure != nil {
		fn(c.Failure)
	}
}
