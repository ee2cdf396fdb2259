// Package creature holds the combat state of one participant and its greedy
// action-selection policy.
package creature

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/battleforge/internal/game/ability"
	"github.com/cory-johannsen/battleforge/internal/game/action"
	"github.com/cory-johannsen/battleforge/internal/game/resource"
)

// ErrUnboundedAction is returned by AddAction for an action that spends no
// resources and has infinite charges, which would let a creature act forever
// within a single turn.
var ErrUnboundedAction = errors.New("action spends no resources and has infinite charges")

// Stats is a creature's stat block.
type Stats struct {
	// HP is the current hit points.
	HP int
	// MaxHP caps IncreaseHP.
	MaxHP int
	// ArmorClass is compared against attack rolls.
	ArmorClass int
	// Initiative is carried for reporting; turn order is roster order.
	Initiative int
	// Abilities holds the six ability scores indexed by ability.Ability.
	Abilities [ability.Count]int
	// Saves holds the six saving-throw modifiers indexed by ability.Ability.
	Saves [ability.Count]int
}

type namedAction struct {
	name string
	act  *action.Action
}

// Creature is one participant in a fight. Dead is derived from HP <= 0;
// a dead creature stays in the roster.
type Creature struct {
	id      int
	name    string
	team    int
	stats   Stats
	actions []namedAction
	ledger  resource.Ledger
}

// New creates a creature whose ledger holds the given resources plus one
// Action, one BonusAction and one SpellAction.
//
// Postcondition: MaxHP >= HP; the creature has no actions.
func New(name string, team int, stats Stats, resources []resource.Resource) *Creature {
	if stats.MaxHP < stats.HP {
		stats.MaxHP = stats.HP
	}
	return &Creature{
		name:   name,
		team:   team,
		stats:  stats,
		ledger: resource.NewLedger(resources),
	}
}

// ID returns the roster id assigned by the fight.
func (c *Creature) ID() int { return c.id }

// SetID assigns the roster id.
func (c *Creature) SetID(id int) { c.id = id }

// Name returns the display name.
func (c *Creature) Name() string { return c.name }

// Team returns the team id.
func (c *Creature) Team() int { return c.team }

// SetTeam changes the team id.
func (c *Creature) SetTeam(team int) { c.team = team }

// HP returns current hit points.
func (c *Creature) HP() int { return c.stats.HP }

// MaxHP returns maximum hit points.
func (c *Creature) MaxHP() int { return c.stats.MaxHP }

// Stats returns a copy of the stat block.
func (c *Creature) Stats() Stats { return c.stats }

// ArmorClass returns the creature's armor class.
func (c *Creature) ArmorClass() int { return c.stats.ArmorClass }

// SaveModifier returns the saving-throw modifier for a.
//
// Precondition: a.Valid().
func (c *Creature) SaveModifier(a ability.Ability) int { return c.stats.Saves[a] }

// AbilityScore returns the score for a.
//
// Precondition: a.Valid().
func (c *Creature) AbilityScore(a ability.Ability) int { return c.stats.Abilities[a] }

// IsAlive reports whether HP > 0.
func (c *Creature) IsAlive() bool { return c.stats.HP > 0 }

// IsDead reports whether HP <= 0.
func (c *Creature) IsDead() bool { return c.stats.HP <= 0 }

// SetHP sets both current and maximum hit points.
//
// Postcondition: HP() == MaxHP() == hp.
func (c *Creature) SetHP(hp int) {
	c.stats.HP = hp
	c.stats.MaxHP = hp
}

// DecreaseHP subtracts amount from current HP. Negative amounts are ignored.
//
// Postcondition: HP() >= 0.
func (c *Creature) DecreaseHP(amount int) {
	if amount < 0 {
		return
	}
	c.stats.HP -= amount
	if c.stats.HP < 0 {
		c.stats.HP = 0
	}
}

// IncreaseHP adds amount to current HP. Negative amounts are ignored.
//
// Postcondition: HP() <= MaxHP().
func (c *Creature) IncreaseHP(amount int) {
	if amount < 0 {
		return
	}
	c.stats.HP += amount
	if c.stats.HP > c.stats.MaxHP {
		c.stats.HP = c.stats.MaxHP
	}
}

// Quantity returns the remaining quantity of r in the creature's ledger.
func (c *Creature) Quantity(r resource.Resource) int { return c.ledger.Quantity(r) }

// Resources returns a snapshot of the ledger.
func (c *Creature) Resources() resource.Ledger { return c.ledger.Clone() }

// HighestSpellSlot returns the highest spell-slot level the creature owns,
// or 0 when it owns none.
func (c *Creature) HighestSpellSlot() int { return c.ledger.HighestSpellSlot() }

// NewTurn refills the per-turn resources the creature owns.
func (c *Creature) NewTurn() { c.ledger.Refill() }

// AddAction registers a under name. Actions keep insertion order, which
// breaks ties in TakeAction.
//
// Precondition: a must be non-nil.
// Postcondition: Returns an error for a duplicate name, an invalid action, or
// an action wrapping ErrUnboundedAction.
func (c *Creature) AddAction(name string, a *action.Action) error {
	if name == "" {
		return fmt.Errorf("creature %q: action name must not be empty", c.name)
	}
	for _, na := range c.actions {
		if na.name == name {
			return fmt.Errorf("creature %q: duplicate action %q", c.name, name)
		}
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("creature %q: action %q: %w", c.name, name, err)
	}
	if len(a.Resources) == 0 && !a.Charges.IsLimited() {
		return fmt.Errorf("creature %q: action %q: %w", c.name, name, ErrUnboundedAction)
	}
	c.actions = append(c.actions, namedAction{name: name, act: a})
	return nil
}

// ActionNames returns the registered action names in insertion order.
func (c *Creature) ActionNames() []string {
	out := make([]string, len(c.actions))
	for i, na := range c.actions {
		out[i] = na.name
	}
	return out
}

// Action returns the registered action called name.
func (c *Creature) Action(name string) (*action.Action, bool) {
	for _, na := range c.actions {
		if na.name == name {
			return na.act, true
		}
	}
	return nil, false
}

// TakeAction selects, among actions that are affordable from the ledger and
// still have charges, the one with the highest AverageDamage. Ties go to the
// earliest registered action. The selected action's resources are consumed
// and one charge is spent before an independent copy is returned for the
// caller to pre-roll and apply.
//
// Postcondition: ok is false iff no action is usable; the ledger is unchanged
// in that case.
func (c *Creature) TakeAction() (name string, act *action.Action, ok bool) {
	best := -1
	bestAvg := 0.0
	for i, na := range c.actions {
		if !na.act.Usable(c.ledger) {
			continue
		}
		avg := na.act.AverageDamage()
		if best < 0 || avg > bestAvg {
			best, bestAvg = i, avg
		}
	}
	if best < 0 {
		return "", nil, false
	}
	chosen := c.actions[best]
	chosen.act.ConsumeResources(c.ledger)
	chosen.act.UseCharge()
	return chosen.name, chosen.act.Clone(), true
}
