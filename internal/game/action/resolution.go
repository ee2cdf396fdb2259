package action

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/battleforge/internal/game/ability"
	"github.com/cory-johannsen/battleforge/internal/game/dice"
)

// Combatant is the view of a creature that component evaluation needs.
// *creature.Creature satisfies it.
type Combatant interface {
	Name() string
	ArmorClass() int
	SaveModifier(a ability.Ability) int
	// DecreaseHP subtracts amount from current HP, never going below 0.
	DecreaseHP(amount int)
}

// Modifiers supplies situational bonuses and timed effects. Every bonus is
// added to the raw check before comparing.
type Modifiers interface {
	AttackBonus(source Combatant) int
	ACBonus(target Combatant) int
	SaveBonus(target Combatant, a ability.Ability) int
	// ApplyEffect attaches the named timed condition to target.
	ApplyEffect(target Combatant, id string, rounds int)
}

// Resolution carries the collaborators of one action being applied.
type Resolution struct {
	// Src is the random source for condition checks.
	Src dice.Source
	// Mods may be nil, in which case every bonus is 0 and effects are dropped.
	Mods Modifiers
	// Logger may be nil.
	Logger *zap.Logger
}

func (r *Resolution) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Resolution) attackBonus(source Combatant) int {
	if r.Mods == nil {
		return 0
	}
	return r.Mods.AttackBonus(source)
}

func (r *Resolution) acBonus(target Combatant) int {
	if r.Mods == nil {
		return 0
	}
	return r.Mods.ACBonus(target)
}

func (r *Resolution) saveBonus(target Combatant, a ability.Ability) int {
	if r.Mods == nil {
		return 0
	}
	return r.Mods.SaveBonus(target, a)
}

func (r *Resolution) applyEffect(target Combatant, id string, rounds int) {
	if r.Mods == nil {
		r.logger().Debug("effect dropped: no modifier table", zap.String("effect", id))
		return
	}
	r.Mods.ApplyEffect(target, id, rounds)
}
