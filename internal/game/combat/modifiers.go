package combat

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/battleforge/internal/game/ability"
	"github.com/cory-johannsen/battleforge/internal/game/action"
	"github.com/cory-johannsen/battleforge/internal/game/condition"
	"github.com/cory-johannsen/battleforge/internal/game/creature"
)

// modifiers folds each creature's active conditions into hit and save checks.
type modifiers struct {
	f *Fight
}

var _ action.Modifiers = modifiers{}

// set returns the active set of c, or nil when c is not on this roster.
func (m modifiers) set(c action.Combatant) *condition.ActiveSet {
	cr, ok := c.(*creature.Creature)
	if !ok {
		return nil
	}
	id := cr.ID()
	if id < 0 || id >= len(m.f.roster) || m.f.roster[id] != cr {
		return nil
	}
	return m.f.active[id]
}

func (m modifiers) AttackBonus(source action.Combatant) int {
	if s := m.set(source); s != nil {
		return condition.AttackBonus(s)
	}
	return 0
}

func (m modifiers) ACBonus(target action.Combatant) int {
	if s := m.set(target); s != nil {
		return condition.ACBonus(s)
	}
	return 0
}

func (m modifiers) SaveBonus(target action.Combatant, a ability.Ability) int {
	if s := m.set(target); s != nil {
		return condition.SaveBonus(s, a)
	}
	return 0
}

func (m modifiers) ApplyEffect(target action.Combatant, id string, rounds int) {
	s := m.set(target)
	if s == nil {
		return
	}
	if m.f.conditions == nil {
		m.f.logger.Debug("effect dropped: no condition registry", zap.String("effect", id))
		return
	}
	def, ok := m.f.conditions.Get(id)
	if !ok {
		m.f.logger.Warn("unknown condition in effect", zap.String("effect", id))
		return
	}
	if err := s.Apply(def, 1, rounds); err != nil {
		m.f.logger.Warn("applying condition", zap.String("effect", id), zap.Error(err))
		return
	}
	m.f.logger.Debug("condition applied",
		zap.String("target", target.Name()),
		zap.String("condition", id),
		zap.Int("rounds", rounds),
	)
}
