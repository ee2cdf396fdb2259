package bestiary

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/cory-johannsen/battleforge/internal/game/action"
	"github.com/cory-johannsen/battleforge/internal/game/creature"
	"github.com/cory-johannsen/battleforge/internal/game/dice"
	"github.com/cory-johannsen/battleforge/internal/game/resource"
)

var (
	// ErrUnknownMonster is returned when a monster name has no template.
	ErrUnknownMonster = errors.New("unknown monster")
	// ErrUnknownSpell is returned when a monster references a spell with no template.
	ErrUnknownSpell = errors.New("unknown spell")
)

// Spawn requests one creature from a Builder. HP overrides the rolled HP
// when positive.
type Spawn struct {
	Name string
	Team int
	HP   int
}

// Builder turns templates into creatures. The template maps are read-only
// after NewBuilder, so a Builder may be shared across goroutines as long as
// each goroutine uses its own Source via WithSource.
type Builder struct {
	monsters map[string]*MonsterTemplate
	spells   map[string]*SpellTemplate
	src      dice.Source
}

// NewBuilder indexes monsters and spells by name. HP is rolled from a
// cryptographic source until WithSource replaces it.
//
// Postcondition: Returns an error if two templates of the same kind share a
// name, or if a monster references a spell that is not in spells.
func NewBuilder(monsters []*MonsterTemplate, spells []*SpellTemplate) (*Builder, error) {
	b := &Builder{
		monsters: make(map[string]*MonsterTemplate, len(monsters)),
		spells:   make(map[string]*SpellTemplate, len(spells)),
		src:      dice.NewCryptoSource(),
	}
	for _, s := range spells {
		if _, dup := b.spells[s.Name]; dup {
			return nil, fmt.Errorf("duplicate spell template %q", s.Name)
		}
		b.spells[s.Name] = s
	}
	for _, m := range monsters {
		if _, dup := b.monsters[m.Name]; dup {
			return nil, fmt.Errorf("duplicate monster template %q", m.Name)
		}
		for _, at := range m.Actions {
			if at.Kind == KindSpell {
				if _, ok := b.spells[at.Name]; !ok {
					return nil, fmt.Errorf("monster %q: %w %q", m.Name, ErrUnknownSpell, at.Name)
				}
			}
		}
		b.monsters[m.Name] = m
	}
	return b, nil
}

// WithSource returns a copy of b that rolls HP from src.
//
// Precondition: src must be non-nil.
func (b *Builder) WithSource(src dice.Source) *Builder {
	cp := *b
	cp.src = src
	return &cp
}

// Names returns the sorted monster names.
func (b *Builder) Names() []string {
	names := make([]string, 0, len(b.monsters))
	for n := range b.monsters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Monster returns the template registered under name.
func (b *Builder) Monster(name string) (*MonsterTemplate, bool) {
	m, ok := b.monsters[name]
	return m, ok
}

// Build creates a creature from the named template on team. HP is rolled
// from the template's formula and frozen as max HP.
//
// Postcondition: Returns ErrUnknownMonster (wrapped) for an unknown name.
func (b *Builder) Build(name string, team int) (*creature.Creature, error) {
	return b.BuildWithHP(name, team, 0)
}

// BuildWithHP is Build with an HP override. hp <= 0 rolls as Build does.
func (b *Builder) BuildWithHP(name string, team, hp int) (*creature.Creature, error) {
	tmpl, ok := b.monsters[name]
	if !ok {
		return nil, fmt.Errorf("building %q: %w", name, ErrUnknownMonster)
	}
	if hp <= 0 {
		hp = tmpl.Stats.HP.Roll(b.src)
		if hp < 1 {
			hp = 1
		}
	}
	stats := creature.Stats{
		HP:         hp,
		MaxHP:      hp,
		ArmorClass: tmpl.Stats.ArmorClass,
		Initiative: tmpl.Stats.Initiative,
		Abilities:  tmpl.Stats.Abilities.Array(),
		Saves:      tmpl.Stats.SavingThrows.Array(),
	}
	c := creature.New(tmpl.Name, team, stats, tmpl.Resources)
	for _, at := range tmpl.Actions {
		if err := b.addActions(c, &at); err != nil {
			return nil, fmt.Errorf("building %q: %w", name, err)
		}
	}
	return c, nil
}

// Roster builds one creature per spawn, in order.
func (b *Builder) Roster(spawns []Spawn) ([]*creature.Creature, error) {
	out := make([]*creature.Creature, 0, len(spawns))
	for i, s := range spawns {
		c, err := b.BuildWithHP(s.Name, s.Team, s.HP)
		if err != nil {
			return nil, fmt.Errorf("spawn %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (b *Builder) addActions(c *creature.Creature, at *ActionTemplate) error {
	switch at.Kind {
	case KindAttack:
		act := &action.Action{
			Charges:    at.Charges,
			Resources:  attackResources(at),
			Components: []action.Component{attackComponent(at)},
		}
		return c.AddAction(at.Name, act)
	case KindMultiAttack:
		act := &action.Action{Charges: at.Charges, Resources: attackResources(at)}
		for i := range at.Attacks {
			act.Components = append(act.Components, attackComponent(&at.Attacks[i]))
		}
		return c.AddAction(at.Name, act)
	case KindSpell:
		spell, ok := b.spells[at.Name]
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownSpell, at.Name)
		}
		// One action per castable slot level; none when the creature has no
		// slot at or above the spell's level.
		for lvl := spell.Level; lvl <= c.HighestSpellSlot(); lvl++ {
			act := spell.Build(lvl-spell.Level, at.SpellAttack, at.SpellDC)
			if err := c.AddAction(at.Name+" "+strconv.Itoa(lvl), act); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("action %q: unknown kind %q", at.Name, at.Kind)
	}
}

func attackResources(at *ActionTemplate) []resource.Resource {
	if len(at.Resources) == 0 {
		return []resource.Resource{resource.ActionToken}
	}
	return append([]resource.Resource(nil), at.Resources...)
}

func attackComponent(at *ActionTemplate) action.Component {
	n := at.TargetCount
	if n == 0 {
		n = 1
	}
	return action.Attack(at.AttackModifier, at.Damage, n)
}
