package bestiary

import (
	"fmt"

	"github.com/cory-johannsen/battleforge/internal/game/action"
	"github.com/cory-johannsen/battleforge/internal/game/dice"
	"github.com/cory-johannsen/battleforge/internal/game/resource"
)

// UpcastModifier is what a spell component gains per level above the base.
type UpcastModifier struct {
	TargetCount int          `yaml:"target_count"`
	Damage      dice.Formula `yaml:"damage"`
}

// Scale returns the modifier applied n times.
func (m UpcastModifier) Scale(n int) UpcastModifier {
	return UpcastModifier{TargetCount: m.TargetCount * n, Damage: m.Damage.Mul(n)}
}

// SpellComponent pairs a component with its per-level upcast growth.
type SpellComponent struct {
	Component action.Component `yaml:"component"`
	Upcast    UpcastModifier   `yaml:"upcast"`
}

// SpellTemplate defines a spell at its base level. Casting it at a higher
// slot scales every component by its upcast modifier and appends
// UpcastComponents once per extra level.
type SpellTemplate struct {
	Name  string `yaml:"name"`
	Level int    `yaml:"level"`
	// Charges defaults to infinite.
	Charges resource.Charge `yaml:"charges"`
	// Resources are spent in addition to a SpellAction and the slot.
	Resources        []resource.Resource `yaml:"resources"`
	Components       []SpellComponent    `yaml:"components"`
	UpcastComponents []action.Component  `yaml:"upcast_components"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff Name is non-empty, Level >= 1, at least one
// component is present and every component tree is valid.
func (t *SpellTemplate) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("spell template: name must not be empty")
	}
	if t.Level < 1 {
		return fmt.Errorf("spell template %q: level must be >= 1, got %d", t.Name, t.Level)
	}
	if len(t.Components) == 0 {
		return fmt.Errorf("spell template %q: at least one component is required", t.Name)
	}
	for i := range t.Components {
		if err := t.Components[i].Component.Validate(); err != nil {
			return fmt.Errorf("spell template %q: components[%d]: %w", t.Name, i, err)
		}
		if t.Components[i].Upcast.TargetCount < 0 {
			return fmt.Errorf("spell template %q: components[%d]: upcast target_count must be >= 0", t.Name, i)
		}
	}
	for i := range t.UpcastComponents {
		if err := t.UpcastComponents[i].Validate(); err != nil {
			return fmt.Errorf("spell template %q: upcast_components[%d]: %w", t.Name, i, err)
		}
	}
	return nil
}

// Build expands the template into the action cast from a slot upcast levels
// above the base level. Hit conditions take spellAttack as their modifier and
// save conditions take spellDC.
//
// Precondition: t is valid; upcast >= 0.
// Postcondition: the action spends the template's resources, one SpellAction
// and one spell slot of level Level+upcast, each listed once.
func (t *SpellTemplate) Build(upcast, spellAttack, spellDC int) *action.Action {
	if upcast < 0 {
		panic(fmt.Sprintf("bestiary: negative upcast %d for spell %q", upcast, t.Name))
	}
	act := &action.Action{Charges: t.Charges}
	seen := make(map[resource.Resource]bool)
	addResource := func(r resource.Resource) {
		if !seen[r] {
			seen[r] = true
			act.Resources = append(act.Resources, r)
		}
	}
	for _, r := range t.Resources {
		addResource(r)
	}
	addResource(resource.SpellActionToken)
	addResource(resource.SpellSlot(t.Level + upcast))

	bind := func(c *action.Component) {
		c.SetSaveDC(spellDC)
		c.SetHitModifier(spellAttack)
	}
	for _, sc := range t.Components {
		comp := sc.Component.Clone()
		mod := sc.Upcast.Scale(upcast)
		if !mod.Damage.IsZero() {
			comp.IncreaseDamage(mod.Damage)
		}
		comp.IncreaseTargetCount(mod.TargetCount)
		bind(&comp)
		act.Components = append(act.Components, comp)
	}
	for i := 0; i < upcast; i++ {
		for _, uc := range t.UpcastComponents {
			comp := uc.Clone()
			bind(&comp)
			act.Components = append(act.Components, comp)
		}
	}
	return act
}

// LoadSpellFromBytes parses a single spell template from raw YAML bytes.
// Unknown fields are rejected.
//
// Postcondition: Returns a validated *SpellTemplate, or an error.
func LoadSpellFromBytes(data []byte) (*SpellTemplate, error) {
	var tmpl SpellTemplate
	if err := decodeStrict(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing spell YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadSpells reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first failure.
func LoadSpells(dir string) ([]*SpellTemplate, error) {
	var out []*SpellTemplate
	err := eachYAML(dir, func(_ string, data []byte) error {
		tmpl, err := LoadSpellFromBytes(data)
		if err != nil {
			return err
		}
		out = append(out, tmpl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading spells: %w", err)
	}
	return out, nil
}
