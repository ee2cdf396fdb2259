// Package bestiary provides monster and spell template definitions loaded
// from YAML, and the builder that turns them into ready-to-fight creatures.
package bestiary

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/battleforge/internal/game/ability"
	"github.com/cory-johannsen/battleforge/internal/game/dice"
	"github.com/cory-johannsen/battleforge/internal/game/resource"
)

// Action template kinds.
const (
	KindAttack      = "attack"
	KindMultiAttack = "multi_attack"
	KindSpell       = "spell"
)

// AbilityScores holds one value per ability. It is used both for ability
// scores and for saving-throw modifiers.
type AbilityScores struct {
	Strength     int `yaml:"strength"`
	Dexterity    int `yaml:"dexterity"`
	Constitution int `yaml:"constitution"`
	Intelligence int `yaml:"intelligence"`
	Wisdom       int `yaml:"wisdom"`
	Charisma     int `yaml:"charisma"`
}

// Array returns the values indexed by ability.Ability.
func (a AbilityScores) Array() [ability.Count]int {
	var out [ability.Count]int
	out[ability.Strength] = a.Strength
	out[ability.Dexterity] = a.Dexterity
	out[ability.Constitution] = a.Constitution
	out[ability.Intelligence] = a.Intelligence
	out[ability.Wisdom] = a.Wisdom
	out[ability.Charisma] = a.Charisma
	return out
}

// StatsTemplate is the stat block of a monster template.
type StatsTemplate struct {
	Abilities    AbilityScores `yaml:"abilities"`
	SavingThrows AbilityScores `yaml:"saving_throws"` // modifiers, not scores
	Initiative   int           `yaml:"initiative"`
	ArmorClass   int           `yaml:"armor_class"`
	// HP is rolled once per built creature and becomes its max HP.
	HP dice.Formula `yaml:"hp"`
}

// ActionTemplate describes one entry of a monster's action list.
//
//	attack:       attack_modifier, damage, target_count (default 1)
//	multi_attack: attacks (each an attack)
//	spell:        spell_attack, spell_dc; name references a SpellTemplate
//
// Attacks and multi-attacks spend one Action unless Resources overrides it,
// and have infinite charges unless Charges is set.
type ActionTemplate struct {
	Kind           string              `yaml:"kind"`
	Name           string              `yaml:"name"`
	AttackModifier int                 `yaml:"attack_modifier"`
	Damage         dice.Formula        `yaml:"damage"`
	TargetCount    int                 `yaml:"target_count"`
	Attacks        []ActionTemplate    `yaml:"attacks"`
	SpellAttack    int                 `yaml:"spell_attack"`
	SpellDC        int                 `yaml:"spell_dc"`
	Charges        resource.Charge     `yaml:"charges"`
	Resources      []resource.Resource `yaml:"resources"`
}

func (t *ActionTemplate) validate(nested bool) error {
	if t.Name == "" && !nested {
		return errors.New("name must not be empty")
	}
	switch t.Kind {
	case KindAttack:
		if t.TargetCount < 0 {
			return fmt.Errorf("%q: target_count must be >= 0", t.Name)
		}
		if t.Damage.Dice.Count > 0 && t.Damage.Dice.Faces < 1 {
			return fmt.Errorf("%q: invalid damage %s", t.Name, t.Damage)
		}
	case KindMultiAttack:
		if nested {
			return errors.New("multi_attack cannot be nested")
		}
		if len(t.Attacks) == 0 {
			return fmt.Errorf("%q: multi_attack needs at least one attack", t.Name)
		}
		for i := range t.Attacks {
			if t.Attacks[i].Kind != KindAttack {
				return fmt.Errorf("%q: attacks[%d] must be an attack, got %q", t.Name, i, t.Attacks[i].Kind)
			}
			if err := t.Attacks[i].validate(true); err != nil {
				return fmt.Errorf("%q: attacks[%d]: %w", t.Name, i, err)
			}
		}
	case KindSpell:
		if nested {
			return errors.New("spell cannot be nested")
		}
	default:
		return fmt.Errorf("%q: unknown action kind %q", t.Name, t.Kind)
	}
	return nil
}

// MonsterTemplate defines a reusable monster archetype loaded from YAML.
type MonsterTemplate struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Stats       StatsTemplate `yaml:"stats"`
	// Resources are added to the base Action, BonusAction and SpellAction.
	Resources []resource.Resource `yaml:"resources"`
	Actions   []ActionTemplate    `yaml:"actions"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff Name is non-empty, the HP formula is
// non-zero, and every action template is well formed.
func (t *MonsterTemplate) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("monster template: name must not be empty")
	}
	if t.Stats.HP.IsZero() {
		return fmt.Errorf("monster template %q: hp must not be empty", t.Name)
	}
	seen := make(map[string]bool, len(t.Actions))
	for i := range t.Actions {
		if err := t.Actions[i].validate(false); err != nil {
			return fmt.Errorf("monster template %q: actions[%d]: %w", t.Name, i, err)
		}
		if seen[t.Actions[i].Name] {
			return fmt.Errorf("monster template %q: duplicate action %q", t.Name, t.Actions[i].Name)
		}
		seen[t.Actions[i].Name] = true
	}
	return nil
}

func decodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(v)
}

// LoadMonsterFromBytes parses a single monster template from raw YAML bytes.
// Unknown fields are rejected.
//
// Postcondition: Returns a validated *MonsterTemplate, or an error.
func LoadMonsterFromBytes(data []byte) (*MonsterTemplate, error) {
	var tmpl MonsterTemplate
	if err := decodeStrict(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing monster YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadMonsters reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or
// validate failure; on error, the partial result is discarded.
func LoadMonsters(dir string) ([]*MonsterTemplate, error) {
	var out []*MonsterTemplate
	err := eachYAML(dir, func(path string, data []byte) error {
		tmpl, err := LoadMonsterFromBytes(data)
		if err != nil {
			return err
		}
		out = append(out, tmpl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading monsters: %w", err)
	}
	return out, nil
}

// eachYAML calls fn for every *.yaml file directly inside dir, in name order.
func eachYAML(dir string, fn func(path string, data []byte) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading dir %q: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}
		if err := fn(path, data); err != nil {
			return fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return nil
}
