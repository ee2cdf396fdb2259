// Package condition models timed situational modifiers (frightened, blinded,
// restrained, ...) applied to creatures during a fight, and folds them into
// attack, armor class and saving-throw checks.
package condition

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/battleforge/internal/game/ability"
)

// Duration types.
const (
	DurationRounds    = "rounds"
	DurationPermanent = "permanent"
)

// ConditionDef is the static definition of a condition, loaded from YAML.
type ConditionDef struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	DurationType string `yaml:"duration_type"` // "rounds" | "permanent"
	MaxStacks    int    `yaml:"max_stacks"`    // 0 = unstackable
	// AttackPenalty is subtracted from the affected creature's attack rolls.
	AttackPenalty int `yaml:"attack_penalty"`
	// ACPenalty is subtracted from the affected creature's armor class.
	ACPenalty int `yaml:"ac_penalty"`
	// SavePenalty is subtracted from the affected creature's saving throws.
	SavePenalty int `yaml:"save_penalty"`
	// SaveAbilities restricts SavePenalty to these abilities; empty means all.
	SaveAbilities []ability.Ability `yaml:"save_abilities"`
}

// Validate reports every problem with the definition.
//
// Postcondition: Returns nil iff ID and Name are set, DurationType is known
// and every numeric field is >= 0.
func (d *ConditionDef) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if d.DurationType != DurationRounds && d.DurationType != DurationPermanent {
		errs = append(errs, fmt.Errorf("duration_type must be %q or %q, got %q", DurationRounds, DurationPermanent, d.DurationType))
	}
	if d.MaxStacks < 0 {
		errs = append(errs, fmt.Errorf("max_stacks must be >= 0, got %d", d.MaxStacks))
	}
	if d.AttackPenalty < 0 || d.ACPenalty < 0 || d.SavePenalty < 0 {
		errs = append(errs, errors.New("penalties must be >= 0"))
	}
	for _, a := range d.SaveAbilities {
		if !a.Valid() {
			errs = append(errs, fmt.Errorf("save_abilities contains invalid ability %d", int(a)))
		}
	}
	return errors.Join(errs...)
}

// affectsSave reports whether SavePenalty applies to saves using a.
func (d *ConditionDef) affectsSave(a ability.Ability) bool {
	if len(d.SaveAbilities) == 0 {
		return true
	}
	for _, s := range d.SaveAbilities {
		if s == a {
			return true
		}
	}
	return false
}

// Registry holds all known ConditionDefs keyed by ID.
type Registry struct {
	defs map[string]*ConditionDef
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*ConditionDef)}
}

// Register adds def to the registry, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *ConditionDef) {
	r.defs[def.ID] = def
}

// Get returns the ConditionDef for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*ConditionDef, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int { return len(r.defs) }

// All returns every registered ConditionDef sorted by ID.
func (r *Registry) All() []*ConditionDef {
	out := make([]*ConditionDef, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDirectory reads every *.yaml file in dir, parses each as a ConditionDef,
// validates it, and returns a populated Registry. Unknown YAML fields are
// rejected.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to
// parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading condition dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def ConditionDef
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("validating %q: %w", path, err)
		}
		if _, dup := reg.Get(def.ID); dup {
			return nil, fmt.Errorf("%q: duplicate condition id %q", path, def.ID)
		}
		reg.Register(&def)
	}
	return reg, nil
}
