package action

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/battleforge/internal/game/dice"
	"github.com/cory-johannsen/battleforge/internal/game/resource"
)

// Action is one selectable behavior of a creature: a basic attack, a
// multi-attack, or one upcast level of a spell.
type Action struct {
	// Charges limits how many times the action may be used per encounter.
	Charges resource.Charge
	// Resources lists what one use spends; each entry costs exactly 1.
	Resources []resource.Resource
	// Components are applied in order, each with its own targeting.
	Components []Component
}

// Validate reports authoring errors: duplicate resources and invalid
// component trees.
//
// Postcondition: Returns nil iff the action is well formed.
func (a *Action) Validate() error {
	var errs []error
	seen := make(map[resource.Resource]bool, len(a.Resources))
	for _, r := range a.Resources {
		if seen[r] {
			errs = append(errs, fmt.Errorf("resource %s listed more than once", r))
		}
		seen[r] = true
	}
	for i := range a.Components {
		if err := a.Components[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("components[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// IsAvailable reports whether every declared resource is present in l with a
// quantity > 0. A missing entry makes the action unavailable.
func (a *Action) IsAvailable(l resource.Ledger) bool {
	for _, r := range a.Resources {
		if !l.Has(r) {
			return false
		}
	}
	return true
}

// HasCharges reports whether the action may still be used this encounter.
func (a *Action) HasCharges() bool {
	return a.Charges.HasCharges()
}

// Usable reports whether the action is both affordable and charge-eligible.
func (a *Action) Usable(l resource.Ledger) bool {
	return a.HasCharges() && a.IsAvailable(l)
}

// UseCharge spends one charge. No-op for infinite charges.
func (a *Action) UseCharge() {
	a.Charges.Use()
}

// ConsumeResources decrements each declared resource in l by 1.
//
// Precondition: IsAvailable(l) is true. Panics on a missing or empty entry.
func (a *Action) ConsumeResources(l resource.Ledger) {
	for _, r := range a.Resources {
		l.Consume(r)
	}
}

// AverageDamage sums the expected damage of every component.
func (a *Action) AverageDamage() float64 {
	total := 0.0
	for i := range a.Components {
		total += a.Components[i].AverageDamage()
	}
	return total
}

// Prepare pre-rolls every component in order.
func (a *Action) Prepare(src dice.Source) {
	for i := range a.Components {
		a.Components[i].Prepare(src)
	}
}

// Clone returns a deep copy whose component trees and resource list are
// independent of a.
func (a *Action) Clone() *Action {
	out := &Action{
		Charges:    a.Charges,
		Resources:  append([]resource.Resource(nil), a.Resources...),
		Components: make([]Component, len(a.Components)),
	}
	for i := range a.Components {
		out.Components[i] = a.Components[i].Clone()
	}
	return out
}

// Attack returns the component of a basic weapon attack: a hit check against
// up to targetCount targets dealing damage on a hit and nothing on a miss.
func Attack(attackModifier int, damage dice.Formula, targetCount int) Component {
	return Conditional(targetCount, Hit(attackModifier), Damage(damage), Nothing())
}
