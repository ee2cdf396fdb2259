package condition

import (
	"fmt"
	"sort"
)

// ActiveCondition tracks one applied condition on a creature.
type ActiveCondition struct {
	Def               *ConditionDef
	Stacks            int
	DurationRemaining int // -1 = permanent
}

// ActiveSet tracks all conditions currently applied to one creature.
// It is not safe for concurrent use; the owning fight serialises access.
type ActiveSet struct {
	conditions map[string]*ActiveCondition
}

// NewActiveSet creates an empty ActiveSet.
func NewActiveSet() *ActiveSet {
	return &ActiveSet{conditions: make(map[string]*ActiveCondition)}
}

// Apply adds or refreshes a condition.
// Re-applying a stackable condition adds stacks up to MaxStacks; an
// unstackable one stays at 1 stack. The remaining duration becomes the
// longer of the existing and the new one. Permanent definitions ignore
// duration and are stored with -1.
//
// Precondition: def must not be nil; stacks >= 1.
// Postcondition: Has(def.ID) is true.
func (s *ActiveSet) Apply(def *ConditionDef, stacks, duration int) error {
	if def == nil {
		return fmt.Errorf("Apply: def must not be nil")
	}
	if stacks < 1 {
		return fmt.Errorf("Apply %q: stacks must be >= 1, got %d", def.ID, stacks)
	}
	if def.DurationType == DurationPermanent {
		duration = -1
	}

	if existing, ok := s.conditions[def.ID]; ok {
		existing.Stacks = capStacks(def, existing.Stacks+stacks)
		if existing.DurationRemaining >= 0 && (duration < 0 || duration > existing.DurationRemaining) {
			existing.DurationRemaining = duration
		}
		return nil
	}

	s.conditions[def.ID] = &ActiveCondition{
		Def:               def,
		Stacks:            capStacks(def, stacks),
		DurationRemaining: duration,
	}
	return nil
}

func capStacks(def *ConditionDef, n int) int {
	if def.MaxStacks == 0 {
		return 1
	}
	if n > def.MaxStacks {
		return def.MaxStacks
	}
	return n
}

// Remove deletes the condition with the given ID. Removing an absent
// condition is a no-op.
//
// Postcondition: Has(id) is false.
func (s *ActiveSet) Remove(id string) {
	delete(s.conditions, id)
}

// Tick decrements the remaining duration of every timed condition and
// removes those that reach 0. The expired ids are returned sorted.
//
// Postcondition: For every id in the returned slice, Has(id) is false.
func (s *ActiveSet) Tick() []string {
	var expired []string
	for id, ac := range s.conditions {
		if ac.DurationRemaining < 0 {
			continue
		}
		ac.DurationRemaining--
		if ac.DurationRemaining <= 0 {
			expired = append(expired, id)
			delete(s.conditions, id)
		}
	}
	sort.Strings(expired)
	return expired
}

// Has reports whether the condition with id is currently active.
func (s *ActiveSet) Has(id string) bool {
	_, ok := s.conditions[id]
	return ok
}

// Stacks returns the current stack count for condition id, or 0 if not present.
func (s *ActiveSet) Stacks(id string) int {
	if ac, ok := s.conditions[id]; ok {
		return ac.Stacks
	}
	return 0
}

// Len returns the number of active conditions.
func (s *ActiveSet) Len() int { return len(s.conditions) }

// All returns the active conditions sorted by ID.
// The slice is a new allocation but the pointed-to values are shared;
// callers must not modify them.
func (s *ActiveSet) All() []*ActiveCondition {
	out := make([]*ActiveCondition, 0, len(s.conditions))
	for _, ac := range s.conditions {
		out = append(out, ac)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Def.ID < out[j].Def.ID })
	return out
}
