package condition

import "github.com/cory-johannsen/battleforge/internal/game/ability"

// AttackBonus returns the net attack roll modifier from all active conditions.
// Stackable penalties are multiplied by the stack count
// (frightened 2 = -2 to attack).
//
// Postcondition: Returns <= 0.
func AttackBonus(s *ActiveSet) int {
	total := 0
	for _, ac := range s.conditions {
		if ac.Def.AttackPenalty > 0 {
			total -= ac.Def.AttackPenalty * ac.Stacks
		}
	}
	return total
}

// ACBonus returns the net armor class modifier from all active conditions.
//
// Postcondition: Returns <= 0.
func ACBonus(s *ActiveSet) int {
	total := 0
	for _, ac := range s.conditions {
		if ac.Def.ACPenalty > 0 {
			total -= ac.Def.ACPenalty * ac.Stacks
		}
	}
	return total
}

// SaveBonus returns the net saving-throw modifier for a from all active
// conditions whose penalty covers a.
//
// Postcondition: Returns <= 0.
func SaveBonus(s *ActiveSet, a ability.Ability) int {
	total := 0
	for _, ac := range s.conditions {
		if ac.Def.SavePenalty > 0 && ac.Def.affectsSave(a) {
			total -= ac.Def.SavePenalty * ac.Stacks
		}
	}
	return total
}
