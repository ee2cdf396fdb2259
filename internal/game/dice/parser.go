package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Every number in a formula has at most nine digits, so it always fits an int.
var (
	fixedPattern   = regexp.MustCompile(`^[+-]?\d{1,9}$`)
	formulaPattern = regexp.MustCompile(`^(\d{1,9})d([1-9]\d{0,8})([+-]\d{1,9})?$`)
)

// IsFormula reports whether s is a canonical formula: either a signed integer
// ("7", "-31") or "NdM" with an optional signed modifier ("3d6", "2d7+8").
// Numbers longer than nine digits are rejected.
//
// Postcondition: ParseFormula(s) succeeds whenever IsFormula(s) is true.
func IsFormula(s string) bool {
	return fixedPattern.MatchString(s) || formulaPattern.MatchString(s)
}

// ParseFormula parses s into a Formula.
// Supported forms: "7", "-31", "3d6", "2d7+8", "30d20-10", "0d6+7".
// A fixed-only formula parses to a zero-count die with one face.
//
// Precondition: s must satisfy IsFormula.
// Postcondition: Returns a Formula with Dice.Faces >= 1 and Dice.Count >= 0,
// or a descriptive error.
func ParseFormula(s string) (Formula, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Formula{}, fmt.Errorf("dice: empty formula")
	}

	if fixedPattern.MatchString(raw) {
		fixed, err := strconv.Atoi(raw)
		if err != nil {
			return Formula{}, fmt.Errorf("dice: invalid fixed value in %q: %w", raw, err)
		}
		return Formula{Dice: Dice{Count: 0, Faces: 1}, Fixed: fixed}, nil
	}

	m := formulaPattern.FindStringSubmatch(raw)
	if m == nil {
		return Formula{}, fmt.Errorf("dice: formula %q has the wrong format", raw)
	}
	count, err := strconv.Atoi(m[1])
	if err != nil {
		return Formula{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
	}
	faces, err := strconv.Atoi(m[2])
	if err != nil {
		return Formula{}, fmt.Errorf("dice: invalid die faces in %q: %w", raw, err)
	}
	fixed := 0
	if m[3] != "" {
		fixed, err = strconv.Atoi(m[3])
		if err != nil {
			return Formula{}, fmt.Errorf("dice: invalid modifier in %q: %w", raw, err)
		}
	}
	return Formula{Dice: Dice{Count: count, Faces: faces}, Fixed: fixed}, nil
}

// MustParseFormula parses s and panics on error. Useful for package-level
// values and test fixtures.
//
// Precondition: s must be a valid formula.
func MustParseFormula(s string) Formula {
	f, err := ParseFormula(s)
	if err != nil {
		panic("dice: MustParseFormula failed for formula " + s + ": " + err.Error())
	}
	return f
}
