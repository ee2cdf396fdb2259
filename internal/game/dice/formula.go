package dice

import (
	"fmt"
	"strconv"
)

// Dice is a pool of identical dice, e.g. 3d6.
//
// Invariant: Count >= 0; Faces >= 1 for every parsed value.
type Dice struct {
	Count int
	Faces int
}

// Roll sums Count independent draws in [1, Faces].
//
// Postcondition: Count == 0 returns 0 without drawing from src.
func (d Dice) Roll(src Source) int {
	sum := 0
	for i := 0; i < d.Count; i++ {
		sum += src.Intn(d.Faces) + 1
	}
	return sum
}

// Average returns Count*Faces/2.
func (d Dice) Average() float64 {
	return float64(d.Count*d.Faces) / 2
}

// faces returns the face count shared by d and o.
// A pool with no dice adopts the other pool's faces.
func (d Dice) faces(o Dice) int {
	switch {
	case d.Count == 0 && o.Count == 0:
		if d.Faces > o.Faces {
			return d.Faces
		}
		return o.Faces
	case d.Count == 0:
		return o.Faces
	case o.Count == 0:
		return d.Faces
	case d.Faces != o.Faces:
		panic(fmt.Sprintf("dice: cannot combine d%d with d%d", d.Faces, o.Faces))
	default:
		return d.Faces
	}
}

// Formula is a dice pool plus a fixed modifier ("NdM+K"). Only one die size
// per formula is supported.
type Formula struct {
	Dice  Dice
	Fixed int
}

// Fixed returns a formula with no dice and the given constant.
func Fixed(n int) Formula {
	return Formula{Dice: Dice{Count: 0, Faces: 1}, Fixed: n}
}

// Roll returns Dice.Roll(src) + Fixed. The result is never clamped.
func (f Formula) Roll(src Source) int {
	return f.Dice.Roll(src) + f.Fixed
}

// Average returns the expectation used by decision making: Dice.Average() + Fixed.
func (f Formula) Average() float64 {
	return f.Dice.Average() + float64(f.Fixed)
}

// IsZero reports whether f has neither dice nor a modifier.
func (f Formula) IsZero() bool {
	return f.Dice.Count == 0 && f.Fixed == 0
}

// Add returns f + o.
//
// Precondition: f and o use the same die faces, or one of them has no dice.
// Panics otherwise.
func (f Formula) Add(o Formula) Formula {
	return Formula{
		Dice:  Dice{Count: f.Dice.Count + o.Dice.Count, Faces: f.Dice.faces(o.Dice)},
		Fixed: f.Fixed + o.Fixed,
	}
}

// Sub returns f - o.
//
// Precondition: same faces as for Add, and o has no more dice than f.
func (f Formula) Sub(o Formula) Formula {
	faces := f.Dice.faces(o.Dice)
	count := f.Dice.Count - o.Dice.Count
	if count < 0 {
		panic(fmt.Sprintf("dice: %s - %s leaves a negative die count", f, o))
	}
	return Formula{Dice: Dice{Count: count, Faces: faces}, Fixed: f.Fixed - o.Fixed}
}

// Mul scales both the die count and the modifier by n.
//
// Precondition: n >= 0.
func (f Formula) Mul(n int) Formula {
	if n < 0 {
		panic(fmt.Sprintf("dice: cannot scale %s by negative factor %d", f, n))
	}
	return Formula{Dice: Dice{Count: f.Dice.Count * n, Faces: f.Dice.Faces}, Fixed: f.Fixed * n}
}

// String returns the canonical text form accepted by ParseFormula.
func (f Formula) String() string {
	if f.Dice.Count == 0 && f.Dice.Faces <= 1 {
		return strconv.Itoa(f.Fixed)
	}
	s := fmt.Sprintf("%dd%d", f.Dice.Count, f.Dice.Faces)
	if f.Fixed != 0 {
		s += fmt.Sprintf("%+d", f.Fixed)
	}
	return s
}

// MarshalText implements encoding.TextMarshaler.
func (f Formula) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so templates can carry
// formulas as plain strings.
func (f *Formula) UnmarshalText(text []byte) error {
	parsed, err := ParseFormula(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
