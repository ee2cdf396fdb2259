package dice_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/battleforge/internal/game/dice"
)

// fixedSource always returns val clamped into [0, n).
type fixedSource struct{ val int }

func (f *fixedSource) Intn(n int) int {
	if f.val >= n {
		return n - 1
	}
	return f.val
}

// countingSource records how many draws were made.
type countingSource struct{ calls int }

func (c *countingSource) Intn(n int) int {
	c.calls++
	return 0
}

// TestRollResult_Total verifies the postcondition: Total() == sum(Dice) + Modifier.
func TestRollResult_Total(t *testing.T) {
	r := dice.RollResult{
		Expression: "2d6+3",
		Dice:       []int{4, 5},
		Modifier:   3,
	}
	assert.Equal(t, 12, r.Total(), "Total() must equal sum(Dice)+Modifier")
}

// TestRollResult_String verifies the audit string contains expression, dice, and total.
func TestRollResult_String(t *testing.T) {
	r := dice.RollResult{
		Expression: "2d6+3",
		Dice:       []int{4, 5},
		Modifier:   3,
	}
	assert.Equal(t, "2d6+3 → [4 5] +3 = 12", r.String())
}

func TestRollResult_String_PanicsOnEmptyExpression(t *testing.T) {
	r := dice.RollResult{Dice: []int{4}, Modifier: 0}
	assert.Panics(t, func() { _ = r.String() })
}

func TestRollResult_Total_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rolled := rapid.SliceOf(rapid.IntRange(1, 20)).Draw(rt, "dice")
		modifier := rapid.IntRange(-1000, 1000).Draw(rt, "modifier")

		r := dice.RollResult{Expression: "Nd6+M", Dice: rolled, Modifier: modifier}

		expected := modifier
		for _, d := range rolled {
			expected += d
		}
		assert.Equal(rt, expected, r.Total())
	})
}

func TestParseFormula(t *testing.T) {
	tests := []struct {
		in    string
		count int
		faces int
		fixed int
	}{
		{"-31", 0, 1, -31},
		{"7", 0, 1, 7},
		{"+4", 0, 1, 4},
		{"3d6", 3, 6, 0},
		{"2d7+8", 2, 7, 8},
		{"30d20-10", 30, 20, -10},
		{"0d6+7", 0, 6, 7},
		{"06d6+7", 6, 6, 7},
	}
	for _, tc := range tests {
		f, err := dice.ParseFormula(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.count, f.Dice.Count, "count for %q", tc.in)
		assert.Equal(t, tc.faces, f.Dice.Faces, "faces for %q", tc.in)
		assert.Equal(t, tc.fixed, f.Fixed, "fixed for %q", tc.in)
	}
}

func TestParseFormula_Invalid(t *testing.T) {
	for _, in := range []string{"", "d6", "6d0+7", "3d6+", "abc", "2d6*2", "1d6+1d4"} {
		_, err := dice.ParseFormula(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestIsFormula(t *testing.T) {
	valid := []string{"27", "3d6", "123d6", "1d234", "23d4-1", "23d4-10", "23d4+17", "06d6+7", "6d4+0", "0d6+7", "0d6+0"}
	for _, s := range valid {
		assert.True(t, dice.IsFormula(s), "%q should be a formula", s)
	}
	assert.False(t, dice.IsFormula("6d0+7"))
	assert.False(t, dice.IsFormula("d20"))
	assert.True(t, dice.IsFormula("999999999d999999999+999999999"))
	for _, s := range []string{"99999999999999999999", "1d99999999999999999999", "9999999999d6", "1d6+9999999999"} {
		assert.False(t, dice.IsFormula(s), "%q overflows", s)
		_, err := dice.ParseFormula(s)
		assert.Error(t, err, "%q overflows", s)
	}
}

// Property: every string IsFormula accepts parses.
func TestIsFormula_ImpliesParses_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := rapid.StringMatching(`[+-]?[0-9]{1,12}(d[0-9]{1,12}([+-][0-9]{1,12})?)?`).Draw(rt, "s")
		if !dice.IsFormula(s) {
			return
		}
		if _, err := dice.ParseFormula(s); err != nil {
			rt.Fatalf("IsFormula(%q) but ParseFormula failed: %v", s, err)
		}
	})
}

func TestMustParseFormula_Panics(t *testing.T) {
	assert.Panics(t, func() { dice.MustParseFormula("nope") })
}

// Property: every accepted formula survives a parse/serialize/parse round trip
// and its average is exactly count*faces/2 + fixed.
func TestFormula_RoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(0, 40).Draw(rt, "count")
		faces := rapid.IntRange(1, 100).Draw(rt, "faces")
		fixed := rapid.IntRange(-50, 50).Draw(rt, "fixed")
		text := fmt.Sprintf("%dd%d%+d", count, faces, fixed)
		require.True(rt, dice.IsFormula(text))

		f := dice.MustParseFormula(text)
		again := dice.MustParseFormula(f.String())

		if count > 0 || faces > 1 {
			assert.Equal(rt, count, again.Dice.Count)
			assert.Equal(rt, faces, again.Dice.Faces)
		}
		assert.Equal(rt, fixed, again.Fixed)
		assert.Equal(rt, float64(count*faces)/2+float64(fixed), again.Average())
	})
}

func TestFormula_Roll_Unclamped(t *testing.T) {
	f := dice.MustParseFormula("1d4-10")
	src := &fixedSource{val: 0}
	assert.Equal(t, -9, f.Roll(src))
}

func TestDice_Roll_ZeroCountDrawsNothing(t *testing.T) {
	src := &countingSource{}
	f := dice.MustParseFormula("0d6+3")
	assert.Equal(t, 3, f.Roll(src))
	assert.Zero(t, src.calls)
}

func TestFormula_Roll_Property_InRange(t *testing.T) {
	src := dice.NewSeededSource(42)
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(0, 10).Draw(rt, "count")
		faces := rapid.IntRange(1, 20).Draw(rt, "faces")
		fixed := rapid.IntRange(-5, 5).Draw(rt, "fixed")
		f := dice.Formula{Dice: dice.Dice{Count: count, Faces: faces}, Fixed: fixed}
		v := f.Roll(src)
		assert.GreaterOrEqual(rt, v, count+fixed)
		assert.LessOrEqual(rt, v, count*faces+fixed)
	})
}

func TestFormula_Arithmetic(t *testing.T) {
	a := dice.MustParseFormula("2d6+1")
	b := dice.MustParseFormula("1d6-3")

	assert.Equal(t, "3d6-2", a.Add(b).String())
	assert.Equal(t, "1d6+4", a.Sub(b).String())
	assert.Equal(t, "6d6+3", a.Mul(3).String())
	assert.Equal(t, "2d6+6", a.Add(dice.Fixed(5)).String())
	assert.Equal(t, "1d8", dice.Formula{}.Add(dice.MustParseFormula("1d8")).String())
}

func TestFormula_Arithmetic_FaceMismatchPanics(t *testing.T) {
	a := dice.MustParseFormula("2d6")
	b := dice.MustParseFormula("1d8")
	assert.Panics(t, func() { a.Add(b) })
	assert.Panics(t, func() { a.Sub(b) })
	assert.Panics(t, func() { b.Sub(dice.MustParseFormula("2d8")) })
}

func TestFormula_UnmarshalText(t *testing.T) {
	var f dice.Formula
	require.NoError(t, f.UnmarshalText([]byte("8d6")))
	assert.Equal(t, 8, f.Dice.Count)
	assert.Error(t, f.UnmarshalText([]byte("eight d six")))
}

func TestRoll_AuditTrail(t *testing.T) {
	src := &fixedSource{val: 3}
	r := dice.Roll(dice.MustParseFormula("2d6+3"), src)
	assert.Equal(t, []int{4, 4}, r.Dice)
	assert.Equal(t, 11, r.Total())
	assert.True(t, strings.HasPrefix(r.String(), "2d6+3"))
}

func TestRoller_LogsAndMatchesRoll(t *testing.T) {
	roller := dice.NewLoggedRoller(&fixedSource{val: 1}, zap.NewNop())
	r, err := roller.RollExpr("3d4+1")
	require.NoError(t, err)
	assert.Equal(t, 7, r.Total())
	_, err = roller.RollExpr("bad")
	assert.Error(t, err)
	assert.Equal(t, 1, roller.Intn(6))
}

func TestSeededSource_Deterministic(t *testing.T) {
	a := dice.NewSeededSource(7)
	b := dice.NewSeededSource(7)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Intn(20), b.Intn(20))
	}
}

func TestD20_Range(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 500; i++ {
		v := dice.D20(src)
		assert.GreaterOrEqual(t, v, 1)
		assert.LessOrEqual(t, v, 20)
	}
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
	assert.Panics(t, func() { dice.NewSeededSource(1).Intn(0) })
}

func TestNewSeed(t *testing.T) {
	_, err := dice.NewSeed()
	assert.NoError(t, err)
}
