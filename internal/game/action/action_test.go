package action_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/battleforge/internal/game/ability"
	"github.com/cory-johannsen/battleforge/internal/game/action"
	"github.com/cory-johannsen/battleforge/internal/game/dice"
	"github.com/cory-johannsen/battleforge/internal/game/resource"
)

// seqSource replays vals in order; each value v yields v % n.
type seqSource struct {
	vals []int
	i    int
}

func (s *seqSource) Intn(n int) int {
	if s.i >= len(s.vals) {
		panic("seqSource exhausted")
	}
	v := s.vals[s.i] % n
	s.i++
	return v
}

// fixedSource always returns val clamped to [0, n-1].
type fixedSource struct{ val int }

func (f fixedSource) Intn(n int) int {
	if f.val >= n {
		return n - 1
	}
	return f.val
}

type dummy struct {
	name  string
	ac    int
	hp    int
	saves map[ability.Ability]int
}

func (d *dummy) Name() string { return d.name }
func (d *dummy) ArmorClass() int { return d.ac }
func (d *dummy) SaveModifier(a ability.Ability) int { return d.saves[a] }
func (d *dummy) DecreaseHP(n int) {
	if n < 0 {
		return
	}
	d.hp -= n
	if d.hp < 0 {
		d.hp = 0
	}
}

type stubMods struct {
	attack, ac, save int
	applied          []string
}

func (m *stubMods) AttackBonus(action.Combatant) int { return m.attack }
func (m *stubMods) ACBonus(action.Combatant) int { return m.ac }
func (m *stubMods) SaveBonus(action.Combatant, ability.Ability) int { return m.save }
func (m *stubMods) ApplyEffect(t action.Combatant, id string, rounds int) {
	m.applied = append(m.applied, t.Name()+":"+id)
}

func fireball() action.Component {
	dmg := dice.MustParseFormula("8d6")
	return action.Conditional(3, action.Save(15, ability.Dexterity), action.HalfDamage(dmg), action.Damage(dmg))
}

func TestTargets_FixedMapping(t *testing.T) {
	f := dice.MustParseFormula("1d6")
	assert.Equal(t, 0, (&action.Component{}).Targets())
	nothing := action.Nothing()
	assert.Equal(t, 0, nothing.Targets())
	dmg := action.Damage(f)
	assert.Equal(t, 1, dmg.Targets())
	half := action.HalfDamage(f)
	assert.Equal(t, 1, half.Targets())
	multi := action.Multi(fireball(), fireball())
	assert.Equal(t, 1, multi.Targets(), "multi does not aggregate children")
	eff := action.Effect("frightened", 2)
	assert.Equal(t, 1, eff.Targets())
	fb := fireball()
	assert.Equal(t, 3, fb.Targets())
}

func TestPrepare_RollsSuccessThenFailure(t *testing.T) {
	c := action.Conditional(1, action.Hit(0),
		action.Damage(dice.MustParseFormula("1d6")),
		action.HalfDamage(dice.MustParseFormula("1d6")))
	// success rolls 4, failure rolls 5 (halved to 2)
	c.Prepare(&seqSource{vals: []int{3, 4}})
	assert.Equal(t, 4, c.Success.Rolled)
	assert.Equal(t, 2, c.Failure.Rolled)
}

func TestPrepare_HalfDamageFloorsNegative(t *testing.T) {
	c := action.HalfDamage(dice.Fixed(-3))
	c.Prepare(fixedSource{})
	assert.Equal(t, -2, c.Rolled)
}

func TestApply_SamePreRolledDamageOnEveryTarget(t *testing.T) {
	fb := fireball()
	fb.Prepare(fixedSource{val: 2}) // every d6 shows 3: 24 full, 12 half
	require.Equal(t, 12, fb.Success.Rolled)
	require.Equal(t, 24, fb.Failure.Rolled)

	targets := []*dummy{
		{name: "a", hp: 100},
		{name: "b", hp: 100, saves: map[ability.Ability]int{ability.Dexterity: 10}},
		{name: "c", hp: 100},
	}
	// d20 draws: a rolls 1 (fails), b rolls 6 (+10 = 16, saves), c rolls 20 (saves)
	r := &action.Resolution{Src: &seqSource{vals: []int{0, 5, 19}}}
	src := &dummy{name: "caster"}
	for _, tgt := range targets {
		fb.Apply(r, src, tgt)
	}
	assert.Equal(t, 76, targets[0].hp)
	assert.Equal(t, 88, targets[1].hp)
	assert.Equal(t, 88, targets[2].hp)
}

func TestApply_Property_PreRollIsStableAcrossTargets(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 10).Draw(rt, "count")
		faces := rapid.IntRange(1, 12).Draw(rt, "faces")
		c := action.Damage(dice.Formula{Dice: dice.Dice{Count: count, Faces: faces}})
		c.Prepare(dice.NewSeededSource(rapid.Int64().Draw(rt, "seed")))
		n := rapid.IntRange(1, 6).Draw(rt, "targets")
		r := &action.Resolution{}
		var lost []int
		for i := 0; i < n; i++ {
			d := &dummy{name: "t", hp: 1000}
			c.Apply(r, &dummy{name: "s"}, d)
			lost = append(lost, 1000-d.hp)
		}
		for _, l := range lost {
			if l != lost[0] {
				rt.Fatalf("targets took different damage: %v", lost)
			}
		}
	})
}

func TestHit_UsesAttackModifierAndModifiers(t *testing.T) {
	target := &dummy{name: "t", ac: 15, hp: 10}
	c := action.Conditional(1, action.Hit(5), action.Damage(dice.Fixed(3)), action.Nothing())
	c.Prepare(fixedSource{})

	// d20 = 10: 10 + 5 = 15 >= 15 hits
	c.Apply(&action.Resolution{Src: &seqSource{vals: []int{9}}}, &dummy{name: "s"}, target)
	assert.Equal(t, 7, target.hp)

	// same roll with a -1 attack penalty misses
	mods := &stubMods{attack: -1}
	c.Apply(&action.Resolution{Src: &seqSource{vals: []int{9}}, Mods: mods}, &dummy{name: "s"}, target)
	assert.Equal(t, 7, target.hp)

	// a -2 AC penalty on the target turns a 9 + 5 into a hit
	mods = &stubMods{ac: -2}
	c.Apply(&action.Resolution{Src: &seqSource{vals: []int{8}}, Mods: mods}, &dummy{name: "s"}, target)
	assert.Equal(t, 4, target.hp)
}

func TestSave_UsesTargetModifierAndBonus(t *testing.T) {
	target := &dummy{name: "t", hp: 10, saves: map[ability.Ability]int{ability.Wisdom: 2}}
	c := action.Conditional(1, action.Save(13, ability.Wisdom), action.Nothing(), action.Damage(dice.Fixed(4)))
	c.Prepare(fixedSource{})

	// 11 + 2 = 13 saves
	c.Apply(&action.Resolution{Src: &seqSource{vals: []int{10}}}, &dummy{name: "s"}, target)
	assert.Equal(t, 10, target.hp)

	// same roll with a -1 save penalty fails
	c.Apply(&action.Resolution{Src: &seqSource{vals: []int{10}}, Mods: &stubMods{save: -1}}, &dummy{name: "s"}, target)
	assert.Equal(t, 6, target.hp)
}

func TestTrueFalse_DrawNothing(t *testing.T) {
	target := &dummy{name: "t", hp: 10}
	c := action.Multi(
		action.Conditional(1, action.True(), action.Damage(dice.Fixed(2)), action.Nothing()),
		action.Conditional(1, action.False(), action.Damage(dice.Fixed(5)), action.Damage(dice.Fixed(1))),
	)
	c.Prepare(&seqSource{})
	c.Apply(&action.Resolution{Src: &seqSource{}}, &dummy{name: "s"}, target)
	assert.Equal(t, 7, target.hp)
}

func TestApply_DamageNeverDrivesHPNegative(t *testing.T) {
	target := &dummy{name: "t", hp: 3}
	c := action.Damage(dice.Fixed(10))
	c.Prepare(fixedSource{})
	c.Apply(&action.Resolution{}, &dummy{name: "s"}, target)
	assert.Equal(t, 0, target.hp)
}

func TestEffect_AppliedThroughModifiers(t *testing.T) {
	mods := &stubMods{}
	c := action.Conditional(1, action.True(), action.Effect("frightened", 2), action.Nothing())
	c.Apply(&action.Resolution{Mods: mods}, &dummy{name: "s"}, &dummy{name: "t"})
	assert.Equal(t, []string{"t:frightened"}, mods.applied)

	assert.NotPanics(t, func() {
		c.Apply(&action.Resolution{}, &dummy{name: "s"}, &dummy{name: "t"})
	})
}

func TestAverageDamage_CountsSuccessBranchOnly(t *testing.T) {
	fb := fireball()
	assert.InDelta(t, 12.0, fb.AverageDamage(), 1e-9)
	m := action.Multi(action.Damage(dice.MustParseFormula("2d6+1")), action.Effect("x", 1), action.Nothing())
	assert.InDelta(t, 7.0, m.AverageDamage(), 1e-9)

	a := action.Action{Components: []action.Component{fireball(), action.Attack(5, dice.MustParseFormula("1d8+2"), 1)}}
	assert.InDelta(t, 18.0, a.AverageDamage(), 1e-9)
}

func TestAdd(t *testing.T) {
	d6 := dice.MustParseFormula("1d6")
	sum := action.Damage(d6).Add(action.Damage(dice.MustParseFormula("2d6+1")))
	assert.Equal(t, "3d6+1", sum.Damage.String())

	assert.Equal(t, action.KindDamage, action.Nothing().Add(action.Damage(d6)).Kind)
	assert.Equal(t, action.KindDamage, action.Damage(d6).Add(action.Nothing()).Kind)

	c := action.Attack(5, d6, 1).Add(action.Attack(3, d6, 2))
	assert.Equal(t, 3, c.TargetCount)
	assert.Equal(t, 5, c.Condition.AttackModifier)
	assert.Equal(t, "2d6", c.Success.Damage.String())
	assert.Equal(t, action.KindNothing, c.Failure.Kind)

	m := action.Multi(action.Damage(d6), action.HalfDamage(d6)).Add(action.Multi(action.Damage(d6), action.HalfDamage(d6)))
	assert.Equal(t, "2d6", m.Next[0].Damage.String())
	assert.Equal(t, "2d6", m.Next[1].Damage.String())
}

func TestAdd_NothingOperandResetsRolled(t *testing.T) {
	tree := action.Multi(
		action.Damage(dice.MustParseFormula("2d6+1")),
		action.Attack(4, dice.MustParseFormula("1d8"), 1),
	)
	tree.Prepare(fixedSource{val: 3})
	require.Equal(t, 9, tree.Next[0].Rolled)
	require.Equal(t, 4, tree.Next[1].Success.Rolled)

	for _, sum := range []action.Component{tree.Add(action.Nothing()), action.Nothing().Add(tree)} {
		assert.Equal(t, 0, sum.Next[0].Rolled)
		assert.Equal(t, 0, sum.Next[1].Success.Rolled)
		assert.Equal(t, "2d6+1", sum.Next[0].Damage.String())
	}
	assert.Equal(t, 9, tree.Next[0].Rolled, "the operand keeps its own roll")
}

func TestAdd_IncompatiblePanics(t *testing.T) {
	d6 := dice.MustParseFormula("1d6")
	assert.Panics(t, func() { action.Damage(d6).Add(action.HalfDamage(d6)) })
	assert.Panics(t, func() { action.Damage(d6).Add(action.Damage(dice.MustParseFormula("1d8"))) })
	assert.Panics(t, func() {
		action.Attack(1, d6, 1).Add(action.Conditional(1, action.Save(10, ability.Strength), action.Nothing(), action.Nothing()))
	})
	assert.Panics(t, func() { action.Multi(action.Damage(d6)).Add(action.Multi()) })
	assert.Panics(t, func() { action.Effect("a", 1).Add(action.Effect("a", 1)) })
}

func TestScale(t *testing.T) {
	c := action.Attack(4, dice.MustParseFormula("1d6+1"), 2).Scale(3)
	assert.Equal(t, 6, c.TargetCount)
	assert.Equal(t, "3d6+3", c.Success.Damage.String())
	assert.Equal(t, action.KindNothing, action.Nothing().Scale(4).Kind)
	assert.Panics(t, func() { action.Damage(dice.Fixed(1)).Scale(-1) })
	assert.Panics(t, func() { action.Effect("x", 1).Scale(2) })
}

func TestUpcastHelpers_Recurse(t *testing.T) {
	c := action.Multi(fireball(), action.Attack(0, dice.MustParseFormula("1d6"), 1))
	c.IncreaseDamage(dice.MustParseFormula("1d6"))
	c.IncreaseTargetCount(1)
	c.SetSaveDC(17)
	c.SetHitModifier(7)

	fb := c.Next[0]
	assert.Equal(t, 4, fb.TargetCount)
	assert.Equal(t, 17, fb.Condition.SaveDC)
	assert.Equal(t, "9d6", fb.Success.Damage.String())
	assert.Equal(t, "9d6", fb.Failure.Damage.String())

	atk := c.Next[1]
	assert.Equal(t, 2, atk.TargetCount)
	assert.Equal(t, 7, atk.Condition.AttackModifier)
	assert.Equal(t, 0, atk.Condition.SaveDC, "save dc only binds save conditions")
	assert.Equal(t, "2d6", atk.Success.Damage.String())
}

func TestIncreaseDamage_ZeroFormulaIsIdentity(t *testing.T) {
	c := fireball()
	c.IncreaseDamage(dice.Formula{})
	assert.Equal(t, "8d6", c.Success.Damage.String())
}

func TestClone_IsDeep(t *testing.T) {
	orig := action.Multi(fireball())
	cp := orig.Clone()
	cp.Next[0].Success.Rolled = 99
	cp.Next[0].TargetCount = 1
	assert.Equal(t, 0, orig.Next[0].Success.Rolled)
	assert.Equal(t, 3, orig.Next[0].TargetCount)

	a := &action.Action{Resources: []resource.Resource{resource.ActionToken}, Components: []action.Component{fireball()}}
	b := a.Clone()
	b.Prepare(fixedSource{val: 5})
	b.Resources[0] = resource.KiToken
	assert.Equal(t, 0, a.Components[0].Success.Rolled)
	assert.Equal(t, resource.ActionToken, a.Resources[0])
}

func TestAction_Availability(t *testing.T) {
	a := &action.Action{Resources: []resource.Resource{resource.SpellActionToken, resource.SpellSlot(3)}}
	l := resource.NewLedger(nil)
	assert.False(t, a.IsAvailable(l), "missing key is unavailable")
	assert.Panics(t, func() { a.ConsumeResources(l) })

	l = resource.NewLedger([]resource.Resource{resource.SpellSlot(3)})
	require.True(t, a.IsAvailable(l))
	a.ConsumeResources(l)
	assert.Equal(t, 0, l.Quantity(resource.SpellSlot(3)))
	assert.Equal(t, 0, l.Quantity(resource.SpellActionToken))
	assert.False(t, a.IsAvailable(l))

	free := &action.Action{}
	assert.True(t, free.IsAvailable(resource.Ledger{}))
}

func TestAction_Property_ChargeExhaustion(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(rt, "n")
		a := &action.Action{Charges: resource.Limited(n), Resources: []resource.Resource{resource.ActionToken}}
		l := resource.NewLedger(nil)
		uses := 0
		for i := 0; i < n+5; i++ {
			l.Refill()
			if !a.Usable(l) {
				break
			}
			a.ConsumeResources(l)
			a.UseCharge()
			uses++
		}
		if uses != n {
			rt.Fatalf("expected %d uses, got %d", n, uses)
		}
		l.Refill()
		if a.HasCharges() || a.Usable(l) {
			rt.Fatalf("action still usable after %d uses", n)
		}
	})
}

func TestAction_Validate(t *testing.T) {
	good := &action.Action{
		Resources:  []resource.Resource{resource.ActionToken},
		Components: []action.Component{fireball()},
	}
	assert.NoError(t, good.Validate())

	dup := &action.Action{Resources: []resource.Resource{resource.ActionToken, resource.ActionToken}}
	assert.Error(t, dup.Validate())

	bad := &action.Action{Components: []action.Component{
		action.Conditional(-1, action.Save(10, ability.Ability(9)), action.Effect("", -1), action.Nothing()),
		{Kind: action.Kind(42)},
	}}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target_count")
	assert.Contains(t, err.Error(), "invalid ability")
	assert.Contains(t, err.Error(), "effect id")
	assert.Contains(t, err.Error(), "unknown component kind")
}

func TestComponent_YAML(t *testing.T) {
	src := `
kind: multi
next:
  - kind: condition
    target_count: 2
    condition:
      kind: save
      ability: dex
      save_dc: 14
    success:
      kind: half_damage
      damage: 3d8
    failure:
      kind: damage
      damage: 3d8
  - kind: effect
    effect: frightened
    rounds: 1
`
	var c action.Component
	require.NoError(t, yaml.Unmarshal([]byte(src), &c))
	require.NoError(t, c.Validate())
	require.Len(t, c.Next, 2)
	assert.Equal(t, action.CondSave, c.Next[0].Condition.Kind)
	assert.Equal(t, ability.Dexterity, c.Next[0].Condition.Ability)
	assert.Equal(t, 2, c.Next[0].Targets())
	assert.Equal(t, "3d8", c.Next[0].Failure.Damage.String())
	assert.Equal(t, "frightened", c.Next[1].Effect)

	var bad action.Component
	assert.Error(t, yaml.Unmarshal([]byte("kind: explode\n"), &bad))
}
