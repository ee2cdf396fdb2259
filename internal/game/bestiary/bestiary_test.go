package bestiary_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/battleforge/internal/game/ability"
	"github.com/cory-johannsen/battleforge/internal/game/action"
	"github.com/cory-johannsen/battleforge/internal/game/bestiary"
	"github.com/cory-johannsen/battleforge/internal/game/dice"
	"github.com/cory-johannsen/battleforge/internal/game/resource"
)

const (
	monstersDir = "../../../content/monsters"
	spellsDir   = "../../../content/spells"
)

func bundledBuilder(t *testing.T) *bestiary.Builder {
	t.Helper()
	monsters, err := bestiary.LoadMonsters(monstersDir)
	require.NoError(t, err)
	spells, err := bestiary.LoadSpells(spellsDir)
	require.NoError(t, err)
	b, err := bestiary.NewBuilder(monsters, spells)
	require.NoError(t, err)
	return b.WithSource(dice.NewSeededSource(1))
}

func TestLoadMonsters_Bundled(t *testing.T) {
	b := bundledBuilder(t)
	assert.Equal(t, []string{"Black Bear", "Goblin", "Mage"}, b.Names())
}

func TestLoadMonsterFromBytes_Valid(t *testing.T) {
	tmpl, err := bestiary.LoadMonsterFromBytes([]byte(`
name: Skeleton
stats:
  abilities: {strength: 10, dexterity: 14}
  saving_throws: {dexterity: 2}
  armor_class: 13
  hp: 2d8+4
actions:
  - kind: attack
    name: Shortsword
    attack_modifier: 4
    damage: 1d6+2
    target_count: 2
`))
	require.NoError(t, err)
	assert.Equal(t, "Skeleton", tmpl.Name)
	assert.Equal(t, "2d8+4", tmpl.Stats.HP.String())
	arr := tmpl.Stats.Abilities.Array()
	assert.Equal(t, 14, arr[ability.Dexterity])
	assert.Equal(t, 2, tmpl.Stats.SavingThrows.Array()[ability.Dexterity])
	require.Len(t, tmpl.Actions, 1)
	assert.Equal(t, 2, tmpl.Actions[0].TargetCount)
	assert.False(t, tmpl.Actions[0].Charges.IsLimited())
}

func TestLoadMonsterFromBytes_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown field": "name: X\nstats: {hp: 1d4}\nspeed: 30\n",
		"missing name":  "stats: {hp: 1d4}\n",
		"missing hp":    "name: X\n",
		"bad formula":   "name: X\nstats: {hp: 1dx}\n",
		"bad kind":      "name: X\nstats: {hp: 1d4}\nactions: [{kind: dance, name: Jig}]\n",
		"nested multi": `name: X
stats: {hp: 1d4}
actions:
  - kind: multi_attack
    name: Flurry
    attacks:
      - kind: multi_attack
        attacks: [{kind: attack, damage: 1d4}]
`,
		"empty multi":      "name: X\nstats: {hp: 1d4}\nactions: [{kind: multi_attack, name: M}]\n",
		"duplicate action": "name: X\nstats: {hp: 1d4}\nactions: [{kind: attack, name: A}, {kind: attack, name: A}]\n",
		"bad resource":     "name: X\nstats: {hp: 1d4}\nresources: [mana]\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := bestiary.LoadMonsterFromBytes([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestLoadMonsters_MissingDir(t *testing.T) {
	_, err := bestiary.LoadMonsters(t.TempDir() + "/absent")
	assert.Error(t, err)
}

func TestLoadSpellFromBytes_Rejects(t *testing.T) {
	cases := map[string]string{
		"level zero":    "name: S\nlevel: 0\ncomponents: [{component: {kind: damage, damage: 1d4}}]\n",
		"no components": "name: S\nlevel: 1\n",
		"bad component": "name: S\nlevel: 1\ncomponents: [{component: {kind: effect}}]\n",
		"unknown field": "name: S\nlevel: 1\nschool: evocation\ncomponents: [{component: {kind: damage, damage: 1d4}}]\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := bestiary.LoadSpellFromBytes([]byte(src))
			assert.Error(t, err)
		})
	}
}

func loadSpell(t *testing.T, name string) *bestiary.SpellTemplate {
	t.Helper()
	spells, err := bestiary.LoadSpells(spellsDir)
	require.NoError(t, err)
	for _, s := range spells {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("spell %q not bundled", name)
	return nil
}

func TestSpellBuild_FireballUpcast(t *testing.T) {
	fb := loadSpell(t, "Fireball")

	base := fb.Build(0, 0, 15)
	assert.Equal(t, []resource.Resource{resource.SpellActionToken, resource.SpellSlot(3)}, base.Resources)
	require.Len(t, base.Components, 1)
	c := base.Components[0]
	assert.Equal(t, 3, c.Targets())
	assert.Equal(t, 15, c.Condition.SaveDC)
	assert.Equal(t, "8d6", c.Success.Damage.String())
	assert.Equal(t, "8d6", c.Failure.Damage.String())

	up := fb.Build(2, 0, 15)
	assert.Equal(t, []resource.Resource{resource.SpellActionToken, resource.SpellSlot(5)}, up.Resources)
	assert.Equal(t, "10d6", up.Components[0].Success.Damage.String())
	assert.Equal(t, "10d6", up.Components[0].Failure.Damage.String())

	// The template itself is untouched.
	assert.Equal(t, "8d6", fb.Components[0].Component.Failure.Damage.String())
	assert.Equal(t, 0, fb.Components[0].Component.Condition.SaveDC)
}

func TestSpellBuild_UpcastComponentsAppendedPerLevel(t *testing.T) {
	mm := loadSpell(t, "Magic Missile")
	for upcast := 0; upcast <= 3; upcast++ {
		act := mm.Build(upcast, 0, 0)
		assert.Len(t, act.Components, 1+upcast)
		assert.Equal(t, resource.SpellSlot(1+upcast), act.Resources[len(act.Resources)-1])
	}
	// 3d4+3 averages 9, each upcast 1d4+1 averages 3.
	assert.InDelta(t, 9.0+2*3.0, mm.Build(2, 0, 0).AverageDamage(), 1e-9)
}

func TestSpellBuild_BindsNestedModifiers(t *testing.T) {
	ray := loadSpell(t, "Ray of Sickness")
	act := ray.Build(1, 6, 14)
	c := act.Components[0]
	assert.Equal(t, action.CondHit, c.Condition.Kind)
	assert.Equal(t, 6, c.Condition.AttackModifier)
	require.Len(t, c.Success.Next, 2)
	assert.Equal(t, "3d8", c.Success.Next[0].Damage.String())
	assert.Equal(t, 14, c.Success.Next[1].Condition.SaveDC)
	assert.Equal(t, ability.Constitution, c.Success.Next[1].Condition.Ability)
}

func TestSpellBuild_DeduplicatesResources(t *testing.T) {
	s := &bestiary.SpellTemplate{
		Name:      "Quickened Bolt",
		Level:     1,
		Resources: []resource.Resource{resource.BonusActionToken, resource.SpellActionToken},
		Components: []bestiary.SpellComponent{
			{Component: action.Damage(dice.MustParseFormula("1d10"))},
		},
	}
	require.NoError(t, s.Validate())
	act := s.Build(0, 0, 0)
	assert.Equal(t, []resource.Resource{
		resource.BonusActionToken, resource.SpellActionToken, resource.SpellSlot(1),
	}, act.Resources)
	assert.NoError(t, act.Validate())
}

func TestSpellBuild_NegativeUpcastPanics(t *testing.T) {
	mm := loadSpell(t, "Magic Missile")
	assert.Panics(t, func() { mm.Build(-1, 0, 0) })
}

func TestUpcastModifier_Scale(t *testing.T) {
	m := bestiary.UpcastModifier{TargetCount: 1, Damage: dice.MustParseFormula("1d6+1")}
	s := m.Scale(3)
	assert.Equal(t, 3, s.TargetCount)
	assert.Equal(t, "3d6+3", s.Damage.String())
}

func TestBuilder_Mage(t *testing.T) {
	b := bundledBuilder(t)
	mage, err := b.Build("Mage", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, mage.Team())
	assert.Equal(t, 3, mage.HighestSpellSlot())
	assert.Equal(t, 4, mage.Quantity(resource.SpellSlot(1)))
	assert.Equal(t, []string{
		"Dagger",
		"Fireball 3",
		"Magic Missile 1", "Magic Missile 2", "Magic Missile 3",
		"Ray of Sickness 1", "Ray of Sickness 2", "Ray of Sickness 3",
	}, mage.ActionNames())

	fb, ok := mage.Action("Fireball 3")
	require.True(t, ok)
	assert.Equal(t, 14, fb.Components[0].Condition.SaveDC)
	assert.Equal(t, 12, mage.ArmorClass())
	assert.Equal(t, 6, mage.SaveModifier(ability.Intelligence))
	assert.Equal(t, 17, mage.AbilityScore(ability.Intelligence))
}

func TestBuilder_AttackDefaults(t *testing.T) {
	b := bundledBuilder(t)
	gob, err := b.Build("Goblin", 0)
	require.NoError(t, err)

	sc, ok := gob.Action("Scimitar")
	require.True(t, ok)
	assert.Equal(t, []resource.Resource{resource.ActionToken}, sc.Resources)
	assert.False(t, sc.Charges.IsLimited())
	assert.Equal(t, 1, sc.Components[0].Targets())
	assert.Equal(t, 4, sc.Components[0].Condition.AttackModifier)

	bow, ok := gob.Action("Shortbow")
	require.True(t, ok)
	assert.Equal(t, 6, bow.Charges.Remaining())

	bear, err := b.Build("Black Bear", 1)
	require.NoError(t, err)
	multi, ok := bear.Action("Multiattack")
	require.True(t, ok)
	assert.Len(t, multi.Components, 2)
	assert.InDelta(t, 5.0+6.0, multi.AverageDamage(), 1e-9)
}

func TestBuilder_SpellWithoutSlotsAddsNothing(t *testing.T) {
	monster, err := bestiary.LoadMonsterFromBytes([]byte(`
name: Hedge Witch
stats: {hp: 10}
resources: [spell:2]
actions:
  - kind: spell
    name: Fireball
    spell_dc: 12
  - kind: spell
    name: Magic Missile
`))
	require.NoError(t, err)
	spells, err := bestiary.LoadSpells(spellsDir)
	require.NoError(t, err)
	b, err := bestiary.NewBuilder([]*bestiary.MonsterTemplate{monster}, spells)
	require.NoError(t, err)

	c, err := b.Build("Hedge Witch", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Magic Missile 1", "Magic Missile 2"}, c.ActionNames())
	assert.Equal(t, 10, c.HP())
}

func TestBuilder_Errors(t *testing.T) {
	b := bundledBuilder(t)
	_, err := b.Build("Dragon", 0)
	assert.True(t, errors.Is(err, bestiary.ErrUnknownMonster))

	monster, err := bestiary.LoadMonsterFromBytes([]byte(`
name: Cultist
stats: {hp: 2d8}
actions: [{kind: spell, name: Doom}]
`))
	require.NoError(t, err)
	_, err = bestiary.NewBuilder([]*bestiary.MonsterTemplate{monster}, nil)
	assert.True(t, errors.Is(err, bestiary.ErrUnknownSpell))

	gob, err := bestiary.LoadMonsterFromBytes([]byte("name: Goblin\nstats: {hp: 2d6}\n"))
	require.NoError(t, err)
	_, err = bestiary.NewBuilder([]*bestiary.MonsterTemplate{gob, gob}, nil)
	assert.Error(t, err)

	fb := loadSpell(t, "Fireball")
	_, err = bestiary.NewBuilder(nil, []*bestiary.SpellTemplate{fb, fb})
	assert.Error(t, err)
}

func TestBuilder_Roster(t *testing.T) {
	b := bundledBuilder(t)
	roster, err := b.Roster([]bestiary.Spawn{
		{Name: "Goblin", Team: 0, HP: 5},
		{Name: "Black Bear", Team: 1},
	})
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "Goblin", roster[0].Name())
	assert.Equal(t, 5, roster[0].HP())
	assert.Equal(t, 5, roster[0].MaxHP())
	assert.Equal(t, 1, roster[1].Team())

	_, err = b.Roster([]bestiary.Spawn{{Name: "Goblin"}, {Name: "Lich"}})
	assert.True(t, errors.Is(err, bestiary.ErrUnknownMonster))
}

func TestProperty_Builder_HPWithinFormulaRange(t *testing.T) {
	monsters, err := bestiary.LoadMonsters(monstersDir)
	require.NoError(t, err)
	spells, err := bestiary.LoadSpells(spellsDir)
	require.NoError(t, err)
	base, err := bestiary.NewBuilder(monsters, spells)
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64().Draw(rt, "seed")
		b := base.WithSource(dice.NewSeededSource(seed))
		bear, err := b.Build("Black Bear", 0)
		require.NoError(rt, err)
		assert.GreaterOrEqual(rt, bear.HP(), 3+6)
		assert.LessOrEqual(rt, bear.HP(), 24+6)
		assert.Equal(rt, bear.HP(), bear.MaxHP())
	})
}
