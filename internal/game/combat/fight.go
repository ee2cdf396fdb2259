// Package combat implements the encounter scheduler: it owns a roster of
// creatures, drives them through rounds and turns, resolves targeting, and
// detects the winning team.
package combat

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/battleforge/internal/game/action"
	"github.com/cory-johannsen/battleforge/internal/game/condition"
	"github.com/cory-johannsen/battleforge/internal/game/creature"
	"github.com/cory-johannsen/battleforge/internal/game/dice"
)

// ErrRoundLimit is returned by Run when the configured round limit is reached
// while more than one team is still standing.
var ErrRoundLimit = errors.New("round limit reached")

// RoundEvent records one resolved action.
type RoundEvent struct {
	Round     int
	ActorID   int
	ActorName string
	Action    string
	// Targets holds the roster ids selected by each top-level component, in
	// component order.
	Targets [][]int
}

// Survivor describes a creature still alive when the fight ends.
type Survivor struct {
	ID   int
	Name string
	Team int
	HP   int
}

// Result summarises a finished or interrupted fight.
type Result struct {
	// Winner is meaningful only when HasWinner is true.
	Winner    int
	HasWinner bool
	Rounds    int
	Survivors []Survivor
}

// Option configures a Fight.
type Option func(*Fight)

// WithLogger sets the logger used for round, action and outcome messages.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fight) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithConditions enables Effect components and condition modifiers using the
// definitions in reg.
func WithConditions(reg *condition.Registry) Option {
	return func(f *Fight) { f.conditions = reg }
}

// WithMaxRounds bounds the number of rounds Run and Play will advance.
// n <= 0 means unbounded.
func WithMaxRounds(n int) Option {
	return func(f *Fight) { f.maxRounds = n }
}

// Fight owns a roster for the duration of one encounter. It is not safe for
// concurrent use.
type Fight struct {
	roster     []*creature.Creature
	active     []*condition.ActiveSet
	src        dice.Source
	logger     *zap.Logger
	conditions *condition.Registry
	maxRounds  int
	round      int
}

// New creates a fight over roster, assigning ids 0..n-1 in roster order.
// Roster order is also the fixed turn order of every round.
//
// Precondition: src must be non-nil; roster must not contain nil entries.
// Postcondition: roster[i].ID() == i for every i.
func New(roster []*creature.Creature, src dice.Source, opts ...Option) *Fight {
	if src == nil {
		panic("combat: New requires a non-nil dice.Source")
	}
	f := &Fight{
		roster: append([]*creature.Creature(nil), roster...),
		active: make([]*condition.ActiveSet, len(roster)),
		src:    src,
		logger: zap.NewNop(),
	}
	for i, c := range f.roster {
		if c == nil {
			panic(fmt.Sprintf("combat: roster entry %d is nil", i))
		}
		c.SetID(i)
		f.active[i] = condition.NewActiveSet()
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Round returns the number of rounds advanced so far.
func (f *Fight) Round() int { return f.round }

// Roster returns the creatures in roster order.
func (f *Fight) Roster() []*creature.Creature {
	return append([]*creature.Creature(nil), f.roster...)
}

// Conditions returns the conditions currently active on creature id.
//
// Precondition: 0 <= id < len(Roster()).
func (f *Fight) Conditions(id int) []*condition.ActiveCondition {
	return f.active[id].All()
}

// TeamsAlive returns the sorted ids of teams with at least one living member.
func (f *Fight) TeamsAlive() []int {
	seen := make(map[int]bool)
	var teams []int
	for _, c := range f.roster {
		if c.IsAlive() && !seen[c.Team()] {
			seen[c.Team()] = true
			teams = append(teams, c.Team())
		}
	}
	sort.Ints(teams)
	return teams
}

// targets selects the first n living creatures of other teams in roster order.
func (f *Fight) targets(actor *creature.Creature, n int) []*creature.Creature {
	var out []*creature.Creature
	for _, c := range f.roster {
		if len(out) >= n {
			break
		}
		if c.Team() != actor.Team() && c.IsAlive() {
			out = append(out, c)
		}
	}
	return out
}

// AdvanceRound plays one full round.
//
// At round start every creature refills its per-turn resources, in roster
// order. Then each creature, in roster order, takes actions while it is alive
// and has a usable action, and the timed conditions it holds tick when its
// turn ends. Each action is pre-rolled once; each top-level component selects
// its targets before any of its applications and is then applied to every
// selected target with the same pre-rolled values.
//
// Postcondition: Round() is incremented by 1; returns the resolved actions in
// order.
func (f *Fight) AdvanceRound() []RoundEvent {
	f.round++
	f.logger.Debug("round start", zap.Int("round", f.round))

	for _, c := range f.roster {
		c.NewTurn()
	}

	res := &action.Resolution{Src: f.src, Mods: modifiers{f}, Logger: f.logger}
	var events []RoundEvent
	for _, actor := range f.roster {
		for actor.IsAlive() {
			name, act, ok := actor.TakeAction()
			if !ok {
				break
			}
			act.Prepare(f.src)
			f.logger.Debug("action",
				zap.Int("round", f.round),
				zap.String("actor", actor.Name()),
				zap.String("action", name),
			)
			ev := RoundEvent{Round: f.round, ActorID: actor.ID(), ActorName: actor.Name(), Action: name}
			for i := range act.Components {
				comp := &act.Components[i]
				selected := f.targets(actor, comp.Targets())
				ids := make([]int, len(selected))
				for j, t := range selected {
					ids[j] = t.ID()
					comp.Apply(res, actor, t)
				}
				ev.Targets = append(ev.Targets, ids)
			}
			events = append(events, ev)
		}
		f.endTurn(actor)
	}
	return events
}

// endTurn ticks the conditions on actor, so a condition lasting N rounds
// covers N of its holder's turns whatever the caster's place in the order.
func (f *Fight) endTurn(actor *creature.Creature) {
	for _, id := range f.active[actor.ID()].Tick() {
		f.logger.Debug("condition expired",
			zap.String("creature", actor.Name()),
			zap.String("condition", id),
		)
	}
}

// Play runs rounds until at most one team is left standing and returns the
// surviving team. ok is false when no team survives or when the round limit
// set by WithMaxRounds is reached first.
//
// Precondition: every team can eventually damage another, or a round limit
// is set.
func (f *Fight) Play() (team int, ok bool) {
	res, err := f.Run(context.Background())
	if err != nil {
		return 0, false
	}
	return res.Winner, res.HasWinner
}

// Run is Play with cancellation between rounds and a detailed Result.
//
// Postcondition: Returns a nil error iff at most one team is alive; the
// Result is populated in every case. Errors wrap ErrRoundLimit or ctx.Err().
func (f *Fight) Run(ctx context.Context) (Result, error) {
	for len(f.TeamsAlive()) > 1 {
		if err := ctx.Err(); err != nil {
			return f.result(), fmt.Errorf("fight interrupted after round %d: %w", f.round, err)
		}
		if f.maxRounds > 0 && f.round >= f.maxRounds {
			return f.result(), fmt.Errorf("fight stopped after %d rounds: %w", f.round, ErrRoundLimit)
		}
		f.AdvanceRound()
	}
	res := f.result()
	if res.HasWinner {
		f.logger.Info("fight over", zap.Int("winner", res.Winner), zap.Int("rounds", res.Rounds))
	} else {
		f.logger.Info("fight over with no survivors", zap.Int("rounds", res.Rounds))
	}
	return res, nil
}

func (f *Fight) result() Result {
	res := Result{Rounds: f.round}
	if teams := f.TeamsAlive(); len(teams) == 1 {
		res.Winner, res.HasWinner = teams[0], true
	}
	for _, c := range f.roster {
		if c.IsAlive() {
			res.Survivors = append(res.Survivors, Survivor{ID: c.ID(), Name: c.Name(), Team: c.Team(), HP: c.HP()})
		}
	}
	return res
}
