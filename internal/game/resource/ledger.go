package resource

// Ledger maps each owned resource to its remaining quantity.
//
// Invariant: every quantity is >= 0 when only mutated through Refill and
// Consume calls gated by Has.
type Ledger map[Resource]int

// NewLedger builds the starting ledger of a creature: one entry per listed
// resource (duplicates accumulate), plus one Action, one BonusAction and one
// SpellAction.
//
// Postcondition: Quantity(ActionToken) >= 1, Quantity(BonusActionToken) >= 1,
// Quantity(SpellActionToken) >= 1.
func NewLedger(extra []Resource) Ledger {
	l := make(Ledger, len(extra)+3)
	for _, r := range extra {
		l[r]++
	}
	l[ActionToken]++
	l[BonusActionToken]++
	l[SpellActionToken]++
	return l
}

// Refill resets every per-turn entry the ledger already holds to 1.
// Entries that are absent are not created; per-encounter entries are untouched.
//
// Postcondition: every present per-turn entry == 1.
func (l Ledger) Refill() {
	for r := range l {
		if r.Kind.PerTurn() {
			l[r] = 1
		}
	}
}

// Quantity returns the remaining quantity of r, 0 when absent.
func (l Ledger) Quantity(r Resource) int {
	return l[r]
}

// Has reports whether r is present with a quantity > 0.
// A missing entry is unavailable, not an error.
func (l Ledger) Has(r Resource) bool {
	qty, ok := l[r]
	return ok && qty > 0
}

// Consume decrements r by one.
//
// Precondition: Has(r) is true. Panics otherwise: spending a resource that is
// not available is a logic error in the caller.
// Postcondition: Quantity(r) is one less than before and >= 0.
func (l Ledger) Consume(r Resource) {
	if !l.Has(r) {
		panic("resource: Consume called for unavailable resource " + r.String())
	}
	l[r]--
}

// HighestSpellSlot returns the highest spell-slot level present in the
// ledger, or 0 when the ledger holds no spell slots.
func (l Ledger) HighestSpellSlot() int {
	highest := 0
	for r := range l {
		if r.Kind == Spell && r.Level > highest {
			highest = r.Level
		}
	}
	return highest
}

// Clone returns an independent copy of l.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for r, q := range l {
		out[r] = q
	}
	return out
}
