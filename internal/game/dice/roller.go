package dice

// Roll evaluates f using src and returns the audit trail.
//
// Precondition: src must be non-nil.
// Postcondition: len(result.Dice) == f.Dice.Count;
// result.Total() == sum(result.Dice) + f.Fixed.
func Roll(f Formula, src Source) RollResult {
	rolled := make([]int, f.Dice.Count)
	for i := range rolled {
		rolled[i] = src.Intn(f.Dice.Faces) + 1
	}
	return RollResult{
		Expression: f.String(),
		Dice:       rolled,
		Modifier:   f.Fixed,
	}
}

// RollExpr parses expr and rolls it using src in a single call.
//
// Precondition: expr must be a valid formula string; src must be non-nil.
// Postcondition: Returns a RollResult or a parse error.
func RollExpr(expr string, src Source) (RollResult, error) {
	f, err := ParseFormula(expr)
	if err != nil {
		return RollResult{}, err
	}
	return Roll(f, src), nil
}
