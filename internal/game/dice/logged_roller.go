package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged dice rolling.
// Every roll is logged at debug level with expression, dice values, modifier, and total.
//
// Roller itself satisfies Source, so it can be handed to an encounter in
// place of the raw source; individual draws made through Intn are not logged.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Intn delegates to the wrapped Source.
func (r *Roller) Intn(n int) int {
	return r.src.Intn(n)
}

// Roll evaluates f and logs the result at debug level.
//
// Postcondition: result logged; the returned RollResult is identical to Roll(f, src).
func (r *Roller) Roll(f Formula) RollResult {
	result := Roll(f, r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}

// RollExpr parses expr and rolls it, logging the result.
//
// Precondition: expr must be a valid formula string.
// Postcondition: Returns a RollResult or a parse error.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	f, err := ParseFormula(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(f), nil
}
