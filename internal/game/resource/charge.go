package resource

import (
	"fmt"
	"strconv"
	"strings"
)

// Charge is the per-encounter use limit of an action, orthogonal to the
// turn ledger. The zero value is Infinite.
type Charge struct {
	limited   bool
	remaining int
}

// Infinite returns a charge that never runs out.
func Infinite() Charge {
	return Charge{}
}

// Limited returns a charge usable n times.
//
// Precondition: n >= 0.
func Limited(n int) Charge {
	if n < 0 {
		n = 0
	}
	return Charge{limited: true, remaining: n}
}

// IsLimited reports whether the charge counts down.
func (c Charge) IsLimited() bool { return c.limited }

// Remaining returns the remaining uses of a limited charge, -1 for Infinite.
func (c Charge) Remaining() int {
	if !c.limited {
		return -1
	}
	return c.remaining
}

// HasCharges reports whether the action may still be used this encounter.
func (c Charge) HasCharges() bool {
	return !c.limited || c.remaining > 0
}

// Use spends one charge. It is a no-op for Infinite and never drops below 0.
func (c *Charge) Use() {
	if c.limited && c.remaining > 0 {
		c.remaining--
	}
}

// String returns "infinite" or the remaining count.
func (c Charge) String() string {
	if !c.limited {
		return "infinite"
	}
	return strconv.Itoa(c.remaining)
}

// MarshalText implements encoding.TextMarshaler.
func (c Charge) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts "infinite" or a non-negative integer.
func (c *Charge) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	if s == "" || s == "infinite" {
		*c = Infinite()
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("resource: invalid charge %q: %w", string(text), err)
	}
	if n < 0 {
		return fmt.Errorf("resource: charge %q must be >= 0", string(text))
	}
	*c = Limited(n)
	return nil
}
