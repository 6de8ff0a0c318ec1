// Package money handles register-display amounts: integer Chilean pesos,
// grouped with dots, and the tri-state change computation shown next to the
// tendered-amount field.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Sign classifies a change amount for display: the operator still owes money
// (Negative), paid exactly (Zero), or is due change (Positive).
type Sign int

const (
	Negative Sign = iota - 1
	Zero
	Positive
)

// Change is the result of comparing what the customer paid against the cart
// total. Amount is always absolute; Sign carries the direction.
type Change struct {
	Amount decimal.Decimal
	Sign   Sign
}

// Format renders an amount as integer pesos with dot thousand separators,
// e.g. 1234567 -> "1.234.567". No currency symbol, no decimals.
func Format(d decimal.Decimal) string {
	v := d.Round(0)
	neg := v.IsNegative()
	digits := v.Abs().String()

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// ComputeChange compares a raw tendered-amount input against the cart total.
// An empty or malformed input counts as having paid 0, so the result is the
// full total still owed. Both sides are rounded to whole pesos before the
// subtraction.
func ComputeChange(paidRaw string, total decimal.Decimal) Change {
	paid := parseAmount(paidRaw)
	diff := paid.Round(0).Sub(total.Round(0))

	c := Change{Amount: diff.Abs()}
	switch {
	case diff.IsNegative():
		c.Sign = Negative
	case diff.IsPositive():
		c.Sign = Positive
	default:
		c.Sign = Zero
	}
	return c
}

func parseAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
