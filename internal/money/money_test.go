package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"zero":              {"0", "0"},
		"under a thousand":  {"990", "990"},
		"thousands":         {"1234", "1.234"},
		"millions":          {"1234567", "1.234.567"},
		"rounds decimals":   {"1499.5", "1.500"},
		"negative grouping": {"-25000", "-25.000"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			d := decimal.RequireFromString(tc.in)
			assert.Equal(t, tc.want, Format(d))
		})
	}
}

func TestComputeChange(t *testing.T) {
	tests := map[string]struct {
		paidRaw    string
		total      string
		wantAmount string
		wantSign   Sign
	}{
		"empty input owes full total": {"", "1000", "1000", Negative},
		"exact payment":               {"1000", "1000", "0", Zero},
		"change due":                  {"1500", "1000", "500", Positive},
		"underpaid":                   {"800", "1000", "200", Negative},
		"malformed parses as zero":    {"abc", "1000", "1000", Negative},
		"empty input zero total":      {"", "0", "0", Zero},
		"rounds before subtracting":   {"1000.4", "1000", "0", Zero},
		"whitespace only":             {"   ", "250", "250", Negative},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := ComputeChange(tc.paidRaw, decimal.RequireFromString(tc.total))
			assert.True(t, got.Amount.Equal(decimal.RequireFromString(tc.wantAmount)),
				"amount = %s, want %s", got.Amount, tc.wantAmount)
			assert.Equal(t, tc.wantSign, got.Sign)
		})
	}
}
