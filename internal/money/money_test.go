package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"nfe/internal/money"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"10,50", "10.5", true},
		{" 5,00 ", "5", true},
		{"1.234,56", "1234.56", true},
		{"10.50", "10.5", true},
		{"120", "120", true},
		{"-3,25", "-3.25", true},
		{"abc", "0", false},
		{"", "0", false},
		{"1,2,3", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := money.Parse(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestSum_SkipsUnparseable(t *testing.T) {
	total, skipped := money.Sum([]string{"10,50", "abc", "5,00"})
	assert.True(t, decimal.RequireFromString("15.50").Equal(total), "got %s", total)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, "15.50", money.Format(total))
}

func TestSum_Empty(t *testing.T) {
	total, skipped := money.Sum(nil)
	assert.True(t, total.IsZero())
	assert.Zero(t, skipped)
}
