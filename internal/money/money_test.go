package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatKES(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "KES 0"},
		{"1500", "KES 1,500"},
		{"1000000", "KES 1,000,000"},
		{"2499.6", "KES 2,500"},
		{"-12345", "-KES 12,345"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatKES(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "72%", FormatPercent(72))
	assert.Equal(t, "72.5%", FormatPercent(72.5))
	assert.Equal(t, "18.25%", FormatPercent(18.254))
	assert.Equal(t, "0%", FormatPercent(0))
}
