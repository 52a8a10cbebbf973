package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain integer", input: "10", want: "10"},
		{name: "decimal point", input: "15.50", want: "15.50"},
		{name: "decimal comma", input: "15,50", want: "15.50"},
		{name: "leading fraction", input: ".5", want: "0.5"},
		{name: "us grouping", input: "1,234.56", want: "1234.56"},
		{name: "european grouping", input: "1.234,56", want: "1234.56"},
		{name: "us thousands only", input: "1,234,567", want: "1234567"},
		{name: "european thousands only", input: "1.234.567", want: "1234567"},
		{name: "single comma is decimal", input: "1,234", want: "1.234"},
		{name: "space grouping", input: "1 234,56", want: "1234.56"},
		{name: "non-breaking space grouping", input: "1 234,56", want: "1234.56"},
		{name: "apostrophe grouping", input: "1'234.50", want: "1234.50"},
		{name: "euro symbol prefix", input: "€ 27,50", want: "27.50"},
		{name: "dollar symbol", input: "$1,234.56", want: "1234.56"},
		{name: "currency code prefix", input: "EUR 27.50", want: "27.50"},
		{name: "currency code suffix", input: "27,50 EUR", want: "27.50"},
		{name: "swiss franc", input: "CHF 1'234.50", want: "1234.50"},
		{name: "abbreviated franc", input: "Fr. 12.50", want: "12.50"},
		{name: "quantity unit suffix", input: "10 pcs", want: "10"},
		{name: "german dash cents", input: "12,-", want: "12"},
		{name: "explicit plus", input: "+3", want: "3"},
		{name: "negative", input: "-5,25", want: "-5.25"},
		{name: "surrounding whitespace", input: "  42  ", want: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimal(tt.input)
			require.NoError(t, err)
			require.True(t, got.Valid)
			want := decimal.RequireFromString(tt.want)
			assert.True(t, want.Equal(got.Decimal), "want %s, got %s", want, got.Decimal)
		})
	}
}

func TestParseDecimal_Absent(t *testing.T) {
	for _, input := range []string{"", "   ", "-", "—", "--"} {
		got, err := ParseDecimal(input)
		require.NoError(t, err, "input %q", input)
		assert.False(t, got.Valid, "input %q should be absent", input)
	}
}

func TestParseDecimal_ZeroIsNotAbsent(t *testing.T) {
	got, err := ParseDecimal("0")
	require.NoError(t, err)
	assert.True(t, got.Valid)
	assert.True(t, got.Decimal.IsZero())
}

func TestParseDecimal_Unparseable(t *testing.T) {
	for _, input := range []string{"abc", "12.34.56", "1.2.3", "12abc", "1,23,4.5", "ten euros", "12."} {
		_, err := ParseDecimal(input)
		var numErr *UnparseableNumberError
		require.ErrorAs(t, err, &numErr, "input %q", input)
		assert.Equal(t, input, numErr.Value)
	}
}
