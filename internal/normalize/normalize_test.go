package normalize

import (
	"testing"

	"github.com/Veraticus/transco/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstLetterClassify(t *testing.T) {
	tests := []struct {
		input any
		want  model.AccountClass
		name  string
	}{
		{name: "upper BS", input: "BS", want: model.ClassBS},
		{name: "balance sheet", input: "Balance Sheet", want: model.ClassBS},
		{name: "slash variant", input: "B/S", want: model.ClassBS},
		{name: "leading punctuation", input: "  - bs", want: model.ClassBS},
		{name: "P&L", input: "P&L", want: model.ClassPL},
		{name: "profit and loss", input: "profit and loss", want: model.ClassPL},
		{name: "unknown passes through lower-cased", input: "Income", want: model.AccountClass("income")},
		{name: "empty", input: "", want: model.AccountClass("")},
		{name: "nil", input: nil, want: model.AccountClass("")},
		{name: "non-text is stringified", input: 42, want: model.AccountClass("42")},
		{name: "digits before letter", input: "1 bs", want: model.ClassBS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FirstLetter{}.Classify(tt.input))
		})
	}
}

func TestClassifiersAreIdempotent(t *testing.T) {
	inputs := []string{"BS", "bs", "Balance Sheet", "P&L", "pl", "Produits", "Income", "", "42", "  Bilan ", "compte de résultat", "xyz"}

	for _, classifier := range []Classifier{FirstLetter{}, Strict{}} {
		for _, input := range inputs {
			once := classifier.Classify(input)
			twice := classifier.Classify(once)
			assert.Equal(t, once, twice, "classifier %T input %q", classifier, input)
		}
	}
}

func TestStrictClassify(t *testing.T) {
	tests := []struct {
		input string
		want  model.AccountClass
	}{
		{input: "BS", want: model.ClassBS},
		{input: "Balance  Sheet", want: model.ClassBS},
		{input: "bilan", want: model.ClassBS},
		{input: "P&L", want: model.ClassPL},
		{input: "Profit and Loss", want: model.ClassPL},
		{input: "Compte de résultat", want: model.ClassPL},
		{input: "bank", want: model.AccountClass("bank")},
		{input: "provisions", want: model.AccountClass("provisions")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Strict{}.Classify(tt.input))
		})
	}
}

func TestNewClassifier(t *testing.T) {
	c, err := NewClassifier("")
	require.NoError(t, err)
	assert.IsType(t, FirstLetter{}, c)

	c, err = NewClassifier("strict")
	require.NoError(t, err)
	assert.IsType(t, Strict{}, c)

	_, err = NewClassifier("fuzzy")
	require.Error(t, err)
}

func TestNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "42", want: "42"},
		{input: "42.0", want: "42"},
		{input: "**42 ", want: "42"},
		{input: "abc", want: "abc"},
		{input: " 401000 ", want: "401000"},
		{input: "42.50", want: "42.5"},
		{input: "**512**", want: "512"},
		{input: "1e3", want: "1000"},
		{input: "NaN", want: "NaN"},
		{input: "Inf", want: "Inf"},
		{input: "", want: ""},
		{input: "  ", want: ""},
		{input: "401-A", want: "401-A"},
		{input: "12345678901234567", want: "12345678901234567"},
		{input: "12345678901234568", want: "12345678901234568"},
		{input: "401000123456789012", want: "401000123456789012"},
		{input: "401000123456789012.0", want: "401000123456789012"},
		{input: "0.1", want: "0.1"},
		{input: "1e99", want: "1e99"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Number(tt.input))
		})
	}
}

func TestNumberKeepsLongAccountsDistinct(t *testing.T) {
	assert.NotEqual(t, Number("12345678901234567"), Number("12345678901234568"))
}

func TestNumberIsIdempotent(t *testing.T) {
	for _, input := range []string{"42", "42.0", "**42 ", "abc", "0.25", "1e21", "1e99", "401000123456789012"} {
		once := Number(input)
		assert.Equal(t, once, Number(once), "input %q", input)
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "Cash at bank", Text("  **Cash** at bank "))
	assert.Equal(t, "plain", StripBold("plain"))
}
