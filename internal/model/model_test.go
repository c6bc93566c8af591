package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountClass(t *testing.T) {
	tests := []struct {
		class AccountClass
		label string
		known bool
	}{
		{class: ClassBS, label: "Balance Sheet", known: true},
		{class: ClassPL, label: "Profit & Loss", known: true},
		{class: "equity", label: "equity", known: false},
		{class: "", label: "", known: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			assert.Equal(t, tt.known, tt.class.Known())
			assert.Equal(t, tt.label, tt.class.Label())
			assert.Equal(t, string(tt.class), tt.class.String())
		})
	}

	assert.Equal(t, []AccountClass{ClassBS, ClassPL}, Classes)
}

func TestLines(t *testing.T) {
	rec := AccountRecord{Number: "401000", Label: "Suppliers, domestic", Class: ClassBS}
	assert.Equal(t, "401000,Suppliers, domestic,BS", rec.Line())

	entry := ReferenceEntry{Code: "607000", Name: "Purchases of goods", Class: ClassPL}
	assert.Equal(t, "607000 - Purchases of goods - P&L", entry.Line())
}

func TestMatchResultSet(t *testing.T) {
	var m MatchResult
	for _, f := range MatchFields {
		m.Set(f.Key, f.Label)
	}
	m.Set("unknown", "ignored")

	assert.Equal(t, MatchResult{
		AccountNumber: "Account Number",
		Label:         "Label",
		COACode:       "COA Code",
		COALabel:      "COA Label",
		Justification: "Justification",
	}, m)
}

func TestMatchFieldsAreDistinct(t *testing.T) {
	keys := make(map[string]bool)
	labels := make(map[string]bool)
	for _, f := range MatchFields {
		assert.False(t, keys[f.Key], "duplicate key %s", f.Key)
		assert.False(t, labels[f.Label], "duplicate label %s", f.Label)
		assert.NotEmpty(t, f.Description)
		keys[f.Key] = true
		labels[f.Label] = true
	}
	assert.Len(t, keys, 5)
}

func TestTokenUsage(t *testing.T) {
	u := TokenUsage{PromptTokens: 10, CompletionTokens: 5}
	u.Add(TokenUsage{PromptTokens: 3, CompletionTokens: 2})

	assert.Equal(t, TokenUsage{PromptTokens: 13, CompletionTokens: 7}, u)
	assert.Equal(t, 20, u.Total())
}

func TestParseResponseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    ResponseMode
		wantErr bool
	}{
		{input: "", want: ModeSchema},
		{input: "schema", want: ModeSchema},
		{input: " Schema ", want: ModeSchema},
		{input: "freetext", want: ModeFreeText},
		{input: "free-text", want: ModeFreeText},
		{input: "TEXT", want: ModeFreeText},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseResponseMode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
