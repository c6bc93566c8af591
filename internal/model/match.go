package model

import (
	"fmt"
	"strings"
)

// MatchResult is one mapping returned by the LLM.
type MatchResult struct {
	AccountNumber string
	Label         string
	COACode       string
	COALabel      string
	Justification string
}

// MatchField describes one field of a MatchResult as it appears on the wire.
// Key is the JSON property in schema mode, Label the line prefix in free-text mode.
type MatchField struct {
	Key         string
	Label       string
	Description string
}

// Field keys shared by the prompt builder and the response parsers.
const (
	FieldAccountNumber = "account_number"
	FieldLabel         = "label"
	FieldCOACode       = "coa_account"
	FieldCOALabel      = "coa_label"
	FieldJustification = "justification"
)

// MatchFields is the ordered field table of a MatchResult. The request
// builder renders its format instructions from this table and both response
// parsers validate against it, so the two sides cannot drift apart.
var MatchFields = []MatchField{
	{Key: FieldAccountNumber, Label: "Account Number", Description: "the foreign account number exactly as provided"},
	{Key: FieldLabel, Label: "Label", Description: "the foreign account label exactly as provided"},
	{Key: FieldCOACode, Label: "COA Code", Description: "the code of the matching chart of accounts entry"},
	{Key: FieldCOALabel, Label: "COA Label", Description: "the name of the matching chart of accounts entry"},
	{Key: FieldJustification, Label: "Justification", Description: "why this entry is the most appropriate match"},
}

// Set assigns a field value by key. Unknown keys are ignored.
func (m *MatchResult) Set(key, value string) {
	switch key {
	case FieldAccountNumber:
		m.AccountNumber = value
	case FieldLabel:
		m.Label = value
	case FieldCOACode:
		m.COACode = value
	case FieldCOALabel:
		m.COALabel = value
	case FieldJustification:
		m.Justification = value
	}
}

// ResolvedRow is a reconciled account: the input record joined to its match.
type ResolvedRow struct {
	Record AccountRecord
	Match  MatchResult
}

// TokenUsage counts tokens exchanged with the LLM service.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
}

// Add accumulates another usage value.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
}

// Total returns prompt plus completion tokens.
func (u TokenUsage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// ResponseMode selects the answer format requested from the LLM.
type ResponseMode string

// Response modes.
const (
	ModeSchema   ResponseMode = "schema"
	ModeFreeText ResponseMode = "freetext"
)

// ParseResponseMode validates a configured response mode.
func ParseResponseMode(s string) (ResponseMode, error) {
	switch ResponseMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSchema, "":
		return ModeSchema, nil
	case ModeFreeText, "free-text", "free_text", "text":
		return ModeFreeText, nil
	default:
		return "", fmt.Errorf("unknown response mode: %s", s)
	}
}
