package model

import "strings"

// AccountRecord is one ledger line to be mapped onto the chart of accounts.
type AccountRecord struct {
	Number   string // Normalized account number, the identity key
	Label    string
	Class    AccountClass
	Position int // Zero-based order in the source file
}

// Line renders the record the way it is sent to the LLM.
func (a AccountRecord) Line() string {
	return a.Number + "," + a.Label + "," + string(a.Class)
}

// ReferenceEntry is a single line of the chart of accounts.
type ReferenceEntry struct {
	Code  string
	Name  string
	Class AccountClass
}

// Line renders the entry as "<code> - <name> - <class>".
func (r ReferenceEntry) Line() string {
	return strings.Join([]string{r.Code, r.Name, string(r.Class)}, " - ")
}
