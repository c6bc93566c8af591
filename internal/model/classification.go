// Package model defines the core domain models used throughout the application.
package model

// AccountClass identifies which half of the chart an account belongs to.
// Values other than ClassBS and ClassPL carry the lower-cased source text
// of an indicator that could not be classified.
type AccountClass string

// Account class constants.
const (
	ClassBS AccountClass = "BS"
	ClassPL AccountClass = "P&L"
)

// Classes lists the known account classes in processing order.
var Classes = []AccountClass{ClassBS, ClassPL}

// Known reports whether the class is BS or P&L.
func (c AccountClass) Known() bool {
	return c == ClassBS || c == ClassPL
}

// Label returns a human readable name for the class.
func (c AccountClass) Label() string {
	switch c {
	case ClassBS:
		return "Balance Sheet"
	case ClassPL:
		return "Profit & Loss"
	default:
		return string(c)
	}
}

// String implements fmt.Stringer.
func (c AccountClass) String() string {
	return string(c)
}
