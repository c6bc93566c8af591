package engine

import (
	"github.com/Veraticus/transco/internal/model"
)

// State is a step of the reconciliation loop of one account class.
type State int

// Reconciliation states. Done and GapReported are terminal.
const (
	StateInit State = iota
	StateBatching
	StateAwaitingResponse
	StateMerging
	StateDone
	StateGapReported
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateBatching:
		return "BATCHING"
	case StateAwaitingResponse:
		return "AWAITING_RESPONSE"
	case StateMerging:
		return "MERGING"
	case StateDone:
		return "DONE"
	case StateGapReported:
		return "GAP_REPORTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateGapReported
}

// RunState is the mutable state of one reconciliation. It is owned by a
// single Reconcile call and never shared.
type RunState struct {
	Resolved   map[string]model.MatchResult // by normalized account number
	Class      model.AccountClass
	Records    []model.AccountRecord
	Usage      model.TokenUsage
	State      State
	RetryCount int
	Rounds     int
	Noise      int
	Dropped    int
	Failed     int
}

func newRunState(class model.AccountClass, records []model.AccountRecord) *RunState {
	return &RunState{
		Class:    class,
		Records:  records,
		Resolved: make(map[string]model.MatchResult, len(records)),
		State:    StateInit,
	}
}

// Pending returns the records not yet resolved, in input order.
func (s *RunState) Pending() []model.AccountRecord {
	pending := make([]model.AccountRecord, 0, len(s.Records)-len(s.Resolved))
	for _, r := range s.Records {
		if _, ok := s.Resolved[r.Number]; !ok {
			pending = append(pending, r)
		}
	}
	return pending
}

// merge joins results to pending records by account number and returns how
// many records were newly resolved. Results matching no pending record are
// counted as noise.
func (s *RunState) merge(results []model.MatchResult, known map[string]int) int {
	resolved := 0
	for _, result := range results {
		n, ok := known[result.AccountNumber]
		if !ok {
			s.Noise++
			continue
		}
		if _, done := s.Resolved[result.AccountNumber]; done {
			s.Noise++
			continue
		}
		s.Resolved[result.AccountNumber] = result
		resolved += n
	}
	return resolved
}

func (s *RunState) outcome() *Outcome {
	out := &Outcome{
		Class:      s.Class,
		State:      s.State,
		Total:      len(s.Records),
		RetryCount: s.RetryCount,
		Rounds:     s.Rounds,
		Noise:      s.Noise,
		Dropped:    s.Dropped,
		Failed:     s.Failed,
		Usage:      s.Usage,
	}
	for _, r := range s.Records {
		if match, ok := s.Resolved[r.Number]; ok {
			out.Rows = append(out.Rows, model.ResolvedRow{Record: r, Match: match})
		} else {
			out.Unresolved = append(out.Unresolved, r)
		}
	}
	return out
}

// Outcome is the result of reconciling one account class.
type Outcome struct {
	Class      model.AccountClass
	Rows       []model.ResolvedRow   // resolved records in input order
	Unresolved []model.AccountRecord // the shortfall, in input order
	Usage      model.TokenUsage
	State      State
	Total      int
	RetryCount int
	Rounds     int
	Noise      int // results that matched no pending account
	Dropped    int // answer segments discarded by the parser
	Failed     int // batches that produced no parsable answer
}

// Resolved returns the number of resolved records.
func (o *Outcome) Resolved() int {
	return len(o.Rows)
}

// Complete reports whether every record was resolved.
func (o *Outcome) Complete() bool {
	return len(o.Unresolved) == 0
}
