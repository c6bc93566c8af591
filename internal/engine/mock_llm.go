package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/Veraticus/transco/internal/batch"
	"github.com/Veraticus/transco/internal/llm"
	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/normalize"
)

// MockClient is an offline llm.Client. It reads the account lines out of
// each prompt and maps every account onto the first reference entry it
// finds, answering in the configured response mode. Hooks let tests drop
// accounts or fail whole calls.
type MockClient struct {
	// Omit reports whether account number should be left out of the answer
	// to the call-th request (1-based).
	Omit func(call int, number string) bool
	// Fail makes the call-th request fail when it returns an error.
	Fail  func(call int) error
	calls []MockLLMCall
	mode  model.ResponseMode
	mu    sync.Mutex
}

// MockLLMCall records one request seen by the mock.
type MockLLMCall struct {
	Error    error
	Prompt   string
	Accounts []string
}

// NewMockClient creates a mock answering in mode.
func NewMockClient(mode model.ResponseMode) *MockClient {
	return &MockClient{mode: mode}
}

// Submit implements llm.Client.
func (m *MockClient) Submit(ctx context.Context, prompt string) (llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return llm.Response{}, &llm.FatalError{Err: err}
	}

	m.mu.Lock()
	call := len(m.calls) + 1
	accounts := promptAccounts(prompt)
	numbers := make([]string, len(accounts))
	for i, a := range accounts {
		numbers[i] = a[0]
	}
	record := MockLLMCall{Prompt: prompt, Accounts: numbers}
	if m.Fail != nil {
		record.Error = m.Fail(call)
	}
	m.calls = append(m.calls, record)
	omit := m.Omit
	m.mu.Unlock()

	if record.Error != nil {
		return llm.Response{}, &llm.FatalError{Err: record.Error}
	}

	code, name := promptReference(prompt)
	results := make([]model.MatchResult, 0, len(accounts))
	for _, a := range accounts {
		if omit != nil && omit(call, a[0]) {
			continue
		}
		results = append(results, model.MatchResult{
			AccountNumber: a[0],
			Label:         a[1],
			COACode:       code,
			COALabel:      name,
			Justification: "closest entry of the chart of accounts",
		})
	}

	content, err := m.render(results)
	if err != nil {
		return llm.Response{}, &llm.FatalError{Err: err}
	}

	return llm.Response{Content: content, Model: "mock"}, nil
}

// GetCalls returns a copy of every request seen so far.
func (m *MockClient) GetCalls() []MockLLMCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]MockLLMCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// ClearCalls forgets recorded requests and restarts call numbering.
func (m *MockClient) ClearCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *MockClient) render(results []model.MatchResult) (string, error) {
	if m.mode == model.ModeFreeText {
		var b strings.Builder
		for i, r := range results {
			if i > 0 {
				b.WriteString("---\n")
			}
			values := []string{r.AccountNumber, r.Label, r.COACode, r.COALabel, r.Justification}
			for j, f := range model.MatchFields {
				fmt.Fprintf(&b, "%s: %s\n", f.Label, values[j])
			}
		}
		return b.String(), nil
	}

	items := make([]map[string]string, len(results))
	for i, r := range results {
		items[i] = map[string]string{
			model.FieldAccountNumber: r.AccountNumber,
			model.FieldLabel:         r.Label,
			model.FieldCOACode:       r.COACode,
			model.FieldCOALabel:      r.COALabel,
			model.FieldJustification: r.Justification,
		}
	}
	data, err := json.Marshal(map[string]any{"final_answer": items})
	if err != nil {
		return "", fmt.Errorf("failed to render mock answer: %w", err)
	}
	return string(data), nil
}

// promptAccounts returns [number, label] for each account line, i.e. each
// "number,label,class" line followed by the batch delimiter.
func promptAccounts(prompt string) [][2]string {
	sep := strings.Trim(batch.Delimiter, "\n")
	lines := strings.Split(prompt, "\n")

	var accounts [][2]string
	for i := 0; i+1 < len(lines); i++ {
		if lines[i+1] != sep {
			continue
		}
		number, rest, ok := strings.Cut(lines[i], ",")
		last := strings.LastIndex(rest, ",")
		if !ok || last < 0 {
			continue
		}
		accounts = append(accounts, [2]string{normalize.Number(number), rest[:last]})
	}
	return accounts
}

// promptReference returns the first "code - name - class" line of the prompt.
func promptReference(prompt string) (string, string) {
	for _, line := range strings.Split(prompt, "\n") {
		parts := strings.Split(line, " - ")
		if len(parts) == 3 && parts[0] != "" && !strings.ContainsAny(parts[0], " ,\"") {
			return parts[0], parts[1]
		}
	}
	return "000000", "Unmapped"
}
