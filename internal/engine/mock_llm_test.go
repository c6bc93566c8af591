package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/transco/internal/llm"
	"github.com/Veraticus/transco/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptAccounts(t *testing.T) {
	prompt := "Accounts to process:\n100,Cash, petty,BS\n---\n200.0,Debt,BS\n---\n\nReference:\n512000 - Banques - BS\n"

	assert.Equal(t, [][2]string{{"100", "Cash, petty"}, {"200", "Debt"}}, promptAccounts(prompt))

	code, name := promptReference(prompt)
	assert.Equal(t, "512000", code)
	assert.Equal(t, "Banques", name)

	code, name = promptReference("no reference here")
	assert.Equal(t, "000000", code)
	assert.Equal(t, "Unmapped", name)
}

func TestMockClientAnswersParse(t *testing.T) {
	prompt := "100,Cash,BS\n---\n200,Debt,BS\n---\n512000 - Banques - BS"

	for _, mode := range []model.ResponseMode{model.ModeSchema, model.ModeFreeText} {
		t.Run(string(mode), func(t *testing.T) {
			mock := NewMockClient(mode)
			resp, err := mock.Submit(context.Background(), prompt)
			require.NoError(t, err)

			parser, err := llm.NewParser(mode)
			require.NoError(t, err)
			parsed, err := parser.Parse(resp.Content)
			require.NoError(t, err)

			require.Len(t, parsed.Results, 2)
			assert.Equal(t, "200", parsed.Results[1].AccountNumber)
			assert.Equal(t, "Banques", parsed.Results[1].COALabel)
			assert.Zero(t, parsed.Dropped)
		})
	}
}

func TestMockClientHooks(t *testing.T) {
	mock := NewMockClient(model.ModeSchema)
	mock.Fail = func(call int) error {
		if call == 2 {
			return errors.New("boom")
		}
		return nil
	}

	_, err := mock.Submit(context.Background(), "100,Cash,BS\n---\n")
	require.NoError(t, err)

	_, err = mock.Submit(context.Background(), "100,Cash,BS\n---\n")
	var fatal *llm.FatalError
	require.ErrorAs(t, err, &fatal)

	calls := mock.GetCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"100"}, calls[0].Accounts)
	assert.Error(t, calls[1].Error)

	mock.ClearCalls()
	assert.Empty(t, mock.GetCalls())
}
