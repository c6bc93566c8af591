package tabular

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	header := []string{"Account Number", "Label", "Account Type"}
	rows := [][]string{
		{"100", "Cash", "BS"},
		{"600", "Purchases", "P&L"},
	}

	require.NoError(t, WriteFile(path, header, rows))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, header, got[0])
	assert.Equal(t, rows[1], got[2])
}

func TestRoundTripCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteFile(path, []string{"a", "b"}, [][]string{{"1", "x, y"}}))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "x, y"}}, got)
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{
			name:  "comma separated",
			input: "n,label,class\n100,Cash,BS\n",
			want:  [][]string{{"n", "label", "class"}, {"100", "Cash", "BS"}},
		},
		{
			name:  "semicolon separated with BOM",
			input: "\ufeffn;label;class\n100;Caisse, banque;BS\n",
			want:  [][]string{{"n", "label", "class"}, {"100", "Caisse, banque", "BS"}},
		},
		{
			name:  "ragged rows",
			input: "n,label,class,extra\n100,Cash,BS\n",
			want:  [][]string{{"n", "label", "class", "extra"}, {"100", "Cash", "BS"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadCSV(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := ReadFile(path)
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	err = WriteFile(path, nil, nil)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
