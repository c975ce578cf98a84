package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTeam(t *testing.T) {
	tests := []struct {
		name string
		row  []interface{}
		want bool
	}{
		{
			name: "full row",
			row:  []interface{}{"Знатоки", "Иван, Петр", "2025-12-20T18:00:00Z", "12345"},
			want: true,
		},
		{
			name: "numeric chatId cell",
			row:  []interface{}{"Знатоки", "Иван", "2025-12-20T18:00:00Z", 12345},
			want: true,
		},
		{
			name: "blank name skipped",
			row:  []interface{}{"   ", "Иван", "2025-12-20T18:00:00Z", "12345"},
			want: false,
		},
		{
			name: "short row skipped",
			row:  []interface{}{"Знатоки"},
			want: false,
		},
		{
			name: "non-numeric chatId skipped",
			row:  []interface{}{"Знатоки", "Иван", "2025-12-20T18:00:00Z", "abc"},
			want: false,
		},
		{
			name: "empty row skipped",
			row:  []interface{}{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeTeam(tt.row)
			if !tt.want {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, "Знатоки", got.Name)
			assert.Equal(t, int64(12345), got.ChatID)
		})
	}
}

func TestDecodeAnswer(t *testing.T) {
	a := decodeAnswer([]interface{}{"Знатоки", "1", "Пушкин", "2025-12-20T18:05:00Z"})
	require.NotNil(t, a)
	assert.Equal(t, "Знатоки", a.TeamName)
	assert.Equal(t, 1, a.QuestionNumber)
	assert.Equal(t, "Пушкин", a.Text)
	assert.Equal(t, "2025-12-20T18:05:00Z", a.SubmittedAt)

	assert.Nil(t, decodeAnswer([]interface{}{"Знатоки", "abc", "Пушкин", ""}), "non-numeric question number")
	assert.Nil(t, decodeAnswer([]interface{}{"", "1", "Пушкин", ""}), "blank team name")
	assert.Nil(t, decodeAnswer([]interface{}{}), "empty row")
}

func TestCell(t *testing.T) {
	row := []interface{}{"a", nil, 3}
	assert.Equal(t, "a", cell(row, 0))
	assert.Equal(t, "", cell(row, 1))
	assert.Equal(t, "3", cell(row, 2))
	assert.Equal(t, "", cell(row, 5))
	assert.Equal(t, "", cell(row, -1))
}

func TestFirstDataRow(t *testing.T) {
	assert.Equal(t, 1, (&Client{headerRow: true}).firstDataRow())
	assert.Equal(t, 0, (&Client{headerRow: false}).firstDataRow())
}
