package llmjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractArray(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantLen int
	}{
		{
			name:    "fenced block with prose",
			input:   "Here are the results:\n```json\n[{\"id\":\"a\"},{\"id\":\"b\"}]\n```\nLet me know if you need more.",
			wantLen: 2,
		},
		{
			name:    "fenced block tag is case insensitive",
			input:   "```JSON\n[{\"id\":\"a\"}]\n```",
			wantLen: 1,
		},
		{
			name:    "bare array inside prose",
			input:   "Sure! [{\"id\":\"a\"}] hope this helps",
			wantLen: 1,
		},
		{
			name:    "broken fence and broken bracket span",
			input:   "```json\n[{\"id\":\"a\",}]\n```\n[{\"id\":\"b\"}]",
			wantLen: 0,
		},
		{
			name:    "fence without json tag uses bracket span",
			input:   "```\n[{\"id\":\"a\"},{\"id\":\"b\"},{\"id\":\"c\"}]\n```",
			wantLen: 3,
		},
		{
			name:    "empty array",
			input:   "```json\n[]\n```",
			wantLen: 0,
		},
		{
			name:    "no json",
			input:   "I could not find any recent bear sightings.",
			wantLen: 0,
		},
		{
			name:    "closing bracket before opening bracket",
			input:   "] nothing here [",
			wantLen: 0,
		},
		{
			name:    "truncated array",
			input:   "[{\"id\":\"a\"}, {\"id\":",
			wantLen: 0,
		},
		{
			name:    "empty string",
			input:   "",
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractArray(tt.input)
			require.NotNil(t, got)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestExtractArrayPrefersFencedBlock(t *testing.T) {
	t.Parallel()

	input := "Note [1] and [2] are footnotes.\n```json\n[{\"id\":\"fenced\"}]\n```\nSee [3]."
	items := ExtractArray(input)
	require.Len(t, items, 1)

	obj, err := items[0].Object()
	require.NoError(t, err)
	id, err := obj.GetString("id")
	require.NoError(t, err)
	assert.Equal(t, "fenced", id)
}

func TestExtractObject(t *testing.T) {
	t.Parallel()

	obj, ok := ExtractObject("```json\n{\"isBearSign\": true, \"confidence\": 92}\n```")
	require.True(t, ok)
	isBear, err := obj.GetBoolean("isBearSign")
	require.NoError(t, err)
	assert.True(t, isBear)

	obj, ok = ExtractObject("Verdict: {\"vote\": false} end")
	require.True(t, ok)
	vote, err := obj.GetBoolean("vote")
	require.NoError(t, err)
	assert.False(t, vote)

	_, ok = ExtractObject("YES")
	assert.False(t, ok)

	_, ok = ExtractObject("{not json}")
	assert.False(t, ok)
}
