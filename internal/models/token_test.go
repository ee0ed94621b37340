package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenValueUnmarshal(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"print"`, "print"},
		{`"é"`, "é"},
		{`42`, "42"},
		{`-7`, "-7"},
		{`3.50`, "3.50"},
		{`null`, ""},
		{`true`, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var tok Token
			require.NoError(t, json.Unmarshal([]byte(`{"line":1,"char":2,"type":"t","value":`+tt.raw+`}`), &tok))
			assert.Equal(t, tt.want, tok.Value.String())
		})
	}
}

func TestTokenValueMissing(t *testing.T) {
	var tok Token
	require.NoError(t, json.Unmarshal([]byte(`{"line":3,"char":4,"type":"NEWLINE"}`), &tok))
	assert.Equal(t, Token{Line: 3, Char: 4, Type: "NEWLINE"}, tok)
}

func TestMatchDecoding(t *testing.T) {
	var matches []Match
	require.NoError(t, json.Unmarshal([]byte(`[
		{"type":"match","start":1,"end":4,"others":[{"username":"bob","version":2,"source_gradeable":"f24__hw1"}]},
		{"type":"provided","start":5,"end":9}
	]`), &matches))

	require.Len(t, matches, 2)
	assert.Equal(t, MatchTypeMatch, matches[0].Type)
	assert.Equal(t, []SubmissionKey{{UserID: "bob", Version: 2, SourceGradeable: "f24__hw1"}}, matches[0].Others)
	assert.Empty(t, matches[1].Others)
	assert.Equal(t, "bob_2_f24__hw1", matches[0].Others[0].String())
}
