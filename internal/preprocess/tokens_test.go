package preprocess

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), TokensFile)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestLoadTokens(t *testing.T) {
	path := writeFile(t, []byte(`[
		{"line": 1, "char": 1, "type": "string", "value": "hello"},
		{"line": 1, "char": 7, "type": "number", "value": 42},
		{"line": 2, "char": 1, "type": "punctuation", "value": ";"}
	]`))

	tokens, err := LoadTokens(path)
	require.NoError(t, err)
	require.Len(t, tokens, 3)

	assert.Equal(t, "hello", tokens[0].Value.String())
	assert.Equal(t, "42", tokens[1].Value.String())
	assert.Equal(t, "number", tokens[1].Type)
	assert.Equal(t, 2, tokens[2].Line)
	assert.Equal(t, 1, tokens[2].Char)
}

func TestLoadTokensEmptyInputs(t *testing.T) {
	cases := map[string]string{
		"null":       "null",
		"empty":      "",
		"whitespace": " \n",
		"array":      "[]",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			tokens, err := LoadTokens(writeFile(t, []byte(content)))
			require.NoError(t, err)
			assert.Empty(t, tokens)
		})
	}

	t.Run("missing", func(t *testing.T) {
		tokens, err := LoadTokens(filepath.Join(t.TempDir(), TokensFile))
		require.NoError(t, err)
		assert.Nil(t, tokens)
	})
}

func TestLoadTokensLatin1(t *testing.T) {
	// 0xE9 is "é" in ISO-8859-1 and invalid on its own in UTF-8
	raw := []byte("[{\"line\":1,\"char\":1,\"type\":\"string\",\"value\":\"caf\xe9\"}]")

	tokens, err := LoadTokens(writeFile(t, raw))
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "café", tokens[0].Value.String())
}

func TestLoadTokensMalformed(t *testing.T) {
	_, err := LoadTokens(writeFile(t, []byte(`[{"line": 1,`)))
	assert.Error(t, err)
}
