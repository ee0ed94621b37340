package plagiarism

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/RishiKendai/lichen/internal/config"
	"github.com/RishiKendai/lichen/internal/models"
	"github.com/RishiKendai/lichen/internal/preprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valueTokens(values ...string) []models.Token {
	tokens := make([]models.Token, len(values))
	for i, v := range values {
		tokens[i] = models.Token{Line: 1, Char: i + 1, Type: "word", Value: models.TokenValue(v)}
	}
	return tokens
}

func newTestHasher(t *testing.T, field config.TokenField, sequenceLength, maxSequences int) *Hasher {
	t.Helper()
	h, err := NewHasher(config.RunConfig{SequenceLength: sequenceLength, Field: field}, config.DefaultFingerprintWidth, maxSequences)
	require.NoError(t, err)
	return h
}

func TestFingerprintDeterministic(t *testing.T) {
	assert.Equal(t, Fingerprint("abc", 8), Fingerprint("abc", 8))
	// md5("abc") = 900150983cd24fb0d6963f7d28e17f72
	assert.Equal(t, "90015098", Fingerprint("abc", 8))
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", Fingerprint("abc", 32))
	assert.Equal(t, "9", Fingerprint("abc", 1))
}

func TestFingerprintsRepeatedWindows(t *testing.T) {
	h := newTestHasher(t, config.FieldValue, 3, 0)

	fps, truncated := h.Fingerprints(valueTokens("a", "b", "c", "a", "b", "c", "a", "b"))
	require.Len(t, fps, 6)
	assert.False(t, truncated)

	// windows abc, bca, cab, abc, bca, cab
	for i := 0; i < 3; i++ {
		assert.Equal(t, fps[i], fps[i+3])
	}
	assert.NotEqual(t, fps[0], fps[1])
	assert.NotEqual(t, fps[0], fps[2])
	assert.NotEqual(t, fps[1], fps[2])
	assert.Equal(t, Fingerprint("abc", 8), fps[0])
}

func TestFingerprintsWindowCount(t *testing.T) {
	tests := []struct {
		tokens, length, want int
	}{
		{0, 1, 0},
		{1, 1, 1},
		{2, 3, 0},
		{3, 3, 1},
		{10, 3, 8},
		{10, 10, 1},
		{10, 11, 0},
	}
	for _, tt := range tests {
		values := make([]string, tt.tokens)
		for i := range values {
			values[i] = string(rune('a' + i))
		}
		h := newTestHasher(t, config.FieldValue, tt.length, 0)
		fps, _ := h.Fingerprints(valueTokens(values...))
		assert.Len(t, fps, tt.want, "N=%d L=%d", tt.tokens, tt.length)
	}
}

func TestFingerprintsNilTokens(t *testing.T) {
	h := newTestHasher(t, config.FieldValue, 1, 0)
	fps, truncated := h.Fingerprints(nil)
	assert.Empty(t, fps)
	assert.False(t, truncated)
}

func TestFingerprintsTruncation(t *testing.T) {
	h := newTestHasher(t, config.FieldValue, 2, 3)
	fps, truncated := h.Fingerprints(valueTokens("a", "b", "c", "d", "e", "f"))
	assert.True(t, truncated)
	assert.Len(t, fps, 3)

	full := newTestHasher(t, config.FieldValue, 2, 0)
	all, _ := full.Fingerprints(valueTokens("a", "b", "c", "d", "e", "f"))
	assert.Equal(t, all[:3], fps)

	exact := newTestHasher(t, config.FieldValue, 2, 5)
	_, truncated = exact.Fingerprints(valueTokens("a", "b", "c", "d", "e", "f"))
	assert.False(t, truncated, "a cap equal to the window count keeps everything")
}

func TestFingerprintsField(t *testing.T) {
	tokens := []models.Token{
		{Type: "NAME", Value: "x"},
		{Type: "OP", Value: "="},
		{Type: "NAME", Value: "y"},
	}
	renamed := []models.Token{
		{Type: "NAME", Value: "total"},
		{Type: "OP", Value: "="},
		{Type: "NAME", Value: "count"},
	}

	byType := newTestHasher(t, config.FieldType, 3, 0)
	a, _ := byType.Fingerprints(tokens)
	b, _ := byType.Fingerprints(renamed)
	assert.Equal(t, a, b, "renaming identifiers does not change type fingerprints")
	assert.Equal(t, Fingerprint("NAMEOPNAME", 8), a[0])

	byValue := newTestHasher(t, config.FieldValue, 3, 0)
	a, _ = byValue.Fingerprints(tokens)
	b, _ = byValue.Fingerprints(renamed)
	assert.NotEqual(t, a, b)
	assert.Equal(t, Fingerprint("x=y", 8), a[0])
}

func TestNewHasherValidation(t *testing.T) {
	_, err := NewHasher(config.RunConfig{SequenceLength: 0, Field: config.FieldValue}, 8, 0)
	assert.Error(t, err)
	_, err = NewHasher(config.RunConfig{SequenceLength: 2, Field: config.FieldValue}, 0, 0)
	assert.Error(t, err)
	_, err = NewHasher(config.RunConfig{SequenceLength: 2, Field: config.FieldValue}, 33, 0)
	assert.Error(t, err)
	_, err = NewHasher(config.RunConfig{SequenceLength: 2, Field: "name"}, 8, 0)
	assert.Error(t, err)
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	tokensPath := filepath.Join(dir, preprocess.TokensFile)
	hashesPath := filepath.Join(dir, HashesFile)
	require.NoError(t, os.WriteFile(tokensPath, []byte(`[
		{"line":1,"char":1,"type":"word","value":"a"},
		{"line":1,"char":3,"type":"word","value":"b"},
		{"line":2,"char":1,"type":"number","value":7}
	]`), 0o644))

	h := newTestHasher(t, config.FieldValue, 2, 0)
	res, err := h.HashFile(tokensPath, hashesPath)
	require.NoError(t, err)
	assert.Equal(t, HashResult{Fingerprints: 2}, res)

	data, err := os.ReadFile(hashesPath)
	require.NoError(t, err)
	assert.Equal(t, Fingerprint("ab", 8)+"\n"+Fingerprint("b7", 8), string(data))
}

func TestHashFileEmptyInputs(t *testing.T) {
	h := newTestHasher(t, config.FieldValue, 2, 0)

	t.Run("null tokens", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, preprocess.TokensFile), []byte("null"), 0o644))
		res, err := h.HashFile(filepath.Join(dir, preprocess.TokensFile), filepath.Join(dir, HashesFile))
		require.NoError(t, err)
		assert.Zero(t, res.Fingerprints)

		info, err := os.Stat(filepath.Join(dir, HashesFile))
		require.NoError(t, err)
		assert.Zero(t, info.Size())
	})

	t.Run("missing tokens", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "provided_code")
		_, err := h.HashFile(filepath.Join(dir, preprocess.TokensFile), filepath.Join(dir, HashesFile))
		require.NoError(t, err)

		info, err := os.Stat(filepath.Join(dir, HashesFile))
		require.NoError(t, err)
		assert.Zero(t, info.Size())
	})

	t.Run("malformed tokens", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, preprocess.TokensFile), []byte("[{"), 0o644))
		_, err := h.HashFile(filepath.Join(dir, preprocess.TokensFile), filepath.Join(dir, HashesFile))
		assert.Error(t, err)
	})
}
