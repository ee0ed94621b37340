package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvDefaults(t *testing.T) {
	t.Setenv("LICHEN_TEST_STR", "  ")
	t.Setenv("LICHEN_TEST_INT", "abc")
	t.Setenv("LICHEN_TEST_FLOAT", "x")
	t.Setenv("LICHEN_TEST_BOOL", "maybe")

	assert.Equal(t, "fallback", GetEnv("LICHEN_TEST_STR", "fallback"))
	assert.Equal(t, 7, GetEnvInt("LICHEN_TEST_INT", 7))
	assert.Equal(t, 1.5, GetEnvFloat("LICHEN_TEST_FLOAT", 1.5))
	assert.True(t, GetEnvBool("LICHEN_TEST_BOOL", true))
	assert.Equal(t, 3*time.Minute, GetEnvDuration("LICHEN_TEST_MISSING", 3, time.Minute))
}

func TestGetEnvParsesValues(t *testing.T) {
	t.Setenv("LICHEN_TEST_STR", "value")
	t.Setenv("LICHEN_TEST_INT", "42")
	t.Setenv("LICHEN_TEST_FLOAT", "2.25")
	t.Setenv("LICHEN_TEST_BOOL", "false")
	t.Setenv("LICHEN_TEST_DUR", "12")

	assert.Equal(t, "value", GetEnv("LICHEN_TEST_STR", ""))
	assert.Equal(t, 42, GetEnvInt("LICHEN_TEST_INT", 0))
	assert.Equal(t, 2.25, GetEnvFloat("LICHEN_TEST_FLOAT", 0))
	assert.False(t, GetEnvBool("LICHEN_TEST_BOOL", true))
	assert.Equal(t, 12*time.Hour, GetEnvDuration("LICHEN_TEST_DUR", 1, time.Hour))
}

func TestLoadEnvFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LICHEN_DOTENV_VALUE=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("LICHEN_DOTENV_VALUE") })

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-file", GetEnv("LICHEN_DOTENV_VALUE", ""))

	assert.Error(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))
}
