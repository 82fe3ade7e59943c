package lconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	StringVal    string        `env:"STRING_VAL"`
	DefaultValue string        `env:"NON_EXISTANT" envDefault:"Hello"`
	EnvVal       string        `env:"ENV_VAL"`
	IntVal       int           `env:"INT_VAL"`
	BoolVal      bool          `env:"BOOL_VAL"`
	F64Val       float64       `env:"FLOAT64_VAL"`
	TimeDuration time.Duration `env:"TIME_DURATION" envDefault:"5s"`
}

func TestParseReadsConfigDirAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ENV_VAL", "env value here")
	t.Setenv("CONFIG_DIR", dir)

	files := map[string]string{
		"STRING_VAL":  "a string value",
		"INT_VAL":     "123",
		"BOOL_VAL":    "true",
		"FLOAT64_VAL": "2.2E-308",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}

	var cfg testConfig
	require.NoError(t, Parse(&cfg))

	assert.Equal(t, "a string value", cfg.StringVal)
	assert.Equal(t, "Hello", cfg.DefaultValue)
	assert.Equal(t, "env value here", cfg.EnvVal)
	assert.Equal(t, 123, cfg.IntVal)
	assert.True(t, cfg.BoolVal)
	assert.InDelta(t, 2.2e-308, cfg.F64Val, 1e-12)
	assert.Equal(t, 5*time.Second, cfg.TimeDuration)
}

func TestParseWithoutConfigDir(t *testing.T) {
	t.Setenv("CONFIG_DIR", "")
	t.Setenv("STRING_VAL", "from env")

	var cfg testConfig
	require.NoError(t, Parse(&cfg))
	assert.Equal(t, "from env", cfg.StringVal)
	assert.Equal(t, "Hello", cfg.DefaultValue)
}
