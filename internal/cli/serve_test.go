package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeFailsWithMissingConfigFile(t *testing.T) {
	cmd := GetRootCmd()
	cmd.SetArgs([]string{"serve", "--config", filepath.Join(t.TempDir(), "missing.json")})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestServeFailsWithoutAPIKey(t *testing.T) {
	// No config file, no environment key: validation must reject before
	// any listener is opened.
	t.Setenv("GEMINI_API_KEY", "")
	t.Chdir(t.TempDir())

	cmd := GetRootCmd()
	// The config flag is shared across commands; clear any value a
	// previous Execute left behind.
	cmd.SetArgs([]string{"serve", "--config", ""})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
