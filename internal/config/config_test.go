package config

import (
	"path/filepath"
	"testing"

	"coursekit/internal/structures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTimezone, cfg.Timezone)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Empty(t, cfg.SheetID)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coursekit", "config.json")
	want := structures.Config{
		SheetID:         "abc123",
		CredentialsPath: "/keys/sa.json",
		GitHubTokenFile: "/keys/gh.txt",
		Timezone:        "UTC",
		LogLevel:        "debug",
		LogFormat:       "simple",
	}
	require.NoError(t, SaveTo(path, want))

	got, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, SaveTo(path, structures.Config{SheetID: "from-file", Timezone: "UTC"}))

	t.Setenv("COURSEKIT_SHEET_ID", "from-env")
	got, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", got.SheetID)
	assert.Equal(t, "UTC", got.Timezone)
}
