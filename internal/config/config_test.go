package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEmptyPath(t *testing.T) {
	t.Parallel()
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFullConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
bootstrap_module: Pervasives
source_extension: .ml
record_ambiguities: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Pervasives", cfg.BootstrapModule)
	assert.Equal(t, ".ml", cfg.SourceExt)
	assert.True(t, cfg.RecordAmbiguities)
}

func TestLoadFillsDefaultsForAbsentKeys(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "record_ambiguities: true\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultBootstrapModule, cfg.BootstrapModule)
	assert.Equal(t, DefaultSourceExt, cfg.SourceExt)
	assert.True(t, cfg.RecordAmbiguities)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadMalformedFile(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "bootstrap_module: [unclosed\n")
	_, err := Load(path)
	assert.Error(t, err)
}
