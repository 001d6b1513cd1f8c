package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8, s.Download.ImageWorkers)
	assert.Equal(t, 2.0, s.Images.VectorUpscale)
	assert.Equal(t, time.Hour, s.Jobs.TTL)
}

func TestLoadOverridesAndKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte(`
download:
  image_workers: 3
images:
  vector_upscale: 3.5
api:
  locale: de-de
`)
	require.NoError(t, os.WriteFile(path, yaml, 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Download.ImageWorkers)
	assert.Equal(t, 3.5, s.Images.VectorUpscale)
	assert.Equal(t, "de-de", s.API.Locale)
	// untouched keys keep defaults
	assert.Equal(t, 4, s.Download.UnitWorkers)
	assert.Equal(t, "https://learn.microsoft.com", s.API.ContentBaseURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("download:\n  unit_workers: 0\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit_workers")
}
