package runtimeinit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sefip-robot/src/config"
)

func TestBootstrapRequiresImagesDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IMAGES_DIR", "")

	_, _, err := Bootstrap(Options{LoadOptions: config.LoadOptions{AppDir: dir}})
	assert.ErrorIs(t, err, config.ErrImagesDirMissing)
}

func TestBootstrapSetsUpLogging(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IMAGES_DIR", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, config.DefaultImagesDir), 0o755))

	called := false
	cfg, _, err := Bootstrap(Options{
		LoadOptions: config.LoadOptions{AppDir: dir},
		SetupLogging: func(cfg *config.Config) zerolog.Logger {
			called = true
			return zerolog.Nop()
		},
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, filepath.Join(dir, "imagens"), cfg.ImagesDir)
}
