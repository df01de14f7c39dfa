package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, filepath.Join("data", "images", "raw"), cfg.RawImageDir)
	assert.Equal(t, filepath.Join("data", "images", "processed"), cfg.ProcessedImageDir)
	assert.Equal(t, 1920, cfg.MaxWidth)
	assert.Equal(t, 1080, cfg.MaxHeight)
	assert.Equal(t, 85, cfg.JPEGQuality)
	assert.Equal(t, 384, cfg.EmbeddingDims)
	assert.Equal(t, "eng", cfg.OCRLanguages)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 85, cfg.JPEGQuality)
}

func TestLoadOverridesAndFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photoindex.yaml")
	content := `
data_dir: /var/lib/photoindex
max_width: 2560
jpeg_quality: 70
allowed_extensions: [".jpg", ".png"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2560, cfg.MaxWidth)
	assert.Equal(t, 1080, cfg.MaxHeight)
	assert.Equal(t, 70, cfg.JPEGQuality)
	assert.Equal(t, []string{".jpg", ".png"}, cfg.AllowedExtensions)
	assert.Equal(t, filepath.Join("/var/lib/photoindex", "embeddings.json"), cfg.EmbeddingPath)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_width: [not an int"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestAllowedExt(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.AllowedExt(".jpg"))
	assert.True(t, cfg.AllowedExt(".JPG"))
	assert.True(t, cfg.AllowedExt(".webp"))
	assert.False(t, cfg.AllowedExt(".txt"))
	assert.False(t, cfg.AllowedExt(""))
}
