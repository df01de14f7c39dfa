package imageprocessor

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeBasicFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	writePNG(t, path, 320, 240, color.NRGBA{R: 5, G: 5, B: 5, A: 255})

	d := NewDescriber()
	defer d.Close()

	rec, err := d.Describe(path)
	require.NoError(t, err)

	assert.Equal(t, "photo.png", rec.Identity)
	assert.Equal(t, 320, rec.Width)
	assert.Equal(t, 240, rec.Height)
	assert.Equal(t, "PNG", rec.Format)
	assert.Greater(t, rec.SizeKB, 0.0)
	assert.NotEmpty(t, rec.ExtractedAt)
	assert.NotNil(t, rec.Exif)
}

func TestDescribeMissingFile(t *testing.T) {
	d := NewDescriber()
	defer d.Close()

	_, err := d.Describe(filepath.Join(t.TempDir(), "gone.jpg"))
	assert.Error(t, err)
}

func TestDescribeUndecodableFileStillYieldsRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not image data"), 0644))

	d := NewDescriber()
	defer d.Close()

	rec, err := d.Describe(path)
	require.NoError(t, err)
	assert.Equal(t, "broken.jpg", rec.Identity)
	assert.Zero(t, rec.Width)
	assert.Greater(t, rec.SizeKB, 0.0)
}
