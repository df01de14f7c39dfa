package imageprocessor

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, width, height int, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func decodeJPEG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	return img
}

func TestOptimizeBoundsLargeImages(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "big.png")
	dst := filepath.Join(dir, "big_processed.jpg")
	writePNG(t, src, 3840, 2160, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	o := NewOptimizer(1920, 1080, 85)
	require.NoError(t, o.Optimize(src, dst))

	out := decodeJPEG(t, dst)
	b := out.Bounds()
	assert.LessOrEqual(t, b.Dx(), 1920)
	assert.LessOrEqual(t, b.Dy(), 1080)
	// Aspect ratio preserved: 16:9 source fills the bound exactly.
	assert.Equal(t, 1920, b.Dx())
	assert.Equal(t, 1080, b.Dy())
}

func TestOptimizeLeavesSmallImagesUnscaled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "small.png")
	dst := filepath.Join(dir, "small_processed.jpg")
	writePNG(t, src, 640, 480, color.NRGBA{R: 200, G: 200, B: 200, A: 255})

	o := NewOptimizer(1920, 1080, 85)
	require.NoError(t, o.Optimize(src, dst))

	b := decodeJPEG(t, dst).Bounds()
	assert.Equal(t, 640, b.Dx())
	assert.Equal(t, 480, b.Dy())
}

func TestOptimizeFlattensTransparencyOntoWhite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clear.png")
	dst := filepath.Join(dir, "clear_processed.jpg")
	// Fully transparent source: the output should be white, not black.
	writePNG(t, src, 32, 32, color.NRGBA{A: 0})

	o := NewOptimizer(1920, 1080, 90)
	require.NoError(t, o.Optimize(src, dst))

	out := decodeJPEG(t, dst)
	r, g, b, _ := out.At(16, 16).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestOptimizeRejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "not_an_image.jpg")
	require.NoError(t, os.WriteFile(src, []byte("plain text"), 0644))

	o := NewOptimizer(1920, 1080, 85)
	err := o.Optimize(src, filepath.Join(dir, "out.jpg"))
	assert.Error(t, err)
}

func TestOptimizeDoesNotTouchSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "orig.png")
	writePNG(t, src, 100, 100, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	before, err := os.ReadFile(src)
	require.NoError(t, err)

	o := NewOptimizer(1920, 1080, 85)
	require.NoError(t, o.Optimize(src, filepath.Join(dir, "out.jpg")))

	after, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
