package imageprocessor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"

	"photoindex/logging"

	xdraw "golang.org/x/image/draw"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Optimizer rewrites a raw image into its processed form: dimensions
// bounded to MaxWidth x MaxHeight with Catmull-Rom resampling, alpha
// and palette images flattened onto a white background into a single
// 3-channel representation, output re-encoded as JPEG at the configured
// quality.
type Optimizer struct {
	MaxWidth    int
	MaxHeight   int
	JPEGQuality int
}

// NewOptimizer creates an optimizer; non-positive values fall back to
// 1920x1080 at quality 85.
func NewOptimizer(maxWidth, maxHeight, quality int) *Optimizer {
	if maxWidth <= 0 {
		maxWidth = 1920
	}
	if maxHeight <= 0 {
		maxHeight = 1080
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Optimizer{MaxWidth: maxWidth, MaxHeight: maxHeight, JPEGQuality: quality}
}

// Optimize reads the image at srcPath and writes the processed version
// to dstPath. The source file is never modified.
func (o *Optimizer) Optimize(srcPath, dstPath string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("cannot open %s: %v", srcPath, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("cannot decode image %s: %v", srcPath, err)
	}

	img = o.bound(img)
	flat := flatten(img)

	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("cannot create %s: %v", dstPath, err)
	}

	if err := jpeg.Encode(out, flat, &jpeg.Options{Quality: o.JPEGQuality}); err != nil {
		out.Close()
		os.Remove(dstPath)
		return fmt.Errorf("cannot encode %s: %v", dstPath, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("cannot finish writing %s: %v", dstPath, err)
	}

	logging.DebugLog("Optimized %s image: %s -> %s", format, srcPath, dstPath)
	return nil
}

// bound scales the image down, preserving aspect ratio, when either
// dimension exceeds the configured maximum. Smaller images pass through
// untouched.
func (o *Optimizer) bound(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= o.MaxWidth && h <= o.MaxHeight {
		return img
	}

	scaleW := float64(o.MaxWidth) / float64(w)
	scaleH := float64(o.MaxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

// flatten composites the image over an opaque white background,
// normalizing alpha, grayscale and palette sources to RGB.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}
