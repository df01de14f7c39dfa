package imageprocessor

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"photoindex/logging"
	"photoindex/types"

	exiftool "github.com/barasher/go-exiftool"
)

// EXIF values longer than this are truncated; some tags carry binary
// blobs rendered as very long strings.
const maxExifValueLen = 100

// Describer extracts the metadata record for a processed image:
// file size, pixel dimensions, format, color mode and EXIF-derived
// fields. EXIF extraction degrades gracefully when exiftool is not
// installed.
type Describer struct {
	et *exiftool.Exiftool
}

// NewDescriber initializes the describer. When the exiftool binary is
// unavailable the describer still works, producing records with an
// empty EXIF field set.
func NewDescriber() *Describer {
	et, err := exiftool.NewExiftool()
	if err != nil {
		logging.LogWarning("exiftool unavailable, EXIF fields disabled: %v", err)
		return &Describer{}
	}
	return &Describer{et: et}
}

// Close releases the exiftool process, if any.
func (d *Describer) Close() {
	if d.et != nil {
		d.et.Close()
	}
}

// Describe builds an ImageRecord for the image at path. The identity is
// the base filename. A file that cannot be decoded still yields a
// record with its size; dimension-dependent fields stay zero.
func (d *Describer) Describe(path string) (types.ImageRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.ImageRecord{}, fmt.Errorf("cannot stat file %s: %v", path, err)
	}

	rec := types.ImageRecord{
		Identity:    filepath.Base(path),
		SizeKB:      float64(info.Size()) / 1024.0,
		ExtractedAt: time.Now().Format(time.RFC3339),
		Exif:        make(map[string]string),
	}

	if cfg, format, err := decodeConfig(path); err != nil {
		logging.LogWarning("cannot read dimensions of %s: %v", path, err)
	} else {
		rec.Width = cfg.Width
		rec.Height = cfg.Height
		rec.Format = strings.ToUpper(format)
		rec.Mode = colorMode(cfg.ColorModel)
	}

	d.addExif(path, &rec)
	return rec, nil
}

func decodeConfig(path string) (image.Config, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer f.Close()
	return image.DecodeConfig(f)
}

func (d *Describer) addExif(path string, rec *types.ImageRecord) {
	if d.et == nil {
		return
	}

	metas := d.et.ExtractMetadata(path)
	if len(metas) == 0 {
		return
	}
	meta := metas[0]
	if meta.Err != nil {
		logging.LogWarning("cannot extract EXIF from %s: %v", path, meta.Err)
		return
	}

	for tag, value := range meta.Fields {
		if tag == "SourceFile" {
			continue
		}
		s := fmt.Sprintf("%v", value)
		if runes := []rune(s); len(runes) > maxExifValueLen {
			s = string(runes[:maxExifValueLen])
		}
		rec.Exif[tag] = s
	}
}

func colorMode(model color.Model) string {
	switch model {
	case color.GrayModel, color.Gray16Model:
		return "L"
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model:
		return "RGBA"
	case color.YCbCrModel:
		return "RGB"
	case color.CMYKModel:
		return "CMYK"
	}
	if _, ok := model.(color.Palette); ok {
		return "P"
	}
	return "RGB"
}
