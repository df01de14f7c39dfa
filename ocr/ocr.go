package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"photoindex/logging"
)

// NoTextSentinel is stored when OCR finds nothing, so a cached miss is
// distinguishable from an identity that was never processed.
const NoTextSentinel = "no text detected"

// Extractor produces the text content of a processed image.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// Tesseract shells out to the tesseract binary. The binary and language
// set are configurable; a missing binary surfaces as a per-item failure
// at extraction time.
type Tesseract struct {
	Binary    string
	Languages string
}

// NewTesseract creates an extractor. Empty binary falls back to
// "tesseract" on PATH; empty languages falls back to English.
func NewTesseract(binary, languages string) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if languages == "" {
		languages = "eng"
	}
	return &Tesseract{Binary: binary, Languages: languages}
}

// ExtractText runs OCR over the image at path and returns the trimmed
// text, or NoTextSentinel when the image contains no recognizable text.
func (t *Tesseract) ExtractText(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", t.Languages}
	cmd := exec.CommandContext(ctx, t.Binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("tesseract failed for %s: %v (%s)", path, err, detail)
		}
		return "", fmt.Errorf("tesseract failed for %s: %v", path, err)
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		logging.DebugLog("OCR found no text in %s", path)
		return NoTextSentinel, nil
	}
	return text, nil
}
