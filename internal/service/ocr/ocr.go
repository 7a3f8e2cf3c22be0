// Package ocr extracts text from uploaded images.
package ocr

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

// Engine turns image bytes into text. Implementations never fail: on any
// error they return a human-readable description instead, so callers can
// always fold the result into a user turn.
type Engine interface {
	ExtractText(ctx context.Context, image []byte) string
}

// Tesseract implements Engine on top of the tesseract C library.
type Tesseract struct {
	languages []string
	logger    *zap.Logger
}

// NewTesseract creates the engine. languages may be empty, leaving tesseract
// on its default model.
func NewTesseract(languages []string, logger *zap.Logger) *Tesseract {
	return &Tesseract{languages: languages, logger: logger}
}

// ExtractText runs OCR over the supplied image bytes.
func (t *Tesseract) ExtractText(_ context.Context, image []byte) string {
	client := gosseract.NewClient()
	defer client.Close()

	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			t.logger.Warn("failed to set ocr languages", zap.Error(err))
			return "OCR failed: " + err.Error()
		}
	}

	if err := client.SetImageFromBytes(image); err != nil {
		t.logger.Warn("failed to load image for ocr", zap.Error(err))
		return "OCR failed: " + err.Error()
	}

	text, err := client.Text()
	if err != nil {
		t.logger.Warn("ocr extraction failed", zap.Error(err))
		return "OCR failed: " + err.Error()
	}
	return strings.TrimSpace(text)
}
