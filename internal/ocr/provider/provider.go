// Package provider selects the OCR engine named in the configuration.
package provider

import (
	"fmt"
	"net/http"

	"github.com/toricodesthings/ink-to-pixels/internal/config"
	"github.com/toricodesthings/ink-to-pixels/internal/ocr"
	"github.com/toricodesthings/ink-to-pixels/internal/ocr/mistral"
	"github.com/toricodesthings/ink-to-pixels/internal/ocr/tesseract"
)

func New(cfg config.Config) (ocr.Engine, error) {
	switch cfg.OCREngine {
	case "", "tesseract":
		return tesseract.New(
			tesseract.WithLanguages(cfg.OCRLanguages...),
			tesseract.WithPageSegMode(cfg.OCRPageSegMode),
		), nil
	case "mistral":
		return mistral.New(cfg.MistralAPIKey,
			mistral.WithModel(cfg.MistralOCRModel),
			mistral.WithEndpoint(cfg.MistralEndpoint),
			mistral.WithHTTPClient(&http.Client{Timeout: cfg.OCRRequestTimeout}),
		), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownEngine, cfg.OCREngine)
	}
}
