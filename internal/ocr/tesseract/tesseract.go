//go:build !noocr

// Package tesseract provides the Tesseract OCR engine via gosseract. It
// needs libtesseract at build and run time; build with -tags noocr to
// leave it out.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/dgallion1/docbind/internal/ocr"
)

// Engine wraps one gosseract client. It is not safe for concurrent use.
type Engine struct {
	client *gosseract.Client
}

// New starts a client for the given languages, e.g. ["eng", "deu"].
func New(languages []string) (*Engine, error) {
	c := gosseract.NewClient()
	if len(languages) > 0 {
		if err := c.SetLanguage(languages...); err != nil {
			c.Close()
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	return &Engine{client: c}, nil
}

// Factory returns an ocr.EngineFactory creating Tesseract engines.
func Factory(languages []string) ocr.EngineFactory {
	return func() (ocr.Engine, error) {
		return New(languages)
	}
}

// Recognize returns the text in an encoded image.
func (e *Engine) Recognize(ctx context.Context, img []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := e.client.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Close releases the client.
func (e *Engine) Close() error {
	return e.client.Close()
}
