//go:build noocr

package tesseract

import (
	"errors"

	"github.com/dgallion1/docbind/internal/ocr"
)

// ErrNotEnabled is returned when the binary was built without Tesseract.
var ErrNotEnabled = errors.New("ocr support not enabled; rebuild without -tags noocr")

// Factory returns a factory that always fails.
func Factory([]string) ocr.EngineFactory {
	return func() (ocr.Engine, error) {
		return nil, ErrNotEnabled
	}
}
