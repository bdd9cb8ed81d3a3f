// Package app wires the bundle components from a Config. The server and
// the CLI both build their pipeline here.
package app

import (
	"log/slog"
	"time"

	"github.com/dgallion1/docbind/internal/assemble"
	"github.com/dgallion1/docbind/internal/config"
	"github.com/dgallion1/docbind/internal/metrics"
	"github.com/dgallion1/docbind/internal/normalize"
	"github.com/dgallion1/docbind/internal/ocr"
	"github.com/dgallion1/docbind/internal/ocr/tesseract"
	"github.com/dgallion1/docbind/internal/parser"
	"github.com/dgallion1/docbind/internal/raster"
	"github.com/dgallion1/docbind/internal/typeset"
)

// statsWindow is how far back latency snapshots look.
const statsWindow = time.Hour

// Components are the stateless building blocks of a bundle run.
type Components struct {
	Raster     *raster.Poppler
	Normalizer *normalize.Normalizer
	Pipeline   *assemble.Pipeline
	OCR        *ocr.Recognizer
	Stats      *metrics.Registry
}

// New builds the components described by cfg.
func New(cfg config.Config, log *slog.Logger) *Components {
	stats := metrics.NewRegistry(statsWindow)
	rast := raster.NewPoppler(cfg.PdftoppmPath, cfg.PdfinfoPath, log)

	norm := normalize.New(rast, typeset.New(typeset.DefaultOptions()), normalize.Options{
		DPI:            cfg.RenderDPI,
		MaxImagePixels: cfg.MaxImagePixels,
		StrictTypes:    cfg.StrictTypes,
		Concurrency:    cfg.MaxConcurrentNormalize,
		RenderTimeout:  cfg.RenderTimeout,
		Stats:          stats,
	}, log)

	rec := ocr.New(
		tesseract.Factory(cfg.OCRLanguages),
		rast,
		&parser.PDFText{PdftotextPath: cfg.PdftotextPath},
		ocr.Options{MaxWorkers: cfg.OCRMaxWorkers, MinWords: cfg.OCRMinWords},
		log,
	)

	return &Components{
		Raster:     rast,
		Normalizer: norm,
		Pipeline:   assemble.New(norm, log),
		OCR:        rec,
		Stats:      stats,
	}
}
