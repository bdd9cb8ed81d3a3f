// Package ocr recognizes text in listing files with a bounded pool of
// engines. PDFs are read from their text layer first and only the pages
// that carry too little text are rasterized and recognized.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dgallion1/docbind/internal/listing"
	"github.com/dgallion1/docbind/internal/raster"
)

// Methods reported per item and per page.
const (
	MethodTextLayer = "text-layer"
	MethodOCR       = "ocr"
	MethodHybrid    = "hybrid"
)

// Engine recognizes the text in one encoded image. An Engine is used by a
// single goroutine at a time.
type Engine interface {
	Recognize(ctx context.Context, img []byte) (string, error)
	Close() error
}

// EngineFactory creates one engine per worker.
type EngineFactory func() (Engine, error)

// TextLayer extracts embedded PDF text, one string per page.
type TextLayer interface {
	Pages(ctx context.Context, data []byte) ([]string, error)
}

// Item is one file to recognize.
type Item struct {
	ListingID int64
	FileName  string
	MIMEType  string
	Data      []byte
}

// PageText is the recognized text of one page.
type PageText struct {
	Page      int    `json:"page"` // 1-based
	Text      string `json:"text"`
	Method    string `json:"method"`
	WordCount int    `json:"word_count"`
}

// Result is the outcome for one item.
type Result struct {
	ListingID int64      `json:"listing_id"`
	FileName  string     `json:"file_name"`
	Text      string     `json:"text"`
	Method    string     `json:"method,omitempty"`
	Pages     []PageText `json:"pages,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Options tune recognition.
type Options struct {
	MaxWorkers int // engines running at once; 0 means 5
	MinWords   int // text-layer pages with fewer words are recognized; 0 means 10
	DPI        int // raster resolution for recognized PDF pages; 0 means 300
}

// Recognizer fans items out to a pool of engines.
type Recognizer struct {
	factory EngineFactory
	raster  raster.Rasterizer
	text    TextLayer
	opts    Options
	log     *slog.Logger
}

// New returns a Recognizer. raster and text may be nil, in which case PDFs
// are reported as errors.
func New(factory EngineFactory, r raster.Rasterizer, text TextLayer, opts Options, log *slog.Logger) *Recognizer {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 5
	}
	if opts.MinWords <= 0 {
		opts.MinWords = 10
	}
	if opts.DPI <= 0 {
		opts.DPI = 300
	}
	if log == nil {
		log = slog.Default()
	}
	return &Recognizer{factory: factory, raster: r, text: text, opts: opts, log: log}
}

// PoolSize is the number of engines started for n items.
func (r *Recognizer) PoolSize(n int) int {
	return min(r.opts.MaxWorkers, n)
}

// Recognize processes every item and returns the results in request order.
// A failing item is reported in its Result and does not stop the others;
// the returned error is only set when no engine could be started.
func (r *Recognizer) Recognize(ctx context.Context, items []Item) ([]Result, error) {
	results := make([]Result, len(items))
	if len(items) == 0 {
		return results, nil
	}

	size := r.PoolSize(len(items))
	engines := make([]Engine, 0, size)
	for i := 0; i < size; i++ {
		e, err := r.factory()
		if err != nil {
			for _, started := range engines {
				started.Close()
			}
			return nil, fmt.Errorf("start ocr engine: %w", err)
		}
		engines = append(engines, e)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w, e := range engines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer e.Close()
			for i := range jobs {
				results[i] = r.recognizeItem(ctx, e, items[i])
				r.log.Debug("ocr item done", "worker", w, "listing_id", items[i].ListingID, "method", results[i].Method)
			}
		}()
	}

feed:
	for i := range items {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		for i := range results {
			if results[i].Method == "" && results[i].Error == "" {
				results[i] = Result{ListingID: items[i].ListingID, FileName: items[i].FileName, Error: err.Error()}
			}
		}
	}
	return results, nil
}

func (r *Recognizer) recognizeItem(ctx context.Context, e Engine, it Item) Result {
	res := Result{ListingID: it.ListingID, FileName: it.FileName}

	var err error
	switch listing.DetectKind(it.FileName, it.MIMEType, it.Data) {
	case listing.KindImage:
		var text string
		text, err = e.Recognize(ctx, it.Data)
		if err == nil {
			res.Method = MethodOCR
			res.Pages = []PageText{{Page: 1, Text: text, Method: MethodOCR, WordCount: CountWords(text)}}
		}
	case listing.KindPDF:
		res.Pages, err = r.recognizePDF(ctx, e, it.Data)
		if err == nil {
			res.Method = overallMethod(res.Pages)
		}
	default:
		err = fmt.Errorf("%w: %s", listing.ErrUnsupported, it.FileName)
	}
	if err != nil {
		r.log.Warn("ocr failed", "listing_id", it.ListingID, "file", it.FileName, "error", err)
		res.Error = err.Error()
		res.Pages = nil
		return res
	}

	texts := make([]string, 0, len(res.Pages))
	for _, p := range res.Pages {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	res.Text = strings.Join(texts, "\n\n")
	return res
}

func (r *Recognizer) recognizePDF(ctx context.Context, e Engine, data []byte) ([]PageText, error) {
	if r.raster == nil {
		return nil, errors.New("pdf recognition needs a rasterizer")
	}

	var layer []string
	if r.text != nil {
		var err error
		layer, err = r.text.Pages(ctx, data)
		if err != nil {
			r.log.Debug("no usable text layer", "error", err)
			layer = nil
		}
	}

	var (
		doc raster.Document
		err error
	)
	open := func() (raster.Document, error) {
		if doc == nil {
			doc, err = r.raster.Open(ctx, data)
		}
		return doc, err
	}
	defer func() {
		if doc != nil {
			doc.Close()
		}
	}()

	n := len(layer)
	if n == 0 {
		d, err := open()
		if err != nil {
			return nil, fmt.Errorf("open pdf: %w", err)
		}
		n = d.NumPages()
	}

	pages := make([]PageText, n)
	for i := 0; i < n; i++ {
		if i < len(layer) {
			if wc := CountWords(layer[i]); wc >= r.opts.MinWords {
				pages[i] = PageText{Page: i + 1, Text: layer[i], Method: MethodTextLayer, WordCount: wc}
				continue
			}
		}
		d, err := open()
		if err != nil {
			return nil, fmt.Errorf("open pdf: %w", err)
		}
		img, err := d.Render(ctx, i, r.opts.DPI)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		text, err := e.Recognize(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("recognize page %d: %w", i+1, err)
		}
		pages[i] = PageText{Page: i + 1, Text: text, Method: MethodOCR, WordCount: CountWords(text)}
	}
	return pages, nil
}

func overallMethod(pages []PageText) string {
	var layer, ocr int
	for _, p := range pages {
		if p.Method == MethodOCR {
			ocr++
		} else {
			layer++
		}
	}
	switch {
	case ocr == 0:
		return MethodTextLayer
	case layer == 0:
		return MethodOCR
	default:
		return MethodHybrid
	}
}

// CountWords counts whitespace-separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}
