// Package normalize turns each listing into a ListingDocument of pages that
// the writers can lay out: rendered PDF pages, bounded images or typeset
// text.
package normalize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docbind/internal/layout"
	"github.com/dgallion1/docbind/internal/listing"
	"github.com/dgallion1/docbind/internal/metrics"
	"github.com/dgallion1/docbind/internal/parser"
	"github.com/dgallion1/docbind/internal/raster"
	"github.com/dgallion1/docbind/internal/typeset"
)

// Options tune normalization.
type Options struct {
	DPI            int           // PDF render resolution
	MaxImagePixels int           // bound on the longer side of any page image
	StrictTypes    bool          // unsupported files fail instead of being skipped
	Concurrency    int           // listings normalized at once
	RenderTimeout  time.Duration // per page; 0 means none

	Stats *metrics.Registry // optional latency tracking
}

// DefaultOptions mirror the configuration defaults.
func DefaultOptions() Options {
	return Options{
		DPI:            raster.DefaultDPI,
		MaxImagePixels: 4096,
		Concurrency:    4,
	}
}

// Failure records why one listing could not be normalized.
type Failure struct {
	ListingID int64  `json:"listing_id"`
	Title     string `json:"title"`
	Err       error  `json:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("listing %d (%s): %v", f.ListingID, f.Title, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Normalizer converts listings to pages.
type Normalizer struct {
	raster raster.Rasterizer
	ts     *typeset.Typesetter
	opts   Options
	log    *slog.Logger
}

// New returns a Normalizer. Non-positive options take their defaults.
func New(r raster.Rasterizer, ts *typeset.Typesetter, opts Options, log *slog.Logger) *Normalizer {
	def := DefaultOptions()
	if opts.DPI <= 0 {
		opts.DPI = def.DPI
	}
	if opts.MaxImagePixels <= 0 {
		opts.MaxImagePixels = def.MaxImagePixels
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	if ts == nil {
		ts = typeset.New(typeset.DefaultOptions())
	}
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{raster: r, ts: ts, opts: opts, log: log}
}

// Normalize produces the pages of one listing. Pages of a PDF are rendered
// one after another. Unsupported files return listing.ErrUnsupported.
func (n *Normalizer) Normalize(ctx context.Context, l listing.Listing) (listing.ListingDocument, error) {
	doc := listing.ListingDocument{Index: l.Index, ListingID: l.ID}

	var (
		pages []listing.Page
		err   error
	)
	switch kind := l.Kind(); kind {
	case listing.KindPDF:
		pages, err = n.pdfPages(ctx, l)
	case listing.KindImage:
		pages, err = n.imagePages(l)
	case listing.KindText:
		pages, err = n.textPages(l)
	default:
		err = fmt.Errorf("%w: %s", listing.ErrUnsupported, l.FileName)
	}
	if err != nil {
		return doc, err
	}
	doc.Pages = pages
	return doc, nil
}

func (n *Normalizer) pdfPages(ctx context.Context, l listing.Listing) ([]listing.Page, error) {
	if n.raster == nil {
		return nil, errors.New("no rasterizer configured")
	}
	src, err := n.raster.Open(ctx, l.Data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer src.Close()

	pages := make([]listing.Page, 0, src.NumPages())
	for i := 0; i < src.NumPages(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		data, err := n.render(ctx, src, i)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		if n.opts.Stats != nil {
			n.opts.Stats.Page.Observe(start)
		}
		img, err := fitImage(data, n.opts.MaxImagePixels, n.opts.DPI)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages = append(pages, imagePage(l.ID, i, img))
	}
	return pages, nil
}

func (n *Normalizer) render(ctx context.Context, src raster.Document, page int) ([]byte, error) {
	if n.opts.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.opts.RenderTimeout)
		defer cancel()
	}
	return src.Render(ctx, page, n.opts.DPI)
}

func (n *Normalizer) imagePages(l listing.Listing) ([]listing.Page, error) {
	img, err := fitImage(l.Data, n.opts.MaxImagePixels, layout.ScreenDPI)
	if err != nil {
		return nil, err
	}
	return []listing.Page{imagePage(l.ID, 0, img)}, nil
}

func imagePage(listingID int64, id int, img pageImage) listing.Page {
	return listing.Page{
		ListingID:     listingID,
		ID:            id,
		Image:         img.data,
		ImageType:     img.format,
		DPI:           img.dpi,
		NaturalWidth:  img.width,
		NaturalHeight: img.height,
	}
}

// A4 at screen resolution, reported as the natural size of text pages.
var (
	textPageWidth  = int(math.Round(layout.A4.Width / layout.MillimetresPerInch * layout.ScreenDPI))
	textPageHeight = int(math.Round(layout.A4.Height / layout.MillimetresPerInch * layout.ScreenDPI))
)

func (n *Normalizer) textPages(l listing.Listing) ([]listing.Page, error) {
	format, err := listing.TextFormat(l.FileName, l.MIMEType, l.Data)
	if err != nil {
		return nil, err
	}
	p, err := parser.ForFormat(format)
	if err != nil {
		return nil, err
	}
	tree, err := p.Parse(bytes.NewReader(l.Data), l.FileName)
	if err != nil {
		return nil, err
	}

	sets := n.ts.Pages(tree)
	pages := make([]listing.Page, len(sets))
	for i, lines := range sets {
		pages[i] = listing.Page{
			ListingID:     l.ID,
			ID:            i,
			Lines:         lines,
			DPI:           layout.ScreenDPI,
			NaturalWidth:  textPageWidth,
			NaturalHeight: textPageHeight,
		}
	}
	return pages, nil
}

// Outcome is the result of normalizing a set of listings. Documents holds
// every listing that produced pages or was skipped, in no particular order.
type Outcome struct {
	Documents []listing.ListingDocument
	Failures  []Failure
	Skipped   []int64
}

// Failed reports whether any listing failed.
func (o Outcome) Failed() bool { return len(o.Failures) > 0 }

// Observer is told when each listing finishes; err is nil on success.
type Observer func(l listing.Listing, err error)

// NormalizeAll normalizes listings concurrently, at most Concurrency at a
// time. A failing listing never stops its siblings.
func (n *Normalizer) NormalizeAll(ctx context.Context, listings []listing.Listing, observe Observer) Outcome {
	var (
		mu  sync.Mutex
		out Outcome
		g   errgroup.Group
	)
	g.SetLimit(n.opts.Concurrency)

	for _, l := range listings {
		g.Go(func() error {
			start := time.Now()
			log := n.log.With("listing_id", l.ID, "file", l.FileName)

			if !n.opts.StrictTypes && l.Kind() == listing.KindUnsupported {
				log.Warn("skipping unsupported listing")
				mu.Lock()
				out.Documents = append(out.Documents, listing.ListingDocument{Index: l.Index, ListingID: l.ID})
				out.Skipped = append(out.Skipped, l.ID)
				mu.Unlock()
				if observe != nil {
					observe(l, nil)
				}
				return nil
			}

			doc, err := n.Normalize(ctx, l)

			mu.Lock()
			if err != nil {
				log.Error("normalize failed", "error", err)
				out.Failures = append(out.Failures, Failure{ListingID: l.ID, Title: l.Title, Err: err})
			} else {
				log.Debug("normalized listing", "pages", len(doc.Pages), "duration", time.Since(start))
				out.Documents = append(out.Documents, doc)
				if n.opts.Stats != nil {
					n.opts.Stats.Listing.Observe(start)
				}
			}
			mu.Unlock()

			if observe != nil {
				observe(l, err)
			}
			return nil
		})
	}
	g.Wait()
	return out
}
