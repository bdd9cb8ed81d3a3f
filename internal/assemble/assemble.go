// Package assemble runs the bundle pipeline: normalize every listing, build
// the index, merge the content and write the requested format.
package assemble

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dgallion1/docbind/internal/index"
	"github.com/dgallion1/docbind/internal/listing"
	"github.com/dgallion1/docbind/internal/merge"
	"github.com/dgallion1/docbind/internal/normalize"
	"github.com/dgallion1/docbind/internal/render"
)

// Phase names reported to an Observer.
const (
	PhaseNormalizing = "normalizing"
	PhaseIndexing    = "indexing"
	PhaseMerging     = "merging"
	PhaseAssembling  = "assembling"
)

// Observer receives progress from a run. Any field may be nil.
type Observer struct {
	Phase        func(phase string)
	ListingDone  func(l listing.Listing, err error)
	ListingTotal func(n int)
}

func (o *Observer) phase(p string) {
	if o != nil && o.Phase != nil {
		o.Phase(p)
	}
}

// Request describes one bundle to generate.
type Request struct {
	Title    string
	Format   string // "pdf" (default) or "docx"
	Listings []listing.Listing
	// Prepared holds documents normalized by an earlier run, keyed by
	// listing id. Those listings are not normalized again.
	Prepared map[int64]listing.ListingDocument
}

// Result is a generated bundle.
type Result struct {
	FileName    string
	ContentType string
	Format      string
	Document    []byte

	Listings    []listing.Listing // in index order, with page spans
	Index       index.Table
	PageNumbers []int
	Skipped     []int64
	IndexPages  int
}

// FailedError is returned when any listing failed to normalize. Prepared
// carries the documents that did succeed so a retry without the failed
// listings can reuse them.
type FailedError struct {
	Failures []normalize.Failure
	Prepared map[int64]listing.ListingDocument
}

func (e *FailedError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%d listing(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// ListingIDs returns the ids of the failed listings in ascending order.
func (e *FailedError) ListingIDs() []int64 {
	ids := make([]int64, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.ListingID
	}
	slices.Sort(ids)
	return ids
}

// Pipeline runs requests.
type Pipeline struct {
	normalizer *normalize.Normalizer
	log        *slog.Logger
}

// New returns a Pipeline.
func New(n *normalize.Normalizer, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{normalizer: n, log: log}
}

// Run generates a bundle. When any listing fails no output is produced and
// the error is a *FailedError.
func (p *Pipeline) Run(ctx context.Context, req Request, obs *Observer) (*Result, error) {
	writer, err := render.ForFormat(req.Format)
	if err != nil {
		return nil, err
	}
	if err := checkListings(req.Listings); err != nil {
		return nil, err
	}

	// Phase 1: normalize the listings not already prepared.
	obs.phase(PhaseNormalizing)
	if obs != nil && obs.ListingTotal != nil {
		obs.ListingTotal(len(req.Listings))
	}
	docs := make([]listing.ListingDocument, 0, len(req.Listings))
	var pending []listing.Listing
	for _, l := range req.Listings {
		if d, ok := req.Prepared[l.ID]; ok {
			// The listing may have moved since it was prepared.
			d.Index = l.Index
			docs = append(docs, d)
			if obs != nil && obs.ListingDone != nil {
				obs.ListingDone(l, nil)
			}
			continue
		}
		pending = append(pending, l)
	}

	var done normalize.Observer
	if obs != nil {
		done = obs.ListingDone
	}
	out := p.normalizer.NormalizeAll(ctx, pending, done)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs = append(docs, out.Documents...)

	if out.Failed() {
		prepared := make(map[int64]listing.ListingDocument, len(docs))
		for _, d := range docs {
			prepared[d.ListingID] = d
		}
		return nil, &FailedError{Failures: out.Failures, Prepared: prepared}
	}

	// Phase 2: page counts come from the normalized documents.
	obs.phase(PhaseIndexing)
	counts := make(map[int64]int, len(docs))
	for _, d := range docs {
		counts[d.ListingID] = len(d.Pages)
	}
	listings := make([]listing.Listing, len(req.Listings))
	for i, l := range req.Listings {
		l.NumberOfPages = counts[l.ID]
		listings[i] = l
	}
	listings = index.AssignPageSpans(listings)
	table := index.Build(listings)

	// Phase 3: merge.
	obs.phase(PhaseMerging)
	content := merge.Merge(docs)
	if len(content.Pages) != table.TotalPages {
		return nil, fmt.Errorf("merged %d pages but the index lists %d", len(content.Pages), table.TotalPages)
	}

	// Phase 4: write the artifact.
	obs.phase(PhaseAssembling)
	var buf bytes.Buffer
	in := render.Input{Title: req.Title, Index: table, Content: content}
	if err := writer.Write(&buf, in); err != nil {
		return nil, fmt.Errorf("assemble %s: %w", writer.Format(), err)
	}

	p.log.Info("bundle assembled",
		"format", writer.Format(),
		"listings", len(listings),
		"content_pages", len(content.Pages),
		"skipped", len(out.Skipped),
		"bytes", buf.Len(),
	)

	for i := range listings {
		listings[i].Data = nil
	}
	return &Result{
		FileName:    writer.FileName(),
		ContentType: writer.ContentType(),
		Format:      writer.Format(),
		Document:    buf.Bytes(),
		Listings:    listings,
		Index:       table,
		PageNumbers: content.Numbers(),
		Skipped:     out.Skipped,
		IndexPages:  len(render.DefaultGeometry().IndexPages(table)),
	}, nil
}

// checkListings rejects duplicate listing ids, which would make page
// counts ambiguous.
func checkListings(ls []listing.Listing) error {
	seen := make(map[int64]bool, len(ls))
	for _, l := range ls {
		if seen[l.ID] {
			return fmt.Errorf("duplicate listing id %d", l.ID)
		}
		seen[l.ID] = true
	}
	return nil
}
