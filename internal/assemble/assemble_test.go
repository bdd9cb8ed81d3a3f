package assemble

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docbind/internal/listing"
	"github.com/dgallion1/docbind/internal/normalize"
	"github.com/dgallion1/docbind/internal/raster"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubRaster treats the first byte of data as the page count; a zero-length
// file cannot be opened.
type stubRaster struct {
	opens atomic.Int32
}

func (s *stubRaster) PageCount(_ context.Context, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, errors.New("truncated pdf")
	}
	return int(data[0]), nil
}

func (s *stubRaster) Open(ctx context.Context, data []byte) (raster.Document, error) {
	s.opens.Add(1)
	n, err := s.PageCount(ctx, data)
	if err != nil {
		return nil, err
	}
	return stubDoc(n), nil
}

type stubDoc int

func (d stubDoc) NumPages() int { return int(d) }
func (d stubDoc) Close() error  { return nil }
func (d stubDoc) Render(context.Context, int, int) ([]byte, error) {
	var buf bytes.Buffer
	err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 62, 88)))
	return buf.Bytes(), err
}

func pngData(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 40, 30))))
	return buf.Bytes()
}

func newPipeline(r raster.Rasterizer) *Pipeline {
	return New(normalize.New(r, nil, normalize.Options{}, quietLogger()), quietLogger())
}

func sampleListings(t *testing.T) []listing.Listing {
	return []listing.Listing{
		{ID: 10, Index: 0, Title: "A", FileName: "a.pdf", Data: []byte{2}},
		{ID: 20, Index: 1, Title: "B", FileName: "b.png", Data: pngData(t)},
	}
}

func pdfPages(t *testing.T, data []byte) int {
	t.Helper()
	r, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return r.NumPage()
}

func TestRun_TwoListings(t *testing.T) {
	p := newPipeline(&stubRaster{})
	res, err := p.Run(context.Background(), Request{Title: "Bundle", Listings: sampleListings(t)}, nil)
	require.NoError(t, err)

	assert.Equal(t, "index.pdf", res.FileName)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.Equal(t, []int{1, 2, 3}, res.PageNumbers)
	require.Len(t, res.Index.Rows, 2)
	assert.Equal(t, "1 - 2", res.Index.Rows[0].PageRange())
	assert.Equal(t, "3", res.Index.Rows[1].PageRange())
	assert.Equal(t, 1, res.IndexPages)

	require.Len(t, res.Listings, 2)
	assert.Equal(t, 2, res.Listings[0].NumberOfPages)
	assert.Equal(t, 1, res.Listings[0].StartingPageNumber)
	assert.Equal(t, 3, res.Listings[1].StartingPageNumber)
	assert.Nil(t, res.Listings[0].Data)

	assert.Equal(t, 4, pdfPages(t, res.Document))
}

func TestRun_ZeroListings(t *testing.T) {
	p := newPipeline(&stubRaster{})
	res, err := p.Run(context.Background(), Request{}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.PageNumbers)
	assert.Empty(t, res.Index.Rows)
	assert.Equal(t, 1, pdfPages(t, res.Document))
}

func TestRun_Idempotent(t *testing.T) {
	p := newPipeline(&stubRaster{})
	req := Request{Listings: sampleListings(t)}
	first, err := p.Run(context.Background(), req, nil)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, first.PageNumbers, second.PageNumbers)
	assert.Equal(t, first.Index, second.Index)
}

func TestRun_FailureThenRetryWithPrepared(t *testing.T) {
	sr := &stubRaster{}
	p := newPipeline(sr)
	listings := append(sampleListings(t), listing.Listing{ID: 30, Index: 2, Title: "C", FileName: "c.pdf", MIMEType: "application/pdf"})

	_, err := p.Run(context.Background(), Request{Listings: listings}, nil)
	var failed *FailedError
	require.True(t, errors.As(err, &failed), "expected FailedError, got %v", err)
	assert.Equal(t, []int64{30}, failed.ListingIDs())
	assert.Contains(t, failed.Error(), "truncated pdf")
	require.Len(t, failed.Prepared, 2)
	opensAfterFirst := sr.opens.Load()

	// Drop the failed listing and move B to the front.
	retry := []listing.Listing{listings[1], listings[0]}
	retry[0].Index, retry[1].Index = 0, 1
	res, err := p.Run(context.Background(), Request{Listings: retry, Prepared: failed.Prepared}, nil)
	require.NoError(t, err)

	assert.Equal(t, opensAfterFirst, sr.opens.Load(), "prepared listings must not be rendered again")
	assert.Equal(t, []int{1, 2, 3}, res.PageNumbers)
	assert.Equal(t, "B", res.Index.Rows[0].Title)
	assert.Equal(t, "1", res.Index.Rows[0].PageRange())
	assert.Equal(t, "2 - 3", res.Index.Rows[1].PageRange())
}

func TestRun_ObserverPhases(t *testing.T) {
	var mu sync.Mutex
	var phases []string
	var done, total int
	obs := &Observer{
		Phase:        func(p string) { mu.Lock(); phases = append(phases, p); mu.Unlock() },
		ListingDone:  func(listing.Listing, error) { mu.Lock(); done++; mu.Unlock() },
		ListingTotal: func(n int) { total = n },
	}

	p := newPipeline(&stubRaster{})
	_, err := p.Run(context.Background(), Request{Listings: sampleListings(t), Format: "docx"}, obs)
	require.NoError(t, err)

	assert.Equal(t, []string{PhaseNormalizing, PhaseIndexing, PhaseMerging, PhaseAssembling}, phases)
	assert.Equal(t, 2, done)
	assert.Equal(t, 2, total)
}

func TestRun_SkippedListingGetsEmptyRow(t *testing.T) {
	p := newPipeline(&stubRaster{})
	listings := append(sampleListings(t), listing.Listing{ID: 40, Index: 2, Title: "Archive", FileName: "x.zip", Data: []byte{0x50, 0x4b, 0x03, 0x04}})

	res, err := p.Run(context.Background(), Request{Listings: listings}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{40}, res.Skipped)
	require.Len(t, res.Index.Rows, 3)
	assert.Equal(t, "-", res.Index.Rows[2].PageRange())
	assert.Len(t, res.PageNumbers, 3)
}

func TestRun_Rejects(t *testing.T) {
	p := newPipeline(&stubRaster{})
	_, err := p.Run(context.Background(), Request{Format: "odt"}, nil)
	assert.Error(t, err)

	dup := []listing.Listing{{ID: 1, FileName: "a.png"}, {ID: 1, FileName: "b.png"}}
	_, err = p.Run(context.Background(), Request{Listings: dup}, nil)
	assert.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newPipeline(&stubRaster{})
	_, err := p.Run(ctx, Request{Listings: sampleListings(t)}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
