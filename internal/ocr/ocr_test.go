package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docbind/internal/raster"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pngData(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

// fakeEngine returns the image's length as text; images of length 1 fail.
type fakeEngine struct {
	pool *enginePool
}

func (e *fakeEngine) Recognize(_ context.Context, img []byte) (string, error) {
	if len(img) == 1 {
		return "", errors.New("unreadable")
	}
	return fmt.Sprintf("text of %d bytes", len(img)), nil
}

func (e *fakeEngine) Close() error {
	e.pool.closed.Add(1)
	return nil
}

type enginePool struct {
	created atomic.Int32
	closed  atomic.Int32
	failAt  int32
}

func (p *enginePool) factory() (Engine, error) {
	n := p.created.Add(1)
	if p.failAt > 0 && n >= p.failAt {
		return nil, errors.New("no tessdata")
	}
	return &fakeEngine{pool: p}, nil
}

// pageRaster renders every page as a single byte equal to the page index + 2.
type pageRaster struct {
	pages int
	mu    sync.Mutex
	asked []int
}

func (r *pageRaster) PageCount(context.Context, []byte) (int, error) { return r.pages, nil }

func (r *pageRaster) Open(context.Context, []byte) (raster.Document, error) { return r, nil }

func (r *pageRaster) NumPages() int { return r.pages }

func (r *pageRaster) Render(_ context.Context, page, _ int) ([]byte, error) {
	r.mu.Lock()
	r.asked = append(r.asked, page)
	r.mu.Unlock()
	return bytes.Repeat([]byte{'x'}, page+2), nil
}

func (r *pageRaster) Close() error { return nil }

type fixedLayer []string

func (f fixedLayer) Pages(context.Context, []byte) ([]string, error) {
	if f == nil {
		return nil, errors.New("no text layer")
	}
	return f, nil
}

func TestPoolSize(t *testing.T) {
	r := New(nil, nil, nil, Options{}, quietLogger())
	assert.Equal(t, 5, r.PoolSize(12))
	assert.Equal(t, 3, r.PoolSize(3))
	assert.Equal(t, 0, r.PoolSize(0))
}

func TestRecognize_ImagesInRequestOrder(t *testing.T) {
	pool := &enginePool{}
	r := New(pool.factory, nil, nil, Options{MaxWorkers: 2}, quietLogger())

	img := pngData(t)
	var items []Item
	for i := 0; i < 7; i++ {
		items = append(items, Item{ListingID: int64(100 + i), FileName: fmt.Sprintf("p%d.png", i), Data: img})
	}

	results, err := r.Recognize(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, results, 7)
	for i, res := range results {
		assert.Equal(t, int64(100+i), res.ListingID)
		assert.Equal(t, MethodOCR, res.Method)
		assert.Empty(t, res.Error)
		assert.Equal(t, fmt.Sprintf("text of %d bytes", len(img)), res.Text)
	}
	assert.Equal(t, int32(2), pool.created.Load())
	assert.Equal(t, int32(2), pool.closed.Load())
}

func TestRecognize_ItemFailureIsolated(t *testing.T) {
	pool := &enginePool{}
	r := New(pool.factory, nil, nil, Options{}, quietLogger())

	results, err := r.Recognize(context.Background(), []Item{
		{ListingID: 1, FileName: "ok.png", Data: pngData(t)},
		{ListingID: 2, FileName: "bad.png", MIMEType: "image/png", Data: []byte{1}},
		{ListingID: 3, FileName: "notes.zip", Data: []byte("PK\x03\x04")},
	})
	require.NoError(t, err)

	assert.Empty(t, results[0].Error)
	assert.Contains(t, results[1].Error, "unreadable")
	assert.Contains(t, results[2].Error, "unsupported")
	assert.Equal(t, int32(3), pool.created.Load())
}

func TestRecognize_EngineStartFailure(t *testing.T) {
	pool := &enginePool{failAt: 2}
	r := New(pool.factory, nil, nil, Options{}, quietLogger())

	_, err := r.Recognize(context.Background(), []Item{
		{ListingID: 1, FileName: "a.png"}, {ListingID: 2, FileName: "b.png"},
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), pool.closed.Load(), "started engines are closed")
}

func TestRecognize_Empty(t *testing.T) {
	r := New(func() (Engine, error) { t.Fatal("no engine should start"); return nil, nil }, nil, nil, Options{}, quietLogger())
	results, err := r.Recognize(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRecognize_PDFHybrid(t *testing.T) {
	pool := &enginePool{}
	pr := &pageRaster{pages: 3}
	layer := fixedLayer{
		strings.Repeat("word ", 12),
		"sparse",
		strings.Repeat("word ", 10),
	}
	r := New(pool.factory, pr, layer, Options{MinWords: 10}, quietLogger())

	results, err := r.Recognize(context.Background(), []Item{{ListingID: 9, FileName: "scan.pdf", Data: []byte("%PDF-1.4")}})
	require.NoError(t, err)
	res := results[0]
	require.Empty(t, res.Error)

	assert.Equal(t, MethodHybrid, res.Method)
	require.Len(t, res.Pages, 3)
	assert.Equal(t, MethodTextLayer, res.Pages[0].Method)
	assert.Equal(t, MethodOCR, res.Pages[1].Method)
	assert.Equal(t, "text of 3 bytes", res.Pages[1].Text)
	assert.Equal(t, MethodTextLayer, res.Pages[2].Method)
	assert.Equal(t, []int{1}, pr.asked)
}

func TestRecognize_PDFWithoutTextLayer(t *testing.T) {
	pool := &enginePool{}
	pr := &pageRaster{pages: 2}
	r := New(pool.factory, pr, fixedLayer(nil), Options{}, quietLogger())

	results, err := r.Recognize(context.Background(), []Item{{ListingID: 9, FileName: "scan.pdf"}})
	require.NoError(t, err)
	assert.Equal(t, MethodOCR, results[0].Method)
	assert.Equal(t, "text of 2 bytes\n\ntext of 3 bytes", results[0].Text)
}

func TestRecognize_PDFTextLayerOnly(t *testing.T) {
	pool := &enginePool{}
	pr := &pageRaster{pages: 1}
	r := New(pool.factory, pr, fixedLayer{strings.Repeat("word ", 20)}, Options{}, quietLogger())

	results, err := r.Recognize(context.Background(), []Item{{ListingID: 9, FileName: "born-digital.pdf"}})
	require.NoError(t, err)
	assert.Equal(t, MethodTextLayer, results[0].Method)
	assert.Empty(t, pr.asked)
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords("  \n"))
	assert.Equal(t, 3, CountWords("a b\tc"))
}
