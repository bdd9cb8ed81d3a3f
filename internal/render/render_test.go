package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
	pdflib "github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docbind/internal/index"
	"github.com/dgallion1/docbind/internal/listing"
	"github.com/dgallion1/docbind/internal/merge"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{B: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// sampleInput is listing A (two image pages) followed by listing B (one
// text page).
func sampleInput(t *testing.T) Input {
	t.Helper()
	img := pngBytes(t, 120, 170)
	docs := []listing.ListingDocument{
		{Index: 1, ListingID: 2, Pages: []listing.Page{{
			ListingID: 2, ID: 0, DPI: 96, NaturalWidth: 794, NaturalHeight: 1123,
			Lines: []listing.Line{{Text: "Heading", Style: listing.StyleHeading}, {Text: "Body – ünïcode", Style: listing.StyleBody}},
		}}},
		{Index: 0, ListingID: 1, Pages: []listing.Page{
			{ListingID: 1, ID: 0, Image: img, ImageType: "PNG", DPI: 15, NaturalWidth: 120, NaturalHeight: 170},
			{ListingID: 1, ID: 1, Image: img, ImageType: "PNG", DPI: 150, NaturalWidth: 120, NaturalHeight: 170},
		}},
	}
	table := index.Build([]listing.Listing{
		{ID: 1, Index: 0, Title: "A", NumberOfPages: 2},
		{ID: 2, Index: 1, Title: "B", NumberOfPages: 1},
	})
	return Input{Title: "Trial Bundle", Index: table, Content: merge.Merge(docs)}
}

func readPDF(t *testing.T, data []byte) *pdflib.Reader {
	t.Helper()
	r, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return r
}

func TestForFormat(t *testing.T) {
	w, err := ForFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, "index.pdf", w.FileName())
	assert.Equal(t, "application/pdf", w.ContentType())

	w, err = ForFormat("docx")
	require.NoError(t, err)
	assert.Equal(t, "index.docx", w.FileName())

	_, err = ForFormat("odt")
	assert.Error(t, err)
}

func TestPDF_PageCount(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPDF().Write(&buf, sampleInput(t)))

	r := readPDF(t, buf.Bytes())
	// One index page plus three content pages.
	assert.Equal(t, 4, r.NumPage())

	text, err := r.Page(1).GetPlainText(nil)
	require.NoError(t, err)
	assert.True(t, strings.Contains(text, "Serial"), "index page text: %q", text)
	assert.True(t, strings.Contains(text, "1 - 2"), "index page text: %q", text)
}

func TestPDF_EmptyBundleHasIndexPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPDF().Write(&buf, Input{Index: index.Build(nil)}))
	assert.Equal(t, 1, readPDF(t, buf.Bytes()).NumPage())
}

func TestPDF_LongIndexSpansPages(t *testing.T) {
	var listings []listing.Listing
	for i := 0; i < 60; i++ {
		listings = append(listings, listing.Listing{ID: int64(i + 1), Index: i, Title: strings.Repeat("very long title ", 10), NumberOfPages: 0})
	}
	g := DefaultGeometry()
	in := Input{Title: "Long", Index: index.Build(listings)}
	want := len(g.IndexPages(in.Index))
	require.Greater(t, want, 1)

	var buf bytes.Buffer
	require.NoError(t, NewPDF().Write(&buf, in))
	assert.Equal(t, want, readPDF(t, buf.Bytes()).NumPage())
}

func TestPDF_BadImage(t *testing.T) {
	in := Input{Index: index.Build(nil), Content: merge.Merge([]listing.ListingDocument{{
		ListingID: 1, Pages: []listing.Page{{ListingID: 1, Image: []byte("not png"), ImageType: "PNG", DPI: 96, NaturalWidth: 1, NaturalHeight: 1}},
	}})}
	var buf bytes.Buffer
	assert.Error(t, NewPDF().Write(&buf, in))
}

func TestGeometry_IndexRowsPerPage(t *testing.T) {
	// (246.2 - 14 - 8) / 8 rows fit on A4 with one-inch margins.
	assert.Equal(t, 28, DefaultGeometry().IndexRowsPerPage())
}

func TestDOCX_Structure(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDOCX().Write(&buf, sampleInput(t)))

	doc, err := docx.Parse(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var tables int
	var texts []string
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Table:
			tables++
			require.Len(t, it.TableRows, 3)
			assert.Len(t, it.TableRows[0].TableCells, 3)
		case *docx.Paragraph:
			texts = append(texts, paragraphText(it))
		}
	}
	assert.Equal(t, 1, tables)
	assert.Contains(t, texts, "Trial Bundle")
	assert.Contains(t, texts, "i")
	assert.Contains(t, texts, "Heading")
	for _, n := range []string{"1", "2", "3"} {
		assert.Contains(t, texts, n)
	}
}

func TestDOCX_SizedImageMatchesPhysicalSize(t *testing.T) {
	x := NewDOCX()
	// 300px at 150 DPI is 2 inches, which is 144px at 72 DPI.
	p := listing.Page{Image: pngBytes(t, 300, 150), ImageType: "PNG", DPI: 150, NaturalWidth: 300, NaturalHeight: 150}
	out, err := x.sizedImage(p)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 144, cfg.Width)
	assert.Equal(t, 72, cfg.Height)
}

func paragraphText(p *docx.Paragraph) string {
	var sb strings.Builder
	for _, c := range p.Children {
		if r, ok := c.(*docx.Run); ok {
			for _, rc := range r.Children {
				if tx, ok := rc.(*docx.Text); ok {
					sb.WriteString(tx.Text)
				}
			}
		}
	}
	return sb.String()
}
