package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"strconv"

	"github.com/fumiama/go-docx"
	xdraw "golang.org/x/image/draw"

	"github.com/dgallion1/docbind/internal/index"
	"github.com/dgallion1/docbind/internal/layout"
	"github.com/dgallion1/docbind/internal/listing"
	"github.com/dgallion1/docbind/internal/merge"
)

// docxPixelsPerInch is the resolution go-docx assumes when it sizes an
// inline drawing from the image's pixel dimensions.
const docxPixelsPerInch = 72

// DOCX writes bundles with fumiama/go-docx. Word decides the final line
// breaks, so every bundle page ends with an explicit page break.
type DOCX struct {
	Geometry Geometry
}

// NewDOCX returns a DOCX writer with the default geometry.
func NewDOCX() *DOCX {
	return &DOCX{Geometry: DefaultGeometry()}
}

func (x *DOCX) Format() string { return FormatDOCX }
func (x *DOCX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}
func (x *DOCX) FileName() string { return "index.docx" }

// halfPoints formats a point size the way WordprocessingML expects.
func halfPoints(pt float64) string {
	return strconv.Itoa(int(math.Round(pt * 2)))
}

func (x *DOCX) Write(w io.Writer, in Input) error {
	g := x.Geometry
	doc := docx.New().WithDefaultTheme().WithA4Page()

	indexPages := g.IndexPages(in.Index)
	total := len(indexPages) + len(in.Content.Pages)
	emitted := 0
	endPage := func(label string) {
		emitted++
		para := doc.AddParagraph().Justification("right")
		para.AddText(label).Size(halfPoints(10))
		if emitted < total {
			para.AddPageBreaks()
		}
	}

	for i, rows := range indexPages {
		heading := bundleTitle(in.Title)
		if i > 0 {
			heading += " (continued)"
		}
		doc.AddParagraph().Justification("center").AddText(heading).Bold().Size(halfPoints(16))
		x.indexTable(doc, rows)
		endPage(layout.LowerRoman(i + 1))
	}

	for _, np := range in.Content.Pages {
		if err := x.contentPage(doc, np); err != nil {
			return err
		}
		endPage(strconv.Itoa(np.Number))
	}

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func (x *DOCX) indexTable(doc *docx.Docx, rows []index.Row) {
	tbl := doc.AddTable(len(rows)+1, len(IndexHeaders), 0, nil)
	for j, h := range IndexHeaders {
		tbl.TableRows[0].TableCells[j].AddParagraph().AddText(h).Bold()
	}
	for i, r := range rows {
		cells := tbl.TableRows[i+1].TableCells
		cells[0].AddParagraph().AddText(strconv.Itoa(r.Serial))
		cells[1].AddParagraph().AddText(r.Title)
		cells[2].AddParagraph().AddText(r.PageRange())
	}
}

func (x *DOCX) contentPage(doc *docx.Docx, np merge.NumberedPage) error {
	if !np.Page.IsImage() {
		m := x.Geometry.Metrics
		for _, l := range np.Page.Lines {
			para := doc.AddParagraph()
			if l.Style == listing.StyleBlank {
				continue
			}
			run := para.AddText(l.Text).Size(halfPoints(m.FontSize(l.Style)))
			if l.Style == listing.StyleHeading {
				run.Bold()
			}
		}
		return nil
	}

	pic, err := x.sizedImage(np.Page)
	if err != nil {
		return fmt.Errorf("listing %d page %d: %w", np.Page.ListingID, np.Page.ID+1, err)
	}
	if _, err := doc.AddParagraph().Justification("center").AddInlineDrawing(pic); err != nil {
		return fmt.Errorf("embed image for listing %d page %d: %w", np.Page.ListingID, np.Page.ID+1, err)
	}
	return nil
}

// sizedImage resamples a page image so that, at the resolution go-docx
// assumes, it appears at the same physical size as in the PDF output.
func (x *DOCX) sizedImage(p listing.Page) ([]byte, error) {
	w := layout.PixelsToMM(p.NaturalWidth, p.DPI)
	h := layout.PixelsToMM(p.NaturalHeight, p.DPI)
	r := layout.FitInside(w, h, x.Geometry.Box())
	tw := max(int(math.Round(r.W/layout.MillimetresPerInch*docxPixelsPerInch)), 1)
	th := max(int(math.Round(r.H/layout.MillimetresPerInch*docxPixelsPerInch)), 1)
	if tw == p.NaturalWidth && th == p.NaturalHeight {
		return p.Image, nil
	}

	src, _, err := image.Decode(bytes.NewReader(p.Image))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, tw, th))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if p.ImageType == "JPEG" {
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90})
	} else {
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
