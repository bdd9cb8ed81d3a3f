package render

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/dgallion1/docbind/internal/index"
	"github.com/dgallion1/docbind/internal/layout"
	"github.com/dgallion1/docbind/internal/listing"
	"github.com/dgallion1/docbind/internal/merge"
)

// PDF writes bundles with go-pdf/fpdf using the core fonts.
type PDF struct {
	Geometry Geometry
}

// NewPDF returns a PDF writer with the default geometry.
func NewPDF() *PDF {
	return &PDF{Geometry: DefaultGeometry()}
}

func (p *PDF) Format() string      { return FormatPDF }
func (p *PDF) ContentType() string { return "application/pdf" }
func (p *PDF) FileName() string    { return "index.pdf" }

// pdfDoc carries the state of one Write call.
type pdfDoc struct {
	g     Geometry
	box   layout.Rect
	pdf   *fpdf.Fpdf
	tr    func(string) string
	label string // page number printed by the footer of the current page
}

func (p *PDF) Write(w io.Writer, in Input) error {
	g := p.Geometry
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: g.Page.Width, Ht: g.Page.Height},
	})
	pdf.SetMargins(g.Margins.Left, g.Margins.Top, g.Margins.Right)
	pdf.SetAutoPageBreak(false, g.Margins.Bottom)
	pdf.SetTitle(bundleTitle(in.Title), true)
	pdf.SetCreator("docbind", true)

	d := &pdfDoc{g: g, box: g.Box(), pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(d.footer)

	for i, rows := range g.IndexPages(in.Index) {
		d.addPage(layout.LowerRoman(i + 1))
		d.indexPage(in.Title, rows, i > 0)
	}
	for _, np := range in.Content.Pages {
		d.addPage(strconv.Itoa(np.Number))
		if err := d.contentPage(np); err != nil {
			return err
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// addPage starts a page. The label is set afterwards because AddPage runs
// the previous page's footer.
func (d *pdfDoc) addPage(label string) {
	d.pdf.AddPage()
	d.label = label
}

func (d *pdfDoc) footer() {
	d.pdf.SetFont(d.g.Metrics.FontFamily, "", 10)
	d.pdf.SetXY(d.box.X, d.g.Page.Height-d.g.Margins.Bottom/2-3)
	d.pdf.CellFormat(d.box.W, 6, d.tr(d.label), "", 0, "R", false, 0, "")
}

func (d *pdfDoc) indexPage(title string, rows []index.Row, continued bool) {
	pdf := d.pdf
	heading := bundleTitle(title)
	if continued {
		heading += " (continued)"
	}

	pdf.SetXY(d.box.X, d.box.Y)
	pdf.SetFont(d.g.Metrics.FontFamily, "B", 16)
	pdf.CellFormat(d.box.W, titleHeight, d.fit(heading, d.box.W), "", 1, "C", false, 0, "")

	descWidth := d.box.W - serialColWidth - pagesColWidth
	pdf.SetFont(d.g.Metrics.FontFamily, "B", 11)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(serialColWidth, rowHeight, IndexHeaders[0], "1", 0, "C", true, 0, "")
	pdf.CellFormat(descWidth, rowHeight, IndexHeaders[1], "1", 0, "L", true, 0, "")
	pdf.CellFormat(pagesColWidth, rowHeight, IndexHeaders[2], "1", 1, "C", true, 0, "")

	pdf.SetFont(d.g.Metrics.FontFamily, "", 11)
	for _, r := range rows {
		pdf.CellFormat(serialColWidth, rowHeight, strconv.Itoa(r.Serial), "1", 0, "C", false, 0, "")
		pdf.CellFormat(descWidth, rowHeight, d.fit(r.Title, descWidth-2), "1", 0, "L", false, 0, "")
		pdf.CellFormat(pagesColWidth, rowHeight, r.PageRange(), "1", 1, "C", false, 0, "")
	}
}

// fit translates s to the font encoding and truncates it with an ellipsis
// so it fits in width.
func (d *pdfDoc) fit(s string, width float64) string {
	t := d.tr(s)
	if d.pdf.GetStringWidth(t) <= width {
		return t
	}
	ellipsis := d.tr("…")
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		t = d.tr(string(runes)) + ellipsis
		if d.pdf.GetStringWidth(t) <= width {
			return t
		}
	}
	return ellipsis
}

func (d *pdfDoc) contentPage(np merge.NumberedPage) error {
	if np.Page.IsImage() {
		return d.imagePage(np)
	}
	d.textPage(np.Page.Lines)
	return nil
}

func (d *pdfDoc) imagePage(np merge.NumberedPage) error {
	page := np.Page
	name := fmt.Sprintf("page-%d", np.Number)
	opts := fpdf.ImageOptions{ImageType: page.ImageType}
	info := d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(page.Image))
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("embed image for listing %d page %d: %w", page.ListingID, page.ID+1, err)
	}
	if info == nil {
		return fmt.Errorf("embed image for listing %d page %d: no image registered", page.ListingID, page.ID+1)
	}

	w := layout.PixelsToMM(page.NaturalWidth, page.DPI)
	h := layout.PixelsToMM(page.NaturalHeight, page.DPI)
	r := layout.FitInside(w, h, d.box)
	d.pdf.ImageOptions(name, r.X, r.Y, r.W, r.H, false, opts, 0, "")
	return nil
}

func (d *pdfDoc) textPage(lines []listing.Line) {
	m := d.g.Metrics
	d.pdf.SetXY(d.box.X, d.box.Y)
	for _, l := range lines {
		h := m.LineHeight(l.Style)
		if l.Style == listing.StyleBlank {
			d.pdf.Ln(h)
			continue
		}
		d.pdf.SetFont(m.FontFamily, m.FontStyle(l.Style), m.FontSize(l.Style))
		d.pdf.CellFormat(d.box.W, h, d.tr(l.Text), "", 1, "L", false, 0, "")
	}
}
