// Package typeset breaks a parsed text document into page-sized sets of
// lines, measuring words with the same core font metrics the PDF writer
// draws with.
package typeset

import (
	"strings"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"

	"github.com/dgallion1/docbind/internal/doctree"
	"github.com/dgallion1/docbind/internal/layout"
	"github.com/dgallion1/docbind/internal/listing"
)

// pointsPerMM converts font sizes to page units.
const pointsPerMM = 72 / layout.MillimetresPerInch

// Metrics describes the text style shared by the typesetter and the
// writers.
type Metrics struct {
	FontFamily  string  // core PDF font
	BodySize    float64 // points
	HeadingSize float64 // points
	Leading     float64 // line height as a multiple of the font size
}

// DefaultMetrics is 11pt Helvetica body text with 14pt bold headings.
var DefaultMetrics = Metrics{
	FontFamily:  "Helvetica",
	BodySize:    11,
	HeadingSize: 14,
	Leading:     1.35,
}

// FontSize returns the point size for a line style.
func (m Metrics) FontSize(s listing.LineStyle) float64 {
	if s == listing.StyleHeading {
		return m.HeadingSize
	}
	return m.BodySize
}

// FontStyle returns the fpdf style string for a line style.
func (m Metrics) FontStyle(s listing.LineStyle) string {
	if s == listing.StyleHeading {
		return "B"
	}
	return ""
}

// LineHeight returns the height of a line in millimetres.
func (m Metrics) LineHeight(s listing.LineStyle) float64 {
	return m.FontSize(s) * m.Leading / pointsPerMM
}

// Options configures a Typesetter.
type Options struct {
	Page    layout.Size
	Margins layout.Margins
	Metrics Metrics
}

// DefaultOptions typesets onto A4 with one-inch margins.
func DefaultOptions() Options {
	return Options{Page: layout.A4, Margins: layout.WordMargins, Metrics: DefaultMetrics}
}

// Typesetter turns documents into pages of lines. It is safe for concurrent
// use; every call measures with its own fpdf instance.
type Typesetter struct {
	opts Options
	box  layout.Rect
}

// New returns a Typesetter. Zero-valued option fields take their defaults.
func New(opts Options) *Typesetter {
	def := DefaultOptions()
	if opts.Page.Width <= 0 || opts.Page.Height <= 0 {
		opts.Page = def.Page
	}
	if opts.Margins == (layout.Margins{}) {
		opts.Margins = def.Margins
	}
	if opts.Metrics.FontFamily == "" {
		opts.Metrics = def.Metrics
	}
	return &Typesetter{opts: opts, box: layout.ContentBox(opts.Page, opts.Margins)}
}

// measurer wraps an fpdf instance used only for string widths.
type measurer struct {
	pdf     *fpdf.Fpdf
	tr      func(string) string
	metrics Metrics
	style   listing.LineStyle
}

func newMeasurer(m Metrics) *measurer {
	pdf := fpdf.New("P", "mm", "A4", "")
	return &measurer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), metrics: m, style: -1}
}

func (ms *measurer) use(s listing.LineStyle) {
	if ms.style == s {
		return
	}
	ms.pdf.SetFont(ms.metrics.FontFamily, ms.metrics.FontStyle(s), ms.metrics.FontSize(s))
	ms.style = s
}

func (ms *measurer) width(s string) float64 {
	return ms.pdf.GetStringWidth(ms.tr(s))
}

// Pages typesets tree into pages. A document with no text has no pages.
func (t *Typesetter) Pages(tree *doctree.DocTree) [][]listing.Line {
	ms := newMeasurer(t.opts.Metrics)

	var lines []listing.Line
	prevHeading := false
	for i, b := range tree.Blocks() {
		style := listing.StyleBody
		if b.Heading {
			style = listing.StyleHeading
		}
		// Headings sit directly on top of their first paragraph.
		if i > 0 && !prevHeading {
			lines = append(lines, listing.Line{Style: listing.StyleBlank})
		}
		prevHeading = b.Heading
		ms.use(style)
		for _, hard := range strings.Split(b.Text, "\n") {
			for _, l := range wrap(ms, hard, t.box.W) {
				lines = append(lines, listing.Line{Text: l, Style: style})
			}
		}
	}
	return t.paginate(lines)
}

// paginate fills pages top to bottom. Blank lines are dropped at the top of
// a page and a heading is never left as the last line of a page.
func (t *Typesetter) paginate(lines []listing.Line) [][]listing.Line {
	var pages [][]listing.Line
	var cur []listing.Line
	used := 0.0
	m := t.opts.Metrics

	for i := 0; i < len(lines); i++ {
		l := lines[i]
		if l.Style == listing.StyleBlank && len(cur) == 0 {
			continue
		}
		h := m.LineHeight(l.Style)
		need := h
		if l.Style == listing.StyleHeading && i+1 < len(lines) {
			need += m.LineHeight(lines[i+1].Style)
		}
		if len(cur) > 0 && used+need > t.box.H+1e-9 {
			pages = append(pages, trimBlank(cur))
			cur, used = nil, 0
			if l.Style == listing.StyleBlank {
				continue
			}
		}
		cur = append(cur, l)
		used += h
	}
	if len(trimBlank(cur)) > 0 {
		pages = append(pages, trimBlank(cur))
	}
	return pages
}

func trimBlank(lines []listing.Line) []listing.Line {
	for len(lines) > 0 && lines[len(lines)-1].Style == listing.StyleBlank {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// wrap greedily fills lines no wider than maxW. Words wider than a whole
// line are broken at rune boundaries. Leading indentation is kept.
func wrap(ms *measurer, text string, maxW float64) []string {
	indent := text[:len(text)-len(strings.TrimLeft(text, " "))]
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var out []string
	line := ""
	for _, w := range words {
		candidate := w
		if line != "" {
			candidate = line + " " + w
		} else if len(out) == 0 {
			candidate = indent + w
		}
		if ms.width(candidate) <= maxW {
			line = candidate
			continue
		}
		if line != "" {
			out = append(out, line)
			line = ""
		}
		for ms.width(w) > maxW {
			head := fitRunes(ms, w, maxW)
			out = append(out, w[:head])
			w = w[head:]
		}
		line = w
	}
	if line != "" {
		out = append(out, line)
	}
	return out
}

// fitRunes returns the byte length of the longest prefix of w that fits,
// always at least one rune.
func fitRunes(ms *measurer, w string, maxW float64) int {
	end := 0
	for i, r := range w {
		next := i + utf8.RuneLen(r)
		if end > 0 && ms.width(w[:next]) > maxW {
			break
		}
		end = next
	}
	return end
}
