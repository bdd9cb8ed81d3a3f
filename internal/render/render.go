// Package render writes an assembled bundle (index followed by content
// pages) as a PDF or Word document.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docbind/internal/index"
	"github.com/dgallion1/docbind/internal/layout"
	"github.com/dgallion1/docbind/internal/merge"
	"github.com/dgallion1/docbind/internal/typeset"
)

// Supported output formats.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
)

// Input is everything a writer needs to produce a bundle.
type Input struct {
	Title   string
	Index   index.Table
	Content merge.Content
}

// Writer produces one output format.
type Writer interface {
	Format() string
	ContentType() string
	// FileName is the fixed name the artifact is delivered under.
	FileName() string
	Write(w io.Writer, in Input) error
}

// ForFormat returns the writer for "pdf" or "docx".
func ForFormat(format string) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatPDF, "":
		return NewPDF(), nil
	case FormatDOCX:
		return NewDOCX(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %q", format)
	}
}

// Index table geometry shared by both writers, in millimetres.
const (
	serialColWidth = 20
	pagesColWidth  = 35
	rowHeight      = 8
	titleHeight    = 14
)

// IndexHeaders are the column headings of the index table.
var IndexHeaders = [3]string{"Serial", "Description", "Page(s)"}

// Geometry is the page layout used by both writers.
type Geometry struct {
	Page    layout.Size
	Margins layout.Margins
	Metrics typeset.Metrics
}

// DefaultGeometry is A4 with one-inch margins.
func DefaultGeometry() Geometry {
	return Geometry{Page: layout.A4, Margins: layout.WordMargins, Metrics: typeset.DefaultMetrics}
}

// Box is the content area inside the margins.
func (g Geometry) Box() layout.Rect {
	return layout.ContentBox(g.Page, g.Margins)
}

// IndexRowsPerPage is how many index rows fit under the title and the
// header row.
func (g Geometry) IndexRowsPerPage() int {
	return layout.RowsPerPage(g.Box().H-titleHeight-rowHeight, rowHeight)
}

// IndexPages splits the index into the pages both writers emit.
func (g Geometry) IndexPages(t index.Table) [][]index.Row {
	return t.Paginate(g.IndexRowsPerPage())
}

func bundleTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Index"
	}
	return title
}
