// Package index builds the table of contents that precedes a bundle's
// content pages.
package index

import (
	"sort"

	"github.com/dgallion1/docbind/internal/layout"
	"github.com/dgallion1/docbind/internal/listing"
)

// Row is one entry of the index.
type Row struct {
	Serial    int    `json:"serial"` // 1-based position in the bundle
	ListingID int64  `json:"listing_id"`
	Title     string `json:"title"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
	PageCount int    `json:"page_count"`
}

// PageRange is the row's page column as printed in the index.
func (r Row) PageRange() string {
	return layout.PageRange(r.StartPage, r.EndPage)
}

// Table is the full index of a bundle.
type Table struct {
	Rows       []Row `json:"rows"`
	TotalPages int   `json:"total_pages"`
}

// Ordered returns a copy of listings sorted by display index. Ties keep
// their relative order.
func Ordered(listings []listing.Listing) []listing.Listing {
	out := make([]listing.Listing, len(listings))
	copy(out, listings)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// AssignPageSpans walks the listings in index order and sets each one's
// starting and ending page number. The first listing starts at page 1; a
// listing with no pages gets an empty span (end = start - 1) and does not
// move the counter. The returned slice is in index order.
func AssignPageSpans(listings []listing.Listing) []listing.Listing {
	ordered := Ordered(listings)
	counter := 1
	for i := range ordered {
		n := max(ordered[i].NumberOfPages, 0)
		ordered[i].StartingPageNumber = counter
		ordered[i].EndingPageNumber = counter + n - 1
		counter += n
	}
	return ordered
}

// Build lays out the index for listings that already carry their page count.
func Build(listings []listing.Listing) Table {
	spanned := AssignPageSpans(listings)
	t := Table{Rows: make([]Row, 0, len(spanned))}
	for i, l := range spanned {
		t.Rows = append(t.Rows, Row{
			Serial:    i + 1,
			ListingID: l.ID,
			Title:     l.Title,
			StartPage: l.StartingPageNumber,
			EndPage:   l.EndingPageNumber,
			PageCount: max(l.NumberOfPages, 0),
		})
		t.TotalPages += max(l.NumberOfPages, 0)
	}
	return t
}

// Paginate splits the rows into index pages of at most rowsPerPage rows. An
// empty table still produces one (header-only) page.
func (t Table) Paginate(rowsPerPage int) [][]Row {
	if rowsPerPage <= 0 {
		rowsPerPage = 1
	}
	if len(t.Rows) == 0 {
		return [][]Row{nil}
	}
	var pages [][]Row
	for start := 0; start < len(t.Rows); start += rowsPerPage {
		end := min(start+rowsPerPage, len(t.Rows))
		pages = append(pages, t.Rows[start:end])
	}
	return pages
}
