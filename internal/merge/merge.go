// Package merge concatenates normalized listings into the bundle body and
// stamps running page numbers.
package merge

import (
	"sort"

	"github.com/dgallion1/docbind/internal/listing"
)

// NumberedPage is a content page with its stamped page number.
type NumberedPage struct {
	Number int
	Page   listing.Page
}

// Content is the merged bundle body.
type Content struct {
	Pages []NumberedPage
}

// Numbers returns the stamped page numbers in output order.
func (c Content) Numbers() []int {
	out := make([]int, len(c.Pages))
	for i, p := range c.Pages {
		out[i] = p.Number
	}
	return out
}

// Sort orders documents by their original listing index, restoring a
// deterministic order after concurrent normalization. Ties are broken by
// listing id.
func Sort(docs []listing.ListingDocument) []listing.ListingDocument {
	out := make([]listing.ListingDocument, len(docs))
	copy(out, docs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].ListingID < out[j].ListingID
	})
	return out
}

// Merge sorts docs and copies every page into one body, numbering pages
// from 1 with no gaps.
func Merge(docs []listing.ListingDocument) Content {
	sorted := Sort(docs)
	total := 0
	for _, d := range sorted {
		total += len(d.Pages)
	}
	c := Content{Pages: make([]NumberedPage, 0, total)}
	n := 1
	for _, d := range sorted {
		for _, p := range d.Pages {
			c.Pages = append(c.Pages, NumberedPage{Number: n, Page: p})
			n++
		}
	}
	return c
}
