package merge

import (
	"testing"

	"github.com/dgallion1/docbind/internal/listing"
)

func pages(listingID int64, n int) []listing.Page {
	out := make([]listing.Page, n)
	for i := range out {
		out[i] = listing.Page{ListingID: listingID, ID: i}
	}
	return out
}

func TestMerge_StampsInListingOrder(t *testing.T) {
	// B finished normalizing first; the merge must still emit A before B.
	docs := []listing.ListingDocument{
		{Index: 1, ListingID: 20, Pages: pages(20, 1)},
		{Index: 0, ListingID: 10, Pages: pages(10, 2)},
	}
	content := Merge(docs)

	if len(content.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(content.Pages))
	}
	wantOwners := []int64{10, 10, 20}
	wantIDs := []int{0, 1, 0}
	for i, p := range content.Pages {
		if p.Number != i+1 {
			t.Errorf("page %d: expected number %d, got %d", i, i+1, p.Number)
		}
		if p.Page.ListingID != wantOwners[i] || p.Page.ID != wantIDs[i] {
			t.Errorf("page %d: expected listing %d page %d, got listing %d page %d",
				i, wantOwners[i], wantIDs[i], p.Page.ListingID, p.Page.ID)
		}
	}
}

func TestMerge_Empty(t *testing.T) {
	content := Merge(nil)
	if len(content.Pages) != 0 {
		t.Errorf("expected empty body, got %d pages", len(content.Pages))
	}
	if len(content.Numbers()) != 0 {
		t.Errorf("expected no numbers, got %v", content.Numbers())
	}
}

func TestMerge_ZeroPageListing(t *testing.T) {
	docs := []listing.ListingDocument{
		{Index: 0, ListingID: 1, Pages: pages(1, 1)},
		{Index: 1, ListingID: 2},
		{Index: 2, ListingID: 3, Pages: pages(3, 2)},
	}
	content := Merge(docs)
	got := content.Numbers()
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}
	if content.Pages[1].Page.ListingID != 3 {
		t.Errorf("expected listing 3 right after listing 1, got %d", content.Pages[1].Page.ListingID)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	docs := []listing.ListingDocument{
		{Index: 2, ListingID: 3, Pages: pages(3, 3)},
		{Index: 0, ListingID: 1, Pages: pages(1, 2)},
		{Index: 1, ListingID: 2, Pages: pages(2, 4)},
	}
	first := Merge(docs).Numbers()
	second := Merge(docs).Numbers()
	if len(first) != 9 || len(second) != 9 {
		t.Fatalf("expected 9 pages, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != i+1 || second[i] != i+1 {
			t.Fatalf("expected gapless 1..9, got %v and %v", first, second)
		}
	}
}

func TestSort_TiesBrokenByListingID(t *testing.T) {
	docs := []listing.ListingDocument{
		{Index: 0, ListingID: 9},
		{Index: 0, ListingID: 4},
	}
	sorted := Sort(docs)
	if sorted[0].ListingID != 4 {
		t.Errorf("expected listing 4 first, got %d", sorted[0].ListingID)
	}
	if docs[0].ListingID != 9 {
		t.Error("expected input to be left untouched")
	}
}
