package index

import (
	"math/rand/v2"
	"testing"

	"github.com/dgallion1/docbind/internal/listing"
)

func TestBuild_TwoListings(t *testing.T) {
	listings := []listing.Listing{
		{ID: 1, Index: 0, Title: "A", NumberOfPages: 2},
		{ID: 2, Index: 1, Title: "B", NumberOfPages: 1},
	}
	table := Build(listings)

	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	a, b := table.Rows[0], table.Rows[1]
	if a.Title != "A" || a.Serial != 1 || a.StartPage != 1 || a.EndPage != 2 {
		t.Errorf("unexpected row for A: %+v", a)
	}
	if b.Title != "B" || b.Serial != 2 || b.StartPage != 3 || b.EndPage != 3 {
		t.Errorf("unexpected row for B: %+v", b)
	}
	if a.PageRange() != "1 - 2" {
		t.Errorf("expected range %q, got %q", "1 - 2", a.PageRange())
	}
	if b.PageRange() != "3" {
		t.Errorf("expected range %q, got %q", "3", b.PageRange())
	}
	if table.TotalPages != 3 {
		t.Errorf("expected 3 total pages, got %d", table.TotalPages)
	}
}

func TestBuild_UsesIndexOrderNotSliceOrder(t *testing.T) {
	listings := []listing.Listing{
		{ID: 7, Index: 2, Title: "third", NumberOfPages: 1},
		{ID: 5, Index: 0, Title: "first", NumberOfPages: 4},
		{ID: 6, Index: 1, Title: "second", NumberOfPages: 3},
	}
	table := Build(listings)

	want := []struct {
		title string
		start int
	}{{"first", 1}, {"second", 5}, {"third", 8}}
	for i, w := range want {
		if table.Rows[i].Title != w.title || table.Rows[i].StartPage != w.start {
			t.Errorf("row %d: expected %s@%d, got %s@%d", i, w.title, w.start, table.Rows[i].Title, table.Rows[i].StartPage)
		}
		if table.Rows[i].Serial != i+1 {
			t.Errorf("row %d: expected serial %d, got %d", i, i+1, table.Rows[i].Serial)
		}
	}
}

func TestBuild_ZeroPageListingDoesNotShiftOthers(t *testing.T) {
	listings := []listing.Listing{
		{ID: 1, Index: 0, Title: "A", NumberOfPages: 2},
		{ID: 2, Index: 1, Title: "empty", NumberOfPages: 0},
		{ID: 3, Index: 2, Title: "C", NumberOfPages: 1},
	}
	table := Build(listings)

	empty := table.Rows[1]
	if empty.PageCount != 0 || empty.PageRange() != "-" {
		t.Errorf("expected empty row with range %q, got %+v (%q)", "-", empty, empty.PageRange())
	}
	if table.Rows[2].StartPage != 3 {
		t.Errorf("expected C to start at 3, got %d", table.Rows[2].StartPage)
	}
}

func TestBuild_Empty(t *testing.T) {
	table := Build(nil)
	if len(table.Rows) != 0 || table.TotalPages != 0 {
		t.Errorf("expected empty table, got %+v", table)
	}
	pages := table.Paginate(20)
	if len(pages) != 1 || len(pages[0]) != 0 {
		t.Errorf("expected a single header-only page, got %d pages", len(pages))
	}
}

func TestAssignPageSpans_StartIsOnePlusPrecedingCounts(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 50; trial++ {
		n := r.IntN(12)
		listings := make([]listing.Listing, n)
		for i := range listings {
			listings[i] = listing.Listing{ID: int64(i + 1), Index: i, NumberOfPages: r.IntN(6)}
		}
		r.Shuffle(len(listings), func(i, j int) { listings[i], listings[j] = listings[j], listings[i] })

		spanned := AssignPageSpans(listings)
		sum := 0
		for i, l := range spanned {
			if l.Index != i {
				t.Fatalf("trial %d: expected index order, got index %d at %d", trial, l.Index, i)
			}
			if l.StartingPageNumber != 1+sum {
				t.Fatalf("trial %d: listing %d starts at %d, expected %d", trial, i, l.StartingPageNumber, 1+sum)
			}
			if l.EndingPageNumber != l.StartingPageNumber+l.NumberOfPages-1 {
				t.Fatalf("trial %d: listing %d ends at %d", trial, i, l.EndingPageNumber)
			}
			sum += l.NumberOfPages
		}
	}
}

func TestAssignPageSpans_DoesNotMutateInput(t *testing.T) {
	listings := []listing.Listing{{ID: 1, Index: 0, NumberOfPages: 3}}
	AssignPageSpans(listings)
	if listings[0].StartingPageNumber != 0 {
		t.Error("expected input slice to be left untouched")
	}
}

func TestPaginate(t *testing.T) {
	table := Table{Rows: make([]Row, 45)}
	pages := table.Paginate(20)
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if len(pages[0]) != 20 || len(pages[1]) != 20 || len(pages[2]) != 5 {
		t.Errorf("unexpected page sizes: %d %d %d", len(pages[0]), len(pages[1]), len(pages[2]))
	}
}
