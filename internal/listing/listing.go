package listing

// Listing is one user-supplied source file plus its metadata.
type Listing struct {
	ID       int64  `json:"id"`
	Index    int    `json:"index"` // Display order within the bundle
	Title    string `json:"title"`
	FileName string `json:"file_name"`
	MIMEType string `json:"mime_type"`

	NumberOfPages      int `json:"number_of_pages"`
	StartingPageNumber int `json:"starting_page_number"`
	EndingPageNumber   int `json:"ending_page_number"`

	Data []byte `json:"-"`
}

// Kind returns the detected file kind of the listing.
func (l Listing) Kind() Kind {
	return DetectKind(l.FileName, l.MIMEType, l.Data)
}

// Page is one normalized page belonging to a listing. Exactly one of Image or
// Lines is set.
type Page struct {
	ListingID int64 `json:"listing_id"`
	ID        int   `json:"id"` // Zero-based within the listing

	Image     []byte `json:"-"`
	ImageType string `json:"image_type,omitempty"` // "PNG" or "JPEG"
	DPI       int    `json:"dpi,omitempty"`

	Lines []Line `json:"-"`

	NaturalWidth  int `json:"natural_width"`
	NaturalHeight int `json:"natural_height"`
}

// IsImage reports whether the page carries a rendered image.
func (p Page) IsImage() bool {
	return len(p.Image) > 0
}

// LineStyle selects how a typeset line is drawn.
type LineStyle int

const (
	StyleBody LineStyle = iota
	StyleHeading
	StyleBlank
)

// Line is a single typeset line of a text page.
type Line struct {
	Text  string
	Style LineStyle
}

// ListingDocument pairs a listing's original ordering index with its
// normalized pages.
type ListingDocument struct {
	Index     int
	ListingID int64
	Pages     []Page
}
