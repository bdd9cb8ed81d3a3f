// Package raster counts and renders PDF pages. Page counting reads the file
// with ledongthuc/pdf and falls back to poppler's pdfinfo; rendering shells
// out to poppler's pdftoppm.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	pdflib "github.com/ledongthuc/pdf"
)

// DefaultDPI is the render resolution when none is configured.
const DefaultDPI = 150

// ErrPageRange is returned when a page outside the document is requested.
var ErrPageRange = errors.New("page out of range")

// Document is an opened PDF ready for rendering.
type Document interface {
	NumPages() int
	// Render returns the zero-based page as PNG bytes.
	Render(ctx context.Context, page, dpi int) ([]byte, error)
	Close() error
}

// Rasterizer opens and measures PDFs.
type Rasterizer interface {
	PageCount(ctx context.Context, data []byte) (int, error)
	Open(ctx context.Context, data []byte) (Document, error)
}

// Poppler is the Rasterizer backed by poppler-utils.
type Poppler struct {
	PdftoppmPath string
	PdfinfoPath  string
	TempDir      string // empty means os.TempDir
	Logger       *slog.Logger
}

// NewPoppler returns a Poppler using the given binaries, defaulting to
// "pdftoppm" and "pdfinfo" on PATH.
func NewPoppler(pdftoppm, pdfinfo string, logger *slog.Logger) *Poppler {
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}
	if pdfinfo == "" {
		pdfinfo = "pdfinfo"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poppler{PdftoppmPath: pdftoppm, PdfinfoPath: pdfinfo, Logger: logger}
}

// PageCount returns the number of pages in a PDF.
func (p *Poppler) PageCount(ctx context.Context, data []byte) (int, error) {
	n, err := libPageCount(data)
	if err == nil {
		return n, nil
	}
	p.Logger.Debug("pdf reader failed, trying pdfinfo", "error", err)

	dir, path, err2 := p.spool(data)
	if err2 != nil {
		return 0, err2
	}
	defer os.RemoveAll(dir)

	n, err2 = p.pdfinfoPageCount(ctx, path)
	if err2 != nil {
		return 0, fmt.Errorf("count pages: %w", errors.Join(err, err2))
	}
	return n, nil
}

// Open spools the PDF to disk once so every page render reuses it.
func (p *Poppler) Open(ctx context.Context, data []byte) (Document, error) {
	n, err := p.PageCount(ctx, data)
	if err != nil {
		return nil, err
	}
	dir, path, err := p.spool(data)
	if err != nil {
		return nil, err
	}
	return &popplerDoc{p: p, dir: dir, path: path, pages: n}, nil
}

func (p *Poppler) spool(data []byte) (dir, path string, err error) {
	dir, err = os.MkdirTemp(p.TempDir, "docbind-pdf-*")
	if err != nil {
		return "", "", fmt.Errorf("create temp dir: %w", err)
	}
	path = filepath.Join(dir, "source.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		os.RemoveAll(dir)
		return "", "", fmt.Errorf("write temp file: %w", err)
	}
	return dir, path, nil
}

var pagesLine = regexp.MustCompile(`(?m)^Pages:\s+(\d+)\s*$`)

func (p *Poppler) pdfinfoPageCount(ctx context.Context, path string) (int, error) {
	out, err := exec.CommandContext(ctx, p.PdfinfoPath, path).Output()
	if err != nil {
		return 0, fmt.Errorf("pdfinfo: %w", err)
	}
	return parsePdfinfo(out)
}

func parsePdfinfo(out []byte) (int, error) {
	m := pagesLine.FindSubmatch(out)
	if len(m) != 2 {
		return 0, errors.New("pdfinfo: pages not found")
	}
	return strconv.Atoi(string(m[1]))
}

func libPageCount(data []byte) (n int, err error) {
	// ledongthuc/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	return reader.NumPage(), nil
}

type popplerDoc struct {
	p     *Poppler
	dir   string
	path  string
	pages int
}

func (d *popplerDoc) NumPages() int { return d.pages }

func (d *popplerDoc) Render(ctx context.Context, page, dpi int) ([]byte, error) {
	if page < 0 || page >= d.pages {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageRange, page, d.pages)
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	n := strconv.Itoa(page + 1)
	prefix := filepath.Join(d.dir, "page-"+n)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.p.PdftoppmPath,
		"-f", n,
		"-l", n,
		"-r", strconv.Itoa(dpi),
		"-png",
		"-singlefile",
		d.path,
		prefix,
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page+1, err, bytes.TrimSpace(stderr.Bytes()))
	}

	out := prefix + ".png"
	img, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read rendered page: %w", err)
	}
	os.Remove(out)
	return img, nil
}

func (d *popplerDoc) Close() error {
	return os.RemoveAll(d.dir)
}
