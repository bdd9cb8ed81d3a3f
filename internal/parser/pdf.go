package parser

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFText reads the embedded text layer of a PDF, one string per page. It
// tries the Go library first, then falls back to pdftotext when a path is
// configured.
type PDFText struct {
	PdftotextPath string // empty disables the fallback
}

// Pages returns the text of every page; pages without text are "".
func (p *PDFText) Pages(ctx context.Context, data []byte) ([]string, error) {
	pages, err := extractPDFText(data)
	if err != nil && p.PdftotextPath != "" {
		pages, err = p.extractPdftotext(ctx, data)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return pages, nil
}

func extractPDFText(data []byte) (pages []string, err error) {
	// ledongthuc/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	pages = make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i-1] = strings.TrimSpace(text)
	}
	return pages, nil
}

func (p *PDFText) extractPdftotext(ctx context.Context, data []byte) ([]string, error) {
	cmd := exec.CommandContext(ctx, p.PdftotextPath, "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(data)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	pages := splitPages(string(out))
	for i := range pages {
		pages[i] = strings.TrimSpace(pages[i])
	}
	return pages, nil
}

// splitPages splits pdftotext output on form feeds, dropping the empty
// tail after the final page.
func splitPages(text string) []string {
	pages := strings.Split(text, "\f")
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}
