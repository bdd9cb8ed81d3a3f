package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docbind/internal/doctree"
)

// Parser converts raw text document bytes into a DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

// ForFormat returns the parser for a text format as reported by
// listing.TextFormat.
func ForFormat(format string) (Parser, error) {
	switch format {
	case "txt":
		return &TextParser{}, nil
	case "md":
		return &MarkdownParser{}, nil
	case "csv":
		return &CSVParser{}, nil
	case "html":
		return &HTMLParser{}, nil
	case "docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported text format: %q", format)
	}
}

// titleFromFilename strips the directory and extension.
func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
