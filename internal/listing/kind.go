package listing

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

// Kind classifies a listing's file by how it is normalized.
type Kind string

const (
	KindPDF         Kind = "pdf"
	KindImage       Kind = "image"
	KindText        Kind = "text"
	KindUnsupported Kind = "unsupported"
)

// ErrUnsupported is returned for files no normalizer understands.
var ErrUnsupported = errors.New("unsupported file type")

// SupportedExtensions maps file extensions to their kind.
var SupportedExtensions = map[string]Kind{
	".pdf":      KindPDF,
	".png":      KindImage,
	".jpg":      KindImage,
	".jpeg":     KindImage,
	".gif":      KindImage,
	".bmp":      KindImage,
	".tif":      KindImage,
	".tiff":     KindImage,
	".webp":     KindImage,
	".txt":      KindText,
	".md":       KindText,
	".markdown": KindText,
	".html":     KindText,
	".htm":      KindText,
	".csv":      KindText,
	".docx":     KindText,
}

var mimeKinds = map[string]Kind{
	"application/pdf": KindPDF,
	"image/png":       KindImage,
	"image/jpeg":      KindImage,
	"image/gif":       KindImage,
	"image/bmp":       KindImage,
	"image/tiff":      KindImage,
	"image/webp":      KindImage,
	"text/plain":      KindText,
	"text/markdown":   KindText,
	"text/html":       KindText,
	"text/csv":        KindText,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": KindText,
}

// DetectKind classifies a file by MIME type, then extension, then content
// sniffing.
func DetectKind(filename, mimeType string, data []byte) Kind {
	if k, ok := mimeKinds[baseMIME(mimeType)]; ok {
		return k
	}
	if k, ok := SupportedExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return k
	}
	if len(data) == 0 {
		return KindUnsupported
	}
	if k, ok := mimeKinds[baseMIME(http.DetectContentType(data))]; ok {
		return k
	}
	return KindUnsupported
}

// TextFormat returns the text parser name for a text-kind file: one of
// "txt", "md", "html", "csv" or "docx".
func TextFormat(filename, mimeType string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return "txt", nil
	case ".md", ".markdown":
		return "md", nil
	case ".html", ".htm":
		return "html", nil
	case ".csv":
		return "csv", nil
	case ".docx":
		return "docx", nil
	}
	switch baseMIME(mimeType) {
	case "text/plain":
		return "txt", nil
	case "text/markdown":
		return "md", nil
	case "text/html":
		return "html", nil
	case "text/csv":
		return "csv", nil
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "docx", nil
	}
	if len(data) > 0 {
		switch baseMIME(http.DetectContentType(data)) {
		case "text/plain":
			return "txt", nil
		case "text/html":
			return "html", nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, filename)
}

// IsSupported reports whether a file would produce pages.
func IsSupported(filename, mimeType string, data []byte) bool {
	return DetectKind(filename, mimeType, data) != KindUnsupported
}

func baseMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}
