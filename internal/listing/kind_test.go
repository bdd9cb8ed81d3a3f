package listing

import (
	"errors"
	"testing"
)

func TestDetectKind_ByMIME(t *testing.T) {
	cases := map[string]Kind{
		"application/pdf":           KindPDF,
		"image/png":                 KindImage,
		"image/jpeg":                KindImage,
		"text/markdown":             KindText,
		"text/plain; charset=utf-8": KindText,
	}
	for mime, want := range cases {
		if got := DetectKind("upload.bin", mime, nil); got != want {
			t.Errorf("DetectKind(%q): expected %q, got %q", mime, want, got)
		}
	}
}

func TestDetectKind_ByExtension(t *testing.T) {
	cases := map[string]Kind{
		"scan.PDF":    KindPDF,
		"photo.jpeg":  KindImage,
		"fax.tiff":    KindImage,
		"notes.md":    KindText,
		"letter.docx": KindText,
		"archive.zip": KindUnsupported,
	}
	for name, want := range cases {
		if got := DetectKind(name, "application/octet-stream", nil); got != want {
			t.Errorf("DetectKind(%q): expected %q, got %q", name, want, got)
		}
	}
}

func TestDetectKind_Sniffed(t *testing.T) {
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	if got := DetectKind("noext", "", pdf); got != KindPDF {
		t.Errorf("expected sniffed pdf, got %q", got)
	}
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if got := DetectKind("noext", "", png); got != KindImage {
		t.Errorf("expected sniffed image, got %q", got)
	}
}

func TestDetectKind_EmptyUnknown(t *testing.T) {
	if got := DetectKind("mystery", "", nil); got != KindUnsupported {
		t.Errorf("expected unsupported, got %q", got)
	}
}

func TestTextFormat(t *testing.T) {
	cases := map[string]string{
		"a.txt":      "txt",
		"a.markdown": "md",
		"a.htm":      "html",
		"a.csv":      "csv",
		"a.docx":     "docx",
	}
	for name, want := range cases {
		got, err := TextFormat(name, "", nil)
		if err != nil {
			t.Fatalf("TextFormat(%q): unexpected error: %v", name, err)
		}
		if got != want {
			t.Errorf("TextFormat(%q): expected %q, got %q", name, want, got)
		}
	}
}

func TestTextFormat_SniffsPlainText(t *testing.T) {
	got, err := TextFormat("README", "", []byte("just some words\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "txt" {
		t.Errorf("expected txt, got %q", got)
	}
}

func TestTextFormat_Unsupported(t *testing.T) {
	_, err := TextFormat("a.zip", "application/zip", nil)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestPage_IsImage(t *testing.T) {
	if (Page{Image: []byte{1}}).IsImage() != true {
		t.Error("expected image page")
	}
	if (Page{Lines: []Line{{Text: "x"}}}).IsImage() {
		t.Error("expected text page")
	}
}
