package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/docbind/internal/ocr"
)

// handleOCR recognizes the text of uploaded files. listing_ids, when given,
// label the results and must match the files one to one; otherwise the
// 1-based file position is used.
func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	if s.deps.OCR == nil {
		jsonError(w, "ocr unavailable", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	ids, err := parseListingIDs(r.MultipartForm.Value["listing_ids"], len(files))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	items := make([]ocr.Item, 0, len(files))
	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			jsonError(w, "failed to open "+fh.Filename, http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
			jsonError(w, "file too large or read error: "+fh.Filename, http.StatusRequestEntityTooLarge)
			return
		}
		items = append(items, ocr.Item{
			ListingID: ids[i],
			FileName:  sanitizeFilename(fh.Filename),
			MIMEType:  fh.Header.Get("Content-Type"),
			Data:      data,
		})
	}

	// OCR capacity gating.
	ctx := r.Context()
	if err := s.ocrSem.Acquire(ctx, 1); err != nil {
		jsonError(w, "OCR at capacity", http.StatusServiceUnavailable)
		return
	}
	defer s.ocrSem.Release(1)

	start := time.Now()
	results, err := s.deps.OCR.Recognize(ctx, items)
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.deps.Stats.OCR.Observe(start)

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// parseListingIDs accepts repeated values and comma-separated lists.
func parseListingIDs(values []string, n int) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid listing id %q", part)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		ids = make([]int64, n)
		for i := range ids {
			ids[i] = int64(i + 1)
		}
		return ids, nil
	}
	if len(ids) != n {
		return nil, fmt.Errorf("got %d listing ids for %d files", len(ids), n)
	}
	return ids, nil
}
