package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docbind/internal/listing"
	"github.com/dgallion1/docbind/internal/raster"
	"github.com/dgallion1/docbind/internal/workspace"
)

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	ws, err := s.deps.Store.CreateWorkspace(r.Context(), req.Title)
	if err != nil {
		storeError(w, err)
		return
	}
	ws.Listings = []listing.Listing{}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.deps.Store.GetWorkspace(r.Context(), chi.URLParam(r, "wsID"))
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.DeleteWorkspace(r.Context(), chi.URLParam(r, "wsID")); err != nil {
		storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddListing stores an uploaded file and reports its page count.
// The listing is kept even when its pages cannot be counted.
func (s *Server) handleAddListing(w http.ResponseWriter, r *http.Request) {
	wsID := chi.URLParam(r, "wsID")

	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	filename := sanitizeFilename(header.Filename)
	mimeType := header.Header.Get("Content-Type")
	if s.cfg.StrictTypes && !listing.IsSupported(filename, mimeType, data) {
		jsonError(w, "unsupported file type: "+filename, http.StatusUnsupportedMediaType)
		return
	}

	l, err := s.deps.Store.AddListing(r.Context(), wsID, r.FormValue("title"), filename, mimeType, data)
	if err != nil {
		storeError(w, err)
		return
	}
	log := s.log.With("workspace_id", wsID, "listing_id", l.ID)

	n, err := s.pageCount(r, l)
	if err != nil {
		log.Warn("page count failed", "file", filename, "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"listing_id": l.ID,
			"error":      err.Error(),
		})
		return
	}
	if err := s.deps.Store.SetPageCount(r.Context(), wsID, l.ID, n); err != nil {
		storeError(w, err)
		return
	}
	log.Info("listing added", "file", filename, "pages", n)

	writeJSON(w, http.StatusCreated, map[string]any{
		"listing_id": l.ID,
		"page_count": n,
		"index":      l.Index,
		"title":      l.Title,
		"kind":       l.Kind(),
	})
}

// pageCount counts a PDF without rendering it; other kinds are normalized.
// Unsupported files count zero pages and are skipped when generating.
func (s *Server) pageCount(r *http.Request, l listing.Listing) (int, error) {
	switch l.Kind() {
	case listing.KindUnsupported:
		return 0, nil
	case listing.KindPDF:
		if s.deps.Raster == nil {
			return 0, errors.New("pdf support not configured")
		}
		return s.deps.Raster.PageCount(r.Context(), l.Data)
	}
	doc, err := s.deps.Normalizer.Normalize(r.Context(), l)
	if err != nil {
		return 0, err
	}
	return len(doc.Pages), nil
}

func (s *Server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	wsID := chi.URLParam(r, "wsID")
	id, err := int64Param(r, "listingID")
	if err != nil {
		jsonError(w, "invalid listing id", http.StatusBadRequest)
		return
	}
	var u workspace.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&u); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if u.Title == nil && u.Position == nil {
		jsonError(w, "title or position is required", http.StatusBadRequest)
		return
	}
	if err := s.deps.Store.UpdateListing(r.Context(), wsID, id, u); err != nil {
		storeError(w, err)
		return
	}
	ws, err := s.deps.Store.GetWorkspace(r.Context(), wsID)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleRemoveListing(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "listingID")
	if err != nil {
		jsonError(w, "invalid listing id", http.StatusBadRequest)
		return
	}
	if err := s.deps.Store.RemoveListing(r.Context(), chi.URLParam(r, "wsID"), id); err != nil {
		storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListingPages normalizes one listing and describes its pages.
func (s *Server) handleListingPages(w http.ResponseWriter, r *http.Request) {
	l, ok := s.loadListing(w, r)
	if !ok {
		return
	}
	doc, err := s.deps.Normalizer.Normalize(r.Context(), l)
	if errors.Is(err, listing.ErrUnsupported) && !s.cfg.StrictTypes {
		err = nil
	}
	if err != nil {
		s.log.Warn("pages failed", "listing_id", l.ID, "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"listing_id": l.ID,
			"error":      err.Error(),
		})
		return
	}
	pages := doc.Pages
	if pages == nil {
		pages = []listing.Page{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"listing_id": l.ID,
		"pages":      pages,
	})
}

type lineJSON struct {
	Text    string `json:"text"`
	Heading bool   `json:"heading,omitempty"`
}

// handleListingPage returns one page: the rendered image for PDFs and
// images, the typeset lines as JSON for text listings.
func (s *Server) handleListingPage(w http.ResponseWriter, r *http.Request) {
	l, ok := s.loadListing(w, r)
	if !ok {
		return
	}
	pageID, err := strconv.Atoi(chi.URLParam(r, "pageID"))
	if err != nil || pageID < 0 {
		jsonError(w, "invalid page id", http.StatusBadRequest)
		return
	}

	if l.Kind() == listing.KindPDF && s.deps.Raster != nil {
		s.renderPDFPage(w, r, l, pageID)
		return
	}

	doc, err := s.deps.Normalizer.Normalize(r.Context(), l)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"listing_id": l.ID, "error": err.Error()})
		return
	}
	if pageID >= len(doc.Pages) {
		jsonError(w, fmt.Sprintf("page %d not found", pageID), http.StatusNotFound)
		return
	}
	p := doc.Pages[pageID]
	if p.IsImage() {
		writeImage(w, p.Image, p.ImageType)
		return
	}
	lines := make([]lineJSON, len(p.Lines))
	for i, ln := range p.Lines {
		lines[i] = lineJSON{Text: ln.Text, Heading: ln.Style == listing.StyleHeading}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"listing_id": l.ID,
		"id":         p.ID,
		"lines":      lines,
	})
}

// renderPDFPage rasterizes only the requested page.
func (s *Server) renderPDFPage(w http.ResponseWriter, r *http.Request, l listing.Listing, pageID int) {
	doc, err := s.deps.Raster.Open(r.Context(), l.Data)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"listing_id": l.ID, "error": err.Error()})
		return
	}
	defer doc.Close()

	img, err := doc.Render(r.Context(), pageID, s.cfg.RenderDPI)
	if errors.Is(err, raster.ErrPageRange) {
		jsonError(w, fmt.Sprintf("page %d not found", pageID), http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"listing_id": l.ID, "error": err.Error()})
		return
	}
	writeImage(w, img, "PNG")
}

func writeImage(w http.ResponseWriter, data []byte, format string) {
	ct := "image/png"
	if format == "JPEG" {
		ct = "image/jpeg"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (s *Server) loadListing(w http.ResponseWriter, r *http.Request) (listing.Listing, bool) {
	id, err := int64Param(r, "listingID")
	if err != nil {
		jsonError(w, "invalid listing id", http.StatusBadRequest)
		return listing.Listing{}, false
	}
	l, err := s.deps.Store.GetListing(r.Context(), chi.URLParam(r, "wsID"), id)
	if err != nil {
		storeError(w, err)
		return listing.Listing{}, false
	}
	return l, true
}
