package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docbind/internal/pipeline"
	"github.com/dgallion1/docbind/internal/render"
)

// handleGenerate queues a bundle job for the workspace.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	wsID := chi.URLParam(r, "wsID")

	var req struct {
		Format string `json:"format"`
		Title  string `json:"title"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	writer, err := render.ForFormat(req.Format)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := s.deps.Store.GetWorkspace(r.Context(), wsID)
	if err != nil {
		storeError(w, err)
		return
	}
	title := req.Title
	if title == "" {
		title = ws.Title
	}

	job := pipeline.NewJob(ws.ID, writer.Format(), title)
	if err := s.deps.Jobs.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("generate queued", "job_id", job.ID, "workspace_id", ws.ID, "listings", len(ws.Listings))

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/jobs/%s/status", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.deps.Jobs.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleJobDocument downloads a completed bundle under its fixed file name.
func (s *Server) handleJobDocument(w http.ResponseWriter, r *http.Request) {
	job := s.deps.Jobs.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	res := job.Result()
	if res == nil {
		snap := job.Snapshot()
		if snap.Status == pipeline.StatusFailed {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":    "job failed",
				"failures": snap.Progress.Failures,
				"errors":   snap.Progress.Errors,
			})
			return
		}
		jsonError(w, "document not ready: "+string(snap.Status), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Document)))
	w.Write(res.Document)
}
