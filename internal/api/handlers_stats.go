package api

import (
	"net/http"
)

func (s *Server) handleRenderStats(w http.ResponseWriter, r *http.Request) {
	queue := 0
	if s.deps.Jobs != nil {
		queue = s.deps.Jobs.QueueDepth()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth": queue,
		"stats":       s.deps.Stats.Snapshot(),
	})
}
