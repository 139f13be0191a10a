package statusapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleLaneStatus returns a point-in-time snapshot of every lane's run
// state for the run named in the path, via core.StatusPublisher.
func (s *Server) handleLaneStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	states, err := s.publisher.RunSnapshot(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(states); err != nil {
		s.logger.Warn("encoding lane status response", "error", err)
	}
}

// handleEvents streams every event the run's bus publishes as
// Server-Sent Events, one JSON-encoded event per message, until the
// client disconnects or the bus closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("event bus not available"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch := s.bus.Subscribe()
	ctx := r.Context()
	runID := chi.URLParam(r, "runID")

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if runID != "" && event.RunID() != runID {
				continue
			}
			data, err := json.Marshal(event)
			if err != nil {
				s.logger.Warn("marshaling event for SSE", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\n", event.EventType())
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
