package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"universal-vectorizer/internal/jobs"
	"universal-vectorizer/internal/services"
)

// IngestHandler handles HTTP requests for ingestion jobs
type IngestHandler struct {
	service  *services.IngestionService
	manager  *jobs.Manager
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewIngestHandler creates an ingest handler
func NewIngestHandler(service *services.IngestionService, manager *jobs.Manager, logger zerolog.Logger) *IngestHandler {
	return &IngestHandler{
		service: service,
		manager: manager,
		upgrader: websocket.Upgrader{
			// Progress updates are not sensitive; the API is already open
			// to any origin via the CORS middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// IngestRequest asks for one source to be ingested. Exactly one of
// FilePath and URL must be set.
type IngestRequest struct {
	FilePath string            `json:"file_path,omitempty"`
	URL      string            `json:"url,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IngestResponse carries the job ID of the scheduled ingestion
type IngestResponse struct {
	JobID string `json:"job_id"`
}

// Ingest schedules an ingestion job and returns its ID immediately
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch {
	case req.FilePath != "" && req.URL != "":
		writeError(w, http.StatusBadRequest, "provide either file_path or url, not both")
	case req.FilePath != "":
		writeJSON(w, http.StatusAccepted, IngestResponse{JobID: h.service.IngestFile(req.FilePath, req.Metadata)})
	case req.URL != "":
		writeJSON(w, http.StatusAccepted, IngestResponse{JobID: h.service.IngestURL(req.URL, req.Metadata)})
	default:
		writeError(w, http.StatusBadRequest, "file_path or url is required")
	}
}

// ListJobs returns all known jobs, newest first
func (h *IngestHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.List())
}

// JobStatus returns the current snapshot of one job
func (h *IngestHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	status, ok := h.manager.Get(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found: "+jobID)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Subscribe upgrades to a websocket and forwards job snapshots until the
// client disconnects or the subscription channel is closed.
func (h *IngestHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]

	sub, err := h.manager.Subscribe(jobID, 16)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.manager.Unsubscribe(sub)
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("websocket upgrade failed")
		return
	}

	defer func() {
		h.manager.Unsubscribe(sub)
		conn.Close()
	}()

	// Reader goroutine: the client never sends data we care about, but
	// reading is what surfaces the disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case status, ok := <-sub.Updates():
			if !ok {
				return
			}
			if err := conn.WriteJSON(status); err != nil {
				return
			}
			if status.State.IsTerminal() {
				return
			}
		case <-done:
			return
		}
	}
}
