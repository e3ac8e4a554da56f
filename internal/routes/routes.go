package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"universal-vectorizer/internal/handlers"
)

// Handlers groups everything the router needs
type Handlers struct {
	Health *handlers.HealthHandler
	Upload *handlers.UploadHandler
	Ingest *handlers.IngestHandler
	Search *handlers.SearchHandler
}

// NewRouter wires all application routes
func NewRouter(h Handlers) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)

	r.HandleFunc("/upload", h.Upload.Upload).Methods(http.MethodPost)

	r.HandleFunc("/ingest", h.Ingest.Ingest).Methods(http.MethodPost)
	r.HandleFunc("/ingest/jobs", h.Ingest.ListJobs).Methods(http.MethodGet)
	r.HandleFunc("/ingest/{job_id}/status", h.Ingest.JobStatus).Methods(http.MethodGet)
	r.HandleFunc("/ws/ingest/{job_id}", h.Ingest.Subscribe).Methods(http.MethodGet)

	r.HandleFunc("/search", h.Search.Search).Methods(http.MethodPost)

	return r
}
