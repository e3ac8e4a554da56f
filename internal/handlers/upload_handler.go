package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"universal-vectorizer/internal/extractors"
	"universal-vectorizer/internal/storage"
)

const maxUploadBytes = 100 << 20

// UploadHandler persists uploaded files so they can be ingested by path
type UploadHandler struct {
	uploads  *storage.UploadStore
	registry *extractors.Registry
	logger   zerolog.Logger
}

// NewUploadHandler creates an upload handler
func NewUploadHandler(uploads *storage.UploadStore, registry *extractors.Registry, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, registry: registry, logger: logger}
}

// UploadResponse carries the stored path, ready to pass to /ingest
type UploadResponse struct {
	FilePath string `json:"file_path"`
	Filename string `json:"filename"`
}

// Upload accepts a multipart file and stores it under the upload
// directory. Files with no registered extractor are rejected up front
// rather than producing a job doomed to fail.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	if _, err := h.registry.Resolve(header.Filename); err != nil {
		writeError(w, http.StatusUnsupportedMediaType,
			"unsupported file type "+strings.ToLower(filepath.Ext(header.Filename))+
				"; supported: "+strings.Join(h.registry.Suffixes(), ", "))
		return
	}

	path, err := h.uploads.Save(header.Filename, file)
	if err != nil {
		h.logger.Error().Err(err).Str("filename", header.Filename).Msg("upload failed")
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	h.logger.Info().Str("filename", header.Filename).Str("path", path).Msg("file uploaded")
	writeJSON(w, http.StatusCreated, UploadResponse{FilePath: path, Filename: header.Filename})
}
