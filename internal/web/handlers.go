package web

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lilnaht/excelfile-automation/internal/forecast"
	"github.com/lilnaht/excelfile-automation/internal/logging"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// statusResponse is the body of GET /status.
type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// handleStatus probes the remote store with a bounded read.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("store probe failed", "error", err)
		writeJSONStatus(w, http.StatusInternalServerError, statusResponse{
			Status:  "disconnected",
			Message: "database connection failed",
		})
		return
	}

	writeJSON(w, statusResponse{
		Status:  "connected",
		Message: "connected to the database",
	})
}

// generateRequest is the body of POST /generate-file.
type generateRequest struct {
	ProcessInput string `json:"process_input"`
}

// generateResponse is the success body of POST /generate-file.
type generateResponse struct {
	Message  string `json:"message"`
	FileName string `json:"file_name"`
}

// handleGenerateFile renders a new revision of a process's cost-forecast
// document.
func (s *Server) handleGenerateFile(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ProcessInput) == "" {
		writeError(w, r, http.StatusBadRequest, "process_input is required")
		return
	}

	res, err := s.generator.Generate(r.Context(), req.ProcessInput)
	if err != nil {
		// Zero records is a reported, recoverable condition; everything
		// else stays an opaque internal error for the client.
		if errors.Is(err, forecast.ErrNoRecords) {
			writeError(w, r, http.StatusNotFound, err.Error())
			return
		}
		logging.FromContext(r.Context()).Error("generation failed",
			"process", req.ProcessInput,
			"error", err,
		)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, generateResponse{
		Message:  "file generated",
		FileName: res.FileName,
	})
}

// handleDownloadFile streams a previously generated document, located by a
// recursive search under the generated-files root.
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	fileName := chi.URLParam(r, "fileName")

	// The name must be a bare filename; anything path-like is rejected
	// before touching the filesystem.
	if fileName == "" || fileName != filepath.Base(fileName) || strings.Contains(fileName, "..") {
		writeError(w, r, http.StatusNotFound, "file not found")
		return
	}

	path, err := s.findGenerated(fileName)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	http.ServeFile(w, r, path)
}

// errFileFound short-circuits the walk once the file has been located.
var errFileFound = errors.New("file found")

// findGenerated searches the generated root recursively for fileName.
func (s *Server) findGenerated(fileName string) (string, error) {
	var found string
	err := filepath.WalkDir(s.generatedRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == fileName {
			found = path
			return errFileFound
		}
		return nil
	})

	if errors.Is(err, errFileFound) {
		return found, nil
	}
	if err != nil {
		return "", err
	}
	return "", fs.ErrNotExist
}

// lastUpdateResponse is the body of GET /last-update.
type lastUpdateResponse struct {
	LastUpdate *string `json:"lastUpdate"`
}

// handleLastUpdate reads the single sync-marker row.
func (s *Server) handleLastUpdate(w http.ResponseWriter, r *http.Request) {
	at, ok, err := s.store.LastUpdate(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("last-update read failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	var body lastUpdateResponse
	if ok {
		ts := at.UTC().Format(time.RFC3339)
		body.LastUpdate = &ts
	}
	writeJSON(w, body)
}
