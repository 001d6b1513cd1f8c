// Package api exposes the HTTP submit/poll surface for download jobs.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"mslearn-downloader/internal/download"
	"mslearn-downloader/internal/job"
	"mslearn-downloader/internal/model"
)

// Server routes job submissions to the download manager and answers
// polls from the job tracker.
type Server struct {
	manager *download.Manager
	tracker *job.Tracker
	log     *logrus.Logger
}

// NewServer creates the API server around an already wired manager.
func NewServer(manager *download.Manager, tracker *job.Tracker, log *logrus.Logger) *Server {
	return &Server{manager: manager, tracker: tracker, log: log}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/download", s.handleDownload)
	mux.HandleFunc("/api/status/", s.handleStatus)
	mux.HandleFunc("/api/cancel/", s.handleCancel)
	mux.HandleFunc("/api/search", s.handleSearch)
	return mux
}

type downloadRequest struct {
	Items []model.ItemRequest `json:"items"`
}

type downloadResponse struct {
	JobID string `json:"job_id"`
}

// handleDownload accepts a batch of catalog items and starts a job.
//
// Method: POST
// Path:   /api/download
// Body:   {"items":[{"uid":"learn.intro-to-flows","type":"module"}]}
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.UID) == "" {
			http.Error(w, "item uid must not be empty", http.StatusBadRequest)
			return
		}
		if item.Type != "" {
			if _, err := model.ParseItemType(item.Type); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
	}

	// Jobs outlive the request; the submission context is only used
	// for tracker admission.
	id, err := s.manager.Submit(r.Context(), req.Items)
	if err != nil {
		if errors.Is(err, job.ErrCapacity) {
			http.Error(w, "too many active jobs", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.log.WithField("job", id).Infof("accepted job with %d items", len(req.Items))
	writeJSON(w, downloadResponse{JobID: id}, http.StatusAccepted)
}

// handleStatus returns the pollable snapshot of a job.
//
// Method: GET
// Path:   /api/status/{jobID}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/status/"), "/")
	if id == "" {
		http.Error(w, "missing job id", http.StatusBadRequest)
		return
	}

	snap, err := s.tracker.Snapshot(id)
	if err != nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, snap, http.StatusOK)
}

// handleCancel requests cancellation of a running job.
//
// Method: POST
// Path:   /api/cancel/{jobID}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/cancel/"), "/")
	if id == "" {
		http.Error(w, "missing job id", http.StatusBadRequest)
		return
	}

	if !s.tracker.Cancel(id) {
		http.Error(w, "job not found or already finished", http.StatusConflict)
		return
	}
	writeJSON(w, map[string]string{"job_id": id, "status": "cancelling"}, http.StatusAccepted)
}

// handleSearch looks up catalog items by title or course number.
//
// Method: GET
// Path:   /api/search?q={query}&type={modules|courses|learningPaths}
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "missing query", http.StatusBadRequest)
		return
	}

	var types []string
	if t := r.URL.Query().Get("type"); t != "" {
		types = strings.Split(t, ",")
	}

	results, err := s.manager.Catalog().Search(r.Context(), query, types)
	if err != nil {
		s.log.Errorf("search failed: %v", err)
		http.Error(w, "catalog search failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"results": results}, http.StatusOK)
}

func writeJSON(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
