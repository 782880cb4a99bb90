package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/internal/vector"
)

// maxRequestBytes bounds a search request body.
const maxRequestBytes = 1 << 20

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, models.NewErrorResponse("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		s.respondJSON(w, http.StatusBadRequest, models.NewErrorResponse(err.Error()))
		return
	}
	s.logger.Debug("search request",
		zap.String("text", req.Text),
		zap.String("doc_type", req.DocType),
		zap.Strings("date_range", req.DateRange),
		zap.Int("citation_min", req.CitationMin),
		zap.String("field_of_research", req.FieldOfResearch))
	s.respondJSON(w, http.StatusOK, s.search.Search(r.Context(), &req))
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	names, err := s.search.ListCollections(r.Context())
	if err != nil {
		s.logger.Error("list collections failed", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string][]string{"collections": names})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.search.Stats(r.Context())
	if err != nil {
		if errors.Is(err, vector.ErrCollectionNotFound) {
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
