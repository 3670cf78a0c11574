package service

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/entityops/einfiler/api/schemas"
	"github.com/entityops/einfiler/internal/extract"
)

// statusCode maps a run outcome to the HTTP status reported to the
// caller. The result body carries the full detail either way.
func statusCode(status schemas.RunStatus) int {
	switch status {
	case schemas.StatusCompleted:
		return http.StatusOK
	case schemas.StatusTimedOut:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// handleRun executes the wizard synchronously for the posted case record.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var record schemas.CaseRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(record.RecordID) == "" {
		s.writeError(w, http.StatusBadRequest, "record_id is required")
		return
	}

	result := s.runner.Execute(r.Context(), record)
	s.writeJSON(w, statusCode(result.Status), result)
}

// handleRunHistory lists past attempts for a record, oldest first.
func (s *Server) handleRunHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}
	recordID := chi.URLParam(r, "recordID")

	runs, err := s.history.RunsForRecord(r.Context(), recordID)
	if err != nil {
		s.logger.Error("Failed to read run history.",
			zap.String("record_id", recordID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not read run history")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"record_id": recordID,
		"runs":      runs,
	})
}

// handleConfirmation records the proceed/abort decision for a run blocked
// on the review page.
func (s *Server) handleConfirmation(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")

	var body schemas.Confirmation
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.decisions.Put(recordID, body.Proceed)
	s.logger.Info("Confirmation received.",
		zap.String("record_id", recordID), zap.Bool("proceed", body.Proceed))
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"record_id": recordID,
		"proceed":   body.Proceed,
	})
}

// handleExport serves the most recent debug artifact.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.artifacts == nil {
		s.writeError(w, http.StatusServiceUnavailable, "export is disabled")
		return
	}
	path := s.artifacts.LastPath()
	if path == "" {
		s.writeError(w, http.StatusNotFound, "no export has been written yet")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="salesforce_data.csv"`)
	http.ServeFile(w, r, path)
}

// handleSalesforceFetch pulls the case from the CRM by id, resolves its
// fields, and writes the CSV debug artifact. It does not run the wizard;
// a follow-up POST /runs does that.
func (s *Server) handleSalesforceFetch(w http.ResponseWriter, r *http.Request) {
	if s.fetcher == nil {
		s.writeError(w, http.StatusServiceUnavailable, "salesforce is not configured")
		return
	}

	var req struct {
		RecordID string `json:"record_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.RecordID) == "" {
		s.writeError(w, http.StatusBadRequest, "record_id is required")
		return
	}

	record, err := s.fetcher.FetchCase(r.Context(), req.RecordID)
	if err != nil {
		s.logger.Error("Failed to fetch case record.",
			zap.String("record_id", req.RecordID), zap.Error(err))
		s.writeError(w, http.StatusNotFound, "could not fetch case record "+req.RecordID)
		return
	}

	fields := extract.Resolve(record, s.logger)

	var path string
	if s.artifacts != nil {
		path, err = s.artifacts.Export(fields)
		if err != nil {
			s.logger.Error("Failed to write fetched-case artifact.",
				zap.String("record_id", req.RecordID), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to save fetched data")
			return
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "case data fetched",
		"path":    path,
		"record":  record,
	})
}
