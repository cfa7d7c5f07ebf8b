package http

import (
	"fmt"
	"net/http"
	"strconv"

	"payables/internal/log"
	"payables/internal/middleware/trace"
)

// handleCreateAgingReport builds the report inline (201) or, with async set,
// queues it for the report worker (202).
func (s *Server) handleCreateAgingReport(w http.ResponseWriter, r *http.Request, userID string) {
	async, err := boolParam(r.URL.Query(), "async")
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}

	if async {
		requestID := trace.GetRequestID(r.Context())
		if requestID == "" {
			requestID = trace.GenerateRequestID()
		}
		if err := s.deps.Reports.Request(r.Context(), userID, requestID); err != nil {
			s.fail(w, r, log.OpGenerate, err)
			return
		}
		NewJSONResponse().Status(http.StatusAccepted).Body(map[string]string{
			"status":     "queued",
			"request_id": requestID,
		}).Write(w)
		return
	}

	rep, err := s.deps.Reports.Generate(r.Context(), userID)
	if err != nil {
		s.fail(w, r, log.OpGenerate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(newReportResponse(rep)).Write(w)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request, userID string) {
	reps, err := s.deps.Reports.List(r.Context(), userID)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	out := make([]reportResponse, 0, len(reps))
	for _, rep := range reps {
		out = append(out, newReportResponse(rep))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request, userID string) {
	rep, err := s.deps.Reports.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(newReportResponse(rep)).Write(w)
}

// handleDownloadReport streams the stored CSV back to its owner.
func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request, userID string) {
	rep, body, err := s.deps.Reports.Download(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="aging-%s.csv"`, rep.ID))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
