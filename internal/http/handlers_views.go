package http

import (
	"net/http"

	"payables/internal/log"
	"payables/internal/services"
)

// handleCalendar serves the month grid. next and previous move one month
// from year/month, which default to the current month.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request, userID string) {
	params, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	step, err := services.StepFromFlags(params.Next, params.Prev)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	month, err := s.deps.Calendar.Month(r.Context(), userID, params.Year, params.Month, step)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(newCalendarResponse(month)).Write(w)
}

func (s *Server) handleVendors(w http.ResponseWriter, r *http.Request, userID string) {
	vendors, err := s.deps.Vendors.List(r.Context(), userID)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	if vendors == nil {
		vendors = []services.VendorView{}
	}
	NewJSONResponse().Body(vendors).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, userID string) {
	stats, err := s.deps.Dashboard.Stats(r.Context(), userID)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(dashboardResponse{
		DueSoon: stats.DueSoon,
		Overdue: stats.Overdue,
		Paid:    stats.Paid,
	}).Write(w)
}
