package leavehandler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

type calendarPayload struct {
	Year    int    `json:"year"`
	Country string `json:"country"`
}

type holidayPayload struct {
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

type blockedPeriodPayload struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason"`
}

func (h *Handler) handleCreateCalendar(w http.ResponseWriter, r *http.Request) {
	var payload calendarPayload
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Year("year", itoa(payload.Year))
	if rejectIssues(w, r, v) {
		return
	}
	cal, err := h.Service.Calendar.CreateCalendar(r.Context(), payload.Year, strings.ToUpper(strings.TrimSpace(payload.Country)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, cal, middleware.GetRequestID(r.Context()))
}

// handleListCalendars serves /calendars/{year}; "all" lists every year.
func (h *Handler) handleListCalendars(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "year")
	year := 0
	if raw != "all" {
		v := shared.NewValidator()
		year = v.Year("year", raw)
		if rejectIssues(w, r, v) {
			return
		}
	}
	items, err := h.Service.Calendar.ListCalendars(r.Context(), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAddHoliday(w http.ResponseWriter, r *http.Request) {
	var payload holidayPayload
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	date, _ := v.Date("date", payload.Date)
	v.Required("name", payload.Name, "name required")
	if rejectIssues(w, r, v) {
		return
	}
	holiday, err := h.Service.Calendar.AddHoliday(r.Context(), chi.URLParam(r, "calendarID"), date, payload.Name, payload.Recurring)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, holiday, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRemoveHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Calendar.RemoveHoliday(r.Context(), chi.URLParam(r, "calendarID"), chi.URLParam(r, "holidayID")); err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "removed"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAddBlockedPeriod(w http.ResponseWriter, r *http.Request) {
	var payload blockedPeriodPayload
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if rejectIssues(w, r, v) {
		return
	}
	period, err := h.Service.Calendar.AddBlockedPeriod(r.Context(), chi.URLParam(r, "calendarID"), start, end, payload.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, period, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRemoveBlockedPeriod(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Calendar.RemoveBlockedPeriod(r.Context(), chi.URLParam(r, "calendarID"), chi.URLParam(r, "periodID")); err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "removed"}, middleware.GetRequestID(r.Context()))
}
