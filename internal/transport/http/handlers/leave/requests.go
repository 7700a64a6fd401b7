package leavehandler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hrleave/internal/domain/leave"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

type submitPayload struct {
	EmployeeID     string            `json:"employeeId"`
	LeaveTypeID    string            `json:"leaveTypeId"`
	StartDate      string            `json:"startDate"`
	EndDate        string            `json:"endDate"`
	Justification  string            `json:"justification"`
	Attachments    []string          `json:"attachments"`
	MissionDetails map[string]string `json:"missionDetails"`
	IsPostLeave    bool              `json:"isPostLeave"`
}

type editPayload struct {
	StartDate      *string           `json:"startDate"`
	EndDate        *string           `json:"endDate"`
	Justification  *string           `json:"justification"`
	Attachments    *[]string         `json:"attachments"`
	MissionDetails map[string]string `json:"missionDetails"`
}

type decisionPayload struct {
	Action  string `json:"action"`
	Comment string `json:"comment"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var payload submitPayload
	if !decode(w, r, &payload) {
		return
	}

	// HR may file on behalf of an employee; everyone else files for themselves.
	employeeID := actor.EmployeeID
	if actor.IsHR && strings.TrimSpace(payload.EmployeeID) != "" {
		employeeID = strings.TrimSpace(payload.EmployeeID)
	}

	v := shared.NewValidator()
	v.Required("employeeId", employeeID, "employee id required")
	v.Required("leaveTypeId", payload.LeaveTypeID, "leave type required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if rejectIssues(w, r, v) {
		return
	}

	req, err := h.Service.Submit(r.Context(), leave.SubmitInput{
		EmployeeID:     employeeID,
		LeaveTypeID:    payload.LeaveTypeID,
		StartDate:      start,
		EndDate:        end,
		Justification:  payload.Justification,
		Attachments:    payload.Attachments,
		MissionDetails: payload.MissionDetails,
		IsPostLeave:    payload.IsPostLeave,
		SubmittedBy:    actor.EmployeeID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	req, err := h.Service.GetRequest(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !h.Service.CanView(r.Context(), actor, req) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this request", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var payload editPayload
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	in := leave.EditInput{
		Justification:  payload.Justification,
		Attachments:    payload.Attachments,
		MissionDetails: payload.MissionDetails,
	}
	if payload.StartDate != nil {
		if start, ok := v.Date("startDate", *payload.StartDate); ok {
			in.StartDate = &start
		}
	}
	if payload.EndDate != nil {
		if end, ok := v.Date("endDate", *payload.EndDate); ok {
			in.EndDate = &end
		}
	}
	if rejectIssues(w, r, v) {
		return
	}

	req, err := h.Service.Edit(r.Context(), actor.EmployeeID, chi.URLParam(r, "requestID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	req, err := h.Service.Cancel(r.Context(), actor.EmployeeID, chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Decide)
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Finalize)
}

type decideFunc func(ctx context.Context, actor leave.Actor, requestID string, decision leave.Decision, comment string) (leave.LeaveRequest, error)

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn decideFunc) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var payload decisionPayload
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("action", payload.Action, "action required")
	v.OneOf("action", payload.Action, []string{string(leave.DecisionApprove), string(leave.DecisionReject)}, "must be APPROVE or REJECT")
	if rejectIssues(w, r, v) {
		return
	}

	decision := leave.Decision(strings.ToUpper(strings.TrimSpace(payload.Action)))
	req, err := fn(r.Context(), actor, chi.URLParam(r, "requestID"), decision, payload.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	employeeID := actor.EmployeeID
	if requested := r.URL.Query().Get("employeeId"); requested != "" && requested != employeeID {
		if !actor.IsHR {
			api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this history", middleware.GetRequestID(r.Context()))
			return
		}
		employeeID = requested
	}

	page := shared.ParsePagination(r, 50, 200)
	items, err := h.Service.History(r.Context(), employeeID, parseStatuses(r), page.Limit, page.Offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	items, err := h.Service.TeamRequests(r.Context(), actor.EmployeeID, parseStatuses(r), page.Limit, page.Offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func parseStatuses(r *http.Request) []leave.RequestStatus {
	var out []leave.RequestStatus
	for _, raw := range shared.ParseList(r.URL.Query().Get("status")) {
		out = append(out, leave.RequestStatus(strings.ToUpper(raw)))
	}
	return out
}
