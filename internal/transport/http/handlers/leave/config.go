package leavehandler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hrleave/internal/domain/leave"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

type adjustmentPayload struct {
	EmployeeID    string `json:"employeeId"`
	LeaveTypeID   string `json:"leaveTypeId"`
	Change        string `json:"change"`
	Reason        string `json:"reason"`
	EffectiveDate string `json:"effectiveDate"`
}

type delegationPayload struct {
	ManagerID   string   `json:"managerId"`
	DelegateID  string   `json:"delegateId"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Departments []string `json:"departments"`
	LeaveTypes  []string `json:"leaveTypes"`
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	employeeID := actor.EmployeeID
	if requested := r.URL.Query().Get("employeeId"); requested != "" && requested != employeeID {
		if !actor.IsHR {
			api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this balance", middleware.GetRequestID(r.Context()))
			return
		}
		employeeID = requested
	}
	bal, err := h.Service.GetBalance(r.Context(), employeeID, chi.URLParam(r, "leaveTypeID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, bal, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAdjustment(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var payload adjustmentPayload
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employee id required")
	v.Required("leaveTypeId", payload.LeaveTypeID, "leave type required")
	v.Required("reason", payload.Reason, "reason required")
	change := v.Decimal("change", payload.Change, true)
	effective := v.OptionalDate("effectiveDate", payload.EffectiveDate)
	if rejectIssues(w, r, v) {
		return
	}

	in := leave.AdjustmentInput{
		EmployeeID:  payload.EmployeeID,
		LeaveTypeID: payload.LeaveTypeID,
		Change:      change,
		Reason:      payload.Reason,
	}
	if effective != nil {
		in.EffectiveDate = *effective
	}
	adj, err := h.Service.ManualAdjustment(r.Context(), actor, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, adj, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListLeaveTypes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleConfigureType(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var payload leave.LeaveType
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("code", payload.Code, "code required")
	v.Required("name", payload.Name, "name required")
	if rejectIssues(w, r, v) {
		return
	}
	payload.Code = strings.ToUpper(strings.TrimSpace(payload.Code))
	lt, err := h.Service.ConfigureLeaveType(r.Context(), actor, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, lt, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEntitlements(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListEntitlements(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Page(w, items, len(items), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleConfigureEntitlement(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var payload leave.LeaveEntitlement
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("leaveTypeId", payload.LeaveTypeID, "leave type required")
	if payload.Days.IsNegative() {
		v.Add("days", "must not be negative")
	}
	if rejectIssues(w, r, v) {
		return
	}
	ent, err := h.Service.ConfigureEntitlement(r.Context(), actor, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, ent, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListFlows(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListApprovalFlows(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleConfigureFlow(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var payload leave.ApprovalConfig
	if !decode(w, r, &payload) {
		return
	}
	cfg, err := h.Service.ConfigureApprovalFlow(r.Context(), actor, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, cfg, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListDelegations(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	items, err := h.Service.ListDelegations(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateDelegation(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var payload delegationPayload
	if !decode(w, r, &payload) {
		return
	}
	if payload.ManagerID == "" {
		payload.ManagerID = actor.EmployeeID
	}
	v := shared.NewValidator()
	v.Required("delegateId", payload.DelegateID, "delegate required")
	start, _ := v.Date("startDate", payload.StartDate)
	end := v.OptionalDate("endDate", payload.EndDate)
	if end != nil {
		v.DateOrder("startDate", start, "endDate", *end)
	}
	if rejectIssues(w, r, v) {
		return
	}

	d, err := h.Service.CreateDelegation(r.Context(), actor, leave.DelegationInput{
		ManagerID:   payload.ManagerID,
		DelegateID:  payload.DelegateID,
		StartDate:   start,
		EndDate:     end,
		Departments: payload.Departments,
		LeaveTypes:  payload.LeaveTypes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, d, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRevokeDelegation(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	if err := h.Service.RevokeDelegation(r.Context(), actor, chi.URLParam(r, "delegationID")); err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "revoked"}, middleware.GetRequestID(r.Context()))
}
