package leavehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/leave"
	"hrleave/internal/platform/jobs"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

type Handler struct {
	Service   *leave.Service
	Escalator *leave.Escalator
	Jobs      *jobs.Service
	Perms     middleware.PermissionStore
}

func NewHandler(service *leave.Service, escalator *leave.Escalator, jobsSvc *jobs.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Escalator: escalator, Jobs: jobsSvc, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermLeaveRead, h.Perms)
	write := middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)
	approve := middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)
	configure := middleware.RequirePermission(auth.PermLeaveConfigure, h.Perms)
	runJobs := middleware.RequirePermission(auth.PermLeaveJobs, h.Perms)

	r.Route("/leave", func(r chi.Router) {
		r.With(write).Post("/requests", h.handleSubmit)
		r.With(read).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(write).Patch("/requests/{requestID}", h.handleEdit)
		r.With(write).Post("/requests/{requestID}/cancel", h.handleCancel)
		r.With(approve).Post("/requests/{requestID}/decision", h.handleDecision)
		r.With(configure).Post("/requests/{requestID}/finalize", h.handleFinalize)
		r.With(read).Get("/history", h.handleHistory)
		r.With(approve).Get("/team", h.handleTeam)

		r.With(read).Get("/balances/{leaveTypeID}", h.handleBalance)
		r.With(configure).Post("/adjustments", h.handleAdjustment)

		r.With(read).Get("/types", h.handleListTypes)
		r.With(configure).Post("/types", h.handleConfigureType)
		r.With(configure).Get("/entitlements", h.handleListEntitlements)
		r.With(configure).Post("/entitlements", h.handleConfigureEntitlement)
		r.With(configure).Get("/approval-flows", h.handleListFlows)
		r.With(configure).Post("/approval-flows", h.handleConfigureFlow)
		r.With(approve).Get("/delegations", h.handleListDelegations)
		r.With(approve).Post("/delegations", h.handleCreateDelegation)
		r.With(approve).Delete("/delegations/{delegationID}", h.handleRevokeDelegation)

		r.With(configure).Post("/calendars", h.handleCreateCalendar)
		r.With(read).Get("/calendars/{year}", h.handleListCalendars)
		r.With(configure).Post("/calendars/{calendarID}/holidays", h.handleAddHoliday)
		r.With(configure).Delete("/calendars/{calendarID}/holidays/{holidayID}", h.handleRemoveHoliday)
		r.With(configure).Post("/calendars/{calendarID}/blocked-periods", h.handleAddBlockedPeriod)
		r.With(configure).Delete("/calendars/{calendarID}/blocked-periods/{periodID}", h.handleRemoveBlockedPeriod)

		r.With(runJobs).Post("/jobs/accrual", h.handleRunAccrual)
		r.With(runJobs).Post("/jobs/carry-over", h.handleRunCarryOver)
		r.With(runJobs).Post("/jobs/escalations", h.handleRunEscalations)
	})
}

func actorOf(user auth.UserContext) leave.Actor {
	return leave.Actor{EmployeeID: user.EmployeeID, IsHR: user.IsHR()}
}

// currentActor writes a 401 and returns false when the request carries no
// user bound to an employee.
func currentActor(w http.ResponseWriter, r *http.Request) (leave.Actor, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return leave.Actor{}, false
	}
	if user.EmployeeID == "" && !user.IsHR() {
		api.Fail(w, http.StatusForbidden, "forbidden", "user is not linked to an employee", middleware.GetRequestID(r.Context()))
		return leave.Actor{}, false
	}
	return actorOf(user), true
}

func decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return false
	}
	return true
}

// writeError maps the engine's error taxonomy to HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	var vErr *leave.ValidationError
	switch {
	case errors.As(err, &vErr):
		api.FailWithDetails(w, http.StatusBadRequest, "validation_error", vErr.Message, map[string]string{"rule": vErr.Rule}, requestID)
	case errors.Is(err, leave.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, leave.ErrUnauthorized):
		api.Fail(w, http.StatusForbidden, "forbidden", "not authorized for this operation", requestID)
	case errors.Is(err, leave.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, leave.ErrConflict), errors.Is(err, leave.ErrSweepInProgress):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID)
	default:
		slog.Error("leave operation failed", "requestId", requestID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}

func rejectIssues(w http.ResponseWriter, r *http.Request, v *shared.Validator) bool {
	return v.Reject(w, middleware.GetRequestID(r.Context()))
}
