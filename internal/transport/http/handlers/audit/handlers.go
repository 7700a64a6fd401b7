package audithandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/auth"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

// RequestViewer reports whether user may read the timeline of a leave request.
type RequestViewer func(ctx context.Context, user auth.UserContext, requestID string) (bool, error)

type Handler struct {
	Service *audit.Service
	Perms   middleware.PermissionStore
	CanView RequestViewer
}

func NewHandler(service *audit.Service, perms middleware.PermissionStore, canView RequestViewer) *Handler {
	return &Handler{Service: service, Perms: perms, CanView: canView}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/logs", h.handleListLogs)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}/timeline", h.handleTimeline)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}/timeline.pdf", h.handleTimelinePDF)
	})
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	v := shared.NewValidator()
	page := shared.ParsePagination(r, 100, 500)
	filter := audit.Filter{
		RequestID: query.Get("requestId"),
		Action:    query.Get("action"),
		ActorID:   query.Get("actorId"),
		From:      v.OptionalDate("from", query.Get("from")),
		To:        v.OptionalDate("to", query.Get("to")),
		Limit:     page.Limit,
		Offset:    page.Offset,
	}
	if filter.From != nil && filter.To != nil {
		v.DateOrder("from", *filter.From, "to", *filter.To)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	events, total, err := h.Service.Query(r.Context(), filter)
	if err != nil {
		slog.Warn("audit query failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit logs", middleware.GetRequestID(r.Context()))
		return
	}

	api.Page(w, events, total, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	if !h.allowed(w, r, requestID) {
		return
	}
	events, err := h.Service.Timeline(r.Context(), requestID)
	if err != nil {
		slog.Warn("audit timeline failed", "requestId", requestID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "audit_timeline_failed", "failed to load timeline", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, events, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTimelinePDF(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	if !h.allowed(w, r, requestID) {
		return
	}
	doc, err := h.Service.TimelinePDF(r.Context(), requestID)
	if errors.Is(err, audit.ErrEntryNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "no audit entries for request", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		slog.Warn("audit timeline pdf failed", "requestId", requestID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to render timeline", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=leave-"+requestID+"-timeline.pdf")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		slog.Warn("audit timeline pdf write failed", "err", err)
	}
}

// allowed admits audit readers outright and otherwise defers to CanView.
func (h *Handler) allowed(w http.ResponseWriter, r *http.Request, requestID string) bool {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return false
	}
	if middleware.Allowed(r, h.Perms, auth.PermAuditRead) {
		return true
	}
	if h.CanView != nil {
		ok, err := h.CanView(r.Context(), user, requestID)
		if err != nil {
			slog.Warn("timeline access check failed", "requestId", requestID, "err", err)
		}
		if ok {
			return true
		}
	}
	api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this timeline", middleware.GetRequestID(r.Context()))
	return false
}
