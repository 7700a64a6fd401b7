package leavehandler

import (
	"context"
	"net/http"
	"strconv"

	"hrleave/internal/platform/jobs"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

type carryOverPayload struct {
	Year int `json:"year"`
}

func (h *Handler) handleRunAccrual(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, r, jobs.JobLeaveAccrual, "manual", func(ctx context.Context) (any, error) {
		return h.Service.TriggerAccrual(ctx, h.Service.Now())
	})
}

func (h *Handler) handleRunCarryOver(w http.ResponseWriter, r *http.Request) {
	var payload carryOverPayload
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Year("year", itoa(payload.Year))
	if rejectIssues(w, r, v) {
		return
	}
	h.runJob(w, r, jobs.JobLeaveCarryOver, itoa(payload.Year), func(ctx context.Context) (any, error) {
		return h.Service.TriggerCarryOver(ctx, payload.Year)
	})
}

func (h *Handler) handleRunEscalations(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, r, jobs.JobLeaveEscalation, "manual", func(ctx context.Context) (any, error) {
		return h.Escalator.RunEscalations(ctx, h.Service.Now())
	})
}

// runJob executes synchronously so the caller gets the summary back; the run
// is still recorded in job_runs like a scheduled one.
func (h *Handler) runJob(w http.ResponseWriter, r *http.Request, jobType, key string, run func(context.Context) (any, error)) {
	var (
		out any
		err error
	)
	if h.Jobs != nil {
		out, err = h.Jobs.RunNow(r.Context(), jobType, key, run)
	} else {
		out, err = run(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
