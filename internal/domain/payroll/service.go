package payroll

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"hrleave/internal/platform/jobs"
)

type Enqueuer interface {
	Enqueue(jobType, key string, run func(context.Context) (any, error))
}

type StoreAPI interface {
	InsertEvent(ctx context.Context, evt Event) error
	ListEvents(ctx context.Context, employeeID string, limit int) ([]Event, error)
}

// Publisher writes leave events to the payroll outbox on the job queue, so
// the request path never waits on payroll.
type Publisher struct {
	store StoreAPI
	queue Enqueuer
}

func NewPublisher(store StoreAPI, queue Enqueuer) *Publisher {
	return &Publisher{store: store, queue: queue}
}

func (p *Publisher) Publish(ctx context.Context, evt Event) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if p.queue == nil {
		if err := p.store.InsertEvent(ctx, evt); err != nil {
			slog.Warn("payroll event insert failed", "requestId", evt.RequestID, "err", err)
		}
		return
	}
	p.queue.Enqueue(jobs.JobPayrollEvent, evt.EmployeeID, func(ctx context.Context) (any, error) {
		return map[string]string{"eventId": evt.ID, "type": string(evt.Type)}, p.store.InsertEvent(ctx, evt)
	})
}

func (p *Publisher) Events(ctx context.Context, employeeID string, limit int) ([]Event, error) {
	return p.store.ListEvents(ctx, employeeID, limit)
}
