package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

const (
	JobLeaveAccrual    = "leave_accrual"
	JobLeaveCarryOver  = "leave_carry_over"
	JobLeaveEscalation = "leave_escalation"
	JobPayrollEvent    = "payroll_leave_event"
)

// RunStore persists one row per job execution. A nil RunStore disables
// bookkeeping.
type RunStore interface {
	StartRun(ctx context.Context, jobType, key string) (string, error)
	FinishRun(ctx context.Context, runID, status string, details []byte) error
}

type Service struct {
	Runs  RunStore
	queue chan job
	cron  *cron.Cron
	wg    sync.WaitGroup
}

type job struct {
	Type string
	Key  string
	Run  func(context.Context) (any, error)
}

func New(runs RunStore) *Service {
	return &Service{
		Runs:  runs,
		queue: make(chan job, 128),
		cron:  cron.New(),
	}
}

// Schedule registers run under a standard five-field cron expression or a
// descriptor such as "@hourly". Each tick enqueues the job.
func (s *Service) Schedule(spec, jobType string, run func(context.Context) (any, error)) error {
	if spec == "" {
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		s.Enqueue(jobType, "schedule", run)
	})
	return err
}

func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker(ctx)
	}()
	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}

// Wait blocks until the worker has exited after the start context is done.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Enqueue(jobType, key string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Key: key, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType, "key", key)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, key string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Key: key, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "key", j.Key, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.Runs != nil {
		id, err := s.Runs.StartRun(ctx, j.Type, j.Key)
		if err != nil {
			slog.Warn("job run insert failed", "err", err)
		}
		runID = id
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	if runID == "" {
		return details, err
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if updErr := s.Runs.FinishRun(ctx, runID, status, detailsJSON); updErr != nil {
		slog.Warn("job run update failed", "err", updErr)
	}
	return details, err
}
