package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRuns struct {
	mu       sync.Mutex
	started  []string
	statuses []string
}

func (r *recordingRuns) StartRun(_ context.Context, jobType, _ string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, jobType)
	return "run-1", nil
}

func (r *recordingRuns) FinishRun(_ context.Context, _, status string, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
	return nil
}

func TestRunNowRecordsStatus(t *testing.T) {
	runs := &recordingRuns{}
	svc := New(runs)

	out, err := svc.RunNow(context.Background(), JobLeaveAccrual, "manual", func(context.Context) (any, error) {
		return map[string]int{"accrued": 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"accrued": 2}, out)

	_, err = svc.RunNow(context.Background(), JobLeaveAccrual, "manual", func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, []string{"completed", "failed"}, runs.statuses)
}

func TestEnqueueRunsOnWorker(t *testing.T) {
	svc := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	done := make(chan struct{})
	svc.Enqueue(JobPayrollEvent, "e1", func(context.Context) (any, error) {
		close(done)
		return nil, nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	svc := New(nil)
	for i := 0; i < cap(svc.queue)+5; i++ {
		svc.Enqueue(JobPayrollEvent, "e1", func(context.Context) (any, error) { return nil, nil })
	}
	assert.Len(t, svc.queue, cap(svc.queue))
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	svc := New(nil)
	assert.Error(t, svc.Schedule("not a cron", JobLeaveEscalation, nil))
	assert.NoError(t, svc.Schedule("@hourly", JobLeaveEscalation, func(context.Context) (any, error) { return nil, nil }))
	assert.NoError(t, svc.Schedule("", JobLeaveEscalation, nil))
}
