package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	conflicts       uint64
	totalDurationMs uint64
	submitted       uint64
	decided         uint64
	escalated       uint64
	sweepFailures   uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 409 {
		atomic.AddUint64(&c.conflicts, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) LeaveSubmitted() {
	atomic.AddUint64(&c.submitted, 1)
}

func (c *Collector) LeaveDecided() {
	atomic.AddUint64(&c.decided, 1)
}

// EscalationSweep records the outcome counts of one sweep.
func (c *Collector) EscalationSweep(escalated, failed int) {
	atomic.AddUint64(&c.escalated, uint64(escalated))
	atomic.AddUint64(&c.sweepFailures, uint64(failed))
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	conflicts := atomic.LoadUint64(&c.conflicts)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":           total,
		"errorsTotal":             errs,
		"conflictsTotal":          conflicts,
		"avgDurationMs":           avg,
		"totalDurationMs":         totalMs,
		"leaveSubmittedTotal":     atomic.LoadUint64(&c.submitted),
		"leaveDecidedTotal":       atomic.LoadUint64(&c.decided),
		"leaveEscalatedTotal":     atomic.LoadUint64(&c.escalated),
		"escalationFailuresTotal": atomic.LoadUint64(&c.sweepFailures),
	}
}
