package leave

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunEscalationsRejectsConcurrentSweep(t *testing.T) {
	e := &Escalator{Policy: DefaultEscalationPolicy(), running: true}
	_, err := e.RunEscalations(context.Background(), time.Now())
	assert.ErrorIs(t, err, ErrSweepInProgress)
}

func TestSkipBetween(t *testing.T) {
	steps := []ApprovalStep{
		{Status: StepPending},
		{Status: StepWaiting},
		{Status: StepSkipped},
		{Status: StepWaiting},
		{Status: StepWaiting},
	}
	skipBetween(steps, 0, 4)
	assert.Equal(t, StepSkipped, steps[1].Status)
	assert.Equal(t, StepSkipped, steps[3].Status)
	assert.Equal(t, StepWaiting, steps[4].Status)
}
