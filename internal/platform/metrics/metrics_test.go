package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(500, 30*time.Millisecond)
	c.Record(409, 20*time.Millisecond)
	c.LeaveSubmitted()
	c.EscalationSweep(3, 1)

	snap := c.Snapshot()
	assert.Equal(t, uint64(3), snap["requestsTotal"])
	assert.Equal(t, uint64(1), snap["errorsTotal"])
	assert.Equal(t, uint64(1), snap["conflictsTotal"])
	assert.Equal(t, float64(20), snap["avgDurationMs"])
	assert.Equal(t, uint64(1), snap["leaveSubmittedTotal"])
	assert.Equal(t, uint64(3), snap["leaveEscalatedTotal"])
	assert.Equal(t, uint64(1), snap["escalationFailuresTotal"])
}
