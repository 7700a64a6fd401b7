package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(start time.Time) (*Service, *MemoryStore) {
	store := NewMemoryStore()
	svc := New(store)
	now := start
	svc.Now = func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
	return svc, store
}

func TestRecordSnapshotsAndChecksum(t *testing.T) {
	svc, store := newTestService(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	err := svc.Record(ctx, Event{RequestID: "r1", Action: ActionSubmitted, ActorID: "e1"}, nil, map[string]string{"status": "PENDING"})
	require.NoError(t, err)

	events, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.JSONEq(t, `{"status":"PENDING"}`, string(events[0].After))
	assert.Empty(t, events[0].Before)
	assert.Equal(t, Checksum(events[0]), events[0].Checksum)
}

func TestTimelineNewestFirst(t *testing.T) {
	svc, _ := newTestService(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, Event{RequestID: "r1", Action: ActionSubmitted}, nil, nil))
	require.NoError(t, svc.Record(ctx, Event{RequestID: "r2", Action: ActionSubmitted}, nil, nil))
	require.NoError(t, svc.Record(ctx, Event{RequestID: "r1", Action: ActionApproved}, nil, nil))

	events, err := svc.Timeline(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, ActionApproved, events[0].Action)
	assert.Equal(t, ActionSubmitted, events[1].Action)
	assert.True(t, events[0].Verified)
}

func TestQueryFilters(t *testing.T) {
	svc, _ := newTestService(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, Event{RequestID: "r1", Action: ActionSubmitted, ActorID: "e1"}, nil, nil))
	require.NoError(t, svc.Record(ctx, Event{RequestID: "r1", Action: ActionAutoEscalated}, nil, nil))
	require.NoError(t, svc.Record(ctx, Event{Action: ActionAdjusted, ActorID: "hr1"}, nil, nil))

	events, total, err := svc.Query(ctx, Filter{ActorID: "hr1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, ActionAdjusted, events[0].Action)

	from := time.Date(2025, 5, 1, 9, 2, 0, 0, time.UTC)
	events, total, err = svc.Query(ctx, Filter{From: &from})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, events, 2)
}

func TestTamperedEventFailsVerification(t *testing.T) {
	svc, store := newTestService(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	require.NoError(t, svc.Record(ctx, Event{RequestID: "r1", Action: ActionApproved, Comment: "ok"}, nil, nil))

	store.events[0].Comment = "edited"

	events, err := svc.Timeline(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, events[0].Verified)
}

func TestTimelinePDF(t *testing.T) {
	svc, _ := newTestService(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	require.NoError(t, svc.Record(ctx, Event{RequestID: "r1", Action: ActionSubmitted, ActorID: "e1"}, nil, nil))

	data, err := svc.TimelinePDF(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, len(data) > 4 && string(data[:4]) == "%PDF")

	_, err = svc.TimelinePDF(ctx, "missing")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}
