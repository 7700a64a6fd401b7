package leave_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/notifications"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, evt audit.Event, before, after any) error {
	args := m.Called(ctx, evt, before, after)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Create(ctx context.Context, recipientID, ntype, title, body string) error {
	args := m.Called(ctx, recipientID, ntype, title, body)
	return args.Error(0)
}

func TestSubmitSurvivesSideEffectFailures(t *testing.T) {
	f := newFixture(t)

	rec := &mockRecorder{}
	rec.On("Record", mock.Anything, mock.MatchedBy(func(evt audit.Event) bool {
		return evt.Action == audit.ActionSubmitted
	}), mock.Anything, mock.Anything).Return(errors.New("audit store down"))
	notifier := &mockNotifier{}
	notifier.On("Create", mock.Anything, "m1", notifications.TypeLeaveAwaitingApproval, mock.Anything, mock.Anything).
		Return(errors.New("smtp down"))
	f.svc.Audit = rec
	f.svc.Notify = notifier

	req := f.mustSubmit("e1", typeAnnual, day(2025, 3, 17), day(2025, 3, 19))

	stored, err := f.store.GetRequest(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, stored.ID)
	rec.AssertExpectations(t)
	notifier.AssertExpectations(t)
}
