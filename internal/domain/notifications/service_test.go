package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) Send(_ context.Context, from, to, subject, body string) error {
	f.sent = append(f.sent, to+"|"+subject)
	return f.err
}

func TestCreateStoresAndMails(t *testing.T) {
	store := NewMemoryStore()
	store.Emails["e1"] = "e1@example.com"
	mailer := &fakeMailer{}
	svc := New(store, mailer)

	require.NoError(t, svc.Create(context.Background(), "e1", TypeLeaveApproved, "Leave approved", "body"))

	items, err := svc.List(context.Background(), "e1", 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, TypeLeaveApproved, items[0].Type)
	assert.Equal(t, []string{"e1@example.com|Leave approved"}, mailer.sent)
}

func TestCreateIgnoresMailFailure(t *testing.T) {
	store := NewMemoryStore()
	store.Emails["e1"] = "e1@example.com"
	svc := New(store, &fakeMailer{err: errors.New("smtp down")})

	assert.NoError(t, svc.Create(context.Background(), "e1", TypeLeaveRejected, "Leave rejected", "body"))
	total, err := svc.Count(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestCreateSkipsEmptyRecipient(t *testing.T) {
	store := NewMemoryStore()
	svc := New(store, nil)
	require.NoError(t, svc.Create(context.Background(), "", TypeLeaveSubmitted, "x", "y"))
	total, _ := store.CountNotifications(context.Background(), "")
	assert.Zero(t, total)
}

func TestMarkRead(t *testing.T) {
	store := NewMemoryStore()
	svc := New(store, nil)
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, "e1", TypeLeaveSubmitted, "x", "y"))
	items, _ := svc.List(ctx, "e1", 10, 0)

	require.NoError(t, svc.MarkRead(ctx, "e1", items[0].ID))
	items, _ = svc.List(ctx, "e1", 10, 0)
	assert.NotNil(t, items[0].ReadAt)
}
