package notifications

import (
	"context"
	"log/slog"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store        StoreAPI
	Mailer       Mailer
	EmailEnabled bool
	DefaultFrom  string
}

func New(store StoreAPI, mailer Mailer) *Service {
	return &Service{store: store, Mailer: mailer, EmailEnabled: mailer != nil, DefaultFrom: "no-reply@example.com"}
}

// Create stores an in-app notification for the employee and, when email is
// enabled, mails it. Email failures are logged and never returned.
func (s *Service) Create(ctx context.Context, recipientID, ntype, title, body string) error {
	if recipientID == "" {
		return nil
	}
	if err := s.store.CreateNotification(ctx, recipientID, ntype, title, body); err != nil {
		return err
	}

	if s.Mailer == nil || !s.EmailEnabled {
		return nil
	}

	email, err := s.store.RecipientEmail(ctx, recipientID)
	if err != nil {
		slog.Warn("notification email lookup failed", "err", err)
		return nil
	}
	if email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, email, title, body); err != nil {
		slog.Warn("notification email send failed", "err", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, recipientID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, recipientID, limit, offset)
}

func (s *Service) Count(ctx context.Context, recipientID string) (int, error) {
	return s.store.CountNotifications(ctx, recipientID)
}

func (s *Service) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	return s.store.MarkRead(ctx, recipientID, notificationID)
}
