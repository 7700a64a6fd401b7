package notifications

import "context"

type StoreAPI interface {
	CreateNotification(ctx context.Context, recipientID, ntype, title, body string) error
	RecipientEmail(ctx context.Context, recipientID string) (string, error)
	ListNotifications(ctx context.Context, recipientID string, limit, offset int) ([]Notification, error)
	CountNotifications(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) error
}
