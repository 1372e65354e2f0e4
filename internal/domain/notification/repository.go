package notification

import (
	"context"

	"github.com/google/uuid"
)

// ListOptions pages a landlord's notifications, newest first.
type ListOptions struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

// Counts summarises a landlord's notifications.
type Counts struct {
	Total  int
	Unread int
}

type Repository interface {
	// Create persists n. When n.DedupeKey already exists it stores nothing and returns false.
	Create(ctx context.Context, n *Notification) (bool, error)
	List(ctx context.Context, landlordID uuid.UUID, opts ListOptions) ([]*Notification, error)
	Count(ctx context.Context, landlordID uuid.UUID, unreadOnly bool) (Counts, error)
	MarkRead(ctx context.Context, landlordID, id uuid.UUID) (*Notification, error)
	MarkAllRead(ctx context.Context, landlordID uuid.UUID) (int64, error)
}
