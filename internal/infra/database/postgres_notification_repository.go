package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"landten/internal/domain/notification"

	"github.com/google/uuid"
)

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

const notificationColumns = `id, landlord_id, type, title, message, is_read, tenant_id, payment_id, dedupe_key, created_at`

func scanNotification(row rowScanner) (*notification.Notification, error) {
	n := notification.Notification{}
	var dedupe sql.NullString
	if err := row.Scan(&n.ID, &n.LandlordID, &n.Type, &n.Title, &n.Message, &n.IsRead, &n.TenantID, &n.PaymentID,
		&dedupe, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.DedupeKey = dedupe.String
	return &n, nil
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *notification.Notification) (bool, error) {
	query := `INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING
		RETURNING id`
	dedupe := sql.NullString{String: n.DedupeKey, Valid: n.DedupeKey != ""}
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, query, n.ID, n.LandlordID, n.Type, n.Title, n.Message, n.IsRead, n.TenantID,
		n.PaymentID, dedupe, n.CreatedAt).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error creating notification: %w", err)
	}
	return true, nil
}

func (r *PostgresNotificationRepository) List(ctx context.Context, landlordID uuid.UUID, opts notification.ListOptions) ([]*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE landlord_id = $1 AND (NOT $2 OR NOT is_read)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.db.QueryContext(ctx, query, landlordID, opts.UnreadOnly, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*notification.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return notifications, nil
}

func (r *PostgresNotificationRepository) Count(ctx context.Context, landlordID uuid.UUID, unreadOnly bool) (notification.Counts, error) {
	query := `SELECT COUNT(*) FILTER (WHERE NOT $2 OR NOT is_read), COUNT(*) FILTER (WHERE NOT is_read)
		FROM notifications WHERE landlord_id = $1`
	c := notification.Counts{}
	if err := r.db.QueryRowContext(ctx, query, landlordID, unreadOnly).Scan(&c.Total, &c.Unread); err != nil {
		return c, fmt.Errorf("error counting notifications: %w", err)
	}
	return c, nil
}

func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, landlordID, id uuid.UUID) (*notification.Notification, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND landlord_id = $2 RETURNING ` + notificationColumns
	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id, landlordID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notification.ErrNotFound
		}
		return nil, fmt.Errorf("error marking notification read: %w", err)
	}
	return n, nil
}

func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, landlordID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE landlord_id = $1 AND NOT is_read`, landlordID)
	if err != nil {
		return 0, fmt.Errorf("error marking notifications read: %w", err)
	}
	return res.RowsAffected()
}
