package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"landten/internal/domain/clock"
	"landten/internal/domain/property"
	"landten/internal/domain/schedule"
	"landten/internal/domain/tenant"

	"github.com/google/uuid"
)

type PostgresTenantRepository struct {
	db *sql.DB
}

func NewPostgresTenantRepository(db *sql.DB) *PostgresTenantRepository {
	return &PostgresTenantRepository{db: db}
}

const tenantColumns = `t.id, t.room_id, t.name, t.email, t.phone, t.move_in_date, t.move_out_date, t.is_active,
	t.notes, t.password_hash, t.telegram_chat_id, t.created_at, t.updated_at`

const placementQuery = `SELECT ` + tenantColumns + `, r.name, pr.id, pr.name, pr.landlord_id
	FROM tenants t
	JOIN rooms r ON r.id = t.room_id
	JOIN properties pr ON pr.id = r.property_id`

func scanTenant(row rowScanner, extra ...any) (*tenant.Tenant, error) {
	t := tenant.Tenant{}
	dest := []any{&t.ID, &t.RoomID, &t.Name, &t.Email, &t.Phone, &t.MoveInDate, &t.MoveOutDate, &t.IsActive,
		&t.Notes, &t.PasswordHash, &t.TelegramChatID, &t.CreatedAt, &t.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	t.MoveInDate = clock.DateOf(t.MoveInDate)
	if t.MoveOutDate.Valid {
		t.MoveOutDate.Time = clock.DateOf(t.MoveOutDate.Time)
	}
	return &t, nil
}

func scanPlacement(row rowScanner) (*tenant.Placement, error) {
	pl := tenant.Placement{}
	t, err := scanTenant(row, &pl.RoomName, &pl.PropertyID, &pl.PropertyName, &pl.LandlordID)
	if err != nil {
		return nil, err
	}
	pl.Tenant = t
	return &pl, nil
}

func (r *PostgresTenantRepository) Onboard(ctx context.Context, t *tenant.Tenant, s *schedule.Schedule) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var occupied bool
		err := tx.QueryRowContext(ctx, `SELECT is_occupied FROM rooms WHERE id = $1 FOR UPDATE`, t.RoomID).Scan(&occupied)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return property.ErrRoomNotFound
			}
			return fmt.Errorf("error locking room: %w", err)
		}
		if occupied {
			return tenant.ErrRoomOccupied
		}

		query := `INSERT INTO tenants (id, room_id, name, email, phone, move_in_date, move_out_date, is_active,
				notes, password_hash, telegram_chat_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
		_, err = tx.ExecContext(ctx, query, t.ID, t.RoomID, t.Name, t.Email, t.Phone, t.MoveInDate, t.MoveOutDate,
			t.IsActive, t.Notes, t.PasswordHash, t.TelegramChatID, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err, "tenants_active_room_unique") {
				return tenant.ErrRoomOccupied
			}
			if isUniqueViolation(err, "tenants_active_email_unique") {
				return tenant.ErrDuplicate
			}
			return fmt.Errorf("error creating tenant: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE rooms SET is_occupied = TRUE, updated_at = $2 WHERE id = $1`,
			t.RoomID, t.CreatedAt); err != nil {
			return fmt.Errorf("error marking room occupied: %w", err)
		}

		if s != nil {
			return insertSchedule(ctx, tx, s)
		}
		return nil
	})
}

func (r *PostgresTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants t WHERE t.id = $1`
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenant.ErrNotFound
		}
		return nil, fmt.Errorf("error getting tenant by ID: %w", err)
	}
	return t, nil
}

func (r *PostgresTenantRepository) GetByEmail(ctx context.Context, email string) (*tenant.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants t
		WHERE lower(t.email) = lower($1) ORDER BY t.is_active DESC, t.created_at DESC LIMIT 1`
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenant.ErrNotFound
		}
		return nil, fmt.Errorf("error getting tenant by email: %w", err)
	}
	return t, nil
}

func (r *PostgresTenantRepository) GetByTelegramChatID(ctx context.Context, chatID int64) (*tenant.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants t WHERE t.telegram_chat_id = $1 AND t.is_active LIMIT 1`
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, chatID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenant.ErrNotFound
		}
		return nil, fmt.Errorf("error getting tenant by telegram chat: %w", err)
	}
	return t, nil
}

func (r *PostgresTenantRepository) GetPlacement(ctx context.Context, id uuid.UUID) (*tenant.Placement, error) {
	pl, err := scanPlacement(r.db.QueryRowContext(ctx, placementQuery+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenant.ErrNotFound
		}
		return nil, fmt.Errorf("error getting tenant placement: %w", err)
	}
	return pl, nil
}

func (r *PostgresTenantRepository) List(ctx context.Context, f tenant.Filter) ([]*tenant.Placement, error) {
	query := placementQuery + ` WHERE pr.landlord_id = $1`
	args := []any{f.LandlordID}
	if f.PropertyID != uuid.Nil {
		args = append(args, f.PropertyID)
		query += fmt.Sprintf(" AND pr.id = $%d", len(args))
	}
	if f.ActiveOnly {
		query += " AND t.is_active"
	}
	query += " ORDER BY t.is_active DESC, t.name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing tenants: %w", err)
	}
	defer rows.Close()

	placements := make([]*tenant.Placement, 0)
	for rows.Next() {
		pl, err := scanPlacement(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning tenant row: %w", err)
		}
		placements = append(placements, pl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenant rows: %w", err)
	}
	return placements, nil
}

func (r *PostgresTenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	query := `UPDATE tenants
		SET name = $1, email = $2, phone = $3, move_in_date = $4, notes = $5, password_hash = $6,
			telegram_chat_id = $7, updated_at = $8
		WHERE id = $9`
	res, err := r.db.ExecContext(ctx, query, t.Name, t.Email, t.Phone, t.MoveInDate, t.Notes, t.PasswordHash,
		t.TelegramChatID, t.UpdatedAt, t.ID)
	if err != nil {
		if isUniqueViolation(err, "tenants_active_email_unique") {
			return tenant.ErrDuplicate
		}
		return fmt.Errorf("error updating tenant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

func (r *PostgresTenantRepository) MoveOut(ctx context.Context, id uuid.UUID, moveOut time.Time) (*tenant.Tenant, error) {
	var out *tenant.Tenant
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `SELECT ` + tenantColumns + ` FROM tenants t WHERE t.id = $1 FOR UPDATE`
		t, err := scanTenant(tx.QueryRowContext(ctx, query, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return tenant.ErrNotFound
			}
			return fmt.Errorf("error locking tenant: %w", err)
		}
		if !t.IsActive {
			return tenant.ErrInactive
		}
		now := time.Now().UTC()
		t.IsActive = false
		t.MoveOutDate = sql.NullTime{Time: clock.DateOf(moveOut), Valid: true}
		t.UpdatedAt = now

		if _, err := tx.ExecContext(ctx,
			`UPDATE tenants SET is_active = FALSE, move_out_date = $2, updated_at = $3 WHERE id = $1`,
			t.ID, t.MoveOutDate, now); err != nil {
			return fmt.Errorf("error deactivating tenant: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE payment_schedules SET is_active = FALSE, updated_at = $2 WHERE tenant_id = $1 AND is_active`,
			t.ID, now); err != nil {
			return fmt.Errorf("error deactivating payment schedule: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE rooms SET is_occupied = FALSE, updated_at = $2 WHERE id = $1`, t.RoomID, now); err != nil {
			return fmt.Errorf("error freeing room: %w", err)
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
