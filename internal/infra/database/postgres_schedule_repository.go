package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"landten/internal/domain/clock"
	"landten/internal/domain/schedule"

	"github.com/google/uuid"
)

type PostgresScheduleRepository struct {
	db *sql.DB
}

func NewPostgresScheduleRepository(db *sql.DB) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{db: db}
}

const scheduleColumns = `s.id, s.tenant_id, s.amount, s.currency, s.frequency, s.due_day, s.grace_days,
	s.start_date, s.is_active, s.created_at, s.updated_at`

func scanSchedule(row rowScanner) (*schedule.Schedule, error) {
	s := schedule.Schedule{}
	err := row.Scan(&s.ID, &s.TenantID, &s.Amount, &s.Currency, &s.Frequency, &s.DueDay, &s.GraceDays,
		&s.StartDate, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.StartDate = clock.DateOf(s.StartDate)
	return &s, nil
}

func insertSchedule(ctx context.Context, ex execer, s *schedule.Schedule) error {
	query := `INSERT INTO payment_schedules (id, tenant_id, amount, currency, frequency, due_day, grace_days,
			start_date, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := ex.ExecContext(ctx, query, s.ID, s.TenantID, s.Amount, s.Currency, s.Frequency, s.DueDay, s.GraceDays,
		s.StartDate, s.IsActive, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return schedule.ErrAlreadyActive
		}
		return fmt.Errorf("error creating payment schedule: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *PostgresScheduleRepository) Create(ctx context.Context, s *schedule.Schedule) error {
	return insertSchedule(ctx, r.db, s)
}

func (r *PostgresScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*schedule.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM payment_schedules s WHERE s.id = $1`
	s, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, schedule.ErrNotFound
		}
		return nil, fmt.Errorf("error getting payment schedule by ID: %w", err)
	}
	return s, nil
}

func (r *PostgresScheduleRepository) GetActiveByTenant(ctx context.Context, tenantID uuid.UUID) (*schedule.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM payment_schedules s WHERE s.tenant_id = $1 AND s.is_active`
	s, err := scanSchedule(r.db.QueryRowContext(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, schedule.ErrNotFound
		}
		return nil, fmt.Errorf("error getting active payment schedule: %w", err)
	}
	return s, nil
}

func (r *PostgresScheduleRepository) Replace(ctx context.Context, s *schedule.Schedule) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE payment_schedules SET is_active = FALSE, updated_at = $2 WHERE tenant_id = $1 AND is_active`,
			s.TenantID, s.UpdatedAt)
		if err != nil {
			return fmt.Errorf("error deactivating payment schedule: %w", err)
		}
		return insertSchedule(ctx, tx, s)
	})
}

func (r *PostgresScheduleRepository) ListActive(ctx context.Context) ([]*schedule.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM payment_schedules s
		JOIN tenants t ON t.id = s.tenant_id
		WHERE s.is_active AND t.is_active ORDER BY s.created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing active payment schedules: %w", err)
	}
	defer rows.Close()

	schedules := make([]*schedule.Schedule, 0)
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning payment schedule row: %w", err)
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment schedule rows: %w", err)
	}
	return schedules, nil
}
