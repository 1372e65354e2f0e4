package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"landten/internal/domain/clock"
	"landten/internal/domain/payment"

	"github.com/google/uuid"
	"github.com/lib/pq" // For pq.Array
)

type PostgresPaymentRepository struct {
	db *sql.DB
}

func NewPostgresPaymentRepository(db *sql.DB) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

const paymentColumns = `p.id, p.tenant_id, p.schedule_id, p.period_start, p.period_end, p.amount_due, p.currency,
	p.due_date, p.window_end_date, p.status, p.status_changed_at, p.paid_date, p.reference,
	p.receipt_locator, p.notes, p.is_manual, p.created_at, p.updated_at`

func scanPayment(row rowScanner) (*payment.Payment, error) {
	p := payment.Payment{}
	err := row.Scan(
		&p.ID, &p.TenantID, &p.ScheduleID, &p.PeriodStart, &p.PeriodEnd, &p.AmountDue, &p.Currency,
		&p.DueDate, &p.WindowEnd, &p.Status, &p.StatusChangedAt, &p.PaidDate, &p.Reference,
		&p.ReceiptLocator, &p.Notes, &p.IsManual, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.PeriodStart = clock.DateOf(p.PeriodStart)
	p.PeriodEnd = clock.DateOf(p.PeriodEnd)
	p.DueDate = clock.DateOf(p.DueDate)
	p.WindowEnd = clock.DateOf(p.WindowEnd)
	if p.PaidDate.Valid {
		p.PaidDate.Time = clock.DateOf(p.PaidDate.Time)
	}
	return &p, nil
}

func scanPayments(rows *sql.Rows) ([]*payment.Payment, error) {
	payments := make([]*payment.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning payment row: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment rows: %w", err)
	}
	return payments, nil
}

const insertPayment = `INSERT INTO payments (id, tenant_id, schedule_id, period_start, period_end, amount_due, currency,
		due_date, window_end_date, status, status_changed_at, paid_date, reference, receipt_locator, notes,
		is_manual, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

func paymentArgs(p *payment.Payment) []any {
	return []any{
		p.ID, p.TenantID, p.ScheduleID, p.PeriodStart, p.PeriodEnd, p.AmountDue, p.Currency,
		p.DueDate, p.WindowEnd, p.Status, p.StatusChangedAt, p.PaidDate, p.Reference, p.ReceiptLocator, p.Notes,
		p.IsManual, p.CreatedAt, p.UpdatedAt,
	}
}

func (r *PostgresPaymentRepository) CreateIfAbsent(ctx context.Context, p *payment.Payment) (bool, error) {
	query := insertPayment + ` ON CONFLICT ON CONSTRAINT payments_schedule_period_unique DO NOTHING RETURNING id`
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, query, paymentArgs(p)...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error creating payment for period %s: %w", p.PeriodStart.Format("2006-01-02"), err)
	}
	return true, nil
}

func (r *PostgresPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	if _, err := r.db.ExecContext(ctx, insertPayment, paymentArgs(p)...); err != nil {
		return fmt.Errorf("error creating payment: %w", err)
	}
	return nil
}

func (r *PostgresPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.id = $1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("error getting payment by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresPaymentRepository) List(ctx context.Context, f payment.Filter) ([]*payment.Payment, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	query := `SELECT ` + paymentColumns + ` FROM payments p
		JOIN tenants t ON t.id = p.tenant_id
		JOIN rooms r ON r.id = t.room_id
		JOIN properties pr ON pr.id = r.property_id`
	if f.LandlordID != uuid.Nil {
		where = append(where, "pr.landlord_id = "+arg(f.LandlordID))
	}
	if f.TenantID != uuid.Nil {
		where = append(where, "p.tenant_id = "+arg(f.TenantID))
	}
	if len(f.Statuses) > 0 {
		where = append(where, "p.status = ANY("+arg(pq.Array(statusStrings(f.Statuses)))+"::varchar[])")
	}
	if !f.DueFrom.IsZero() {
		where = append(where, "p.due_date >= "+arg(f.DueFrom))
	}
	if !f.DueTo.IsZero() {
		where = append(where, "p.due_date <= "+arg(f.DueTo))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.due_date DESC, p.created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += " OFFSET " + arg(f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing payments: %w", err)
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (r *PostgresPaymentRepository) ListByStatus(ctx context.Context, statuses []payment.Status) ([]*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p
		WHERE p.status = ANY($1::varchar[]) ORDER BY p.due_date`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(statusStrings(statuses)))
	if err != nil {
		return nil, fmt.Errorf("error querying payments by status: %w", err)
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (r *PostgresPaymentRepository) Mutate(ctx context.Context, id uuid.UUID, fn func(p *payment.Payment) error) (*payment.Payment, error) {
	var out *payment.Payment
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.id = $1 FOR UPDATE`
		p, err := scanPayment(tx.QueryRowContext(ctx, query, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return payment.ErrNotFound
			}
			return fmt.Errorf("error locking payment: %w", err)
		}
		if err := fn(p); err != nil {
			return err
		}
		update := `UPDATE payments SET amount_due = $1, due_date = $2, window_end_date = $3, status = $4,
				status_changed_at = $5, paid_date = $6, reference = $7, receipt_locator = $8, notes = $9,
				updated_at = $10
			WHERE id = $11`
		_, err = tx.ExecContext(ctx, update, p.AmountDue, p.DueDate, p.WindowEnd, p.Status, p.StatusChangedAt,
			p.PaidDate, p.Reference, p.ReceiptLocator, p.Notes, p.UpdatedAt, p.ID)
		if err != nil {
			return fmt.Errorf("error updating payment: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func statusStrings(statuses []payment.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
