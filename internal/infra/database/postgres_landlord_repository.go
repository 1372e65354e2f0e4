package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"landten/internal/domain/landlord"

	"github.com/google/uuid"
)

type PostgresLandlordRepository struct {
	db *sql.DB
}

func NewPostgresLandlordRepository(db *sql.DB) *PostgresLandlordRepository {
	return &PostgresLandlordRepository{db: db}
}

const landlordColumns = `id, email, password_hash, name, phone, primary_currency, telegram_chat_id, created_at, updated_at`

func scanLandlord(row rowScanner) (*landlord.Landlord, error) {
	l := landlord.Landlord{}
	if err := row.Scan(&l.ID, &l.Email, &l.PasswordHash, &l.Name, &l.Phone, &l.PrimaryCurrency, &l.TelegramChatID,
		&l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PostgresLandlordRepository) Create(ctx context.Context, l *landlord.Landlord) error {
	query := `INSERT INTO landlords (` + landlordColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, l.ID, l.Email, l.PasswordHash, l.Name, l.Phone, l.PrimaryCurrency,
		l.TelegramChatID, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "landlords_email_unique") {
			return landlord.ErrDuplicateEmail
		}
		return fmt.Errorf("error creating landlord: %w", err)
	}
	return nil
}

func (r *PostgresLandlordRepository) GetByID(ctx context.Context, id uuid.UUID) (*landlord.Landlord, error) {
	l, err := scanLandlord(r.db.QueryRowContext(ctx, `SELECT `+landlordColumns+` FROM landlords WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, landlord.ErrNotFound
		}
		return nil, fmt.Errorf("error getting landlord by ID: %w", err)
	}
	return l, nil
}

func (r *PostgresLandlordRepository) GetByEmail(ctx context.Context, email string) (*landlord.Landlord, error) {
	l, err := scanLandlord(r.db.QueryRowContext(ctx, `SELECT `+landlordColumns+` FROM landlords WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, landlord.ErrNotFound
		}
		return nil, fmt.Errorf("error getting landlord by email: %w", err)
	}
	return l, nil
}

func (r *PostgresLandlordRepository) Update(ctx context.Context, l *landlord.Landlord) error {
	query := `UPDATE landlords SET name = $1, phone = $2, primary_currency = $3, telegram_chat_id = $4,
			password_hash = $5, updated_at = $6
		WHERE id = $7`
	res, err := r.db.ExecContext(ctx, query, l.Name, l.Phone, l.PrimaryCurrency, l.TelegramChatID, l.PasswordHash,
		l.UpdatedAt, l.ID)
	if err != nil {
		return fmt.Errorf("error updating landlord: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return landlord.ErrNotFound
	}
	return nil
}
