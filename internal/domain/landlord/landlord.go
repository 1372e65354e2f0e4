package landlord

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("landlord: not found")
	ErrDuplicateEmail = errors.New("landlord: email already registered")
)

type Landlord struct {
	ID              uuid.UUID
	Email           string
	PasswordHash    string
	Name            string
	Phone           string
	PrimaryCurrency string
	TelegramChatID  int64 // 0 when not linked
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Repository interface {
	Create(ctx context.Context, l *Landlord) error
	GetByID(ctx context.Context, id uuid.UUID) (*Landlord, error)
	GetByEmail(ctx context.Context, email string) (*Landlord, error)
	Update(ctx context.Context, l *Landlord) error
}
