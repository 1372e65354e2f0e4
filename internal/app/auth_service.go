package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"landten/internal/domain/clock"
	"landten/internal/domain/identity"
	"landten/internal/domain/landlord"
	"landten/internal/domain/money"
	"landten/internal/domain/tenant"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// AuthService issues and verifies session tokens for landlords and tenants.
// Both share one token format; the role claim tells them apart.
type AuthService struct {
	landlordRepo landlord.Repository
	tenantRepo   tenant.Repository
	secret       []byte
	ttl          time.Duration
	clock        clock.Clock
	newID        func() uuid.UUID
	log          *logrus.Entry
}

func NewAuthService(lr landlord.Repository, tr tenant.Repository, secret string, ttl time.Duration, log *logrus.Entry) *AuthService {
	return &AuthService{
		landlordRepo: lr,
		tenantRepo:   tr,
		secret:       []byte(secret),
		ttl:          ttl,
		clock:        clock.Real{},
		newID:        uuid.New,
		log:          log,
	}
}

func (s *AuthService) WithClock(c clock.Clock) *AuthService {
	s.clock = c
	return s
}

// Session is a signed token plus the principal it stands for.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Principal identity.Principal
}

type RegisterInput struct {
	Email           string
	Password        string
	Name            string
	Phone           string
	PrimaryCurrency string
}

// Register creates a landlord account and signs them in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*landlord.Landlord, *Session, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, nil, invalid("name", "is required")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, nil, err
	}
	currency := money.Normalize(in.PrimaryCurrency)
	if currency == "" {
		currency = money.Base
	}
	if !money.IsValid(currency) {
		return nil, nil, invalid("primary_currency", "unsupported currency %q", in.PrimaryCurrency)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.Now()
	l := &landlord.Landlord{
		ID:              s.newID(),
		Email:           email,
		PasswordHash:    string(hash),
		Name:            name,
		Phone:           strings.TrimSpace(in.Phone),
		PrimaryCurrency: currency,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.landlordRepo.Create(ctx, l); err != nil {
		return nil, nil, err
	}
	sess, err := s.issue(identity.Principal{ID: l.ID, Role: identity.RoleLandlord})
	if err != nil {
		return nil, nil, err
	}
	s.log.WithField("landlord_id", l.ID).Info("Landlord registered")
	return l, sess, nil
}

// Login signs a landlord in by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	l, err := s.landlordRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, landlord.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(l.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(identity.Principal{ID: l.ID, Role: identity.RoleLandlord})
}

func (s *AuthService) Me(ctx context.Context, who identity.Principal) (*landlord.Landlord, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	return s.landlordRepo.GetByID(ctx, who.ID)
}

// LandlordUpdate edits the landlord's profile. Nil fields are left as they are.
type LandlordUpdate struct {
	Name            *string
	Phone           *string
	PrimaryCurrency *string
	TelegramChatID  *int64
}

func (s *AuthService) UpdateProfile(ctx context.Context, who identity.Principal, in LandlordUpdate) (*landlord.Landlord, error) {
	l, err := s.Me(ctx, who)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name", "must not be empty")
		}
		l.Name = name
	}
	if in.Phone != nil {
		l.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.PrimaryCurrency != nil {
		currency := money.Normalize(*in.PrimaryCurrency)
		if !money.IsValid(currency) {
			return nil, invalid("primary_currency", "unsupported currency %q", *in.PrimaryCurrency)
		}
		l.PrimaryCurrency = currency
	}
	if in.TelegramChatID != nil {
		l.TelegramChatID = *in.TelegramChatID
	}
	l.UpdatedAt = s.clock.Now()
	if err := s.landlordRepo.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// SetupTenantPassword activates portal access the first time. The tenant proves who
// they are with the tenant id handed out by the landlord and their email.
func (s *AuthService) SetupTenantPassword(ctx context.Context, tenantID uuid.UUID, email, password string) (*Session, error) {
	if err := checkPassword(password); err != nil {
		return nil, err
	}
	t, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !t.IsActive || !strings.EqualFold(t.Email, strings.TrimSpace(email)) {
		return nil, ErrInvalidCredentials
	}
	if t.PasswordHash.Valid {
		return nil, ErrPasswordAlreadySet
	}
	if err := s.setTenantPassword(ctx, t, password); err != nil {
		return nil, err
	}
	s.log.WithField("tenant_id", t.ID).Info("Tenant portal activated")
	return s.issue(identity.Principal{ID: t.ID, Role: identity.RoleTenant})
}

// TenantLogin signs an active tenant in to the portal.
func (s *AuthService) TenantLogin(ctx context.Context, email, password string) (*Session, error) {
	t, err := s.tenantRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !t.IsActive || !t.PasswordHash.Valid {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(t.PasswordHash.String), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(identity.Principal{ID: t.ID, Role: identity.RoleTenant})
}

func (s *AuthService) ChangeTenantPassword(ctx context.Context, who identity.Principal, current, next string) error {
	if !who.IsTenant() {
		return ErrForbidden
	}
	if err := checkPassword(next); err != nil {
		return err
	}
	t, err := s.tenantRepo.GetByID(ctx, who.ID)
	if err != nil {
		return err
	}
	if !t.PasswordHash.Valid || bcrypt.CompareHashAndPassword([]byte(t.PasswordHash.String), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	return s.setTenantPassword(ctx, t, next)
}

func (s *AuthService) setTenantPassword(ctx context.Context, t *tenant.Tenant, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	t.PasswordHash = sql.NullString{String: string(hash), Valid: true}
	t.UpdatedAt = s.clock.Now()
	return s.tenantRepo.Update(ctx, t)
}

// VerifyToken checks a token's signature and expiry and returns its principal.
func (s *AuthService) VerifyToken(tokenString string) (identity.Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return identity.Principal{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return identity.Principal{}, ErrUnauthenticated
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return identity.Principal{}, fmt.Errorf("%w: invalid subject", ErrUnauthenticated)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return identity.Principal{}, fmt.Errorf("%w: invalid subject", ErrUnauthenticated)
	}
	roleStr, _ := claims["role"].(string)
	role := identity.Role(roleStr)
	if !role.Valid() {
		return identity.Principal{}, fmt.Errorf("%w: invalid role %q", ErrUnauthenticated, roleStr)
	}
	return identity.Principal{ID: id, Role: role}, nil
}

func (s *AuthService) issue(p identity.Principal) (*Session, error) {
	now := s.clock.Now()
	exp := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub":  p.ID.String(),
		"role": string(p.Role),
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: exp, Principal: p}, nil
}

func checkPassword(password string) error {
	if len(password) < minPasswordLength {
		return invalid("password", "must be at least %d characters", minPasswordLength)
	}
	return nil
}
