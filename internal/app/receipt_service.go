package app

import (
	"context"
	"errors"
	"fmt"

	"landten/internal/domain/clock"
	"landten/internal/domain/identity"
	"landten/internal/domain/payment"
	"landten/internal/domain/receipt"
	"landten/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReceiptService runs the bank-transfer receipt workflow: tenants upload
// evidence, landlords approve it by marking the payment paid or reject it.
type ReceiptService struct {
	paymentRepo payment.Repository
	tenantRepo  tenant.Repository
	blobs       receipt.BlobStore
	notifier    Notifier
	maxBytes    int64
	leadDays    int
	clock       clock.Clock
	log         *logrus.Entry
}

func NewReceiptService(
	pr payment.Repository,
	tr tenant.Repository,
	blobs receipt.BlobStore,
	notifier Notifier,
	maxBytes int64,
	leadDays int,
	log *logrus.Entry,
) *ReceiptService {
	return &ReceiptService{
		paymentRepo: pr,
		tenantRepo:  tr,
		blobs:       blobs,
		notifier:    notifier,
		maxBytes:    maxBytes,
		leadDays:    leadDays,
		clock:       clock.Real{},
		log:         log,
	}
}

func (s *ReceiptService) WithClock(c clock.Clock) *ReceiptService {
	s.clock = c
	return s
}

// Upload stores the receipt bytes and moves the payment to verifying. Only the
// tenant who owes the payment may upload. If the bytes cannot be stored the
// payment is left untouched.
func (s *ReceiptService) Upload(ctx context.Context, who identity.Principal, paymentID uuid.UUID, data []byte) (*payment.Payment, error) {
	if err := requireTenant(who); err != nil {
		return nil, err
	}
	if _, err := receipt.Inspect(data, s.maxBytes); err != nil {
		return nil, invalid("file", "%s", receiptProblem(err))
	}
	current, err := s.load(ctx, who, paymentID)
	if err != nil {
		return nil, err
	}
	if !payment.Allowed(current.Status, payment.ActionUploadReceipt) {
		return nil, &payment.TransitionError{Action: payment.ActionUploadReceipt, Current: current.Status}
	}

	locator, err := s.blobs.Store(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	now := s.clock.Now()
	p, err := s.paymentRepo.Mutate(ctx, paymentID, func(p *payment.Payment) error {
		return p.AttachReceipt(locator, now)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"payment_id": p.ID, "tenant_id": p.TenantID}).Info("Receipt uploaded")
	if err := s.notifier.ReceiptSubmitted(ctx, p); err != nil {
		s.log.WithError(err).WithField("payment_id", p.ID).Warn("Receipt notification failed")
	}
	return p, nil
}

// Reject sends a verifying payment back to the state its dates dictate and clears the receipt.
func (s *ReceiptService) Reject(ctx context.Context, who identity.Principal, paymentID uuid.UUID) (*payment.Payment, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, who, paymentID); err != nil {
		return nil, err
	}
	today := clock.Today(s.clock)
	now := s.clock.Now()
	p, err := s.paymentRepo.Mutate(ctx, paymentID, func(p *payment.Payment) error {
		return p.RejectReceipt(today, s.leadDays, now)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"payment_id": p.ID, "status": p.Status}).Info("Receipt rejected")
	if err := s.notifier.ReceiptRejected(ctx, p); err != nil {
		s.log.WithError(err).WithField("payment_id", p.ID).Warn("Receipt rejection notice failed")
	}
	return p, nil
}

// Download returns the receipt bytes and their content type.
func (s *ReceiptService) Download(ctx context.Context, who identity.Principal, paymentID uuid.UUID) ([]byte, string, error) {
	p, err := s.load(ctx, who, paymentID)
	if err != nil {
		return nil, "", err
	}
	if p.ReceiptLocator == "" {
		return nil, "", receipt.ErrBlobNotFound
	}
	data, err := s.blobs.Retrieve(ctx, p.ReceiptLocator)
	if errors.Is(err, receipt.ErrBlobNotFound) {
		return nil, "", err
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return data, receipt.ContentType(data), nil
}

func (s *ReceiptService) load(ctx context.Context, who identity.Principal, paymentID uuid.UUID) (*payment.Payment, error) {
	p, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := authorizeTenant(ctx, s.tenantRepo, who, p.TenantID); err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			return nil, payment.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func receiptProblem(err error) string {
	switch {
	case errors.Is(err, receipt.ErrEmpty):
		return "file is empty"
	case errors.Is(err, receipt.ErrTooLarge):
		return "file is too large"
	case errors.Is(err, receipt.ErrUnsupportedType):
		return "only images and PDF documents are accepted"
	default:
		return err.Error()
	}
}
