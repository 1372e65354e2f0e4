package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"landten/internal/domain/clock"
	"landten/internal/domain/identity"
	"landten/internal/domain/landlord"
	"landten/internal/domain/messaging"
	"landten/internal/domain/money"
	"landten/internal/domain/notification"
	"landten/internal/domain/payment"
	"landten/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 100
)

// Publisher pushes a persisted notification to live subscribers. Fire-and-forget.
type Publisher interface {
	Publish(n *notification.Notification)
}

// Notifier is what other services call when something notification-worthy happens.
type Notifier interface {
	PaymentStatusChanged(ctx context.Context, p *payment.Payment) error
	ReceiptSubmitted(ctx context.Context, p *payment.Payment) error
	ReceiptRejected(ctx context.Context, p *payment.Payment) error
	TenantAdded(ctx context.Context, pl *tenant.Placement) error
	TenantRemoved(ctx context.Context, pl *tenant.Placement) error
}

// NotificationService persists landlord notifications, then fans them out.
type NotificationService struct {
	notifRepo    notification.Repository
	tenantRepo   tenant.Repository
	landlordRepo landlord.Repository
	paymentRepo  payment.Repository
	publisher    Publisher
	telegram     messaging.Sender
	sms          messaging.Sender
	email        messaging.Sender
	clock        clock.Clock
	newID        func() uuid.UUID
	log          *logrus.Entry

	notifyTenantOnReject bool
}

func NewNotificationService(
	nr notification.Repository,
	tr tenant.Repository,
	lr landlord.Repository,
	pr payment.Repository,
	pub Publisher,
	log *logrus.Entry,
) *NotificationService {
	return &NotificationService{
		notifRepo:    nr,
		tenantRepo:   tr,
		landlordRepo: lr,
		paymentRepo:  pr,
		publisher:    pub,
		clock:        clock.Real{},
		newID:        uuid.New,
		log:          log,
	}
}

func (s *NotificationService) WithClock(c clock.Clock) *NotificationService {
	s.clock = c
	return s
}

// WithTelegram enables the Telegram channel for landlord alerts and tenant reminders.
func (s *NotificationService) WithTelegram(sender messaging.Sender) *NotificationService {
	s.telegram = sender
	return s
}

func (s *NotificationService) WithSMS(sender messaging.Sender) *NotificationService {
	s.sms = sender
	return s
}

func (s *NotificationService) WithEmail(sender messaging.Sender) *NotificationService {
	s.email = sender
	return s
}

// WithTenantRejectNotice controls whether tenants hear about rejected receipts.
func (s *NotificationService) WithTenantRejectNotice(enabled bool) *NotificationService {
	s.notifyTenantOnReject = enabled
	return s
}

// Emit stores n and, if it was new, pushes it to live subscribers and the landlord's Telegram chat.
// It reports whether n was stored; a duplicate dedupe key stores and pushes nothing.
func (s *NotificationService) Emit(ctx context.Context, n *notification.Notification) (bool, error) {
	if n.ID == uuid.Nil {
		n.ID = s.newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.clock.Now()
	}
	created, err := s.notifRepo.Create(ctx, n)
	if err != nil {
		return false, fmt.Errorf("failed to store notification: %w", err)
	}
	logCtx := s.log.WithFields(logrus.Fields{"landlord_id": n.LandlordID, "type": n.Type})
	if !created {
		logCtx.WithField("dedupe_key", n.DedupeKey).Debug("Notification already emitted, skipping")
		return false, nil
	}
	s.publisher.Publish(n)
	s.forwardToLandlord(ctx, n)
	logCtx.Info("Notification emitted")
	return true, nil
}

func (s *NotificationService) forwardToLandlord(ctx context.Context, n *notification.Notification) {
	if s.telegram == nil {
		return
	}
	l, err := s.landlordRepo.GetByID(ctx, n.LandlordID)
	if err != nil {
		s.log.WithError(err).WithField("landlord_id", n.LandlordID).Warn("Could not load landlord for Telegram forward")
		return
	}
	if l.TelegramChatID == 0 {
		return
	}
	to := messaging.Recipient{Name: l.Name, TelegramChatID: l.TelegramChatID}
	if err := s.telegram.Send(ctx, to, n.Title+"\n"+n.Message); err != nil {
		s.log.WithError(err).WithField("landlord_id", n.LandlordID).Warn("Telegram forward failed")
	}
}

// PaymentStatusChanged emits the notification matching the payment's new status, if any.
func (s *NotificationService) PaymentStatusChanged(ctx context.Context, p *payment.Payment) error {
	var typ notification.Type
	switch p.Status {
	case payment.StatusPending:
		typ = notification.TypePaymentDue
	case payment.StatusOverdue:
		typ = notification.TypePaymentOverdue
	case payment.StatusOnTime, payment.StatusLate:
		typ = notification.TypePaymentReceived
	default:
		return nil
	}
	pl, err := s.tenantRepo.GetPlacement(ctx, p.TenantID)
	if err != nil {
		return fmt.Errorf("failed to load tenant for payment %s: %w", p.ID, err)
	}
	amount := money.Format(p.AmountDue, p.Currency)
	n := &notification.Notification{
		LandlordID: pl.LandlordID,
		Type:       typ,
		TenantID:   uuid.NullUUID{UUID: p.TenantID, Valid: true},
		PaymentID:  uuid.NullUUID{UUID: p.ID, Valid: true},
		DedupeKey:  notification.PaymentDedupeKey(p.ID, typ, p.StatusChangedAt),
	}
	switch typ {
	case notification.TypePaymentDue:
		n.Title = "Payment Due"
		n.Message = fmt.Sprintf("%s's payment of %s is due on %s for %s",
			pl.Tenant.Name, amount, p.DueDate.Format("2006-01-02"), pl.PropertyName)
	case notification.TypePaymentOverdue:
		n.Title = "Payment Overdue"
		n.Message = fmt.Sprintf("%s's payment of %s for %s is now overdue", pl.Tenant.Name, amount, pl.PropertyName)
	case notification.TypePaymentReceived:
		n.Title = "Payment Received"
		n.Message = fmt.Sprintf("%s paid %s for %s", pl.Tenant.Name, amount, pl.PropertyName)
		if p.Status == payment.StatusLate {
			n.Message += " (late)"
		}
	}
	_, err = s.Emit(ctx, n)
	return err
}

func (s *NotificationService) ReceiptSubmitted(ctx context.Context, p *payment.Payment) error {
	pl, err := s.tenantRepo.GetPlacement(ctx, p.TenantID)
	if err != nil {
		return fmt.Errorf("failed to load tenant for payment %s: %w", p.ID, err)
	}
	_, err = s.Emit(ctx, &notification.Notification{
		LandlordID: pl.LandlordID,
		Type:       notification.TypeReceiptSubmitted,
		Title:      "Receipt Submitted",
		Message: fmt.Sprintf("%s uploaded a receipt for the %s payment due %s",
			pl.Tenant.Name, money.Format(p.AmountDue, p.Currency), p.DueDate.Format("2006-01-02")),
		TenantID:  uuid.NullUUID{UUID: p.TenantID, Valid: true},
		PaymentID: uuid.NullUUID{UUID: p.ID, Valid: true},
		DedupeKey: notification.PaymentDedupeKey(p.ID, notification.TypeReceiptSubmitted, p.UpdatedAt),
	})
	return err
}

// ReceiptRejected tells the tenant their receipt was rejected, when that is enabled.
func (s *NotificationService) ReceiptRejected(ctx context.Context, p *payment.Payment) error {
	if !s.notifyTenantOnReject {
		return nil
	}
	pl, err := s.tenantRepo.GetPlacement(ctx, p.TenantID)
	if err != nil {
		return fmt.Errorf("failed to load tenant for payment %s: %w", p.ID, err)
	}
	text := fmt.Sprintf("Hi %s, your receipt for the %s payment due %s was not accepted. Please upload a new one.",
		pl.Tenant.Name, money.Format(p.AmountDue, p.Currency), p.DueDate.Format("2006-01-02"))
	sent, failed := s.deliver(ctx, notification.ChannelAll, recipientOf(pl.Tenant), text)
	if len(sent) == 0 {
		s.log.WithField("tenant_id", p.TenantID).WithField("failures", failed).Warn("Receipt rejection notice not delivered")
	}
	return nil
}

func (s *NotificationService) TenantAdded(ctx context.Context, pl *tenant.Placement) error {
	_, err := s.Emit(ctx, &notification.Notification{
		LandlordID: pl.LandlordID,
		Type:       notification.TypeTenantAdded,
		Title:      "New Tenant",
		Message:    fmt.Sprintf("%s moved into %s at %s", pl.Tenant.Name, pl.RoomName, pl.PropertyName),
		TenantID:   uuid.NullUUID{UUID: pl.Tenant.ID, Valid: true},
		DedupeKey:  notification.TenantDedupeKey(pl.Tenant.ID, notification.TypeTenantAdded),
	})
	return err
}

func (s *NotificationService) TenantRemoved(ctx context.Context, pl *tenant.Placement) error {
	_, err := s.Emit(ctx, &notification.Notification{
		LandlordID: pl.LandlordID,
		Type:       notification.TypeTenantRemoved,
		Title:      "Tenant Moved Out",
		Message:    fmt.Sprintf("%s moved out of %s at %s", pl.Tenant.Name, pl.RoomName, pl.PropertyName),
		TenantID:   uuid.NullUUID{UUID: pl.Tenant.ID, Valid: true},
		DedupeKey:  notification.TenantDedupeKey(pl.Tenant.ID, notification.TypeTenantRemoved),
	})
	return err
}

// NotificationPage is one page of a landlord's notifications.
type NotificationPage struct {
	Items  []*notification.Notification
	Total  int
	Unread int
}

func (s *NotificationService) List(ctx context.Context, who identity.Principal, opts notification.ListOptions) (*NotificationPage, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultNotificationLimit
	}
	if opts.Limit > maxNotificationLimit {
		return nil, invalid("limit", "must be at most %d", maxNotificationLimit)
	}
	if opts.Offset < 0 {
		return nil, invalid("offset", "must not be negative")
	}
	items, err := s.notifRepo.List(ctx, who.ID, opts)
	if err != nil {
		return nil, err
	}
	counts, err := s.notifRepo.Count(ctx, who.ID, opts.UnreadOnly)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{Items: items, Total: counts.Total, Unread: counts.Unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, who identity.Principal, id uuid.UUID) (*notification.Notification, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	return s.notifRepo.MarkRead(ctx, who.ID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, who identity.Principal) (int64, error) {
	if err := requireLandlord(who); err != nil {
		return 0, err
	}
	return s.notifRepo.MarkAllRead(ctx, who.ID)
}

// ReminderInput asks for a reminder to be sent to a tenant.
type ReminderInput struct {
	TenantID  uuid.UUID
	PaymentID uuid.UUID // optional; adds the amount and due date
	Channel   notification.Channel
	Message   string // optional custom text
}

// ReminderResult lists which channels delivered.
type ReminderResult struct {
	Sent   []notification.Channel
	Failed map[notification.Channel]string
}

// SendReminder messages a tenant on the chosen channel(s) and records a reminder_sent notification.
func (s *NotificationService) SendReminder(ctx context.Context, who identity.Principal, in ReminderInput) (*ReminderResult, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	if in.Channel == "" {
		in.Channel = notification.ChannelEmail
	}
	if !in.Channel.Valid() {
		return nil, invalid("channel", "must be one of email, sms, telegram, both, all")
	}
	pl, err := authorizeTenant(ctx, s.tenantRepo, who, in.TenantID)
	if err != nil {
		return nil, err
	}
	if !pl.Tenant.IsActive {
		return nil, tenant.ErrInactive
	}

	text := strings.TrimSpace(in.Message)
	if text == "" {
		text = fmt.Sprintf("Hi %s, this is a friendly reminder about your rent for %s at %s.",
			pl.Tenant.Name, pl.RoomName, pl.PropertyName)
	}
	var paymentID uuid.NullUUID
	if in.PaymentID != uuid.Nil {
		p, err := s.paymentRepo.GetByID(ctx, in.PaymentID)
		if err != nil {
			return nil, err
		}
		if p.TenantID != pl.Tenant.ID {
			return nil, payment.ErrNotFound
		}
		paymentID = uuid.NullUUID{UUID: p.ID, Valid: true}
		text += fmt.Sprintf(" Amount due: %s, due on %s.", money.Format(p.AmountDue, p.Currency), p.DueDate.Format("2006-01-02"))
	}

	sent, failed := s.deliver(ctx, in.Channel, recipientOf(pl.Tenant), text)
	res := &ReminderResult{Sent: sent, Failed: failed}
	if len(sent) == 0 {
		return res, fmt.Errorf("%w to %s", ErrNotDelivered, pl.Tenant.Name)
	}

	names := make([]string, len(sent))
	for i, c := range sent {
		names[i] = string(c)
	}
	_, err = s.Emit(ctx, &notification.Notification{
		LandlordID: pl.LandlordID,
		Type:       notification.TypeReminderSent,
		Title:      "Reminder Sent",
		Message:    fmt.Sprintf("Reminder sent to %s via %s", pl.Tenant.Name, strings.Join(names, " and ")),
		TenantID:   uuid.NullUUID{UUID: pl.Tenant.ID, Valid: true},
		PaymentID:  paymentID,
	})
	if err != nil {
		s.log.WithError(err).Warn("Reminder delivered but not recorded")
	}
	return res, nil
}

func (s *NotificationService) deliver(ctx context.Context, ch notification.Channel, to messaging.Recipient, text string) ([]notification.Channel, map[notification.Channel]string) {
	var sent []notification.Channel
	failed := map[notification.Channel]string{}
	try := func(c notification.Channel, sender messaging.Sender) {
		if sender == nil {
			failed[c] = "channel not configured"
			return
		}
		if err := sender.Send(ctx, to, text); err != nil {
			if !errors.Is(err, messaging.ErrNoAddress) {
				s.log.WithError(err).WithField("channel", c).Warn("Message delivery failed")
			}
			failed[c] = err.Error()
			return
		}
		sent = append(sent, c)
	}
	for _, c := range []struct {
		channel notification.Channel
		sender  messaging.Sender
	}{
		{notification.ChannelEmail, s.email},
		{notification.ChannelSMS, s.sms},
		{notification.ChannelTelegram, s.telegram},
	} {
		if ch.Includes(c.channel) {
			try(c.channel, c.sender)
		}
	}
	return sent, failed
}

func recipientOf(t *tenant.Tenant) messaging.Recipient {
	return messaging.Recipient{Name: t.Name, Email: t.Email, Phone: t.Phone, TelegramChatID: t.TelegramChatID}
}
