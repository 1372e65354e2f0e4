package payment

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"landten/internal/domain/clock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("payment: not found")

// Payment is one concrete rent obligation for a period.
type Payment struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	ScheduleID      uuid.NullUUID // empty for manual payments
	PeriodStart     time.Time
	PeriodEnd       time.Time // exclusive
	AmountDue       decimal.Decimal
	Currency        string
	DueDate         time.Time
	WindowEnd       time.Time
	Status          Status
	StatusChangedAt time.Time
	PaidDate        sql.NullTime
	Reference       string
	ReceiptLocator  string
	Notes           string
	IsManual        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DateStatus is the state the calendar alone would assign on `today`.
// leadDays is how far ahead of the due date a payment becomes pending.
func (p *Payment) DateStatus(today time.Time, leadDays int) Status {
	today = clock.DateOf(today)
	switch {
	case today.After(p.WindowEnd):
		return StatusOverdue
	case !today.Before(p.DueDate.AddDate(0, 0, -leadDays)):
		return StatusPending
	default:
		return StatusUpcoming
	}
}

// Evaluate applies the date-driven rule. Only upcoming and pending payments move,
// and only forward. It reports whether the status changed.
func (p *Payment) Evaluate(today time.Time, leadDays int, now time.Time) (bool, error) {
	if p.Status != StatusUpcoming && p.Status != StatusPending {
		return false, nil
	}
	target := p.DateStatus(today, leadDays)
	if target == p.Status || target == StatusUpcoming {
		return false, nil
	}
	action := ActionBecomeDue
	if target == StatusOverdue {
		action = ActionExpire
	}
	if err := p.setStatus(action, target, now); err != nil {
		return false, err
	}
	return true, nil
}

// MarkPaid settles the payment. It becomes on_time when paidDate is within the grace window.
func (p *Payment) MarkPaid(paidDate time.Time, reference string, now time.Time) error {
	paidDate = clock.DateOf(paidDate)
	next := StatusOnTime
	if paidDate.After(p.WindowEnd) {
		next = StatusLate
	}
	if err := p.setStatus(ActionMarkPaid, next, now); err != nil {
		return err
	}
	p.PaidDate = sql.NullTime{Time: paidDate, Valid: true}
	p.Reference = strings.TrimSpace(reference)
	return nil
}

// Waive forgives the obligation and records the reason in the notes.
func (p *Payment) Waive(reason string, now time.Time) error {
	if err := p.setStatus(ActionWaive, StatusWaived, now); err != nil {
		return err
	}
	p.appendNote("Waived: " + strings.TrimSpace(reason))
	return nil
}

// AttachReceipt stores a receipt locator and moves the payment to verifying.
// A repeated upload while verifying only replaces the locator.
func (p *Payment) AttachReceipt(locator string, now time.Time) error {
	if p.Status == StatusVerifying {
		if err := Transition(p.Status, ActionUploadReceipt, StatusVerifying); err != nil {
			return err
		}
		p.ReceiptLocator = locator
		p.UpdatedAt = now
		return nil
	}
	if err := p.setStatus(ActionUploadReceipt, StatusVerifying, now); err != nil {
		return err
	}
	p.ReceiptLocator = locator
	return nil
}

// RejectReceipt returns a verifying payment to its date-driven state and clears the receipt.
func (p *Payment) RejectReceipt(today time.Time, leadDays int, now time.Time) error {
	if err := p.setStatus(ActionRejectReceipt, p.DateStatus(today, leadDays), now); err != nil {
		return err
	}
	p.ReceiptLocator = ""
	return nil
}

// Edit changes the amount, due date or notes of an unresolved payment. Moving the due
// date keeps the grace window length. Status is left to the next sweep.
func (p *Payment) Edit(amount *decimal.Decimal, dueDate *time.Time, notes *string, now time.Time) error {
	if err := Transition(p.Status, ActionEdit, p.Status); err != nil {
		return err
	}
	if amount != nil {
		p.AmountDue = *amount
	}
	if dueDate != nil {
		graceDays := p.GraceDays()
		p.DueDate = clock.DateOf(*dueDate)
		p.WindowEnd = p.DueDate.AddDate(0, 0, graceDays)
	}
	if notes != nil {
		p.Notes = *notes
	}
	p.UpdatedAt = now
	return nil
}

func (p *Payment) setStatus(action Action, next Status, now time.Time) error {
	if err := Transition(p.Status, action, next); err != nil {
		return err
	}
	if next != p.Status {
		p.StatusChangedAt = now
	}
	p.Status = next
	p.UpdatedAt = now
	return nil
}

func (p *Payment) appendNote(note string) {
	if p.Notes == "" {
		p.Notes = note
		return
	}
	p.Notes += "\n" + note
}

// GraceDays is the distance between due date and window end.
func (p *Payment) GraceDays() int {
	return clock.DaysBetween(p.DueDate, p.WindowEnd)
}
