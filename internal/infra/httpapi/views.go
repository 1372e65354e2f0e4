package httpapi

import (
	"time"

	"landten/internal/app"
	"landten/internal/domain/landlord"
	"landten/internal/domain/notification"
	"landten/internal/domain/payment"
	"landten/internal/domain/property"
	"landten/internal/domain/schedule"
	"landten/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dateString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

type sessionView struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   string    `json:"expires_at"`
	Role        string    `json:"role"`
	UserID      uuid.UUID `json:"user_id"`
}

func newSessionView(s *app.Session) sessionView {
	return sessionView{
		AccessToken: s.Token,
		TokenType:   "bearer",
		ExpiresAt:   timestamp(s.ExpiresAt),
		Role:        string(s.Principal.Role),
		UserID:      s.Principal.ID,
	}
}

type landlordView struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone,omitempty"`
	PrimaryCurrency string    `json:"primary_currency"`
	TelegramChatID  int64     `json:"telegram_chat_id,omitempty"`
	CreatedAt       string    `json:"created_at"`
}

func newLandlordView(l *landlord.Landlord) landlordView {
	return landlordView{
		ID:              l.ID,
		Email:           l.Email,
		Name:            l.Name,
		Phone:           l.Phone,
		PrimaryCurrency: l.PrimaryCurrency,
		TelegramChatID:  l.TelegramChatID,
		CreatedAt:       timestamp(l.CreatedAt),
	}
}

type propertyView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Description string    `json:"description,omitempty"`
	CreatedAt   string    `json:"created_at"`
}

func newPropertyView(p *property.Property) propertyView {
	return propertyView{ID: p.ID, Name: p.Name, Address: p.Address, Description: p.Description, CreatedAt: timestamp(p.CreatedAt)}
}

type roomView struct {
	ID         uuid.UUID       `json:"id"`
	PropertyID uuid.UUID       `json:"property_id"`
	Name       string          `json:"name"`
	RentAmount decimal.Decimal `json:"rent_amount"`
	Currency   string          `json:"currency"`
	IsOccupied bool            `json:"is_occupied"`
}

func newRoomView(r *property.Room) roomView {
	return roomView{ID: r.ID, PropertyID: r.PropertyID, Name: r.Name, RentAmount: r.RentAmount, Currency: r.Currency, IsOccupied: r.IsOccupied}
}

type tenantView struct {
	ID             uuid.UUID `json:"id"`
	RoomID         uuid.UUID `json:"room_id"`
	RoomName       string    `json:"room_name"`
	PropertyID     uuid.UUID `json:"property_id"`
	PropertyName   string    `json:"property_name"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	MoveInDate     string    `json:"move_in_date"`
	MoveOutDate    string    `json:"move_out_date,omitempty"`
	IsActive       bool      `json:"is_active"`
	Notes          string    `json:"notes,omitempty"`
	PortalEnabled  bool      `json:"portal_enabled"`
	TelegramChatID int64     `json:"telegram_chat_id,omitempty"`
}

func newTenantView(pl *tenant.Placement) tenantView {
	t := pl.Tenant
	v := tenantView{
		ID:             t.ID,
		RoomID:         t.RoomID,
		RoomName:       pl.RoomName,
		PropertyID:     pl.PropertyID,
		PropertyName:   pl.PropertyName,
		Name:           t.Name,
		Email:          t.Email,
		Phone:          t.Phone,
		MoveInDate:     dateString(t.MoveInDate),
		IsActive:       t.IsActive,
		Notes:          t.Notes,
		PortalEnabled:  t.PasswordHash.Valid,
		TelegramChatID: t.TelegramChatID,
	}
	if t.MoveOutDate.Valid {
		v.MoveOutDate = dateString(t.MoveOutDate.Time)
	}
	return v
}

type scheduleView struct {
	ID        uuid.UUID       `json:"id"`
	TenantID  uuid.UUID       `json:"tenant_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Frequency string          `json:"frequency"`
	DueDay    int             `json:"due_day"`
	GraceDays int             `json:"grace_window_days"`
	StartDate string          `json:"start_date"`
	IsActive  bool            `json:"is_active"`
}

func newScheduleView(s *schedule.Schedule) scheduleView {
	return scheduleView{
		ID:        s.ID,
		TenantID:  s.TenantID,
		Amount:    s.Amount,
		Currency:  s.Currency,
		Frequency: string(s.Frequency),
		DueDay:    s.DueDay,
		GraceDays: s.GraceDays,
		StartDate: dateString(s.StartDate),
		IsActive:  s.IsActive,
	}
}

type paymentView struct {
	ID              uuid.UUID       `json:"id"`
	TenantID        uuid.UUID       `json:"tenant_id"`
	ScheduleID      *uuid.UUID      `json:"schedule_id,omitempty"`
	PeriodStart     string          `json:"period_start"`
	PeriodEnd       string          `json:"period_end"`
	AmountDue       decimal.Decimal `json:"amount_due"`
	Currency        string          `json:"currency"`
	DueDate         string          `json:"due_date"`
	WindowEndDate   string          `json:"window_end_date"`
	Status          string          `json:"status"`
	StatusChangedAt string          `json:"status_changed_at"`
	PaidDate        string          `json:"paid_date,omitempty"`
	Reference       string          `json:"reference,omitempty"`
	HasReceipt      bool            `json:"has_receipt"`
	Notes           string          `json:"notes,omitempty"`
	IsManual        bool            `json:"is_manual"`
}

func newPaymentView(p *payment.Payment) paymentView {
	v := paymentView{
		ID:              p.ID,
		TenantID:        p.TenantID,
		PeriodStart:     dateString(p.PeriodStart),
		PeriodEnd:       dateString(p.PeriodEnd),
		AmountDue:       p.AmountDue,
		Currency:        p.Currency,
		DueDate:         dateString(p.DueDate),
		WindowEndDate:   dateString(p.WindowEnd),
		Status:          string(p.Status),
		StatusChangedAt: timestamp(p.StatusChangedAt),
		Reference:       p.Reference,
		HasReceipt:      p.ReceiptLocator != "",
		Notes:           p.Notes,
		IsManual:        p.IsManual,
	}
	if p.ScheduleID.Valid {
		id := p.ScheduleID.UUID
		v.ScheduleID = &id
	}
	if p.PaidDate.Valid {
		v.PaidDate = dateString(p.PaidDate.Time)
	}
	return v
}

func newPaymentViews(ps []*payment.Payment) []paymentView {
	out := make([]paymentView, 0, len(ps))
	for _, p := range ps {
		out = append(out, newPaymentView(p))
	}
	return out
}

type summaryView struct {
	Currency    string                     `json:"currency"`
	Counts      map[string]int             `json:"counts"`
	Totals      map[string]decimal.Decimal `json:"totals"`
	Outstanding decimal.Decimal            `json:"outstanding"`
	Collected   decimal.Decimal            `json:"collected"`
}

func newSummaryView(s *app.Summary) summaryView {
	v := summaryView{
		Currency:    s.Currency,
		Counts:      make(map[string]int, len(s.Counts)),
		Totals:      make(map[string]decimal.Decimal, len(s.Totals)),
		Outstanding: s.Outstanding,
		Collected:   s.Collected,
	}
	for st, n := range s.Counts {
		v.Counts[string(st)] = n
	}
	for st, amt := range s.Totals {
		v.Totals[string(st)] = amt
	}
	return v
}

type notificationView struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	IsRead    bool       `json:"is_read"`
	TenantID  *uuid.UUID `json:"tenant_id,omitempty"`
	PaymentID *uuid.UUID `json:"payment_id,omitempty"`
	CreatedAt string     `json:"created_at"`
}

func newNotificationView(n *notification.Notification) notificationView {
	v := notificationView{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: timestamp(n.CreatedAt),
	}
	if n.TenantID.Valid {
		id := n.TenantID.UUID
		v.TenantID = &id
	}
	if n.PaymentID.Valid {
		id := n.PaymentID.UUID
		v.PaymentID = &id
	}
	return v
}

type notificationPageView struct {
	Notifications []notificationView `json:"notifications"`
	Total         int                `json:"total"`
	UnreadCount   int                `json:"unread_count"`
}

type dashboardView struct {
	Currency       string          `json:"currency"`
	Month          string          `json:"month"`
	Expected       decimal.Decimal `json:"expected"`
	Received       decimal.Decimal `json:"received"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	CollectionRate decimal.Decimal `json:"collection_rate"`
	OverdueCount   int             `json:"overdue_count"`
	OverdueAmount  decimal.Decimal `json:"overdue_amount"`
	RoomsTotal     int             `json:"rooms_total"`
	RoomsOccupied  int             `json:"rooms_occupied"`
	ActiveTenants  int             `json:"active_tenants"`
}

func newDashboardView(d *app.Dashboard) dashboardView {
	return dashboardView{
		Currency:       d.Currency,
		Month:          d.Month,
		Expected:       d.Expected,
		Received:       d.Received,
		Outstanding:    d.Outstanding,
		CollectionRate: d.CollectionRate,
		OverdueCount:   d.OverdueCount,
		OverdueAmount:  d.OverdueAmount,
		RoomsTotal:     d.RoomsTotal,
		RoomsOccupied:  d.RoomsOccupied,
		ActiveTenants:  d.ActiveTenants,
	}
}
