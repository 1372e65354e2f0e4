package httpapi

import (
	"context"
	"time"

	"landten/internal/app"
	"landten/internal/domain/identity"
	"landten/internal/domain/landlord"
	"landten/internal/domain/notification"
	"landten/internal/domain/payment"
	"landten/internal/domain/property"
	"landten/internal/domain/schedule"
	"landten/internal/domain/tenant"

	"github.com/google/uuid"
)

// The interfaces below are the slices of the app services the handlers call.
// *app.XService values satisfy them.

type AuthAPI interface {
	Register(ctx context.Context, in app.RegisterInput) (*landlord.Landlord, *app.Session, error)
	Login(ctx context.Context, email, password string) (*app.Session, error)
	Me(ctx context.Context, who identity.Principal) (*landlord.Landlord, error)
	UpdateProfile(ctx context.Context, who identity.Principal, in app.LandlordUpdate) (*landlord.Landlord, error)
	SetupTenantPassword(ctx context.Context, tenantID uuid.UUID, email, password string) (*app.Session, error)
	TenantLogin(ctx context.Context, email, password string) (*app.Session, error)
	ChangeTenantPassword(ctx context.Context, who identity.Principal, current, next string) error
	VerifyToken(token string) (identity.Principal, error)
}

type PropertyAPI interface {
	CreateProperty(ctx context.Context, who identity.Principal, in app.PropertyInput) (*property.Property, error)
	ListProperties(ctx context.Context, who identity.Principal) ([]*property.Property, error)
	GetProperty(ctx context.Context, who identity.Principal, id uuid.UUID) (*property.Property, error)
	UpdateProperty(ctx context.Context, who identity.Principal, id uuid.UUID, in app.PropertyUpdate) (*property.Property, error)
	DeleteProperty(ctx context.Context, who identity.Principal, id uuid.UUID) error
	CreateRoom(ctx context.Context, who identity.Principal, in app.RoomInput) (*property.Room, error)
	ListRooms(ctx context.Context, who identity.Principal, propertyID uuid.UUID) ([]*property.Room, error)
	GetRoom(ctx context.Context, who identity.Principal, id uuid.UUID) (*property.Room, error)
	UpdateRoom(ctx context.Context, who identity.Principal, id uuid.UUID, in app.RoomUpdate) (*property.Room, error)
	DeleteRoom(ctx context.Context, who identity.Principal, id uuid.UUID) error
}

type TenantAPI interface {
	Onboard(ctx context.Context, who identity.Principal, in app.OnboardInput) (*tenant.Placement, error)
	List(ctx context.Context, who identity.Principal, propertyID uuid.UUID, activeOnly bool) ([]*tenant.Placement, error)
	Get(ctx context.Context, who identity.Principal, id uuid.UUID) (*tenant.Placement, error)
	Update(ctx context.Context, who identity.Principal, id uuid.UUID, in app.TenantUpdate) (*tenant.Placement, error)
	MoveOut(ctx context.Context, who identity.Principal, id uuid.UUID, moveOut time.Time) (*tenant.Placement, error)
	GetSchedule(ctx context.Context, who identity.Principal, tenantID uuid.UUID) (*schedule.Schedule, error)
	SetSchedule(ctx context.Context, who identity.Principal, tenantID uuid.UUID, in app.ScheduleInput) (*schedule.Schedule, error)
}

type PaymentAPI interface {
	List(ctx context.Context, who identity.Principal, in app.ListInput) ([]*payment.Payment, error)
	Get(ctx context.Context, who identity.Principal, id uuid.UUID) (*payment.Payment, error)
	Upcoming(ctx context.Context, who identity.Principal, days int) ([]*payment.Payment, error)
	Overdue(ctx context.Context, who identity.Principal) ([]*payment.Payment, error)
	MarkPaid(ctx context.Context, who identity.Principal, id uuid.UUID, in app.MarkPaidInput) (*payment.Payment, error)
	Waive(ctx context.Context, who identity.Principal, id uuid.UUID, reason string) (*payment.Payment, error)
	CreateManual(ctx context.Context, who identity.Principal, in app.ManualInput) (*payment.Payment, error)
	Update(ctx context.Context, who identity.Principal, id uuid.UUID, in app.UpdateInput) (*payment.Payment, error)
	Summary(ctx context.Context, who identity.Principal) (*app.Summary, error)
}

type ReceiptAPI interface {
	Upload(ctx context.Context, who identity.Principal, paymentID uuid.UUID, data []byte) (*payment.Payment, error)
	Reject(ctx context.Context, who identity.Principal, paymentID uuid.UUID) (*payment.Payment, error)
	Download(ctx context.Context, who identity.Principal, paymentID uuid.UUID) ([]byte, string, error)
}

type NotificationAPI interface {
	List(ctx context.Context, who identity.Principal, opts notification.ListOptions) (*app.NotificationPage, error)
	MarkRead(ctx context.Context, who identity.Principal, id uuid.UUID) (*notification.Notification, error)
	MarkAllRead(ctx context.Context, who identity.Principal) (int64, error)
	SendReminder(ctx context.Context, who identity.Principal, in app.ReminderInput) (*app.ReminderResult, error)
}

type AnalyticsAPI interface {
	Dashboard(ctx context.Context, who identity.Principal) (*app.Dashboard, error)
}

// Services bundles everything the API serves.
type Services struct {
	Auth          AuthAPI
	Properties    PropertyAPI
	Tenants       TenantAPI
	Payments      PaymentAPI
	Receipts      ReceiptAPI
	Notifications NotificationAPI
	Analytics     AnalyticsAPI
}
