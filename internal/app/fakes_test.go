package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"landten/internal/domain/landlord"
	"landten/internal/domain/messaging"
	"landten/internal/domain/notification"
	"landten/internal/domain/payment"
	"landten/internal/domain/property"
	"landten/internal/domain/receipt"
	"landten/internal/domain/schedule"
	"landten/internal/domain/tenant"

	"github.com/google/uuid"
)

// world is an in-memory database shared by the fake repositories.
// Values are copied in and out so callers cannot mutate stored rows.
type world struct {
	mu            sync.Mutex
	landlords     map[uuid.UUID]landlord.Landlord
	properties    map[uuid.UUID]property.Property
	rooms         map[uuid.UUID]property.Room
	tenants       map[uuid.UUID]tenant.Tenant
	schedules     map[uuid.UUID]schedule.Schedule
	payments      map[uuid.UUID]payment.Payment
	notifications []notification.Notification
}

func newWorld() *world {
	return &world{
		landlords:  map[uuid.UUID]landlord.Landlord{},
		properties: map[uuid.UUID]property.Property{},
		rooms:      map[uuid.UUID]property.Room{},
		tenants:    map[uuid.UUID]tenant.Tenant{},
		schedules:  map[uuid.UUID]schedule.Schedule{},
		payments:   map[uuid.UUID]payment.Payment{},
	}
}

func (w *world) landlordOf(tenantID uuid.UUID) uuid.UUID {
	t, ok := w.tenants[tenantID]
	if !ok {
		return uuid.Nil
	}
	r := w.rooms[t.RoomID]
	return w.properties[r.PropertyID].LandlordID
}

// landlords

type fakeLandlords struct{ w *world }

func (f fakeLandlords) Create(_ context.Context, l *landlord.Landlord) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, existing := range f.w.landlords {
		if existing.Email == l.Email {
			return landlord.ErrDuplicateEmail
		}
	}
	f.w.landlords[l.ID] = *l
	return nil
}

func (f fakeLandlords) GetByID(_ context.Context, id uuid.UUID) (*landlord.Landlord, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	l, ok := f.w.landlords[id]
	if !ok {
		return nil, landlord.ErrNotFound
	}
	return &l, nil
}

func (f fakeLandlords) GetByEmail(_ context.Context, email string) (*landlord.Landlord, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, l := range f.w.landlords {
		if l.Email == email {
			return &l, nil
		}
	}
	return nil, landlord.ErrNotFound
}

func (f fakeLandlords) Update(_ context.Context, l *landlord.Landlord) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.landlords[l.ID]; !ok {
		return landlord.ErrNotFound
	}
	f.w.landlords[l.ID] = *l
	return nil
}

// properties and rooms

type fakeProperties struct{ w *world }

func (f fakeProperties) CreateProperty(_ context.Context, p *property.Property) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	f.w.properties[p.ID] = *p
	return nil
}

func (f fakeProperties) GetProperty(_ context.Context, id uuid.UUID) (*property.Property, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	p, ok := f.w.properties[id]
	if !ok {
		return nil, property.ErrNotFound
	}
	return &p, nil
}

func (f fakeProperties) ListProperties(_ context.Context, landlordID uuid.UUID) ([]*property.Property, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []*property.Property
	for _, p := range f.w.properties {
		if p.LandlordID == landlordID {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (f fakeProperties) UpdateProperty(_ context.Context, p *property.Property) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.properties[p.ID]; !ok {
		return property.ErrNotFound
	}
	f.w.properties[p.ID] = *p
	return nil
}

func (f fakeProperties) DeleteProperty(_ context.Context, id uuid.UUID) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.properties[id]; !ok {
		return property.ErrNotFound
	}
	for _, r := range f.w.rooms {
		if r.PropertyID == id && r.IsOccupied {
			return property.ErrInUse
		}
	}
	for rid, r := range f.w.rooms {
		if r.PropertyID == id {
			delete(f.w.rooms, rid)
		}
	}
	delete(f.w.properties, id)
	return nil
}

func (f fakeProperties) CreateRoom(_ context.Context, r *property.Room) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	f.w.rooms[r.ID] = *r
	return nil
}

func (f fakeProperties) GetRoom(_ context.Context, id uuid.UUID) (*property.Room, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	r, ok := f.w.rooms[id]
	if !ok {
		return nil, property.ErrRoomNotFound
	}
	return &r, nil
}

func (f fakeProperties) ListRooms(_ context.Context, propertyID uuid.UUID) ([]*property.Room, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []*property.Room
	for _, r := range f.w.rooms {
		if r.PropertyID == propertyID {
			out = append(out, &r)
		}
	}
	return out, nil
}

func (f fakeProperties) ListRoomsByLandlord(_ context.Context, landlordID uuid.UUID) ([]*property.Room, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []*property.Room
	for _, r := range f.w.rooms {
		if f.w.properties[r.PropertyID].LandlordID == landlordID {
			out = append(out, &r)
		}
	}
	return out, nil
}

func (f fakeProperties) UpdateRoom(_ context.Context, r *property.Room) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.rooms[r.ID]; !ok {
		return property.ErrRoomNotFound
	}
	f.w.rooms[r.ID] = *r
	return nil
}

func (f fakeProperties) DeleteRoom(_ context.Context, id uuid.UUID) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	r, ok := f.w.rooms[id]
	if !ok {
		return property.ErrRoomNotFound
	}
	if r.IsOccupied {
		return property.ErrInUse
	}
	delete(f.w.rooms, id)
	return nil
}

// tenants

type fakeTenants struct{ w *world }

func (f fakeTenants) Onboard(_ context.Context, t *tenant.Tenant, s *schedule.Schedule) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	r, ok := f.w.rooms[t.RoomID]
	if !ok {
		return property.ErrRoomNotFound
	}
	if r.IsOccupied {
		return tenant.ErrRoomOccupied
	}
	for _, existing := range f.w.tenants {
		if existing.IsActive && strings.EqualFold(existing.Email, t.Email) {
			return tenant.ErrDuplicate
		}
	}
	f.w.tenants[t.ID] = *t
	r.IsOccupied = true
	f.w.rooms[r.ID] = r
	if s != nil {
		f.w.schedules[s.ID] = *s
	}
	return nil
}

func (f fakeTenants) GetByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	t, ok := f.w.tenants[id]
	if !ok {
		return nil, tenant.ErrNotFound
	}
	return &t, nil
}

func (f fakeTenants) GetByEmail(_ context.Context, email string) (*tenant.Tenant, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var found *tenant.Tenant
	for _, t := range f.w.tenants {
		if strings.EqualFold(t.Email, strings.TrimSpace(email)) {
			if found == nil || t.IsActive {
				found = &t
			}
		}
	}
	if found == nil {
		return nil, tenant.ErrNotFound
	}
	return found, nil
}

func (f fakeTenants) GetByTelegramChatID(_ context.Context, chatID int64) (*tenant.Tenant, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, t := range f.w.tenants {
		if t.IsActive && t.TelegramChatID == chatID {
			return &t, nil
		}
	}
	return nil, tenant.ErrNotFound
}

func (f fakeTenants) placement(t tenant.Tenant) *tenant.Placement {
	r := f.w.rooms[t.RoomID]
	p := f.w.properties[r.PropertyID]
	return &tenant.Placement{
		Tenant:       &t,
		RoomName:     r.Name,
		PropertyID:   p.ID,
		PropertyName: p.Name,
		LandlordID:   p.LandlordID,
	}
}

func (f fakeTenants) GetPlacement(_ context.Context, id uuid.UUID) (*tenant.Placement, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	t, ok := f.w.tenants[id]
	if !ok {
		return nil, tenant.ErrNotFound
	}
	return f.placement(t), nil
}

func (f fakeTenants) List(_ context.Context, filter tenant.Filter) ([]*tenant.Placement, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []*tenant.Placement
	for _, t := range f.w.tenants {
		pl := f.placement(t)
		if pl.LandlordID != filter.LandlordID {
			continue
		}
		if filter.PropertyID != uuid.Nil && pl.PropertyID != filter.PropertyID {
			continue
		}
		if filter.ActiveOnly && !t.IsActive {
			continue
		}
		out = append(out, pl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tenant.Name < out[j].Tenant.Name })
	return out, nil
}

func (f fakeTenants) Update(_ context.Context, t *tenant.Tenant) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.tenants[t.ID]; !ok {
		return tenant.ErrNotFound
	}
	f.w.tenants[t.ID] = *t
	return nil
}

func (f fakeTenants) MoveOut(_ context.Context, id uuid.UUID, moveOut time.Time) (*tenant.Tenant, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	t, ok := f.w.tenants[id]
	if !ok {
		return nil, tenant.ErrNotFound
	}
	if !t.IsActive {
		return nil, tenant.ErrInactive
	}
	t.IsActive = false
	t.MoveOutDate.Time, t.MoveOutDate.Valid = moveOut, true
	f.w.tenants[id] = t
	for sid, s := range f.w.schedules {
		if s.TenantID == id && s.IsActive {
			s.IsActive = false
			f.w.schedules[sid] = s
		}
	}
	r := f.w.rooms[t.RoomID]
	r.IsOccupied = false
	f.w.rooms[r.ID] = r
	return &t, nil
}

// schedules

type fakeSchedules struct{ w *world }

func (f fakeSchedules) Create(_ context.Context, s *schedule.Schedule) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, existing := range f.w.schedules {
		if existing.TenantID == s.TenantID && existing.IsActive && s.IsActive {
			return schedule.ErrAlreadyActive
		}
	}
	f.w.schedules[s.ID] = *s
	return nil
}

func (f fakeSchedules) GetByID(_ context.Context, id uuid.UUID) (*schedule.Schedule, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	s, ok := f.w.schedules[id]
	if !ok {
		return nil, schedule.ErrNotFound
	}
	return &s, nil
}

func (f fakeSchedules) GetActiveByTenant(_ context.Context, tenantID uuid.UUID) (*schedule.Schedule, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, s := range f.w.schedules {
		if s.TenantID == tenantID && s.IsActive {
			return &s, nil
		}
	}
	return nil, schedule.ErrNotFound
}

func (f fakeSchedules) Replace(_ context.Context, s *schedule.Schedule) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for id, existing := range f.w.schedules {
		if existing.TenantID == s.TenantID && existing.IsActive {
			existing.IsActive = false
			f.w.schedules[id] = existing
		}
	}
	f.w.schedules[s.ID] = *s
	return nil
}

func (f fakeSchedules) ListActive(_ context.Context) ([]*schedule.Schedule, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []*schedule.Schedule
	for _, s := range f.w.schedules {
		if s.IsActive && f.w.tenants[s.TenantID].IsActive {
			out = append(out, &s)
		}
	}
	return out, nil
}

// payments

type fakePayments struct{ w *world }

func (f fakePayments) CreateIfAbsent(_ context.Context, p *payment.Payment) (bool, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, existing := range f.w.payments {
		if existing.ScheduleID.Valid && existing.ScheduleID == p.ScheduleID && existing.PeriodStart.Equal(p.PeriodStart) {
			return false, nil
		}
	}
	f.w.payments[p.ID] = *p
	return true, nil
}

func (f fakePayments) Create(_ context.Context, p *payment.Payment) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	f.w.payments[p.ID] = *p
	return nil
}

func (f fakePayments) GetByID(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	p, ok := f.w.payments[id]
	if !ok {
		return nil, payment.ErrNotFound
	}
	return &p, nil
}

func (f fakePayments) List(_ context.Context, filter payment.Filter) ([]*payment.Payment, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []*payment.Payment
	for _, p := range f.w.payments {
		if filter.LandlordID != uuid.Nil && f.w.landlordOf(p.TenantID) != filter.LandlordID {
			continue
		}
		if filter.TenantID != uuid.Nil && p.TenantID != filter.TenantID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, p.Status) {
			continue
		}
		if !filter.DueFrom.IsZero() && p.DueDate.Before(filter.DueFrom) {
			continue
		}
		if !filter.DueTo.IsZero() && p.DueDate.After(filter.DueTo) {
			continue
		}
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.After(out[j].DueDate) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f fakePayments) ListByStatus(_ context.Context, statuses []payment.Status) ([]*payment.Payment, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []*payment.Payment
	for _, p := range f.w.payments {
		if containsStatus(statuses, p.Status) {
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (f fakePayments) Mutate(_ context.Context, id uuid.UUID, fn func(p *payment.Payment) error) (*payment.Payment, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	stored, ok := f.w.payments[id]
	if !ok {
		return nil, payment.ErrNotFound
	}
	p := stored
	if err := fn(&p); err != nil {
		return nil, err
	}
	f.w.payments[id] = p
	return &p, nil
}

func (f fakePayments) all() []payment.Payment {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	out := make([]payment.Payment, 0, len(f.w.payments))
	for _, p := range f.w.payments {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.Before(out[j].PeriodStart) })
	return out
}

func containsStatus(list []payment.Status, s payment.Status) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// notifications

type fakeNotifications struct{ w *world }

func (f fakeNotifications) Create(_ context.Context, n *notification.Notification) (bool, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if n.DedupeKey != "" {
		for _, existing := range f.w.notifications {
			if existing.DedupeKey == n.DedupeKey {
				return false, nil
			}
		}
	}
	f.w.notifications = append(f.w.notifications, *n)
	return true, nil
}

func (f fakeNotifications) List(_ context.Context, landlordID uuid.UUID, opts notification.ListOptions) ([]*notification.Notification, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []*notification.Notification
	for i := len(f.w.notifications) - 1; i >= 0; i-- {
		n := f.w.notifications[i]
		if n.LandlordID != landlordID || (opts.UnreadOnly && n.IsRead) {
			continue
		}
		out = append(out, &n)
	}
	if opts.Offset >= len(out) {
		return nil, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f fakeNotifications) Count(_ context.Context, landlordID uuid.UUID, unreadOnly bool) (notification.Counts, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var c notification.Counts
	for _, n := range f.w.notifications {
		if n.LandlordID != landlordID {
			continue
		}
		if !n.IsRead {
			c.Unread++
		}
		if !unreadOnly || !n.IsRead {
			c.Total++
		}
	}
	return c, nil
}

func (f fakeNotifications) MarkRead(_ context.Context, landlordID, id uuid.UUID) (*notification.Notification, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for i, n := range f.w.notifications {
		if n.ID == id && n.LandlordID == landlordID {
			f.w.notifications[i].IsRead = true
			n.IsRead = true
			return &n, nil
		}
	}
	return nil, notification.ErrNotFound
}

func (f fakeNotifications) MarkAllRead(_ context.Context, landlordID uuid.UUID) (int64, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var n int64
	for i := range f.w.notifications {
		if f.w.notifications[i].LandlordID == landlordID && !f.w.notifications[i].IsRead {
			f.w.notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (f fakeNotifications) all() []notification.Notification {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	return append([]notification.Notification(nil), f.w.notifications...)
}

func (f fakeNotifications) ofType(t notification.Type) []notification.Notification {
	var out []notification.Notification
	for _, n := range f.all() {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// collaborators

type recordingPublisher struct {
	mu        sync.Mutex
	published []*notification.Notification
}

func (p *recordingPublisher) Publish(n *notification.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, n)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type sentMessage struct {
	To   messaging.Recipient
	Text string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *recordingSender) Send(_ context.Context, to messaging.Recipient, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{To: to, Text: text})
	return nil
}

func (s *recordingSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

// addressCheckingSender fails for recipients without a Telegram chat, like the real adapter.
type addressCheckingSender struct{ recordingSender }

func (s *addressCheckingSender) Send(ctx context.Context, to messaging.Recipient, text string) error {
	if to.TelegramChatID == 0 {
		return messaging.ErrNoAddress
	}
	return s.recordingSender.Send(ctx, to, text)
}

type memBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
	err   error
	n     int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: map[string][]byte{}}
}

func (b *memBlobs) Store(_ context.Context, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return "", b.err
	}
	b.n++
	locator := uuid.NewString()
	b.blobs[locator] = append([]byte(nil), data...)
	return locator, nil
}

func (b *memBlobs) Retrieve(_ context.Context, locator string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[locator]
	if !ok {
		return nil, receipt.ErrBlobNotFound
	}
	return data, nil
}
