package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"landten/internal/app"
	"landten/internal/domain/identity"
	"landten/internal/domain/notification"
	"landten/internal/domain/payment"
	"landten/internal/domain/property"
	"landten/internal/infra/logger"
	"landten/internal/infra/sse"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	landlordID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	tenantID   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

const (
	landlordToken = "landlord-token"
	tenantToken   = "tenant-token"
)

type stubAuth struct {
	AuthAPI
	loginErr error
	logins   int
}

func (s *stubAuth) VerifyToken(token string) (identity.Principal, error) {
	switch token {
	case landlordToken:
		return identity.Principal{ID: landlordID, Role: identity.RoleLandlord}, nil
	case tenantToken:
		return identity.Principal{ID: tenantID, Role: identity.RoleTenant}, nil
	}
	return identity.Principal{}, fmt.Errorf("%w: bad token", app.ErrUnauthenticated)
}

func (s *stubAuth) Login(_ context.Context, _, _ string) (*app.Session, error) {
	s.logins++
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &app.Session{
		Token:     landlordToken,
		ExpiresAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Principal: identity.Principal{ID: landlordID, Role: identity.RoleLandlord},
	}, nil
}

type stubPayments struct {
	PaymentAPI
	payment  *payment.Payment
	err      error
	gotList  app.ListInput
	gotPaid  app.MarkPaidInput
	gotWho   identity.Principal
	listResp []*payment.Payment
}

func (s *stubPayments) Get(_ context.Context, who identity.Principal, _ uuid.UUID) (*payment.Payment, error) {
	s.gotWho = who
	return s.payment, s.err
}

func (s *stubPayments) List(_ context.Context, who identity.Principal, in app.ListInput) ([]*payment.Payment, error) {
	s.gotWho, s.gotList = who, in
	return s.listResp, s.err
}

func (s *stubPayments) MarkPaid(_ context.Context, _ identity.Principal, _ uuid.UUID, in app.MarkPaidInput) (*payment.Payment, error) {
	s.gotPaid = in
	return s.payment, s.err
}

type stubReceipts struct {
	ReceiptAPI
	uploaded []byte
	payment  *payment.Payment
	data     []byte
}

func (s *stubReceipts) Upload(_ context.Context, _ identity.Principal, _ uuid.UUID, data []byte) (*payment.Payment, error) {
	s.uploaded = data
	return s.payment, nil
}

func (s *stubReceipts) Download(_ context.Context, _ identity.Principal, _ uuid.UUID) ([]byte, string, error) {
	return s.data, "application/pdf", nil
}

type stubProperties struct {
	PropertyAPI
	err error
}

func (s *stubProperties) DeleteProperty(_ context.Context, _ identity.Principal, _ uuid.UUID) error {
	return s.err
}

type stubNotifications struct {
	NotificationAPI
	page *app.NotificationPage
	opts notification.ListOptions
}

func (s *stubNotifications) List(_ context.Context, _ identity.Principal, opts notification.ListOptions) (*app.NotificationPage, error) {
	s.opts = opts
	return s.page, nil
}

type testServer struct {
	*Server
	auth     *stubAuth
	payments *stubPayments
	receipts *stubReceipts
	props    *stubProperties
	notifs   *stubNotifications
	hub      *sse.Hub
	handler  http.Handler
}

func newTestServer(opts Options) *testServer {
	ts := &testServer{
		auth:     &stubAuth{},
		payments: &stubPayments{},
		receipts: &stubReceipts{},
		props:    &stubProperties{},
		notifs:   &stubNotifications{},
		hub:      sse.NewHub(4, logger.Discard()),
	}
	ts.Server = NewServer(Services{
		Auth:          ts.auth,
		Payments:      ts.payments,
		Receipts:      ts.receipts,
		Properties:    ts.props,
		Notifications: ts.notifs,
	}, ts.hub, opts, logger.Discard())
	ts.handler = ts.Handler()
	return ts
}

func (ts *testServer) do(method, path, token string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func samplePayment() *payment.Payment {
	return &payment.Payment{
		ID:          uuid.MustParse("33333333-3333-3333-3333-333333333333"),
		TenantID:    tenantID,
		PeriodStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		AmountDue:   decimal.RequireFromString("1200.50"),
		Currency:    "USD",
		DueDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
		Status:      payment.StatusPending,
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&app.ValidationError{Field: "amount", Message: "must be positive"}, http.StatusBadRequest},
		{&payment.TransitionError{Action: payment.ActionMarkPaid, Current: payment.StatusWaived}, http.StatusConflict},
		{payment.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", property.ErrRoomNotFound), http.StatusNotFound},
		{property.ErrInUse, http.StatusConflict},
		{fmt.Errorf("%w: disk full", app.ErrStorage), http.StatusServiceUnavailable},
		{app.ErrInvalidCredentials, http.StatusUnauthorized},
		{app.ErrForbidden, http.StatusForbidden},
		{app.ErrNotDelivered, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestServer_RequiresToken(t *testing.T) {
	ts := newTestServer(Options{})

	rec := ts.do(http.MethodGet, "/api/payments", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/payments", "forged", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_GetPayment(t *testing.T) {
	ts := newTestServer(Options{})
	ts.payments.payment = samplePayment()

	rec := ts.do(http.MethodGet, "/api/payments/"+ts.payments.payment.ID.String(), tenantToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "1200.5", got["amount_due"])
	assert.Equal(t, "2024-03-01", got["due_date"])
	assert.Equal(t, "2024-03-06", got["window_end_date"])
	assert.Equal(t, "pending", got["status"])
	assert.Equal(t, identity.RoleTenant, ts.payments.gotWho.Role)
}

func TestServer_GetPaymentErrors(t *testing.T) {
	ts := newTestServer(Options{})

	rec := ts.do(http.MethodGet, "/api/payments/not-a-uuid", landlordToken, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id", decodeBody[errorBody](t, rec).Field)

	ts.payments.err = payment.ErrNotFound
	rec = ts.do(http.MethodGet, "/api/payments/"+uuid.NewString(), landlordToken, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ts.payments.err = errors.New("connection reset")
	rec = ts.do(http.MethodGet, "/api/payments/"+uuid.NewString(), landlordToken, nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeBody[errorBody](t, rec).Error)
}

func TestServer_ListPaymentsParsesFilters(t *testing.T) {
	ts := newTestServer(Options{})
	ts.payments.listResp = []*payment.Payment{samplePayment()}

	rec := ts.do(http.MethodGet, "/api/payments?status=pending,overdue&status=late&due_from=2024-03-01&limit=10&tenant_id="+tenantID.String(), landlordToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []payment.Status{payment.StatusPending, payment.StatusOverdue, payment.StatusLate}, ts.payments.gotList.Statuses)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), ts.payments.gotList.DueFrom)
	assert.Equal(t, 10, ts.payments.gotList.Limit)
	assert.Equal(t, tenantID, ts.payments.gotList.TenantID)
	assert.Len(t, decodeBody[[]paymentView](t, rec), 1)

	rec = ts.do(http.MethodGet, "/api/payments?due_to=March", landlordToken, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_MarkPaidConflictReportsCurrentStatus(t *testing.T) {
	ts := newTestServer(Options{})
	ts.payments.err = &payment.TransitionError{Action: payment.ActionMarkPaid, Current: payment.StatusWaived}

	body := []byte(`{"paid_date":"2024-03-04","payment_reference":"TRX-1"}`)
	rec := ts.do(http.MethodPost, "/api/payments/"+uuid.NewString()+"/mark-paid", landlordToken, body, "application/json")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "waived", decodeBody[errorBody](t, rec).CurrentStatus)
	assert.Equal(t, "TRX-1", ts.payments.gotPaid.Reference)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), ts.payments.gotPaid.PaidDate)
}

func TestServer_MalformedJSON(t *testing.T) {
	ts := newTestServer(Options{})
	rec := ts.do(http.MethodPost, "/api/payments/"+uuid.NewString()+"/mark-paid", landlordToken, []byte(`{`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "body", decodeBody[errorBody](t, rec).Field)
}

func TestServer_UploadReceipt(t *testing.T) {
	ts := newTestServer(Options{MaxReceiptBytes: 1 << 20})
	ts.receipts.payment = samplePayment()
	ts.receipts.payment.Status = payment.StatusVerifying
	ts.receipts.payment.ReceiptLocator = "abc"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "receipt.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.7 receipt"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := ts.do(http.MethodPost, "/api/payments/"+uuid.NewString()+"/receipt", tenantToken, buf.Bytes(), mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []byte("%PDF-1.7 receipt"), ts.receipts.uploaded)
	got := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "verifying", got["status"])
	assert.Equal(t, true, got["has_receipt"])

	rec = ts.do(http.MethodPost, "/api/payments/"+uuid.NewString()+"/receipt", tenantToken, []byte("raw"), "application/pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "file", decodeBody[errorBody](t, rec).Field)
}

func TestServer_DownloadReceipt(t *testing.T) {
	ts := newTestServer(Options{})
	ts.receipts.data = []byte("%PDF-1.7")

	rec := ts.do(http.MethodGet, "/api/payments/"+uuid.NewString()+"/receipt", landlordToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.7", rec.Body.String())
}

func TestServer_DeletePropertyInUse(t *testing.T) {
	ts := newTestServer(Options{})
	ts.props.err = property.ErrInUse

	rec := ts.do(http.MethodDelete, "/api/properties/"+uuid.NewString(), landlordToken, nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	ts.props.err = nil
	rec = ts.do(http.MethodDelete, "/api/properties/"+uuid.NewString(), landlordToken, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServer_ListNotifications(t *testing.T) {
	ts := newTestServer(Options{})
	ts.notifs.page = &app.NotificationPage{
		Items: []*notification.Notification{{
			ID:        uuid.New(),
			Type:      notification.TypePaymentOverdue,
			Title:     "Payment overdue",
			PaymentID: uuid.NullUUID{UUID: uuid.New(), Valid: true},
		}},
		Total:  7,
		Unread: 3,
	}

	rec := ts.do(http.MethodGet, "/api/notifications?unread_only=true&limit=20&offset=5", landlordToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notification.ListOptions{UnreadOnly: true, Limit: 20, Offset: 5}, ts.notifs.opts)
	page := decodeBody[notificationPageView](t, rec)
	assert.Equal(t, 7, page.Total)
	assert.Equal(t, 3, page.UnreadCount)
	require.Len(t, page.Notifications, 1)
	assert.NotNil(t, page.Notifications[0].PaymentID)
	assert.Nil(t, page.Notifications[0].TenantID)
}

func TestServer_LoginRateLimit(t *testing.T) {
	ts := newTestServer(Options{LoginRatePerMinute: 3})
	ts.auth.loginErr = app.ErrInvalidCredentials
	body := []byte(`{"email":"a@example.com","password":"wrong"}`)

	for i := 0; i < 3; i++ {
		rec := ts.do(http.MethodPost, "/api/auth/login", "", body, "application/json")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := ts.do(http.MethodPost, "/api/auth/login", "", body, "application/json")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 3, ts.auth.logins, "limited attempts never reach the service")
}

func TestServer_Login(t *testing.T) {
	ts := newTestServer(Options{})
	rec := ts.do(http.MethodPost, "/api/auth/login", "", []byte(`{"email":"a@example.com","password":"secret123"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decodeBody[sessionView](t, rec)
	assert.Equal(t, landlordToken, sess.AccessToken)
	assert.Equal(t, "bearer", sess.TokenType)
	assert.Equal(t, "landlord", sess.Role)
}

func TestServer_StreamForbiddenForTenant(t *testing.T) {
	ts := newTestServer(Options{})
	rec := ts.do(http.MethodGet, "/api/notifications/stream", tenantToken, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_Stream(t *testing.T) {
	ts := newTestServer(Options{PingInterval: 20 * time.Millisecond})
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/notifications/stream?token="+landlordToken, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 16)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if name, ok := strings.CutPrefix(sc.Text(), "event: "); ok {
				select {
				case events <- name:
				case <-ctx.Done():
					return
				}
			}
		}
		close(events)
	}()

	next := func() string {
		select {
		case name := <-events:
			return name
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for an event")
			return ""
		}
	}

	assert.Equal(t, "connected", next())
	require.Eventually(t, func() bool { return ts.hub.Subscribers(landlordID) == 1 }, time.Second, 5*time.Millisecond)

	ts.hub.Publish(&notification.Notification{ID: uuid.New(), LandlordID: landlordID, Type: notification.TypeReceiptSubmitted})
	seen := map[string]bool{}
	for !seen[string(notification.TypeReceiptSubmitted)] || !seen["ping"] {
		seen[next()] = true
	}

	cancel()
	require.Eventually(t, func() bool { return ts.hub.Subscribers(landlordID) == 0 }, time.Second, 5*time.Millisecond)
}

func TestIPLimiter_SeparatesClients(t *testing.T) {
	l := newIPLimiter(1)
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))
}
