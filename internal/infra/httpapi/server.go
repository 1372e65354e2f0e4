// Package httpapi exposes the REST API and the notification stream.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"landten/internal/app"
	"landten/internal/domain/identity"
	"landten/internal/infra/sse"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultPingInterval = 30 * time.Second
	// multipartOverhead is slack on top of the receipt limit for form framing.
	multipartOverhead = 64 << 10
)

type Options struct {
	LoginRatePerMinute int
	PingInterval       time.Duration
	MaxReceiptBytes    int64
}

type Server struct {
	svc     Services
	hub     *sse.Hub
	opts    Options
	limiter *ipLimiter
	log     *logrus.Entry
}

func NewServer(svc Services, hub *sse.Hub, opts Options, log *logrus.Entry) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.LoginRatePerMinute <= 0 {
		opts.LoginRatePerMinute = 5
	}
	return &Server{
		svc:     svc,
		hub:     hub,
		opts:    opts,
		limiter: newIPLimiter(opts.LoginRatePerMinute),
		log:     log,
	}
}

// authedHandler is a handler that runs with a verified principal.
type authedHandler func(w http.ResponseWriter, r *http.Request, who identity.Principal)

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// landlord auth
	mux.HandleFunc("POST /api/auth/register", s.limited(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.limited(s.handleLogin))
	mux.HandleFunc("GET /api/auth/me", s.authed(s.handleMe))
	mux.HandleFunc("PATCH /api/auth/me", s.authed(s.handleUpdateMe))

	// tenant portal auth
	mux.HandleFunc("POST /api/tenant-auth/setup-password", s.limited(s.handleTenantSetup))
	mux.HandleFunc("POST /api/tenant-auth/login", s.limited(s.handleTenantLogin))
	mux.HandleFunc("POST /api/tenant-auth/change-password", s.authed(s.handleTenantChangePassword))

	mux.HandleFunc("GET /api/properties", s.authed(s.handleListProperties))
	mux.HandleFunc("POST /api/properties", s.authed(s.handleCreateProperty))
	mux.HandleFunc("GET /api/properties/{id}", s.authed(s.handleGetProperty))
	mux.HandleFunc("PATCH /api/properties/{id}", s.authed(s.handleUpdateProperty))
	mux.HandleFunc("DELETE /api/properties/{id}", s.authed(s.handleDeleteProperty))
	mux.HandleFunc("GET /api/properties/{id}/rooms", s.authed(s.handlePropertyRooms))

	mux.HandleFunc("GET /api/rooms", s.authed(s.handleListRooms))
	mux.HandleFunc("POST /api/rooms", s.authed(s.handleCreateRoom))
	mux.HandleFunc("GET /api/rooms/{id}", s.authed(s.handleGetRoom))
	mux.HandleFunc("PATCH /api/rooms/{id}", s.authed(s.handleUpdateRoom))
	mux.HandleFunc("DELETE /api/rooms/{id}", s.authed(s.handleDeleteRoom))

	mux.HandleFunc("GET /api/tenants", s.authed(s.handleListTenants))
	mux.HandleFunc("POST /api/tenants", s.authed(s.handleOnboard))
	mux.HandleFunc("GET /api/tenants/{id}", s.authed(s.handleGetTenant))
	mux.HandleFunc("PATCH /api/tenants/{id}", s.authed(s.handleUpdateTenant))
	mux.HandleFunc("POST /api/tenants/{id}/move-out", s.authed(s.handleMoveOut))
	mux.HandleFunc("GET /api/tenants/{id}/schedule", s.authed(s.handleGetSchedule))
	mux.HandleFunc("PUT /api/tenants/{id}/schedule", s.authed(s.handleSetSchedule))

	mux.HandleFunc("GET /api/payments", s.authed(s.handleListPayments))
	mux.HandleFunc("GET /api/payments/summary", s.authed(s.handlePaymentSummary))
	mux.HandleFunc("GET /api/payments/upcoming", s.authed(s.handleUpcoming))
	mux.HandleFunc("GET /api/payments/overdue", s.authed(s.handleOverdue))
	mux.HandleFunc("POST /api/payments/manual", s.authed(s.handleCreateManual))
	mux.HandleFunc("GET /api/payments/{id}", s.authed(s.handleGetPayment))
	mux.HandleFunc("PATCH /api/payments/{id}", s.authed(s.handleUpdatePayment))
	mux.HandleFunc("POST /api/payments/{id}/mark-paid", s.authed(s.handleMarkPaid))
	mux.HandleFunc("POST /api/payments/{id}/waive", s.authed(s.handleWaive))
	mux.HandleFunc("POST /api/payments/{id}/receipt", s.authed(s.handleUploadReceipt))
	mux.HandleFunc("GET /api/payments/{id}/receipt", s.authed(s.handleDownloadReceipt))
	mux.HandleFunc("POST /api/payments/{id}/reject-receipt", s.authed(s.handleRejectReceipt))

	mux.HandleFunc("GET /api/notifications", s.authed(s.handleListNotifications))
	mux.HandleFunc("POST /api/notifications/{id}/read", s.authed(s.handleMarkRead))
	mux.HandleFunc("POST /api/notifications/read-all", s.authed(s.handleMarkAllRead))
	mux.HandleFunc("POST /api/notifications/send-reminder", s.authed(s.handleSendReminder))
	mux.HandleFunc("GET /api/notifications/stream", s.authed(s.handleStream))

	mux.HandleFunc("GET /api/analytics/dashboard", s.authed(s.handleDashboard))

	mux.HandleFunc("GET /api/portal/me", s.authed(s.handlePortalMe))
	mux.HandleFunc("GET /api/portal/payments", s.authed(s.handleListPayments))
	mux.HandleFunc("GET /api/portal/schedule", s.authed(s.handlePortalSchedule))

	return s.withLogging(mux)
}

type loggerKey struct{}

// statusRecorder remembers the response code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		logCtx := s.log.WithFields(logrus.Fields{
			"request_id": uuid.NewString(),
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		r = r.WithContext(context.WithValue(r.Context(), loggerKey{}, logCtx))

		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				logCtx.WithField("panic", p).Error("Handler panicked")
				writeJSON(rec, http.StatusInternalServerError, errorBody{Error: "internal error"})
			}
			logCtx.WithFields(logrus.Fields{
				"status":   rec.status,
				"duration": time.Since(started).String(),
			}).Info("Request handled")
		}()
		next.ServeHTTP(rec, r)
	})
}

// authed verifies the bearer token and hands the principal to h. EventSource
// clients cannot set headers, so the token may also come in the query string.
func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.writeError(w, r, app.ErrUnauthenticated)
			return
		}
		who, err := s.svc.Auth.VerifyToken(token)
		if err != nil {
			if !errors.Is(err, app.ErrUnauthenticated) {
				err = app.ErrUnauthenticated
			}
			s.writeError(w, r, err)
			return
		}
		ctx := identity.WithPrincipal(r.Context(), who)
		if e, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
			ctx = context.WithValue(ctx, loggerKey{}, e.WithFields(logrus.Fields{"user_id": who.ID, "role": who.Role}))
		}
		h(w, r.WithContext(ctx), who)
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if r.URL.Path == "/api/notifications/stream" {
		return r.URL.Query().Get("token")
	}
	return ""
}

// limited applies the per-IP login rate limit.
func (s *Server) limited(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientIP(r)) {
			requestLogger(r.Context(), s.log).Warn("Login rate limit exceeded")
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "too many attempts, try again later"})
			return
		}
		h(w, r)
	}
}
