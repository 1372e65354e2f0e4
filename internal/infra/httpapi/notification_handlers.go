package httpapi

import (
	"net/http"
	"time"

	"landten/internal/app"
	"landten/internal/domain/identity"
	"landten/internal/domain/notification"
	"landten/internal/infra/sse"

	"github.com/google/uuid"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	var opts notification.ListOptions
	var err error
	if opts.UnreadOnly, err = queryBool(r, "unread_only", false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if opts.Limit, err = queryInt(r, "limit", 0); err != nil {
		s.writeError(w, r, err)
		return
	}
	if opts.Offset, err = queryInt(r, "offset", 0); err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.svc.Notifications.List(r.Context(), who, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]notificationView, 0, len(page.Items))
	for _, n := range page.Items {
		views = append(views, newNotificationView(n))
	}
	writeJSON(w, http.StatusOK, notificationPageView{Notifications: views, Total: page.Total, UnreadCount: page.Unread})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := s.svc.Notifications.MarkRead(r.Context(), who, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newNotificationView(n))
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	n, err := s.svc.Notifications.MarkAllRead(r.Context(), who)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marked_read": n})
}

type reminderRequest struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	PaymentID uuid.UUID `json:"payment_id"`
	Channel   string    `json:"channel"`
	Message   string    `json:"message"`
}

type reminderView struct {
	Sent   []notification.Channel          `json:"sent"`
	Failed map[notification.Channel]string `json:"failed,omitempty"`
}

func (s *Server) handleSendReminder(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	var req reminderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.Notifications.SendReminder(r.Context(), who, app.ReminderInput{
		TenantID:  req.TenantID,
		PaymentID: req.PaymentID,
		Channel:   notification.Channel(req.Channel),
		Message:   req.Message,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminderView{Sent: res.Sent, Failed: res.Failed})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	d, err := s.svc.Analytics.Dashboard(r.Context(), who)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardView(d))
}

// handleStream pushes the landlord's notifications as Server-Sent Events until
// the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	if !who.IsLandlord() {
		s.writeError(w, r, app.ErrForbidden)
		return
	}
	rc := http.NewResponseController(w)

	sub := s.hub.Subscribe(who.ID)
	defer sub.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	logCtx := requestLogger(r.Context(), s.log)
	send := func(ev sse.Event) bool {
		if err := sse.Write(w, ev); err != nil {
			return false
		}
		if err := rc.Flush(); err != nil {
			logCtx.WithError(err).Debug("Stream flush failed")
			return false
		}
		return true
	}

	if !send(sse.Event{Name: "connected", Data: []byte(`{"status":"connected"}`)}) {
		return
	}
	logCtx.Info("Notification stream opened")

	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			logCtx.Info("Notification stream closed")
			return
		case <-ticker.C:
			if !send(sse.Event{Name: "ping", Data: []byte(`{}`)}) {
				return
			}
		case ev, ok := <-sub.Events():
			if !ok || !send(ev) {
				return
			}
		}
	}
}
