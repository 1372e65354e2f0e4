package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"landten/internal/app"
	"landten/internal/domain/clock"
	"landten/internal/domain/landlord"
	"landten/internal/domain/notification"
	"landten/internal/domain/payment"
	"landten/internal/domain/property"
	"landten/internal/domain/receipt"
	"landten/internal/domain/schedule"
	"landten/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type errorBody struct {
	Error         string `json:"error"`
	Field         string `json:"field,omitempty"`
	CurrentStatus string `json:"current_status,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, payment.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, payment.ErrNotFound),
		errors.Is(err, tenant.ErrNotFound),
		errors.Is(err, schedule.ErrNotFound),
		errors.Is(err, property.ErrNotFound),
		errors.Is(err, property.ErrRoomNotFound),
		errors.Is(err, notification.ErrNotFound),
		errors.Is(err, landlord.ErrNotFound),
		errors.Is(err, receipt.ErrBlobNotFound):
		return http.StatusNotFound
	case errors.Is(err, landlord.ErrDuplicateEmail),
		errors.Is(err, tenant.ErrDuplicate),
		errors.Is(err, tenant.ErrRoomOccupied),
		errors.Is(err, tenant.ErrInactive),
		errors.Is(err, property.ErrInUse),
		errors.Is(err, app.ErrPasswordAlreadySet):
		return http.StatusConflict
	case errors.Is(err, app.ErrStorage):
		return http.StatusServiceUnavailable
	case errors.Is(err, app.ErrUnauthenticated), errors.Is(err, app.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, app.ErrNotDelivered):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var ve *app.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	var te *payment.TransitionError
	if errors.As(err, &te) {
		body.CurrentStatus = string(te.Current)
	}
	logCtx := requestLogger(r.Context(), s.log).WithField("status", status)
	if status >= http.StatusInternalServerError {
		logCtx.WithError(err).Error("Request failed")
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	} else {
		logCtx.WithError(err).Debug("Request rejected")
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &app.ValidationError{Field: "body", Message: fmt.Sprintf("malformed JSON: %v", err)}
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return &app.ValidationError{Field: "body", Message: fmt.Sprintf("malformed JSON: %v", err)}
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, &app.ValidationError{Field: name, Message: "must be a UUID"}
	}
	return id, nil
}

func queryID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &app.ValidationError{Field: name, Message: "must be a UUID"}
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &app.ValidationError{Field: name, Message: "must be an integer"}
	}
	return n, nil
}

func queryBool(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &app.ValidationError{Field: name, Message: "must be true or false"}
	}
	return b, nil
}

func queryDate(r *http.Request, name string) (time.Time, error) {
	return parseDate(name, r.URL.Query().Get(name))
}

// parseDate reads an optional YYYY-MM-DD value. Empty gives the zero time.
func parseDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := clock.ParseDate(raw)
	if err != nil {
		return time.Time{}, &app.ValidationError{Field: field, Message: "must be a YYYY-MM-DD date"}
	}
	return d, nil
}

func parseDatePtr(field string, raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := parseDate(field, *raw)
	if err != nil {
		return nil, err
	}
	if d.IsZero() {
		return nil, &app.ValidationError{Field: field, Message: "must not be empty"}
	}
	return &d, nil
}

func requestLogger(ctx context.Context, base *logrus.Entry) *logrus.Entry {
	if e, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return e
	}
	return base
}
