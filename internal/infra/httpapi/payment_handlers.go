package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"landten/internal/app"
	"landten/internal/domain/identity"
	"landten/internal/domain/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	in, err := listInput(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ps, err := s.svc.Payments.List(r.Context(), who, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaymentViews(ps))
}

func listInput(r *http.Request) (app.ListInput, error) {
	var in app.ListInput
	var err error
	if in.TenantID, err = queryID(r, "tenant_id"); err != nil {
		return in, err
	}
	// status may repeat or be comma separated
	for _, raw := range r.URL.Query()["status"] {
		for _, st := range strings.Split(raw, ",") {
			if st = strings.TrimSpace(st); st != "" {
				in.Statuses = append(in.Statuses, payment.Status(st))
			}
		}
	}
	if in.DueFrom, err = queryDate(r, "due_from"); err != nil {
		return in, err
	}
	if in.DueTo, err = queryDate(r, "due_to"); err != nil {
		return in, err
	}
	if in.Limit, err = queryInt(r, "limit", 0); err != nil {
		return in, err
	}
	if in.Offset, err = queryInt(r, "offset", 0); err != nil {
		return in, err
	}
	return in, nil
}

func (s *Server) handlePaymentSummary(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	sum, err := s.svc.Payments.Summary(r.Context(), who)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryView(sum))
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	days, err := queryInt(r, "days", 7)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ps, err := s.svc.Payments.Upcoming(r.Context(), who, days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaymentViews(ps))
}

func (s *Server) handleOverdue(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	ps, err := s.svc.Payments.Overdue(r.Context(), who)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaymentViews(ps))
}

type manualPaymentRequest struct {
	TenantID    uuid.UUID       `json:"tenant_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	DueDate     string          `json:"due_date"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	Notes       string          `json:"notes"`
}

func (s *Server) handleCreateManual(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	var req manualPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in := app.ManualInput{TenantID: req.TenantID, Amount: req.Amount, Currency: req.Currency, Notes: req.Notes}
	var err error
	if in.DueDate, err = parseDate("due_date", req.DueDate); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.PeriodStart, err = parseDate("period_start", req.PeriodStart); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.PeriodEnd, err = parseDate("period_end", req.PeriodEnd); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Payments.CreateManual(r.Context(), who, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPaymentView(p))
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Payments.Get(r.Context(), who, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaymentView(p))
}

type updatePaymentRequest struct {
	Amount  *decimal.Decimal `json:"amount_due"`
	DueDate *string          `json:"due_date"`
	Notes   *string          `json:"notes"`
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	due, err := parseDatePtr("due_date", req.DueDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Payments.Update(r.Context(), who, id, app.UpdateInput{Amount: req.Amount, DueDate: due, Notes: req.Notes})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaymentView(p))
}

type markPaidRequest struct {
	PaidDate  string `json:"paid_date"`
	Reference string `json:"payment_reference"`
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req markPaidRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	paid, err := parseDate("paid_date", req.PaidDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Payments.MarkPaid(r.Context(), who, id, app.MarkPaidInput{PaidDate: paid, Reference: req.Reference})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaymentView(p))
}

type waiveRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleWaive(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req waiveRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Payments.Waive(r.Context(), who, id, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaymentView(p))
}

// handleUploadReceipt takes a multipart form with the receipt in the "file" field.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.readReceipt(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Receipts.Upload(r.Context(), who, id, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaymentView(p))
}

func (s *Server) readReceipt(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if s.opts.MaxReceiptBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxReceiptBytes+multipartOverhead)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, &app.ValidationError{Field: "file", Message: fmt.Sprintf("exceeds %d bytes", s.opts.MaxReceiptBytes)}
		}
		return nil, &app.ValidationError{Field: "file", Message: "a multipart file field named \"file\" is required"}
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, &app.ValidationError{Field: "file", Message: "could not be read"}
	}
	return data, nil
}

func (s *Server) handleDownloadReceipt(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, contentType, err := s.svc.Receipts.Download(r.Context(), who, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"receipt-%s\"", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleRejectReceipt(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Receipts.Reject(r.Context(), who, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaymentView(p))
}
