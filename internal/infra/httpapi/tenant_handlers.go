package httpapi

import (
	"net/http"

	"landten/internal/app"
	"landten/internal/domain/identity"
	"landten/internal/domain/schedule"
	"landten/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type scheduleRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Frequency string          `json:"frequency"`
	DueDay    int             `json:"due_day"`
	GraceDays *int            `json:"grace_window_days"`
	StartDate string          `json:"start_date"`
}

func (req *scheduleRequest) input() (app.ScheduleInput, error) {
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return app.ScheduleInput{}, err
	}
	return app.ScheduleInput{
		Amount:    req.Amount,
		Currency:  req.Currency,
		Frequency: schedule.Frequency(req.Frequency),
		DueDay:    req.DueDay,
		GraceDays: req.GraceDays,
		StartDate: start,
	}, nil
}

type onboardRequest struct {
	RoomID     uuid.UUID        `json:"room_id"`
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Phone      string           `json:"phone"`
	MoveInDate string           `json:"move_in_date"`
	Notes      string           `json:"notes"`
	Schedule   *scheduleRequest `json:"payment_schedule"`
}

func (s *Server) handleOnboard(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	var req onboardRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	moveIn, err := parseDate("move_in_date", req.MoveInDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	in := app.OnboardInput{
		RoomID:     req.RoomID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		MoveInDate: moveIn,
		Notes:      req.Notes,
	}
	if req.Schedule != nil {
		sched, err := req.Schedule.input()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		in.Schedule = &sched
	}
	pl, err := s.svc.Tenants.Onboard(r.Context(), who, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTenantView(pl))
}

func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	propertyID, err := queryID(r, "property_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	activeOnly, err := queryBool(r, "active_only", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.svc.Tenants.List(r.Context(), who, propertyID, activeOnly)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenantViews(list))
}

func tenantViews(list []*tenant.Placement) []tenantView {
	out := make([]tenantView, 0, len(list))
	for _, pl := range list {
		out = append(out, newTenantView(pl))
	}
	return out
}

func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeTenant(w, r, who, id)
}

func (s *Server) writeTenant(w http.ResponseWriter, r *http.Request, who identity.Principal, id uuid.UUID) {
	pl, err := s.svc.Tenants.Get(r.Context(), who, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTenantView(pl))
}

type tenantUpdateRequest struct {
	Name           *string `json:"name"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	Notes          *string `json:"notes"`
	TelegramChatID *int64  `json:"telegram_chat_id"`
}

func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req tenantUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	pl, err := s.svc.Tenants.Update(r.Context(), who, id, app.TenantUpdate{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Notes:          req.Notes,
		TelegramChatID: req.TelegramChatID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTenantView(pl))
}

type moveOutRequest struct {
	MoveOutDate string `json:"move_out_date"`
}

func (s *Server) handleMoveOut(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// An empty body moves the tenant out today.
	var req moveOutRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	moveOut, err := parseDate("move_out_date", req.MoveOutDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pl, err := s.svc.Tenants.MoveOut(r.Context(), who, id, moveOut)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTenantView(pl))
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSchedule(w, r, who, id)
}

func (s *Server) writeSchedule(w http.ResponseWriter, r *http.Request, who identity.Principal, tenantID uuid.UUID) {
	sched, err := s.svc.Tenants.GetSchedule(r.Context(), who, tenantID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newScheduleView(sched))
}

func (s *Server) handleSetSchedule(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sched, err := s.svc.Tenants.SetSchedule(r.Context(), who, id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newScheduleView(sched))
}

// Portal endpoints act on the signed-in tenant.

func (s *Server) handlePortalMe(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	if !who.IsTenant() {
		s.writeError(w, r, app.ErrForbidden)
		return
	}
	s.writeTenant(w, r, who, who.ID)
}

func (s *Server) handlePortalSchedule(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	if !who.IsTenant() {
		s.writeError(w, r, app.ErrForbidden)
		return
	}
	s.writeSchedule(w, r, who, who.ID)
}
