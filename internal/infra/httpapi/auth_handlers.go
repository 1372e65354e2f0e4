package httpapi

import (
	"net/http"

	"landten/internal/app"
	"landten/internal/domain/identity"

	"github.com/google/uuid"
)

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	PrimaryCurrency string `json:"primary_currency"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	l, sess, err := s.svc.Auth.Register(r.Context(), app.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		Name:            req.Name,
		Phone:           req.Phone,
		PrimaryCurrency: req.PrimaryCurrency,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Landlord landlordView `json:"landlord"`
		Session  sessionView  `json:"session"`
	}{newLandlordView(l), newSessionView(sess)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	l, err := s.svc.Auth.Me(r.Context(), who)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLandlordView(l))
}

type updateMeRequest struct {
	Name            *string `json:"name"`
	Phone           *string `json:"phone"`
	PrimaryCurrency *string `json:"primary_currency"`
	TelegramChatID  *int64  `json:"telegram_chat_id"`
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	var req updateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.svc.Auth.UpdateProfile(r.Context(), who, app.LandlordUpdate{
		Name:            req.Name,
		Phone:           req.Phone,
		PrimaryCurrency: req.PrimaryCurrency,
		TelegramChatID:  req.TelegramChatID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLandlordView(l))
}

type tenantSetupRequest struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
}

func (s *Server) handleTenantSetup(w http.ResponseWriter, r *http.Request) {
	var req tenantSetupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.svc.Auth.SetupTenantPassword(r.Context(), req.TenantID, req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

func (s *Server) handleTenantLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.svc.Auth.TenantLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) handleTenantChangePassword(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Auth.ChangeTenantPassword(r.Context(), who, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
