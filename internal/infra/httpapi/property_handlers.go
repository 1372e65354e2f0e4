package httpapi

import (
	"net/http"

	"landten/internal/app"
	"landten/internal/domain/identity"
	"landten/internal/domain/property"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type propertyRequest struct {
	Name        *string `json:"name"`
	Address     *string `json:"address"`
	Description *string `json:"description"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	ps, err := s.svc.Properties.ListProperties(r.Context(), who)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]propertyView, 0, len(ps))
	for _, p := range ps {
		out = append(out, newPropertyView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateProperty(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	var req propertyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Properties.CreateProperty(r.Context(), who, app.PropertyInput{
		Name:        deref(req.Name),
		Address:     deref(req.Address),
		Description: deref(req.Description),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPropertyView(p))
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Properties.GetProperty(r.Context(), who, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPropertyView(p))
}

func (s *Server) handleUpdateProperty(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req propertyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Properties.UpdateProperty(r.Context(), who, id, app.PropertyUpdate{
		Name:        req.Name,
		Address:     req.Address,
		Description: req.Description,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPropertyView(p))
}

func (s *Server) handleDeleteProperty(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Properties.DeleteProperty(r.Context(), who, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePropertyRooms(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeRooms(w, r, who, id)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	propertyID, err := queryID(r, "property_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeRooms(w, r, who, propertyID)
}

func (s *Server) writeRooms(w http.ResponseWriter, r *http.Request, who identity.Principal, propertyID uuid.UUID) {
	rooms, err := s.svc.Properties.ListRooms(r.Context(), who, propertyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roomViews(rooms))
}

func roomViews(rooms []*property.Room) []roomView {
	out := make([]roomView, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, newRoomView(rm))
	}
	return out
}

type roomRequest struct {
	PropertyID uuid.UUID        `json:"property_id"`
	Name       *string          `json:"name"`
	RentAmount *decimal.Decimal `json:"rent_amount"`
	Currency   *string          `json:"currency"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	var req roomRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in := app.RoomInput{PropertyID: req.PropertyID, Name: deref(req.Name), Currency: deref(req.Currency)}
	if req.RentAmount != nil {
		in.RentAmount = *req.RentAmount
	}
	rm, err := s.svc.Properties.CreateRoom(r.Context(), who, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRoomView(rm))
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rm, err := s.svc.Properties.GetRoom(r.Context(), who, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoomView(rm))
}

func (s *Server) handleUpdateRoom(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req roomRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rm, err := s.svc.Properties.UpdateRoom(r.Context(), who, id, app.RoomUpdate{
		Name:       req.Name,
		RentAmount: req.RentAmount,
		Currency:   req.Currency,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoomView(rm))
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request, who identity.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Properties.DeleteRoom(r.Context(), who, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
