package app

import (
	"context"
	"strings"

	"landten/internal/domain/clock"
	"landten/internal/domain/identity"
	"landten/internal/domain/landlord"
	"landten/internal/domain/money"
	"landten/internal/domain/property"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PropertyService manages a landlord's properties and rooms.
type PropertyService struct {
	propertyRepo property.Repository
	landlordRepo landlord.Repository
	clock        clock.Clock
	newID        func() uuid.UUID
	log          *logrus.Entry
}

func NewPropertyService(pr property.Repository, lr landlord.Repository, log *logrus.Entry) *PropertyService {
	return &PropertyService{
		propertyRepo: pr,
		landlordRepo: lr,
		clock:        clock.Real{},
		newID:        uuid.New,
		log:          log,
	}
}

func (s *PropertyService) WithClock(c clock.Clock) *PropertyService {
	s.clock = c
	return s
}

type PropertyInput struct {
	Name        string
	Address     string
	Description string
}

func (s *PropertyService) CreateProperty(ctx context.Context, who identity.Principal, in PropertyInput) (*property.Property, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	now := s.clock.Now()
	p := &property.Property{
		ID:          s.newID(),
		LandlordID:  who.ID,
		Name:        name,
		Address:     strings.TrimSpace(in.Address),
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.propertyRepo.CreateProperty(ctx, p); err != nil {
		return nil, err
	}
	s.log.WithField("property_id", p.ID).Info("Property created")
	return p, nil
}

func (s *PropertyService) ListProperties(ctx context.Context, who identity.Principal) ([]*property.Property, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	return s.propertyRepo.ListProperties(ctx, who.ID)
}

func (s *PropertyService) GetProperty(ctx context.Context, who identity.Principal, id uuid.UUID) (*property.Property, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	p, err := s.propertyRepo.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.LandlordID != who.ID {
		return nil, property.ErrNotFound
	}
	return p, nil
}

// PropertyUpdate edits a property. Nil fields are left as they are.
type PropertyUpdate struct {
	Name        *string
	Address     *string
	Description *string
}

func (s *PropertyService) UpdateProperty(ctx context.Context, who identity.Principal, id uuid.UUID, in PropertyUpdate) (*property.Property, error) {
	p, err := s.GetProperty(ctx, who, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name", "must not be empty")
		}
		p.Name = name
	}
	if in.Address != nil {
		p.Address = strings.TrimSpace(*in.Address)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	p.UpdatedAt = s.clock.Now()
	if err := s.propertyRepo.UpdateProperty(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProperty removes a property and its rooms. It fails while any room is occupied.
func (s *PropertyService) DeleteProperty(ctx context.Context, who identity.Principal, id uuid.UUID) error {
	if _, err := s.GetProperty(ctx, who, id); err != nil {
		return err
	}
	if err := s.propertyRepo.DeleteProperty(ctx, id); err != nil {
		return err
	}
	s.log.WithField("property_id", id).Info("Property deleted")
	return nil
}

// RoomInput describes a room. Currency defaults to the landlord's primary currency.
type RoomInput struct {
	PropertyID uuid.UUID
	Name       string
	RentAmount decimal.Decimal
	Currency   string
}

func (s *PropertyService) CreateRoom(ctx context.Context, who identity.Principal, in RoomInput) (*property.Room, error) {
	if _, err := s.GetProperty(ctx, who, in.PropertyID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if in.RentAmount.IsNegative() {
		return nil, invalid("rent_amount", "must not be negative")
	}
	currency := money.Normalize(in.Currency)
	if currency == "" {
		l, err := s.landlordRepo.GetByID(ctx, who.ID)
		if err != nil {
			return nil, err
		}
		currency = l.PrimaryCurrency
	}
	if !money.IsValid(currency) {
		return nil, invalid("currency", "unsupported currency %q", in.Currency)
	}
	now := s.clock.Now()
	r := &property.Room{
		ID:         s.newID(),
		PropertyID: in.PropertyID,
		Name:       name,
		RentAmount: money.Round(in.RentAmount, currency),
		Currency:   currency,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.propertyRepo.CreateRoom(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListRooms lists the rooms of one property, or of all the landlord's properties
// when propertyID is nil.
func (s *PropertyService) ListRooms(ctx context.Context, who identity.Principal, propertyID uuid.UUID) ([]*property.Room, error) {
	if propertyID == uuid.Nil {
		if err := requireLandlord(who); err != nil {
			return nil, err
		}
		return s.propertyRepo.ListRoomsByLandlord(ctx, who.ID)
	}
	if _, err := s.GetProperty(ctx, who, propertyID); err != nil {
		return nil, err
	}
	return s.propertyRepo.ListRooms(ctx, propertyID)
}

func (s *PropertyService) GetRoom(ctx context.Context, who identity.Principal, id uuid.UUID) (*property.Room, error) {
	if err := requireLandlord(who); err != nil {
		return nil, err
	}
	r, err := s.propertyRepo.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.propertyRepo.GetProperty(ctx, r.PropertyID)
	if err != nil || p.LandlordID != who.ID {
		return nil, property.ErrRoomNotFound
	}
	return r, nil
}

// RoomUpdate edits a room. Nil fields are left as they are.
type RoomUpdate struct {
	Name       *string
	RentAmount *decimal.Decimal
	Currency   *string
}

func (s *PropertyService) UpdateRoom(ctx context.Context, who identity.Principal, id uuid.UUID, in RoomUpdate) (*property.Room, error) {
	r, err := s.GetRoom(ctx, who, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name", "must not be empty")
		}
		r.Name = name
	}
	if in.Currency != nil {
		currency := money.Normalize(*in.Currency)
		if !money.IsValid(currency) {
			return nil, invalid("currency", "unsupported currency %q", *in.Currency)
		}
		r.Currency = currency
	}
	if in.RentAmount != nil {
		if in.RentAmount.IsNegative() {
			return nil, invalid("rent_amount", "must not be negative")
		}
		r.RentAmount = money.Round(*in.RentAmount, r.Currency)
	}
	r.UpdatedAt = s.clock.Now()
	if err := s.propertyRepo.UpdateRoom(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteRoom removes a free room.
func (s *PropertyService) DeleteRoom(ctx context.Context, who identity.Principal, id uuid.UUID) error {
	if _, err := s.GetRoom(ctx, who, id); err != nil {
		return err
	}
	return s.propertyRepo.DeleteRoom(ctx, id)
}
