package property

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateProperty(ctx context.Context, p *Property) error
	GetProperty(ctx context.Context, id uuid.UUID) (*Property, error)
	ListProperties(ctx context.Context, landlordID uuid.UUID) ([]*Property, error)
	UpdateProperty(ctx context.Context, p *Property) error
	// DeleteProperty removes a property and its rooms. ErrInUse if any room is occupied.
	DeleteProperty(ctx context.Context, id uuid.UUID) error

	CreateRoom(ctx context.Context, r *Room) error
	GetRoom(ctx context.Context, id uuid.UUID) (*Room, error)
	ListRooms(ctx context.Context, propertyID uuid.UUID) ([]*Room, error)
	// ListRoomsByLandlord returns every room across the landlord's properties.
	ListRoomsByLandlord(ctx context.Context, landlordID uuid.UUID) ([]*Room, error)
	UpdateRoom(ctx context.Context, r *Room) error
	// DeleteRoom removes a room. ErrInUse if it is occupied.
	DeleteRoom(ctx context.Context, id uuid.UUID) error
}
