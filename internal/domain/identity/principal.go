// Package identity describes who is acting: a landlord or a tenant.
package identity

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleLandlord Role = "landlord"
	RoleTenant   Role = "tenant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleLandlord, RoleTenant:
		return true
	default:
		return false
	}
}

// Principal is the authenticated actor. Authorization dispatches on Role.
type Principal struct {
	ID   uuid.UUID
	Role Role
}

func (p Principal) IsLandlord() bool { return p.Role == RoleLandlord }
func (p Principal) IsTenant() bool   { return p.Role == RoleTenant }

type ctxKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
