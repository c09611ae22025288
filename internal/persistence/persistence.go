package persistence

import (
	"context"
	"errors"

	"github.com/goevery/carwash-notify/internal/carwash"
)

var ErrNotFound = errors.New("record not found")

// Store is the read side of the catalog the scan workflow depends on.
type Store interface {
	Setup(ctx context.Context) error

	// GetWashingStation returns ErrNotFound for unknown ids.
	GetWashingStation(ctx context.Context, id string) (carwash.WashingStation, error)

	// FindActiveMembershipByPlate returns the most recently created active
	// membership for licensePlate, regardless of expiry, or ErrNotFound.
	FindActiveMembershipByPlate(ctx context.Context, licensePlate string) (carwash.Membership, error)
}
