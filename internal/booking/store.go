package booking

import (
	"context"
	"time"
)

// Store is the durable persistence contract. Implementations must return
// ErrNotFound (possibly wrapped) for missing records.
//
// CreateReservation must persist the reservation and, when the reservation
// carries an idempotency key, bind the key to it atomically: a reservation
// without its binding (or the reverse) is a correctness defect.
//
// CancelReservation must be an atomic status transition: it returns false
// without error when the record is absent or already cancelled, and is the
// only mutation the store performs on an existing reservation.
type Store interface {
	RestaurantByID(ctx context.Context, id string) (*Restaurant, error)
	SectorByID(ctx context.Context, id string) (*Sector, error)
	SectorsByRestaurant(ctx context.Context, restaurantID string) ([]Sector, error)
	TablesBySector(ctx context.Context, sectorID string) ([]Table, error)

	// OverlappingReservations returns every non-cancelled reservation in the
	// sector whose interval overlaps [start, end) half-open, in one
	// consistent read. excludeID, when non-empty, filters out that
	// reservation.
	OverlappingReservations(ctx context.Context, sectorID string, start, end time.Time, excludeID string) ([]Reservation, error)

	CreateReservation(ctx context.Context, r *Reservation) error
	ReservationByID(ctx context.Context, id string) (*Reservation, error)
	ReservationByIdempotencyKey(ctx context.Context, key string) (*Reservation, error)
	CancelReservation(ctx context.Context, id string, at time.Time) (bool, error)

	// ReservationsByRange returns reservations for the restaurant whose
	// start instant falls in [start, end), optionally restricted to one
	// sector, excluding cancelled ones unless includeCancelled is set.
	// Ordering is stable for identical inputs.
	ReservationsByRange(ctx context.Context, restaurantID string, start, end time.Time, sectorID string, includeCancelled bool) ([]Reservation, error)

	// Provisioning writes, used by seed/admin tooling only. The core treats
	// restaurants, sectors and tables as read-only.
	PutRestaurant(ctx context.Context, r *Restaurant) error
	PutSector(ctx context.Context, s *Sector) error
	PutTable(ctx context.Context, t *Table) error
}
