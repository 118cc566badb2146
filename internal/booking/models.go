package booking

import (
	"time"

	"github.com/example/tablebook/internal/timeslot"
)

const (
	// ServiceDuration is how long a table is held per reservation.
	ServiceDuration = 90 * time.Minute
)

// Status is the reservation state. Transitions are one-way:
// CONFIRMED -> CANCELLED, nothing else.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Shift is a local-time open window, no implied date. Start/End are "HH:MM"
// wall-clock strings in the restaurant's timezone.
type Shift struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Restaurant accepts reservations during its shifts. An empty shift list
// means open all day.
type Restaurant struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Timezone string  `json:"timezone"` // IANA name, e.g. America/Argentina/Buenos_Aires
	Shifts   []Shift `json:"shifts,omitempty"`
}

// Windows adapts the shift list for the timeslot calculator.
func (r *Restaurant) Windows() []timeslot.Window {
	out := make([]timeslot.Window, len(r.Shifts))
	for i, s := range r.Shifts {
		out[i] = timeslot.Window{Start: s.Start, End: s.End}
	}
	return out
}

// Sector is a sub-area of a restaurant holding a pool of tables. It is the
// unit at which reservation contention is scoped.
type Sector struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurantId"`
	Name         string `json:"name"`
}

// Table seats parties whose size falls inside [MinSize, MaxSize].
type Table struct {
	ID       string `json:"id"`
	SectorID string `json:"sectorId"`
	Name     string `json:"name"`
	MinSize  int    `json:"minSize"`
	MaxSize  int    `json:"maxSize"`
}

// Customer is snapshotted into the reservation at creation time. It is not a
// separate mutable entity afterwards.
type Customer struct {
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Reservation struct {
	ID             string     `json:"id"`
	RestaurantID   string     `json:"restaurantId"`
	SectorID       string     `json:"sectorId"`
	TableIDs       []string   `json:"tableIds"` // current design assigns exactly one
	PartySize      int        `json:"partySize"`
	Start          time.Time  `json:"start"`
	End            time.Time  `json:"end"` // Start + ServiceDuration
	Status         Status     `json:"status"`
	Customer       Customer   `json:"customer"`
	Notes          string     `json:"notes,omitempty"`
	IdempotencyKey string     `json:"-"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	CancelledAt    *time.Time `json:"cancelledAt,omitempty"`
}

// Overlaps reports whether the reservation's interval intersects [start, end)
// under half-open semantics: touching endpoints do not overlap, so a
// reservation ending exactly when another starts shares its table cleanly.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.Start.Before(end) && r.End.After(start)
}
