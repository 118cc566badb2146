// Package availability answers the read-only "what can I book" question: it
// walks a date's slot grid and runs the assignment engine against each slot
// without touching state.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/tablebook/internal/booking"
	"github.com/example/tablebook/internal/timeslot"
)

// Slot is one bookable start time, marked available or carrying the reason
// it isn't.
type Slot struct {
	Start     time.Time    `json:"start"`
	Available bool         `json:"available"`
	Tables    []string     `json:"tables,omitempty"`
	Reason    booking.Code `json:"reason,omitempty"`
}

type Response struct {
	SlotMinutes     int    `json:"slotMinutes"`
	DurationMinutes int    `json:"durationMinutes"`
	Slots           []Slot `json:"slots"`
}

type Query struct {
	RestaurantID string
	SectorID     string
	Date         string // YYYY-MM-DD
	PartySize    int
}

type Service struct {
	store booking.Store
}

func NewService(store booking.Store) *Service {
	return &Service{store: store}
}

// Get resolves the restaurant and sector, generates the date's slots and
// probes each one with the assignment engine. The probe is a point-in-time
// read; a slot reported available can still lose the race to a concurrent
// creation, which is the lifecycle manager's problem to arbitrate.
func (s *Service) Get(ctx context.Context, q Query) (*Response, error) {
	if q.PartySize < 1 {
		return nil, &booking.Error{Code: booking.CodeInvalid, Message: "party size must be at least 1"}
	}

	restaurant, err := s.store.RestaurantByID(ctx, q.RestaurantID)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			return nil, &booking.Error{Code: booking.CodeNotFound, Message: "restaurant not found"}
		}
		return nil, fmt.Errorf("restaurant lookup: %w", err)
	}

	sector, err := s.store.SectorByID(ctx, q.SectorID)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			return nil, &booking.Error{Code: booking.CodeNotFound, Message: "sector not found"}
		}
		return nil, fmt.Errorf("sector lookup: %w", err)
	}
	if sector.RestaurantID != restaurant.ID {
		return nil, &booking.Error{Code: booking.CodeInvalid, Message: "sector does not belong to restaurant"}
	}

	starts, err := timeslot.ForDate(q.Date, restaurant.Timezone, restaurant.Windows())
	if err != nil {
		return nil, &booking.Error{Code: booking.CodeInvalid, Message: err.Error()}
	}

	resp := &Response{
		SlotMinutes:     int(timeslot.Interval.Minutes()),
		DurationMinutes: int(booking.ServiceDuration.Minutes()),
		Slots:           make([]Slot, 0, len(starts)),
	}

	for _, start := range starts {
		tables, err := booking.FindAvailableTable(ctx, s.store, q.SectorID, start, q.PartySize)
		if err != nil {
			code := booking.CodeOf(err)
			if !booking.IsAssignmentFailure(code) {
				return nil, fmt.Errorf("probe slot %s: %w", start.Format(time.RFC3339), err)
			}
			resp.Slots = append(resp.Slots, Slot{Start: start, Reason: code})
			continue
		}
		resp.Slots = append(resp.Slots, Slot{Start: start, Available: true, Tables: tables})
	}

	return resp, nil
}
