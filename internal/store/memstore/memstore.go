// Package memstore keeps the whole inventory in process memory behind one
// RWMutex. It backs tests and the demo server; nothing survives a restart.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/tablebook/internal/booking"
)

type Store struct {
	mu              sync.RWMutex
	restaurants     map[string]booking.Restaurant
	sectors         map[string]booking.Sector
	tables          map[string]booking.Table
	reservations    map[string]booking.Reservation
	idempotencyKeys map[string]string // key -> reservation id
}

func New() *Store {
	return &Store{
		restaurants:     make(map[string]booking.Restaurant),
		sectors:         make(map[string]booking.Sector),
		tables:          make(map[string]booking.Table),
		reservations:    make(map[string]booking.Reservation),
		idempotencyKeys: make(map[string]string),
	}
}

var _ booking.Store = (*Store)(nil)

func (s *Store) RestaurantByID(_ context.Context, id string) (*booking.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.restaurants[id]
	if !ok {
		return nil, fmt.Errorf("restaurant %s: %w", id, booking.ErrNotFound)
	}
	return &r, nil
}

func (s *Store) SectorByID(_ context.Context, id string) (*booking.Sector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.sectors[id]
	if !ok {
		return nil, fmt.Errorf("sector %s: %w", id, booking.ErrNotFound)
	}
	return &sec, nil
}

func (s *Store) SectorsByRestaurant(_ context.Context, restaurantID string) ([]booking.Sector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []booking.Sector
	for _, sec := range s.sectors {
		if sec.RestaurantID == restaurantID {
			out = append(out, sec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) TablesBySector(_ context.Context, sectorID string) ([]booking.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []booking.Table
	for _, t := range s.tables {
		if t.SectorID == sectorID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) OverlappingReservations(_ context.Context, sectorID string, start, end time.Time, excludeID string) ([]booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []booking.Reservation
	for _, r := range s.reservations {
		if r.SectorID != sectorID || r.Status == booking.StatusCancelled {
			continue
		}
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		if r.Overlaps(start, end) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateReservation stores the record and, when it carries an idempotency
// key, the key binding, under one write lock so the pair is atomic.
func (s *Store) CreateReservation(_ context.Context, r *booking.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reservations[r.ID]; exists {
		return fmt.Errorf("reservation %s already exists", r.ID)
	}
	if r.IdempotencyKey != "" {
		if bound, exists := s.idempotencyKeys[r.IdempotencyKey]; exists && bound != r.ID {
			return fmt.Errorf("idempotency key already bound to %s", bound)
		}
		s.idempotencyKeys[r.IdempotencyKey] = r.ID
	}
	s.reservations[r.ID] = *r
	return nil
}

func (s *Store) ReservationByID(_ context.Context, id string) (*booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, fmt.Errorf("reservation %s: %w", id, booking.ErrNotFound)
	}
	return &r, nil
}

func (s *Store) ReservationByIdempotencyKey(_ context.Context, key string) (*booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.idempotencyKeys[key]
	if !ok {
		return nil, fmt.Errorf("idempotency key: %w", booking.ErrNotFound)
	}
	r, ok := s.reservations[id]
	if !ok {
		return nil, fmt.Errorf("reservation %s: %w", id, booking.ErrNotFound)
	}
	return &r, nil
}

// CancelReservation is a compare-and-swap on status under the write lock:
// only a CONFIRMED record transitions, everything else reports false.
func (s *Store) CancelReservation(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok || r.Status == booking.StatusCancelled {
		return false, nil
	}
	r.Status = booking.StatusCancelled
	r.CancelledAt = &at
	r.UpdatedAt = at
	s.reservations[id] = r
	return true, nil
}

func (s *Store) ReservationsByRange(_ context.Context, restaurantID string, start, end time.Time, sectorID string, includeCancelled bool) ([]booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []booking.Reservation
	for _, r := range s.reservations {
		if r.RestaurantID != restaurantID {
			continue
		}
		if sectorID != "" && r.SectorID != sectorID {
			continue
		}
		if !includeCancelled && r.Status == booking.StatusCancelled {
			continue
		}
		if r.Start.Before(start) || !r.Start.Before(end) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) PutRestaurant(_ context.Context, r *booking.Restaurant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restaurants[r.ID] = *r
	return nil
}

func (s *Store) PutSector(_ context.Context, sec *booking.Sector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sectors[sec.ID] = *sec
	return nil
}

func (s *Store) PutTable(_ context.Context, t *booking.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.ID] = *t
	return nil
}
