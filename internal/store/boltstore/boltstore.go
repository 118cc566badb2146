// Package boltstore persists the inventory in a single BoltDB file. No
// external database process is needed, which suits single-node deployments
// and local development. Bolt serializes writes through one Update
// transaction at a time, so the reservation record and its idempotency
// binding commit together or not at all.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/example/tablebook/internal/booking"
)

var buckets = [][]byte{
	[]byte("restaurants"),
	[]byte("sectors"),
	[]byte("tables"),
	[]byte("reservations"),
	[]byte("idempotency_keys"),
}

type Store struct {
	db *bolt.DB
}

var _ booking.Store = (*Store)(nil)

// Open opens (or creates) the database at path and ensures all buckets
// exist. Bucket creation is idempotent, safe on every startup.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// reservationRecord adds the idempotency key to the stored form; the domain
// struct deliberately keeps it out of its JSON representation.
type reservationRecord struct {
	booking.Reservation
	StoredIdempotencyKey string `json:"idempotencyKey,omitempty"`
}

func encodeReservation(r *booking.Reservation) ([]byte, error) {
	return json.Marshal(reservationRecord{Reservation: *r, StoredIdempotencyKey: r.IdempotencyKey})
}

func decodeReservation(data []byte) (*booking.Reservation, error) {
	var rec reservationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	rec.Reservation.IdempotencyKey = rec.StoredIdempotencyKey
	return &rec.Reservation, nil
}

func getJSON(tx *bolt.Tx, bucket []byte, key string, dest any) error {
	v := tx.Bucket(bucket).Get([]byte(key))
	if v == nil {
		return fmt.Errorf("%s %s: %w", bucket, key, booking.ErrNotFound)
	}
	return json.Unmarshal(v, dest)
}

func putJSON(tx *bolt.Tx, bucket []byte, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Bucket(bucket).Put([]byte(key), data)
}

func (s *Store) RestaurantByID(_ context.Context, id string) (*booking.Restaurant, error) {
	var r booking.Restaurant
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx, buckets[0], id, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) SectorByID(_ context.Context, id string) (*booking.Sector, error) {
	var sec booking.Sector
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx, buckets[1], id, &sec)
	})
	if err != nil {
		return nil, err
	}
	return &sec, nil
}

func (s *Store) SectorsByRestaurant(_ context.Context, restaurantID string) ([]booking.Sector, error) {
	var out []booking.Sector
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(buckets[1]).ForEach(func(_, v []byte) error {
			var sec booking.Sector
			if err := json.Unmarshal(v, &sec); err != nil {
				return err
			}
			if sec.RestaurantID == restaurantID {
				out = append(out, sec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) TablesBySector(_ context.Context, sectorID string) ([]booking.Table, error) {
	var out []booking.Table
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(buckets[2]).ForEach(func(_, v []byte) error {
			var t booking.Table
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			if t.SectorID == sectorID {
				out = append(out, t)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) OverlappingReservations(_ context.Context, sectorID string, start, end time.Time, excludeID string) ([]booking.Reservation, error) {
	var out []booking.Reservation
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(buckets[3]).ForEach(func(_, v []byte) error {
			r, err := decodeReservation(v)
			if err != nil {
				return err
			}
			if r.SectorID != sectorID || r.Status == booking.StatusCancelled {
				return nil
			}
			if excludeID != "" && r.ID == excludeID {
				return nil
			}
			if r.Overlaps(start, end) {
				out = append(out, *r)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateReservation writes the record and its idempotency binding inside
// one Update transaction. A key already bound to a different reservation is
// rejected; a key, once bound, stays bound.
func (s *Store) CreateReservation(_ context.Context, r *booking.Reservation) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		resBucket := tx.Bucket(buckets[3])
		if resBucket.Get([]byte(r.ID)) != nil {
			return fmt.Errorf("reservation %s already exists", r.ID)
		}
		if r.IdempotencyKey != "" {
			keys := tx.Bucket(buckets[4])
			if bound := keys.Get([]byte(r.IdempotencyKey)); bound != nil && string(bound) != r.ID {
				return fmt.Errorf("idempotency key already bound to %s", bound)
			}
			if err := keys.Put([]byte(r.IdempotencyKey), []byte(r.ID)); err != nil {
				return err
			}
		}
		data, err := encodeReservation(r)
		if err != nil {
			return err
		}
		return resBucket.Put([]byte(r.ID), data)
	})
}

func (s *Store) ReservationByID(_ context.Context, id string) (*booking.Reservation, error) {
	var res *booking.Reservation
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(buckets[3]).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("reservation %s: %w", id, booking.ErrNotFound)
		}
		var err error
		res, err = decodeReservation(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) ReservationByIdempotencyKey(ctx context.Context, key string) (*booking.Reservation, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(buckets[4]).Get([]byte(key))
		if v == nil {
			return fmt.Errorf("idempotency key: %w", booking.ErrNotFound)
		}
		id = string(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ReservationByID(ctx, id)
}

// CancelReservation reads, checks and rewrites the record inside one Update
// transaction, which gives the compare-and-swap the contract requires.
func (s *Store) CancelReservation(_ context.Context, id string, at time.Time) (bool, error) {
	cancelled := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(buckets[3])
		v := b.Get([]byte(id))
		if v == nil {
			return nil
		}
		r, err := decodeReservation(v)
		if err != nil {
			return err
		}
		if r.Status == booking.StatusCancelled {
			return nil
		}
		r.Status = booking.StatusCancelled
		r.CancelledAt = &at
		r.UpdatedAt = at
		data, err := encodeReservation(r)
		if err != nil {
			return err
		}
		cancelled = true
		return b.Put([]byte(id), data)
	})
	if err != nil {
		return false, err
	}
	return cancelled, nil
}

func (s *Store) ReservationsByRange(_ context.Context, restaurantID string, start, end time.Time, sectorID string, includeCancelled bool) ([]booking.Reservation, error) {
	var out []booking.Reservation
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(buckets[3]).ForEach(func(_, v []byte) error {
			r, err := decodeReservation(v)
			if err != nil {
				return err
			}
			if r.RestaurantID != restaurantID {
				return nil
			}
			if sectorID != "" && r.SectorID != sectorID {
				return nil
			}
			if !includeCancelled && r.Status == booking.StatusCancelled {
				return nil
			}
			if r.Start.Before(start) || !r.Start.Before(end) {
				return nil
			}
			out = append(out, *r)
			return nil
		})
	})
	if err != nil {
		return nil, err
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
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, buckets[0], r.ID, r)
	})
}

func (s *Store) PutSector(_ context.Context, sec *booking.Sector) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, buckets[1], sec.ID, sec)
	})
}

func (s *Store) PutTable(_ context.Context, t *booking.Table) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, buckets[2], t.ID, t)
	})
}
