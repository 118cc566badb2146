// Package postgres implements the booking store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/tablebook/internal/booking"
)

type Store struct {
	db *DB
}

var _ booking.Store = (*Store)(nil)

func New(db *DB) *Store { return &Store{db: db} }

// Shifts are stored as one CSV column, "12:00-16:00,19:00-23:30". Keeps the
// schema flat; shift lists are tiny and only read whole.
func joinShifts(shifts []booking.Shift) string {
	parts := make([]string, 0, len(shifts))
	for _, s := range shifts {
		parts = append(parts, s.Start+"-"+s.End)
	}
	return strings.Join(parts, ",")
}

func parseShifts(s string) []booking.Shift {
	if s == "" {
		return nil
	}
	var out []booking.Shift
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		pair := strings.SplitN(p, "-", 2)
		if len(pair) != 2 {
			continue
		}
		out = append(out, booking.Shift{Start: pair[0], End: pair[1]})
	}
	return out
}

func joinIDs(ids []string) string { return strings.Join(ids, ",") }

func parseIDs(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *Store) RestaurantByID(ctx context.Context, id string) (*booking.Restaurant, error) {
	var r booking.Restaurant
	var shifts string
	err := s.db.QueryRow(ctx, `
SELECT id, name, timezone, shifts FROM restaurants WHERE id=$1`, id).
		Scan(&r.ID, &r.Name, &r.Timezone, &shifts)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	r.Shifts = parseShifts(shifts)
	return &r, nil
}

func (s *Store) SectorByID(ctx context.Context, id string) (*booking.Sector, error) {
	var sec booking.Sector
	err := s.db.QueryRow(ctx, `
SELECT id, restaurant_id, name FROM sectors WHERE id=$1`, id).
		Scan(&sec.ID, &sec.RestaurantID, &sec.Name)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &sec, nil
}

func (s *Store) SectorsByRestaurant(ctx context.Context, restaurantID string) ([]booking.Sector, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, restaurant_id, name FROM sectors WHERE restaurant_id=$1 ORDER BY id`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Sector
	for rows.Next() {
		var sec booking.Sector
		if err := rows.Scan(&sec.ID, &sec.RestaurantID, &sec.Name); err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

func (s *Store) TablesBySector(ctx context.Context, sectorID string) ([]booking.Table, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, sector_id, name, min_size, max_size FROM tables WHERE sector_id=$1 ORDER BY id`, sectorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Table
	for rows.Next() {
		var t booking.Table
		if err := rows.Scan(&t.ID, &t.SectorID, &t.Name, &t.MinSize, &t.MaxSize); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const reservationColumns = `id, restaurant_id, sector_id, table_ids, party_size, start_at, end_at, status, customer_name, customer_phone, customer_email, notes, created_at, updated_at, cancelled_at`

func scanReservation(row Row) (*booking.Reservation, error) {
	var r booking.Reservation
	var tableIDs string
	var cancelledAt *time.Time
	err := row.Scan(
		&r.ID, &r.RestaurantID, &r.SectorID, &tableIDs, &r.PartySize,
		&r.Start, &r.End, &r.Status,
		&r.Customer.Name, &r.Customer.Phone, &r.Customer.Email,
		&r.Notes, &r.CreatedAt, &r.UpdatedAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}
	r.TableIDs = parseIDs(tableIDs)
	r.CancelledAt = cancelledAt
	// the customer snapshot shares the reservation's creation stamps
	r.Customer.CreatedAt = r.CreatedAt
	r.Customer.UpdatedAt = r.CreatedAt
	return &r, nil
}

func (s *Store) OverlappingReservations(ctx context.Context, sectorID string, start, end time.Time, excludeID string) ([]booking.Reservation, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+reservationColumns+`
FROM reservations
WHERE sector_id=$1
  AND status <> 'CANCELLED'
  AND start_at < $3
  AND end_at > $2
  AND ($4 = '' OR id <> $4)
ORDER BY id`, sectorID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// CreateReservation inserts the record and its idempotency binding in one
// transaction.
func (s *Store) CreateReservation(ctx context.Context, r *booking.Reservation) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
INSERT INTO reservations(id, restaurant_id, sector_id, table_ids, party_size, start_at, end_at, status, customer_name, customer_phone, customer_email, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		r.ID, r.RestaurantID, r.SectorID, joinIDs(r.TableIDs), r.PartySize,
		r.Start, r.End, r.Status,
		r.Customer.Name, r.Customer.Phone, r.Customer.Email,
		r.Notes, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if r.IdempotencyKey != "" {
		_, err = tx.Exec(ctx, `
INSERT INTO idempotency_keys(key, reservation_id) VALUES ($1,$2)`,
			r.IdempotencyKey, r.ID)
		if err != nil {
			return fmt.Errorf("bind idempotency key: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) ReservationByID(ctx context.Context, id string) (*booking.Reservation, error) {
	r, err := scanReservation(s.db.QueryRow(ctx, `
SELECT `+reservationColumns+` FROM reservations WHERE id=$1`, id))
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return r, nil
}

func (s *Store) ReservationByIdempotencyKey(ctx context.Context, key string) (*booking.Reservation, error) {
	r, err := scanReservation(s.db.QueryRow(ctx, `
SELECT `+reservationColumns+`
FROM reservations
WHERE id = (SELECT reservation_id FROM idempotency_keys WHERE key=$1)`, key))
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return r, nil
}

// CancelReservation flips status via a conditional UPDATE; the WHERE clause
// is the compare half of the compare-and-swap, rows-affected the answer.
func (s *Store) CancelReservation(ctx context.Context, id string, at time.Time) (bool, error) {
	var cancelledID string
	err := s.db.QueryRow(ctx, `
UPDATE reservations
SET status='CANCELLED', cancelled_at=$2, updated_at=$2
WHERE id=$1 AND status='CONFIRMED'
RETURNING id`, id, at).Scan(&cancelledID)
	if err != nil {
		if errors.Is(wrapNotFound(err), booking.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) ReservationsByRange(ctx context.Context, restaurantID string, start, end time.Time, sectorID string, includeCancelled bool) ([]booking.Reservation, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+reservationColumns+`
FROM reservations
WHERE restaurant_id=$1
  AND start_at >= $2 AND start_at < $3
  AND ($4 = '' OR sector_id = $4)
  AND ($5 OR status <> 'CANCELLED')
ORDER BY start_at, id`, restaurantID, start, end, sectorID, includeCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) PutRestaurant(ctx context.Context, r *booking.Restaurant) error {
	return s.db.Exec(ctx, `
INSERT INTO restaurants(id, name, timezone, shifts) VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET name=$2, timezone=$3, shifts=$4`,
		r.ID, r.Name, r.Timezone, joinShifts(r.Shifts))
}

func (s *Store) PutSector(ctx context.Context, sec *booking.Sector) error {
	return s.db.Exec(ctx, `
INSERT INTO sectors(id, restaurant_id, name) VALUES ($1,$2,$3)
ON CONFLICT (id) DO UPDATE SET restaurant_id=$2, name=$3`,
		sec.ID, sec.RestaurantID, sec.Name)
}

func (s *Store) PutTable(ctx context.Context, t *booking.Table) error {
	return s.db.Exec(ctx, `
INSERT INTO tables(id, sector_id, name, min_size, max_size) VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET sector_id=$2, name=$3, min_size=$4, max_size=$5`,
		t.ID, t.SectorID, t.Name, t.MinSize, t.MaxSize)
}
