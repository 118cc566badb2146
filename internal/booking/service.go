package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/tablebook/internal/timeslot"
)

// EventSink receives notifications about committed reservation state
// changes. Delivery is best-effort; implementations must not block the
// request path for long.
type EventSink interface {
	ReservationCreated(ctx context.Context, r *Reservation)
	ReservationCancelled(ctx context.Context, r *Reservation)
}

type nopSink struct{}

func (nopSink) ReservationCreated(context.Context, *Reservation)   {}
func (nopSink) ReservationCancelled(context.Context, *Reservation) {}

// NopSink discards all events.
func NopSink() EventSink { return nopSink{} }

// Service is the reservation lifecycle manager. It owns the slot-lock
// discipline: every creation serializes on its (sector, start) slot so the
// read-then-assign sequence cannot race a competing creation for the same
// tables.
type Service struct {
	store  Store
	events EventSink
	locks  *slotLocks
	now    func() time.Time
	log    zerolog.Logger
}

type Option func(*Service)

// WithEvents routes committed reservation changes to sink.
func WithEvents(sink EventSink) Option {
	return func(s *Service) { s.events = sink }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		events: nopSink{},
		locks:  newSlotLocks(),
		now:    time.Now,
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CustomerInput is the caller-supplied customer payload, snapshotted into
// the reservation with its own timestamps.
type CustomerInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type CreateInput struct {
	RestaurantID string
	SectorID     string
	PartySize    int
	Start        time.Time
	Customer     CustomerInput
	Notes        string
}

func newReservationID() string {
	// RES_ plus the first UUID segment keeps ids short but collision-safe
	// enough for a per-restaurant keyspace.
	return "RES_" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// CreateReservation validates, assigns a table and persists a reservation,
// holding the slot lock for the whole read-modify-write. When
// idempotencyKey is non-empty and already bound, the original reservation
// comes back with no new side effects; the lookup happens inside the
// critical section so two concurrent identical retries cannot both miss it.
func (s *Service) CreateReservation(ctx context.Context, in CreateInput, idempotencyKey string) (*Reservation, error) {
	if in.PartySize < 1 {
		return nil, newError(CodeInvalid, "party size must be at least 1")
	}
	if in.Start.IsZero() {
		return nil, newError(CodeInvalid, "start time is required")
	}

	res, replayed, err := s.createLocked(ctx, in, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if !replayed {
		s.log.Info().
			Str("operation", "create_reservation").
			Str("reservation_id", res.ID).
			Str("sector_id", res.SectorID).
			Int("party_size", res.PartySize).
			Time("start", res.Start).
			Msg("reservation confirmed")
		s.events.ReservationCreated(ctx, res)
	}
	return res, nil
}

func (s *Service) createLocked(ctx context.Context, in CreateInput, idempotencyKey string) (*Reservation, bool, error) {
	lock := s.locks.get(in.SectorID, in.Start)
	lock.Lock()
	defer lock.Unlock()

	if idempotencyKey != "" {
		existing, err := s.store.ReservationByIdempotencyKey(ctx, idempotencyKey)
		switch {
		case err == nil:
			return existing, true, nil
		case isNotFound(err):
			// first time we see this key
		default:
			return nil, false, fmt.Errorf("idempotency lookup: %w", err)
		}
	}

	restaurant, err := s.store.RestaurantByID(ctx, in.RestaurantID)
	if err != nil {
		if isNotFound(err) {
			return nil, false, newError(CodeNotFound, "restaurant not found")
		}
		return nil, false, fmt.Errorf("restaurant lookup: %w", err)
	}

	sector, err := s.store.SectorByID(ctx, in.SectorID)
	if err != nil {
		if isNotFound(err) {
			return nil, false, newError(CodeNotFound, "sector not found")
		}
		return nil, false, fmt.Errorf("sector lookup: %w", err)
	}
	if sector.RestaurantID != restaurant.ID {
		return nil, false, newError(CodeInvalid, "sector does not belong to restaurant")
	}

	within, err := timeslot.WithinWindow(in.Start, restaurant.Timezone, restaurant.Windows())
	if err != nil {
		return nil, false, fmt.Errorf("service window check: %w", err)
	}
	if !within {
		return nil, false, newError(CodeOutsideServiceWindow, "requested time is outside service shifts")
	}

	tableIDs, err := FindAvailableTable(ctx, s.store, in.SectorID, in.Start, in.PartySize)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	res := &Reservation{
		ID:           newReservationID(),
		RestaurantID: in.RestaurantID,
		SectorID:     in.SectorID,
		TableIDs:     tableIDs,
		PartySize:    in.PartySize,
		Start:        in.Start,
		End:          in.Start.Add(ServiceDuration),
		Status:       StatusConfirmed,
		Customer: Customer{
			Name:      in.Customer.Name,
			Phone:     in.Customer.Phone,
			Email:     in.Customer.Email,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Notes:          in.Notes,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.CreateReservation(ctx, res); err != nil {
		return nil, false, fmt.Errorf("persist reservation: %w", err)
	}
	return res, false, nil
}

// CancelReservation transitions a reservation to CANCELLED. It returns
// false when the reservation is absent or already cancelled; a second
// cancel is a reported no-op, not a silent success. The store performs the
// transition atomically, so no slot lock is needed here.
func (s *Service) CancelReservation(ctx context.Context, id string) (bool, error) {
	ok, err := s.store.CancelReservation(ctx, id, s.now())
	if err != nil {
		return false, fmt.Errorf("cancel reservation: %w", err)
	}
	if !ok {
		return false, nil
	}
	s.log.Info().
		Str("operation", "cancel_reservation").
		Str("reservation_id", id).
		Msg("reservation cancelled")
	if res, err := s.store.ReservationByID(ctx, id); err == nil {
		s.events.ReservationCancelled(ctx, res)
	}
	return true, nil
}

// GetReservation returns the reservation by id. Cancelled reservations are
// invisible here; they only surface through day listings with
// includeCancelled set.
func (s *Service) GetReservation(ctx context.Context, id string) (*Reservation, error) {
	res, err := s.store.ReservationByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, newError(CodeNotFound, "reservation not found")
		}
		return nil, fmt.Errorf("reservation lookup: %w", err)
	}
	if res.Status == StatusCancelled {
		return nil, newError(CodeNotFound, "reservation not found")
	}
	return res, nil
}

// ReservationsForDay lists reservations whose start falls on date in the
// restaurant's local timezone. An instant that is "tomorrow" locally never
// shows up under today even when its UTC date differs.
func (s *Service) ReservationsForDay(ctx context.Context, restaurantID, date, sectorID string, includeCancelled bool) ([]Reservation, error) {
	restaurant, err := s.store.RestaurantByID(ctx, restaurantID)
	if err != nil {
		if isNotFound(err) {
			return nil, newError(CodeNotFound, "restaurant not found")
		}
		return nil, fmt.Errorf("restaurant lookup: %w", err)
	}

	loc, err := time.LoadLocation(restaurant.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", restaurant.Timezone, err)
	}
	dayStart, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, newError(CodeInvalid, "date must be YYYY-MM-DD")
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	out, err := s.store.ReservationsByRange(ctx, restaurantID, dayStart, dayEnd, sectorID, includeCancelled)
	if err != nil {
		return nil, fmt.Errorf("reservations by range: %w", err)
	}
	return out, nil
}
