// Package api is the HTTP boundary: routing, body decoding and the mapping
// from the booking error taxonomy onto status codes. All decisions live in
// the services it fronts.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/example/tablebook/internal/availability"
	"github.com/example/tablebook/internal/booking"
)

type Server struct {
	Reservations *booking.Service
	Availability *availability.Service
	Store        booking.Store
	Log          zerolog.Logger
}

func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/restaurants/{id}", s.handleRestaurantInfo).Methods(http.MethodGet)
	r.HandleFunc("/availability", s.handleAvailability).Methods(http.MethodGet)

	r.HandleFunc("/reservations", s.handleCreateReservation).Methods(http.MethodPost)
	r.HandleFunc("/reservations/day", s.handleReservationsDay).Methods(http.MethodGet)
	r.HandleFunc("/reservations/{id}", s.handleGetReservation).Methods(http.MethodGet)
	r.HandleFunc("/reservations/{id}", s.handleCancelReservation).Methods(http.MethodDelete)

	r.Use(withRequestID)
	r.Use(requestLogger(s.Log))
	return r
}

func statusFor(code booking.Code) int {
	switch {
	case code == booking.CodeNotFound:
		return http.StatusNotFound
	case booking.IsAssignmentFailure(code):
		return http.StatusConflict
	case code == booking.CodeOutsideServiceWindow:
		return http.StatusUnprocessableEntity
	case code == booking.CodeInvalid:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  booking.Code `json:"error"`
	Detail string       `json:"detail"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := booking.CodeOf(err)
	detail := err.Error()
	if code == booking.CodeInternal {
		s.Log.Error().Err(err).
			Str("request_id", RequestIDFromContext(r.Context())).
			Msg("internal error")
		detail = "internal error"
	}
	writeJSON(w, statusFor(code), errorBody{Error: code, Detail: detail})
}

func (s *Server) handleRestaurantInfo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	restaurant, err := s.Store.RestaurantByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, &booking.Error{Code: booking.CodeNotFound, Message: "restaurant not found"})
		return
	}
	sectors, err := s.Store.SectorsByRestaurant(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"restaurant": restaurant,
		"sectors":    sectors,
	})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	partySize, err := strconv.Atoi(q.Get("partySize"))
	if err != nil {
		s.writeError(w, r, &booking.Error{Code: booking.CodeInvalid, Message: "partySize must be an integer"})
		return
	}

	resp, err := s.Availability.Get(r.Context(), availability.Query{
		RestaurantID: q.Get("restaurantId"),
		SectorID:     q.Get("sectorId"),
		Date:         q.Get("date"),
		PartySize:    partySize,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type createReservationBody struct {
	RestaurantID string                `json:"restaurantId"`
	SectorID     string                `json:"sectorId"`
	PartySize    int                   `json:"partySize"`
	Start        time.Time             `json:"start"`
	Customer     booking.CustomerInput `json:"customer"`
	Notes        string                `json:"notes"`
}

func (s *Server) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:  "missing_idempotency_key",
			Detail: "Idempotency-Key header is required",
		})
		return
	}

	var body createReservationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, &booking.Error{Code: booking.CodeInvalid, Message: "malformed request body"})
		return
	}
	if body.RestaurantID == "" || body.SectorID == "" || body.Customer.Name == "" {
		s.writeError(w, r, &booking.Error{Code: booking.CodeInvalid, Message: "restaurantId, sectorId and customer.name are required"})
		return
	}

	res, err := s.Reservations.CreateReservation(r.Context(), booking.CreateInput{
		RestaurantID: body.RestaurantID,
		SectorID:     body.SectorID,
		PartySize:    body.PartySize,
		Start:        body.Start,
		Customer:     body.Customer,
		Notes:        body.Notes,
	}, idempotencyKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := s.Reservations.GetReservation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	ok, err := s.Reservations.CancelReservation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeError(w, r, &booking.Error{Code: booking.CodeNotFound, Message: "reservation not found or already cancelled"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReservationsDay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeCancelled := q.Get("includeCancelled") == "true"

	items, err := s.Reservations.ReservationsForDay(r.Context(),
		q.Get("restaurantId"), q.Get("date"), q.Get("sectorId"), includeCancelled)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []booking.Reservation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  q.Get("date"),
		"items": items,
	})
}

// Start serves h on addr until ctx is cancelled, then drains for up to five
// seconds.
func Start(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv.ListenAndServe()
}
