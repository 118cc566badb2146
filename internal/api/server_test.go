package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablebook/internal/availability"
	"github.com/example/tablebook/internal/booking"
	"github.com/example/tablebook/internal/seed"
	"github.com/example/tablebook/internal/store/memstore"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	st := memstore.New()
	require.NoError(t, seed.Load(context.Background(), st, zerolog.Nop()))
	srv := &Server{
		Reservations: booking.NewService(st),
		Availability: availability.NewService(st),
		Store:        st,
		Log:          zerolog.Nop(),
	}
	return srv.Routes()
}

func createBody(start string, partySize int) []byte {
	body := map[string]any{
		"restaurantId": "R1",
		"sectorId":     "S1",
		"partySize":    partySize,
		"start":        start,
		"customer": map[string]string{
			"name":  "John Doe",
			"phone": "+54 9 11 5555-1234",
			"email": "john.doe@mail.com",
		},
	}
	data, _ := json.Marshal(body)
	return data
}

func postReservation(t *testing.T, h http.Handler, body []byte, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/reservations", bytes.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateReservation_HappyPath(t *testing.T) {
	h := newTestServer(t)

	rec := postReservation(t, h, createBody("2025-09-08T20:00:00-03:00", 4), "key-001")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res booking.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, booking.StatusConfirmed, res.Status)
	assert.Equal(t, []string{"T2"}, res.TableIDs)

	// replay with the same key returns the same reservation, not a new one
	rec = postReservation(t, h, createBody("2025-09-08T20:00:00-03:00", 4), "key-001")
	require.Equal(t, http.StatusCreated, rec.Code)
	var replay booking.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &replay))
	assert.Equal(t, res.ID, replay.ID)
}

func TestCreateReservation_MissingIdempotencyKey(t *testing.T) {
	h := newTestServer(t)

	rec := postReservation(t, h, createBody("2025-09-08T20:00:00-03:00", 4), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "missing_idempotency_key", body["error"])
}

func TestCreateReservation_ErrorStatusMapping(t *testing.T) {
	h := newTestServer(t)

	// outside every service shift
	rec := postReservation(t, h, createBody("2025-09-08T18:00:00-03:00", 4), "key-001")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// exhaust the only six-seat table, then collide
	rec = postReservation(t, h, createBody("2025-09-08T20:00:00-03:00", 6), "key-002")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = postReservation(t, h, createBody("2025-09-08T20:00:00-03:00", 6), "key-003")
	assert.Equal(t, http.StatusConflict, rec.Code)
	var conflict map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflict))
	assert.Equal(t, string(booking.CodeNoCapacity), conflict["error"])

	// no table in the sector seats ten
	rec = postReservation(t, h, createBody("2025-09-08T20:00:00-03:00", 10), "key-004")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// missing required fields
	rec = postReservation(t, h, []byte(`{"partySize":2}`), "key-005")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// malformed body
	rec = postReservation(t, h, []byte(`{not json`), "key-006")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAndCancelReservation(t *testing.T) {
	h := newTestServer(t)

	rec := postReservation(t, h, createBody("2025-09-08T20:00:00-03:00", 2), "key-001")
	require.Equal(t, http.StatusCreated, rec.Code)
	var res booking.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	req := httptest.NewRequest(http.MethodGet, "/reservations/"+res.ID, nil)
	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, req)
	assert.Equal(t, http.StatusOK, getRec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/reservations/"+res.ID, nil)
	delRec := httptest.NewRecorder()
	h.ServeHTTP(delRec, req)
	assert.Equal(t, http.StatusNoContent, delRec.Code)

	// cancelled reservations vanish from direct lookup
	req = httptest.NewRequest(http.MethodGet, "/reservations/"+res.ID, nil)
	getRec = httptest.NewRecorder()
	h.ServeHTTP(getRec, req)
	assert.Equal(t, http.StatusNotFound, getRec.Code)

	// second cancel is a 404, not a silent success
	req = httptest.NewRequest(http.MethodDelete, "/reservations/"+res.ID, nil)
	delRec = httptest.NewRecorder()
	h.ServeHTTP(delRec, req)
	assert.Equal(t, http.StatusNotFound, delRec.Code)
}

func TestReservationsDay(t *testing.T) {
	h := newTestServer(t)

	rec := postReservation(t, h, createBody("2025-09-08T20:00:00-03:00", 2), "key-001")
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/reservations/day?restaurantId=R1&date=2025-09-08", nil)
	dayRec := httptest.NewRecorder()
	h.ServeHTTP(dayRec, req)
	require.Equal(t, http.StatusOK, dayRec.Code)

	var payload struct {
		Date  string                `json:"date"`
		Items []booking.Reservation `json:"items"`
	}
	require.NoError(t, json.Unmarshal(dayRec.Body.Bytes(), &payload))
	assert.Equal(t, "2025-09-08", payload.Date)
	assert.Len(t, payload.Items, 1)

	// an empty day returns an empty list, not null
	req = httptest.NewRequest(http.MethodGet, "/reservations/day?restaurantId=R1&date=2025-09-09", nil)
	dayRec = httptest.NewRecorder()
	h.ServeHTTP(dayRec, req)
	require.Equal(t, http.StatusOK, dayRec.Code)
	assert.Contains(t, dayRec.Body.String(), `"items":[]`)

	req = httptest.NewRequest(http.MethodGet, "/reservations/day?restaurantId=R9&date=2025-09-08", nil)
	dayRec = httptest.NewRecorder()
	h.ServeHTTP(dayRec, req)
	assert.Equal(t, http.StatusNotFound, dayRec.Code)
}

func TestAvailabilityEndpoint(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet,
		"/availability?restaurantId=R1&sectorId=S1&date=2025-09-08&partySize=2", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp availability.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 15, resp.SlotMinutes)
	assert.Len(t, resp.Slots, 34)

	req = httptest.NewRequest(http.MethodGet,
		"/availability?restaurantId=R1&sectorId=S1&date=2025-09-08&partySize=abc", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRestaurantInfoAndHealth(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/restaurants/R1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Restaurant booking.Restaurant `json:"restaurant"`
		Sectors    []booking.Sector   `json:"sectors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "America/Argentina/Buenos_Aires", payload.Restaurant.Timezone)
	assert.Len(t, payload.Sectors, 2)

	req = httptest.NewRequest(http.MethodGet, "/restaurants/R9", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	echoed := httptest.NewRecorder()
	idReq := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	idReq.Header.Set("X-Request-Id", "req-123")
	h.ServeHTTP(echoed, idReq)
	assert.Equal(t, "req-123", echoed.Header().Get("X-Request-Id"))
}
