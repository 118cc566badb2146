package timeslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lunchAndDinner = []Window{
	{Start: "12:00", End: "16:00"},
	{Start: "19:00", End: "23:30"},
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func TestWithinWindow_NoWindowsAlwaysOpen(t *testing.T) {
	ok, err := WithinWindow(mustTime(t, "2025-09-08T03:00:00Z"), "America/Argentina/Buenos_Aires", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWithinWindow_Membership(t *testing.T) {
	tz := "America/Argentina/Buenos_Aires" // UTC-3, no DST

	cases := []struct {
		name  string
		local string
		want  bool
	}{
		{"inside lunch", "2025-09-08T12:00:00-03:00", true},
		{"last minute of lunch", "2025-09-08T15:59:00-03:00", true},
		{"shift end is exclusive", "2025-09-08T16:00:00-03:00", false},
		{"between shifts", "2025-09-08T18:00:00-03:00", false},
		{"inside dinner", "2025-09-08T20:00:00-03:00", true},
		{"dinner end is exclusive", "2025-09-08T23:30:00-03:00", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := WithinWindow(mustTime(t, tc.local), tz, lunchAndDinner)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestWithinWindow_ConvertsToLocalClock(t *testing.T) {
	// 23:00 UTC is 20:00 in Buenos Aires, squarely inside dinner.
	ok, err := WithinWindow(mustTime(t, "2025-09-08T23:00:00Z"), "America/Argentina/Buenos_Aires", lunchAndDinner)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWithinWindow_DSTOffsets(t *testing.T) {
	windows := []Window{{Start: "12:00", End: "16:00"}}

	// 2025-03-09 is the US spring-forward date: New York is UTC-4 after it,
	// UTC-5 before. The same UTC clock lands on different local times.
	summer, err := WithinWindow(mustTime(t, "2025-03-09T19:30:00Z"), "America/New_York", windows)
	require.NoError(t, err)
	assert.True(t, summer, "19:30Z is 15:30 EDT, inside the window")

	winter, err := WithinWindow(mustTime(t, "2025-01-09T19:30:00Z"), "America/New_York", windows)
	require.NoError(t, err)
	assert.True(t, winter, "19:30Z is 14:30 EST, inside the window")

	lateWinter, err := WithinWindow(mustTime(t, "2025-01-09T21:30:00Z"), "America/New_York", windows)
	require.NoError(t, err)
	assert.False(t, lateWinter, "21:30Z is 16:30 EST, past the window")
}

func TestWithinWindow_BadTimezone(t *testing.T) {
	_, err := WithinWindow(mustTime(t, "2025-09-08T12:00:00Z"), "Not/AZone", lunchAndDinner)
	assert.Error(t, err)
}

func TestForDate_NoWindowsCoversWholeDay(t *testing.T) {
	slots, err := ForDate("2025-09-08", "America/Argentina/Buenos_Aires", nil)
	require.NoError(t, err)
	require.Len(t, slots, 96) // 24h on a 15-minute grid

	loc, _ := time.LoadLocation("America/Argentina/Buenos_Aires")
	assert.Equal(t, "00:00", slots[0].In(loc).Format("15:04"))
	assert.Equal(t, "23:45", slots[95].In(loc).Format("15:04"))
}

func TestForDate_PerShiftGridsInDeclarationOrder(t *testing.T) {
	slots, err := ForDate("2025-09-08", "America/Argentina/Buenos_Aires", lunchAndDinner)
	require.NoError(t, err)
	// lunch 12:00-16:00 -> 16 slots, dinner 19:00-23:30 -> 18 slots
	require.Len(t, slots, 34)

	loc, _ := time.LoadLocation("America/Argentina/Buenos_Aires")
	assert.Equal(t, "12:00", slots[0].In(loc).Format("15:04"))
	assert.Equal(t, "15:45", slots[15].In(loc).Format("15:04"))
	assert.Equal(t, "19:00", slots[16].In(loc).Format("15:04"))
	assert.Equal(t, "23:15", slots[33].In(loc).Format("15:04"))
}

func TestForDate_SlotNearShiftEndIsKept(t *testing.T) {
	// The 15:45 slot's 90-minute service runs past the 16:00 shift end.
	// That slot is still offered; no truncation happens here.
	slots, err := ForDate("2025-09-08", "America/Argentina/Buenos_Aires", []Window{{Start: "12:00", End: "16:00"}})
	require.NoError(t, err)
	require.Len(t, slots, 16)

	loc, _ := time.LoadLocation("America/Argentina/Buenos_Aires")
	assert.Equal(t, "15:45", slots[len(slots)-1].In(loc).Format("15:04"))
}

func TestForDate_SlotsAreInstantsInRestaurantZone(t *testing.T) {
	slots, err := ForDate("2025-09-08", "America/Argentina/Buenos_Aires", []Window{{Start: "12:00", End: "13:00"}})
	require.NoError(t, err)
	require.Len(t, slots, 4)
	assert.Equal(t, mustTime(t, "2025-09-08T12:00:00-03:00").UTC(), slots[0].UTC())
}

func TestForDate_BadInputs(t *testing.T) {
	_, err := ForDate("not-a-date", "America/New_York", nil)
	assert.Error(t, err)

	_, err = ForDate("2025-09-08", "Not/AZone", nil)
	assert.Error(t, err)

	_, err = ForDate("2025-09-08", "America/New_York", []Window{{Start: "25:00", End: "26:00"}})
	assert.Error(t, err)
}
