package booking

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// FindAvailableTable picks the single best-fit free table in the sector for
// a party starting at start. It is a pure read over store state at call
// time; serializing competing calls is the lifecycle manager's job, not
// this function's.
//
// The returned assignment always holds exactly one table id. On assignment
// failure the error is a *Error with one of the engine reasons:
// no_tables_in_sector, no_suitable_capacity (no table's capacity range
// contains the party at all), or no_capacity (a fitting table exists but is
// occupied).
func FindAvailableTable(ctx context.Context, store Store, sectorID string, start time.Time, partySize int) ([]string, error) {
	tables, err := store.TablesBySector(ctx, sectorID)
	if err != nil {
		return nil, fmt.Errorf("tables by sector: %w", err)
	}
	if len(tables) == 0 {
		return nil, newError(CodeNoTablesInSector, "sector has no tables")
	}

	end := start.Add(ServiceDuration)

	overlapping, err := store.OverlappingReservations(ctx, sectorID, start, end, "")
	if err != nil {
		return nil, fmt.Errorf("overlapping reservations: %w", err)
	}
	assertNoDoubleBooking(overlapping)

	occupied := make(map[string]bool)
	for _, r := range overlapping {
		for _, id := range r.TableIDs {
			occupied[id] = true
		}
	}

	var candidates []Table
	anyFits := false
	for _, t := range tables {
		if t.MinSize > partySize || t.MaxSize < partySize {
			continue
		}
		anyFits = true
		if occupied[t.ID] {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		if !anyFits {
			return nil, newError(CodeNoSuitableCapacity, "no table capacity range fits party size")
		}
		return nil, newError(CodeNoCapacity, "no available table fits party size at requested time")
	}

	// Least wasted capacity first, then the smaller table. Keeps an 8-top
	// free for the party of 8 when a 2-top would do.
	sort.Slice(candidates, func(i, j int) bool {
		wi := candidates[i].MaxSize - partySize
		wj := candidates[j].MaxSize - partySize
		if wi != wj {
			return wi < wj
		}
		if candidates[i].MaxSize != candidates[j].MaxSize {
			return candidates[i].MaxSize < candidates[j].MaxSize
		}
		return candidates[i].ID < candidates[j].ID
	})

	return []string{candidates[0].ID}, nil
}

// assertNoDoubleBooking panics if two confirmed reservations already share a
// table over intersecting intervals. Under correct slot locking that state
// is unreachable; reaching it means the concurrency control is broken and
// continuing would silently hand out tables twice.
func assertNoDoubleBooking(reservations []Reservation) {
	byTable := make(map[string][]*Reservation)
	for i := range reservations {
		r := &reservations[i]
		if r.Status != StatusConfirmed {
			continue
		}
		for _, id := range r.TableIDs {
			for _, other := range byTable[id] {
				if r.Overlaps(other.Start, other.End) {
					panic(fmt.Sprintf(
						"booking: reservations %s and %s double-book table %s; slot locking is broken",
						other.ID, r.ID, id))
				}
			}
			byTable[id] = append(byTable[id], r)
		}
	}
}
