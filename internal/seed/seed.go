// Package seed loads the demo dataset: one restaurant with two service
// shifts, two sectors and a table mix that exercises the best-fit
// assignment (in the main hall only one table seats a party of six).
package seed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/example/tablebook/internal/booking"
)

var restaurant = booking.Restaurant{
	ID:       "R1",
	Name:     "La Cocina del Puerto",
	Timezone: "America/Argentina/Buenos_Aires",
	Shifts: []booking.Shift{
		{Start: "12:00", End: "16:00"},
		{Start: "19:00", End: "23:30"},
	},
}

var sectors = []booking.Sector{
	{ID: "S1", RestaurantID: "R1", Name: "Main Hall"},
	{ID: "S2", RestaurantID: "R1", Name: "Terrace"},
}

var tables = []booking.Table{
	{ID: "T1", SectorID: "S1", Name: "Main 1", MinSize: 1, MaxSize: 2},
	{ID: "T2", SectorID: "S1", Name: "Main 2", MinSize: 2, MaxSize: 4},
	{ID: "T3", SectorID: "S1", Name: "Main 3", MinSize: 2, MaxSize: 4},
	{ID: "T4", SectorID: "S1", Name: "Main 4", MinSize: 5, MaxSize: 6},
	{ID: "T5", SectorID: "S2", Name: "Terrace 1", MinSize: 1, MaxSize: 2},
	{ID: "T6", SectorID: "S2", Name: "Terrace 2", MinSize: 2, MaxSize: 4},
	{ID: "T7", SectorID: "S2", Name: "Terrace 3", MinSize: 6, MaxSize: 8},
}

// Load writes the demo dataset through the store. The writes are upserts,
// so loading on every startup is harmless.
func Load(ctx context.Context, store booking.Store, log zerolog.Logger) error {
	if err := store.PutRestaurant(ctx, &restaurant); err != nil {
		return fmt.Errorf("seed restaurant: %w", err)
	}
	log.Info().Str("restaurant", restaurant.Name).Msg("loaded restaurant")

	for i := range sectors {
		if err := store.PutSector(ctx, &sectors[i]); err != nil {
			return fmt.Errorf("seed sector %s: %w", sectors[i].ID, err)
		}
	}
	log.Info().Int("count", len(sectors)).Msg("loaded sectors")

	for i := range tables {
		if err := store.PutTable(ctx, &tables[i]); err != nil {
			return fmt.Errorf("seed table %s: %w", tables[i].ID, err)
		}
	}
	log.Info().Int("count", len(tables)).Msg("loaded tables")

	return nil
}
