package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/example/tablebook/internal/api"
	"github.com/example/tablebook/internal/availability"
	"github.com/example/tablebook/internal/booking"
	"github.com/example/tablebook/internal/config"
	"github.com/example/tablebook/internal/events"
	"github.com/example/tablebook/internal/seed"
	"github.com/example/tablebook/internal/store/boltstore"
	"github.com/example/tablebook/internal/store/memstore"
	"github.com/example/tablebook/internal/store/postgres"
)

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger()
}

// openStore builds the configured store backend. The returned closer is
// always safe to call.
func openStore(ctx context.Context, cfg config.Config, migrate bool) (booking.Store, func(), error) {
	switch cfg.Store {
	case "bolt":
		st, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open bolt store: %w", err)
		}
		return st, func() { _ = st.Close() }, nil
	case "postgres":
		db, err := postgres.OpenDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		if migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		return postgres.New(db), db.Close, nil
	default:
		return memstore.New(), func() {}, nil
	}
}

func newServeCmd() *cobra.Command {
	var migrateUp bool
	var seedData bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reservation HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			store, closeStore, err := openStore(ctx, cfg, migrateUp)
			if err != nil {
				return err
			}
			defer closeStore()

			// the in-memory backend starts empty every run, so it always
			// gets the demo dataset
			if seedData || cfg.Seed || cfg.Store == "memory" {
				if err := seed.Load(ctx, store, log); err != nil {
					return err
				}
			}

			opts := []booking.Option{booking.WithLogger(log)}
			if cfg.AMQPURL != "" {
				pub, err := events.Connect(cfg.AMQPURL, cfg.EventsQueue, log)
				if err != nil {
					return fmt.Errorf("connect amqp: %w", err)
				}
				defer pub.Close()
				opts = append(opts, booking.WithEvents(pub))
				log.Info().Str("queue", cfg.EventsQueue).Msg("event publishing enabled")
			}

			srv := &api.Server{
				Reservations: booking.NewService(store, opts...),
				Availability: availability.NewService(store),
				Store:        store,
				Log:          log,
			}

			log.Info().Str("addr", cfg.ListenAddr).Str("store", cfg.Store).Msg("listening")
			return api.Start(ctx, cfg.ListenAddr, srv.Routes())
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup (postgres store)")
	cmd.Flags().BoolVar(&seedData, "seed", false, "load the demo dataset on startup")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
