// Command suspension-gc deletes expired suspended checkout sessions from
// postgres. Run it periodically when the server uses the postgres store.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-checkout/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		migrate     bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.BoolVar(&migrate, "migrate", false, "apply schema migrations before purging")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, migrate); err != nil {
		slog.Error("purge failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL string, migrate bool) error {
	if migrate {
		slog.Info("applying migrations")
		if err := postgres.RunMigrations(databaseURL); err != nil {
			return err
		}
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer pool.Close()

	// TTL only matters for Save; purging compares against stored expiry.
	repo := postgres.NewSuspensionRepository(pool, 0)
	n, err := repo.PurgeExpired(ctx)
	if err != nil {
		return errors.Wrap(err, "purge expired suspensions")
	}

	slog.Info("purged expired suspensions", slog.Int64("count", n))
	return nil
}
