package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/drnexus/medicaldashboard/backend/internal/adapters/database"
	"github.com/drnexus/medicaldashboard/backend/internal/adapters/dataset"
	searchadapter "github.com/drnexus/medicaldashboard/backend/internal/adapters/search"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/providers"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/clients/postgres"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/clients/typesense"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/observability"
	"github.com/drnexus/medicaldashboard/backend/internal/search"
	"github.com/drnexus/medicaldashboard/backend/internal/store"
	"github.com/drnexus/medicaldashboard/backend/pkg/config"
	"github.com/drnexus/medicaldashboard/backend/pkg/retry"
)

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete existing Typesense collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("health-record-indexer", cfg.Environment)

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("Invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, cfg, reset); err != nil {
			log.Error().Err(err).Msg("Reindex failed")
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Info().Dur("next_run_in", interval).Msg("Reindex complete")

		select {
		case <-ctx.Done():
			log.Info().Msg("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, reset bool) error {
	source, closeSource, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	ds, err := source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset from %s: %w", source.Name(), err)
	}

	st := store.New()
	engine := search.NewEngine()
	snap, err := st.Load(ds)
	if err != nil {
		return fmt.Errorf("install dataset: %w", err)
	}
	index := engine.Rebuild(snap.Dataset(), snap.Version())

	tsClient, err := typesense.NewClient(ctx, &cfg.Typesense, retry.DefaultConfig())
	if err != nil {
		return err
	}
	exporter := searchadapter.NewTypesenseExporter(tsClient)

	if reset {
		if err := exporter.Reset(ctx); err != nil {
			return err
		}
	} else if err := tsClient.InitSchema(ctx); err != nil {
		return err
	}

	indexed, err := exporter.Export(ctx, index.Documents(), snap.Version())
	if err != nil {
		return err
	}

	log.Info().
		Str("source", source.Name()).
		Str("collection", tsClient.Collection()).
		Int("documents", indexed).
		Int("integrity_issues", len(snap.IntegrityIssues())).
		Msg("Indexed health records")
	return nil
}

// openSource resolves the configured dataset source, connecting to Postgres
// only when snapshots are the source.
func openSource(ctx context.Context, cfg *config.Config) (providers.DatasetSource, func(), error) {
	noop := func() {}
	if cfg.Dataset.Source != config.DatasetSourcePostgres {
		source, err := dataset.SourceFor(cfg.Dataset, nil)
		return source, noop, err
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database, retry.DefaultConfig())
	if err != nil {
		return nil, noop, err
	}
	source, err := dataset.SourceFor(cfg.Dataset, database.NewSnapshotAdapter(pgClient, cfg.Dataset.Snapshot, nil))
	if err != nil {
		pgClient.Close()
		return nil, noop, err
	}
	return source, func() { pgClient.Close() }, nil
}
