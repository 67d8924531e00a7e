package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/drnexus/medicaldashboard/backend/internal/adapters/database"
	"github.com/drnexus/medicaldashboard/backend/internal/adapters/dataset"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/providers"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/clients/postgres"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/observability"
	"github.com/drnexus/medicaldashboard/backend/internal/store"
	"github.com/drnexus/medicaldashboard/backend/pkg/config"
	"github.com/drnexus/medicaldashboard/backend/pkg/retry"
)

// globalOptions are the flags shared by every subcommand
type globalOptions struct {
	source string
	file   string
	cfg    *config.Config
}

func main() {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:           "healthctl",
		Short:         "Inspect and manage the health record dataset",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.source != "" {
				cfg.Dataset.Source = opts.source
			}
			if opts.file != "" {
				cfg.Dataset.Path = opts.file
				if opts.source == "" {
					cfg.Dataset.Source = config.DatasetSourceFile
				}
			}
			opts.cfg = cfg
			observability.InitLoggerTo(os.Stderr, "healthctl", cfg.Environment)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.source, "source", "", "dataset source: bundled, file or postgres (default from DATASET_SOURCE)")
	rootCmd.PersistentFlags().StringVarP(&opts.file, "file", "f", "", "JSON or YAML dataset file; implies --source file")

	rootCmd.AddCommand(searchCmd(opts))
	rootCmd.AddCommand(layoutCmd(opts))
	rootCmd.AddCommand(integrityCmd(opts))
	rootCmd.AddCommand(seedCmd(opts))
	rootCmd.AddCommand(snapshotsCmd(opts))
	rootCmd.AddCommand(viewCmd(opts))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// connectSnapshots opens the Postgres snapshot store named in the config
func connectSnapshots(ctx context.Context, cfg *config.Config) (*database.SnapshotAdapter, func(), error) {
	pgClient, err := postgres.NewClient(ctx, &cfg.Database, retry.OptionalConfig())
	if err != nil {
		return nil, nil, err
	}
	snapshots := database.NewSnapshotAdapter(pgClient, cfg.Dataset.Snapshot, nil)
	if err := snapshots.EnsureSchema(ctx); err != nil {
		pgClient.Close()
		return nil, nil, err
	}
	return snapshots, func() { pgClient.Close() }, nil
}

// loadSnapshot reads the configured source into a fresh store
func loadSnapshot(ctx context.Context, cfg *config.Config) (*store.Snapshot, error) {
	var snapshots providers.DatasetSource
	if cfg.Dataset.Source == config.DatasetSourcePostgres {
		adapter, closeFn, err := connectSnapshots(ctx, cfg)
		if err != nil {
			return nil, err
		}
		defer closeFn()
		snapshots = adapter
	}

	source, err := dataset.SourceFor(cfg.Dataset, snapshots)
	if err != nil {
		return nil, err
	}
	ds, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset from %s: %w", source.Name(), err)
	}

	snap, err := store.New().Load(ds)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("source", source.Name()).Uint64("version", snap.Version()).Msg("Dataset loaded")
	return snap, nil
}
