package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/drnexus/medicaldashboard/backend/internal/adapters/database"
	"github.com/drnexus/medicaldashboard/backend/internal/adapters/dataset"
	"github.com/drnexus/medicaldashboard/backend/internal/application/services"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/search"
	"github.com/drnexus/medicaldashboard/backend/internal/store"
	"github.com/drnexus/medicaldashboard/backend/internal/timeline"
	"github.com/drnexus/medicaldashboard/backend/internal/tui"
)

func searchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search timeline events, conditions, labs, medications, devices, actions and questions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			return writeSearch(cmd.OutOrStdout(), snap, strings.Join(args, " "))
		},
	}
}

func writeSearch(out io.Writer, snap *store.Snapshot, query string) error {
	engine := search.NewEngine()
	engine.Rebuild(snap.Dataset(), snap.Version())
	results := engine.Search(query)
	if len(results) == 0 {
		fmt.Fprintf(out, "No results for %q\n", query)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tTITLE\tSIGNIFICANCE\tDATE\tLINK")
	for _, r := range results {
		date := "-"
		if r.Date != nil {
			date = r.Date.Format("2006-01-02")
		}
		significance := string(r.Significance)
		if significance == "" {
			significance = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Type, r.Title, significance, date, r.Href)
	}
	return w.Flush()
}

type layoutOptions struct {
	width  float64
	height float64
	k      float64
	x      float64
	types  []string
	all    bool
}

func layoutCmd(opts *globalOptions) *cobra.Command {
	lo := &layoutOptions{}
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print timeline marker positions for a viewport and zoom",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			return writeLayout(cmd.OutOrStdout(), snap, lo)
		},
	}
	cmd.Flags().Float64Var(&lo.width, "width", 1000, "viewport width in pixels")
	cmd.Flags().Float64Var(&lo.height, "height", 400, "viewport height in pixels")
	cmd.Flags().Float64Var(&lo.k, "k", 1, "zoom scale")
	cmd.Flags().Float64Var(&lo.x, "x", 0, "horizontal pan in pixels")
	cmd.Flags().StringSliceVar(&lo.types, "type", nil, "only show these event types")
	cmd.Flags().BoolVar(&lo.all, "all", false, "include markers outside the visible range")
	return cmd
}

func writeLayout(out io.Writer, snap *store.Snapshot, lo *layoutOptions) error {
	all := snap.Timeline()
	domain, ok := timeline.Extent(all)
	if !ok {
		fmt.Fprintln(out, "Timeline is empty")
		return nil
	}

	filter := services.TimelineFilter{}
	for _, t := range lo.types {
		filter.Types = append(filter.Types, entities.EventType(strings.TrimSpace(t)))
	}
	frame := timeline.BuildFrame(filter.Apply(all), timeline.Options{
		Transform: timeline.Transform{X: lo.x, K: lo.k},
		Width:     lo.width,
		Height:    lo.height,
		Domain:    &domain,
	})

	fmt.Fprintf(out, "zoom %.2fx  pan %.0fpx  plot %.0fx%.0f  %d of %d visible\n",
		frame.Transform.K, frame.Transform.X, frame.PlotWidth, frame.PlotHeight,
		frame.Stats["visible"], frame.Stats["total"])

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTYPE\tSIGNIFICANCE\tX\tY\tR\tSUMMARY")
	for _, m := range frame.Markers {
		if !m.Visible && !lo.all {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%.1f\t%.0f\t%s\n",
			m.Event.Date.Format("2006-01-02"), m.Event.EventType, m.Event.Significance(),
			m.X, m.Y, m.Radius, m.Event.Summary)
	}
	return w.Flush()
}

func integrityCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "integrity",
		Short: "Report data-quality issues found when loading the dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			return writeIntegrity(cmd.OutOrStdout(), snap.IntegrityIssues())
		},
	}
}

func writeIntegrity(out io.Writer, issues []entities.IntegrityIssue) error {
	if len(issues) == 0 {
		fmt.Fprintln(out, "No integrity issues")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tRECORD\tID\tMESSAGE")
	for _, issue := range issues {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", issue.Kind, issue.RecordType, issue.RecordID, issue.Message)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d issue(s)\n", len(issues))
	return nil
}

func seedCmd(opts *globalOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Store the dataset as a Postgres snapshot",
		Long: "Reads the dataset from --file, or the bundled dataset when no file is given, " +
			"and saves it as a new snapshot row that the API can load with DATASET_SOURCE=postgres.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := opts.cfg
			source := dataset.NewBundledSource()
			if cfg.Dataset.Path != "" {
				source = dataset.NewFileSource(cfg.Dataset.Path)
			}
			ds, err := source.Load(ctx)
			if err != nil {
				return err
			}
			// Reject what the API would reject
			snap, err := store.New().Load(ds)
			if err != nil {
				return err
			}

			snapshots, closeFn, err := connectSnapshots(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			if name == "" {
				name = cfg.Dataset.Snapshot
			}
			if err := snapshots.Save(ctx, name, ds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s as snapshot %q (%d timeline events, %d integrity issues)\n",
				source.Name(), name, len(snap.Timeline()), len(snap.IntegrityIssues()))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snapshot name (default from DATASET_SNAPSHOT)")
	return cmd
}

func snapshotsCmd(opts *globalOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List stored Postgres snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshots, closeFn, err := connectSnapshots(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			if name == "" {
				name = opts.cfg.Dataset.Snapshot
			}
			infos, err := snapshots.List(cmd.Context(), name)
			if err != nil {
				return err
			}
			return writeSnapshots(cmd.OutOrStdout(), infos)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snapshot name (default from DATASET_SNAPSHOT)")
	return cmd
}

func writeSnapshots(out io.Writer, infos []database.SnapshotInfo) error {
	if len(infos) == 0 {
		fmt.Fprintln(out, "No snapshots")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVERSION\tEVENTS\tCREATED")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			info.ID, info.Name, info.Version, info.TimelineEvents, info.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func viewCmd(opts *globalOptions) *cobra.Command {
	var theme string
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Browse the timeline in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := entities.ParseTheme(theme)
			if err != nil {
				return err
			}
			snap, err := loadSnapshot(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}

			events := snap.Timeline()
			var domain *timeline.Domain
			if d, ok := timeline.Extent(events); ok {
				domain = &d
			}
			m := tui.New(snap.Patient().Name, events, domain, parsed)
			return tui.Run(cmd.Context(), m, nil, nil)
		},
	}
	cmd.Flags().StringVar(&theme, "theme", string(entities.ThemeLight), "colour theme: light or dark")
	return cmd
}
