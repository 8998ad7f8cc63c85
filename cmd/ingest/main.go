package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/eurometrics/internal/config"
	"github.com/JonMunkholm/eurometrics/internal/ingest"
	"github.com/JonMunkholm/eurometrics/internal/logging"
	"github.com/JonMunkholm/eurometrics/internal/source"
)

func main() {
	var snapshotPath string

	rootCmd := &cobra.Command{
		Use:          "ingest",
		Short:        "Fetch ECB and Eurostat indicators into Postgres",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&snapshotPath, "sqlite-snapshot", "",
		"Also write the built indicator table to this SQLite file")

	rootCmd.AddCommand(
		newSourceCmd(ingest.SourceHICP, "Fetch the monthly HICP index from the ECB", &snapshotPath),
		newSourceCmd(ingest.SourceGDP, "Fetch annual GDP from Eurostat (appends)", &snapshotPath),
		newSourceCmd(ingest.SourcePopulation, "Fetch population on 1 January from Eurostat", &snapshotPath),
		newAllCmd(&snapshotPath),
		newBuildCmd(&snapshotPath),
		newScheduleCmd(&snapshotPath),
		newHistoryCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env holds everything a command needs; close releases it.
type env struct {
	cfg    *config.Config
	runner *ingest.Runner
	log    *ingest.RunLog
	close  func()
}

// open loads configuration, logs to stderr and connects the run log and
// store to DATABASE_URL.
func open(ctx context.Context, snapshotPath string) (*env, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL is required for ingestion")
	}
	pool, err := source.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	db := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")
	closers := []func(){pool.Close, func() { db.Close() }}

	runLog := ingest.NewRunLog(db)
	if err := runLog.EnsureSchema(ctx); err != nil {
		db.Close()
		pool.Close()
		return nil, err
	}

	runner := &ingest.Runner{
		Fetcher: ingest.NewFetcher(cfg.Ingest.HTTPTimeout, cfg.Ingest.ArchiveDir),
		Store:   ingest.NewPGStore(pool, cfg.Ingest.BatchSize),
		Log:     runLog,
		Table:   cfg.Source.Table,
	}
	if snapshotPath != "" {
		snap, err := source.OpenSQLite(snapshotPath)
		if err != nil {
			db.Close()
			pool.Close()
			return nil, err
		}
		runner.Snap = snap
		closers = append(closers, func() { snap.Close() })
	}

	return &env{
		cfg:    cfg,
		runner: runner,
		log:    runLog,
		close: func() {
			// Reverse order: the sqlx handle wraps the pool.
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func newSourceCmd(name, short string, snapshotPath *string) *cobra.Command {
	var build bool

	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context(), *snapshotPath)
			if err != nil {
				return err
			}
			defer e.close()

			sources, err := ingest.Build(e.cfg.Ingest, name)
			if err != nil {
				return err
			}
			if err := e.runner.Ingest(cmd.Context(), sources); err != nil {
				return err
			}
			if build {
				return e.runner.Build(cmd.Context())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&build, "build", false, "Rebuild the indicator table afterwards")
	return cmd
}

func newAllCmd(snapshotPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Fetch every source, then build the indicator table",
		Long: `Fetch HICP, GDP and population concurrently and build the indicator table.

Any failed request aborts the whole run before anything is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context(), *snapshotPath)
			if err != nil {
				return err
			}
			defer e.close()

			sources, err := ingest.Build(e.cfg.Ingest)
			if err != nil {
				return err
			}
			return e.runner.RunAll(cmd.Context(), sources)
		},
	}
}

func newBuildCmd(snapshotPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the indicator table from the loaded source tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context(), *snapshotPath)
			if err != nil {
				return err
			}
			defer e.close()
			return e.runner.Build(cmd.Context())
		},
	}
}

func newScheduleCmd(snapshotPath *string) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run 'all' now and then on an interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context(), *snapshotPath)
			if err != nil {
				return err
			}
			defer e.close()

			if interval == 0 {
				interval = e.cfg.Ingest.Interval
			}
			sources, err := ingest.Build(e.cfg.Ingest)
			if err != nil {
				return err
			}
			return e.runner.Schedule(cmd.Context(), interval, sources)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Run period (default INGEST_INTERVAL)")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent ingestion runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer e.close()

			runs, err := e.log.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tSTEP\tSTATUS\tROWS\tDURATION\tERROR")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					r.StartedAt.Format(time.RFC3339), r.Source, r.Status, r.Rows,
					r.Duration().Round(time.Millisecond), r.Error)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	return cmd
}
