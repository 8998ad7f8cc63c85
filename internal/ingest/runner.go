package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/eurometrics/internal/logging"
)

// StepBuild is the run log source name of the indicator build.
const StepBuild = "build"

// Runner fetches sources, writes them and builds the indicator table,
// recording every step in the run log when one is set.
type Runner struct {
	Fetcher *Fetcher
	Store   Store
	Log     *RunLog  // optional
	Table   string   // indicator table, default IndicatorTable
	Snap    *sqlx.DB // optional SQLite snapshot target
}

func (r *Runner) table() string {
	if r.Table == "" {
		return IndicatorTable
	}
	return r.Table
}

// record runs fn as a logged step. Run log failures are logged, not returned,
// so they never mask the step's own result.
func (r *Runner) record(ctx context.Context, step string, fn func() (int64, error)) error {
	logger := logging.WithFields(ctx, "step", step)

	var id string
	if r.Log != nil {
		var err error
		if id, err = r.Log.Start(ctx, step); err != nil {
			logger.Error("run log unavailable", "error", err)
		}
	}

	start := time.Now()
	rows, err := fn()

	if id != "" {
		// The step's context may already be cancelled.
		if ferr := r.Log.Finish(context.WithoutCancel(ctx), id, rows, err); ferr != nil {
			logger.Error("run log unavailable", "error", ferr)
		}
	}
	if err != nil {
		logger.Error("step failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return fmt.Errorf("%s: %w", step, err)
	}
	logger.Info("step complete", "rows", rows, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Ingest fetches every source concurrently and then writes each one. Any
// fetch failure aborts the run before anything is written.
func (r *Runner) Ingest(ctx context.Context, sources []Source) error {
	fetched := make([][]Observation, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			return r.record(gctx, src.Name()+".fetch", func() (int64, error) {
				obs, err := src.Fetch(gctx, r.Fetcher)
				fetched[i] = obs
				return int64(len(obs)), err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, src := range sources {
		if len(fetched[i]) == 0 {
			logging.FromContext(ctx).Warn("no observations fetched, table left unchanged", "source", src.Name())
			continue
		}
		err := r.record(ctx, src.Name()+".write", func() (int64, error) {
			return r.Store.WriteObservations(ctx, src.Table(), src.Mode(), fetched[i])
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Build rebuilds the indicator table and, when Snap is set, the SQLite
// snapshot of it.
func (r *Runner) Build(ctx context.Context) error {
	return r.record(ctx, StepBuild, func() (int64, error) {
		records, err := BuildIndicators(ctx, r.Store, r.table())
		if err != nil {
			return 0, err
		}
		if r.Snap != nil {
			if err := WriteSnapshot(ctx, r.Snap, r.table(), records); err != nil {
				return 0, err
			}
		}
		return int64(len(records)), nil
	})
}

// RunAll ingests every source and builds the indicator table.
func (r *Runner) RunAll(ctx context.Context, sources []Source) error {
	if err := r.Ingest(ctx, sources); err != nil {
		return err
	}
	return r.Build(ctx)
}

// Schedule runs RunAll immediately and then every interval until ctx is
// cancelled. A run still in progress when the next one is due is not
// overlapped.
func (r *Runner) Schedule(ctx context.Context, interval time.Duration, sources []Source) error {
	if interval <= 0 {
		return fmt.Errorf("schedule interval must be positive, got %s", interval)
	}
	logger := logging.FromContext(ctx)

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	_, err := scheduler.Every(interval).Do(func() {
		if err := r.RunAll(ctx, sources); err != nil {
			logger.Error("scheduled ingestion failed", "error", err)
			return
		}
		logger.Info("scheduled ingestion complete")
	})
	if err != nil {
		return fmt.Errorf("schedule ingestion: %w", err)
	}

	logger.Info("ingestion scheduled", "interval", interval.String())
	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()
	logger.Info("ingestion scheduler stopped")
	return nil
}
