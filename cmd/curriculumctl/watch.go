package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/async"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/ingest"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir...]",
	Short: "Ingest curriculum files as they appear in directories",
	Long: `Watches the directories recursively and ingests every PDF or text file
that is created or rewritten. Runs until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

var (
	watchWorkers     int
	watchDebounce    time.Duration
	watchInitialScan bool
	watchTimeout     time.Duration
)

func init() {
	watchCmd.Flags().IntVar(&watchWorkers, "workers", 2, "Concurrent ingestions")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet period before a changed file is ingested")
	watchCmd.Flags().BoolVar(&watchInitialScan, "initial-scan", false, "Also ingest files already present")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 3*time.Minute, "Per-file ingestion timeout")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tenant, err := tenantID()
	if err != nil {
		return err
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.Seed(ctx); err != nil {
		return err
	}
	if err := a.ListenCatalog(ctx); err != nil {
		a.Logger.Warn("catalog listener unavailable", "error", err)
	}

	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       args,
		InitialScan: watchInitialScan,
		Debounce:    watchDebounce,
		Logger:      a.Logger,
	})
	if err != nil {
		return err
	}

	var printMu sync.Mutex
	q := async.NewIngestQueue(a.Ingest, a.Logger,
		async.WithWorkers(watchWorkers),
		async.WithProcessTimeout(watchTimeout),
		async.WithResultHook(func(job async.Job, res async.Result) {
			printMu.Lock()
			defer printMu.Unlock()
			if res.Err != nil {
				cmd.PrintErrf("FAIL  %s: %v\n", job.Path, res.Err)
				return
			}
			cmd.Printf("%-6s %s %s\n", res.Status, res.DocumentID, job.Path)
		}),
	)
	cmd.Printf("Watching %d director(ies). Press Ctrl+C to stop.\n", len(args))

	consume(ctx, a.Logger, paths, errs, func(path string) {
		_ = q.Enqueue(ctx, async.Job{Path: path, TenantID: tenant})
	})

	drainCtx, cancel := context.WithTimeout(context.Background(), watchTimeout)
	defer cancel()
	q.Shutdown(drainCtx)
	return nil
}

// consume forwards watcher paths to submit until both channels are closed.
func consume(ctx context.Context, logger *slog.Logger, paths <-chan string, errs <-chan error, submit func(string)) {
	if logger == nil {
		logger = slog.Default()
	}
	for paths != nil || errs != nil {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-paths:
			if !ok {
				paths = nil
				continue
			}
			submit(p)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch.error", "error", err)
		}
	}
}
