package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/kvasari/surehash/internal/api"
	"github.com/kvasari/surehash/internal/config"
	"github.com/kvasari/surehash/internal/db"
	"github.com/kvasari/surehash/internal/hashpipe"
	"github.com/kvasari/surehash/internal/hashstore"
	"github.com/kvasari/surehash/internal/migrate"
	"github.com/kvasari/surehash/internal/progressmeter"
	"github.com/kvasari/surehash/internal/retention"
	"github.com/kvasari/surehash/internal/scheduler"
	"github.com/kvasari/surehash/internal/treenode"
	"github.com/kvasari/surehash/internal/weave"
)

// Injected at build time via -ldflags; defaults to "dev".
var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single hash-update (and, if configured, migration) pass and exit instead of starting the scheduler and HTTP server")
	flag.Parse()

	// ── Logging (initial — overridden below once config is loaded) ─────────
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// ── Config ─────────────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("surehash starting",
		"version", version,
		"log_level", cfg.LogLevel,
		"root", cfg.Root,
		"db_path", cfg.DBPath,
		"weave_path", cfg.WeavePath)

	// ── Database ───────────────────────────────────────────────────────────
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		slog.Error("run migrations", "error", err)
		os.Exit(1)
	}

	store := hashstore.New(database)
	if err := hashstore.MarkStaleRunsFailed(context.Background(), store, time.Now()); err != nil {
		slog.Warn("mark stale runs", "error", err)
	}

	retentionMgr := retention.New(database, cfg.DeltaRetentionCount)

	a := &app{
		cfg:    cfg,
		store:  store,
		retain: retentionMgr,
		source: weave.NodeSource{},
	}

	if *once {
		if err := a.runOnce(context.Background(), progressmeter.New(os.Stdout)); err != nil {
			slog.Error("hash-update run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// ── Scheduler ──────────────────────────────────────────────────────────
	sched := scheduler.New()
	if !cfg.SchedulePaused && cfg.Schedule != "" {
		if err := sched.SetJob(cfg.Schedule, func() {
			slog.Info("scheduled hash-update triggered")
			if err := a.runOnce(context.Background(), progressmeter.SlogMeter{}); err != nil {
				slog.Error("scheduled hash-update failed", "error", err)
			}
		}); err != nil {
			slog.Warn("invalid cron expression", "expr", cfg.Schedule, "error", err)
		}
	}

	if err := sched.AddJob("0 3 * * *", func() {
		slog.Info("delta retention prune triggered")
		remover := weave.DeltaRemover{Dir: filepath.Dir(cfg.WeavePath)}
		if _, _, err := a.retain.Prune(context.Background(), remover); err != nil {
			slog.Error("delta retention prune failed", "error", err)
		}
	}); err != nil {
		slog.Warn("failed to register retention job", "error", err)
	}

	sched.Start()
	defer sched.Stop()

	// ── HTTP server ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.New(cfg.HTTPAddr, database, sched, version)
	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("surehash stopped")
}

// app bundles the dependencies one hash-update (and optional migration)
// pass needs, shared between the "-once" path and the scheduled job.
type app struct {
	cfg    *config.Config
	store  *hashstore.Store
	retain *retention.Manager
	source treenode.SureTreeSource
}

// runOnce performs exactly one hash-update driver run against the
// configured latest sure tree, followed by a hash migration against the
// older generation when both paths are configured, writing the migrated
// shape out as a new weave delta.
func (a *app) runOnce(ctx context.Context, meter treenode.Meter) error {
	if a.cfg.SureTreePaths.Latest == "" {
		return errors.New("surehash: sure_tree_paths.latest is not configured")
	}

	runID := uuid.New().String()
	startedAt := time.Now()
	if err := a.store.InsertRunStarted(ctx, runID, a.cfg.Root, startedAt); err != nil {
		return fmt.Errorf("surehash: record run start: %w", err)
	}
	slog.Info("hash-update run starting", "run_id", runID, "root", a.cfg.Root)

	state, err := a.driveOnce(ctx, meter)
	if err != nil {
		if failErr := a.store.FailRun(ctx, runID, time.Now(), err); failErr != nil {
			slog.Error("record run failure", "run_id", runID, "error", failErr)
		}
		return fmt.Errorf("surehash: hash-update run %s: %w", runID, err)
	}

	if err := a.store.FinishRun(ctx, runID, time.Now(), state.TotalFiles, state.TotalOctets); err != nil {
		return fmt.Errorf("surehash: record run finish: %w", err)
	}
	slog.Info("hash-update run finished", "run_id", runID,
		"files", state.TotalFiles, "bytes", state.TotalOctets)

	if a.cfg.SureTreePaths.Older != "" {
		if err := a.migrateOnce(ctx); err != nil {
			return fmt.Errorf("surehash: migration after run %s: %w", runID, err)
		}
	}

	return nil
}

// driveOnce opens the configured latest sure tree and runs the
// hash-update driver (C8) over it once.
func (a *app) driveOnce(ctx context.Context, meter treenode.Meter) (*treenode.State, error) {
	reader, closer, err := a.source.Open(a.cfg.SureTreePaths.Latest)
	if err != nil {
		return nil, fmt.Errorf("open latest sure tree %q: %w", a.cfg.SureTreePaths.Latest, err)
	}
	defer closer.Close()

	memo := treenode.Memoize(treenode.NewStream(reader))

	// config.applyDefaults already resolves a zero channel_capacity to
	// 2*hash_workers (spec §4.7), so no fallback is needed here.
	state, err := hashpipe.Drive(ctx, a.store, a.cfg.Root, memo, hashpipe.Options{
		Workers:      a.cfg.HashWorkers,
		ChannelBound: a.cfg.ChannelCapacity,
		Meter:        meter,
	})
	if tm, ok := meter.(*progressmeter.TerminalMeter); ok {
		tm.Done()
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// migrateOnce co-walks the older and latest sure trees (C9) and writes
// the migrated, newer-shaped stream out as a fresh weave delta.
func (a *app) migrateOnce(ctx context.Context) error {
	olderReader, olderCloser, err := a.source.Open(a.cfg.SureTreePaths.Older)
	if err != nil {
		return fmt.Errorf("open older sure tree %q: %w", a.cfg.SureTreePaths.Older, err)
	}
	defer olderCloser.Close()

	newerReader, newerCloser, err := a.source.Open(a.cfg.SureTreePaths.Latest)
	if err != nil {
		return fmt.Errorf("open latest sure tree %q: %w", a.cfg.SureTreePaths.Latest, err)
	}
	defer newerCloser.Close()

	number, err := a.retain.NextDeltaNumber(ctx)
	if err != nil {
		return fmt.Errorf("determine next delta number: %w", err)
	}
	deltaPath := weave.DeltaPath(filepath.Dir(a.cfg.WeavePath), number)

	ls, err := weave.CreateWriter(deltaPath)
	if err != nil {
		return fmt.Errorf("create weave delta %q: %w", deltaPath, err)
	}

	runID := uuid.New().String()
	slog.Info("migration run starting", "run_id", runID, "delta", number)

	var lineCount int
	writer := weave.NewNodeWriter(ls)
	emit := func(n treenode.Node) error {
		lineCount++
		return writer.Write(n)
	}
	if err := migrate.Migrate(olderReader, newerReader, emit); err != nil {
		ls.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	if err := writer.Flush(); err != nil {
		ls.Close()
		return fmt.Errorf("flush weave delta %q: %w", deltaPath, err)
	}
	// Close (not defer) so the gzip trailer is on disk before Stat below
	// reads the delta's final size.
	if err := ls.Close(); err != nil {
		return fmt.Errorf("close weave delta %q: %w", deltaPath, err)
	}

	info, statErr := os.Stat(deltaPath)
	var size int64
	if statErr == nil {
		size = info.Size()
	}
	if err := a.retain.RecordDelta(ctx, number, size); err != nil {
		return fmt.Errorf("record delta %d: %w", number, err)
	}

	slog.Info("migration run finished", "run_id", runID, "delta", number, "nodes", lineCount, "bytes", size)
	return nil
}

// parseLogLevel converts a config string ("debug", "info", "warn", "error")
// to its slog.Level equivalent. Unknown values default to Info.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
