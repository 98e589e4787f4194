package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"jobwatch-engine/internal/config"
	"jobwatch-engine/internal/domain"
	"jobwatch-engine/internal/events"
	"jobwatch-engine/internal/ingest/ats"
	"jobwatch-engine/internal/ingest/ats/snapshotfile"
	"jobwatch-engine/internal/orchestrator"
	"jobwatch-engine/internal/scheduler"
	"jobwatch-engine/internal/store"
)

func main() {
	once := flag.Bool("once", false, "run a single refresh pass and exit")
	cfgPath := flag.String("config", "", "config file path (default: <data-dir>/config.yml)")
	flag.Parse()

	// Engine data dir: use env if provided, else local folder.
	dataDir := os.Getenv("JOBWATCH_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir. Passes inside a process are serialized per
	// scope; the file lock stops a second process from racing the first.
	fl := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := fl.TryLock()
	if err != nil {
		log.Fatalf("engine lock: %v", err)
	}
	if !locked {
		log.Fatalf("another engine instance already holds %s", fl.Path())
	}
	defer func() { _ = fl.Unlock() }()

	userCfgPath := *cfgPath
	if userCfgPath == "" {
		defaultCfgPath := filepath.Join("config", "config.yml")
		userCfgPath, err = config.EnsureUserConfig(dataDir, defaultCfgPath)
		if err != nil {
			log.Fatalf("config bootstrap failed: %v", err)
		}
	}

	cfg, err := config.Load(userCfgPath)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	if err := config.OverlayScopes(&cfg, filepath.Join(dataDir, "scopes.yml")); err != nil {
		log.Fatalf("scopes overlay failed: %v", err)
	}

	cfg, validation := config.NormalizeAndValidate(cfg)
	for _, w := range validation.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if !validation.OK() {
		for _, e := range validation.Errors {
			log.Printf("[config] error: %s", e)
		}
		log.Fatal("config invalid")
	}

	dbPath := filepath.Join(dataDir, "jobwatch.db")
	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	// Runs left PENDING by a previous crash were never finalized.
	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	swept, err := store.SweepStaleRuns(startCtx, db.Pool, time.Now().UTC())
	cancel()
	if err != nil {
		log.Fatalf("stale run sweep failed: %v", err)
	}
	if swept > 0 {
		log.Printf("[engine] swept %d interrupted run(s) to FAILED", swept)
	}

	// Per-scope snapshot files under <data-dir>/snapshots/<ats>/<company>.json,
	// one connector per ATS. Scraper processes drop batches there.
	snapshotDir := filepath.Join(dataDir, "snapshots")
	registry := ats.NewRegistry()
	for _, atsType := range []string{domain.ATSKekaHR, domain.ATSDarwinBox, domain.ATSOracleORC, domain.ATSJoinCom} {
		if err := registry.Register(snapshotfile.New(atsType, snapshotDir)); err != nil {
			log.Fatalf("register connector %s: %v", atsType, err)
		}
	}

	hub := events.NewHub()
	go logEvents(hub)

	orch := orchestrator.New(db, registry, hub, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pass := func(ctx context.Context) error {
		results := orch.RunPass(ctx, cfg.Scopes)
		ok, failed, skipped := 0, 0, 0
		for _, r := range results {
			switch {
			case r.Skipped:
				skipped++
			case r.Status == domain.RunFailed:
				failed++
			default:
				ok++
			}
		}
		log.Printf("[engine] pass done scopes=%d ok=%d failed=%d skipped=%d", len(results), ok, failed, skipped)
		return nil
	}

	log.Printf("engine starting (db=%s scopes=%d workers=%d)", dbPath, len(cfg.Scopes), cfg.Refresh.Workers)

	if *once {
		_ = pass(ctx)
		return
	}

	interval := time.Duration(cfg.Refresh.IntervalSeconds) * time.Second
	scheduler.Every(ctx, interval, "refresh", pass)
}

func logEvents(hub *events.Hub) {
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)
	for evt := range ch {
		log.Printf("[event] %s", evt)
	}
}
