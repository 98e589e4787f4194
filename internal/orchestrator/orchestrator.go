package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"jobwatch-engine/internal/config"
	"jobwatch-engine/internal/domain"
	"jobwatch-engine/internal/events"
	"jobwatch-engine/internal/ingest/ats"
	"jobwatch-engine/internal/reconcile"
	"jobwatch-engine/internal/store"
)

// Orchestrator drives one refresh pass: for every enabled scope it fetches a
// normalized batch through the registry, validates the fetch, reconciles it
// against the stored state inside one transaction, and finalizes the run row
// in that same transaction. Scopes are independent; a failure in one never
// touches another.
type Orchestrator struct {
	DB       *store.DB
	Registry *ats.Registry
	Hub      *events.Hub

	Workers            int
	ScopeTimeout       time.Duration
	ReconcileOnPartial bool
	Pacer              *Pacer

	locks *scopeLocks
	now   func() time.Time
}

func New(db *store.DB, reg *ats.Registry, hub *events.Hub, cfg config.Config) *Orchestrator {
	return &Orchestrator{
		DB:                 db,
		Registry:           reg,
		Hub:                hub,
		Workers:            cfg.Refresh.Workers,
		ScopeTimeout:       time.Duration(cfg.Refresh.ScopeTimeoutSeconds) * time.Second,
		ReconcileOnPartial: cfg.Refresh.ReconcileOnPartial,
		Pacer:              NewPacer(cfg.Refresh.Pacing.RequestsPerSec, cfg.Refresh.Pacing.Burst),
		locks:              newScopeLocks(),
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// ScopeResult is the in-memory summary of one scope's pass attempt.
type ScopeResult struct {
	Scope   domain.Scope
	RunID   string
	Status  string // run status, or "" when Skipped
	Counts  domain.RunCounts
	Skipped bool // lock contention: no pass started, no run row
	Err     error
}

// RunPass processes every enabled scope through a bounded worker pool.
// There is no ordering guarantee between scopes.
func (o *Orchestrator) RunPass(ctx context.Context, scopes []config.ScopeConfig) []ScopeResult {
	workers := o.Workers
	if workers <= 0 {
		workers = 1
	}

	var mu sync.Mutex
	var results []ScopeResult

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, sc := range scopes {
		if !sc.Enabled {
			continue
		}
		sc := sc
		g.Go(func() error {
			res := o.RunScope(gctx, sc)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// RunScope runs fetch -> validate -> reconcile -> finalize for one scope.
func (o *Orchestrator) RunScope(ctx context.Context, sc config.ScopeConfig) ScopeResult {
	scope := domain.Scope{ATSType: sc.ATSType, Company: sc.Company}
	res := ScopeResult{Scope: scope}

	key := scope.Key()
	if !o.locks.TryLock(key) {
		log.Printf("[orchestrator] %s: skipped, pass already running", key)
		res.Skipped = true
		res.Err = ErrLockHeld
		return res
	}
	defer o.locks.Unlock(key)

	timeout := o.ScopeTimeout
	if sc.TimeoutSeconds > 0 {
		timeout = time.Duration(sc.TimeoutSeconds) * time.Second
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The PENDING row commits before any work so a crash mid-pass is
	// visible; the startup sweep turns such rows into FAILED.
	runID, err := store.StartRun(sctx, o.DB.Pool, scope, o.now())
	if err != nil {
		res.Err = err
		return res
	}
	res.RunID = runID
	o.publish(events.RunStarted(runID, scope))

	fr, ferr := o.fetch(sctx, scope)
	if ferr != nil {
		detail := ferr.Error()
		if errors.Is(ferr, context.DeadlineExceeded) {
			detail = fmt.Sprintf("timeout after %s: %v", timeout, ferr)
		}
		return o.finalize(res, domain.RunCounts{}, domain.RunFailed, fr.Endpoint, detail, ferr)
	}

	counts := domain.RunCounts{Fetched: len(fr.Records)}

	if !fr.Complete && !o.ReconcileOnPartial {
		// Incomplete pagination would look like mass closure; keep the
		// stored state and record the partial outcome only.
		detail := fmt.Sprintf("%v; reconciliation skipped", ErrIncompleteFetch)
		return o.finalize(res, counts, domain.RunPartial, fr.Endpoint, detail, nil)
	}

	status := domain.RunSuccess
	if !fr.Complete {
		status = domain.RunPartial
	}

	rc, err := o.reconcileTx(sctx, scope, fr.Records, &counts, status, fr.Endpoint, runID)
	if err != nil {
		rerr := &ReconciliationError{Err: err}
		return o.finalize(res, counts, domain.RunFailed, fr.Endpoint, rerr.Error(), rerr)
	}

	res.Status = status
	res.Counts = rc
	o.publish(events.RunFinished(runID, scope, status, rc, ""))
	log.Printf("[orchestrator] %s: %s new=%d updated=%d unchanged=%d closed=%d",
		key, status, rc.New, rc.Updated, rc.Unchanged, rc.Closed)
	return res
}

func (o *Orchestrator) fetch(ctx context.Context, scope domain.Scope) (ats.FetchResult, error) {
	conn, ok := o.Registry.Lookup(scope.ATSType)
	if !ok {
		return ats.FetchResult{}, &FetchError{ATSType: scope.ATSType, Err: fmt.Errorf("no connector registered")}
	}

	if o.Pacer != nil {
		if err := o.Pacer.Wait(ctx, scope.ATSType); err != nil {
			return ats.FetchResult{}, &FetchError{ATSType: scope.ATSType, Err: err}
		}
	}

	fr, err := conn.Fetch(ctx, scope)
	if err != nil {
		return ats.FetchResult{Endpoint: fr.Endpoint}, &FetchError{ATSType: scope.ATSType, Err: err}
	}
	return fr, nil
}

// reconcileTx applies the delta and finalizes the run row in one
// transaction: either both commit or neither does.
func (o *Orchestrator) reconcileTx(ctx context.Context, scope domain.Scope, records []domain.NormalizedRecord, counts *domain.RunCounts, status, endpoint, runID string) (domain.RunCounts, error) {
	tx, err := o.DB.Pool.BeginTx(ctx, nil)
	if err != nil {
		return *counts, err
	}
	defer func() { _ = tx.Rollback() }()

	now := o.now()
	rc, err := reconcile.Reconcile(ctx, tx, scope, records, now)
	if err != nil {
		return *counts, err
	}

	counts.New, counts.Updated, counts.Unchanged, counts.Closed = rc.New, rc.Updated, rc.Unchanged, rc.Closed
	if err := store.FinishRun(ctx, tx, runID, *counts, status, endpoint, "", now); err != nil {
		return *counts, err
	}
	if err := tx.Commit(); err != nil {
		return *counts, err
	}
	return *counts, nil
}

// finalize records a non-success outcome. It runs on the pool, not a
// transaction: the run row must outlive whatever just failed.
func (o *Orchestrator) finalize(res ScopeResult, counts domain.RunCounts, status, endpoint, detail string, cause error) ScopeResult {
	res.Status = status
	res.Counts = counts
	res.Err = cause

	fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.FinishRun(fctx, o.DB.Pool, res.RunID, counts, status, endpoint, detail, o.now()); err != nil {
		log.Printf("[orchestrator] %s: finalize run %s failed: %v", res.Scope.Key(), res.RunID, err)
	}

	o.publish(events.RunFinished(res.RunID, res.Scope, status, counts, detail))
	log.Printf("[orchestrator] %s: %s (%s)", res.Scope.Key(), status, detail)
	return res
}

func (o *Orchestrator) publish(evt string) {
	if o.Hub != nil {
		o.Hub.Publish(evt)
	}
}
