package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobwatch-engine/internal/config"
	"jobwatch-engine/internal/domain"
	"jobwatch-engine/internal/events"
	"jobwatch-engine/internal/ingest/ats"
	"jobwatch-engine/internal/store"
)

type fakeConnector struct {
	typ   string
	fetch func(ctx context.Context, scope domain.Scope) (ats.FetchResult, error)
}

func (f *fakeConnector) Type() string { return f.typ }
func (f *fakeConnector) Fetch(ctx context.Context, scope domain.Scope) (ats.FetchResult, error) {
	return f.fetch(ctx, scope)
}

func record(scope domain.Scope, id, title string) domain.NormalizedRecord {
	return domain.NormalizedRecord{
		ExternalID:  id,
		ATSType:     scope.ATSType,
		CompanyName: scope.Company,
		Title:       title,
		ApplyURL:    "https://example.com/" + id,
		SourceURL:   "https://example.com/" + id,
	}
}

func newTestOrchestrator(t *testing.T, conns ...ats.Connector) *Orchestrator {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))

	reg := ats.NewRegistry()
	for _, c := range conns {
		require.NoError(t, reg.Register(c))
	}

	return &Orchestrator{
		DB:           db,
		Registry:     reg,
		Hub:          events.NewHub(),
		Workers:      2,
		ScopeTimeout: 5 * time.Second,
		Pacer:        NewPacer(1000, 1000),
		locks:        newScopeLocks(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func scopeCfg(atsType, company string) config.ScopeConfig {
	return config.ScopeConfig{ATSType: atsType, Company: company, Enabled: true}
}

var acme = domain.Scope{ATSType: domain.ATSKekaHR, Company: "Acme"}

func TestRunScopeSuccess(t *testing.T) {
	conn := &fakeConnector{typ: domain.ATSKekaHR, fetch: func(_ context.Context, s domain.Scope) (ats.FetchResult, error) {
		return ats.FetchResult{
			Records:  []domain.NormalizedRecord{record(s, "A1", "SRE"), record(s, "A2", "SWE")},
			Complete: true,
			Endpoint: "https://acme.keka.com/api/embedjobs",
		}, nil
	}}
	o := newTestOrchestrator(t, conn)

	res := o.RunScope(context.Background(), scopeCfg(acme.ATSType, acme.Company))
	require.NoError(t, res.Err)
	assert.Equal(t, domain.RunSuccess, res.Status)
	assert.Equal(t, domain.RunCounts{Fetched: 2, New: 2}, res.Counts)

	run, err := store.GetRun(context.Background(), o.DB.Pool, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunSuccess, run.Status)
	assert.Equal(t, res.Counts, run.Counts)
	assert.Equal(t, "https://acme.keka.com/api/embedjobs", run.Endpoint)

	open, err := store.CountJobsByStatus(context.Background(), o.DB.Pool, acme, domain.JobOpen)
	require.NoError(t, err)
	assert.Equal(t, 2, open)
}

func TestRunScopeFetchErrorGuardsMassClose(t *testing.T) {
	failing := false
	conn := &fakeConnector{typ: domain.ATSKekaHR, fetch: func(_ context.Context, s domain.Scope) (ats.FetchResult, error) {
		if failing {
			return ats.FetchResult{}, errors.New("connection refused")
		}
		return ats.FetchResult{Records: []domain.NormalizedRecord{record(s, "A1", "SRE")}, Complete: true}, nil
	}}
	o := newTestOrchestrator(t, conn)
	sc := scopeCfg(acme.ATSType, acme.Company)

	first := o.RunScope(context.Background(), sc)
	require.Equal(t, domain.RunSuccess, first.Status)

	failing = true
	res := o.RunScope(context.Background(), sc)
	assert.Equal(t, domain.RunFailed, res.Status)
	var fe *FetchError
	require.ErrorAs(t, res.Err, &fe)

	run, err := store.GetRun(context.Background(), o.DB.Pool, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Contains(t, run.ErrorDetail, "connection refused")

	// A1 must still be OPEN: the reconciler was never invoked.
	open, err := store.CountJobsByStatus(context.Background(), o.DB.Pool, acme, domain.JobOpen)
	require.NoError(t, err)
	assert.Equal(t, 1, open)
}

func TestRunScopeEmptyCompleteFetchClosesAll(t *testing.T) {
	empty := false
	conn := &fakeConnector{typ: domain.ATSKekaHR, fetch: func(_ context.Context, s domain.Scope) (ats.FetchResult, error) {
		if empty {
			return ats.FetchResult{Complete: true}, nil
		}
		return ats.FetchResult{
			Records:  []domain.NormalizedRecord{record(s, "A1", "SRE"), record(s, "A2", "SWE")},
			Complete: true,
		}, nil
	}}
	o := newTestOrchestrator(t, conn)
	sc := scopeCfg(acme.ATSType, acme.Company)

	o.RunScope(context.Background(), sc)
	empty = true
	res := o.RunScope(context.Background(), sc)
	require.Equal(t, domain.RunSuccess, res.Status)
	assert.Equal(t, 2, res.Counts.Closed)

	open, err := store.CountJobsByStatus(context.Background(), o.DB.Pool, acme, domain.JobOpen)
	require.NoError(t, err)
	assert.Equal(t, 0, open)
}

func TestRunScopePartialSkipsReconciliation(t *testing.T) {
	partial := false
	conn := &fakeConnector{typ: domain.ATSKekaHR, fetch: func(_ context.Context, s domain.Scope) (ats.FetchResult, error) {
		if partial {
			// pagination cut off: only one of two jobs came back
			return ats.FetchResult{Records: []domain.NormalizedRecord{record(s, "A1", "SRE")}, Complete: false}, nil
		}
		return ats.FetchResult{
			Records:  []domain.NormalizedRecord{record(s, "A1", "SRE"), record(s, "A2", "SWE")},
			Complete: true,
		}, nil
	}}
	o := newTestOrchestrator(t, conn)
	sc := scopeCfg(acme.ATSType, acme.Company)

	o.RunScope(context.Background(), sc)
	partial = true
	res := o.RunScope(context.Background(), sc)
	assert.Equal(t, domain.RunPartial, res.Status)
	assert.Equal(t, domain.RunCounts{Fetched: 1}, res.Counts)

	run, err := store.GetRun(context.Background(), o.DB.Pool, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunPartial, run.Status)
	assert.Contains(t, run.ErrorDetail, "reconciliation skipped")

	// nothing was closed by the truncated snapshot
	open, err := store.CountJobsByStatus(context.Background(), o.DB.Pool, acme, domain.JobOpen)
	require.NoError(t, err)
	assert.Equal(t, 2, open)
}

func TestRunScopePartialReconcilesWhenConfigured(t *testing.T) {
	conn := &fakeConnector{typ: domain.ATSKekaHR, fetch: func(_ context.Context, s domain.Scope) (ats.FetchResult, error) {
		return ats.FetchResult{Records: []domain.NormalizedRecord{record(s, "A1", "SRE")}, Complete: false}, nil
	}}
	o := newTestOrchestrator(t, conn)
	o.ReconcileOnPartial = true

	res := o.RunScope(context.Background(), scopeCfg(acme.ATSType, acme.Company))
	assert.Equal(t, domain.RunPartial, res.Status)
	assert.Equal(t, domain.RunCounts{Fetched: 1, New: 1}, res.Counts)
}

func TestRunScopeTimeout(t *testing.T) {
	conn := &fakeConnector{typ: domain.ATSKekaHR, fetch: func(ctx context.Context, _ domain.Scope) (ats.FetchResult, error) {
		<-ctx.Done()
		return ats.FetchResult{}, ctx.Err()
	}}
	o := newTestOrchestrator(t, conn)
	o.ScopeTimeout = 50 * time.Millisecond

	res := o.RunScope(context.Background(), scopeCfg(acme.ATSType, acme.Company))
	assert.Equal(t, domain.RunFailed, res.Status)

	run, err := store.GetRun(context.Background(), o.DB.Pool, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Contains(t, run.ErrorDetail, "timeout")
}

func TestRunScopeUnknownConnectorFails(t *testing.T) {
	o := newTestOrchestrator(t)
	res := o.RunScope(context.Background(), scopeCfg(domain.ATSJoinCom, "Acme"))
	assert.Equal(t, domain.RunFailed, res.Status)

	run, err := store.GetRun(context.Background(), o.DB.Pool, res.RunID)
	require.NoError(t, err)
	assert.Contains(t, run.ErrorDetail, "no connector registered")
}

func TestConcurrentScopePassSkipped(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	conn := &fakeConnector{typ: domain.ATSKekaHR, fetch: func(_ context.Context, _ domain.Scope) (ats.FetchResult, error) {
		close(started)
		<-block
		return ats.FetchResult{Complete: true}, nil
	}}
	o := newTestOrchestrator(t, conn)
	sc := scopeCfg(acme.ATSType, acme.Company)

	var wg sync.WaitGroup
	wg.Add(1)
	var first ScopeResult
	go func() {
		defer wg.Done()
		first = o.RunScope(context.Background(), sc)
	}()

	<-started
	second := o.RunScope(context.Background(), sc)
	assert.True(t, second.Skipped)
	assert.ErrorIs(t, second.Err, ErrLockHeld)
	assert.Empty(t, second.RunID, "a skipped pass must not create a run row")

	close(block)
	wg.Wait()
	require.NoError(t, first.Err)

	// exactly one run row for the scope
	runs, err := store.ListRuns(context.Background(), o.DB.Pool, store.ListRunsOpts{ATSType: acme.ATSType, Company: acme.Company})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunPassFansOutAcrossScopes(t *testing.T) {
	keka := &fakeConnector{typ: domain.ATSKekaHR, fetch: func(_ context.Context, s domain.Scope) (ats.FetchResult, error) {
		return ats.FetchResult{Records: []domain.NormalizedRecord{record(s, "K1", "SRE")}, Complete: true}, nil
	}}
	darwin := &fakeConnector{typ: domain.ATSDarwinBox, fetch: func(_ context.Context, _ domain.Scope) (ats.FetchResult, error) {
		return ats.FetchResult{}, errors.New("auth expired")
	}}
	o := newTestOrchestrator(t, keka, darwin)

	results := o.RunPass(context.Background(), []config.ScopeConfig{
		scopeCfg(domain.ATSKekaHR, "Acme"),
		scopeCfg(domain.ATSDarwinBox, "Globex"),
		{ATSType: domain.ATSJoinCom, Company: "Disabled", Enabled: false},
	})
	require.Len(t, results, 2, "disabled scopes are not attempted")

	byATS := map[string]ScopeResult{}
	for _, r := range results {
		byATS[r.Scope.ATSType] = r
	}
	assert.Equal(t, domain.RunSuccess, byATS[domain.ATSKekaHR].Status)
	assert.Equal(t, domain.RunFailed, byATS[domain.ATSDarwinBox].Status)

	// the darwinbox failure did not leak into the kekahr scope
	open, err := store.CountJobsByStatus(context.Background(), o.DB.Pool, domain.Scope{ATSType: domain.ATSKekaHR, Company: "Acme"}, domain.JobOpen)
	require.NoError(t, err)
	assert.Equal(t, 1, open)
}

func TestRunScopePublishesEvents(t *testing.T) {
	conn := &fakeConnector{typ: domain.ATSKekaHR, fetch: func(_ context.Context, s domain.Scope) (ats.FetchResult, error) {
		return ats.FetchResult{Records: []domain.NormalizedRecord{record(s, "A1", "SRE")}, Complete: true}, nil
	}}
	o := newTestOrchestrator(t, conn)
	ch := o.Hub.Subscribe()
	defer o.Hub.Unsubscribe(ch)

	res := o.RunScope(context.Background(), scopeCfg(acme.ATSType, acme.Company))
	require.Equal(t, domain.RunSuccess, res.Status)

	startEvt := <-ch
	assert.Contains(t, startEvt, events.TypeRunStarted)
	assert.Contains(t, startEvt, res.RunID)
	finishEvt := <-ch
	assert.Contains(t, finishEvt, events.TypeRunFinished)
	assert.Contains(t, finishEvt, domain.RunSuccess)
}
