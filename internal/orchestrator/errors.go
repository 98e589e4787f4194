package orchestrator

import (
	"errors"
	"fmt"
)

// ErrLockHeld means another pass for the same scope is still running. The
// attempt is skipped and logged; it never produces a run_logs row because no
// pass started.
var ErrLockHeld = errors.New("scope pass already running")

// ErrIncompleteFetch marks an adapter result flagged Complete=false when the
// engine is configured to skip reconciliation on partial fetches.
var ErrIncompleteFetch = errors.New("incomplete fetch")

// FetchError wraps an adapter failure. The reconciler is never invoked for
// the scope: an empty record set from a broken fetch must not close jobs.
type FetchError struct {
	ATSType string
	Err     error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.ATSType, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// ReconciliationError wraps a persistence failure mid-transaction; the
// scope's transaction was rolled back and StoredJob is at its pre-pass state.
type ReconciliationError struct {
	Err error
}

func (e *ReconciliationError) Error() string { return fmt.Sprintf("reconcile: %v", e.Err) }
func (e *ReconciliationError) Unwrap() error { return e.Err }
