package ats

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"jobwatch-engine/internal/domain"
)

// FetchResult is one adapter pass for one scope. Complete=false flags a
// truncated fetch (pagination cut off, partial page set); the orchestrator
// must never reconcile an incomplete snapshot by default, or jobs the
// adapter simply failed to reach would be mass-closed.
type FetchResult struct {
	Records  []domain.NormalizedRecord
	Complete bool
	Endpoint string // endpoint actually used, recorded on the run row
}

// Connector is implemented once per ATS (KekaHR, DarwinBox, Oracle ORC,
// Join.com). The engine core depends only on this contract, never on how a
// given source is fetched.
type Connector interface {
	Type() string
	Fetch(ctx context.Context, scope domain.Scope) (FetchResult, error)
}

// Registry resolves ats_type -> Connector for the orchestrator.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Connector
}

func NewRegistry() *Registry {
	return &Registry{m: make(map[string]Connector)}
}

func (r *Registry) Register(c Connector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := c.Type()
	if t == "" {
		return fmt.Errorf("connector has empty type")
	}
	if _, dup := r.m[t]; dup {
		return fmt.Errorf("connector %q already registered", t)
	}
	r.m[t] = c
	return nil
}

func (r *Registry) Lookup(atsType string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.m[atsType]
	return c, ok
}

func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.m))
	for t := range r.m {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
