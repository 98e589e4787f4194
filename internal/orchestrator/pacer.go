package orchestrator

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Pacer rate-limits fetches per ATS so a pass over many scopes of the same
// source does not hammer one tenant host.
type Pacer struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

func NewPacer(reqPerSec float64, burst int) *Pacer {
	return &Pacer{
		m: make(map[string]*rate.Limiter),
		r: rate.Limit(reqPerSec),
		b: burst,
	}
}

func (p *Pacer) limiterFor(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if lim, ok := p.m[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(p.r, p.b)
	p.m[key] = lim
	return lim
}

func (p *Pacer) Wait(ctx context.Context, atsType string) error {
	if atsType == "" {
		atsType = "_"
	}
	return p.limiterFor(atsType).Wait(ctx)
}
