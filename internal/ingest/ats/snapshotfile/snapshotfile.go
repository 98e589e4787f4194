// Package snapshotfile is a Connector that reads a normalized-record batch
// from a JSON file on disk instead of a live ATS. Scraper processes (or a
// test harness) drop per-scope snapshot files into the data directory; the
// engine reconciles them like any other source.
package snapshotfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jobwatch-engine/internal/domain"
	"jobwatch-engine/internal/ingest/ats"
	"jobwatch-engine/internal/normalize"
)

type Connector struct {
	atsType string
	dir     string
}

// New returns a snapshot connector serving one ats_type out of
// <dir>/<ats_type>/<company-slug>.json.
func New(atsType, dir string) *Connector {
	return &Connector{atsType: atsType, dir: dir}
}

func (c *Connector) Type() string { return c.atsType }

func (c *Connector) Fetch(ctx context.Context, scope domain.Scope) (ats.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return ats.FetchResult{}, err
	}

	path := c.Path(scope)
	b, err := os.ReadFile(path)
	if err != nil {
		return ats.FetchResult{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var records []domain.NormalizedRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return ats.FetchResult{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}

	// Snapshot files may come from loosely-behaved scrapers; scrub the
	// fields the scope asserts and fold free-form values.
	out := records[:0]
	for _, r := range records {
		if strings.TrimSpace(r.ExternalID) == "" {
			continue
		}
		r.ATSType = scope.ATSType
		r.CompanyName = scope.Company
		r.Title = normalize.CleanText(r.Title)
		r.LocationText = normalize.Location(r.LocationText)
		r.RemoteType = normalize.RemoteType(r.RemoteType)
		out = append(out, r)
	}

	return ats.FetchResult{Records: out, Complete: true, Endpoint: path}, nil
}

// Path is where Fetch expects the snapshot for a scope.
func (c *Connector) Path(scope domain.Scope) string {
	return filepath.Join(c.dir, c.atsType, slug(scope.Company)+".json")
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '.':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
