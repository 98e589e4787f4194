package config

import (
	"fmt"
	"strings"

	"jobwatch-engine/internal/domain"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a cleaned copy of the config plus everything
// wrong or suspicious about it. Scope entries are trimmed and de-duplicated
// on (ats_type, company); later duplicates are dropped with a warning.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	// ---- Scope normalization ----

	seen := map[string]bool{}
	var scopes []ScopeConfig
	for i, s := range cfg.Scopes {
		s.ATSType = strings.ToLower(strings.TrimSpace(s.ATSType))
		s.Company = strings.TrimSpace(s.Company)

		if s.ATSType == "" || s.Company == "" {
			res.addErr("scopes[%d]: ats_type and company are both required", i)
			continue
		}
		if !domain.KnownATS(s.ATSType) {
			res.addErr("scopes[%d]: unknown ats_type %q", i, s.ATSType)
			continue
		}
		key := s.ATSType + ":" + strings.ToLower(s.Company)
		if seen[key] {
			res.addWarn("scopes[%d]: duplicate scope %s/%s dropped", i, s.ATSType, s.Company)
			continue
		}
		seen[key] = true
		if s.TimeoutSeconds < 0 {
			res.addErr("scopes[%d]: timeout_seconds must be >= 0", i)
			continue
		}
		scopes = append(scopes, s)
	}
	out.Scopes = scopes

	// ---- Validation rules ----

	if out.Refresh.IntervalSeconds <= 0 {
		res.addErr("refresh.interval_seconds must be > 0")
	} else if out.Refresh.IntervalSeconds < 60 {
		res.addWarn("refresh.interval_seconds is very low (%d) and may hammer sources.", out.Refresh.IntervalSeconds)
	}

	if out.Refresh.Workers <= 0 {
		res.addErr("refresh.workers must be > 0")
	}
	if out.Refresh.ScopeTimeoutSeconds <= 0 {
		res.addErr("refresh.scope_timeout_seconds must be > 0")
	}

	if out.Refresh.Pacing.RequestsPerSec <= 0 {
		res.addErr("refresh.pacing.requests_per_sec must be > 0")
	}
	if out.Refresh.Pacing.Burst <= 0 {
		res.addErr("refresh.pacing.burst must be > 0")
	}

	enabled := 0
	for _, s := range out.Scopes {
		if s.Enabled {
			enabled++
		}
	}
	if len(out.Scopes) > 0 && enabled == 0 {
		res.addWarn("no scope is enabled; refresh passes will do nothing.")
	}

	return out, res
}
