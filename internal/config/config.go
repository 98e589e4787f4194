// engine/internal/config/config.go
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ScopeConfig is one configured (ats_type, company) pair to refresh.
type ScopeConfig struct {
	ATSType string `yaml:"ats_type"`
	Company string `yaml:"company"`
	Enabled bool   `yaml:"enabled"`

	// Per-scope override; 0 falls back to refresh.scope_timeout_seconds.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type Config struct {
	App struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Refresh struct {
		IntervalSeconds     int  `yaml:"interval_seconds"`
		Workers             int  `yaml:"workers"`
		ScopeTimeoutSeconds int  `yaml:"scope_timeout_seconds"`
		ReconcileOnPartial  bool `yaml:"reconcile_on_partial"`

		Pacing struct {
			RequestsPerSec float64 `yaml:"requests_per_sec"`
			Burst          int     `yaml:"burst"`
		} `yaml:"pacing"`
	} `yaml:"refresh"`

	Scopes []ScopeConfig `yaml:"scopes"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
