// config/overlay.go
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ScopesFile is an optional standalone scopes.yml so the watched-company
// list can be edited (or generated) without touching the main config.
type ScopesFile struct {
	Scopes []ScopeConfig `yaml:"scopes"`
}

// OverlayScopes replaces cfg.Scopes from scopesPath when the file exists
// and lists at least one scope.
func OverlayScopes(cfg *Config, scopesPath string) error {
	b, err := os.ReadFile(scopesPath)
	if err != nil {
		// Missing scopes file should not kill startup
		return nil
	}

	var sf ScopesFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return err
	}

	if len(sf.Scopes) > 0 {
		cfg.Scopes = sf.Scopes
	}
	return nil
}
