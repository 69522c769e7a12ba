// Package tuning loads the balance constants shared by the kingdom domain.
package tuning

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/building"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/raid"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/resource"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/roster"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Rules groups every balance constant.
type Rules struct {
	Ledger    resource.Rules `yaml:"ledger"`
	Buildings building.Rules `yaml:"buildings"`
	Roster    roster.Rules   `yaml:"roster"`
	Raid      raid.Rules     `yaml:"raid"`
}

// Default returns the embedded rules.
func Default() (Rules, error) {
	return parse(defaultYAML, "default.yaml")
}

// Load reads rules from path, or the embedded defaults when path is empty.
func Load(path string) (Rules, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read tuning: %w", err)
	}
	return parse(raw, path)
}

func parse(raw []byte, name string) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return Rules{}, fmt.Errorf("%s: %w", name, err)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, fmt.Errorf("%s: %w", name, err)
	}
	return r, nil
}

// Validate checks every section.
func (r Rules) Validate() error {
	if err := r.Ledger.Validate(); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if err := r.Buildings.Validate(); err != nil {
		return fmt.Errorf("buildings: %w", err)
	}
	if err := r.Roster.Validate(); err != nil {
		return fmt.Errorf("roster: %w", err)
	}
	if err := r.Raid.Validate(); err != nil {
		return fmt.Errorf("raid: %w", err)
	}
	return nil
}
