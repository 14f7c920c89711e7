package consistency

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// RulesFile is the root of a YAML custom rule document.
type RulesFile struct {
	Rules []domain.CustomRule `yaml:"rules"`
}

// ParseRules decodes a YAML rule document and validates every rule.
// Rules default to enabled unless the document says otherwise.
func ParseRules(data []byte) ([]domain.CustomRule, error) {
	var raw struct {
		Rules []yaml.Node `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("rules unmarshal: %w", err)
	}

	rules := make([]domain.CustomRule, 0, len(raw.Rules))
	for i := range raw.Rules {
		rule := domain.CustomRule{Enabled: true}
		if err := raw.Rules[i].Decode(&rule); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.ID, err)
		}
		if !IsKnownMetric(rule.Metric) {
			return nil, fmt.Errorf("rule %q: unknown metric %q: %w", rule.ID, rule.Metric, domain.ErrInvalidInput)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// LoadRules reads and parses a YAML rule file. A missing file yields no rules.
func LoadRules(path string) ([]domain.CustomRule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("rules read: %w", err)
	}
	return ParseRules(data)
}

// LoadInput reads a ConsistencyInput from a .json, .yaml or .yml file.
// Dates must be RFC 3339 timestamps.
func LoadInput(path string) (*domain.ConsistencyInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("input read: %w", err)
	}
	var in domain.ConsistencyInput
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &in)
	default:
		err = yaml.Unmarshal(data, &in)
	}
	if err != nil {
		return nil, fmt.Errorf("input unmarshal: %w", err)
	}
	return &in, nil
}
