package build

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/SigNoz/pcparts-store/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Rule kinds
const (
	KindIntersects    = "intersects"
	KindMax           = "max"
	KindPowerHeadroom = "power_headroom"
)

// Attribute points at one specification key of the component in a slot
type Attribute struct {
	Slot models.Category `yaml:"slot"`
	Key  string          `yaml:"key"`
}

// Rule is one attribute-matching compatibility heuristic
type Rule struct {
	Name    string    `yaml:"name"`
	Kind    string    `yaml:"kind"`
	Left    Attribute `yaml:"left"`
	Right   Attribute `yaml:"right"`
	Message string    `yaml:"message"`
}

// PerformanceEntry awards points to components whose name contains Pattern
type PerformanceEntry struct {
	Pattern     string `yaml:"pattern"`
	Gaming      int    `yaml:"gaming"`
	Workstation int    `yaml:"workstation"`
	Streaming   int    `yaml:"streaming"`
	Watts       int    `yaml:"watts"`
}

// RuleSet is the data-driven configuration of the aggregator
type RuleSet struct {
	BaseLoadWatts int                `yaml:"baseLoadWatts"`
	SafetyMargin  float64            `yaml:"safetyMargin"`
	Rules         []Rule             `yaml:"rules"`
	Performance   []PerformanceEntry `yaml:"performance"`
}

// DefaultRules returns the embedded rule set
func DefaultRules() *RuleSet {
	rs, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded build rules are invalid: %v", err))
	}
	return rs
}

// LoadRules reads a rule set from path, or returns the embedded one when path is empty
func LoadRules(path string) (*RuleSet, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read build rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a YAML rule set
func ParseRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse build rules: %w", err)
	}
	if rs.SafetyMargin == 0 {
		rs.SafetyMargin = 1
	}
	if rs.SafetyMargin < 1 {
		return nil, fmt.Errorf("safetyMargin must be at least 1, got %v", rs.SafetyMargin)
	}
	if rs.BaseLoadWatts < 0 {
		return nil, fmt.Errorf("baseLoadWatts must not be negative")
	}

	for i, r := range rs.Rules {
		if r.Name == "" {
			return nil, fmt.Errorf("rule %d: name is required", i)
		}
		if !r.Left.Slot.Valid() || r.Left.Key == "" {
			return nil, fmt.Errorf("rule %s: invalid left attribute", r.Name)
		}
		switch r.Kind {
		case KindIntersects, KindMax:
			if !r.Right.Slot.Valid() || r.Right.Key == "" {
				return nil, fmt.Errorf("rule %s: invalid right attribute", r.Name)
			}
		case KindPowerHeadroom:
		default:
			return nil, fmt.Errorf("rule %s: unknown kind %q", r.Name, r.Kind)
		}
		if r.Message == "" {
			rs.Rules[i].Message = r.Name + " check failed"
		}
	}

	for i, p := range rs.Performance {
		if strings.TrimSpace(p.Pattern) == "" {
			return nil, fmt.Errorf("performance entry %d: pattern is required", i)
		}
		rs.Performance[i].Pattern = strings.ToLower(p.Pattern)
	}
	return &rs, nil
}
