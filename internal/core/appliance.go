package core

import (
	"fmt"
	"regexp"
)

// DefaultAppliancePattern matches the replication vendor's infrastructure
// appliances: a fixed prefix followed by a numeric id. The convention is an
// operational policy, so it can be overridden in configuration.
const DefaultAppliancePattern = `^Z-VRA-\d+$`

// ApplianceMatcher decides whether a VM name belongs to a replication
// infrastructure appliance. Appliances are never treated as relocatable
// workloads; they are only ever shut down.
type ApplianceMatcher struct {
	re *regexp.Regexp
}

// NewApplianceMatcher compiles a matcher from pattern. An empty pattern
// falls back to DefaultAppliancePattern.
func NewApplianceMatcher(pattern string) (*ApplianceMatcher, error) {
	if pattern == "" {
		pattern = DefaultAppliancePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile appliance pattern: %w", err)
	}
	return &ApplianceMatcher{re: re}, nil
}

// Match reports whether name identifies an infrastructure appliance.
func (m *ApplianceMatcher) Match(name string) bool {
	return m.re.MatchString(name)
}
