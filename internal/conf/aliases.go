package conf

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/DevRickLin/msg-forwarder/internal/biz/domain"
)

// GateModeAliases is the normalization table for forwardingGateMode values.
// Loaded from YAML:
//
//	always: [always, off, none]
//	gated: [gated, tesla_fleet]
type GateModeAliases struct {
	Always []string `yaml:"always"`
	Gated  []string `yaml:"gated"`
}

// DefaultGateModeAliases returns the built-in alias table
func DefaultGateModeAliases() *GateModeAliases {
	return &GateModeAliases{
		Always: []string{"always", "off", "none", "disabled", "ungated", "never", "false", "0"},
		Gated:  []string{"gated", "tesla_fleet", "tesla", "presence"},
	}
}

// LoadGateModeAliases loads the alias table from a YAML file.
// An empty path returns the defaults. Lists missing from the file keep
// their defaults. On error the defaults are returned with the error.
func LoadGateModeAliases(path string) (*GateModeAliases, error) {
	defaults := DefaultGateModeAliases()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("read %s: %w", path, err)
	}

	var table GateModeAliases
	if err := yaml.Unmarshal(data, &table); err != nil {
		return defaults, fmt.Errorf("parse %s: %w", path, err)
	}

	if len(table.Always) == 0 {
		table.Always = defaults.Always
	}
	if len(table.Gated) == 0 {
		table.Gated = defaults.Gated
	}
	return &table, nil
}

// Normalize maps a raw mode value to a gate mode. Unknown values collapse
// to GateModeAlways and report ok=false.
func (a *GateModeAliases) Normalize(raw string) (domain.GateMode, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	for _, alias := range a.Gated {
		if v == strings.ToLower(strings.TrimSpace(alias)) {
			return domain.GateModeGated, true
		}
	}
	for _, alias := range a.Always {
		if v == strings.ToLower(strings.TrimSpace(alias)) {
			return domain.GateModeAlways, true
		}
	}
	return domain.GateModeAlways, false
}
