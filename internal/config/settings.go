package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings is the key→string lookup the gateway reads its configuration from.
// The hosting runtime decides where values come from; the gateway only ever
// asks for keys by name.
type Settings interface {
	GetSetting(key string) string
}

// EnvSettings resolves keys from process environment variables, with an
// optional prefix applied before lookup.
type EnvSettings struct {
	Prefix string
}

// GetSetting implements Settings.
func (e EnvSettings) GetSetting(key string) string {
	return strings.TrimSpace(os.Getenv(e.Prefix + key))
}

// MapSettings resolves keys from a static map. Used by tests and embedders
// that already hold configuration in memory.
type MapSettings map[string]string

// GetSetting implements Settings.
func (m MapSettings) GetSetting(key string) string {
	return strings.TrimSpace(m[key])
}

// Layered tries each source in order and returns the first non-empty value.
type Layered []Settings

// GetSetting implements Settings.
func (l Layered) GetSetting(key string) string {
	for _, source := range l {
		if source == nil {
			continue
		}
		if value := source.GetSetting(key); value != "" {
			return value
		}
	}
	return ""
}

// LoadFileSettings parses a flat YAML map of settings, the same shape the
// deployment tooling writes.
func LoadFileSettings(path string) (MapSettings, error) {
	if strings.TrimSpace(path) == "" {
		return MapSettings{}, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(content, &values); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}
	return MapSettings(values), nil
}
