package model

import (
	"encoding/json"
	"maps"
)

// Directory keys understood by the per-cask config.
const (
	DirApp      = "appdir"
	DirBinary   = "binarydir"
	DirFont     = "fontdir"
	DirService  = "servicedir"
	DirPrefPane = "prefpanedir"
	DirQLPlugin = "qlplugindir"
)

// Config holds the install locations a cask was evaluated against.
// Explicit settings come from the user; Env from the environment; Default
// from the application config.
type Config struct {
	Default   map[string]string `json:"default"`
	Env       map[string]string `json:"env"`
	Explicit  map[string]string `json:"explicit"`
	Languages []string          `json:"languages,omitempty"`
}

// NewConfig returns a config with the given defaults and no overrides.
func NewConfig(defaults map[string]string) *Config {
	return &Config{
		Default:  maps.Clone(defaults),
		Env:      map[string]string{},
		Explicit: map[string]string{},
	}
}

// Dir resolves a directory key: explicit wins over env, env over default.
func (c *Config) Dir(key string) string {
	if c == nil {
		return ""
	}
	if v, ok := c.Explicit[key]; ok && v != "" {
		return v
	}
	if v, ok := c.Env[key]; ok && v != "" {
		return v
	}
	return c.Default[key]
}

// Merge returns a copy of c in which explicit settings from old take
// precedence. Defaults and env come from c.
func (c *Config) Merge(old *Config) *Config {
	merged := c.Clone()
	if old == nil {
		return merged
	}
	for k, v := range old.Explicit {
		merged.Explicit[k] = v
	}
	if len(merged.Languages) == 0 {
		merged.Languages = append([]string(nil), old.Languages...)
	}
	return merged
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return NewConfig(nil)
	}
	out := &Config{
		Default:   maps.Clone(c.Default),
		Env:       maps.Clone(c.Env),
		Explicit:  maps.Clone(c.Explicit),
		Languages: append([]string(nil), c.Languages...),
	}
	if out.Default == nil {
		out.Default = map[string]string{}
	}
	if out.Env == nil {
		out.Env = map[string]string{}
	}
	if out.Explicit == nil {
		out.Explicit = map[string]string{}
	}
	return out
}

// MarshalIndent renders the config as persisted in config.json.
func (c *Config) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ParseConfig decodes a persisted config.json.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}
