package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// setting binds a user-facing key to a field of Settings.
type setting struct {
	get func(*Settings) string
	set func(*Settings, string) error
}

func stringSetting(field func(*Settings) *string) setting {
	return setting{
		get: func(s *Settings) string { return *field(s) },
		set: func(s *Settings, v string) error { *field(s) = v; return nil },
	}
}

func boolSetting(key string, field func(*Settings) *bool) setting {
	return setting{
		get: func(s *Settings) string { return strconv.FormatBool(*field(s)) },
		set: func(s *Settings, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid boolean value for %s: %s", key, v)
			}
			*field(s) = b
			return nil
		},
	}
}

func listSetting(field func(*Settings) *[]string) setting {
	return setting{
		get: func(s *Settings) string { return strings.Join(*field(s), ",") },
		set: func(s *Settings, v string) error {
			if v == "" {
				*field(s) = nil
				return nil
			}
			*field(s) = strings.Split(v, ",")
			return nil
		},
	}
}

var settings = map[string]setting{
	"caskroom_dir": stringSetting(func(s *Settings) *string { return &s.CaskroomDir }),
	"cache_dir":    stringSetting(func(s *Settings) *string { return &s.CacheDir }),
	"taps_dir":     stringSetting(func(s *Settings) *string { return &s.TapsDir }),
	"trash_dir":    stringSetting(func(s *Settings) *string { return &s.TrashDir }),
	"appdir":       stringSetting(func(s *Settings) *string { return &s.Dirs.AppDir }),
	"binarydir":    stringSetting(func(s *Settings) *string { return &s.Dirs.BinaryDir }),
	"fontdir":      stringSetting(func(s *Settings) *string { return &s.Dirs.FontDir }),
	"servicedir":   stringSetting(func(s *Settings) *string { return &s.Dirs.ServiceDir }),
	"prefpanedir":  stringSetting(func(s *Settings) *string { return &s.Dirs.PrefPaneDir }),
	"qlplugindir":  stringSetting(func(s *Settings) *string { return &s.Dirs.QLPluginDir }),
	"brew_path":    stringSetting(func(s *Settings) *string { return &s.BrewPath }),
	"output_format": stringSetting(func(s *Settings) *string {
		return &s.OutputFormat
	}),
	"log_level":   stringSetting(func(s *Settings) *string { return &s.LogLevel }),
	"require_sha": boolSetting("require_sha", func(s *Settings) *bool { return &s.RequireSHA }),
	"quarantine":  boolSetting("quarantine", func(s *Settings) *bool { return &s.Quarantine }),
	"no_binaries": boolSetting("no_binaries", func(s *Settings) *bool { return &s.NoBinaries }),
	"languages":   listSetting(func(s *Settings) *[]string { return &s.Languages }),
	"http_timeout": {
		get: func(s *Settings) string { return s.HTTPTimeout.String() },
		set: func(s *Settings, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid duration for http_timeout: %s", v)
			}
			s.HTTPTimeout = d
			return nil
		},
	},
	"max_concurrent_downloads": {
		get: func(s *Settings) string { return strconv.Itoa(s.MaxConcurrent) },
		set: func(s *Settings, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid number for max_concurrent_downloads: %s", v)
			}
			s.MaxConcurrent = n
			return nil
		},
	},
}

// Keys lists the settable configuration keys in order.
func Keys() []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SetValue sets a configuration value by key and validates the result.
func (c *Config) SetValue(key, value string) error {
	s, ok := settings[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	next := c.Settings
	if err := s.set(&next, value); err != nil {
		return err
	}
	candidate := Config{Settings: next}
	if err := candidate.Validate(); err != nil {
		return err
	}
	c.Settings = next
	return nil
}

// GetValue returns the value of key as a string.
func (c *Config) GetValue(key string) (string, error) {
	s, ok := settings[key]
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
	return s.get(&c.Settings), nil
}

// ToMap renders every settable key. This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string, len(settings))
	for k, s := range settings {
		result[k] = s.get(&c.Settings)
	}
	return result
}
