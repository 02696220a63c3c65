// Package config provides configuration management for brewcask.
// Settings are layered: built-in defaults first, then the YAML config file,
// then BREWCASK_* environment variables. The resolved values decide where
// casks are staged, cached and activated.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/glorpus-work/brewcask/pkg/errors"
	"github.com/glorpus-work/brewcask/pkg/fsutil"
	"github.com/glorpus-work/brewcask/pkg/model"
	"github.com/glorpus-work/brewcask/pkg/platform"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings"`
}

// PlatformConfig overrides the detected host.
type PlatformConfig struct {
	// Arch overrides the host architecture ("intel" or "arm64").
	Arch string `yaml:"arch,omitempty"`
	// MacOSVersion overrides the detected macOS release, e.g. "14.2".
	MacOSVersion string `yaml:"macos_version,omitempty"`
}

// Dirs are the default targets of activated artifacts.
type Dirs struct {
	AppDir      string `yaml:"appdir"`
	BinaryDir   string `yaml:"binarydir"`
	FontDir     string `yaml:"fontdir"`
	ServiceDir  string `yaml:"servicedir"`
	PrefPaneDir string `yaml:"prefpanedir"`
	QLPluginDir string `yaml:"qlplugindir"`
}

// Settings represents general application settings.
type Settings struct {
	// Storage
	CaskroomDir string `yaml:"caskroom_dir"`
	CacheDir    string `yaml:"cache_dir"`
	TapsDir     string `yaml:"taps_dir"`
	TrashDir    string `yaml:"trash_dir"`

	Dirs Dirs `yaml:"dirs"`

	// Network settings
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	MaxConcurrent int           `yaml:"max_concurrent_downloads"`

	// GitHubToken authenticates downloads from GitHub.
	GitHubToken string `yaml:"github_api_token,omitempty"`

	// Install policy
	RequireSHA bool     `yaml:"require_sha"`
	Quarantine bool     `yaml:"quarantine"`
	NoBinaries bool     `yaml:"no_binaries"`
	Languages  []string `yaml:"languages,omitempty"`

	// External tools
	BrewPath         string   `yaml:"brew_path"`
	AnalyticsCommand []string `yaml:"analytics_command,omitempty"`

	Platform PlatformConfig `yaml:"platform,omitempty"`

	// Output settings
	OutputFormat string `yaml:"output_format"` // text, json
	LogLevel     string `yaml:"log_level"`     // error, warn, info, debug
}

// Default configuration values.
const (
	// DefaultHTTPTimeout is the default timeout for one download.
	DefaultHTTPTimeout = 10 * time.Minute

	// DefaultMaxConcurrent is the default number of parallel prefetches.
	DefaultMaxConcurrent = 4

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "BREWCASK_"

	appName = "brewcask"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	home := xdg.Home
	binDir := "/usr/local/bin"
	if runtime.GOARCH == "arm64" {
		binDir = "/opt/homebrew/bin"
	}
	return &Config{
		Settings: Settings{
			CaskroomDir: filepath.Join(xdg.DataHome, appName, "Caskroom"),
			CacheDir:    filepath.Join(xdg.CacheHome, appName),
			TapsDir:     filepath.Join(xdg.DataHome, appName, "taps"),
			TrashDir:    filepath.Join(home, ".Trash"),
			Dirs: Dirs{
				AppDir:      "/Applications",
				BinaryDir:   binDir,
				FontDir:     filepath.Join(home, "Library", "Fonts"),
				ServiceDir:  filepath.Join(home, "Library", "Services"),
				PrefPaneDir: filepath.Join(home, "Library", "PreferencePanes"),
				QLPluginDir: filepath.Join(home, "Library", "QuickLook"),
			},
			HTTPTimeout:   DefaultHTTPTimeout,
			MaxConcurrent: DefaultMaxConcurrent,
			Quarantine:    true,
			BrewPath:      "brew",
			OutputFormat:  "text",
			LogLevel:      "info",
		},
	}
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// LoadConfig loads configuration from path. A missing file leaves the
// defaults in place; environment variables apply either way.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaultValues(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}
	if fsutil.Exists(absPath) {
		if err := k.Load(file.Provider(absPath), yaml.Parser()); err != nil {
			return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
		}
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment")
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}
	cfg.expandHome()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}
	return &cfg, nil
}

// SaveConfig saves configuration to a file.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}
	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	data, err := c.ToYAML()
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(absPath, data, fsutil.FileModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	var b strings.Builder
	enc := yamlv3.NewEncoder(&b)
	enc.SetIndent(YAMLIndent)
	if err := enc.Encode(c); err != nil {
		return nil, errors.Wrap(errors.ErrConfigMarshal, err.Error())
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigMarshal, err.Error())
	}
	return []byte(b.String()), nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	s := c.Settings
	if s.HTTPTimeout < 0 {
		return errors.ErrNegativeTimeout
	}
	if s.MaxConcurrent < 1 {
		return errors.ErrInvalidConcurrent
	}
	switch s.OutputFormat {
	case "text", "json":
	default:
		return errors.Wrapf(errors.ErrInvalidOutput, "%q", s.OutputFormat)
	}
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Wrapf(errors.ErrInvalidLogLevel, "%q", s.LogLevel)
	}
	if a := s.Platform.Arch; a != "" && platform.NormalizeArch(a) != platform.ArchIntel && platform.NormalizeArch(a) != platform.ArchARM64 {
		return errors.Wrapf(errors.ErrValidation, "unknown architecture %q", a)
	}
	for _, d := range []string{s.CaskroomDir, s.CacheDir} {
		if !filepath.IsAbs(d) {
			return errors.Wrapf(errors.ErrInvalidPath, "%q must be absolute", d)
		}
	}
	return nil
}

// DirDefaults returns the artifact target directories keyed the way the
// per-cask config stores them.
func (c *Config) DirDefaults() map[string]string {
	d := c.Settings.Dirs
	return map[string]string{
		model.DirApp:      d.AppDir,
		model.DirBinary:   d.BinaryDir,
		model.DirFont:     d.FontDir,
		model.DirService:  d.ServiceDir,
		model.DirPrefPane: d.PrefPaneDir,
		model.DirQLPlugin: d.QLPluginDir,
	}
}

// ApplyPlatform returns p with the configured overrides applied.
func (c *Config) ApplyPlatform(p platform.Platform) platform.Platform {
	if a := c.Settings.Platform.Arch; a != "" {
		p.Arch = platform.NormalizeArch(a)
	}
	if v := c.Settings.Platform.MacOSVersion; v != "" {
		p.MacOSVersion = v
	}
	return p
}

func (c *Config) expandHome() {
	s := &c.Settings
	for _, p := range []*string{
		&s.CaskroomDir, &s.CacheDir, &s.TapsDir, &s.TrashDir,
		&s.Dirs.AppDir, &s.Dirs.BinaryDir, &s.Dirs.FontDir,
		&s.Dirs.ServiceDir, &s.Dirs.PrefPaneDir, &s.Dirs.QLPluginDir,
	} {
		if *p == "~" || strings.HasPrefix(*p, "~/") {
			*p = filepath.Join(xdg.Home, strings.TrimPrefix(*p, "~"))
		}
	}
}

// defaultValues flattens DefaultConfig for the confmap provider.
func defaultValues() map[string]interface{} {
	s := DefaultConfig().Settings
	return map[string]interface{}{
		"settings.caskroom_dir":             s.CaskroomDir,
		"settings.cache_dir":                s.CacheDir,
		"settings.taps_dir":                 s.TapsDir,
		"settings.trash_dir":                s.TrashDir,
		"settings.dirs.appdir":              s.Dirs.AppDir,
		"settings.dirs.binarydir":           s.Dirs.BinaryDir,
		"settings.dirs.fontdir":             s.Dirs.FontDir,
		"settings.dirs.servicedir":          s.Dirs.ServiceDir,
		"settings.dirs.prefpanedir":         s.Dirs.PrefPaneDir,
		"settings.dirs.qlplugindir":         s.Dirs.QLPluginDir,
		"settings.http_timeout":             s.HTTPTimeout.String(),
		"settings.max_concurrent_downloads": s.MaxConcurrent,
		"settings.require_sha":              s.RequireSHA,
		"settings.quarantine":               s.Quarantine,
		"settings.no_binaries":              s.NoBinaries,
		"settings.brew_path":                s.BrewPath,
		"settings.output_format":            s.OutputFormat,
		"settings.log_level":                s.LogLevel,
	}
}

// envKeys maps BREWCASK_<NAME> to its config key.
var envKeys = map[string]string{
	"CASKROOM":         "settings.caskroom_dir",
	"CACHE":            "settings.cache_dir",
	"TAPS":             "settings.taps_dir",
	"TRASH":            "settings.trash_dir",
	"APPDIR":           "settings.dirs.appdir",
	"BINARYDIR":        "settings.dirs.binarydir",
	"FONTDIR":          "settings.dirs.fontdir",
	"SERVICEDIR":       "settings.dirs.servicedir",
	"PREFPANEDIR":      "settings.dirs.prefpanedir",
	"QLPLUGINDIR":      "settings.dirs.qlplugindir",
	"HTTP_TIMEOUT":     "settings.http_timeout",
	"MAX_CONCURRENT":   "settings.max_concurrent_downloads",
	"GITHUB_API_TOKEN": "settings.github_api_token",
	"REQUIRE_SHA":      "settings.require_sha",
	"NO_QUARANTINE":    "settings.quarantine",
	"NO_BINARIES":      "settings.no_binaries",
	"LANGUAGES":        "settings.languages",
	"BREW":             "settings.brew_path",
	"ANALYTICS":        "settings.analytics_command",
	"OUTPUT_FORMAT":    "settings.output_format",
	"LOG_LEVEL":        "settings.log_level",
	"ARCH":             "settings.platform.arch",
	"MACOS_VERSION":    "settings.platform.macos_version",
}

// envValue translates one BREWCASK_* variable. Unknown names are dropped.
func envValue(name, value string) (string, interface{}) {
	key, ok := envKeys[strings.TrimPrefix(name, EnvPrefix)]
	if !ok {
		return "", nil
	}
	switch key {
	case "settings.languages":
		return key, strings.Split(value, ",")
	case "settings.analytics_command":
		return key, strings.Fields(value)
	case "settings.quarantine":
		// BREWCASK_NO_QUARANTINE=1 disables quarantine
		return key, value == "" || value == "0" || strings.EqualFold(value, "false")
	}
	return key, value
}
