package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// SourceType identifies the kind of mail client binding.
type SourceType string

const (
	SourceTypeOutlook     SourceType = "outlook"
	SourceTypeThunderbird SourceType = "thunderbird"
	SourceTypeIMAP        SourceType = "imap"
	SourceTypeMbox        SourceType = "mbox"
	SourceTypePOP3        SourceType = "pop3"
)

// DefaultHours is the lookback window used when none is configured.
const DefaultHours = 7

// SourceConfig holds the configuration for a single mailbox source.
type SourceConfig struct {
	// Name is the user-defined label for this source, used by --source.
	Name string `mapstructure:"name" yaml:"name"`

	// Type identifies the binding (e.g., "outlook", "thunderbird", "imap").
	Type string `mapstructure:"type" yaml:"type"`

	// Config holds binding-specific key-value settings
	// (e.g., profile directory, folder name, host and port).
	Config map[string]string `mapstructure:"config" yaml:"config"`
}

// Get returns the binding setting for key, or fallback when unset.
func (s SourceConfig) Get(key, fallback string) string {
	if v, ok := s.Config[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// DisplayConfig holds CLI rendering preferences.
type DisplayConfig struct {
	DefaultHours int `mapstructure:"default_hours" yaml:"default_hours"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	DefaultSource string         `mapstructure:"default_source" yaml:"default_source"`
	Sources       []SourceConfig `mapstructure:"sources" yaml:"sources"`
	Log           LogConfig      `mapstructure:"log" yaml:"log"`
	Display       DisplayConfig  `mapstructure:"display" yaml:"display"`
}

// ErrSourceNotFound is returned by AppConfig.Source for unknown names.
var ErrSourceNotFound = errors.New("source not configured")

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/inboxpeek/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "inboxpeek", "config.yaml")
}

// platformSource is the source used when no sources are configured:
// Outlook on Windows, the Thunderbird index elsewhere.
func platformSource() SourceConfig {
	if runtime.GOOS == "windows" {
		return SourceConfig{Name: "outlook", Type: string(SourceTypeOutlook)}
	}
	return SourceConfig{Name: "thunderbird", Type: string(SourceTypeThunderbird)}
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	src := platformSource()
	return &AppConfig{
		DefaultSource: src.Name,
		Sources:       []SourceConfig{src},
		Log:           LogConfig{Level: "warn"},
		Display:       DisplayConfig{DefaultHours: DefaultHours},
	}
}

// NewViper returns a Viper instance preloaded with defaults and the
// INBOXPEEK_ environment prefix. Callers may bind flags to it before
// handing it to LoadConfigWith.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("inboxpeek")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("log.level", "warn")
	v.SetDefault("display.default_hours", DefaultHours)
	v.SetDefault("default_source", "")
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	return LoadConfigWith(NewViper(), path)
}

// LoadConfigWith is LoadConfig on a caller-supplied Viper instance.
func LoadConfigWith(v *viper.Viper, path string) (*AppConfig, error) {
	v.SetConfigFile(path)

	fileMissing := false
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		switch {
		case errors.As(err, &notFound), errors.As(err, &pathErr):
			fileMissing = true
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if len(cfg.Sources) == 0 {
		src := platformSource()
		cfg.Sources = []SourceConfig{src}
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].Name == "" {
			cfg.Sources[i].Name = cfg.Sources[i].Type
		}
		cfg.Sources[i].Type = strings.ToLower(strings.TrimSpace(cfg.Sources[i].Type))
	}
	if cfg.DefaultSource == "" {
		cfg.DefaultSource = cfg.Sources[0].Name
	}
	if cfg.Display.DefaultHours == 0 {
		cfg.Display.DefaultHours = DefaultHours
	}

	if err := cfg.Validate(); err != nil {
		if fileMissing {
			return nil, err
		}
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks source types and name uniqueness.
func (c *AppConfig) Validate() error {
	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		label := s.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		switch SourceType(s.Type) {
		case SourceTypeOutlook, SourceTypeThunderbird, SourceTypeIMAP,
			SourceTypeMbox, SourceTypePOP3:
		default:
			return fmt.Errorf("source %s: unsupported type %q", label, s.Type)
		}
		if seen[s.Name] {
			return fmt.Errorf("source %s: duplicate name", label)
		}
		seen[s.Name] = true
	}
	if _, err := c.Source(c.DefaultSource); err != nil {
		return fmt.Errorf("default_source: %w", err)
	}
	return nil
}

// Source returns the source with the given name, or the default source
// when name is empty.
func (c *AppConfig) Source(name string) (SourceConfig, error) {
	if name == "" {
		name = c.DefaultSource
	}
	for _, s := range c.Sources {
		if s.Name == name {
			return s, nil
		}
	}
	return SourceConfig{}, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
}

// SourceNames returns the configured source names in sorted order.
func (c *AppConfig) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for _, s := range c.Sources {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}
