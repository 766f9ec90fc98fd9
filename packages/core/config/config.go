package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// HITPAD_TIMEOUT=5000.
const EnvPrefix = "HITPAD"

// Config represents the hitpad configuration
type Config struct {
	DefaultEnvironment string            `json:"defaultEnvironment,omitempty" yaml:"defaultEnvironment,omitempty"`
	Database           string            `json:"database,omitempty" yaml:"database,omitempty"`    // path to the environment store
	Timeout            int               `json:"timeout,omitempty" yaml:"timeout,omitempty"`      // milliseconds
	FollowRedirects    *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects       int               `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	ValidateSSL        *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Proxy              string            `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Headers            map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`         // Default headers for all requests
	Concurrency        int               `json:"concurrency,omitempty" yaml:"concurrency,omitempty"` // bench workers
	Verbose            *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor            *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// boolPtr returns a pointer to a bool value
func boolPtr(b bool) *bool {
	return &b
}

// BoolPtr is exported version of boolPtr for external use
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// TimeoutDuration converts Timeout to a duration.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".hitpad.json",
	"hitpad.json",
	".hitpad.yaml",
	".hitpad.yml",
	"hitpad.yaml",
	".hitpadrc",
}

// keys lists every setting that can be overridden from the environment.
var keys = []string{
	"defaultEnvironment",
	"database",
	"timeout",
	"followRedirects",
	"maxRedirects",
	"validateSSL",
	"proxy",
	"concurrency",
	"verbose",
	"noColor",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// No file: defaults plus environment overrides
	return load(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	for _, key := range keys {
		_ = v.BindEnv(key, EnvPrefix+"_"+envName(key))
	}
	return v
}

// envName turns a camelCase key into SNAKE_CASE.
func envName(key string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range key {
		upper := r >= 'A' && r <= 'Z'
		if upper && prevLower {
			b.WriteByte('_')
		}
		prevLower = !upper
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// loadConfigFromFile loads configuration from a specific file. The format
// follows the extension; files without one are read as JSON.
func loadConfigFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	overrides := &Config{}
	if err := v.Unmarshal(overrides); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return DefaultConfig().Merge(overrides), nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.DefaultEnvironment != "" {
		result.DefaultEnvironment = other.DefaultEnvironment
	}
	if other.Database != "" {
		result.Database = other.Database
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.Concurrency > 0 {
		result.Concurrency = other.Concurrency
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	// Merge headers
	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(c.Headers)+len(other.Headers))
		for k, v := range c.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
