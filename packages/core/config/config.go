package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the hitgraph configuration
type Config struct {
	Concurrency     int               `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`         // Tests in flight at once
	TestTimeout     int               `json:"testTimeout,omitempty" yaml:"testTimeout,omitempty"`         // milliseconds, 0 = none
	HTTPTimeout     int               `json:"httpTimeout,omitempty" yaml:"httpTimeout,omitempty"`         // milliseconds
	HTTPConcurrency int               `json:"httpConcurrency,omitempty" yaml:"httpConcurrency,omitempty"` // Calls per batch flush at once
	HTTPRate        float64           `json:"httpRate,omitempty" yaml:"httpRate,omitempty"`               // Calls per second, 0 = unlimited
	BaseURL         string            `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
	Proxy           string            `json:"proxy,omitempty" yaml:"proxy,omitempty"` // Proxy URL for HTTP requests
	FollowRedirects *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	ValidateSSL     *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`     // Default headers for all requests
	Reporters       []string          `json:"reporters,omitempty" yaml:"reporters,omitempty"` // Output reporters
	OutputDir       string            `json:"outputDir,omitempty" yaml:"outputDir,omitempty"` // Directory for output files
	Verbose         *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor         *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
	LogLevel        string            `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	Tracing         TracingConfig     `json:"tracing,omitempty" yaml:"tracing,omitempty"`
	HistoryDB       string            `json:"historyDB,omitempty" yaml:"historyDB,omitempty"` // SQLite file recording runs
}

// TracingConfig configures OpenTelemetry export. Tracing is off without an endpoint.
type TracingConfig struct {
	Endpoint    string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	ServiceName string  `json:"serviceName,omitempty" yaml:"serviceName,omitempty"`
	SampleRate  float64 `json:"sampleRate,omitempty" yaml:"sampleRate,omitempty"`
	Insecure    bool    `json:"insecure,omitempty" yaml:"insecure,omitempty"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return t.Endpoint != ""
}

// BoolPtr returns a pointer to b, for building configs in code
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

func (c *Config) TestTimeoutDuration() time.Duration {
	return time.Duration(c.TestTimeout) * time.Millisecond
}

func (c *Config) HTTPTimeoutDuration() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Millisecond
}

// Validate rejects values the runner cannot work with.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be a positive integer, got %d", c.Concurrency)
	}
	if c.TestTimeout < 0 {
		return fmt.Errorf("testTimeout must not be negative, got %d", c.TestTimeout)
	}
	if c.HTTPRate < 0 {
		return fmt.Errorf("httpRate must not be negative, got %g", c.HTTPRate)
	}
	if c.Proxy != "" {
		if u, err := url.Parse(c.Proxy); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid proxy URL %q", c.Proxy)
		}
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing sampleRate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate)
	}
	for _, r := range c.Reporters {
		switch r {
		case "console", "json", "junit", "tap":
		default:
			return fmt.Errorf("unknown reporter %q", r)
		}
	}
	return nil
}

// ConfigFilenames contains the possible config file names, in lookup order
var ConfigFilenames = []string{
	".hitgraph.yaml",
	".hitgraph.yml",
	".hitgraph.json",
	"hitgraph.config.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

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

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file, picking the
// format from its extension
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Concurrency > 0 {
		result.Concurrency = other.Concurrency
	}
	if other.TestTimeout > 0 {
		result.TestTimeout = other.TestTimeout
	}
	if other.HTTPTimeout > 0 {
		result.HTTPTimeout = other.HTTPTimeout
	}
	if other.HTTPConcurrency > 0 {
		result.HTTPConcurrency = other.HTTPConcurrency
	}
	if other.HTTPRate > 0 {
		result.HTTPRate = other.HTTPRate
	}
	if other.BaseURL != "" {
		result.BaseURL = other.BaseURL
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.OutputDir != "" {
		result.OutputDir = other.OutputDir
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}
	if other.HistoryDB != "" {
		result.HistoryDB = other.HistoryDB
	}
	if other.Tracing.Endpoint != "" {
		result.Tracing.Endpoint = other.Tracing.Endpoint
	}
	if other.Tracing.ServiceName != "" {
		result.Tracing.ServiceName = other.Tracing.ServiceName
	}
	if other.Tracing.SampleRate > 0 {
		result.Tracing.SampleRate = other.Tracing.SampleRate
	}
	if other.Tracing.Insecure {
		result.Tracing.Insecure = true
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

	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}

	return &result
}

// SaveConfig saves the configuration to a file, as YAML or JSON depending on
// the extension
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
