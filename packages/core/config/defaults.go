package config

const (
	// DefaultConcurrency is the number of tests kept in flight at once
	DefaultConcurrency = 10
	// DefaultHTTPTimeout is the per-request timeout in milliseconds
	DefaultHTTPTimeout = 30000
	// DefaultHTTPConcurrency bounds the calls performed at once by a batch flush
	DefaultHTTPConcurrency = 16
	// DefaultServiceName names the traces exported by a run
	DefaultServiceName = "hitgraph"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Concurrency:     DefaultConcurrency,
		TestTimeout:     0,
		HTTPTimeout:     DefaultHTTPTimeout,
		HTTPConcurrency: DefaultHTTPConcurrency,
		FollowRedirects: BoolPtr(true),
		ValidateSSL:     BoolPtr(true),
		Reporters:       []string{"console"},
		Verbose:         BoolPtr(false),
		NoColor:         BoolPtr(false),
		LogLevel:        "warn",
		Tracing: TracingConfig{
			ServiceName: DefaultServiceName,
			SampleRate:  1.0,
		},
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	d := DefaultConfig()
	return c.Concurrency == d.Concurrency &&
		c.TestTimeout == d.TestTimeout &&
		c.HTTPTimeout == d.HTTPTimeout &&
		c.HTTPConcurrency == d.HTTPConcurrency &&
		c.HTTPRate == d.HTTPRate &&
		c.BaseURL == d.BaseURL &&
		c.GetFollowRedirects() == d.GetFollowRedirects() &&
		c.GetValidateSSL() == d.GetValidateSSL() &&
		len(c.Headers) == 0 &&
		c.OutputDir == d.OutputDir &&
		c.GetVerbose() == d.GetVerbose() &&
		c.GetNoColor() == d.GetNoColor() &&
		c.LogLevel == d.LogLevel &&
		c.Tracing == d.Tracing &&
		c.HistoryDB == d.HistoryDB
}
