package config

import "time"

// Config holds runtime settings for the TamteKlipy CLI.
//
// Fields:
//   - APIBaseURL: root URL of the backend API, e.g. https://klipy.example/api.
//   - ThumbnailPollInterval: pause between post-upload thumbnail-status polls.
//   - ThumbnailPollAttempts: how many polls before giving up silently.
type Config struct {
	APIBaseURL            string
	ThumbnailPollInterval time.Duration
	ThumbnailPollAttempts int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:8000/api"
	c.ThumbnailPollInterval = 2 * time.Second
	c.ThumbnailPollAttempts = 5
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
