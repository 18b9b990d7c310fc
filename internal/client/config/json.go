package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/tamteklipy/tkcli/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals are
// given as strings like "2s".
type JsonConfig struct {
	APIBaseURL            string `json:"api_base_url"`
	ThumbnailPollInterval string `json:"thumbnail_poll_interval"`
	ThumbnailPollAttempts int    `json:"thumbnail_poll_attempts"`
}

// parseJson overlays Config with values loaded from the JSON file given via
// the -c/-config flags. Absent file means no overlay; read or parse errors
// panic (the caller cannot run with a half-applied config).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.ThumbnailPollInterval != "" {
		d, err := time.ParseDuration(jc.ThumbnailPollInterval)
		if err != nil {
			panic(err)
		}
		cfg.ThumbnailPollInterval = d
	}
	if jc.ThumbnailPollAttempts > 0 {
		cfg.ThumbnailPollAttempts = jc.ThumbnailPollAttempts
	}
}
