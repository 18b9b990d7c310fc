package config

import (
	"flag"
	"os"

	"github.com/tamteklipy/tkcli/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   root URL of the backend API (default from Config)
//
// The function filters os.Args to only the flags it knows about, using
// flagx.FilterArgs, so it does not trip over flags owned elsewhere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "root URL of the backend API")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
