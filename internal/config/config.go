// Package config handles command-line argument parsing and the persistent
// settings file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/joe/gosync/pkg/filesystem"
)

// Exported variables.
var (
	ErrConflictingModes = errors.New("--once and --auto cannot be combined")
	ErrNegativeValue    = errors.New("value must not be negative")
)

// Config holds the command-line configuration.
type Config struct {
	ConfigPath string `arg:"-c,--config" help:"Path to config.json (default: the user config directory)"`
	Remote     string `arg:"-r,--remote" help:"Remote target sftp://user@host[:port]/path, overriding the config file"`
	LocalPath  string `arg:"-l,--local" help:"Local folder to sync, overriding the config file"`
	Once       bool   `arg:"--once" help:"Run a single pass and exit"`
	Auto       bool   `arg:"--auto" help:"Keep syncing on a timer even if auto_sync is off in the config"`
	Interval   int    `arg:"--interval" help:"Seconds between passes (0 = use the config file)"`
	NoWatch    bool   `arg:"--no-watch" help:"Do not watch the local folder for changes"`
	Headless   bool   `arg:"--headless" help:"Log to the terminal instead of showing the status view"`
	History    int    `arg:"--history" placeholder:"N" help:"Print the last N passes and exit"`
	Init       bool   `arg:"--init" help:"Write a default config file and exit"`
	Verbose    bool   `arg:"-v,--verbose" help:"Enable debug logging"`

	// RemoteTarget is the parsed --remote value.
	RemoteTarget *filesystem.RemoteTarget `arg:"-"`
}

// Description returns the program description for go-arg
func (Config) Description() string {
	return "One-way sync of a local folder to a remote host over SSH/SFTP"
}

// Version returns the version string for go-arg
func (Config) Version() string {
	return "gosync 1.0.0"
}

// IntervalDuration returns the --interval value as a duration.
func (cfg *Config) IntervalDuration() time.Duration {
	return time.Duration(cfg.Interval) * time.Second
}

// ParseFlags parses command-line flags and returns configuration
func ParseFlags() (*Config, error) {
	cfg := &Config{}

	arg.MustParse(cfg)

	return PostProcessConfig(cfg)
}

// ParseArgs parses the given arguments (without the program name).
func ParseArgs(args []string) (*Config, error) {
	cfg := &Config{}

	parser, err := arg.NewParser(arg.Config{Program: "gosync"}, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build argument parser: %w", err)
	}

	if err := parser.Parse(args); err != nil {
		return nil, err //nolint:wrapcheck // go-arg errors are already user-facing
	}

	return PostProcessConfig(cfg)
}

// PostProcessConfig validates flag combinations and parses --remote.
func PostProcessConfig(cfg *Config) (*Config, error) {
	if cfg.Once && cfg.Auto {
		return nil, ErrConflictingModes
	}

	if cfg.Interval < 0 {
		return nil, fmt.Errorf("--interval %d: %w", cfg.Interval, ErrNegativeValue)
	}

	if cfg.History < 0 {
		return nil, fmt.Errorf("--history %d: %w", cfg.History, ErrNegativeValue)
	}

	if cfg.Remote != "" {
		target, err := filesystem.ParseRemoteURL(cfg.Remote)
		if err != nil {
			return nil, fmt.Errorf("invalid --remote: %w", err)
		}

		cfg.RemoteTarget = target
	}

	return cfg, nil
}
