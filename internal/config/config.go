package config

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied when neither flags, environment, nor a config file set a value.
const (
	DefaultMaxEntries    = 5000
	DefaultMaxCachedDirs = 10
	DefaultDebounce      = 200 * time.Millisecond
)

// Options holds all the configuration settings for the dired engine.
// Tags are used by Viper for unmarshalling from config files, env vars, and flags.
type Options struct {
	// Listing filters
	ShowDotfiles  bool `mapstructure:"showDotfiles"`
	ShowMetaFiles bool `mapstructure:"showMetaFiles"`

	// Bounds
	MaxEntries    int `mapstructure:"maxEntries"`    // per-directory row cap
	MaxCachedDirs int `mapstructure:"maxCachedDirs"` // listing cache capacity

	// Watch mode
	Debounce time.Duration `mapstructure:"debounce"` // quiet period before a refresh fires

	// Behavior control
	Verbose bool `mapstructure:"verbose"`

	// Internal - not typically set by the user directly
	ConfigFile string `mapstructure:"config"` // path to the config file used
}

// ValidateConfig checks the loaded configuration options for validity.
// All problems are collected into one error so the user sees everything at once.
func (opts *Options) ValidateConfig() error {
	var errs []string

	if opts.MaxEntries <= 0 {
		errs = append(errs, "maxEntries must be positive")
	}
	if opts.MaxCachedDirs <= 0 {
		errs = append(errs, "maxCachedDirs must be positive")
	}
	if opts.Debounce < 0 {
		errs = append(errs, "debounce duration must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
