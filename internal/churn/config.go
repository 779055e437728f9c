package churn

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig is returned for out-of-range configuration values.
var ErrInvalidConfig = errors.New("invalid churn config")

// Config controls censoring, fold generation and the final fit.
type Config struct {
	// LabelHorizonDays is how far the churn label looks ahead. That many
	// trailing days are censored because their labels are incomplete.
	LabelHorizonDays int `toml:"label_horizon_days" json:"label_horizon_days"`

	// TestWindowDays is accepted for compatibility but folds always test a
	// single day.
	TestWindowDays int `toml:"test_window_days" json:"test_window_days"`

	// MinTrainDays is the number of eligible days before the first test day.
	MinTrainDays int `toml:"min_train_days" json:"min_train_days"`

	SkipIfNoTestPositives bool  `toml:"skip_if_no_test_positives" json:"skip_if_no_test_positives"`
	Seed                  int64 `toml:"seed" json:"seed"`
}

// DefaultConfig returns the baseline validation settings.
func DefaultConfig() Config {
	return Config{
		LabelHorizonDays:      7,
		TestWindowDays:        1,
		MinTrainDays:          21,
		SkipIfNoTestPositives: true,
		Seed:                  7,
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.LabelHorizonDays < 0:
		return fmt.Errorf("%w: label_horizon_days must be >= 0, got %d", ErrInvalidConfig, c.LabelHorizonDays)
	case c.TestWindowDays < 1:
		return fmt.Errorf("%w: test_window_days must be >= 1, got %d", ErrInvalidConfig, c.TestWindowDays)
	case c.MinTrainDays < 1:
		return fmt.Errorf("%w: min_train_days must be >= 1, got %d", ErrInvalidConfig, c.MinTrainDays)
	}
	return nil
}

// LoadConfig reads a TOML file over the defaults. Keys missing from the file
// keep their default; unknown keys are rejected. An empty path returns the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read churn config: %w", err)
	}
	return ParseConfig(string(data))
}

// ParseConfig decodes a TOML document over the defaults.
func ParseConfig(doc string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(doc, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode churn config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("%w: unknown keys %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
