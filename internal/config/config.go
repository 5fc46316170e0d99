// Package config binds CLI flags, config files, and environment variables
// into one validated runtime configuration.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/railstation/railrec/pkg/errors"
)

var validate = validator.New()

// Config is the CLI's runtime configuration, merged from the config file,
// RAILREC_ environment variables, and flags. Flags win.
type Config struct {
	// ReferenceFile is a YAML snapshot of the three reference layers.
	ReferenceFile string `mapstructure:"reference_file"`

	// Database is a SQLite reference store path; used when no reference
	// file is given.
	Database string `mapstructure:"database"`

	// Workers is the engine worker count; zero means one per CPU.
	Workers int `mapstructure:"workers" validate:"gte=0"`

	// Rounding is the expense rounding mode.
	Rounding string `mapstructure:"rounding" validate:"omitempty,oneof=half_even half_up"`

	// TripInheritance lets unmatched empty legs adopt their trip's route.
	TripInheritance bool `mapstructure:"trip_inheritance"`

	// Dedupe drops duplicate wagon-and-invoice rows, keeping the latest.
	Dedupe bool `mapstructure:"dedupe"`

	// MappingPairs and ActiveCodes feed the export code projection.
	MappingPairs string `mapstructure:"mapping_pairs"`
	ActiveCodes  string `mapstructure:"active_codes"`

	// Windows1251 decodes reference CSV files from the legacy codepage.
	Windows1251 bool `mapstructure:"windows1251"`
}

// Load materializes the configuration from viper's current state.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.WrapConfig("cli", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, errors.WrapConfig("cli", err)
	}
	return &cfg, nil
}

// RequireReference checks that a reference source is configured. Commands
// that resolve shipments need one; utility commands don't.
func (c *Config) RequireReference() error {
	if c.ReferenceFile == "" && c.Database == "" {
		return errors.NewConfigError("cli", "a reference source is required: set --reference or --db", nil)
	}
	return nil
}

// GetString reads a key from viper, falling back to the OS environment for
// keys set outside any config file.
func GetString(key string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return os.Getenv(key)
}
