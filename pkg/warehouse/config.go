// Package warehouse provides the data warehouse client used by the
// single-date pipeline: aggregate queries in, append-only output rows out.
package warehouse

import (
	"errors"
	"time"
)

// ErrDSNRequired is returned when no warehouse DSN is configured
var ErrDSNRequired = errors.New("warehouse DSN is required")

// Config holds warehouse connection configuration. The DSN is normally
// supplied through the environment rather than the config file.
type Config struct {
	DSN           string        `yaml:"dsn"`
	QueryTimeout  time.Duration `yaml:"queryTimeout" default:"5m"`
	InsertTimeout time.Duration `yaml:"insertTimeout" default:"2m"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DSN == "" {
		return ErrDSNRequired
	}

	if c.QueryTimeout == 0 {
		c.QueryTimeout = 5 * time.Minute
	}
	if c.InsertTimeout == 0 {
		c.InsertTimeout = 2 * time.Minute
	}

	return nil
}
