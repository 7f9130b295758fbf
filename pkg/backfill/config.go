package backfill

import (
	"errors"
	"time"
)

// Define static errors
var (
	// ErrInvalidParallelism is returned when parallelism is below one
	ErrInvalidParallelism = errors.New("parallelism must be at least 1")
	// ErrInvalidRunTimeout is returned when the per-date run timeout is not positive
	ErrInvalidRunTimeout = errors.New("run timeout must be positive")
)

// Config holds backfill orchestration settings
type Config struct {
	// LogDir receives the per-date log files and the state file
	LogDir string `yaml:"logDir" default:"logs"`
	// Parallelism is the default bounded worker pool size
	Parallelism int `yaml:"parallelism" default:"1"`
	// RunTimeout bounds one single-date pipeline invocation
	RunTimeout time.Duration `yaml:"runTimeout" default:"4h"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Parallelism < 1 {
		return ErrInvalidParallelism
	}

	if c.RunTimeout <= 0 {
		return ErrInvalidRunTimeout
	}

	return nil
}
