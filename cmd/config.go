package cmd

import (
	"os"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/brwells78094/mozaic-daily/pkg/backfill"
	"github.com/brwells78094/mozaic-daily/pkg/pipeline"
	"github.com/brwells78094/mozaic-daily/pkg/scheduler"
	"github.com/brwells78094/mozaic-daily/pkg/warehouse"
)

// Config represents the complete application configuration
type Config struct {
	// Logging level
	Logging string `yaml:"logging" default:"info" validate:"oneof=panic fatal warn info debug trace"`
	// MetricsAddr is the daemon's metrics/health listen address
	MetricsAddr string `yaml:"metricsAddr" default:":9090"`

	// Dependencies
	Warehouse warehouse.Config `yaml:"warehouse"`
	Pipeline  pipeline.Config  `yaml:"pipeline"`

	// Orchestration
	Backfill  backfill.Config  `yaml:"backfill"`
	Scheduler scheduler.Config `yaml:"scheduler"`
}

// Validate validates everything except the warehouse connection, which only
// the commands that actually talk to the warehouse require.
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}

	if err := c.Backfill.Validate(); err != nil {
		return err
	}

	return c.Scheduler.Validate()
}

// LoadConfig loads configuration from a YAML file. A missing file is fine:
// defaults plus environment variables carry a local run.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	config := &Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	// Try to read the file, but allow it to not exist
	yamlFile, err := os.ReadFile(path) //nolint:gosec // User-provided config file path
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(config)

			return config, nil
		}

		return nil, err
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, err
	}

	applyEnv(config)

	return config, nil
}

// applyEnv lets the environment override file-borne secrets
func applyEnv(config *Config) {
	if dsn := os.Getenv("MOZAIC_WAREHOUSE_DSN"); dsn != "" {
		config.Warehouse.DSN = dsn
	}
}
