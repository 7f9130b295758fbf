// Package scheduler runs the daily forecast job on a cron schedule and
// manages the deployed job registration.
package scheduler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Define static errors
var (
	// ErrInvalidSchedule is returned when a cron expression does not parse
	ErrInvalidSchedule = errors.New("invalid cron schedule")
	// ErrJobNameRequired is returned when a manifest has no job name
	ErrJobNameRequired = errors.New("job name is required")
)

// Manifest is the registration of the scheduled daily job. `deploy` writes
// or updates it; `daemon` runs it.
type Manifest struct {
	Name      string    `yaml:"name"`
	Schedule  string    `yaml:"schedule"`
	CreatedAt time.Time `yaml:"createdAt"`
	UpdatedAt time.Time `yaml:"updatedAt"`
}

// ValidateSchedule checks a standard 5-field cron expression
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, expr, err)
	}

	return nil
}

// WriteManifest registers or updates the scheduled job. An existing
// manifest keeps its creation time.
func WriteManifest(path, name, schedule string, now time.Time) (*Manifest, error) {
	if name == "" {
		return nil, ErrJobNameRequired
	}
	if err := ValidateSchedule(schedule); err != nil {
		return nil, err
	}

	manifest := &Manifest{
		Name:      name,
		Schedule:  schedule,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}

	if existing, err := LoadManifest(path); err == nil {
		manifest.CreatedAt = existing.CreatedAt
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("encode job manifest: %w", err)
	}

	if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o750); mkdirErr != nil {
		return nil, fmt.Errorf("create manifest directory: %w", mkdirErr)
	}
	if writeErr := os.WriteFile(path, data, 0o600); writeErr != nil {
		return nil, fmt.Errorf("write job manifest %s: %w", path, writeErr)
	}

	return manifest, nil
}

// LoadManifest reads the deployed job registration
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Operator-provided manifest path
	if err != nil {
		return nil, fmt.Errorf("read job manifest %s: %w", path, err)
	}

	manifest := &Manifest{}
	if unmarshalErr := yaml.Unmarshal(data, manifest); unmarshalErr != nil {
		return nil, fmt.Errorf("parse job manifest %s: %w", path, unmarshalErr)
	}

	if validateErr := ValidateSchedule(manifest.Schedule); validateErr != nil {
		return nil, validateErr
	}

	return manifest, nil
}
