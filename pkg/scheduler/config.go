package scheduler

// Config holds scheduler settings
type Config struct {
	// JobName identifies the deployed job in its manifest
	JobName string `yaml:"jobName" default:"mozaic-daily"`
	// Schedule is the cron expression for the daily run (07:00 UTC)
	Schedule string `yaml:"schedule" default:"0 7 * * *"`
	// ManifestPath is where `deploy` registers the job
	ManifestPath string `yaml:"manifestPath" default:"deploy/job.yaml"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JobName == "" {
		return ErrJobNameRequired
	}

	return ValidateSchedule(c.Schedule)
}
