package pipeline

import (
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		require.NoError(t, defaults.Set(cfg))
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "defaults are valid",
			mutate: func(_ *Config) {},
		},
		{
			name:    "missing output table",
			mutate:  func(c *Config) { c.OutputTable = "" },
			wantErr: ErrOutputTableRequired,
		},
		{
			name:    "missing forecast command",
			mutate:  func(c *Config) { c.ForecastCommand = "" },
			wantErr: ErrForecastCommandRequired,
		},
		{
			name:    "quantile at zero",
			mutate:  func(c *Config) { c.Quantile = 0 },
			wantErr: ErrInvalidQuantile,
		},
		{
			name:    "quantile at one",
			mutate:  func(c *Config) { c.Quantile = 1 },
			wantErr: ErrInvalidQuantile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewRuntimeConfig(t *testing.T) {
	runTime := time.Date(2026, 8, 27, 7, 0, 0, 0, time.UTC)

	t.Run("default start is yesterday", func(t *testing.T) {
		cfg, err := NewRuntimeConfig(runTime, "")
		require.NoError(t, err)

		assert.Equal(t, "2026-08-26", cfg.ForecastStartDate.Format("2006-01-02"))
		assert.Equal(t, "2026-08-25", cfg.TrainingEndDate.Format("2006-01-02"))
		assert.Equal(t, "2027-12-31", cfg.ForecastEndDate.Format("2006-01-02"))
	})

	t.Run("override start for historical run", func(t *testing.T) {
		cfg, err := NewRuntimeConfig(runTime, "2024-06-15")
		require.NoError(t, err)

		assert.Equal(t, "2024-06-15", cfg.ForecastStartDate.Format("2006-01-02"))
		assert.Equal(t, "2024-06-14", cfg.TrainingEndDate.Format("2006-01-02"))
		// The horizon tracks the run time, not the historical start date.
		assert.Equal(t, "2027-12-31", cfg.ForecastEndDate.Format("2006-01-02"))
	})

	t.Run("today is allowed as start", func(t *testing.T) {
		cfg, err := NewRuntimeConfig(runTime, "2026-08-27")
		require.NoError(t, err)
		assert.Equal(t, "2026-08-27", cfg.ForecastStartDate.Format("2006-01-02"))
	})

	t.Run("future start is rejected", func(t *testing.T) {
		_, err := NewRuntimeConfig(runTime, "2026-08-28")
		require.ErrorIs(t, err, ErrFutureStartDate)
	})

	t.Run("malformed start is rejected", func(t *testing.T) {
		_, err := NewRuntimeConfig(runTime, "06/15/2024")
		require.Error(t, err)
	})

	t.Run("country list is deduplicated and sorted", func(t *testing.T) {
		cfg, err := NewRuntimeConfig(runTime, "")
		require.NoError(t, err)

		require.NotEmpty(t, cfg.Countries)
		seen := make(map[string]bool)
		for i, country := range cfg.Countries {
			assert.False(t, seen[country], "duplicate country %s", country)
			seen[country] = true
			if i > 0 {
				assert.Less(t, cfg.Countries[i-1], country)
			}
		}
		// US appears in two of the source lists but only once here.
		assert.True(t, seen["US"])
		assert.True(t, seen["RU"])
	})
}
