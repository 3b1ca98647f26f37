// Package daemonconfig loads barnd's TOML configuration file via
// github.com/spf13/viper and translates it into the Config the
// barn.Service constructor expects. Every key has a default, so an absent
// config file is a valid, fully-functional configuration.
package daemonconfig

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/samson-media/barn"
	"github.com/samson-media/barn/internal/job"
	"github.com/samson-media/barn/internal/scheduler"
	"github.com/spf13/viper"
)

// Defaults mirror barn.DefaultConfig/scheduler.DefaultConfig/job.DefaultRetryPolicy.
const (
	defaultBaseDir           = ""
	defaultMaxHigh           = 2
	defaultMaxMedium         = 8
	defaultMaxLow            = 32
	defaultPollInterval      = time.Second
	defaultShutdownTimeout   = 5 * time.Minute
	defaultHeartbeatInterval = 10 * time.Second
	defaultStaleThreshold    = 30 * time.Second
	defaultReaperEnabled     = true
	defaultReaperInterval    = 60 * time.Minute
	defaultMaxAge            = 72 * time.Hour
	defaultKeepFailedJobs    = true
	defaultKeepFailedJobsFor = 168 * time.Hour
	defaultRetryDelay        = 30
	defaultRetryBackoff      = 2.0
)

// Config is the fully-resolved set of values read from a barnd config
// file, independent of the internal packages it is later translated into.
type Config struct {
	BaseDir string `mapstructure:"base_dir"`

	Limits struct {
		MaxHigh   int `mapstructure:"max_high"`
		MaxMedium int `mapstructure:"max_medium"`
		MaxLow    int `mapstructure:"max_low"`
	} `mapstructure:"limits"`

	Scheduler struct {
		PollInterval      time.Duration `mapstructure:"poll_interval"`
		ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
		HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
		StaleThreshold    time.Duration `mapstructure:"stale_threshold"`
	} `mapstructure:"scheduler"`

	Reaper struct {
		Enabled           bool          `mapstructure:"enabled"`
		Interval          time.Duration `mapstructure:"interval"`
		MaxAge            time.Duration `mapstructure:"max_age"`
		KeepFailedJobs    bool          `mapstructure:"keep_failed_jobs"`
		KeepFailedJobsFor time.Duration `mapstructure:"keep_failed_jobs_for"`
	} `mapstructure:"reaper"`

	DefaultRetry struct {
		MaxRetries             int     `mapstructure:"max_retries"`
		RetryDelaySeconds      int     `mapstructure:"retry_delay_seconds"`
		RetryBackoffMultiplier float64 `mapstructure:"retry_backoff_multiplier"`
	} `mapstructure:"default_retry"`
}

// Load reads path (a TOML file) if it exists, applies defaults for every
// unset key, and returns the resolved Config. path may be empty, in which
// case only defaults and BARN_-prefixed environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("barn")
	v.AutomaticEnv()

	v.SetDefault("base_dir", defaultBaseDir)
	v.SetDefault("limits.max_high", defaultMaxHigh)
	v.SetDefault("limits.max_medium", defaultMaxMedium)
	v.SetDefault("limits.max_low", defaultMaxLow)
	v.SetDefault("scheduler.poll_interval", defaultPollInterval)
	v.SetDefault("scheduler.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("scheduler.heartbeat_interval", defaultHeartbeatInterval)
	v.SetDefault("scheduler.stale_threshold", defaultStaleThreshold)
	v.SetDefault("reaper.enabled", defaultReaperEnabled)
	v.SetDefault("reaper.interval", defaultReaperInterval)
	v.SetDefault("reaper.max_age", defaultMaxAge)
	v.SetDefault("reaper.keep_failed_jobs", defaultKeepFailedJobs)
	v.SetDefault("reaper.keep_failed_jobs_for", defaultKeepFailedJobsFor)
	v.SetDefault("default_retry.max_retries", 0)
	v.SetDefault("default_retry.retry_delay_seconds", defaultRetryDelay)
	v.SetDefault("default_retry.retry_backoff_multiplier", defaultRetryBackoff)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("daemonconfig: reading %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("daemonconfig: decoding config: %w", err)
	}
	return cfg, nil
}

// ServiceConfig translates the resolved Config into a barn.Config ready
// to pass to barn.New.
func (c *Config) ServiceConfig() barn.Config {
	return barn.Config{
		BaseDir: c.BaseDir,
		Limits: scheduler.Limits{
			MaxHigh:   c.Limits.MaxHigh,
			MaxMedium: c.Limits.MaxMedium,
			MaxLow:    c.Limits.MaxLow,
		},
		Recovery: scheduler.RecoveryConfig{
			StaleThreshold: c.Scheduler.StaleThreshold,
		},
		Reaper: scheduler.ReaperConfig{
			Enabled:           c.Reaper.Enabled,
			Interval:          c.Reaper.Interval,
			MaxAge:            c.Reaper.MaxAge,
			KeepFailedJobs:    c.Reaper.KeepFailedJobs,
			KeepFailedJobsFor: c.Reaper.KeepFailedJobsFor,
		},
		PollInterval:      c.Scheduler.PollInterval,
		ShutdownTimeout:   c.Scheduler.ShutdownTimeout,
		HeartbeatInterval: c.Scheduler.HeartbeatInterval,
	}
}

// DefaultRetryPolicy translates the config file's default_retry section
// into a job.RetryPolicy, for use when a Create request doesn't specify
// its own policy.
func (c *Config) DefaultRetryPolicy() job.RetryPolicy {
	return job.RetryPolicy{
		MaxRetries:             c.DefaultRetry.MaxRetries,
		RetryDelaySeconds:      c.DefaultRetry.RetryDelaySeconds,
		RetryBackoffMultiplier: c.DefaultRetry.RetryBackoffMultiplier,
	}
}
