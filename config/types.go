package config

import "time"

// Config is the Executor's full runtime configuration.
type Config struct {
	// Workers bounds how many job files are spooled concurrently per
	// poll cycle (jobpool.Pool's size).
	Workers int `mapstructure:"workers"`

	// RaiseOnFailedJobs makes complete_jobs propagate a JobFailed error
	// instead of logging and continuing once a job fails terminally.
	RaiseOnFailedJobs bool `mapstructure:"raise_on_failed_jobs"`

	// MaxRetries caps retry_count; a job that would exceed it is routed
	// to failed_jobs instead of back to new_jobs.
	MaxRetries uint32 `mapstructure:"max_retries"`

	PollInterval     time.Duration `mapstructure:"poll_interval"`
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"`
	MetricsEnabled   bool          `mapstructure:"metrics_enabled"`
	ArchiveRetention time.Duration `mapstructure:"archive_retention"`
}
