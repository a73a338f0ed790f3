package config

import "fmt"

// Validate reports configuration values that cannot be used at runtime.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}

	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return fmt.Errorf("paths.log_dir must be set")
	}

	if c.Jobs.BatchLimit < 0 {
		return fmt.Errorf("jobs.batch_limit must not be negative")
	}
	if c.Jobs.InviteExpiryDays < 1 {
		return fmt.Errorf("jobs.invite_expiry_days must be at least 1")
	}

	return nil
}
