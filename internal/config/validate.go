package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMirror(); err != nil {
		return err
	}
	if err := c.validateCarve(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateMirror() error {
	if err := ensurePositiveMap(map[string]int{
		"mirror.workers":                 c.Mirror.Workers,
		"mirror.request_timeout_seconds": c.Mirror.RequestTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Mirror.Workers > 64 {
		return errors.New("mirror.workers must be at most 64")
	}
	if c.Mirror.ProgressShare < 1 || c.Mirror.ProgressShare > 99 {
		return errors.New("mirror.progress_share must be between 1 and 99")
	}
	return nil
}

func (c *Config) validateCarve() error {
	return ensurePositiveMap(map[string]int{
		"carve.cancel_check_interval": c.Carve.CancelCheckInterval,
		"carve.max_entry_mib":         c.Carve.MaxEntryMiB,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
