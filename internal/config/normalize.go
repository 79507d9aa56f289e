package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMirror()
	c.normalizeCarve()
	c.normalizeStaging()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = filepath.Join(c.Paths.LogDir, defaultHistoryFile)
	}
	if c.Paths.HistoryDB, err = expandPath(c.Paths.HistoryDB); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeMirror() {
	if c.Mirror.Workers <= 0 {
		c.Mirror.Workers = defaultMirrorWorkers
	}
	if c.Mirror.RequestTimeoutSeconds <= 0 {
		c.Mirror.RequestTimeoutSeconds = defaultRequestTimeout
	}
	c.Mirror.UserAgent = strings.TrimSpace(c.Mirror.UserAgent)
	if c.Mirror.UserAgent == "" {
		c.Mirror.UserAgent = defaultUserAgent
	}
	c.Mirror.BearerToken = strings.TrimSpace(c.Mirror.BearerToken)
	if c.Mirror.BearerToken == "" {
		if value, ok := os.LookupEnv("EXTRACTOR_TOKEN"); ok {
			c.Mirror.BearerToken = strings.TrimSpace(value)
		}
	}
	if c.Mirror.ProgressShare == 0 {
		c.Mirror.ProgressShare = defaultProgressShare
	}
}

func (c *Config) normalizeCarve() {
	if c.Carve.CancelCheckInterval <= 0 {
		c.Carve.CancelCheckInterval = defaultCancelCheckInterval
	}
	if c.Carve.MaxEntryMiB <= 0 {
		c.Carve.MaxEntryMiB = defaultMaxEntryMiB
	}
}

func (c *Config) normalizeStaging() {
	if c.Staging.StaleHours <= 0 {
		c.Staging.StaleHours = defaultStaleHours
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
