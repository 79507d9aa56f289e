package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/config"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/fetch"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/history"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/logging"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/reconstruct"
)

// maxLogBytes is the size past which extractor.log is rotated at startup.
const maxLogBytes = 10 << 20

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	ledgerOnce sync.Once
	ledger     *history.Store
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) verbose() bool {
	return c.verboseFlag != nil && *c.verboseFlag
}

// ensureLogger builds the process logger. The previous log file is rotated
// when oversized and expired rotations are pruned first.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		rotated, rotateErr := logging.RotateIfLarger(cfg.LogFilePath(), maxLogBytes)
		logger, err := logging.NewFromConfig(cfg, c.verbose())
		if err != nil {
			c.loggerErr = err
			return
		}
		if rotateErr != nil {
			logging.WarnWithContext(logger, "log rotation failed", "log_rotation_failed",
				logging.Error(rotateErr),
				logging.String(logging.FieldImpact, "extractor.log keeps growing"),
			)
		} else if rotated != "" {
			logger.Debug("log rotated", logging.String("path", rotated))
		}
		logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
			Dir:     cfg.Paths.LogDir,
			Pattern: "extractor-*.log",
			Exclude: []string{cfg.LogFilePath()},
		})
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// openLedger returns the history store, or nil when history is disabled or
// the database cannot be opened. A broken ledger never blocks a run.
func (c *commandContext) openLedger() *history.Store {
	c.ledgerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil || !cfg.History.Enabled {
			return
		}
		store, err := history.Open(cfg.Paths.HistoryDB)
		if err != nil {
			if logger, lerr := c.ensureLogger(); lerr == nil {
				logging.WarnWithContext(logger, "history ledger unavailable", "history_open_failed",
					logging.String("path", cfg.Paths.HistoryDB),
					logging.Error(err),
					logging.String(logging.FieldImpact, "runs will not be recorded"),
				)
			}
			return
		}
		c.ledger = store
	})
	return c.ledger
}

func (c *commandContext) newFetcher(cfg *config.Config) *fetch.Client {
	return fetch.New(
		fetch.WithUserAgent(cfg.Mirror.UserAgent),
		fetch.WithBearerToken(cfg.Mirror.BearerToken),
		fetch.WithTimeout(cfg.RequestTimeout()),
	)
}

// newReconstructor wires configuration, transport, ledger, and logger.
// outputDir overrides the configured output directory when non-empty.
func (c *commandContext) newReconstructor(outputDir string) (*reconstruct.Reconstructor, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	effective := *cfg
	if outputDir = strings.TrimSpace(outputDir); outputDir != "" {
		effective.Paths.OutputDir = outputDir
	}

	var ledger reconstruct.Ledger
	if store := c.openLedger(); store != nil {
		ledger = store
	}
	return reconstruct.NewFromConfig(&effective, c.newFetcher(cfg), ledger, logger), nil
}

func (c *commandContext) close() {
	if c.ledger != nil {
		_ = c.ledger.Close()
		c.ledger = nil
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
