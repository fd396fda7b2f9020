package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"recsort/internal/config"
	"recsort/internal/journal"
	"recsort/internal/logging"
)

type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
	verbose   bool
}

type commandContext struct {
	flags *globalFlags

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads the configuration once and applies the logging flags.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.flags != nil {
			path = strings.TrimSpace(c.flags.config)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.flags != nil {
			if level := strings.ToLower(strings.TrimSpace(c.flags.logLevel)); level != "" {
				cfg.Logging.Level = level
			}
			if c.flags.verbose {
				cfg.Logging.Level = "debug"
			}
			if format := strings.ToLower(strings.TrimSpace(c.flags.logFormat)); format != "" {
				cfg.Logging.Format = format
			}
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// newLogger rotates the previous log file, builds the run logger, and prunes
// archived logs past retention.
func (c *commandContext) newLogger(runID string) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logPath := cfg.LogPath()
	_, rotateErr := logging.RotateLog(logPath, time.Now())
	logger, err := logging.NewFromConfig(cfg, runID)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if rotateErr != nil {
		logging.WarnWithContext(logger, "log rotation failed; appending to previous log", "log_rotation_failed",
			logging.Error(rotateErr),
			logging.String(logging.FieldErrorHint, "check permissions on log_dir"),
		)
	}
	if logPath != "" {
		logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
			Dir:     cfg.Paths.LogDir,
			Pattern: logging.ArchivePattern(logPath),
			Exclude: []string{logPath},
		})
	}
	return logger, nil
}

// openJournal opens the run history database. With mustExist set, a missing
// database yields (nil, nil) instead of creating an empty one.
func (c *commandContext) openJournal(mustExist bool) (*journal.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	path := strings.TrimSpace(cfg.Journal.Path)
	if path == "" {
		return nil, errors.New("journal.path is not configured")
	}
	if mustExist {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
	}
	store, err := journal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return store, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
