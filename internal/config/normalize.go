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
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	c.normalizeSorting()
	c.normalizeCopy()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeJournal() error {
	c.Journal.Path = strings.TrimSpace(c.Journal.Path)
	if c.Journal.Path == "" {
		c.Journal.Path = filepath.Join(c.Paths.StateDir, defaultJournalFile)
	}
	var err error
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeSorting() {
	c.Sorting.UnsortedDir = strings.TrimSpace(c.Sorting.UnsortedDir)
	if c.Sorting.UnsortedDir == "" {
		c.Sorting.UnsortedDir = defaultUnsortedDir
	}
	c.Sorting.NoExtensionDir = strings.TrimSpace(c.Sorting.NoExtensionDir)
	if c.Sorting.NoExtensionDir == "" {
		c.Sorting.NoExtensionDir = defaultNoExtensionDir
	}

	seen := make(map[string]struct{}, len(c.Sorting.ImageExtensions))
	exts := c.Sorting.ImageExtensions[:0]
	for _, ext := range c.Sorting.ImageExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		if _, dup := seen[ext]; dup {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	c.Sorting.ImageExtensions = exts
	if len(c.Sorting.ImageExtensions) == 0 {
		c.Sorting.ImageExtensions = append([]string(nil), defaultImageExtensions...)
	}
}

func (c *Config) normalizeCopy() {
	if c.Copy.Workers <= 0 {
		c.Copy.Workers = defaultWorkers
	}
	if c.Copy.Workers > maxWorkers {
		c.Copy.Workers = maxWorkers
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
	if value, ok := os.LookupEnv("RECSORT_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
