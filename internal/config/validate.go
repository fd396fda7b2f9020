package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSorting(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSorting() error {
	if c.Sorting.MaxPerDir < 1 {
		return fmt.Errorf("sorting.max_per_dir must be at least 1, got %d", c.Sorting.MaxPerDir)
	}
	if c.Sorting.MinEventDeltaDays < 0 {
		return errors.New("sorting.min_event_delta_days must be >= 0")
	}
	if err := validateFolderName("sorting.unsorted_dir", c.Sorting.UnsortedDir); err != nil {
		return err
	}
	if err := validateFolderName("sorting.no_extension_dir", c.Sorting.NoExtensionDir); err != nil {
		return err
	}
	if c.Sorting.UnsortedDir == c.Sorting.NoExtensionDir {
		return errors.New("sorting.unsorted_dir and sorting.no_extension_dir must differ")
	}
	return nil
}

func (c *Config) validateMetadata() error {
	if c.Metadata.MinYear < 1900 {
		return errors.New("metadata.min_year must be >= 1900")
	}
	if c.Metadata.FutureSlackHours < 0 {
		return errors.New("metadata.future_slack_hours must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}

// validateFolderName rejects names that would escape the destination root or
// be mistaken for a year folder.
func validateFolderName(key, name string) error {
	if name == "" {
		return fmt.Errorf("%s must be set", key)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%s must be a single folder name, got %q", key, name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("%s must not be a hidden folder, got %q", key, name)
	}
	if isAllDigits(name) {
		return fmt.Errorf("%s must not be numeric, got %q", key, name)
	}
	if idx := strings.LastIndexByte(name, '-'); idx >= 0 && isAllDigits(name[idx+1:]) {
		return fmt.Errorf("%s must not end in -<number>, which names overflow shards (got %q)", key, name)
	}
	return nil
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
