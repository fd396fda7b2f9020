package testsupport

import (
	"path/filepath"
	"testing"

	"recsort/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Journal.Path = filepath.Join(base, "state", "journal.db")
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithMaxPerDir overrides the shard size.
func WithMaxPerDir(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sorting.MaxPerDir = n
	}
}

// WithSplitMonths enables month folders.
func WithSplitMonths() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sorting.SplitMonths = true
	}
}

// WithDateTimeFilename enables timestamp-derived file names.
func WithDateTimeFilename() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sorting.DateTimeFilename = true
	}
}

// WithJournal enables the run journal under the test base directory.
func WithJournal() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = true
	}
}

// WithWorkers sets the copy worker count.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Copy.Workers = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
