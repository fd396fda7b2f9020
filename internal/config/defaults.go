package config

const (
	defaultConfigPath        = "~/.config/recsort/config.toml"
	defaultLogDir            = "~/.local/share/recsort/logs"
	defaultStateDir          = "~/.local/share/recsort"
	defaultJournalFile       = "journal.db"
	defaultLogRetentionDays  = 30
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultMaxPerDir         = 500
	defaultMinEventDeltaDays = 4
	defaultUnsortedDir       = "date-unknown"
	defaultNoExtensionDir    = "_no_extension"
	defaultMinYear           = 1990
	defaultFutureSlackHours  = 24
	defaultWorkers           = 1
	maxWorkers               = 32
)

// defaultImageExtensions lists the formats photorec recovers that may carry
// an EXIF capture time. Formats goexif cannot read still classify as images
// and land in the unsorted bucket.
var defaultImageExtensions = []string{
	"jpg", "jpeg", "jpe", "jfif",
	"tif", "tiff",
	"png", "gif", "bmp", "webp",
	"heic", "heif",
	"dng", "cr2", "nef", "nrw", "arw", "srw", "orf", "rw2", "pef", "raf",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Sorting: Sorting{
			MaxPerDir:         defaultMaxPerDir,
			MinEventDeltaDays: defaultMinEventDeltaDays,
			UnsortedDir:       defaultUnsortedDir,
			NoExtensionDir:    defaultNoExtensionDir,
			ImageExtensions:   append([]string(nil), defaultImageExtensions...),
		},
		Metadata: Metadata{
			MinYear:          defaultMinYear,
			FutureSlackHours: defaultFutureSlackHours,
		},
		Copy: Copy{
			Workers: defaultWorkers,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
