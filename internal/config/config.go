package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "assetship"

	// DefaultSourceDir is where the WebAssembly toolchain leaves release artifacts
	// when building a Swift package with a wasm32 SDK.
	DefaultSourceDir = ".build/release"

	// DefaultDestDir is the documentation assets folder the site generator copies verbatim.
	DefaultDestDir = "docs/assets/wasm"

	// DefaultConcurrency is the number of artifacts processed at once.
	// Compression is CPU bound, so a small value is enough for typical projects.
	DefaultConcurrency = 4

	// DefaultBuildTimeout bounds the compile command. Release builds of large Swift
	// packages for wasm routinely take several minutes.
	DefaultBuildTimeout = 20 * time.Minute

	// DefaultServeAddr is the development server listen address.
	DefaultServeAddr = "127.0.0.1:8000"

	// DefaultSiteDir is the output directory of the documentation generator.
	DefaultSiteDir = "site"

	// DefaultDebounce collapses bursts of file system events into one rebuild.
	DefaultDebounce = 300 * time.Millisecond

	// DefaultEncoding is used when an artifact lists no encodings.
	DefaultEncoding = "gzip"
)

// Config holds the runtime options of a single assetship invocation.
// It is populated from CLI flags; the project description lives in File.
type Config struct {
	// ConfigFilePath is the path to the project file.
	// If empty, .assetship.yaml is searched in the current and home directories.
	ConfigFilePath string

	// Project is the loaded project file.
	Project *File

	// Verbose enables debug logging.
	Verbose bool

	// SkipBuild skips the compile command and only post-processes existing artifacts.
	SkipBuild bool

	// Concurrency is the number of artifact pipelines run at once.
	Concurrency int

	// BuildTimeout bounds the compile command.
	BuildTimeout time.Duration

	// JSONReport selects JSON report output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// DBDir is the directory holding the build history database.
	DBDir string

	// SaveToDB records the build report in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Concurrency:  DefaultConcurrency,
		BuildTimeout: DefaultBuildTimeout,
		DBDir:        XDGDataDir(),
		SaveToDB:     true,
	}
}

// XDGDataDir returns the XDG data directory for assetship.
// On Linux: ~/.local/share/assetship
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for assetship.
// On Linux: ~/.config/assetship
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// The first problem found is returned.
func (c *Config) Validate() error {
	if c.Project == nil || len(c.Project.Artifacts) == 0 {
		return ErrNoArtifacts
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.BuildTimeout <= 0 {
		return ErrInvalidBuildTimeout
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return c.Project.Validate()
}
