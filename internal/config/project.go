package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/nao1215/assetship/internal/compress"
)

// BuildConfig describes the compile command that produces the artifacts.
type BuildConfig struct {
	// Command is the argv of the compile command. Empty means no build step.
	Command []string `yaml:"command,omitempty"`

	// Dir is the working directory of the command, relative to the project file.
	Dir string `yaml:"dir,omitempty"`

	// Env holds extra environment variables for the command.
	Env map[string]string `yaml:"env,omitempty"`

	// Timeout overrides the --build-timeout flag when non-zero.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// PatchConfig describes one find-and-replace in a generated text file.
type PatchConfig struct {
	// File is the file to patch, relative to destDir.
	File string `yaml:"file"`

	// Find is the literal text to look for. Only its first occurrence is replaced.
	Find string `yaml:"find"`

	// Replace is the literal replacement text.
	Replace string `yaml:"replace"`
}

// ArtifactConfig describes how one build artifact is shipped.
type ArtifactConfig struct {
	// Name is the file name of the artifact inside sourceDir, e.g. "App.wasm".
	Name string `yaml:"name"`

	// Loader is the generated loader script next to the artifact in destDir.
	// When set and no patches are given, the default loader patch is applied.
	Loader string `yaml:"loader,omitempty"`

	// Encodings lists the compressed siblings to produce (gzip, br, zstd).
	Encodings []string `yaml:"encodings,omitempty"`

	// Level is the compression level; zero selects the best level for each codec.
	Level int `yaml:"level,omitempty"`

	// KeepOriginal keeps the uncompressed artifact in destDir.
	// Pointer so that an explicit false in an entry can override defaults.
	KeepOriginal *bool `yaml:"keepOriginal,omitempty"`

	// Patches are explicit find-and-replace edits.
	Patches []PatchConfig `yaml:"patches,omitempty"`
}

// KeepsOriginal reports whether the uncompressed artifact is kept.
func (a ArtifactConfig) KeepsOriginal() bool {
	return a.KeepOriginal != nil && *a.KeepOriginal
}

// ParsedEncodings converts the configured encodings, falling back to gzip.
func (a ArtifactConfig) ParsedEncodings() ([]compress.Encoding, error) {
	names := a.Encodings
	if len(names) == 0 {
		names = []string{DefaultEncoding}
	}
	encs := make([]compress.Encoding, 0, len(names))
	seen := make(map[compress.Encoding]bool, len(names))
	for _, name := range names {
		enc, err := compress.ParseEncoding(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
		}
		if seen[enc] {
			continue
		}
		seen[enc] = true
		encs = append(encs, enc)
	}
	return encs, nil
}

// DocsConfig configures the documentation site plugin.
type DocsConfig struct {
	// SiteDir is the built site produced by the documentation generator.
	SiteDir string `yaml:"siteDir,omitempty"`

	// AssetsDir is the site-relative directory the artifacts are copied into.
	AssetsDir string `yaml:"assetsDir,omitempty"`

	// Pages lists page-path substrings; matching pages get the loader injected.
	Pages []string `yaml:"pages,omitempty"`

	// Script is the site-relative URL of the loader script injected into pages.
	Script string `yaml:"script,omitempty"`

	// Replacements are literal text replacements applied to matching pages.
	Replacements map[string]string `yaml:"replacements,omitempty"`

	// Copy lists extra files (relative to destDir) copied into AssetsDir.
	Copy []string `yaml:"copy,omitempty"`
}

// ServeConfig configures the development server.
type ServeConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr,omitempty"`

	// Dir is the directory served; defaults to docs.siteDir.
	Dir string `yaml:"dir,omitempty"`

	// Watch rebuilds on source changes.
	Watch bool `yaml:"watch,omitempty"`

	// WatchDirs are watched for changes; defaults to the build directory.
	WatchDirs []string `yaml:"watchDirs,omitempty"`

	// Debounce collapses bursts of events into one rebuild.
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

// File represents the structure of the .assetship.yaml project file.
type File struct {
	// Name identifies the project in the build history. Defaults to the directory name.
	Name string `yaml:"name,omitempty"`

	// Build is the compile step.
	Build BuildConfig `yaml:"build,omitempty"`

	// SourceDir is where the compiler writes the artifacts.
	SourceDir string `yaml:"sourceDir,omitempty"`

	// DestDir is where the artifacts, compressed siblings and loaders end up.
	DestDir string `yaml:"destDir,omitempty"`

	// Defaults are applied to every artifact unless overridden.
	Defaults ArtifactConfig `yaml:"defaults,omitempty"`

	// Artifacts lists the shipped build artifacts.
	Artifacts []ArtifactConfig `yaml:"artifacts,omitempty"`

	// Docs configures the documentation site plugin.
	Docs DocsConfig `yaml:"docs,omitempty"`

	// Serve configures the development server.
	Serve ServeConfig `yaml:"serve,omitempty"`

	// baseDir is the directory containing the project file. Relative paths resolve against it.
	baseDir string
}

// NewFile returns a project file with defaults filled in.
func NewFile() *File {
	f := &File{}
	f.applyDefaults()
	return f
}

// applyDefaults fills zero fields with their defaults.
func (f *File) applyDefaults() {
	if f.SourceDir == "" {
		f.SourceDir = DefaultSourceDir
	}
	if f.DestDir == "" {
		f.DestDir = DefaultDestDir
	}
	if f.Docs.SiteDir == "" {
		f.Docs.SiteDir = DefaultSiteDir
	}
	if f.Serve.Addr == "" {
		f.Serve.Addr = DefaultServeAddr
	}
	if f.Serve.Debounce == 0 {
		f.Serve.Debounce = DefaultDebounce
	}
}

// BaseDir returns the directory relative paths are resolved against.
func (f *File) BaseDir() string {
	if f.baseDir == "" {
		return "."
	}
	return f.baseDir
}

// SetBaseDir sets the directory relative paths are resolved against.
func (f *File) SetBaseDir(dir string) {
	f.baseDir = dir
}

// Resolve makes p absolute with respect to the project file location.
func (f *File) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(f.BaseDir(), p)
}

// ProjectName returns the project name used in the build history.
func (f *File) ProjectName() string {
	if f.Name != "" {
		return f.Name
	}
	abs, err := filepath.Abs(f.BaseDir())
	if err != nil {
		return AppName
	}
	return filepath.Base(abs)
}

// ServeDir returns the directory served by the development server.
func (f *File) ServeDir() string {
	if f.Serve.Dir != "" {
		return f.Resolve(f.Serve.Dir)
	}
	return f.Resolve(f.Docs.SiteDir)
}

// ArtifactFor returns the configuration of the named artifact merged with defaults.
// Non-zero fields of the entry override defaults; patches are appended to the default patches.
func (f *File) ArtifactFor(name string) ArtifactConfig {
	result := f.Defaults
	result.Name = name
	result.Patches = append([]PatchConfig(nil), f.Defaults.Patches...)

	for _, a := range f.Artifacts {
		if a.Name != name {
			continue
		}
		if a.Loader != "" {
			result.Loader = a.Loader
		}
		if len(a.Encodings) > 0 {
			result.Encodings = a.Encodings
		}
		if a.Level != 0 {
			result.Level = a.Level
		}
		if a.KeepOriginal != nil {
			result.KeepOriginal = a.KeepOriginal
		}
		result.Patches = append(result.Patches, a.Patches...)
		break
	}

	return result
}

// ArtifactNames returns the configured artifact names in file order.
func (f *File) ArtifactNames() []string {
	names := make([]string, 0, len(f.Artifacts))
	for _, a := range f.Artifacts {
		names = append(names, a.Name)
	}
	return names
}

// Validate checks the project file for mistakes that would fail the build midway.
func (f *File) Validate() error {
	if len(f.Artifacts) == 0 {
		return ErrNoArtifacts
	}
	if filepath.Clean(f.Resolve(f.SourceDir)) == filepath.Clean(f.Resolve(f.DestDir)) {
		return ErrSameSourceAndDest
	}
	seen := make(map[string]struct{}, len(f.Artifacts))
	for _, a := range f.Artifacts {
		if a.Name == "" {
			return ErrEmptyArtifactName
		}
		if _, dup := seen[a.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateArtifact, a.Name)
		}
		seen[a.Name] = struct{}{}
		merged := f.ArtifactFor(a.Name)
		if _, err := merged.ParsedEncodings(); err != nil {
			return fmt.Errorf("artifact %s: %w", a.Name, err)
		}
		for _, p := range merged.Patches {
			if p.Find == "" {
				return fmt.Errorf("artifact %s: %w", a.Name, ErrEmptyPatchFind)
			}
		}
	}
	return nil
}
