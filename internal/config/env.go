package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// fileEnv holds the environment variables that override project file values.
// CI jobs use them to redirect output without editing the project file.
type fileEnv struct {
	SourceDir string   `env:"ASSETSHIP_SOURCE_DIR"`
	DestDir   string   `env:"ASSETSHIP_DEST_DIR"`
	SiteDir   string   `env:"ASSETSHIP_SITE_DIR"`
	ServeAddr string   `env:"ASSETSHIP_SERVE_ADDR"`
	Encodings []string `env:"ASSETSHIP_ENCODINGS" envSeparator:","`
}

// ApplyEnv overrides project file values with ASSETSHIP_* environment variables.
// Unset variables leave the file untouched.
func ApplyEnv(f *File) error {
	var e fileEnv
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if e.SourceDir != "" {
		f.SourceDir = e.SourceDir
	}
	if e.DestDir != "" {
		f.DestDir = e.DestDir
	}
	if e.SiteDir != "" {
		f.Docs.SiteDir = e.SiteDir
	}
	if e.ServeAddr != "" {
		f.Serve.Addr = e.ServeAddr
	}
	if len(e.Encodings) > 0 {
		f.Defaults.Encodings = e.Encodings
		for i := range f.Artifacts {
			f.Artifacts[i].Encodings = nil
		}
	}
	return nil
}
