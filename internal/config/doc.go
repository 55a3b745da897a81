// Package config provides configuration structures and utilities for assetship.
// It defines the runtime options of a single invocation (Config) and the
// project description read from .assetship.yaml (File): where the compiler
// leaves its artifacts, where they are shipped to, how they are compressed,
// which loader strings are patched, and how the documentation site and the
// development server are set up.
package config
