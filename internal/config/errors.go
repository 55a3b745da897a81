package config

import "errors"

// Configuration validation errors.
// Callers use errors.Is to branch on them; the messages are user facing.
var (
	// ErrNoArtifacts is returned when the project file lists no artifacts.
	ErrNoArtifacts = errors.New("no artifacts configured: add at least one entry under 'artifacts'")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidBuildTimeout is returned when the build timeout is not positive.
	ErrInvalidBuildTimeout = errors.New("invalid build timeout: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown are given.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrUnknownEncoding is returned when an artifact names an unsupported encoding.
	ErrUnknownEncoding = errors.New("unknown encoding: use gzip, br or zstd")

	// ErrSameSourceAndDest is returned when artifacts would be copied onto themselves.
	ErrSameSourceAndDest = errors.New("sourceDir and destDir must differ")

	// ErrEmptyArtifactName is returned when an artifact entry has no name.
	ErrEmptyArtifactName = errors.New("artifact name must not be empty")

	// ErrDuplicateArtifact is returned when two artifact entries share a name.
	ErrDuplicateArtifact = errors.New("duplicate artifact name")

	// ErrEmptyPatchFind is returned when a patch has nothing to look for.
	ErrEmptyPatchFind = errors.New("patch 'find' must not be empty")
)
