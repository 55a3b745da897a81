package pipeline

import "errors"

var (
	// ErrArtifactNotFound is returned when the compiler did not produce an artifact.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrBuildFailed is returned when the compile command exits with a non-zero status.
	ErrBuildFailed = errors.New("build command failed")

	// ErrEmptyCommand is returned when a build step has no command to run.
	ErrEmptyCommand = errors.New("build command is empty")
)
