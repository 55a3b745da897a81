package devserver

import "errors"

var (
	// ErrServeDirNotFound is returned when the directory to serve does not exist.
	ErrServeDirNotFound = errors.New("serve directory not found")

	// ErrNoWatchDirs is returned when a Watcher is started without directories.
	ErrNoWatchDirs = errors.New("no directories to watch")
)
