package patch

import "errors"

var (
	// ErrFileNotFound is returned when the file to patch does not exist.
	ErrFileNotFound = errors.New("file to patch not found")

	// ErrEmptyFind is returned when the search text is empty.
	ErrEmptyFind = errors.New("search text is empty")

	// ErrNoStreamDecoder is returned by LoaderPatch for encodings browsers
	// cannot decode with DecompressionStream.
	ErrNoStreamDecoder = errors.New("encoding has no DecompressionStream decoder")
)
