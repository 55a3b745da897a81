package compress

import "errors"

var (
	// ErrUnknownEncoding is returned for encodings other than gzip, br and zstd.
	ErrUnknownEncoding = errors.New("unknown encoding")

	// ErrRoundTripMismatch is returned when the decompressed bytes differ from the original.
	ErrRoundTripMismatch = errors.New("decompressed content does not match the original")

	// ErrSourceNotFound is returned when the file to compress does not exist.
	ErrSourceNotFound = errors.New("source file not found")
)
