package fetch

import "errors"

var (
	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrNotWasm is returned when decoded bytes lack the WebAssembly magic number.
	ErrNotWasm = errors.New("not a WebAssembly module")

	// ErrDigestMismatch is returned when the fetched bytes differ from the local artifact.
	ErrDigestMismatch = errors.New("fetched content does not match the local artifact")

	// ErrUnsupportedEncoding is returned for a Content-Encoding the client cannot
	// undo, including chained codings such as "gzip, br".
	ErrUnsupportedEncoding = errors.New("unsupported Content-Encoding")

	// ErrBodyTooLarge is returned when the response exceeds the configured size limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)
