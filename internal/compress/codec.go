package compress

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Encoding identifies a compression format by its HTTP Content-Encoding token.
type Encoding string

// Supported encodings.
const (
	// Gzip is the format every browser's DecompressionStream understands.
	Gzip Encoding = "gzip"
	// Brotli gives the smallest files for wasm but needs server support to be useful.
	Brotli Encoding = "br"
	// Zstd decompresses fastest; browser support is recent.
	Zstd Encoding = "zstd"
)

// All lists the supported encodings in order of preference when serving.
var All = []Encoding{Brotli, Zstd, Gzip}

// ParseEncoding converts a user supplied name into an Encoding.
// Common aliases ("gz", "brotli", "zst") are accepted.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gzip", "gz":
		return Gzip, nil
	case "br", "brotli":
		return Brotli, nil
	case "zstd", "zst":
		return Zstd, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

// String returns the Content-Encoding token.
func (e Encoding) String() string {
	return string(e)
}

// ContentEncoding returns the HTTP Content-Encoding header value.
func (e Encoding) ContentEncoding() string {
	return string(e)
}

// Extension returns the file suffix of the compressed sibling, including the dot.
func (e Encoding) Extension() string {
	switch e {
	case Gzip:
		return ".gz"
	case Brotli:
		return ".br"
	case Zstd:
		return ".zst"
	default:
		return ""
	}
}

// FromExtension returns the encoding implied by the suffix of path.
// ok is false when the path has no compressed suffix.
func FromExtension(path string) (enc Encoding, ok bool) {
	switch filepath.Ext(path) {
	case ".gz":
		return Gzip, true
	case ".br":
		return Brotli, true
	case ".zst":
		return Zstd, true
	default:
		return "", false
	}
}

// NewWriter returns a writer compressing into w.
// A level of zero or less selects the strongest level of the codec; artifacts
// are compressed once and downloaded many times.
func NewWriter(enc Encoding, w io.Writer, level int) (io.WriteCloser, error) {
	switch enc {
	case Gzip:
		if level <= 0 {
			level = gzip.BestCompression
		}
		return gzip.NewWriterLevel(w, level)
	case Brotli:
		if level <= 0 {
			level = brotli.BestCompression
		}
		return brotli.NewWriterLevel(w, level), nil
	case Zstd:
		zl := zstd.SpeedBestCompression
		if level > 0 {
			zl = zstd.EncoderLevelFromZstd(level)
		}
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zl))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, string(enc))
	}
}

// NewReader returns a reader decompressing r.
func NewReader(enc Encoding, r io.Reader) (io.ReadCloser, error) {
	switch enc {
	case Gzip:
		return gzip.NewReader(r)
	case Brotli:
		return io.NopCloser(brotli.NewReader(r)), nil
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, string(enc))
	}
}
