package compress

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/sha3"
)

// Result describes one compressed sibling written by CompressFile.
type Result struct {
	// Encoding is the format of the sibling.
	Encoding Encoding

	// Path is the path of the compressed sibling (source path + extension).
	Path string

	// OriginalSize is the size of the source file in bytes.
	OriginalSize int64

	// Size is the size of the compressed sibling in bytes.
	Size int64

	// Digest is the SHA3-256 hex digest of the original bytes.
	Digest string

	// Verified is true when the sibling was decompressed and matched the original.
	Verified bool
}

// Ratio returns compressed size divided by original size.
func (r *Result) Ratio() float64 {
	if r.OriginalSize == 0 {
		return 0
	}
	return float64(r.Size) / float64(r.OriginalSize)
}

// Option configures CompressFile.
type Option func(*options)

type options struct {
	level  int
	verify bool
}

// WithLevel sets the compression level. Zero selects the strongest level.
func WithLevel(level int) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithVerify controls whether the sibling is decompressed and compared after writing.
// Verification is on by default.
func WithVerify(verify bool) Option {
	return func(o *options) {
		o.verify = verify
	}
}

// CompressFile writes src+enc.Extension() next to src.
// The sibling is written to a temporary file and renamed into place, so a
// failed or cancelled run never leaves a truncated sibling behind.
func CompressFile(ctx context.Context, src string, enc Encoding, opts ...Option) (*Result, error) {
	o := &options{verify: true}
	for _, opt := range opts {
		opt(o)
	}

	in, err := os.Open(src) //nolint:gosec // path comes from the project file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, src)
		}
		return nil, err
	}
	defer in.Close()

	dst := src + enc.Extension()
	tmp, err := os.CreateTemp(filepath.Dir(src), "."+filepath.Base(dst)+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	// Siblings are published, so they get the usual file mode rather than CreateTemp's 0600.
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return nil, err
	}

	zw, err := NewWriter(enc, tmp, o.level)
	if err != nil {
		_ = tmp.Close()
		return nil, err
	}

	hasher := sha3.New256()
	originalSize, err := io.Copy(zw, io.TeeReader(&ctxReader{ctx: ctx, r: in}, hasher))
	if err != nil {
		_ = zw.Close()
		_ = tmp.Close()
		return nil, fmt.Errorf("failed to compress %s: %w", src, err)
	}
	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("failed to flush %s stream: %w", enc, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tmpName, dst); err != nil {
		return nil, fmt.Errorf("failed to move compressed file into place: %w", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Encoding:     enc,
		Path:         dst,
		OriginalSize: originalSize,
		Size:         info.Size(),
		Digest:       hex.EncodeToString(hasher.Sum(nil)),
	}

	if o.verify {
		if err := VerifyFile(dst, enc, result.Digest); err != nil {
			return result, err
		}
		result.Verified = true
	}

	return result, nil
}

// VerifyFile decompresses path and checks its digest against want.
func VerifyFile(path string, enc Encoding, want string) error {
	f, err := os.Open(path) //nolint:gosec // path was produced by CompressFile
	if err != nil {
		return err
	}
	defer f.Close()

	got, err := DigestDecoded(f, enc)
	if err != nil {
		return fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	if got != want {
		return fmt.Errorf("%w: %s", ErrRoundTripMismatch, path)
	}
	return nil
}

// Digest returns the SHA3-256 hex digest of everything read from r.
func Digest(r io.Reader) (string, error) {
	h := sha3.New256()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestFile returns the SHA3-256 hex digest of a file.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // caller controlled path
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Digest(f)
}

// DigestDecoded decompresses r with enc and returns the digest of the decoded bytes.
func DigestDecoded(r io.Reader, enc Encoding) (string, error) {
	zr, err := NewReader(enc, r)
	if err != nil {
		return "", err
	}
	defer zr.Close()
	return Digest(zr)
}

// Decode decompresses b entirely.
func Decode(enc Encoding, b []byte) ([]byte, error) {
	zr, err := NewReader(enc, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
