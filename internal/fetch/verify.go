package fetch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/assetship/internal/compress"
)

// VerifyResult describes a successful or failed verification.
type VerifyResult struct {
	URL          string            `json:"url"`
	LocalPath    string            `json:"local_path"`
	Encoding     compress.Encoding `json:"encoding,omitempty"`
	BySuffix     bool              `json:"by_suffix,omitempty"`
	TransferSize int64             `json:"transfer_size"`
	DecodedSize  int64             `json:"decoded_size"`
	RemoteDigest string            `json:"remote_digest"`
	LocalDigest  string            `json:"local_digest"`
	ContentType  string            `json:"content_type,omitempty"`
	IsWasm       bool              `json:"is_wasm"`
}

// Match reports whether both digests are equal.
func (r *VerifyResult) Match() bool {
	return r.RemoteDigest != "" && r.RemoteDigest == r.LocalDigest
}

// Verify fetches rawURL and compares the decoded bytes with localPath.
// localPath may itself be a compressed sibling; it is decoded by suffix
// before hashing. For URLs naming a .wasm file the magic number is checked.
func (c *Client) Verify(ctx context.Context, rawURL, localPath string) (*VerifyResult, error) {
	localDigest, err := localDigestOf(localPath)
	if err != nil {
		return nil, err
	}

	resp, err := c.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	remoteDigest, err := compress.Digest(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{
		URL:          rawURL,
		LocalPath:    localPath,
		Encoding:     resp.Encoding,
		BySuffix:     resp.DecodedBySuffix,
		TransferSize: resp.TransferSize,
		DecodedSize:  int64(len(resp.Body)),
		RemoteDigest: remoteDigest,
		LocalDigest:  localDigest,
		ContentType:  resp.Header.Get("Content-Type"),
		IsWasm:       CheckWasm(resp.Body) == nil,
	}

	if isWasmURL(rawURL) && !result.IsWasm {
		return result, fmt.Errorf("%w: %s", ErrNotWasm, rawURL)
	}
	if !result.Match() {
		return result, fmt.Errorf("%w: %s", ErrDigestMismatch, rawURL)
	}
	return result, nil
}

func localDigestOf(p string) (string, error) {
	if enc, ok := compress.FromExtension(p); ok {
		f, err := os.Open(p) //nolint:gosec // path given on the command line
		if err != nil {
			return "", err
		}
		defer f.Close()
		return compress.DigestDecoded(f, enc)
	}
	return compress.DigestFile(p)
}

// isWasmURL reports whether the URL path names a wasm file, optionally compressed.
func isWasmURL(rawURL string) bool {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if enc, ok := compress.FromExtension(p); ok {
		p = strings.TrimSuffix(p, enc.Extension())
	}
	return filepath.Ext(p) == ".wasm"
}
