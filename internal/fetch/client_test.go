package fetch

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/assetship/internal/compress"
)

var wasmBytes = append([]byte("\x00asm\x01\x00\x00\x00"), bytes.Repeat([]byte("function body "), 512)...)

func encode(t *testing.T, enc compress.Encoding, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := compress.NewWriter(enc, &buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write(b); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// newServer serves body at every path with the given Content-Encoding header.
// It records the Accept-Encoding of the last request.
func newServer(t *testing.T, body []byte, contentEncoding string, accepted *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if accepted != nil {
			*accepted = r.Header.Get("Accept-Encoding")
		}
		if r.URL.Path == "/missing.wasm" {
			http.NotFound(w, r)
			return
		}
		if contentEncoding != "" {
			w.Header().Set("Content-Encoding", contentEncoding)
		}
		w.Header().Set("Content-Type", "application/wasm")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Fetch(t *testing.T) {
	t.Parallel()

	for _, enc := range []compress.Encoding{compress.Gzip, compress.Brotli, compress.Zstd} {
		t.Run("decodes by Content-Encoding "+enc.String(), func(t *testing.T) {
			t.Parallel()

			var accepted string
			srv := newServer(t, encode(t, enc, wasmBytes), enc.ContentEncoding(), &accepted)

			resp, err := NewClient().Fetch(context.Background(), srv.URL+"/App.wasm")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !resp.Decoded || resp.DecodedBySuffix {
				t.Errorf("expected header decode, got Decoded=%v BySuffix=%v", resp.Decoded, resp.DecodedBySuffix)
			}
			if resp.Encoding != enc {
				t.Errorf("Encoding = %s, want %s", resp.Encoding, enc)
			}
			if !bytes.Equal(resp.Body, wasmBytes) {
				t.Error("decoded body differs from the original")
			}
			if resp.TransferSize >= int64(len(wasmBytes)) {
				t.Errorf("expected transfer size below %d, got %d", len(wasmBytes), resp.TransferSize)
			}
			if accepted != "gzip, br, zstd" {
				t.Errorf("Accept-Encoding = %q", accepted)
			}
		})
	}

	t.Run("decodes by URL suffix without header", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, encode(t, compress.Gzip, wasmBytes), "", nil)

		resp, err := NewClient().Fetch(context.Background(), srv.URL+"/App.wasm.gz")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !resp.DecodedBySuffix {
			t.Error("expected suffix decode")
		}
		if !bytes.Equal(resp.Body, wasmBytes) {
			t.Error("decoded body differs from the original")
		}
	})

	t.Run("plain body is returned as is", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, wasmBytes, "", nil)

		resp, err := NewClient().Fetch(context.Background(), srv.URL+"/App.wasm")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Decoded {
			t.Error("expected no decode")
		}
		if !bytes.Equal(resp.Body, wasmBytes) {
			t.Error("body differs from the original")
		}
	})

	t.Run("non-2xx status", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, wasmBytes, "", nil)

		_, err := NewClient().Fetch(context.Background(), srv.URL+"/missing.wasm")
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
		}
	})

	t.Run("body size limit applies to decoded bytes", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, encode(t, compress.Gzip, wasmBytes), "gzip", nil)

		_, err := NewClient(WithMaxBodySize(1024)).Fetch(context.Background(), srv.URL+"/App.wasm")
		if !errors.Is(err, ErrBodyTooLarge) {
			t.Fatalf("expected ErrBodyTooLarge, got %v", err)
		}
	})

	t.Run("chained or unknown Content-Encoding is rejected", func(t *testing.T) {
		t.Parallel()

		twice := encode(t, compress.Brotli, encode(t, compress.Gzip, wasmBytes))
		for _, header := range []string{"gzip, br", "br,gzip", "deflate"} {
			srv := newServer(t, twice, header, nil)

			_, err := NewClient().Fetch(context.Background(), srv.URL+"/App.wasm.gz")
			if !errors.Is(err, ErrUnsupportedEncoding) {
				t.Errorf("%q: expected ErrUnsupportedEncoding, got %v", header, err)
			}
		}
	})

	t.Run("identity header falls back to the URL suffix", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, encode(t, compress.Zstd, wasmBytes), "identity", nil)

		resp, err := NewClient().Fetch(context.Background(), srv.URL+"/App.wasm.zst")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !resp.DecodedBySuffix || !bytes.Equal(resp.Body, wasmBytes) {
			t.Errorf("expected suffix decode of the zstd body, got BySuffix=%v", resp.DecodedBySuffix)
		}
	})

	t.Run("corrupt compressed body", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, []byte("definitely not gzip"), "gzip", nil)

		if _, err := NewClient().Fetch(context.Background(), srv.URL+"/App.wasm"); err == nil {
			t.Fatal("expected decode error")
		}
	})
}

func TestClient_Verify(t *testing.T) {
	t.Parallel()

	writeLocal := func(t *testing.T, name string, b []byte) string {
		t.Helper()
		p := filepath.Join(t.TempDir(), name)
		if err := os.WriteFile(p, b, 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}

	t.Run("matching artifact", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, encode(t, compress.Gzip, wasmBytes), "gzip", nil)
		local := writeLocal(t, "App.wasm", wasmBytes)

		result, err := NewClient().Verify(context.Background(), srv.URL+"/App.wasm", local)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Match() || !result.IsWasm {
			t.Errorf("unexpected result: %+v", result)
		}
		if result.ContentType != "application/wasm" {
			t.Errorf("ContentType = %q", result.ContentType)
		}
	})

	t.Run("chained coding is reported instead of a digest mismatch", func(t *testing.T) {
		t.Parallel()

		twice := encode(t, compress.Brotli, encode(t, compress.Gzip, wasmBytes))
		srv := newServer(t, twice, "gzip, br", nil)
		local := writeLocal(t, "App.wasm", wasmBytes)

		_, err := NewClient().Verify(context.Background(), srv.URL+"/App.wasm.gz", local)
		if !errors.Is(err, ErrUnsupportedEncoding) {
			t.Fatalf("expected ErrUnsupportedEncoding, got %v", err)
		}
		if errors.Is(err, ErrDigestMismatch) {
			t.Error("did not expect ErrDigestMismatch")
		}
	})

	t.Run("local compressed sibling is decoded before hashing", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, encode(t, compress.Brotli, wasmBytes), "br", nil)
		local := writeLocal(t, "App.wasm.zst", encode(t, compress.Zstd, wasmBytes))

		result, err := NewClient().Verify(context.Background(), srv.URL+"/App.wasm", local)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Match() {
			t.Error("expected digests to match")
		}
	})

	t.Run("different content", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, wasmBytes, "", nil)
		local := writeLocal(t, "App.wasm", append([]byte("\x00asm"), "other"...))

		result, err := NewClient().Verify(context.Background(), srv.URL+"/App.wasm", local)
		if !errors.Is(err, ErrDigestMismatch) {
			t.Fatalf("expected ErrDigestMismatch, got %v", err)
		}
		if result == nil || result.Match() {
			t.Error("expected a non-matching result")
		}
	})

	t.Run("html error page instead of wasm", func(t *testing.T) {
		t.Parallel()

		page := []byte("<html>404</html>")
		srv := newServer(t, page, "", nil)
		local := writeLocal(t, "App.wasm", page)

		_, err := NewClient().Verify(context.Background(), srv.URL+"/App.wasm?v=1", local)
		if !errors.Is(err, ErrNotWasm) {
			t.Fatalf("expected ErrNotWasm, got %v", err)
		}
	})

	t.Run("missing local file", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, wasmBytes, "", nil)
		_, err := NewClient().Verify(context.Background(), srv.URL+"/App.wasm", filepath.Join(t.TempDir(), "none.wasm"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected not-exist error, got %v", err)
		}
	})
}

func TestCheckWasm(t *testing.T) {
	t.Parallel()

	if err := CheckWasm(wasmBytes); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := CheckWasm([]byte("\x00as")); !errors.Is(err, ErrNotWasm) {
		t.Errorf("expected ErrNotWasm for short input, got %v", err)
	}
	if err := CheckWasm([]byte("PK\x03\x04")); !errors.Is(err, ErrNotWasm) {
		t.Errorf("expected ErrNotWasm, got %v", err)
	}
}

func TestIsWasmURL(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"http://x/App.wasm":        true,
		"http://x/App.wasm.gz":     true,
		"http://x/App.wasm.br?v=2": true,
		"http://x/App.js":          false,
		"http://x/index.html#wasm": false,
	}
	for in, want := range tests {
		if got := isWasmURL(in); got != want {
			t.Errorf("isWasmURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestClient_SOCKS5(t *testing.T) {
	t.Parallel()

	srv := newServer(t, wasmBytes, "", nil)

	// Reserve a port with nothing listening on it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	deadProxy := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := NewClient().Fetch(context.Background(), srv.URL+"/App.wasm"); err != nil {
		t.Fatalf("direct fetch failed: %v", err)
	}
	if _, err := NewClient(WithSOCKS5(deadProxy)).Fetch(context.Background(), srv.URL+"/App.wasm"); err == nil {
		t.Error("expected the request to go through the unreachable proxy and fail")
	}
}
