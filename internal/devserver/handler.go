package devserver

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/nao1215/assetship/internal/compress"
	"github.com/nao1215/assetship/internal/patch"
)

// Handler serves static files with WebAssembly-aware headers.
type Handler struct {
	root   http.FileSystem
	files  http.Handler
	logger *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets a custom logger for the handler.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// CheckDir returns ErrServeDirNotFound unless dir is an existing directory.
func CheckDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrServeDirNotFound, dir)
	}
	return nil
}

// NewHandler returns a handler serving dir.
func NewHandler(dir string, opts ...HandlerOption) *Handler {
	root := http.Dir(dir)
	h := &Handler{
		root:   root,
		files:  http.FileServer(root),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
//
//   - /x.wasm.gz, .br, .zst are sent as application/wasm with the matching Content-Encoding.
//   - /x.wasm is answered from the best precompressed sibling the client accepts,
//     then from the raw file, then by decoding a sibling on the fly.
//   - everything else goes to http.FileServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	name := path.Clean("/" + r.URL.Path)

	if enc, ok := compress.FromExtension(name); ok && strings.HasSuffix(strings.TrimSuffix(name, enc.Extension()), ".wasm") {
		if h.serveEncoded(w, r, name, enc) {
			return
		}
		http.NotFound(w, r)
		return
	}

	if strings.HasSuffix(name, ".wasm") {
		w.Header().Add("Vary", "Accept-Encoding")
		accept := r.Header.Get("Accept-Encoding")
		for _, enc := range compress.All {
			if acceptsEncoding(accept, enc) && h.serveEncoded(w, r, name+enc.Extension(), enc) {
				return
			}
		}
		if h.serveFile(w, r, name) {
			return
		}
		for _, enc := range compress.All {
			if h.serveDecoded(w, r, name+enc.Extension(), enc) {
				return
			}
		}
		http.NotFound(w, r)
		return
	}

	h.files.ServeHTTP(w, r)
}

// serveEncoded sends a compressed sibling as-is. It returns false when the file does not exist.
func (h *Handler) serveEncoded(w http.ResponseWriter, r *http.Request, name string, enc compress.Encoding) bool {
	f, info, ok := h.open(name)
	if !ok {
		return false
	}
	defer f.Close()

	w.Header().Set("Content-Type", patch.WasmContentType)
	w.Header().Set("Content-Encoding", enc.ContentEncoding())
	h.logger.Debug("serving precompressed wasm", "path", name, "encoding", enc)
	http.ServeContent(w, r, name, info.ModTime(), f)
	return true
}

// serveFile sends an uncompressed wasm file.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, name string) bool {
	f, info, ok := h.open(name)
	if !ok {
		return false
	}
	defer f.Close()

	w.Header().Set("Content-Type", patch.WasmContentType)
	http.ServeContent(w, r, name, info.ModTime(), f)
	return true
}

// serveDecoded decompresses a sibling for clients that accept none of the
// encodings on disk. Range requests are not supported on this path.
func (h *Handler) serveDecoded(w http.ResponseWriter, r *http.Request, name string, enc compress.Encoding) bool {
	f, _, ok := h.open(name)
	if !ok {
		return false
	}
	defer f.Close()

	zr, err := compress.NewReader(enc, f)
	if err != nil {
		h.logger.Warn("failed to decode wasm sibling", "path", name, "error", err)
		http.Error(w, "corrupt compressed file", http.StatusInternalServerError)
		return true
	}
	defer zr.Close()

	w.Header().Set("Content-Type", patch.WasmContentType)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return true
	}
	if _, err := io.Copy(w, zr); err != nil {
		h.logger.Warn("failed to stream decoded wasm", "path", name, "error", err)
	}
	return true
}

// open returns an existing regular file under the root.
func (h *Handler) open(name string) (http.File, fs.FileInfo, bool) {
	f, err := h.root.Open(name)
	if err != nil {
		return nil, nil, false
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		_ = f.Close()
		return nil, nil, false
	}
	return f, info, true
}

// acceptsEncoding reports whether an Accept-Encoding header value allows enc.
// A q-value of zero excludes a coding; "*" matches any coding not listed.
func acceptsEncoding(header string, enc compress.Encoding) bool {
	wildcard := false
	for _, part := range strings.Split(header, ",") {
		token, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}

		q := 1.0
		for _, p := range strings.Split(params, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
			if ok && strings.EqualFold(strings.TrimSpace(k), "q") {
				if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					q = f
				}
			}
		}

		switch token {
		case enc.ContentEncoding():
			return q > 0
		case "*":
			wildcard = q > 0
		}
	}
	return wildcard
}
