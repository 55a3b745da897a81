package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/nao1215/assetship/internal/compress"
	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 2 * time.Minute

	// DefaultMaxBodySize bounds the decoded body. Debug builds of large Swift
	// packages exceed 100 MB.
	DefaultMaxBodySize = 512 << 20

	// acceptEncoding lists every encoding the pipeline can produce.
	acceptEncoding = "gzip, br, zstd"
)

// wasmMagic is the first four bytes of every WebAssembly binary.
var wasmMagic = []byte{0x00, 'a', 's', 'm'}

// Response is a fetched and decoded artifact.
type Response struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// Body is the decoded body.
	Body []byte

	// Encoding is the encoding that was removed, empty when the body was not compressed.
	Encoding compress.Encoding

	// Decoded is true when the body was decompressed.
	Decoded bool

	// DecodedBySuffix is true when the encoding came from the URL rather than a header.
	DecodedBySuffix bool

	// TransferSize is the number of bytes received before decoding.
	TransferSize int64
}

// Client fetches artifacts over HTTP.
type Client struct {
	httpClient  *http.Client
	timeout     time.Duration
	maxBodySize int64
	userAgent   string
	socksAddr   string
	logger      *slog.Logger

	// initErr is a configuration error reported by every Fetch.
	initErr error
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout sets the timeout of the default HTTP client. It is ignored
// together with WithHTTPClient.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithMaxBodySize limits the decoded body size.
func WithMaxBodySize(size int64) ClientOption {
	return func(cl *Client) {
		if size > 0 {
			cl.maxBodySize = size
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithSOCKS5 routes requests through the SOCKS5 proxy at addr, for example
// an SSH tunnel into a staging network. It is ignored together with WithHTTPClient.
func WithSOCKS5(addr string) ClientOption {
	return func(cl *Client) {
		cl.socksAddr = addr
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// NewClient creates a client. The default HTTP client has DefaultTimeout and
// leaves compressed responses alone so that they can be decoded here.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		userAgent:   "assetship",
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout:   c.timeout,
			Transport: c.newTransport(),
		}
	}
	return c
}

func (c *Client) newTransport() *http.Transport {
	transport := &http.Transport{
		Proxy:              http.ProxyFromEnvironment,
		DisableCompression: true,
	}
	if c.socksAddr == "" {
		return transport
	}

	dialer, err := proxy.SOCKS5("tcp", c.socksAddr, nil, proxy.Direct)
	if err != nil {
		c.initErr = fmt.Errorf("socks5 proxy %s: %w", c.socksAddr, err)
		return transport
	}
	transport.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return transport
}

// Fetch downloads rawURL and decodes the body.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if c.initErr != nil {
		return nil, c.initErr
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Encoding", acceptEncoding)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, rawURL, resp.Status)
	}

	raw, err := readLimited(resp.Body, c.maxBodySize)
	if err != nil {
		return nil, err
	}

	result := &Response{
		URL:          rawURL,
		StatusCode:   resp.StatusCode,
		Header:       resp.Header,
		Body:         raw,
		TransferSize: int64(len(raw)),
	}

	enc, bySuffix, ok, err := encodingOf(resp.Header.Get("Content-Encoding"), u.Path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return result, nil
	}

	zr, err := compress.NewReader(enc, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s body: %w", enc, err)
	}
	defer zr.Close()

	decoded, err := readLimited(zr, c.maxBodySize)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s body: %w", enc, err)
	}

	result.Body = decoded
	result.Encoding = enc
	result.Decoded = true
	result.DecodedBySuffix = bySuffix
	c.logger.Debug("fetched",
		"url", rawURL,
		"encoding", enc,
		"by_suffix", bySuffix,
		"transfer", result.TransferSize,
		"decoded", len(decoded),
	)
	return result, nil
}

// encodingOf picks the encoding from the header, falling back to the URL suffix
// when the header is absent or identity. Only a single supported coding is
// accepted; anything else would be decoded wrongly by the suffix.
func encodingOf(header, urlPath string) (enc compress.Encoding, bySuffix, ok bool, err error) {
	header = strings.TrimSpace(header)
	if header != "" && !strings.EqualFold(header, "identity") {
		if strings.Contains(header, ",") {
			return "", false, false, fmt.Errorf("%w: %q (chained codings)", ErrUnsupportedEncoding, header)
		}
		e, perr := compress.ParseEncoding(header)
		if perr != nil {
			return "", false, false, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, header)
		}
		return e, false, true, nil
	}
	if e, found := compress.FromExtension(path.Base(urlPath)); found {
		return e, true, true, nil
	}
	return "", false, false, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, limit)
	}
	return b, nil
}

// CheckWasm returns ErrNotWasm unless b starts with the WebAssembly magic number.
func CheckWasm(b []byte) error {
	if !bytes.HasPrefix(b, wasmMagic) {
		return ErrNotWasm
	}
	return nil
}
