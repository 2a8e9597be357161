// Package fetch loads catalogue, registry and artifact sources from local
// files, stdin or HTTP. Concurrent requests for the same URL share one
// round trip; failed requests are not retried.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/corpix/uarand"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	apperrors "github.com/garyellow/admission-lists/internal/errors"
)

// maxBodySize bounds a single response body.
const maxBodySize = 64 << 20

// Recorder receives fetch metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordFetch(status string, duration float64)
	RecordSingleflightDedup(module string)
}

// Client is an HTTP client for source documents
type Client struct {
	httpClient *http.Client
	group      singleflight.Group
	userAgent  func() string
	recorder   Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRecorder reports request outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithUserAgent fixes the User-Agent header instead of picking a random one.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = func() string { return ua } }
}

// NewClient creates a client whose requests time out after timeout.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: uarand.GetRandom,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get downloads url and returns the decoded body.
//
// gzip-encoded bodies are decompressed and windows-1251 bodies are converted
// to UTF-8. Non-2xx responses return a *errors.SourceError carrying the status;
// a 404 additionally wraps errors.ErrNotFound.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	v, err, shared := c.group.Do(url, func() (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		return c.get(ctx, url)
	})
	if shared && c.recorder != nil {
		c.recorder.RecordSingleflightDedup("fetch")
	}
	if err != nil {
		return nil, err
	}
	// callers sharing a result must not alias each other's buffer
	return bytes.Clone(v.([]byte)), nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	body, err := c.do(ctx, url)
	if c.recorder != nil {
		c.recorder.RecordFetch(fetchStatus(err), time.Since(start).Seconds())
	}
	return body, err
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewSourceError(url, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Accept", "application/json,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewSourceError(url, 0, fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		cause := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode == http.StatusNotFound {
			cause = apperrors.ErrNotFound
		}
		return nil, apperrors.NewSourceError(url, resp.StatusCode, cause)
	}

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, apperrors.NewSourceError(url, resp.StatusCode, err)
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxBodySize+1))
	if err != nil {
		return nil, apperrors.NewSourceError(url, resp.StatusCode, fmt.Errorf("failed to read body: %w", err))
	}
	if len(data) > maxBodySize {
		return nil, apperrors.NewSourceError(url, resp.StatusCode, fmt.Errorf("body exceeds %d bytes", maxBodySize))
	}
	return data, nil
}

// decodeBody handles gzip content encoding and windows-1251 charsets.
func decodeBody(resp *http.Response) (io.Reader, error) {
	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress gzip: %w", err)
		}
		reader = gz
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "windows-1251") || strings.Contains(contentType, "cp1251") {
		reader = transform.NewReader(reader, charmap.Windows1251.NewDecoder())
	}
	return reader, nil
}

func fetchStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
