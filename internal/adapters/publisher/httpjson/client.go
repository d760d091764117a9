// Package httpjson delivers client sample batches to the collector server as
// gzipped JSON.
package httpjson

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/misc"
	"github.com/vshulcz/rtcobserver/internal/ports"
)

const samplesPath = "/samples"

// Client posts sample batches to <base>/samples. It does not retry: a failed
// batch is reported to the caller as a *domain.TransportError.
type Client struct {
	base   *url.URL
	hc     *http.Client
	key    string
	closed atomic.Bool
}

var _ ports.Sender = (*Client)(nil)

var (
	gzipWriterPool = sync.Pool{
		New: func() any {
			return gzip.NewWriter(io.Discard)
		},
	}
	bufferPool = misc.NewPool(func() *bytes.Buffer {
		return new(bytes.Buffer)
	})
)

// New normalizes the base address, configures the HTTP client, and returns a Client instance.
func New(serverAddr string, hc *http.Client, key string) (*Client, error) {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	u, err := url.Parse(normalizeBase(serverAddr))
	if err != nil {
		return nil, err
	}
	return &Client{base: u, hc: hc, key: strings.TrimSpace(key)}, nil
}

func normalizeBase(s string) string {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return strings.TrimRight(s, "/")
	}
	return "http://" + strings.TrimRight(s, "/")
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// Send posts one batch. An empty batch is a no-op.
func (c *Client) Send(ctx context.Context, batch []domain.ClientSample) error {
	if c.closed.Load() {
		return domain.ErrSenderClosed
	}
	if len(batch) == 0 {
		return nil
	}
	return c.doGzJSON(ctx, samplesPath, batch)
}

// Close releases idle connections. It is safe to call more than once.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.hc.CloseIdleConnections()
	return nil
}

func (c *Client) Closed() bool {
	return c.closed.Load()
}

func (c *Client) doGzJSON(ctx context.Context, path string, payload any) (retErr error) {
	plain, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	var hashHeader string
	if c.key != "" {
		hashHeader = misc.SumSHA256(plain, c.key)
	}

	gzPayload, err := gzipBytes(plain)
	if err != nil {
		return err
	}
	defer gzPayload.Release()

	req, err := c.newGzJSONRequest(ctx, path, gzPayload.Bytes(), hashHeader)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return &domain.TransportError{Err: fmt.Errorf("http do: %w", err)}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close response body: %w", cerr)
		}
	}()

	if err := drainAndDiscard(resp); err != nil {
		return &domain.TransportError{Err: err, StatusCode: resp.StatusCode}
	}
	return checkHTTPStatus(resp)
}

type compressedPayload struct {
	buf *bytes.Buffer
}

func (p *compressedPayload) Bytes() []byte {
	if p == nil || p.buf == nil {
		return nil
	}
	return p.buf.Bytes()
}

func (p *compressedPayload) Release() {
	if p == nil || p.buf == nil {
		return
	}
	bufferPool.Put(p.buf)
	p.buf = nil
}

func gzipBytes(src []byte) (*compressedPayload, error) {
	buf := bufferPool.Get()
	buf.Reset()
	zw, ok := gzipWriterPool.Get().(*gzip.Writer)
	if !ok {
		zw = gzip.NewWriter(io.Discard)
	}
	zw.Reset(buf)
	defer gzipWriterPool.Put(zw)
	if _, err := zw.Write(src); err != nil {
		_ = zw.Close()
		bufferPool.Put(buf)
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		bufferPool.Put(buf)
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return &compressedPayload{buf: buf}, nil
}

func (c *Client) newGzJSONRequest(ctx context.Context, path string, body []byte, hashHeader string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	if hashHeader != "" {
		req.Header.Set("HashSHA256", hashHeader)
	}
	return req, nil
}

func drainAndDiscard(resp *http.Response) error {
	var r io.Reader = resp.Body
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Encoding")), "gzip") {
		gr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("bad gzip: %w", err)
		}
		defer func() {
			_ = gr.Close()
		}()
		r = gr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return fmt.Errorf("drain body: %w", err)
	}
	return nil
}

func checkHTTPStatus(resp *http.Response) error {
	if resp.StatusCode != http.StatusOK {
		return &domain.TransportError{
			Err:        fmt.Errorf("server status: %s", resp.Status),
			StatusCode: resp.StatusCode,
		}
	}
	return nil
}
