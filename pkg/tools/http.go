package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/comigor/bertbot/internal/ssrf"
)

const (
	httpRequestTimeout  = 30 * time.Second
	httpMaxResponseSize = 5 << 20 // 5 MiB
)

// HTTPTool issues outbound HTTP requests guarded by the egress filter.
type HTTPTool struct {
	client  *http.Client
	timeout time.Duration
	maxSize int64
}

type httpInput struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

// NewHTTPTool creates the http tool with default limits. Redirects are
// never followed: a malicious server could otherwise redirect to an
// internal address after the initial check passed.
func NewHTTPTool() *HTTPTool {
	return &HTTPTool{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout: httpRequestTimeout,
		maxSize: httpMaxResponseSize,
	}
}

// Name returns the name of the tool.
func (t *HTTPTool) Name() string { return "http" }

// Description returns the description surfaced to the model.
func (t *HTTPTool) Description() string { return "Make HTTP requests" }

// Run validates the URL against the egress policy, then performs the
// request with a bounded timeout and a capped, streamed response read.
func (t *HTTPTool) Run(input string) (string, error) {
	var payload httpInput
	if err := json.Unmarshal([]byte(input), &payload); err != nil {
		return "", errors.New("invalid JSON for http tool")
	}
	if payload.URL == "" {
		return "", errors.New("missing url for http tool")
	}

	if err := validateURL(payload.URL); err != nil {
		return "", fmt.Errorf("URL validation failed: %w", err)
	}

	method := payload.Method
	if method == "" {
		method = http.MethodGet
	}
	return t.fetch(payload.URL, method, payload.Headers, payload.Body)
}

// fetch performs the already-validated request under the tool's deadline.
func (t *HTTPTool) fetch(rawURL, method string, headers map[string]string, body string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("request timed out after %s", t.timeout)
		}
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return "", fmt.Errorf("redirects are blocked for security, attempted redirect to: %s", resp.Header.Get("Location"))
	}

	return readWithLimit(resp.Body, t.maxSize)
}

// validateURL enforces the egress policy: http/https schemes only, no
// loopback host, no literal private/link-local IP. Hostnames are not
// re-checked after DNS resolution (accepted rebinding gap).
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q is not allowed, only http and https are supported", u.Scheme)
	}

	host := u.Hostname()
	if ssrf.IsLoopbackHost(host) {
		return errors.New("access to localhost is blocked")
	}
	if ssrf.IsLiteralIP(host) && ssrf.IsPrivateHost(host) {
		return fmt.Errorf("access to private IP address %q is blocked", host)
	}
	return nil
}

// readWithLimit streams and counts the body, aborting past the ceiling.
func readWithLimit(r io.Reader, limit int64) (string, error) {
	var out strings.Builder
	buf := make([]byte, 32*1024)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > limit {
				return "", fmt.Errorf("response size exceeds limit of %d bytes", limit)
			}
			out.Write(buf[:n])
		}
		if err == io.EOF {
			return out.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
	}
}
