// Package source fetches child lists from the external genealogy service.
package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 10 * time.Second
	defaultPacing  = time.Second
	maxBodyBytes   = 4 << 20

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	accept    = "application/json, text/javascript, */*; q=0.01"
)

// Child is one entry of the source's child list.
type Child struct {
	ID        int64
	Name      string
	BirthYear *int
	DeathYear *int
}

// Client is stateless apart from its pacing limiter and is safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithPacing sets the minimum gap between two requests. Zero disables pacing.
func WithPacing(d time.Duration) Option {
	return func(cl *Client) {
		if d <= 0 {
			cl.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		cl.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// New constructs a Client for baseURL. The node reference is added as the
// "id" query parameter.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(defaultPacing), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchChildren returns the full child list of the node identified by ref.
func (c *Client) FetchChildren(ctx context.Context, ref int64) ([]Child, error) {
	endpoint, err := c.endpoint(ref)
	if err != nil {
		return nil, newError(ErrorInternal, ref, "build request url", err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, newError(ErrorTimeout, ref, "waiting for pacing slot", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, newError(ErrorInternal, ref, "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, newError(ErrorTimeout, ref, "request timed out", err)
		}
		return nil, newError(ErrorProviderOutage, ref, "request failed", err)
	}
	defer resp.Body.Close()

	if err := statusError(ref, resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := readBody(resp)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, newError(ErrorTimeout, ref, "reading response timed out", err)
		}
		return nil, newError(ErrorBadData, ref, "read response", err)
	}
	return decodeChildren(ref, body)
}

func (c *Client) endpoint(ref int64) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("id", strconv.FormatInt(ref, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func statusError(ref int64, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return newError(ErrorNotFound, ref, fmt.Sprintf("status %d", code), nil)
	case code == http.StatusTooManyRequests:
		return newError(ErrorRateLimited, ref, fmt.Sprintf("status %d", code), nil)
	case code >= 500:
		return newError(ErrorProviderOutage, ref, fmt.Sprintf("status %d", code), nil)
	default:
		return newError(ErrorBadData, ref, fmt.Sprintf("unexpected status %d", code), nil)
	}
}

func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(io.LimitReader(r, maxBodyBytes))
}

type wireChild struct {
	ID        flexInt `json:"id"`
	Name      string  `json:"name"`
	BirthYear flexInt `json:"birth_year"`
	DeathYear flexInt `json:"death_year"`
}

func decodeChildren(ref int64, body []byte) ([]Child, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return nil, newError(ErrorBadData, ref, "payload is not a list", nil)
	}
	var items []wireChild
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, newError(ErrorBadData, ref, "decode payload", err)
	}
	children := make([]Child, 0, len(items))
	for i, item := range items {
		if item.ID.v == nil {
			return nil, newError(ErrorBadData, ref, fmt.Sprintf("item %d has no id", i), nil)
		}
		children = append(children, Child{
			ID:        *item.ID.v,
			Name:      item.Name,
			BirthYear: item.BirthYear.int(),
			DeathYear: item.DeathYear.int(),
		})
	}
	return children, nil
}

// flexInt accepts a JSON number, a numeric string, null or "".
type flexInt struct {
	v *int64
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		f.v = nil
		return nil
	}
	s = strings.Trim(s, `"`)
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %s", data)
	}
	f.v = &n
	return nil
}

func (f flexInt) int() *int {
	if f.v == nil {
		return nil
	}
	n := int(*f.v)
	return &n
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
