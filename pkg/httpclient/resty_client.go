package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultUserAgent is sent when the caller supplies no User-Agent header.
const DefaultUserAgent = "amazon-ecs-go"

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a RestyClient with the given timeout.
func NewRestyClient(timeout time.Duration) *RestyClient {
	return &RestyClient{client: NewRestyHTTPClient(timeout)}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing
// other verbs, such as the HTTP publisher.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetHeader("User-Agent", DefaultUserAgent)
	return c
}

// WithRetries retries transport failures and throttled (503) responses up
// to n more times, backing off from wait.
func (r *RestyClient) WithRetries(n int, wait time.Duration) *RestyClient {
	if n <= 0 {
		return r
	}
	r.client.
		SetRetryCount(n).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(10 * wait).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || (resp != nil && resp.StatusCode() == http.StatusServiceUnavailable)
		})
	return r
}

// Get performs a GET with ctx and the extra headers. Non-2xx statuses are
// returned as responses, not errors.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	return &restyResponseAdapter{resp: resp}, nil
}

type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte    { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int { return r.resp.StatusCode() }

func (r *restyResponseAdapter) Status() string {
	if s := strings.TrimSpace(r.resp.Status()); s != "" {
		return s
	}
	code := r.resp.StatusCode()
	return strings.TrimSpace(fmt.Sprintf("%d %s", code, http.StatusText(code)))
}
