package httpclient

import "context"

// Response is the subset of an HTTP response the catalog client reads.
type Response interface {
	Body() []byte
	StatusCode() int
	// Status is the status line text, e.g. "403 Forbidden".
	Status() string
}

// Client abstracts HTTP calls so callers can inject fakes or other transports.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}
