package publishers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/jugend/amazon-ecs/pkg/httpclient"
)

const maxErrorBody = 512

// StatusError is returned when a webhook answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http sink returned %d", e.StatusCode)
	}
	return fmt.Sprintf("http sink returned %d: %s", e.StatusCode, e.Body)
}

type httpPublisher struct {
	id     string
	method string
	url    string
	client *resty.Client
	log    Logger
}

func newHTTPPublisher(_ context.Context, cfg Config, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	method := cfg.HTTP.Method
	if method == "" {
		method = defaultHTTPMethod
	}

	client := httpclient.NewRestyHTTPClient(cfg.HTTP.Timeout()).
		SetHeaders(cfg.HTTP.Headers).
		SetHeader("Content-Type", "application/json")

	return &httpPublisher{
		id:     cfg.ID,
		method: method,
		url:    cfg.HTTP.URL,
		client: client,
		log:    ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

// Publish sends the event as the JSON request body.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(evt).
		Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("http %s: %w", h.method, err)
	}
	if resp.IsError() {
		body := resp.Body()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		statusErr := &StatusError{StatusCode: resp.StatusCode(), Body: strings.TrimSpace(string(body))}
		h.log.ErrorObj("http publisher rejected", "publisher_error", map[string]any{
			"publisher_id": h.id,
			"status":       statusErr.StatusCode,
		})
		return statusErr
	}
	h.log.DebugObj("http publisher delivered event", "publisher_delivery", map[string]any{
		"publisher_id": h.id,
		"event_id":     evt.ID,
		"status":       resp.StatusCode(),
	})
	return nil
}
