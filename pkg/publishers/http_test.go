package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jugend/amazon-ecs/internal/domain"
)

func TestHTTPPublisherSuccess(t *testing.T) {
	var (
		method, header, contentType string
		got                         Event
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		header = r.Header.Get("X-Test")
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), Config{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPConfig{
			URL:            srv.URL,
			Method:         http.MethodPut,
			Headers:        map[string]string{"X-Test": "1"},
			TimeoutSeconds: 2,
		},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	evt := NewEvent("ruby-books", domain.Item{ASIN: "0974514055", Title: "Programming Ruby"})
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if method != http.MethodPut || header != "1" || contentType != "application/json" {
		t.Fatalf("unexpected request method=%s header=%q content-type=%q", method, header, contentType)
	}
	if got.ID != evt.ID || got.Item.Title != "Programming Ruby" {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestHTTPPublisherErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, strings.Repeat("x", 600), http.StatusBadRequest)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), Config{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPConfig{URL: srv.URL},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	err = pub.Publish(context.Background(), Event{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest || len(statusErr.Body) != maxErrorBody {
		t.Fatalf("unexpected status error code=%d body=%d bytes", statusErr.StatusCode, len(statusErr.Body))
	}
}

func TestHTTPPublisherDefaultsToPost(t *testing.T) {
	methods := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods <- r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), Config{ID: "hook", Type: TypeHTTP, HTTP: &HTTPConfig{URL: srv.URL}}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}
	if err := pub.Publish(context.Background(), Event{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if method := <-methods; method != http.MethodPost {
		t.Fatalf("method = %s", method)
	}
}
