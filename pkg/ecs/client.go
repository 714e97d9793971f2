// Package ecs is a client for the product catalog API. It merges per-client
// defaults with request parameters, signs the canonical query and returns
// the parsed XML response.
package ecs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/jugend/amazon-ecs/pkg/endpoints"
	"github.com/jugend/amazon-ecs/pkg/httpclient"
	"github.com/jugend/amazon-ecs/pkg/signer"
	"github.com/jugend/amazon-ecs/pkg/xmlview"
)

const (
	DefaultService     = "AWSECommerceService"
	DefaultVersion     = "2010-10-01"
	DefaultSearchIndex = "Books"
	DefaultTimeout     = 30 * time.Second

	// SearchTypeKey names the option that redirects ItemSearch terms to
	// another parameter, e.g. "author" or "title".
	SearchTypeKey = "type"
)

// Options configures one Client. The zero value talks to the us endpoint
// without signing.
type Options struct {
	// Defaults are merged under every request's parameters.
	Defaults signer.Params

	Country      string
	AccessKeyID  string
	SecretKey    string
	AssociateTag string

	// Debug logs each outgoing URL with the signature redacted.
	Debug bool
	// HideErrors keeps the service's error message out of RequestError.
	HideErrors bool

	Endpoints  *endpoints.Table
	HTTPClient httpclient.Client
	Headers    map[string]string
	Logger     Logger

	// RequestsPerSecond throttles Send when positive.
	RequestsPerSecond float64

	// Tracer records one client span per Send. Defaults to a no-op tracer.
	Tracer trace.Tracer

	// Now stamps every request. Defaults to time.Now.
	Now func() time.Time
}

// DefaultParams returns the parameters every request carries unless
// overridden.
func DefaultParams() signer.Params {
	return signer.Params{
		"Service": {DefaultService},
		"Version": {DefaultVersion},
	}
}

// Client sends signed requests. A Client is safe for concurrent use.
type Client struct {
	defaults   signer.Params
	country    string
	secretKey  string
	debug      bool
	hideErrors bool
	endpoints  *endpoints.Table
	http       httpclient.Client
	headers    map[string]string
	log        Logger
	limiter    *rate.Limiter
	tracer     trace.Tracer
	now        func() time.Time
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	defaults := signer.Merge(DefaultParams(), opts.Defaults)
	if opts.AccessKeyID != "" {
		defaults = signer.Merge(defaults, signer.Params{"AWSAccessKeyId": {opts.AccessKeyID}})
	}
	if opts.AssociateTag != "" {
		defaults = signer.Merge(defaults, signer.Params{"AssociateTag": {opts.AssociateTag}})
	}

	c := &Client{
		defaults:   defaults,
		country:    opts.Country,
		secretKey:  opts.SecretKey,
		debug:      opts.Debug,
		hideErrors: opts.HideErrors,
		endpoints:  opts.Endpoints,
		http:       opts.HTTPClient,
		headers:    opts.Headers,
		log:        ensureLogger(opts.Logger),
		tracer:     opts.Tracer,
		now:        opts.Now,
	}
	if c.endpoints == nil {
		c.endpoints = endpoints.Default()
	}
	if c.http == nil {
		c.http = httpclient.NewRestyClient(DefaultTimeout)
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("")
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

// ItemSearch searches the catalog for terms. SearchIndex defaults to Books;
// opts["type"] names the parameter that receives terms, Keywords otherwise.
func (c *Client) ItemSearch(ctx context.Context, terms string, opts signer.Params) (*Response, error) {
	return c.Send(ctx, ItemSearchParams(terms, opts))
}

// ItemLookup fetches a single item by its identifier.
func (c *Client) ItemLookup(ctx context.Context, itemID string, opts signer.Params) (*Response, error) {
	return c.Send(ctx, ItemLookupParams(itemID, opts))
}

// ItemSearchParams returns the request parameters ItemSearch sends. opts is
// not modified.
func ItemSearchParams(terms string, opts signer.Params) signer.Params {
	params := opts.Clone()
	params.Set("Operation", "ItemSearch")
	if _, ok := params.Lookup("SearchIndex"); !ok {
		params.DelWire("SearchIndex")
		params.Set("SearchIndex", DefaultSearchIndex)
	}

	field := "Keywords"
	if t := params.Get(SearchTypeKey); t != "" {
		field = t
	}
	params.Del(SearchTypeKey)
	params.DelWire(signer.WireKey(field))
	params.Set(field, terms)
	return params
}

// ItemLookupParams returns the request parameters ItemLookup sends.
func ItemLookupParams(itemID string, opts signer.Params) signer.Params {
	params := opts.Clone()
	params.Set("Operation", "ItemLookup")
	params.DelWire("ItemId")
	params.Set("ItemId", itemID)
	return params
}

// RequestURL returns the signed URL Send would request for params. The
// Timestamp always comes from the client's clock at call time; one passed
// in params or Options.Defaults is replaced.
func (c *Client) RequestURL(params signer.Params) (string, error) {
	u, _, err := c.buildURL(params)
	return u, err
}

func (c *Client) buildURL(params signer.Params) (requestURL, redacted string, err error) {
	merged := signer.Merge(c.defaults, params)

	country := c.country
	if v, ok := merged.Lookup(signer.CountryKey); ok {
		country = v
	}
	ep, err := c.endpoints.Lookup(country)
	if err != nil {
		return "", "", err
	}

	secret := c.secretKey
	if v, ok := merged.Lookup(signer.SecretKeyKey); ok {
		secret = v
	}

	merged.DelWire(signer.TimestampKey)
	merged.Set(signer.TimestampKey, signer.Timestamp(c.now()))

	if c.debug {
		for _, p := range signer.Canonicalize(merged) {
			c.log.DebugObj("ecs adding param", "param", map[string]string{"key": p.Key, "value": p.Value})
		}
	}

	query, sig := signer.Sign(merged, secret, ep.Host, ep.Path)
	requestURL = ep.URL(signer.AppendSignature(query, sig))
	redacted = requestURL
	if sig != "" {
		redacted = ep.URL(signer.AppendSignature(query, "REDACTED"))
	}
	return requestURL, redacted, nil
}

// Send merges params over the client defaults, signs them and performs the
// request. Unknown countries fail before anything is signed or sent. A
// non-2xx status yields a *RequestError.
func (c *Client) Send(ctx context.Context, params signer.Params) (*Response, error) {
	op, _ := params.Lookup("Operation")
	ctx, span := c.tracer.Start(ctx, "ecs.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("ecs.operation", op)),
	)
	defer span.End()

	out, err := c.send(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Bool("ecs.valid", out.IsValidRequest()),
		attribute.Int("ecs.total_results", out.TotalResults()),
	)
	return out, nil
}

func (c *Client) send(ctx context.Context, params signer.Params) (*Response, error) {
	requestURL, redacted, err := c.buildURL(params)
	if err != nil {
		return nil, err
	}
	if c.debug {
		c.log.DebugObj("ecs request", "url", redacted)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("ecs: wait for rate limiter: %w", err)
		}
	}

	resp, err := c.http.Get(ctx, requestURL, c.headers)
	if err != nil {
		return nil, fmt.Errorf("ecs: send request: %w", err)
	}

	code := resp.StatusCode()
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.status_code", code))
	if code < 200 || code > 299 {
		reqErr := &RequestError{StatusCode: code, Status: statusLine(resp)}
		if !c.hideErrors {
			if doc, perr := xmlview.ParseBytes(resp.Body()); perr == nil {
				if el, ok := doc.GetElement("//Error/Message"); ok {
					reqErr.APIError = strings.TrimSpace(el.Text())
				}
				if el, ok := doc.GetElement("//Error/Code"); ok {
					reqErr.APICode = strings.TrimSpace(el.Text())
				}
			}
		}
		c.log.WarnObj("ecs request failed", "error", map[string]any{
			"status": reqErr.Status,
			"code":   reqErr.APICode,
		})
		return nil, reqErr
	}

	out, err := NewResponse(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("ecs: %w", err)
	}
	if c.debug {
		c.log.DebugObj("ecs response", "summary", map[string]any{
			"valid":         out.IsValidRequest(),
			"total_results": out.TotalResults(),
			"items":         len(out.Items()),
		})
	}
	return out, nil
}

func statusLine(resp httpclient.Response) string {
	if s := strings.TrimSpace(resp.Status()); s != "" {
		return s
	}
	return fmt.Sprintf("%d", resp.StatusCode())
}
