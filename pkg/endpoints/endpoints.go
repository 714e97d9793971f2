// Package endpoints maps country codes to catalog API service endpoints.
package endpoints

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/jugend/amazon-ecs/pkg/cfgfile"
)

// DefaultCountry is used when a request names no country.
const DefaultCountry = "us"

// ConfigurationError reports a country code with no configured endpoint.
type ConfigurationError struct {
	Country string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid country '%s'", e.Country)
}

// Endpoint is the base location requests for one country are sent to.
type Endpoint struct {
	Country string `json:"country" yaml:"country"`
	Scheme  string `json:"scheme" yaml:"scheme"`
	Host    string `json:"host" yaml:"host"`
	Path    string `json:"path" yaml:"path"`
}

// URL renders the endpoint with the given raw query.
func (e Endpoint) URL(rawQuery string) string {
	u := url.URL{Scheme: e.Scheme, Host: e.Host, Path: e.Path, RawQuery: rawQuery}
	return u.String()
}

// Table resolves country codes to endpoints. A Table is read-only once
// built and safe for concurrent use.
type Table struct {
	byCountry map[string]Endpoint
}

var defaults = []Endpoint{
	{Country: "us", Scheme: "http", Host: "webservices.amazon.com", Path: "/onca/xml"},
	{Country: "uk", Scheme: "http", Host: "webservices.amazon.co.uk", Path: "/onca/xml"},
	{Country: "ca", Scheme: "http", Host: "webservices.amazon.ca", Path: "/onca/xml"},
	{Country: "de", Scheme: "http", Host: "webservices.amazon.de", Path: "/onca/xml"},
	{Country: "jp", Scheme: "http", Host: "webservices.amazon.co.jp", Path: "/onca/xml"},
	{Country: "fr", Scheme: "http", Host: "webservices.amazon.fr", Path: "/onca/xml"},
	{Country: "it", Scheme: "http", Host: "webservices.amazon.it", Path: "/onca/xml"},
}

// Default returns the built-in table.
func Default() *Table {
	t, err := New(defaults...)
	if err != nil {
		panic(err)
	}
	return t
}

// New builds a table from endpoints. Later entries replace earlier ones for
// the same country.
func New(eps ...Endpoint) (*Table, error) {
	t := &Table{byCountry: make(map[string]Endpoint, len(eps))}
	for i, ep := range eps {
		ep = sanitize(ep)
		if err := validate(ep); err != nil {
			return nil, fmt.Errorf("endpoint[%d]: %w", i, err)
		}
		t.byCountry[ep.Country] = ep
	}
	return t, nil
}

// Lookup returns the endpoint for country. An empty country selects
// DefaultCountry. Unknown countries yield a *ConfigurationError.
func (t *Table) Lookup(country string) (Endpoint, error) {
	key := normalizeCountry(country)
	if key == "" {
		key = DefaultCountry
	}
	if t != nil {
		if ep, ok := t.byCountry[key]; ok {
			return ep, nil
		}
	}
	return Endpoint{}, &ConfigurationError{Country: country}
}

// Countries lists the supported country codes in sorted order.
func (t *Table) Countries() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.byCountry))
	for c := range t.byCountry {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

type tableFile struct {
	Endpoints []Endpoint `json:"endpoints" yaml:"endpoints"`
}

// Load returns the built-in table overlaid with the endpoints declared in a
// YAML or JSON file. An empty path returns the built-in table.
func Load(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	var parsed tableFile
	if err := cfgfile.Decode("endpoints", path, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Endpoints) == 0 {
		return nil, errors.New("endpoints file contains no endpoints entries")
	}
	return New(append(append([]Endpoint(nil), defaults...), parsed.Endpoints...)...)
}

func sanitize(ep Endpoint) Endpoint {
	ep.Country = normalizeCountry(ep.Country)
	ep.Scheme = strings.ToLower(strings.TrimSpace(ep.Scheme))
	if ep.Scheme == "" {
		ep.Scheme = "http"
	}
	ep.Host = strings.TrimSpace(ep.Host)
	ep.Path = strings.TrimSpace(ep.Path)
	if ep.Path == "" {
		ep.Path = "/onca/xml"
	}
	if !strings.HasPrefix(ep.Path, "/") {
		ep.Path = "/" + ep.Path
	}
	return ep
}

func validate(ep Endpoint) error {
	if ep.Country == "" {
		return errors.New("country is required")
	}
	if ep.Host == "" {
		return fmt.Errorf("host is required for country %q", ep.Country)
	}
	if ep.Scheme != "http" && ep.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q for country %q", ep.Scheme, ep.Country)
	}
	return nil
}

func normalizeCountry(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
