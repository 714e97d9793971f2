// Package searches loads the saved catalog searches the watcher runs.
package searches

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jugend/amazon-ecs/pkg/cfgfile"
	"github.com/jugend/amazon-ecs/pkg/ecs"
	"github.com/jugend/amazon-ecs/pkg/signer"
	"github.com/jugend/amazon-ecs/pkg/validation"
)

const (
	OperationItemSearch = "ItemSearch"
	OperationItemLookup = "ItemLookup"
)

var defaultRequestDelayMs = 1000

// Search is one saved query. ItemSearch searches use Terms as keywords, or
// as the parameter named by Type; ItemLookup searches use Terms as the
// item id.
type Search struct {
	ID             string            `json:"id" yaml:"id" validate:"required"`
	Operation      string            `json:"operation" yaml:"operation" validate:"required,oneof=ItemSearch ItemLookup"`
	Terms          string            `json:"terms" yaml:"terms" validate:"required"`
	SearchIndex    string            `json:"search_index" yaml:"search_index"`
	Type           string            `json:"type" yaml:"type"`
	Country        string            `json:"country" yaml:"country"`
	ResponseGroup  string            `json:"response_group" yaml:"response_group"`
	ItemPage       int               `json:"item_page" yaml:"item_page" validate:"gte=0,lte=10"`
	RequestDelayMs int               `json:"request_delay_ms" yaml:"request_delay_ms" validate:"gte=0"`
	Params         map[string]string `json:"params" yaml:"params"`
	Enabled        *bool             `json:"enabled" yaml:"enabled"`
}

type registry struct {
	Searches []Search `json:"searches" yaml:"searches"`
}

// Load reads saved searches from a YAML or JSON file. Disabled entries are
// validated but left out of the result.
func Load(path string) ([]Search, error) {
	var reg registry
	if err := cfgfile.Decode("searches", path, &reg); err != nil {
		return nil, err
	}
	if len(reg.Searches) == 0 {
		return nil, errors.New("searches file contains no searches entries")
	}

	seen := make(map[string]struct{}, len(reg.Searches))
	out := make([]Search, 0, len(reg.Searches))
	for i := range reg.Searches {
		s := sanitize(reg.Searches[i])
		if err := validation.Struct(s); err != nil {
			return nil, fmt.Errorf("search[%d]: %w", i, err)
		}
		if _, exists := seen[s.ID]; exists {
			return nil, fmt.Errorf("duplicate search id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
		if !s.IsEnabled() {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func sanitize(s Search) Search {
	s.ID = strings.TrimSpace(s.ID)
	s.Operation = normalizeOperation(s.Operation)
	s.Terms = strings.TrimSpace(s.Terms)
	s.SearchIndex = strings.TrimSpace(s.SearchIndex)
	s.Type = strings.TrimSpace(s.Type)
	s.Country = strings.ToLower(strings.TrimSpace(s.Country))
	s.ResponseGroup = strings.TrimSpace(s.ResponseGroup)
	if s.RequestDelayMs == 0 {
		s.RequestDelayMs = defaultRequestDelayMs
	}
	return s
}

// normalizeOperation accepts item_search, itemsearch and ItemSearch alike.
func normalizeOperation(op string) string {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(op), "_", ""))
	switch key {
	case "", "itemsearch":
		return OperationItemSearch
	case "itemlookup":
		return OperationItemLookup
	}
	return strings.TrimSpace(op)
}

// IsEnabled reports whether the search should run. Searches are enabled
// unless switched off explicitly.
func (s Search) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// RequestDelay is the pause after running this search.
func (s Search) RequestDelay() time.Duration {
	if s.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}

// RequestParams renders the search's options for the client. Terms are
// added by the operation itself.
func (s Search) RequestParams() signer.Params {
	p := signer.Params{}
	for k, v := range s.Params {
		p.Set(k, v)
	}
	if s.Country != "" {
		p.Set(signer.CountryKey, s.Country)
	}
	if s.ResponseGroup != "" {
		p.DelWire("ResponseGroup")
		p.Set("ResponseGroup", s.ResponseGroup)
	}
	if s.Operation == OperationItemSearch {
		if s.SearchIndex != "" {
			p.DelWire("SearchIndex")
			p.Set("SearchIndex", s.SearchIndex)
		}
		if s.Type != "" {
			p.Set(ecs.SearchTypeKey, s.Type)
		}
		if s.ItemPage > 0 {
			p.DelWire("ItemPage")
			p.Set("ItemPage", strconv.Itoa(s.ItemPage))
		}
	}
	return p
}

// Client is the part of *ecs.Client a search needs.
type Client interface {
	ItemSearch(ctx context.Context, terms string, opts signer.Params) (*ecs.Response, error)
	ItemLookup(ctx context.Context, itemID string, opts signer.Params) (*ecs.Response, error)
}

var _ Client = (*ecs.Client)(nil)

// Run executes the search with client.
func (s Search) Run(ctx context.Context, client Client) (*ecs.Response, error) {
	if s.Operation == OperationItemLookup {
		return client.ItemLookup(ctx, s.Terms, s.RequestParams())
	}
	return client.ItemSearch(ctx, s.Terms, s.RequestParams())
}
