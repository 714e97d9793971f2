// Command ecs sends a single catalog request and prints the result as JSON.
//
//	ecs [flags] lookup <item-id>
//	ecs [flags] search <terms...>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/jugend/amazon-ecs/internal/app"
	"github.com/jugend/amazon-ecs/internal/config"
	"github.com/jugend/amazon-ecs/internal/domain"
	"github.com/jugend/amazon-ecs/internal/logger"
	"github.com/jugend/amazon-ecs/internal/watch"
	"github.com/jugend/amazon-ecs/pkg/ecs"
	"github.com/jugend/amazon-ecs/pkg/signer"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ecs: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	country       string
	searchType    string
	searchIndex   string
	responseGroup string
	page          int
	params        []string
	dryRun        bool
	debug         bool
	hideErrors    bool
}

type result struct {
	Operation    string        `json:"operation"`
	Valid        bool          `json:"valid"`
	TotalResults int           `json:"total_results"`
	TotalPages   int           `json:"total_pages"`
	ItemPage     int           `json:"item_page,omitempty"`
	Error        string        `json:"error,omitempty"`
	ErrorCode    string        `json:"error_code,omitempty"`
	Items        []domain.Item `json:"items"`
}

func run(args []string, out io.Writer) error {
	var opts options
	flags := pflag.NewFlagSet("ecs", pflag.ContinueOnError)
	flags.StringVar(&opts.country, "country", "", "marketplace country (overrides COUNTRY)")
	flags.StringVar(&opts.searchType, "type", "", "search parameter that receives the terms, e.g. Author or Title")
	flags.StringVar(&opts.searchIndex, "search-index", "", "search index (default Books)")
	flags.StringVar(&opts.responseGroup, "response-group", "", "response group, e.g. Medium")
	flags.IntVar(&opts.page, "page", 0, "result page to fetch")
	flags.StringArrayVar(&opts.params, "param", nil, "extra request parameter as key=value (repeatable)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "print the signed request URL without sending it")
	flags.BoolVar(&opts.debug, "debug", false, "log request URLs")
	flags.BoolVar(&opts.hideErrors, "hide-errors", false, "omit the service error message from failures")
	if err := flags.Parse(args); err != nil {
		return err
	}

	rest := flags.Args()
	if len(rest) < 2 {
		return errors.New("usage: ecs [flags] lookup <item-id> | search <terms...>")
	}
	op, terms := strings.ToLower(rest[0]), strings.Join(rest[1:], " ")

	params, err := requestParams(op, terms, opts)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.country != "" {
		cfg.Country = strings.ToLower(opts.country)
	}
	cfg.Debug = cfg.Debug || opts.debug
	cfg.HideErrors = cfg.HideErrors || opts.hideErrors
	cfg.RequestsPerSecond = 0

	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	client, err := app.NewClient(cfg, logger.Obj{})
	if err != nil {
		return err
	}

	if opts.dryRun {
		u, err := client.RequestURL(params)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, u)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resp, err := client.Send(ctx, params)
	if err != nil {
		return err
	}

	country := cfg.Country
	if v, ok := params.Lookup(signer.CountryKey); ok {
		country = v
	}
	return writeResult(out, params.Get("Operation"), resp, country, time.Now())
}

// requestParams builds the parameters for one operation from the flags.
func requestParams(op, terms string, opts options) (signer.Params, error) {
	extra := signer.Params{}
	for _, kv := range opts.params {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --param %q (want key=value)", kv)
		}
		extra.Set(strings.TrimSpace(k), v)
	}
	if opts.responseGroup != "" {
		extra.DelWire("ResponseGroup")
		extra.Set("ResponseGroup", opts.responseGroup)
	}

	switch op {
	case "lookup":
		return ecs.ItemLookupParams(terms, extra), nil
	case "search":
		if opts.searchIndex != "" {
			extra.DelWire("SearchIndex")
			extra.Set("SearchIndex", opts.searchIndex)
		}
		if opts.searchType != "" {
			extra.Set(ecs.SearchTypeKey, opts.searchType)
		}
		if opts.page > 0 {
			extra.DelWire("ItemPage")
			extra.Set("ItemPage", strconv.Itoa(opts.page))
		}
		return ecs.ItemSearchParams(terms, extra), nil
	default:
		return nil, fmt.Errorf("unknown command %q (want lookup or search)", op)
	}
}

func writeResult(out io.Writer, op string, resp *ecs.Response, country string, at time.Time) error {
	res := result{
		Operation:    op,
		Valid:        resp.IsValidRequest(),
		TotalResults: resp.TotalResults(),
		TotalPages:   resp.TotalPages(),
		ItemPage:     resp.ItemPage(),
		Error:        resp.Error(),
		ErrorCode:    resp.ErrorCode(),
		Items:        []domain.Item{},
	}
	for _, el := range resp.Items() {
		if item, ok := watch.ItemFromElement(el, country, at); ok {
			res.Items = append(res.Items, item)
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
