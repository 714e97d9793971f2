package searches

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jugend/amazon-ecs/pkg/ecs"
	"github.com/jugend/amazon-ecs/pkg/signer"
	"github.com/jugend/amazon-ecs/pkg/validation"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write searches file: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "searches.yaml", `
searches:
  - id: ruby-books
    terms: ruby programming
    search_index: Books
    response_group: Medium
    item_page: 2
    request_delay_ms: 750
  - id: pickaxe
    operation: item_lookup
    terms: "0974514055"
    country: UK
  - id: paused
    terms: go
    enabled: false
`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 enabled searches, got %d", len(got))
	}
	if got[0].Operation != OperationItemSearch || got[0].RequestDelay() != 750*time.Millisecond {
		t.Fatalf("unexpected first search %+v", got[0])
	}
	if got[1].Operation != OperationItemLookup || got[1].Country != "uk" {
		t.Fatalf("unexpected second search %+v", got[1])
	}
	if got[1].RequestDelay() != time.Second {
		t.Fatalf("default delay = %v", got[1].RequestDelay())
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "searches.json", `{"searches":[{"id":"a","terms":"dave thomas","type":"author"}]}`)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].Type != "author" {
		t.Fatalf("unexpected searches %+v", got)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"missing terms":  "searches:\n  - id: a\n",
		"missing id":     "searches:\n  - terms: x\n",
		"bad operation":  "searches:\n  - id: a\n    terms: x\n    operation: BrowseNodeLookup\n",
		"page too large": "searches:\n  - id: a\n    terms: x\n    item_page: 11\n",
		"duplicate id":   "searches:\n  - id: a\n    terms: x\n  - id: a\n    terms: y\n",
		"empty":          "searches: []\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "searches.yaml", content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestValidationReportsFieldErrors(t *testing.T) {
	_, err := Load(writeFile(t, "searches.yaml", "searches:\n  - operation: ItemSearch\n"))
	var fields validation.FieldErrors
	if !errors.As(err, &fields) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("expected id and terms errors, got %v", fields)
	}
	if !strings.Contains(err.Error(), "id: This field is required") || !strings.Contains(err.Error(), "terms: This field is required") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestRequestParams(t *testing.T) {
	s := sanitize(Search{
		ID:            "a",
		Terms:         "x",
		SearchIndex:   "All",
		Type:          "title",
		Country:       "de",
		ResponseGroup: "Large",
		ItemPage:      3,
		Params:        map[string]string{"response_group": "Small", "sort": "salesrank"},
	})

	want := signer.Params{
		"Country":       {"de"},
		"ResponseGroup": {"Large"},
		"SearchIndex":   {"All"},
		"type":          {"title"},
		"ItemPage":      {"3"},
		"sort":          {"salesrank"},
	}
	if diff := cmp.Diff(want, s.RequestParams()); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}

	lookup := sanitize(Search{ID: "b", Operation: "ItemLookup", Terms: "1", SearchIndex: "Books", ItemPage: 2})
	if diff := cmp.Diff(signer.Params{}, lookup.RequestParams()); diff != "" {
		t.Fatalf("lookup params mismatch (-want +got):\n%s", diff)
	}
}

type fakeClient struct {
	op    string
	terms string
	opts  signer.Params
}

func (f *fakeClient) ItemSearch(_ context.Context, terms string, opts signer.Params) (*ecs.Response, error) {
	f.op, f.terms, f.opts = OperationItemSearch, terms, opts
	return nil, nil
}

func (f *fakeClient) ItemLookup(_ context.Context, itemID string, opts signer.Params) (*ecs.Response, error) {
	f.op, f.terms, f.opts = OperationItemLookup, itemID, opts
	return nil, nil
}

func TestRunDispatchesByOperation(t *testing.T) {
	fc := &fakeClient{}

	if _, err := sanitize(Search{ID: "a", Terms: "go"}).Run(context.Background(), fc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fc.op != OperationItemSearch || fc.terms != "go" {
		t.Fatalf("unexpected dispatch %s %q", fc.op, fc.terms)
	}

	if _, err := sanitize(Search{ID: "b", Operation: "itemlookup", Terms: "123"}).Run(context.Background(), fc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fc.op != OperationItemLookup || fc.terms != "123" {
		t.Fatalf("unexpected dispatch %s %q", fc.op, fc.terms)
	}
}
