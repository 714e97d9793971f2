package ecs

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const searchBody = `<?xml version="1.0" encoding="UTF-8"?>
<ItemSearchResponse xmlns="http://webservices.amazon.com/AWSECommerceService/2011-08-01">
  <Items>
    <Request>
      <IsValid>True</IsValid>
      <ItemSearchRequest><ItemPage>2</ItemPage><Keywords>ruby</Keywords></ItemSearchRequest>
    </Request>
    <TotalResults>3602</TotalResults>
    <TotalPages>361</TotalPages>
    <Item>
      <ASIN>0974514055</ASIN>
      <ItemAttributes>
        <Author>Dave Thomas</Author>
        <Author>Chad Fowler</Author>
        <Author>Andy Hunt</Author>
        <Title>Programming Ruby</Title>
      </ItemAttributes>
    </Item>
    <Item>
      <ASIN>1934356085</ASIN>
      <ItemAttributes><Author>Dave Thomas</Author><Title>Programming Ruby 1.9</Title></ItemAttributes>
    </Item>
  </Items>
</ItemSearchResponse>`

func mustResponse(t *testing.T, body string) *Response {
	t.Helper()
	r, err := NewResponse([]byte(body))
	if err != nil {
		t.Fatalf("NewResponse: %v", err)
	}
	return r
}

func TestResponseCounts(t *testing.T) {
	r := mustResponse(t, searchBody)

	if !r.IsValidRequest() || r.HasError() {
		t.Fatalf("valid=%v hasError=%v", r.IsValidRequest(), r.HasError())
	}
	if r.TotalResults() != 3602 || r.TotalPages() != 361 || r.ItemPage() != 2 {
		t.Fatalf("counts = %d/%d/%d", r.TotalResults(), r.TotalPages(), r.ItemPage())
	}
	if len(r.Items()) != 2 {
		t.Fatalf("items = %d", len(r.Items()))
	}
	if asin, _ := r.FirstItem().Get("ASIN"); asin != "0974514055" {
		t.Fatalf("first ASIN = %q", asin)
	}
}

func TestResponseAuthorsInOrder(t *testing.T) {
	r := mustResponse(t, searchBody)

	authors, ok := r.FirstItem().GetArray("Author")
	if !ok {
		t.Fatalf("no authors")
	}
	if diff := cmp.Diff([]string{"Dave Thomas", "Chad Fowler", "Andy Hunt"}, authors); diff != "" {
		t.Fatalf("authors mismatch (-want +got):\n%s", diff)
	}
}

func TestResponseMissingFields(t *testing.T) {
	r := mustResponse(t, `<ItemLookupResponse><Items><Request><IsValid>False</IsValid></Request></Items></ItemLookupResponse>`)

	if r.IsValidRequest() {
		t.Fatalf("IsValid False must not be valid")
	}
	if r.TotalResults() != 0 || r.TotalPages() != 0 || r.ItemPage() != 0 {
		t.Fatalf("absent counts must be zero")
	}
	if r.FirstItem() != nil || len(r.Items()) != 0 {
		t.Fatalf("expected no items")
	}
	if r.Error() != "" || r.ErrorCode() != "" {
		t.Fatalf("expected no error")
	}
}

func TestResponseNonNumericCount(t *testing.T) {
	r := mustResponse(t, `<R><TotalResults>many</TotalResults></R>`)
	if r.TotalResults() != 0 {
		t.Fatalf("non-numeric count = %d", r.TotalResults())
	}
}

func TestValidityAndErrorAreIndependent(t *testing.T) {
	body := `<ItemLookupResponse><Items><Request><IsValid>True</IsValid>
<Errors><Error><Code>AWS.InvalidParameterValue</Code><Message>0000000000 is not a valid value for ItemId.</Message></Error></Errors>
</Request></Items></ItemLookupResponse>`
	r := mustResponse(t, body)

	if !r.IsValidRequest() || !r.HasError() {
		t.Fatalf("valid=%v hasError=%v", r.IsValidRequest(), r.HasError())
	}
	if r.Error() != "0000000000 is not a valid value for ItemId." {
		t.Fatalf("Error() = %q", r.Error())
	}
	if r.ErrorCode() != "AWS.InvalidParameterValue" {
		t.Fatalf("ErrorCode() = %q", r.ErrorCode())
	}

	invalid := mustResponse(t, `<R><Error><Message>bad</Message></Error></R>`)
	if invalid.IsValidRequest() || !invalid.HasError() {
		t.Fatalf("missing IsValid must be invalid while still reporting the error")
	}
}

func TestResponseConcurrentAccess(t *testing.T) {
	r := mustResponse(t, searchBody)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if len(r.Items()) != 2 || r.TotalResults() != 3602 {
				t.Errorf("inconsistent concurrent read")
			}
		}()
	}
	wg.Wait()
}

func TestNewResponseRejectsMalformedXML(t *testing.T) {
	if _, err := NewResponse([]byte("<a><b></a>")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestEmptyErrorMessageIsNotAnError(t *testing.T) {
	for _, valid := range []string{"True", "False"} {
		t.Run(valid, func(t *testing.T) {
			r := mustResponse(t, `<R><IsValid>`+valid+`</IsValid><Error><Code>X</Code><Message></Message></Error></R>`)
			if r.HasError() || r.Error() != "" {
				t.Fatalf("hasError=%v Error()=%q", r.HasError(), r.Error())
			}
			if r.ErrorCode() != "X" {
				t.Fatalf("ErrorCode() = %q", r.ErrorCode())
			}
			if r.IsValidRequest() != (valid == "True") {
				t.Fatalf("IsValidRequest() = %v", r.IsValidRequest())
			}
		})
	}

	selfClosed := mustResponse(t, `<R><Error><Message/></Error></R>`)
	if selfClosed.HasError() {
		t.Fatalf("self-closing Message must not be an error")
	}
}

func TestIsValidRequiresExactText(t *testing.T) {
	for _, text := range []string{" True\n", "true", "TRUE", "True ", ""} {
		r := mustResponse(t, "<R><IsValid>"+text+"</IsValid></R>")
		if r.IsValidRequest() {
			t.Fatalf("IsValid %q must not be valid", text)
		}
	}
}

func TestErrorKeepsInnerMarkup(t *testing.T) {
	r := mustResponse(t, `<R><Error><Code>A&amp;B</Code><Message>x &lt; y &amp; z</Message></Error></R>`)

	want, _ := r.Doc().Get("//Error/Message")
	if r.Error() != want || r.Error() != "x &lt; y &amp; z" {
		t.Fatalf("Error() = %q, Get = %q", r.Error(), want)
	}
	if r.ErrorCode() != "A&amp;B" {
		t.Fatalf("ErrorCode() = %q", r.ErrorCode())
	}
}
