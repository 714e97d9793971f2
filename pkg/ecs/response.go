package ecs

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jugend/amazon-ecs/pkg/xmlview"
)

var (
	isValidPath      = xmlview.MustCompile("//IsValid")
	errorMessagePath = xmlview.MustCompile("//Error/Message")
	errorCodePath    = xmlview.MustCompile("//Error/Code")
	itemsPath        = xmlview.MustCompile("//Item")
	itemPagePath     = xmlview.MustCompile("//ItemPage")
	totalResultsPath = xmlview.MustCompile("//TotalResults")
	totalPagesPath   = xmlview.MustCompile("//TotalPages")
)

// Response wraps a parsed service response. Accessors are safe for
// concurrent use; derived values are computed once.
type Response struct {
	doc  *xmlview.Document
	body []byte

	itemsOnce sync.Once
	items     []*xmlview.Element

	numsOnce     sync.Once
	itemPage     int
	totalResults int
	totalPages   int
}

// NewResponse parses a raw XML payload.
func NewResponse(body []byte) (*Response, error) {
	doc, err := xmlview.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &Response{doc: doc, body: body}, nil
}

// Doc returns the parsed document for arbitrary queries.
func (r *Response) Doc() *xmlview.Document { return r.doc }

// Body returns the raw payload.
func (r *Response) Body() []byte { return r.body }

// IsValidRequest reports whether the first IsValid element reads exactly
// "True". It is independent of HasError: a valid request may still carry
// an error.
func (r *Response) IsValidRequest() bool {
	return r.firstInner(isValidPath) == "True"
}

// HasError reports whether the payload carries a non-empty Error/Message.
func (r *Response) HasError() bool {
	return r.Error() != ""
}

// Error returns the inner markup of the first Error/Message, or "".
// Entities stay escaped, as with Doc().Get("//Error/Message").
func (r *Response) Error() string {
	return r.firstInner(errorMessagePath)
}

// ErrorCode returns the inner markup of the first Error/Code, or "".
func (r *Response) ErrorCode() string {
	return r.firstInner(errorCodePath)
}

// Items returns every Item element in document order.
func (r *Response) Items() []*xmlview.Element {
	r.itemsOnce.Do(func() {
		r.items = r.doc.QueryPath(itemsPath)
	})
	return r.items
}

// FirstItem returns the first Item, or nil when there is none.
func (r *Response) FirstItem() *xmlview.Element {
	items := r.Items()
	if len(items) == 0 {
		return nil
	}
	return items[0]
}

// ItemPage returns the page number echoed by the service, 0 when absent.
func (r *Response) ItemPage() int {
	r.loadNumbers()
	return r.itemPage
}

// TotalResults returns the result count, 0 when absent or not a number.
func (r *Response) TotalResults() int {
	r.loadNumbers()
	return r.totalResults
}

// TotalPages returns the page count, 0 when absent or not a number.
func (r *Response) TotalPages() int {
	r.loadNumbers()
	return r.totalPages
}

func (r *Response) loadNumbers() {
	r.numsOnce.Do(func() {
		r.itemPage = r.firstInt(itemPagePath)
		r.totalResults = r.firstInt(totalResultsPath)
		r.totalPages = r.firstInt(totalPagesPath)
	})
}

func (r *Response) firstInner(p *xmlview.Path) string {
	els := r.doc.QueryPath(p)
	if len(els) == 0 {
		return ""
	}
	v, _ := els[0].Get("")
	return v
}

func (r *Response) firstText(p *xmlview.Path) string {
	els := r.doc.QueryPath(p)
	if len(els) == 0 {
		return ""
	}
	return strings.TrimSpace(els[0].Text())
}

func (r *Response) firstInt(p *xmlview.Path) int {
	n, err := strconv.Atoi(r.firstText(p))
	if err != nil {
		return 0
	}
	return n
}
