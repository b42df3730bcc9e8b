// Package dom adapts goquery documents to the audit.Document interface.
package dom

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/rmn-raj/seo-tool/audit"
	"golang.org/x/net/html"
)

// Document wraps a parsed goquery document. It is read-only after
// construction and safe for concurrent use.
type Document struct {
	doc *goquery.Document
}

// Parse parses raw markup into a Document.
func Parse(markup string) (*Document, error) {
	return ParseReader(strings.NewReader(markup))
}

// ParseReader parses markup from r into a Document.
func ParseReader(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse markup: %w", err)
	}
	return &Document{doc: doc}, nil
}

// FromNode wraps an already parsed node tree.
func FromNode(root *html.Node) *Document {
	return &Document{doc: goquery.NewDocumentFromNode(root)}
}

// First implements audit.Document.
func (d *Document) First(tag string) (audit.Element, bool) {
	m, ok := matcher(tag)
	if !ok {
		return nil, false
	}
	sel := d.doc.FindMatcher(m).First()
	if sel.Length() == 0 {
		return nil, false
	}
	return element{sel}, true
}

// All implements audit.Document.
func (d *Document) All(tag string) []audit.Element {
	m, ok := matcher(tag)
	if !ok {
		return nil
	}
	sel := d.doc.FindMatcher(m)
	out := make([]audit.Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, element{s})
	})
	return out
}

// FirstWithAttr implements audit.Document. The attribute value is compared
// exactly, without CSS escaping concerns.
func (d *Document) FirstWithAttr(tag, attr, value string) (audit.Element, bool) {
	m, ok := matcher(tag)
	if !ok {
		return nil, false
	}
	var found *goquery.Selection
	d.doc.FindMatcher(m).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, exists := s.Attr(attr); exists && v == value {
			found = s
			return false
		}
		return true
	})
	if found == nil {
		return nil, false
	}
	return element{found}, true
}

type element struct {
	sel *goquery.Selection
}

func (e element) Text() string { return e.sel.Text() }

func (e element) Attr(name string) (string, bool) { return e.sel.Attr(name) }

// matchers caches compiled tag selectors; tag names are a small fixed set.
var matchers sync.Map // string -> cascadia.Selector

// matcher compiles a tag name into a selector. Anything that is not a plain
// tag name (combinators, attribute filters) is rejected.
func matcher(tag string) (cascadia.Selector, bool) {
	if v, ok := matchers.Load(tag); ok {
		return v.(cascadia.Selector), true
	}
	if tag == "" || strings.ContainsAny(tag, " >+~[]:.#,*") {
		return nil, false
	}
	sel, err := cascadia.Compile(tag)
	if err != nil {
		return nil, false
	}
	matchers.Store(tag, sel)
	return sel, true
}
