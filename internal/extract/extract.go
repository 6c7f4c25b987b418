// Package extract turns parsed pages of the scraped sites into records.
//
// Extractors are pure: they read the node tree they are given, never fetch,
// and never fail as a whole. A field whose selector matches nothing stays
// empty; a field whose text cannot be normalized stays empty and is reported
// as a FieldError next to the record.
package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/user/neptun-scraper/internal/normalize"
	"github.com/user/neptun-scraper/internal/selector"
	"github.com/user/neptun-scraper/internal/site"
	"github.com/user/neptun-scraper/pkg/utils"
)

// FieldError reports a field that was present but could not be normalized.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Parse parses an HTML document. Anchors nested inside anchors are turned
// into spans first: a serialized live DOM may contain them, and the HTML
// parser would otherwise split the outer link apart.
func Parse(body string) (*html.Node, error) {
	doc, err := htmlquery.Parse(strings.NewReader(unnestAnchors(body)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func unnestAnchors(body string) string {
	z := html.NewTokenizer(strings.NewReader(body))
	var b strings.Builder
	b.Grow(len(body))
	depth := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				return b.String()
			}
			return body
		}
		raw := append([]byte(nil), z.Raw()...)
		switch tt {
		case html.StartTagToken:
			// Token consumes the tag data; read it once.
			tok := z.Token()
			if tok.DataAtom == atom.A {
				depth++
				if depth > 1 {
					tok.Data, tok.DataAtom = "span", atom.Span
					b.WriteString(tok.String())
					continue
				}
			}
		case html.EndTagToken:
			tok := z.Token()
			if tok.DataAtom == atom.A && depth > 0 {
				depth--
				if depth > 0 {
					b.WriteString("</span>")
					continue
				}
			}
		}
		b.Write(raw)
	}
}

// Links returns the absolute targets of the links matched by c, in document
// order, without fragments and without repeats.
func Links(root *html.Node, c selector.Chain, base string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, href := range c.All(root) {
		abs := utils.StripFragment(site.Absolute(base, href))
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	return out
}

// count normalizes the first value of c. A missing value is not an error.
func count(root *html.Node, c selector.Chain, field string) (*int64, error) {
	raw, ok := c.First(root)
	if !ok {
		return nil, nil
	}
	v, ok := normalize.ParseCount(raw)
	if !ok {
		return nil, &FieldError{
			Field: field,
			Err:   &normalize.FormatError{Input: raw, Want: "a count such as 9.7K, 1B+ or 6,904,987"},
		}
	}
	return &v, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
