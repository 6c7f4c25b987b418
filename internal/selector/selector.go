// Package selector evaluates CSS and XPath selector chains against parsed HTML.
//
// A Chain is an ordered list of alternatives: the first selector that yields
// a non-empty value wins, the rest are fallbacks for older markup revisions.
// A selector that matches nothing is not an error.
package selector

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Kind is the query language of a Selector.
type Kind string

const (
	CSS   Kind = "css"
	XPath Kind = "xpath"
)

// Selector locates nodes below a root node and reads a value from them.
type Selector struct {
	Kind Kind   `yaml:"kind"`
	Expr string `yaml:"expr"`
	// Attr reads the named attribute instead of the node text.
	Attr string `yaml:"attr,omitempty"`
	// Pattern filters values through a regular expression; the first capture
	// group (or the whole match) becomes the value.
	Pattern string `yaml:"pattern,omitempty"`
}

// Css is shorthand for a CSS selector.
func Css(expr string) Selector { return Selector{Kind: CSS, Expr: expr} }

// Xpath is shorthand for an XPath selector.
func Xpath(expr string) Selector { return Selector{Kind: XPath, Expr: expr} }

// WithAttr returns a copy of s reading attribute name.
func (s Selector) WithAttr(name string) Selector {
	s.Attr = name
	return s
}

// WithPattern returns a copy of s filtered through pattern.
func (s Selector) WithPattern(pattern string) Selector {
	s.Pattern = pattern
	return s
}

// Validate checks that the expression and pattern compile.
func (s Selector) Validate() error {
	switch s.Kind {
	case CSS:
		if _, err := cascadia.Compile(s.Expr); err != nil {
			return fmt.Errorf("css %q: %w", s.Expr, err)
		}
	case XPath:
		if _, err := htmlquery.QueryAll(&html.Node{Type: html.DocumentNode}, s.Expr); err != nil {
			return fmt.Errorf("xpath %q: %w", s.Expr, err)
		}
	default:
		return fmt.Errorf("unknown selector kind %q", s.Kind)
	}
	if s.Pattern != "" {
		if _, err := regexp.Compile(s.Pattern); err != nil {
			return fmt.Errorf("pattern %q: %w", s.Pattern, err)
		}
	}
	return nil
}

// Nodes returns the nodes below root matched by s, in document order.
func (s Selector) Nodes(root *html.Node) []*html.Node {
	if root == nil {
		return nil
	}
	switch s.Kind {
	case CSS:
		return goquery.NewDocumentFromNode(root).Find(s.Expr).Nodes
	case XPath:
		nodes, err := htmlquery.QueryAll(root, s.Expr)
		if err != nil {
			return nil
		}
		return nodes
	}
	return nil
}

// Values returns the non-empty values read from every matched node.
func (s Selector) Values(root *html.Node) []string {
	var re *regexp.Regexp
	if s.Pattern != "" {
		re = compile(s.Pattern)
		if re == nil {
			return nil
		}
	}

	var out []string
	for _, n := range s.Nodes(root) {
		v := read(n, s.Attr)
		if re != nil {
			m := re.FindStringSubmatch(v)
			if m == nil {
				continue
			}
			v = strings.TrimSpace(m[0])
			if len(m) > 1 {
				v = strings.TrimSpace(m[1])
			}
		}
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

var patterns sync.Map

func compile(pattern string) *regexp.Regexp {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	patterns.Store(pattern, re)
	return re
}

func read(n *html.Node, attr string) string {
	if attr != "" {
		return strings.TrimSpace(htmlquery.SelectAttr(n, attr))
	}
	return Clean(htmlquery.InnerText(n))
}

// Clean trims s and collapses whitespace runs into single spaces.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
