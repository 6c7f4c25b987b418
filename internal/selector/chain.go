package selector

import (
	"fmt"

	"golang.org/x/net/html"
)

// Chain is an ordered list of alternative selectors for the same field.
type Chain []Selector

// First returns the first value produced by the first selector that
// produces any.
func (c Chain) First(root *html.Node) (string, bool) {
	for _, s := range c {
		if vs := s.Values(root); len(vs) > 0 {
			return vs[0], true
		}
	}
	return "", false
}

// Ptr is First returning nil on a miss.
func (c Chain) Ptr(root *html.Node) *string {
	v, ok := c.First(root)
	if !ok {
		return nil
	}
	return &v
}

// All returns every value of the first selector that produces any.
func (c Chain) All(root *html.Node) []string {
	for _, s := range c {
		if vs := s.Values(root); len(vs) > 0 {
			return vs
		}
	}
	return nil
}

// Nodes returns the matches of the first selector that matches.
func (c Chain) Nodes(root *html.Node) []*html.Node {
	for _, s := range c {
		if ns := s.Nodes(root); len(ns) > 0 {
			return ns
		}
	}
	return nil
}

// Exists reports whether any selector in the chain matches a node.
func (c Chain) Exists(root *html.Node) bool {
	return len(c.Nodes(root)) > 0
}

// Validate checks every selector in the chain.
func (c Chain) Validate() error {
	for i, s := range c {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("selector %d: %w", i, err)
		}
	}
	return nil
}
