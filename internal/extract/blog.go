package extract

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/araddon/dateparse"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/user/neptun-scraper/internal/domain"
	"github.com/user/neptun-scraper/internal/normalize"
	"github.com/user/neptun-scraper/internal/selector"
	"github.com/user/neptun-scraper/internal/site"
)

// BlogPost reads one blog article. Content joins every paragraph of the body;
// the body is also split into sections at every heading.
func BlogPost(doc *html.Node, p site.Blog, pageURL string) (*domain.BlogPost, []error) {
	var errs []error
	post := &domain.BlogPost{
		URL:        pageURL,
		Authors:    nonNil(p.Authors.All(doc)),
		Tags:       nonNil(p.Tags.All(doc)),
		Categories: nonNil(p.Categories.All(doc)),
		Sections:   []domain.Section{},
	}
	post.Title, _ = p.Title.First(doc)
	post.PostedOn, _ = p.PostedOn.First(doc)

	if post.PostedOn != "" {
		t, err := dateparse.ParseAny(post.PostedOn)
		if err != nil {
			errs = append(errs, &FieldError{
				Field: "published",
				Err:   &normalize.FormatError{Input: post.PostedOn, Want: "a calendar date"},
			})
		} else {
			d := normalize.FormatDate(t)
			post.Published = &d
		}
	}

	roots := p.Content.Nodes(doc)
	if len(roots) == 0 {
		return post, errs
	}
	w := &sectionWalker{codeBlocks: make(map[*html.Node]bool), lines: p.CodeLines}
	for _, n := range p.CodeBlock.Nodes(roots[0]) {
		w.codeBlocks[n] = true
	}
	w.walk(roots[0])
	w.flush()

	post.Content = strings.Join(w.paragraphs, "\n")
	post.Sections = w.sections
	return post, errs
}

type sectionWalker struct {
	codeBlocks map[*html.Node]bool
	lines      selector.Chain

	paragraphs []string
	sections   []domain.Section
	current    *domain.Section
	content    []string
}

func (w *sectionWalker) walk(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if w.codeBlocks[c] {
			w.addCode(domain.CodeBlock{Content: w.codeText(c), HTML: htmlquery.OutputHTML(c, true)})
			continue
		}
		switch c.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			w.flush()
			w.current = &domain.Section{
				Title: selector.Clean(htmlquery.InnerText(c)),
				Code:  []domain.CodeBlock{},
			}
			continue
		case atom.P:
			if text := selector.Clean(htmlquery.InnerText(c)); text != "" {
				w.paragraphs = append(w.paragraphs, text)
				if w.current != nil {
					w.content = append(w.content, text)
				}
			}
			continue
		case atom.Pre:
			w.addCode(domain.CodeBlock{
				Content: strings.TrimRight(htmlquery.InnerText(c), "\n"),
				HTML:    htmlquery.OutputHTML(c, true),
			})
			continue
		}
		w.walk(c)
	}
}

func (w *sectionWalker) addCode(b domain.CodeBlock) {
	// code before the first heading has no section to live in
	if w.current != nil {
		w.current.Code = append(w.current.Code, b)
	}
}

func (w *sectionWalker) flush() {
	if w.current == nil {
		return
	}
	w.current.Content = strings.Join(w.content, "\n")
	w.sections = append(w.sections, *w.current)
	w.current = nil
	w.content = nil
}

func (w *sectionWalker) codeText(n *html.Node) string {
	lines := w.lines.Nodes(n)
	if len(lines) == 0 {
		return strings.TrimRight(htmlquery.InnerText(n), "\n")
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, strings.TrimRight(htmlquery.InnerText(l), " \t\r\n"))
	}
	return strings.Join(out, "\n")
}
