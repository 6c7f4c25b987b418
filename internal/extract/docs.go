package extract

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/user/neptun-scraper/internal/domain"
	"github.com/user/neptun-scraper/internal/site"
	"github.com/user/neptun-scraper/pkg/utils"
)

// Relative links are kept as they appear in the page.
var mdConverter = md.NewConverter("", true, nil)

// DocPage reads one documentation page and renders its body as markdown.
func DocPage(doc *html.Node, p site.Docs, pageURL string) (*domain.DocPage, error) {
	page := &domain.DocPage{
		URL:      pageURL,
		Headings: nonNil(p.Headings.All(doc)),
		Code:     []domain.CodeBlock{},
	}
	page.Title, _ = p.Title.First(doc)

	roots := p.Content.Nodes(doc)
	if len(roots) == 0 {
		return page, nil
	}
	body, err := mdConverter.ConvertString(htmlquery.OutputHTML(roots[0], true))
	if err != nil {
		return page, &FieldError{Field: "markdown", Err: fmt.Errorf("convert %s: %w", pageURL, err)}
	}
	page.Markdown = strings.TrimSpace(body)

	for _, n := range p.Code.Nodes(doc) {
		page.Code = append(page.Code, domain.CodeBlock{
			Content: strings.TrimRight(htmlquery.InnerText(n), "\n"),
			HTML:    htmlquery.OutputHTML(n, true),
		})
	}
	return page, nil
}

// DocLinks returns the documentation pages linked from the section sidebar
// that live on the documentation host.
func DocLinks(doc *html.Node, p site.Docs, base string) []string {
	var out []string
	for _, l := range Links(doc, p.Links, base) {
		if utils.SameHost(base, l) {
			out = append(out, l)
		}
	}
	return out
}
