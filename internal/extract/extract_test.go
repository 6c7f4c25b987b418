package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/user/neptun-scraper/internal/site"
)

func load(t *testing.T, name string) *html.Node {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	doc, err := Parse(string(raw))
	require.NoError(t, err)
	return doc
}

func TestParseKeepsNestedAnchorsInsideCard(t *testing.T) {
	doc, err := Parse(`<div><a id="card" href="/_/python"><div><p>Pulls:</p><a href="https://example.com">Learn more</a></div></a></div>`)
	require.NoError(t, err)

	cards := htmlquery.Find(doc, `//a[@id="card"]`)
	require.Len(t, cards, 1)
	assert.Equal(t, "Pulls:Learn more", htmlquery.InnerText(cards[0]))

	inner := htmlquery.FindOne(cards[0], `.//span[@href="https://example.com"]`)
	assert.NotNil(t, inner)
}

func TestUnnestAnchorsKeepsAttributes(t *testing.T) {
	out := unnestAnchors(`<a href="/_/python"><a data-testid="productChip" class="chip" href="/x">Languages</a></a>`)
	assert.Equal(t, `<a href="/_/python"><span data-testid="productChip" class="chip" href="/x">Languages</span></a>`, out)
}

func TestLinks(t *testing.T) {
	doc := load(t, "blog_listing.html")
	p := site.Default().Blog

	links := Links(doc, p.PostLinks, site.BlogBaseURL+"/blog/")
	assert.Equal(t, []string{
		"https://www.docker.com/blog/compose-tips/",
		"https://www.docker.com/blog/build-cloud/",
	}, links)

	next, ok := p.NextPage.First(doc)
	assert.True(t, ok)
	assert.Equal(t, "https://www.docker.com/blog/page/2/", next)
}
