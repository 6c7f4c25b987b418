package selector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const fixture = `<html><body>
<div id="card">
  <span><strong data-testid="product-title"> python </strong></span>
  <div class="meta"><span>By  CircleCI</span><span>Updated 3 days ago</span></div>
  <p class="desc">Python is
     an interpreted language.</p>
  <a href="/_/python" data-testid="link">open</a>
  <ul><li>one</li><li> </li><li>two</li></ul>
</div>
<div id="other"><span>Updated 9 days ago</span></div>
</body></html>`

func parse(t *testing.T) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(fixture))
	require.NoError(t, err)
	return doc
}

func card(t *testing.T) *html.Node {
	t.Helper()
	nodes := Css("#card").Nodes(parse(t))
	require.Len(t, nodes, 1)
	return nodes[0]
}

func TestSelectorValues(t *testing.T) {
	root := card(t)

	tests := []struct {
		name string
		sel  Selector
		want []string
	}{
		{"css text is trimmed", Css(`[data-testid="product-title"]`), []string{"python"}},
		{"whitespace collapsed", Css("p.desc"), []string{"Python is an interpreted language."}},
		{"attribute", Css("a").WithAttr("href"), []string{"/_/python"}},
		{"empty values dropped", Css("li"), []string{"one", "two"}},
		{"pattern capture group", Css("span").WithPattern(`^By (.+)`), []string{"CircleCI"}},
		{"pattern without group", Css("span").WithPattern(`\d+ days`), []string{"3 days"}},
		{"xpath relative to root", Xpath(`.//span[contains(text(), "Updated")]`), []string{"Updated 3 days ago"}},
		{"xpath sibling", Xpath(`.//span[contains(text(), "Updated")]/ancestor::div[1]/following-sibling::p[1]`), []string{"Python is an interpreted language."}},
		{"miss", Css(".nope"), nil},
		{"bad xpath is a miss", Xpath(`.//[`), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sel.Values(root))
		})
	}
}

func TestChainFallback(t *testing.T) {
	root := card(t)

	c := Chain{Css("h1.title"), Css(`[data-testid="product-title"]`)}
	v, ok := c.First(root)
	assert.True(t, ok)
	assert.Equal(t, "python", v)

	assert.Nil(t, Chain{Css("h1")}.Ptr(root))
	assert.Equal(t, []string{"one", "two"}, Chain{Css("ol li"), Css("ul li")}.All(root))
	assert.True(t, Chain{Css("ol"), Css("ul")}.Exists(root))
	assert.False(t, Chain{}.Exists(root))
}

func TestSelectorNilRoot(t *testing.T) {
	assert.Nil(t, Css("p").Values(nil))
	_, ok := Chain{Xpath("//p")}.First(nil)
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Chain{Css("div > p"), Xpath("//p[1]"), Css("span").WithPattern(`^By (.+)`)}.Validate())
	assert.Error(t, Css("div >").Validate())
	assert.Error(t, Xpath("//p[").Validate())
	assert.Error(t, Selector{Kind: "jq", Expr: "."}.Validate())
	assert.Error(t, Css("p").WithPattern("(").Validate())
}
