package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/neptun-scraper/internal/site"
)

func TestDocPage(t *testing.T) {
	doc := load(t, "docs_page.html")
	url := "https://docs.docker.com/compose/"

	page, err := DocPage(doc, site.Default().Docs, url)
	require.NoError(t, err)

	assert.Equal(t, "Docker Compose overview", page.Title)
	assert.Equal(t, url, page.URL)
	assert.Equal(t, []string{"Key features", "Example"}, page.Headings)
	assert.Contains(t, page.Markdown, "# Docker Compose overview")
	assert.Contains(t, page.Markdown, "## Key features")
	assert.Contains(t, page.Markdown, "[multi-container](/compose/multi/)")
	assert.Contains(t, page.Markdown, "docker compose up")
	assert.NotContains(t, page.Markdown, "Docker Engine")

	require.Len(t, page.Code, 1)
	assert.Equal(t, "docker compose up", page.Code[0].Content)
}

func TestDocLinks(t *testing.T) {
	doc := load(t, "docs_page.html")

	links := DocLinks(doc, site.Default().Docs, site.DocsBaseURL+"/compose/")
	assert.Equal(t, []string{
		"https://docs.docker.com/compose/install/",
		"https://docs.docker.com/compose/gettingstarted/",
	}, links)
}
