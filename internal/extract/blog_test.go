package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/neptun-scraper/internal/normalize"
	"github.com/user/neptun-scraper/internal/site"
)

func TestBlogPost(t *testing.T) {
	doc := load(t, "blog_post.html")
	url := "https://www.docker.com/blog/compose-tips/"

	post, errs := BlogPost(doc, site.Default().Blog, url)
	assert.Empty(t, errs)

	assert.Equal(t, "Docker Compose tips for local development", post.Title)
	assert.Equal(t, url, post.URL)
	assert.Equal(t, []string{"Jane Doe", "John Roe"}, post.Authors)
	assert.Equal(t, []string{"compose", "development"}, post.Tags)
	assert.Equal(t, []string{"Engineering", "Products"}, post.Categories)
	assert.Equal(t, "Jun 12, 2024", post.PostedOn)
	assert.Equal(t, ptr("2024-06-12"), post.Published)
	// paragraphs after headings belong to the content too
	assert.Equal(t, "Intro one.\nIntro two.\nInstall compose.\nThen run it.\nRead the docs.", post.Content)

	require.Len(t, post.Sections, 2)

	first := post.Sections[0]
	assert.Equal(t, "Getting started", first.Title)
	assert.Equal(t, "Install compose.\nThen run it.", first.Content)
	require.Len(t, first.Code, 1)
	assert.Equal(t, "services:\n  web:", first.Code[0].Content)
	assert.Contains(t, first.Code[0].HTML, `<td class="code">`)

	second := post.Sections[1]
	assert.Equal(t, "Next steps", second.Title)
	assert.Equal(t, "Read the docs.", second.Content)
	require.Len(t, second.Code, 1)
	assert.Equal(t, "docker compose up", second.Code[0].Content)
	assert.Contains(t, second.Code[0].HTML, "<pre")
}

func TestBlogPostWithoutBody(t *testing.T) {
	doc, err := Parse(`<h1 class="entry-title">Only a title</h1><div class="post-date"><p>sometime soon</p></div>`)
	require.NoError(t, err)

	post, errs := BlogPost(doc, site.Default().Blog, "https://www.docker.com/blog/x/")
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], normalize.ErrFormat)

	assert.Equal(t, "Only a title", post.Title)
	assert.Nil(t, post.Published)
	assert.Empty(t, post.Content)
	assert.Empty(t, post.Sections)
	assert.Equal(t, []string{}, post.Authors)
}
