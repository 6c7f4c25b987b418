package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/neptun-scraper/internal/config"
	"github.com/user/neptun-scraper/internal/domain"
	"github.com/user/neptun-scraper/internal/monitoring"
	"github.com/user/neptun-scraper/internal/site"
	"github.com/user/neptun-scraper/internal/storage"
)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, req Request) (*Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.URL)
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}
	body, ok := f.pages[req.URL]
	if !ok {
		return nil, &FetchError{URL: req.URL, Err: errors.New("404 Not Found")}
	}
	return &Page{URL: req.URL, HTML: body}, nil
}

func (f *fakeFetcher) called(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == url {
			return true
		}
	}
	return false
}

type recordingSink struct {
	results []*domain.Result
	err     error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Write(ctx context.Context, res *domain.Result) error {
	s.results = append(s.results, res)
	return s.err
}

func card(href, name string) string {
	return fmt.Sprintf(`<a data-testid="imageSearchResult" href="%s">
		<strong data-testid="product-title">%s</strong>
		<div><span>Updated 2 days ago</span></div><p>About %s.</p></a>`, href, name, name)
}

func searchPage(next bool, cards ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="searchResults">`)
	for _, c := range cards {
		b.WriteString(c)
	}
	b.WriteString(`</div>`)
	if next {
		b.WriteString(`<ul><li data-testid="pagination-next"><a href="#">Next</a></li></ul>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func newTestCrawler(t *testing.T, pages map[string]string, sinks ...storage.Sink) (*Crawler, *fakeFetcher, *monitoring.Metrics) {
	t.Helper()
	f := &fakeFetcher{pages: pages}
	m := monitoring.NewMetrics(prometheus.NewRegistry())
	c := NewCrawler(
		config.CrawlConfig{Concurrency: 1, Pages: 1},
		site.Default(),
		map[site.Renderer]Fetcher{site.Browser: f, site.Static: f},
		sinks, m, zap.NewNop(),
	)
	c.now = func() time.Time { return time.Date(2024, time.June, 30, 12, 0, 0, 0, time.UTC) }
	return c, f, m
}

func names(res *domain.Result) []string {
	var out []string
	for _, rec := range res.Records() {
		out = append(out, rec.Key())
	}
	return out
}

func TestRunSearchStopsAtLastPage(t *testing.T) {
	hub, _ := site.Lookup(site.DockerHub)
	sink := &recordingSink{}
	c, f, m := newTestCrawler(t, map[string]string{
		hub.PageURL("python", 1): searchPage(true, card("/_/python", "python"), card("/r/cimg/python", "cimg/python")),
		hub.PageURL("python", 2): searchPage(false, card("/_/pypy", "pypy")),
	}, sink)

	res, err := c.Run(context.Background(), site.DockerHub, Options{Query: "python", Pages: 3})
	require.NoError(t, err)

	assert.True(t, res.Paged)
	assert.Equal(t, []int{1, 2}, res.PageNumbers())
	assert.Equal(t, []string{"python", "cimg/python", "pypy"}, names(res))
	assert.False(t, f.called(hub.PageURL("python", 3)))

	pypy := res.Pages[2][0].(*domain.ImageRecord)
	assert.Equal(t, 2, pypy.PageNumber)
	assert.Equal(t, "2024-06-28", *pypy.LastUpdate)
	assert.Equal(t, "About pypy.", *pypy.Description)
	assert.Equal(t, "https://hub.docker.com/_/pypy", pypy.URL)

	require.Len(t, sink.results, 1)
	assert.Same(t, res, sink.results[0])
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PagesFetched.WithLabelValues(site.DockerHub)))
}

func TestRunSearchDefaultsToTargetPages(t *testing.T) {
	hub, _ := site.Lookup(site.DockerHub)
	pages := make(map[string]string)
	for n := 1; n <= 11; n++ {
		pages[hub.PageURL("nginx", n)] = searchPage(true, card(fmt.Sprintf("/r/u%d/nginx", n), fmt.Sprintf("u%d/nginx", n)))
	}
	c, f, _ := newTestCrawler(t, pages)
	c.cfg.Pages = 0

	res, err := c.Run(context.Background(), site.DockerHub, Options{Query: "nginx"})
	require.NoError(t, err)

	assert.Len(t, res.PageNumbers(), 10)
	assert.True(t, f.called(hub.PageURL("nginx", 10)))
	assert.False(t, f.called(hub.PageURL("nginx", 11)))
}

func TestRunSearchSkipsFailedPages(t *testing.T) {
	hub, _ := site.Lookup(site.DockerHub)
	c, _, m := newTestCrawler(t, map[string]string{
		hub.PageURL("redis", 1): searchPage(true, card("/_/redis", "redis")),
		hub.PageURL("redis", 3): searchPage(false, card("/r/bitnami/redis", "bitnami/redis")),
	})

	res, err := c.Run(context.Background(), site.DockerHub, Options{Query: "redis", Pages: 3})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3}, res.PageNumbers())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchErrors.WithLabelValues(site.DockerHub)))

	require.Len(t, res.Failures, 1)
	assert.Equal(t, hub.PageURL("redis", 2), res.Failures[0].URL)
	assert.Contains(t, res.Failures[0].Reason, "404 Not Found")
}

func TestRunSearchFollowTags(t *testing.T) {
	hub, _ := site.Lookup(site.DockerHub)
	c, _, _ := newTestCrawler(t, map[string]string{
		hub.PageURL("python", 1): searchPage(false, card("/_/python", "python"), card("/r/cimg/python", "cimg/python")),
		"https://hub.docker.com/_/python/tags": `<div data-testid="repotagsTagList">
			<div data-testid="repotagsTagListItem"><a data-testid="navToImage">3.11-alpine</a></div>
			<div data-testid="repotagsTagListItem"><a data-testid="navToImage">latest</a></div></div>`,
	})

	res, err := c.Run(context.Background(), site.DockerHub, Options{Query: "python", FollowTags: true})
	require.NoError(t, err)

	recs := res.Pages[1]
	require.Len(t, recs, 2)
	assert.Equal(t, map[string][]string{"alpine": {"3.11"}, "default": {"latest"}}, recs[0].(*domain.ImageRecord).Tags)
	// the tags page of the second image failed and is skipped
	assert.Nil(t, recs[1].(*domain.ImageRecord).Tags)
}

func TestRunFieldParseErrorsCounted(t *testing.T) {
	hub, _ := site.Lookup(site.DockerHub)
	c, _, m := newTestCrawler(t, map[string]string{
		hub.PageURL("x", 1): searchPage(false, `<a data-testid="imageSearchResult" href="/_/x">
			<strong data-testid="product-title">x</strong><div><span>Updated recently</span></div></a>`,
			`<a data-testid="imageSearchResult" href="/_/nameless"></a>`),
	})

	res, err := c.Run(context.Background(), site.DockerHub, Options{Query: "x"})
	require.NoError(t, err)

	assert.Equal(t, []string{"x"}, names(res))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FieldParseErrors.WithLabelValues("last_update")))
}

func TestRunRepository(t *testing.T) {
	c, _, _ := newTestCrawler(t, map[string]string{
		"https://hub.docker.com/r/cimg/python/tags": `<h1 class="MuiTypography-h2">cimg/python</h1>
			<svg data-testid="verified_publisher-icon"></svg>
			<div data-testid="repotagsTagList"><div data-testid="repotagsTagListItem"><a data-testid="navToImage">3.12-node</a></div></div>`,
	})

	res, err := c.Run(context.Background(), site.DockerHubRepo, Options{Query: "cimg/python"})
	require.NoError(t, err)

	require.Equal(t, 1, res.Count())
	rec := res.Records()[0].(*domain.ImageRecord)
	assert.Equal(t, "cimg/python", rec.Name)
	assert.True(t, rec.IsVerifiedPublisher)
	assert.Equal(t, map[string][]string{"node": {"3.12"}}, rec.Tags)
	assert.Equal(t, "https://hub.docker.com/r/cimg/python", rec.URL)
}

func TestRunBlogFollowsPagination(t *testing.T) {
	post := func(title string) string {
		return fmt.Sprintf(`<h1 class="entry-title">%s</h1><div class="et_pb_module et_pb_post_content"><p>Body.</p></div>`, title)
	}
	c, f, _ := newTestCrawler(t, map[string]string{
		"https://www.docker.com/blog/": `<h2 class="entry-title"><a href="/blog/one/">One</a></h2>
			<h2 class="entry-title"><a href="/blog/two/">Two</a></h2>
			<div class="wp-pagenavi"><a class="nextpostslink" href="/blog/page/2/">»</a></div>`,
		"https://www.docker.com/blog/page/2/": `<h2 class="entry-title"><a href="/blog/three/">Three</a></h2>`,
		"https://www.docker.com/blog/one/":    post("One"),
		"https://www.docker.com/blog/two/":    post("Two"),
		"https://www.docker.com/blog/three/":  post("Three"),
	})

	res, err := c.Run(context.Background(), site.DockerBlog, Options{Pages: 5})
	require.NoError(t, err)

	assert.False(t, res.Paged)
	assert.Equal(t, []string{"One", "Two", "Three"}, names(res))
	assert.Equal(t, "Body.", res.Records()[0].(*domain.BlogPost).Content)
	assert.False(t, f.called("https://www.docker.com/blog/page/3/"))
}

func TestRunBlogPageLimit(t *testing.T) {
	c, f, _ := newTestCrawler(t, map[string]string{
		"https://www.docker.com/blog/": `<div class="wp-pagenavi"><a class="nextpostslink" href="/blog/page/2/">»</a></div>`,
	})

	res, err := c.Run(context.Background(), site.DockerBlog, Options{Pages: 1})
	require.NoError(t, err)
	assert.Zero(t, res.Count())
	assert.False(t, f.called("https://www.docker.com/blog/page/2/"))
}

func TestRunDocs(t *testing.T) {
	c, _, _ := newTestCrawler(t, map[string]string{
		"https://docs.docker.com/compose/": `<ul><li><button><span>Docker Compose</span></button>
			<ul class="ml-3"><li><a href="/compose/install/">Install</a></li><li><a href="/compose/missing/">Missing</a></li></ul></li></ul>`,
		"https://docs.docker.com/compose/install/": `<main><article><h1>Install</h1><p>Run the installer.</p></article></main>`,
	})

	res, err := c.Run(context.Background(), site.DockerDocs, Options{})
	require.NoError(t, err)

	require.Equal(t, 1, res.Count())
	page := res.Records()[0].(*domain.DocPage)
	assert.Equal(t, "Install", page.Title)
	assert.Contains(t, page.Markdown, "Run the installer.")
}

func TestRunErrors(t *testing.T) {
	c, _, _ := newTestCrawler(t, nil)

	_, err := c.Run(context.Background(), site.DockerHub, Options{})
	assert.ErrorIs(t, err, ErrQueryRequired)

	_, err = c.Run(context.Background(), "quay", Options{Query: "x"})
	assert.ErrorContains(t, err, "unknown target")
}

func TestRunSinkFailure(t *testing.T) {
	ok := &recordingSink{}
	broken := &recordingSink{err: errors.New("disk full")}
	c, _, m := newTestCrawler(t, map[string]string{}, broken, ok)

	res, err := c.Run(context.Background(), site.DockerDocs, Options{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	assert.NotNil(t, res)
	assert.Len(t, ok.results, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkErrors.WithLabelValues("recording")))
}

func TestRunCancelled(t *testing.T) {
	hub, _ := site.Lookup(site.DockerHub)
	sink := &recordingSink{}
	c, _, _ := newTestCrawler(t, map[string]string{
		hub.PageURL("python", 1): searchPage(true),
	}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Run(ctx, site.DockerHub, Options{Query: "python", Pages: 2})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.results)
}

func TestAccumulatorOrdersBySequence(t *testing.T) {
	acc := newAccumulator()
	acc.add(1, 2, &domain.DocPage{URL: "c"})
	acc.add(1, 0, &domain.DocPage{URL: "a"})
	acc.add(2, 0, &domain.DocPage{URL: "d"})
	acc.add(1, 1, &domain.DocPage{URL: "b"})

	pages := acc.pages()
	require.Len(t, pages[1], 3)
	assert.Equal(t, "a", pages[1][0].Key())
	assert.Equal(t, "b", pages[1][1].Key())
	assert.Equal(t, "c", pages[1][2].Key())
	assert.Equal(t, "d", pages[2][0].Key())
}

func TestFetchError(t *testing.T) {
	err := error(&FetchError{URL: "https://hub.docker.com", Err: context.DeadlineExceeded})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "https://hub.docker.com")
}
