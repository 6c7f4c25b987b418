package site

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Renderer selects the fetcher used for a target.
type Renderer string

const (
	// Browser renders pages in headless Chrome.
	Browser Renderer = "browser"
	// Static fetches pages over plain HTTP.
	Static Renderer = "static"
)

// Target names.
const (
	DockerHub     = "dockerhub"
	DockerHubRepo = "dockerhub-repo"
	DockerBlog    = "docker-blog"
	DockerDocs    = "docker-docs"
)

// Target describes where a scrape starts and how its pages are fetched.
type Target struct {
	Name        string
	Description string
	BaseURL     string
	// StartURL may contain {query} and {page} placeholders.
	StartURL string
	// WaitSelector is a CSS selector that must be visible before a
	// rendered page is captured.
	WaitSelector  string
	Renderer      Renderer
	Paged         bool
	RequiresQuery bool
	// DefaultPages bounds listing pages when the caller sets no limit.
	DefaultPages int
}

var targets = map[string]Target{
	DockerHub: {
		Name:          DockerHub,
		Description:   "Docker Hub search result cards, one record per image",
		BaseURL:       HubBaseURL,
		StartURL:      HubBaseURL + "/search?q={query}&page={page}",
		WaitSelector:  "div#searchResults",
		Renderer:      Browser,
		Paged:         true,
		RequiresQuery: true,
		DefaultPages:  10,
	},
	DockerHubRepo: {
		Name:          DockerHubRepo,
		Description:   "Docker Hub repository tags page for user/image or an official image",
		BaseURL:       HubBaseURL,
		WaitSelector:  `div[data-testid="repotagsTagList"]`,
		Renderer:      Browser,
		RequiresQuery: true,
		DefaultPages:  1,
	},
	DockerBlog: {
		Name:         DockerBlog,
		Description:  "Docker blog posts with sections and code blocks",
		BaseURL:      BlogBaseURL,
		StartURL:     BlogBaseURL + "/blog/",
		WaitSelector: "h2.entry-title",
		Renderer:     Browser,
		DefaultPages: 1,
	},
	DockerDocs: {
		Name:         DockerDocs,
		Description:  "Docker Compose documentation pages as markdown",
		BaseURL:      DocsBaseURL,
		StartURL:     DocsBaseURL + "/compose/",
		Renderer:     Static,
		DefaultPages: 1,
	},
}

// Lookup returns the target registered under name.
func Lookup(name string) (Target, error) {
	t, ok := targets[name]
	if !ok {
		return Target{}, fmt.Errorf("unknown target %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return t, nil
}

// Names returns the registered target names, sorted.
func Names() []string {
	names := make([]string, 0, len(targets))
	for n := range targets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PageURL expands the start URL for query and page.
func (t Target) PageURL(query string, page int) string {
	r := strings.NewReplacer("{query}", url.QueryEscape(query), "{page}", fmt.Sprint(page))
	return r.Replace(t.StartURL)
}

// RepositoryTagsURL returns the tags page of a repository. A query of the
// form user/image addresses a community repository, anything else an
// official image.
func RepositoryTagsURL(query string) string {
	query = strings.Trim(strings.TrimSpace(query), "/")
	if parts := strings.Split(query, "/"); len(parts) == 2 {
		return fmt.Sprintf("%s/r/%s/%s/tags", HubBaseURL, parts[0], parts[1])
	}
	return fmt.Sprintf("%s/_/%s/tags", HubBaseURL, query)
}

// TagsURL returns the tags page below a repository link taken from a
// search result card.
func TagsURL(href string) string {
	return Absolute(HubBaseURL, strings.TrimRight(href, "/")+"/tags")
}
