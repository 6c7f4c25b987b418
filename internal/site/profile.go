// Package site holds the per-site knowledge of the scrapers: which targets
// exist, where they start, what to wait for and which selector chains read
// each field. Deployments may override the selector chains with a YAML file
// when the markup of a site changes.
package site

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/user/neptun-scraper/internal/selector"
	"github.com/user/neptun-scraper/pkg/utils"
)

const (
	HubBaseURL  = "https://hub.docker.com"
	BlogBaseURL = "https://www.docker.com"
	DocsBaseURL = "https://docs.docker.com"
)

// ImageCard reads one search result card of the registry UI.
type ImageCard struct {
	Results     selector.Chain `yaml:"results"`
	Card        selector.Chain `yaml:"card"`
	NextPage    selector.Chain `yaml:"next_page"`
	Href        selector.Chain `yaml:"href"`
	Name        selector.Chain `yaml:"name"`
	Uploader    selector.Chain `yaml:"uploader"`
	Official    selector.Chain `yaml:"official"`
	Verified    selector.Chain `yaml:"verified"`
	Updated     selector.Chain `yaml:"updated"`
	Description selector.Chain `yaml:"description"`
	Chips       selector.Chain `yaml:"chips"`
	Downloads   selector.Chain `yaml:"downloads"`
	Pulls       selector.Chain `yaml:"pulls"`
	Stars       selector.Chain `yaml:"stars"`
}

// Repository reads a repository tags page of the registry UI.
type Repository struct {
	Name        selector.Chain `yaml:"name"`
	Official    selector.Chain `yaml:"official"`
	Verified    selector.Chain `yaml:"verified"`
	Description selector.Chain `yaml:"description"`
	Chips       selector.Chain `yaml:"chips"`
	Downloads   selector.Chain `yaml:"downloads"`
	Stars       selector.Chain `yaml:"stars"`
	Tags        selector.Chain `yaml:"tags"`
	// StopChips are chip labels dropped case-insensitively.
	StopChips []string `yaml:"stop_chips"`
}

// Blog reads the vendor blog listing and post pages.
type Blog struct {
	PostLinks  selector.Chain `yaml:"post_links"`
	NextPage   selector.Chain `yaml:"next_page"`
	Title      selector.Chain `yaml:"title"`
	Categories selector.Chain `yaml:"categories"`
	Tags       selector.Chain `yaml:"tags"`
	Authors    selector.Chain `yaml:"authors"`
	PostedOn   selector.Chain `yaml:"posted_on"`
	Content    selector.Chain `yaml:"content"`
	// CodeBlock matches highlighted code containers inside Content and
	// CodeLines the lines within one of them.
	CodeBlock selector.Chain `yaml:"code_block"`
	CodeLines selector.Chain `yaml:"code_lines"`
}

// Docs reads the documentation site.
type Docs struct {
	Links    selector.Chain `yaml:"links"`
	Title    selector.Chain `yaml:"title"`
	Content  selector.Chain `yaml:"content"`
	Headings selector.Chain `yaml:"headings"`
	Code     selector.Chain `yaml:"code"`
}

// Profile is the full selector set.
type Profile struct {
	ImageCard  ImageCard  `yaml:"image_card"`
	Repository Repository `yaml:"repository"`
	Blog       Blog       `yaml:"blog"`
	Docs       Docs       `yaml:"docs"`
}

var (
	css   = selector.Css
	xpath = selector.Xpath
)

// Default returns the selectors matching the live markup of the sites.
func Default() *Profile {
	return &Profile{
		ImageCard: ImageCard{
			Results:  selector.Chain{css("div#searchResults")},
			Card:     selector.Chain{css(`a[data-testid="imageSearchResult"]`)},
			NextPage: selector.Chain{css(`li[data-testid="pagination-next"]`)},
			Href:     selector.Chain{xpath(".").WithAttr("href")},
			Name:     selector.Chain{css(`[data-testid="product-title"]`)},
			Uploader: selector.Chain{css("span").WithPattern(`^By (.+)`)},
			Official: selector.Chain{css(`[data-testid="official-icon"]`)},
			Verified: selector.Chain{css(`[data-testid="verified_publisher-icon"]`)},
			Updated:  selector.Chain{xpath(`.//span[contains(text(), "Updated")]`)},
			Description: selector.Chain{
				xpath(`.//span[contains(text(), "Updated")]/ancestor::div[1]/following-sibling::p[1]`),
			},
			Chips: selector.Chain{css(`[data-testid="productChip"] span`)},
			Downloads: selector.Chain{
				xpath(`.//*[@data-testid="FileDownloadIcon" or @data-testid="DownloadIcon"]/following-sibling::p[1]`),
			},
			Pulls: selector.Chain{xpath(`.//p[contains(text(), "Pulls:")]/following-sibling::p[1]`)},
			Stars: selector.Chain{xpath(`.//*[@data-testid="StarOutlineIcon"]/following-sibling::span[1]/strong`)},
		},
		Repository: Repository{
			Name:        selector.Chain{css("h1.MuiTypography-h2, h2.MuiTypography-h2"), css("h1")},
			Official:    selector.Chain{css(`[data-testid="official-icon"]`)},
			Verified:    selector.Chain{css(`[data-testid="verified_publisher-icon"]`)},
			Description: selector.Chain{css(`p[data-testid="description"]`)},
			Chips: selector.Chain{
				css(`a[data-testid="productChip"] span`),
				css("span.MuiChip-labelSmall"),
			},
			Downloads: selector.Chain{
				xpath(`.//*[@data-testid="DownloadIcon" or @data-testid="FileDownloadIcon"]/following-sibling::p[1]`),
				css("p.MuiTypography-body1.css-12r72vy"),
			},
			Stars: selector.Chain{xpath(`.//*[@data-testid="StarOutlineIcon"]/following-sibling::span[1]//strong`)},
			Tags: selector.Chain{
				css(`div[data-testid="repotagsTagListItem"] a[data-testid="navToImage"]`),
			},
			StopChips: []string{"new", "image"},
		},
		Blog: Blog{
			PostLinks:  selector.Chain{css("h2.entry-title a").WithAttr("href")},
			NextPage:   selector.Chain{css("div.wp-pagenavi a.nextpostslink").WithAttr("href")},
			Title:      selector.Chain{css("h1.entry-title")},
			Categories: selector.Chain{css(".widget_categories li a")},
			Tags:       selector.Chain{css(`a[rel="tag"]`)},
			Authors:    selector.Chain{css(`a[rel="author"]`)},
			PostedOn:   selector.Chain{css("div.post-date > p")},
			Content:    selector.Chain{css("div.et_pb_module.et_pb_post_content")},
			CodeBlock:  selector.Chain{css("div.wp-block-syntaxhighlighter-code td.code")},
			CodeLines:  selector.Chain{css(".line")},
		},
		Docs: Docs{
			Links: selector.Chain{
				xpath(`//li[button/span[contains(text(), "Docker Compose")]]//ul[@class="ml-3"]//a`).WithAttr("href"),
			},
			Title:    selector.Chain{css("article h1"), css("h1")},
			Content:  selector.Chain{css("article"), css("main")},
			Headings: selector.Chain{css("article h2, article h3"), css("main h2, main h3")},
			Code:     selector.Chain{css("article pre"), css("main pre")},
		},
	}
}

// Load returns the default profile overlaid with the chains set in the YAML
// file at path. An empty path yields the defaults.
func Load(path string) (*Profile, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site profile: %w", err)
	}
	if err := yaml.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("parse site profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("site profile %s: %w", path, err)
	}
	return p, nil
}

// Validate compiles every chain of the profile.
func (p *Profile) Validate() error {
	chains := map[string]selector.Chain{
		"image_card.card":        p.ImageCard.Card,
		"image_card.name":        p.ImageCard.Name,
		"image_card.uploader":    p.ImageCard.Uploader,
		"image_card.official":    p.ImageCard.Official,
		"image_card.verified":    p.ImageCard.Verified,
		"image_card.updated":     p.ImageCard.Updated,
		"image_card.description": p.ImageCard.Description,
		"image_card.chips":       p.ImageCard.Chips,
		"image_card.downloads":   p.ImageCard.Downloads,
		"image_card.pulls":       p.ImageCard.Pulls,
		"image_card.stars":       p.ImageCard.Stars,
		"repository.name":        p.Repository.Name,
		"repository.tags":        p.Repository.Tags,
		"blog.post_links":        p.Blog.PostLinks,
		"blog.title":             p.Blog.Title,
		"blog.content":           p.Blog.Content,
		"docs.links":             p.Docs.Links,
		"docs.content":           p.Docs.Content,
	}
	var errs []error
	for name, c := range chains {
		if len(c) == 0 {
			errs = append(errs, fmt.Errorf("%s: no selectors", name))
			continue
		}
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	optional := []selector.Chain{
		p.ImageCard.Results, p.ImageCard.NextPage, p.ImageCard.Href,
		p.Repository.Official, p.Repository.Verified, p.Repository.Description,
		p.Repository.Chips, p.Repository.Downloads, p.Repository.Stars,
		p.Blog.NextPage, p.Blog.Categories, p.Blog.Tags, p.Blog.Authors,
		p.Blog.PostedOn, p.Blog.CodeBlock, p.Blog.CodeLines,
		p.Docs.Title, p.Docs.Headings, p.Docs.Code,
	}
	for _, c := range optional {
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Absolute resolves href against base, returning href unchanged when it
// cannot be resolved.
func Absolute(base, href string) string {
	abs, err := utils.ToAbsoluteURL(base, href)
	if err != nil {
		return href
	}
	return abs
}
