package extract

import (
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/user/neptun-scraper/internal/domain"
	"github.com/user/neptun-scraper/internal/normalize"
	"github.com/user/neptun-scraper/internal/site"
)

// ImageCard reads one search result card. now anchors the relative
// "Updated ... ago" marker.
func ImageCard(card *html.Node, p site.ImageCard, now time.Time) (*domain.ImageRecord, []error) {
	var errs []error
	rec := &domain.ImageRecord{}

	rec.Name, _ = p.Name.First(card)
	if href, ok := p.Href.First(card); ok {
		rec.URL = site.Absolute(site.HubBaseURL, href)
	}

	// An uploader line replaces the publisher badges.
	rec.Uploader = p.Uploader.Ptr(card)
	if rec.Uploader == nil {
		rec.IsOfficialImage = p.Official.Exists(card)
		rec.IsVerifiedPublisher = p.Verified.Exists(card)
	}

	if marker, ok := p.Updated.First(card); ok {
		date, err := normalize.UpdatedDate(marker, now)
		if err != nil {
			errs = append(errs, &FieldError{Field: "last_update", Err: err})
		} else {
			rec.LastUpdate = &date
		}
		rec.Description = p.Description.Ptr(card)
	}

	rec.Chips = nonNil(p.Chips.All(card))

	var err error
	if rec.Downloads, err = count(card, p.Downloads, "downloads"); err != nil {
		errs = append(errs, err)
	}
	if rec.PullsLastWeek, err = count(card, p.Pulls, "pulls_last_week"); err != nil {
		errs = append(errs, err)
	}
	if rec.Stars, err = count(card, p.Stars, "stars"); err != nil {
		errs = append(errs, err)
	}
	return rec, errs
}

// Cards returns the result card nodes of a search page.
func Cards(doc *html.Node, p site.ImageCard) []*html.Node {
	root := doc
	if nodes := p.Results.Nodes(doc); len(nodes) > 0 {
		root = nodes[0]
	}
	return p.Card.Nodes(root)
}

// HasNextPage reports whether a search page links to a further page.
func HasNextPage(doc *html.Node, p site.ImageCard) bool {
	return p.NextPage.Exists(doc)
}

// Repository reads a repository tags page.
func Repository(doc *html.Node, p site.Repository, pageURL string) (*domain.ImageRecord, []error) {
	var errs []error
	rec := &domain.ImageRecord{URL: strings.TrimSuffix(strings.TrimRight(pageURL, "/"), "/tags")}

	rec.Name, _ = p.Name.First(doc)
	rec.IsOfficialImage = p.Official.Exists(doc)
	rec.IsVerifiedPublisher = p.Verified.Exists(doc)
	rec.Description = p.Description.Ptr(doc)
	rec.Chips = dropChips(p.Chips.All(doc), p.StopChips)

	var err error
	if rec.Downloads, err = count(doc, p.Downloads, "downloads"); err != nil {
		errs = append(errs, err)
	}
	if rec.Stars, err = count(doc, p.Stars, "stars"); err != nil {
		errs = append(errs, err)
	}
	rec.Tags = Tags(doc, p)
	return rec, errs
}

// Tags reads and classifies the tag list of a repository tags page.
func Tags(doc *html.Node, p site.Repository) map[string][]string {
	return ClassifyTags(p.Tags.All(doc))
}

func dropChips(chips, stop []string) []string {
	out := []string{}
	for _, c := range chips {
		drop := false
		for _, s := range stop {
			if strings.EqualFold(c, s) {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, c)
		}
	}
	return out
}
