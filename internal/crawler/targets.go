package crawler

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/user/neptun-scraper/internal/domain"
	"github.com/user/neptun-scraper/internal/extract"
	"github.com/user/neptun-scraper/internal/site"
	"github.com/user/neptun-scraper/internal/storage"
)

// searchPages schedules search result pages 1..Pages. Pages past the last
// one offering a next link are skipped.
func (r *run) searchPages() {
	var last atomic.Int64
	last.Store(int64(r.opts.Pages))

	for n := 1; n <= r.opts.Pages; n++ {
		n := n
		r.group.Go(func() error {
			if int64(n) > last.Load() {
				return nil
			}
			req := Request{URL: r.target.PageURL(r.opts.Query, n), WaitSelector: r.target.WaitSelector}
			if r.opts.Screenshots {
				req.Screenshot = filepath.Join(storage.RunDir(r.opts.OutputDir, r.started), fmt.Sprintf("screenshot_page_%d.png", n))
			}
			page, ok, err := r.fetch(r.target.Renderer, req)
			if err != nil || !ok {
				return err
			}
			doc, err := extract.Parse(page.HTML)
			if err != nil {
				r.log.Warn("unparseable page", zap.String("url", page.URL), zap.Error(err))
				return nil
			}

			p := r.profile.ImageCard
			cards := extract.Cards(doc, p)
			if len(cards) == 0 {
				r.log.Info("no search results", zap.String("url", page.URL))
			}
			now := r.now()
			for i, card := range cards {
				rec, errs := extract.ImageCard(card, p, now)
				r.fieldErrors(page.URL, errs)
				if !r.keep(page.URL, rec) {
					continue
				}
				rec.PageNumber = n
				if r.opts.FollowTags && rec.URL != "" {
					if err := r.followTags(rec); err != nil {
						return err
					}
				}
				r.acc.add(n, i, rec)
			}

			if !extract.HasNextPage(doc, p) {
				for {
					cur := last.Load()
					if int64(n) >= cur || last.CompareAndSwap(cur, int64(n)) {
						break
					}
				}
				r.log.Info("no more pages", zap.Int("page", n))
			}
			return nil
		})
	}
}

// followTags fills the tag mapping of rec from its repository tags page.
func (r *run) followTags(rec *domain.ImageRecord) error {
	hub, err := site.Lookup(site.DockerHubRepo)
	if err != nil {
		return err
	}
	page, ok, err := r.fetch(hub.Renderer, Request{URL: site.TagsURL(rec.URL), WaitSelector: hub.WaitSelector})
	if err != nil || !ok {
		return err
	}
	doc, err := extract.Parse(page.HTML)
	if err != nil {
		r.log.Warn("unparseable page", zap.String("url", page.URL), zap.Error(err))
		return nil
	}
	rec.Tags = extract.Tags(doc, r.profile.Repository)
	return nil
}

// repository scrapes the tags page of a single repository.
func (r *run) repository() {
	r.group.Go(func() error {
		url := site.RepositoryTagsURL(r.opts.Query)
		page, ok, err := r.fetch(r.target.Renderer, Request{URL: url, WaitSelector: r.target.WaitSelector})
		if err != nil || !ok {
			return err
		}
		doc, err := extract.Parse(page.HTML)
		if err != nil {
			r.log.Warn("unparseable page", zap.String("url", page.URL), zap.Error(err))
			return nil
		}
		rec, errs := extract.Repository(doc, r.profile.Repository, url)
		r.fieldErrors(url, errs)
		if r.keep(url, rec) {
			rec.PageNumber = 1
			r.acc.add(1, 0, rec)
		}
		return nil
	})
}

// blog walks the listing pages and schedules every linked post. Posts are
// grouped under the number of the listing page that linked them.
func (r *run) blog() {
	next := r.target.PageURL("", 1)
	for n := 1; n <= r.opts.Pages && next != ""; n++ {
		page, ok, err := r.fetch(r.target.Renderer, Request{URL: next, WaitSelector: r.target.WaitSelector})
		if err != nil {
			r.group.Go(func() error { return err })
			return
		}
		if !ok {
			return
		}
		doc, err := extract.Parse(page.HTML)
		if err != nil {
			r.log.Warn("unparseable page", zap.String("url", page.URL), zap.Error(err))
			return
		}

		links := extract.Links(doc, r.profile.Blog.PostLinks, page.URL)
		r.log.Info("blog listing", zap.Int("page", n), zap.Int("posts", len(links)))
		for i, link := range links {
			n, i, link := n, i, link
			r.group.Go(func() error { return r.blogPost(n, i, link) })
		}

		next = ""
		if href, ok := r.profile.Blog.NextPage.First(doc); ok {
			next = site.Absolute(page.URL, href)
		}
	}
}

func (r *run) blogPost(listing, seq int, url string) error {
	page, ok, err := r.fetch(r.target.Renderer, Request{URL: url, WaitSelector: "h1.entry-title"})
	if err != nil || !ok {
		return err
	}
	doc, err := extract.Parse(page.HTML)
	if err != nil {
		r.log.Warn("unparseable page", zap.String("url", url), zap.Error(err))
		return nil
	}
	post, errs := extract.BlogPost(doc, r.profile.Blog, url)
	r.fieldErrors(url, errs)
	if r.keep(url, post) {
		r.acc.add(listing, seq, post)
	}
	return nil
}

// docs scrapes every page linked from the section sidebar of the start page.
func (r *run) docs() {
	start := r.target.PageURL("", 1)
	page, ok, err := r.fetch(r.target.Renderer, Request{URL: start, WaitSelector: r.target.WaitSelector})
	if err != nil {
		r.group.Go(func() error { return err })
		return
	}
	if !ok {
		return
	}
	doc, err := extract.Parse(page.HTML)
	if err != nil {
		r.log.Warn("unparseable page", zap.String("url", start), zap.Error(err))
		return
	}

	links := extract.DocLinks(doc, r.profile.Docs, page.URL)
	r.log.Info("docs sidebar", zap.Int("pages", len(links)))
	for i, link := range links {
		i, link := i, link
		r.group.Go(func() error { return r.docPage(i, link) })
	}
}

func (r *run) docPage(seq int, url string) error {
	page, ok, err := r.fetch(r.target.Renderer, Request{URL: url, WaitSelector: r.target.WaitSelector})
	if err != nil || !ok {
		return err
	}
	doc, err := extract.Parse(page.HTML)
	if err != nil {
		r.log.Warn("unparseable page", zap.String("url", url), zap.Error(err))
		return nil
	}
	dp, err := extract.DocPage(doc, r.profile.Docs, url)
	if err != nil {
		r.fieldErrors(url, []error{err})
	}
	if r.keep(url, dp) {
		r.acc.add(1, seq, dp)
	}
	return nil
}
