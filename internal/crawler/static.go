package crawler

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/user/neptun-scraper/internal/proxy"
)

// StaticFetcher fetches server-rendered pages over plain HTTP.
type StaticFetcher struct {
	base    *colly.Collector
	proxies *proxy.Manager
	logger  *zap.Logger
}

func NewStaticFetcher(timeout time.Duration, parallelism int, proxies *proxy.Manager, logger *zap.Logger) (*StaticFetcher, error) {
	base := colly.NewCollector()
	base.AllowURLRevisit = true
	base.SetRequestTimeout(timeout)
	if err := base.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: parallelism}); err != nil {
		return nil, err
	}
	base.SetProxyFunc(func(r *http.Request) (*url.URL, error) {
		p, err := proxies.Next(r.Context())
		if err != nil || p == "" {
			return nil, err
		}
		return url.Parse(p)
	})
	return &StaticFetcher{base: base, proxies: proxies, logger: logger}, nil
}

// Fetch retrieves req.URL. WaitSelector and Screenshot do not apply to
// static pages and are ignored.
func (s *StaticFetcher) Fetch(ctx context.Context, req Request) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}
	if req.Screenshot != "" {
		s.logger.Debug("screenshots need the browser fetcher", zap.String("url", req.URL))
	}

	c := s.base.Clone()
	var (
		body     []byte
		finalURL = req.URL
		fetchErr error
	)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", s.proxies.UserAgent())
	})
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		finalURL = r.Request.URL.String()
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(req.URL); err != nil && fetchErr == nil {
		fetchErr = err
	}
	c.Wait()

	if fetchErr != nil {
		return nil, &FetchError{URL: req.URL, Err: fetchErr}
	}
	return &Page{URL: finalURL, HTML: string(body)}, nil
}
