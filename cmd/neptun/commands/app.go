package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/user/neptun-scraper/internal/config"
	"github.com/user/neptun-scraper/internal/crawler"
	"github.com/user/neptun-scraper/internal/monitoring"
	"github.com/user/neptun-scraper/internal/proxy"
	"github.com/user/neptun-scraper/internal/site"
	"github.com/user/neptun-scraper/internal/storage"
)

// app bundles the components shared by the scrape and serve commands.
type app struct {
	crawler *crawler.Crawler
	metrics *monitoring.Metrics
	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, l *zap.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{}

	profile, err := site.Load(cfg.Site.ProfilesFile)
	if err != nil {
		return nil, err
	}

	sinks, err := a.openSinks(ctx, cfg, l)
	if err != nil {
		a.close()
		return nil, err
	}

	proxies := proxy.NewManager(cfg.Proxy, l)

	browser := crawler.NewBrowserFetcher(cfg.Browser, proxies, l)
	a.closers = append(a.closers, browser.Close)

	static, err := crawler.NewStaticFetcher(cfg.Browser.Timeout, cfg.Crawl.Concurrency, proxies, l)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init static fetcher: %w", err)
	}

	fetchers := map[site.Renderer]crawler.Fetcher{
		site.Browser: browser,
		site.Static:  static,
	}
	a.metrics = monitoring.NewMetrics(reg)
	a.crawler = crawler.NewCrawler(cfg.Crawl, profile, fetchers, sinks, a.metrics, l)
	return a, nil
}

func (a *app) openSinks(ctx context.Context, cfg *config.Config, l *zap.Logger) ([]storage.Sink, error) {
	var sinks []storage.Sink
	for _, name := range cfg.Output.Sinks {
		switch name {
		case config.SinkFile:
			sinks = append(sinks, storage.NewFileSink(cfg.Output.Dir, l))

		case config.SinkPostgres:
			pg, err := storage.NewPostgresSink(ctx, cfg.Postgres.URL, l)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, pg.Close)
			if err := pg.EnsureSchema(ctx); err != nil {
				return nil, err
			}
			sinks = append(sinks, pg)

		case config.SinkRedis:
			rs := storage.NewRedisSink(cfg.Redis, l)
			a.closers = append(a.closers, func() { _ = rs.Close() })
			if err := rs.Ping(ctx); err != nil {
				return nil, fmt.Errorf("connect to redis: %w", err)
			}
			sinks = append(sinks, rs)

		default:
			return nil, errors.New("unknown sink " + name)
		}
	}
	return sinks, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
