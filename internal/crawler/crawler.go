package crawler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/user/neptun-scraper/internal/config"
	"github.com/user/neptun-scraper/internal/domain"
	"github.com/user/neptun-scraper/internal/extract"
	"github.com/user/neptun-scraper/internal/monitoring"
	"github.com/user/neptun-scraper/internal/site"
	"github.com/user/neptun-scraper/internal/storage"
)

// ErrQueryRequired is returned for targets that need a search query.
var ErrQueryRequired = errors.New("target requires a query")

// Options parameterize a single run.
type Options struct {
	Query string
	// Pages bounds listing pages; zero uses the configured default.
	Pages       int
	FollowTags  bool
	Screenshots bool
	// OutputDir is the base directory screenshots are written below.
	OutputDir string
}

// Crawler runs targets and hands their results to the sinks.
type Crawler struct {
	cfg      config.CrawlConfig
	profile  *site.Profile
	fetchers map[site.Renderer]Fetcher
	sinks    []storage.Sink
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewCrawler(cfg config.CrawlConfig, profile *site.Profile, fetchers map[site.Renderer]Fetcher, sinks []storage.Sink, m *monitoring.Metrics, l *zap.Logger) *Crawler {
	return &Crawler{
		cfg:      cfg,
		profile:  profile,
		fetchers: fetchers,
		sinks:    sinks,
		metrics:  m,
		logger:   l,
		now:      time.Now,
	}
}

// Run scrapes target and writes the result to every sink. Failed page
// fetches are logged and skipped; the returned error reports cancellation
// or sink failures. The result is returned even when sinks fail.
func (c *Crawler) Run(ctx context.Context, target string, opts Options) (*domain.Result, error) {
	t, err := site.Lookup(target)
	if err != nil {
		return nil, err
	}
	if t.RequiresQuery && opts.Query == "" {
		return nil, fmt.Errorf("%s: %w", t.Name, ErrQueryRequired)
	}
	if _, ok := c.fetchers[t.Renderer]; !ok {
		return nil, fmt.Errorf("%s: no %s fetcher configured", t.Name, t.Renderer)
	}
	if opts.Pages <= 0 {
		opts.Pages = c.cfg.Pages
	}
	if opts.Pages <= 0 {
		opts.Pages = t.DefaultPages
	}

	res := domain.NewResult(uuid.NewString(), t.Name, opts.Query, t.Paged)
	res.StartedAt = c.now()

	log := c.logger.With(zap.String("run_id", res.RunID), zap.String("target", t.Name))
	r := c.newRun(ctx, t, opts, res.StartedAt, log)
	log.Info("run started", zap.String("query", opts.Query), zap.Int("pages", opts.Pages))

	switch t.Name {
	case site.DockerHub:
		r.searchPages()
	case site.DockerHubRepo:
		r.repository()
	case site.DockerBlog:
		r.blog()
	case site.DockerDocs:
		r.docs()
	}
	runErr := r.group.Wait()

	res.Pages = r.acc.pages()
	res.Failures = r.acc.failures()
	res.FinishedAt = c.now()
	for _, rec := range res.Records() {
		c.metrics.AddRecords(string(rec.Kind()), 1)
	}

	if runErr != nil {
		c.metrics.IncRuns(t.Name, domain.JobFailed)
		log.Warn("run aborted", zap.Error(runErr), zap.Int("records", res.Count()))
		return res, runErr
	}
	log.Info("run finished", zap.Int("records", res.Count()), zap.Duration("took", res.FinishedAt.Sub(res.StartedAt)))

	if err := c.write(ctx, res); err != nil {
		c.metrics.IncRuns(t.Name, domain.JobFailed)
		return res, err
	}
	c.metrics.IncRuns(t.Name, domain.JobCompleted)
	return res, nil
}

func (c *Crawler) write(ctx context.Context, res *domain.Result) error {
	var errs []error
	for _, s := range c.sinks {
		if err := s.Write(ctx, res); err != nil {
			c.metrics.IncSinkErrors(s.Name())
			c.logger.Error("sink write failed", zap.String("sink", s.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Sinks returns the sinks results are written to.
func (c *Crawler) Sinks() []storage.Sink {
	return c.sinks
}

// run holds the state of one Run call.
type run struct {
	*Crawler
	ctx     context.Context
	target  site.Target
	opts    Options
	started time.Time
	group   *errgroup.Group
	limiter *rate.Limiter
	acc     *accumulator
	log     *zap.Logger
}

func (c *Crawler) newRun(ctx context.Context, t site.Target, opts Options, started time.Time, log *zap.Logger) *run {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	limit := rate.Inf
	if c.cfg.Delay > 0 {
		limit = rate.Every(c.cfg.Delay)
	}
	return &run{
		Crawler: c,
		ctx:     gctx,
		target:  t,
		opts:    opts,
		started: started,
		group:   g,
		limiter: rate.NewLimiter(limit, 1),
		acc:     newAccumulator(),
		log:     log,
	}
}

// fetch waits for the rate limiter and fetches req with the fetcher of
// renderer. Fetch failures are logged and counted; the returned error is
// only non-nil on cancellation, ok reports whether a page was fetched.
func (r *run) fetch(renderer site.Renderer, req Request) (*Page, bool, error) {
	if err := r.limiter.Wait(r.ctx); err != nil {
		return nil, false, err
	}
	start := time.Now()
	page, ferr := r.fetchers[renderer].Fetch(r.ctx, req)
	r.metrics.ObserveFetch(string(renderer), time.Since(start).Seconds())
	if ferr != nil {
		if r.ctx.Err() != nil {
			return nil, false, r.ctx.Err()
		}
		r.metrics.IncFetchErrors(r.target.Name)
		r.acc.fail(domain.FailedPage{URL: req.URL, Reason: ferr.Error(), At: r.now()})
		r.log.Warn("fetch failed, skipping page", zap.String("url", req.URL), zap.Error(ferr))
		return nil, false, nil
	}
	r.metrics.IncPagesFetched(r.target.Name)
	r.log.Debug("page fetched", zap.String("url", page.URL), zap.Int("bytes", len(page.HTML)))
	return page, true, nil
}

// fieldErrors logs and counts values that could not be normalized.
func (r *run) fieldErrors(url string, errs []error) {
	for _, err := range errs {
		field := "unknown"
		var fe *extract.FieldError
		if errors.As(err, &fe) {
			field = fe.Field
		}
		r.metrics.IncFieldParseErrors(field)
		r.log.Warn("field left empty", zap.String("url", url), zap.String("field", field), zap.Error(err))
	}
}

// keep drops records without identity.
func (r *run) keep(url string, rec domain.Record) bool {
	if rec.Key() == "" {
		r.log.Warn("record without identity dropped", zap.String("url", url), zap.String("kind", string(rec.Kind())))
		return false
	}
	return true
}

// accumulator collects records by page number. Records carry a sequence
// number so that concurrent fetches still produce a stable order.
type accumulator struct {
	mu     sync.Mutex
	recs   map[int][]entry
	failed []domain.FailedPage
}

type entry struct {
	seq int
	rec domain.Record
}

func newAccumulator() *accumulator {
	return &accumulator{recs: make(map[int][]entry)}
}

func (a *accumulator) add(page, seq int, rec domain.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recs[page] = append(a.recs[page], entry{seq: seq, rec: rec})
}

func (a *accumulator) fail(f domain.FailedPage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failed = append(a.failed, f)
}

func (a *accumulator) failures() []domain.FailedPage {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.FailedPage, len(a.failed))
	copy(out, a.failed)
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

func (a *accumulator) pages() map[int][]domain.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int][]domain.Record, len(a.recs))
	for page, entries := range a.recs {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
		recs := make([]domain.Record, len(entries))
		for i, e := range entries {
			recs[i] = e.rec
		}
		out[page] = recs
	}
	return out
}
