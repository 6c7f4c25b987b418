package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/neptun-scraper/internal/config"
	"github.com/user/neptun-scraper/internal/crawler"
	"github.com/user/neptun-scraper/internal/domain"
	"github.com/user/neptun-scraper/internal/monitoring"
	"github.com/user/neptun-scraper/internal/storage"
)

// Runner executes a scrape run.
type Runner interface {
	Run(ctx context.Context, target string, opts crawler.Options) (*domain.Result, error)
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	runner     Runner
	pingers    map[string]storage.Pinger
	jobs       *jobStore
	metrics    *monitoring.Metrics
	logger     *zap.Logger

	// jobs outlive their request; they stop with the server
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewServer(cfg *config.Config, runner Runner, sinks []storage.Sink, m *monitoring.Metrics, l *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:  cfg,
		runner:  runner,
		pingers: make(map[string]storage.Pinger),
		jobs:    newJobStore(),
		metrics: m,
		logger:  l,
		baseCtx: ctx,
		cancel:  cancel,
	}
	for _, sink := range sinks {
		if p, ok := sink.(storage.Pinger); ok {
			s.pingers[sink.Name()] = p
		}
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, cancels running jobs and waits for
// them to return.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func (s *Server) submit(req domain.ScrapeRequest) *job {
	j := s.jobs.create(req)
	s.wg.Add(1)
	s.metrics.JobsInProgress.Inc()
	go func() {
		defer s.wg.Done()
		defer s.metrics.JobsInProgress.Dec()
		s.jobs.start(j.id)

		opts := crawler.Options{
			Query:      req.Query,
			Pages:      req.Pages,
			FollowTags: req.FollowTags,
			OutputDir:  s.config.Output.Dir,
		}
		res, err := s.runner.Run(s.baseCtx, req.Target, opts)
		records, failed := 0, 0
		if res != nil {
			records, failed = res.Count(), len(res.Failures)
		}
		if err != nil {
			s.logger.Error("scrape job failed", zap.String("job_id", j.id), zap.Error(err))
		} else {
			s.logger.Info("scrape job finished", zap.String("job_id", j.id), zap.Int("records", records))
		}
		s.jobs.finish(j.id, records, failed, err)
	}()
	return j
}
