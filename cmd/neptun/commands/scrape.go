package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/neptun-scraper/internal/config"
	"github.com/user/neptun-scraper/internal/crawler"
	"github.com/user/neptun-scraper/internal/site"
	"github.com/user/neptun-scraper/internal/storage"
)

type scrapeOptions struct {
	query       string
	pages       int
	followTags  bool
	screenshots bool
	sinks       []string
	output      string
	metricsAddr string
}

var scrapeFlags scrapeOptions

func init() {
	f := scrapeCmd.Flags()
	f.StringVarP(&scrapeFlags.query, "query", "q", "", "Search term (dockerhub) or repository path (dockerhub-repo).")
	f.IntVarP(&scrapeFlags.pages, "pages", "p", 0, "Number of listing pages to crawl; 0 uses crawl.pages, then the target default.")
	f.BoolVar(&scrapeFlags.followTags, "follow-tags", false, "Visit the tags page of every search result.")
	f.BoolVar(&scrapeFlags.screenshots, "screenshots", false, "Save a full-page screenshot of every rendered page.")
	f.StringSliceVar(&scrapeFlags.sinks, "sink", nil, "Sinks to write to (file, postgres, redis); defaults to output.sinks.")
	f.StringVarP(&scrapeFlags.output, "output", "o", "", "Output directory; defaults to output.dir.")
	f.StringVar(&scrapeFlags.metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address while scraping.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <target> [--query <q>] [--pages <n>]",
	Short: "Scrapes a target once and writes the records to the configured sinks.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		if _, err := site.Lookup(target); err != nil {
			return err
		}

		f := cmd.Flags()
		if f.Changed("sink") {
			cfg.Output.Sinks = scrapeFlags.sinks
		}
		if f.Changed("output") {
			cfg.Output.Dir = scrapeFlags.output
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if scrapeFlags.metricsAddr != "" {
			shutdown := serveMetrics(scrapeFlags.metricsAddr)
			defer shutdown()
		}

		a, err := newApp(ctx, cfg, log, prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		defer a.close()

		opts := crawler.Options{
			Query:       scrapeFlags.query,
			Pages:       scrapeFlags.pages,
			FollowTags:  scrapeFlags.followTags || cfg.Crawl.FollowTags,
			Screenshots: scrapeFlags.screenshots || cfg.Crawl.Screenshots,
			OutputDir:   cfg.Output.Dir,
		}

		t1 := time.Now()
		res, err := a.crawler.Run(ctx, target, opts)
		if res != nil {
			fields := []zap.Field{
				zap.String("target", target),
				zap.Int("records", res.Count()),
				zap.Float64("seconds", time.Since(t1).Seconds()),
			}
			if cfg.HasSink(config.SinkFile) {
				fields = append(fields, zap.String("file", storage.NewFileSink(cfg.Output.Dir, log).Path(res)))
			}
			log.Info("scrape finished", fields...)
		}
		if errors.Is(err, context.Canceled) {
			log.Warn("scrape interrupted")
		}
		return err
	},
}

func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadTimeout: 10 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
