package crawler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/neptun-scraper/internal/config"
	"github.com/user/neptun-scraper/internal/proxy"
)

// screenshotQuality 100 makes chromedp capture PNG; anything lower is JPEG.
const screenshotQuality = 100

type allocator struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// BrowserFetcher renders pages in headless Chrome. Browser processes are
// pooled; each one is started with the next proxy and a random user agent.
type BrowserFetcher struct {
	cfg     config.BrowserConfig
	proxies *proxy.Manager
	logger  *zap.Logger

	pool chan *allocator
	mu   sync.Mutex
	all  []*allocator
}

func NewBrowserFetcher(cfg config.BrowserConfig, proxies *proxy.Manager, logger *zap.Logger) *BrowserFetcher {
	b := &BrowserFetcher{
		cfg:     cfg,
		proxies: proxies,
		logger:  logger,
		pool:    make(chan *allocator, cfg.PoolSize),
	}
	for i := 0; i < cfg.PoolSize; i++ {
		b.pool <- nil
	}
	return b
}

// Fetch navigates to req.URL, waits for req.WaitSelector and returns the
// rendered document.
func (b *BrowserFetcher) Fetch(ctx context.Context, req Request) (*Page, error) {
	var alloc *allocator
	select {
	case alloc = <-b.pool:
	case <-ctx.Done():
		return nil, &FetchError{URL: req.URL, Err: ctx.Err()}
	}
	defer func() { b.pool <- alloc }()

	if alloc == nil {
		a, err := b.newAllocator(ctx)
		if err != nil {
			return nil, &FetchError{URL: req.URL, Err: err}
		}
		alloc = a
	}

	taskCtx, cancel := chromedp.NewContext(alloc.ctx, chromedp.WithLogf(b.logger.Sugar().Debugf))
	defer cancel()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, b.cfg.Timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	actions := []chromedp.Action{}
	if b.cfg.BlockResources {
		chromedp.ListenTarget(taskCtx, b.interceptor(taskCtx))
		actions = append(actions, fetch.Enable())
	}
	actions = append(actions, chromedp.Navigate(req.URL))
	if req.WaitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(req.WaitSelector, chromedp.ByQuery))
	}

	var html string
	var shot []byte
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if req.Screenshot != "" {
		actions = append(actions, chromedp.FullScreenshot(&shot, screenshotQuality))
	}

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}

	if req.Screenshot != "" {
		if err := writeFile(req.Screenshot, shot); err != nil {
			b.logger.Warn("screenshot not saved", zap.String("path", req.Screenshot), zap.Error(err))
		}
	}
	return &Page{URL: req.URL, HTML: html}, nil
}

// Close shuts down every browser started by the fetcher.
func (b *BrowserFetcher) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.all {
		a.cancel()
	}
	b.all = nil
}

func (b *BrowserFetcher) newAllocator(ctx context.Context) (*allocator, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.proxies.UserAgent()),
	)
	if b.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.cfg.ExecPath))
	}
	p, err := b.proxies.Next(ctx)
	if err != nil {
		return nil, err
	}
	if p != "" {
		opts = append(opts, chromedp.ProxyServer(p))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	a := &allocator{ctx: allocCtx, cancel: cancel}

	b.mu.Lock()
	b.all = append(b.all, a)
	b.mu.Unlock()

	b.logger.Debug("browser allocator started", zap.String("proxy", p))
	return a, nil
}

func (b *BrowserFetcher) interceptor(taskCtx context.Context) func(ev any) {
	return func(ev any) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(taskCtx)
			ctx := cdp.WithExecutor(taskCtx, c.Target)
			var err error
			if shouldBlock(paused.ResourceType, paused.Request.URL) {
				err = fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(ctx)
			} else {
				err = fetch.ContinueRequest(paused.RequestID).Do(ctx)
			}
			if err != nil && taskCtx.Err() == nil {
				b.logger.Debug("request interception failed", zap.String("url", paused.Request.URL), zap.Error(err))
			}
		}()
	}
}

// shouldBlock reports whether a sub-resource is skipped while rendering.
func shouldBlock(kind network.ResourceType, url string) bool {
	if kind == network.ResourceTypeImage || kind == network.ResourceTypeFont {
		return true
	}
	return strings.Contains(url, ".jpg") || strings.Contains(url, "font")
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
