package proxy

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/user/neptun-scraper/internal/config"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
}

// Manager handles the rotation of proxies and user agents. The proxy list
// is fetched on first use, not at construction.
type Manager struct {
	enabled    bool
	listURL    string
	client     *resty.Client
	logger     *zap.Logger
	userAgents []string

	mu         sync.Mutex
	loaded     bool
	proxies    []string
	proxyIndex int
}

func NewManager(cfg config.ProxyConfig, logger *zap.Logger) *Manager {
	client := resty.New().SetTimeout(cfg.FetchTimeout)

	m := &Manager{
		enabled:    cfg.Enabled,
		listURL:    cfg.ListURL,
		client:     client,
		logger:     logger,
		userAgents: cfg.UserAgents,
	}
	if len(m.userAgents) == 0 {
		m.userAgents = defaultUserAgents
	}
	if len(cfg.Proxies) > 0 {
		m.proxies = validProxies(cfg.Proxies, logger)
		m.loaded = true
	}
	return m
}

// Next returns a proxy URL from the list, rotating sequentially. It returns
// "" when proxies are disabled or none are usable.
func (m *Manager) Next(ctx context.Context) (string, error) {
	if !m.enabled {
		return "", nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		list, err := m.fetch(ctx)
		if err != nil {
			return "", err
		}
		m.proxies = validProxies(list, m.logger)
		m.loaded = true
		m.logger.Info("proxy list loaded", zap.String("url", m.listURL), zap.Int("proxies", len(m.proxies)))
	}
	if len(m.proxies) == 0 {
		return "", nil
	}
	proxy := m.proxies[m.proxyIndex]
	m.proxyIndex = (m.proxyIndex + 1) % len(m.proxies)
	return proxy, nil
}

// Len returns the number of usable proxies loaded so far.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.proxies)
}

// UserAgent returns a random user agent string.
func (m *Manager) UserAgent() string {
	return m.userAgents[rand.Intn(len(m.userAgents))]
}

func (m *Manager) fetch(ctx context.Context) ([]string, error) {
	res, err := m.client.R().SetContext(ctx).Get(m.listURL)
	if err != nil {
		return nil, fmt.Errorf("fetch proxy list: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("fetch proxy list: unexpected status %s", res.Status())
	}
	return strings.Split(res.String(), "\n"), nil
}

func validProxies(list []string, logger *zap.Logger) []string {
	var out []string
	for _, raw := range list {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p, err := Normalize(raw)
		if err != nil {
			logger.Debug("skipping proxy", zap.String("proxy", raw), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	return out
}

// Normalize validates a proxy entry and returns it as a URL. Bare host:port
// entries are taken as http proxies.
func Normalize(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return "", fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		return "", err
	}
	if host == "" || port == "" {
		return "", fmt.Errorf("proxy %q needs host and port", raw)
	}
	return u.String(), nil
}
