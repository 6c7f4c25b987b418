package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Sink names accepted in output.sinks.
const (
	SinkFile     = "file"
	SinkPostgres = "postgres"
	SinkRedis    = "redis"
)

// Config stores all configuration for the application.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	Output   OutputConfig   `mapstructure:"output"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Server   ServerConfig   `mapstructure:"server"`
	Site     SiteConfig     `mapstructure:"site"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

type CrawlConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Delay       time.Duration `mapstructure:"delay"`
	Pages       int           `mapstructure:"pages"` // 0 uses the target default
	FollowTags  bool          `mapstructure:"follow_tags"`
	Screenshots bool          `mapstructure:"screenshots"`
}

type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless"`
	Timeout        time.Duration `mapstructure:"timeout"`
	PoolSize       int           `mapstructure:"pool_size"`
	BlockResources bool          `mapstructure:"block_resources"`
	ExecPath       string        `mapstructure:"exec_path"`
}

type ProxyConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	ListURL      string        `mapstructure:"list_url"`
	Proxies      []string      `mapstructure:"proxies"`
	UserAgents   []string      `mapstructure:"user_agents"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

type OutputConfig struct {
	Dir   string   `mapstructure:"dir"`
	Sinks []string `mapstructure:"sinks"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type SiteConfig struct {
	ProfilesFile string `mapstructure:"profiles_file"`
}

// DefaultProxyList is the public HTTP proxy list used when proxies are
// enabled without an explicit list.
const DefaultProxyList = "https://raw.githubusercontent.com/TheSpeedX/SOCKS-List/master/http.txt"

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("crawl.concurrency", 1)
	v.SetDefault("crawl.delay", 5*time.Second)
	v.SetDefault("crawl.pages", 0) // 0 uses the default of each target
	v.SetDefault("crawl.follow_tags", false)
	v.SetDefault("crawl.screenshots", false)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.timeout", 60*time.Second)
	v.SetDefault("browser.pool_size", 2)
	v.SetDefault("browser.block_resources", true)
	v.SetDefault("browser.exec_path", "")

	v.SetDefault("proxy.enabled", false)
	v.SetDefault("proxy.list_url", DefaultProxyList)
	v.SetDefault("proxy.proxies", []string{})
	v.SetDefault("proxy.user_agents", []string{})
	v.SetDefault("proxy.fetch_timeout", 15*time.Second)

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.sinks", []string{SinkFile})

	v.SetDefault("postgres.url", "")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 48*time.Hour)

	v.SetDefault("server.port", "8080")

	v.SetDefault("site.profiles_file", "")
}

// Load reads configuration from the optional file at path and from
// NEPTUN_ prefixed environment variables, e.g. NEPTUN_CRAWL_DELAY=10s.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NEPTUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and sink prerequisites.
func (c *Config) Validate() error {
	var errs []error
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format: want json or console, got %q", c.Log.Format))
	}
	if c.Crawl.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("crawl.concurrency: must be at least 1, got %d", c.Crawl.Concurrency))
	}
	if c.Crawl.Delay < 0 {
		errs = append(errs, fmt.Errorf("crawl.delay: must not be negative"))
	}
	if c.Crawl.Pages < 0 {
		errs = append(errs, fmt.Errorf("crawl.pages: must not be negative, got %d", c.Crawl.Pages))
	}
	if c.Browser.Timeout <= 0 {
		errs = append(errs, errors.New("browser.timeout: must be positive"))
	}
	if c.Browser.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("browser.pool_size: must be at least 1, got %d", c.Browser.PoolSize))
	}
	for _, s := range c.Output.Sinks {
		switch s {
		case SinkFile:
			if c.Output.Dir == "" {
				errs = append(errs, errors.New("output.dir: required by the file sink"))
			}
		case SinkPostgres:
			if c.Postgres.URL == "" {
				errs = append(errs, errors.New("postgres.url: required by the postgres sink"))
			}
		case SinkRedis:
			if c.Redis.Addr == "" {
				errs = append(errs, errors.New("redis.addr: required by the redis sink"))
			}
		default:
			errs = append(errs, fmt.Errorf("output.sinks: unknown sink %q", s))
		}
	}
	return errors.Join(errs...)
}

// HasSink reports whether name is one of the configured sinks.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.Output.Sinks {
		if s == name {
			return true
		}
	}
	return false
}
