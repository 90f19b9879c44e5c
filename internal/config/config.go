// Package config loads and validates site2pdf configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/site2pdf/internal/crawler"
	"github.com/JakeFAU/site2pdf/internal/render"
)

// EnvPrefix prefixes every environment override, e.g. SITE2PDF_CRAWL_MAX_DEPTH.
const EnvPrefix = "SITE2PDF"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Render  RenderConfig  `mapstructure:"render"`
	Storage StorageConfig `mapstructure:"storage"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlConfig governs link discovery.
type CrawlConfig struct {
	MaxDepth       int           `mapstructure:"max_depth"`
	SameDomainOnly bool          `mapstructure:"same_domain_only"`
	Workers        int           `mapstructure:"workers"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	HostQPS        float64       `mapstructure:"host_qps"`
	MaxBodyBytes   int           `mapstructure:"max_body_bytes"`
}

// FilterConfig narrows the discovered URLs before rendering.
type FilterConfig struct {
	URLContains []string `mapstructure:"url_contains"`
}

// RenderConfig configures the PDF rendering subsystem.
type RenderConfig struct {
	Concurrency       int           `mapstructure:"concurrency"`
	OutputDir         string        `mapstructure:"output_dir"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	TimeoutPolicy     string        `mapstructure:"timeout_policy"`
	PageFormat        string        `mapstructure:"page_format"`
	PrintBackground   bool          `mapstructure:"print_background"`
	Headless          bool          `mapstructure:"headless"`
	ChromePath        string        `mapstructure:"chrome_path"`
}

// StorageConfig enables mirroring rendered PDFs to GCS.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// NewViper returns a Viper instance with defaults and environment overrides
// registered. Callers may bind flags onto it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads the optional config file at path into v and returns the
// validated Config.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = NewViper()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Filter.URLContains = splitList(cfg.Filter.URLContains)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.max_depth", 1)
	v.SetDefault("crawl.same_domain_only", true)
	v.SetDefault("crawl.workers", crawler.DefaultWorkers)
	v.SetDefault("crawl.request_timeout", crawler.DefaultRequestTimeout)
	v.SetDefault("crawl.user_agent", crawler.DefaultUserAgent)
	v.SetDefault("crawl.host_qps", 0)
	v.SetDefault("crawl.max_body_bytes", 0)
	v.SetDefault("filter.url_contains", []string{})
	v.SetDefault("render.concurrency", render.DefaultConcurrency)
	v.SetDefault("render.output_dir", render.DefaultOutputDir)
	v.SetDefault("render.navigation_timeout", render.DefaultNavigationTimeout)
	v.SetDefault("render.timeout_policy", string(render.TimeoutRender))
	v.SetDefault("render.page_format", string(render.FormatA4))
	v.SetDefault("render.print_background", true)
	v.SetDefault("render.headless", true)
	v.SetDefault("render.chrome_path", "")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "pdfs")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawl.MaxDepth < 0 {
		return fmt.Errorf("crawl.max_depth must be >= 0")
	}
	if c.Crawl.Workers <= 0 {
		return fmt.Errorf("crawl.workers must be > 0")
	}
	if c.Crawl.RequestTimeout <= 0 {
		return fmt.Errorf("crawl.request_timeout must be > 0")
	}
	if c.Crawl.HostQPS < 0 {
		return fmt.Errorf("crawl.host_qps must be >= 0")
	}
	if c.Crawl.MaxBodyBytes < 0 {
		return fmt.Errorf("crawl.max_body_bytes must be >= 0")
	}
	if c.Render.Concurrency <= 0 {
		return fmt.Errorf("render.concurrency must be > 0")
	}
	if c.Render.NavigationTimeout <= 0 {
		return fmt.Errorf("render.navigation_timeout must be > 0")
	}
	if strings.TrimSpace(c.Render.OutputDir) == "" {
		return fmt.Errorf("render.output_dir must be set")
	}
	switch render.TimeoutPolicy(c.Render.TimeoutPolicy) {
	case render.TimeoutRender, render.TimeoutFail:
	default:
		return fmt.Errorf("render.timeout_policy must be %q or %q, got %q",
			render.TimeoutRender, render.TimeoutFail, c.Render.TimeoutPolicy)
	}
	if _, err := render.ParsePageFormat(c.Render.PageFormat); err != nil {
		return fmt.Errorf("render.page_format: %w", err)
	}
	return nil
}

// FetcherConfig converts the crawl settings for the HTTP fetcher.
func (c Config) FetcherConfig() crawler.FetcherConfig {
	return crawler.FetcherConfig{
		UserAgent:   c.Crawl.UserAgent,
		Timeout:     c.Crawl.RequestTimeout,
		HostQPS:     c.Crawl.HostQPS,
		MaxBodySize: c.Crawl.MaxBodyBytes,
	}
}

// OrchestratorConfig converts the render settings. It assumes Validate passed.
func (c Config) OrchestratorConfig() render.Config {
	format, _ := render.ParsePageFormat(c.Render.PageFormat)
	return render.Config{
		OutputDir:         c.Render.OutputDir,
		Concurrency:       c.Render.Concurrency,
		NavigationTimeout: c.Render.NavigationTimeout,
		TimeoutPolicy:     render.TimeoutPolicy(c.Render.TimeoutPolicy),
		PDF: render.PDFOptions{
			Format:          format,
			PrintBackground: c.Render.PrintBackground,
		},
	}
}

// ChromedpConfig converts the browser settings.
func (c Config) ChromedpConfig() render.ChromedpConfig {
	return render.ChromedpConfig{
		Headless:  c.Render.Headless,
		UserAgent: c.Crawl.UserAgent,
		ExecPath:  c.Render.ChromePath,
	}
}

// splitList accepts both list values and a single comma separated string, as
// produced by environment variables.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
