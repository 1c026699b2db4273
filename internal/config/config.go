package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultSitemapTimeout bounds each sitemap document fetch.
	DefaultSitemapTimeout = 60 * time.Second

	// DefaultPageTimeout bounds each page fetch done for content extraction.
	DefaultPageTimeout = 30 * time.Second

	// DefaultClassifyTimeout bounds a single classification request.
	// Pair prompts carry two full pages, so this is generous.
	DefaultClassifyTimeout = 2 * time.Minute

	// DefaultConcurrency is the number of pages extracted at the same time.
	DefaultConcurrency = 8

	// DefaultThreshold is the minimum score a candidate needs to be kept.
	DefaultThreshold = 50.0

	// DefaultCacheDir is the cache root, relative to the working directory.
	DefaultCacheDir = "tmp"

	// DefaultOutputFile is the CSV report path.
	DefaultOutputFile = "intersections.csv"

	// DefaultModel is the chat model used for classification.
	DefaultModel = "gpt-4o-mini"

	// DefaultBaseURL is the OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultRequestsPerSecond paces classification requests.
	DefaultRequestsPerSecond = 5.0

	// AppName is the application name used for XDG directory paths.
	AppName = "crosslink"

	// DefaultUserAgent identifies crosslink in HTTP requests.
	DefaultUserAgent = "crosslink/0.1 (+https://github.com/nao1215/crosslink)"

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultMaxSitemapSize limits a sitemap document, the protocol maximum.
	DefaultMaxSitemapSize = 50 * 1024 * 1024 // 50MB
)

// Config holds all configuration options for one crosslink run.
// It is populated from the configuration file and CLI flags and passed
// through the application explicitly.
type Config struct {
	// MySitemap is the sitemap of the site that will receive the links.
	MySitemap string

	// TargetSitemap is the sitemap of the site being linked to.
	TargetSitemap string

	// MyFilter restricts which paths of MySitemap are processed.
	MyFilter string

	// TargetFilter restricts which paths of TargetSitemap are processed.
	TargetFilter string

	// SitemapTimeout bounds each sitemap document fetch.
	SitemapTimeout time.Duration

	// PageTimeout bounds each page fetch.
	PageTimeout time.Duration

	// ClassifyTimeout bounds each classification request.
	ClassifyTimeout time.Duration

	// Concurrency is the page extraction pool width.
	Concurrency int

	// Threshold is the minimum candidate score, inclusive.
	Threshold float64

	// CacheDir is the root of the content-addressed cache.
	CacheDir string

	// Refresh bypasses cache lookups and overwrites existing entries.
	Refresh bool

	// OutputFile is the CSV report path.
	OutputFile string

	// MarkdownFile is an optional Markdown report path.
	MarkdownFile string

	// JSONFile is an optional JSON report path.
	JSONFile string

	// Model is the classification chat model.
	Model string

	// APIKey authenticates against the classification service.
	APIKey string

	// BaseURL is the classification service base URL.
	BaseURL string

	// RequestsPerSecond paces classification requests.
	RequestsPerSecond float64

	// UserAgent is sent with every sitemap and page request.
	UserAgent string

	// MaxBodySize limits page bodies in bytes. 0 means the default.
	MaxBodySize int64

	// MaxSitemapSize limits sitemap documents in bytes, after
	// decompression. 0 means the default.
	MaxSitemapSize int64

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit configuration file path, if any.
	ConfigFilePath string

	// SiteConfigs holds the loaded configuration file.
	SiteConfigs *File

	// SaveHistory records the run in the history database.
	SaveHistory bool

	// DBDir is the directory of the history database.
	DBDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		SitemapTimeout:    DefaultSitemapTimeout,
		PageTimeout:       DefaultPageTimeout,
		ClassifyTimeout:   DefaultClassifyTimeout,
		Concurrency:       DefaultConcurrency,
		Threshold:         DefaultThreshold,
		CacheDir:          DefaultCacheDir,
		OutputFile:        DefaultOutputFile,
		Model:             DefaultModel,
		BaseURL:           DefaultBaseURL,
		RequestsPerSecond: DefaultRequestsPerSecond,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		MaxSitemapSize:    DefaultMaxSitemapSize,
		SaveHistory:       true,
		DBDir:             XDGDataDir(),
		SiteConfigs:       &File{Sites: make(map[string]SiteConfig)},
	}
}

// ApplyFile copies the values set in the configuration file onto c.
// Values absent from the file leave c untouched, so flags applied
// afterwards still take precedence.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.SiteConfigs = f

	if f.Classifier.Model != "" {
		c.Model = f.Classifier.Model
	}
	if f.Classifier.BaseURL != "" {
		c.BaseURL = f.Classifier.BaseURL
	}
	if f.Classifier.RequestsPerSecond > 0 {
		c.RequestsPerSecond = f.Classifier.RequestsPerSecond
	}
	if f.Concurrency > 0 {
		c.Concurrency = f.Concurrency
	}
	if f.Threshold != nil {
		c.Threshold = *f.Threshold
	}
	if f.CacheDir != "" {
		c.CacheDir = f.CacheDir
	}
	if f.Output != "" {
		c.OutputFile = f.Output
	}
	if f.Defaults.UserAgent != "" {
		c.UserAgent = f.Defaults.UserAgent
	}
}

// SiteConfig returns the merged site settings for host.
func (c *Config) SiteConfig(host string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(host)
}

// XDGDataDir returns the XDG data directory for crosslink.
// On Linux: ~/.local/share/crosslink
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for crosslink.
// On Linux: ~/.config/crosslink
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found, wrapping one of the sentinel errors.
func (c *Config) Validate() error {
	if c.MySitemap == "" {
		return ErrNoMySitemap
	}
	if c.TargetSitemap == "" {
		return ErrNoTargetSitemap
	}

	if c.SitemapTimeout <= 0 || c.PageTimeout <= 0 || c.ClassifyTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.Threshold < 0 || c.Threshold > 100 {
		return ErrInvalidThreshold
	}

	for _, expr := range []string{c.MyFilter, c.TargetFilter} {
		if expr == "" {
			continue
		}
		if _, err := regexp.Compile(expr); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidFilter, expr, err) //nolint:errorlint // only the sentinel is matched
		}
	}

	if c.RequestsPerSecond <= 0 {
		return ErrInvalidRate
	}

	if c.MaxBodySize < 0 || c.MaxSitemapSize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.CacheDir == "" {
		return ErrEmptyCacheDir
	}

	if c.Model == "" {
		return ErrEmptyModel
	}

	return nil
}
