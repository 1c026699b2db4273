package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default SitemapTimeout is 60 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.SitemapTimeout != 60*time.Second {
			t.Errorf("expected SitemapTimeout to be 60s, got %v", cfg.SitemapTimeout)
		}
	})

	t.Run("default Threshold is 50", func(t *testing.T) {
		t.Parallel()
		if cfg.Threshold != 50 {
			t.Errorf("expected Threshold to be 50, got %v", cfg.Threshold)
		}
	})

	t.Run("default CacheDir is tmp", func(t *testing.T) {
		t.Parallel()
		if cfg.CacheDir != "tmp" {
			t.Errorf("expected CacheDir to be 'tmp', got %q", cfg.CacheDir)
		}
	})

	t.Run("default OutputFile is intersections.csv", func(t *testing.T) {
		t.Parallel()
		if cfg.OutputFile != "intersections.csv" {
			t.Errorf("expected OutputFile to be 'intersections.csv', got %q", cfg.OutputFile)
		}
	})

	t.Run("default Concurrency is 8", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency != 8 {
			t.Errorf("expected Concurrency to be 8, got %d", cfg.Concurrency)
		}
	})

	t.Run("default Model is gpt-4o-mini", func(t *testing.T) {
		t.Parallel()
		if cfg.Model != "gpt-4o-mini" {
			t.Errorf("expected Model to be 'gpt-4o-mini', got %q", cfg.Model)
		}
	})

	t.Run("history is saved by default", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveHistory {
			t.Error("expected SaveHistory to be true")
		}
	})

	t.Run("refresh is off by default", func(t *testing.T) {
		t.Parallel()
		if cfg.Refresh {
			t.Error("expected Refresh to be false")
		}
	})

	t.Run("sitemaps get a larger body limit than pages", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxSitemapSize != 50*1024*1024 {
			t.Errorf("expected MaxSitemapSize to be 50MB, got %d", cfg.MaxSitemapSize)
		}
		if cfg.MaxBodySize != 10*1024*1024 {
			t.Errorf("expected MaxBodySize to be 10MB, got %d", cfg.MaxBodySize)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.MySitemap = "https://mine.example/sitemap.xml"
		cfg.TargetSitemap = "https://other.example/sitemap.xml"
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "missing my sitemap", mutate: func(c *Config) { c.MySitemap = "" }, want: ErrNoMySitemap},
		{name: "missing target sitemap", mutate: func(c *Config) { c.TargetSitemap = "" }, want: ErrNoTargetSitemap},
		{name: "zero sitemap timeout", mutate: func(c *Config) { c.SitemapTimeout = 0 }, want: ErrInvalidTimeout},
		{name: "negative page timeout", mutate: func(c *Config) { c.PageTimeout = -time.Second }, want: ErrInvalidTimeout},
		{name: "zero classify timeout", mutate: func(c *Config) { c.ClassifyTimeout = 0 }, want: ErrInvalidTimeout},
		{name: "zero concurrency", mutate: func(c *Config) { c.Concurrency = 0 }, want: ErrInvalidConcurrency},
		{name: "negative threshold", mutate: func(c *Config) { c.Threshold = -1 }, want: ErrInvalidThreshold},
		{name: "threshold above 100", mutate: func(c *Config) { c.Threshold = 101 }, want: ErrInvalidThreshold},
		{name: "invalid my filter", mutate: func(c *Config) { c.MyFilter = "^/(blog" }, want: ErrInvalidFilter},
		{name: "invalid target filter", mutate: func(c *Config) { c.TargetFilter = "[" }, want: ErrInvalidFilter},
		{name: "zero rate", mutate: func(c *Config) { c.RequestsPerSecond = 0 }, want: ErrInvalidRate},
		{name: "negative body size", mutate: func(c *Config) { c.MaxBodySize = -1 }, want: ErrInvalidMaxBodySize},
		{name: "negative sitemap size", mutate: func(c *Config) { c.MaxSitemapSize = -1 }, want: ErrInvalidMaxBodySize},
		{name: "empty cache dir", mutate: func(c *Config) { c.CacheDir = "" }, want: ErrEmptyCacheDir},
		{name: "empty model", mutate: func(c *Config) { c.Model = "" }, want: ErrEmptyModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("threshold boundaries are valid", func(t *testing.T) {
		t.Parallel()
		for _, threshold := range []float64{0, 100} {
			cfg := validConfig()
			cfg.Threshold = threshold
			if err := cfg.Validate(); err != nil {
				t.Errorf("threshold %v: expected no error, got %v", threshold, err)
			}
		}
	})

	t.Run("valid filters are accepted", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MyFilter = "^/blog/"
		cfg.TargetFilter = `^/docs/v\d+/`
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

// TestConfigApplyFile tests that file values override defaults.
func TestConfigApplyFile(t *testing.T) {
	t.Parallel()

	t.Run("copies set values", func(t *testing.T) {
		t.Parallel()

		threshold := 70.0
		cfg := NewConfig()
		cfg.ApplyFile(&File{
			Classifier: ClassifierConfig{
				Model:             "gpt-4o",
				BaseURL:           "http://localhost:8080/v1",
				RequestsPerSecond: 2,
			},
			Concurrency: 3,
			Threshold:   &threshold,
			CacheDir:    ".cache",
			Output:      "out.csv",
			Defaults:    SiteConfig{UserAgent: "custom-agent"},
		})

		if cfg.Model != "gpt-4o" {
			t.Errorf("expected model gpt-4o, got %q", cfg.Model)
		}
		if cfg.BaseURL != "http://localhost:8080/v1" {
			t.Errorf("unexpected base URL %q", cfg.BaseURL)
		}
		if cfg.RequestsPerSecond != 2 {
			t.Errorf("expected rate 2, got %v", cfg.RequestsPerSecond)
		}
		if cfg.Concurrency != 3 {
			t.Errorf("expected concurrency 3, got %d", cfg.Concurrency)
		}
		if cfg.Threshold != 70 {
			t.Errorf("expected threshold 70, got %v", cfg.Threshold)
		}
		if cfg.CacheDir != ".cache" {
			t.Errorf("expected cache dir .cache, got %q", cfg.CacheDir)
		}
		if cfg.OutputFile != "out.csv" {
			t.Errorf("expected output out.csv, got %q", cfg.OutputFile)
		}
		if cfg.UserAgent != "custom-agent" {
			t.Errorf("expected user agent custom-agent, got %q", cfg.UserAgent)
		}
	})

	t.Run("empty file keeps defaults", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ApplyFile(&File{})

		if cfg.Model != DefaultModel {
			t.Errorf("expected default model, got %q", cfg.Model)
		}
		if cfg.Threshold != DefaultThreshold {
			t.Errorf("expected default threshold, got %v", cfg.Threshold)
		}
	})

	t.Run("nil file is ignored", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ApplyFile(nil)
		if cfg.SiteConfigs == nil {
			t.Error("expected SiteConfigs to remain set")
		}
	})
}

// TestFileGetSiteConfig tests the GetSiteConfig method.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	t.Run("returns defaults when site not found", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{Filter: "^/blog/"},
			Sites:    map[string]SiteConfig{},
		}

		cfg := file.GetSiteConfig("unknown.example")
		if cfg.Filter != "^/blog/" {
			t.Errorf("expected default filter, got %q", cfg.Filter)
		}
	})

	t.Run("returns site-specific config", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{Filter: "^/blog/", UserAgent: "default"},
			Sites: map[string]SiteConfig{
				"example.com": {Filter: "^/docs/", UserAgent: "site"},
			},
		}

		cfg := file.GetSiteConfig("example.com")
		if cfg.Filter != "^/docs/" {
			t.Errorf("expected site filter, got %q", cfg.Filter)
		}
		if cfg.UserAgent != "site" {
			t.Errorf("expected site user agent, got %q", cfg.UserAgent)
		}
	})

	t.Run("merges headers from defaults and site", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{Headers: map[string]string{"X-Default": "value1", "Authorization": "default"}},
			Sites: map[string]SiteConfig{
				"example.com": {Headers: map[string]string{"X-Custom": "value2", "Authorization": "site"}},
			},
		}

		cfg := file.GetSiteConfig("example.com")
		if cfg.Headers["X-Default"] != "value1" {
			t.Errorf("expected default header, got %v", cfg.Headers)
		}
		if cfg.Headers["X-Custom"] != "value2" {
			t.Errorf("expected custom header, got %v", cfg.Headers)
		}
		if cfg.Headers["Authorization"] != "site" {
			t.Errorf("expected site header to override, got %q", cfg.Headers["Authorization"])
		}
		if file.Defaults.Headers["Authorization"] != "default" {
			t.Error("expected defaults to be left untouched")
		}
	})

	t.Run("nil sites map", func(t *testing.T) {
		t.Parallel()

		file := &File{Defaults: SiteConfig{Filter: "x"}}
		if cfg := file.GetSiteConfig("any.example"); cfg.Filter != "x" {
			t.Errorf("expected default filter, got %q", cfg.Filter)
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.crosslink")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".crosslink")
		content := `classifier:
  model: gpt-4o
  requestsPerSecond: 1.5
concurrency: 4
threshold: 60
sites:
  example.com:
    filter: "^/blog/"
    headers:
      Authorization: "Bearer token"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Classifier.Model != "gpt-4o" {
			t.Errorf("expected model gpt-4o, got %q", cfg.Classifier.Model)
		}
		if cfg.Classifier.RequestsPerSecond != 1.5 {
			t.Errorf("expected rate 1.5, got %v", cfg.Classifier.RequestsPerSecond)
		}
		if cfg.Concurrency != 4 {
			t.Errorf("expected concurrency 4, got %d", cfg.Concurrency)
		}
		if cfg.Threshold == nil || *cfg.Threshold != 60 {
			t.Errorf("expected threshold 60, got %v", cfg.Threshold)
		}
		site := cfg.Sites["example.com"]
		if site.Filter != "^/blog/" {
			t.Errorf("expected filter, got %q", site.Filter)
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Errorf("expected Authorization header")
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".crosslink")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".crosslink")
		if err := os.WriteFile(configPath, []byte("concurrency: 2\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if dir := XDGDataDir(); filepath.Base(dir) != AppName {
		t.Errorf("expected data dir to end with %q, got %q", AppName, dir)
	}
	if dir := XDGConfigDir(); filepath.Base(dir) != AppName {
		t.Errorf("expected config dir to end with %q, got %q", AppName, dir)
	}
}
