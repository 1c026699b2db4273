package config

// SiteConfig holds settings for one site, keyed by host name.
type SiteConfig struct {
	// Filter is a regular expression matched against URL paths.
	// Only pages whose path matches are processed. Empty keeps every page.
	Filter string `yaml:"filter,omitempty"`

	// Headers are custom HTTP headers sent when fetching this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the User-Agent header for this site.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// ClassifierConfig holds the classification service settings.
type ClassifierConfig struct {
	// Model is the chat model name.
	Model string `yaml:"model,omitempty"`

	// BaseURL is the OpenAI-compatible API base URL.
	BaseURL string `yaml:"baseURL,omitempty"`

	// RequestsPerSecond limits the classification request rate.
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty"`
}

// File represents the structure of the .crosslink configuration file.
type File struct {
	// Sites maps host names to their site-specific configurations.
	// Keys are bare hosts such as "example.com".
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults is applied to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Classifier configures the classification service.
	Classifier ClassifierConfig `yaml:"classifier,omitempty"`

	// Concurrency is the page extraction pool width.
	Concurrency int `yaml:"concurrency,omitempty"`

	// Threshold is the minimum candidate score.
	Threshold *float64 `yaml:"threshold,omitempty"`

	// CacheDir is the cache root directory.
	CacheDir string `yaml:"cacheDir,omitempty"`

	// Output is the CSV report path.
	Output string `yaml:"output,omitempty"`
}

// GetSiteConfig returns the configuration for a host.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.Filter != "" {
			result.Filter = siteConfig.Filter
		}
		if siteConfig.UserAgent != "" {
			result.UserAgent = siteConfig.UserAgent
		}
		if len(siteConfig.Headers) > 0 {
			merged := make(map[string]string, len(result.Headers)+len(siteConfig.Headers))
			for k, v := range result.Headers {
				merged[k] = v
			}
			for k, v := range siteConfig.Headers {
				merged[k] = v
			}
			result.Headers = merged
		}
	}

	return result
}
