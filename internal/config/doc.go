// Package config provides configuration structures and utilities for crosslink.
// It defines the options for sitemap resolution, page extraction, the
// classification service, caching and report output, and loads per-site
// settings from a YAML file.
package config
