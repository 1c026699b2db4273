package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/nao1215/crosslink/internal/cache"
	"github.com/nao1215/crosslink/internal/classifier"
	"github.com/nao1215/crosslink/internal/config"
	"github.com/nao1215/crosslink/internal/crawler"
	"github.com/nao1215/crosslink/internal/database"
	"github.com/nao1215/crosslink/internal/extract"
	"github.com/nao1215/crosslink/internal/intersect"
	"github.com/nao1215/crosslink/internal/log"
	"github.com/nao1215/crosslink/internal/model"
	"github.com/nao1215/crosslink/internal/pipeline"
	"github.com/nao1215/crosslink/internal/report"
	"github.com/nao1215/crosslink/internal/sitemap"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Environment variables read by start.
const (
	envAPIKey  = "OPENAI_API_KEY" //nolint:gosec // variable name, not a credential
	envBaseURL = "OPENAI_BASE_URL"
)

// tableLimit caps the rows printed to the terminal; the CSV has them all.
const tableLimit = 50

// NewStartCmd creates the start command.
func NewStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Compute link candidates between two sites",
		Long: `Start resolves both sitemaps, extracts and classifies every page and
scores every (my page, target page) pair.

Candidates are kept when their anchor text occurs verbatim in the source
page and their score reaches the threshold. They are printed ranked by
score and written to the CSV report as linkFrom,linkTo,linkFromText.

OPENAI_API_KEY must be set for pages and pairs that are not cached yet.
It may also be placed in a .env file.

Examples:
  # Link my blog to the documentation site
  crosslink start -m https://blog.example.com/sitemap.xml -s https://docs.example.com/sitemap.xml

  # Only posts on my side, only guides on the target side
  crosslink start -m blog.example.com/sitemap.xml -f '^/posts/' \
    -s docs.example.com/sitemap.xml -g '^/guide/'

  # Discover sitemaps through robots.txt
  crosslink start -m https://blog.example.com -s https://docs.example.com

  # Recompute everything and also write Markdown and JSON reports
  crosslink start -m ... -s ... --refresh --markdown report.md --json report.json`,
		Args: cobra.NoArgs,
		RunE: runStartCmd,
	}

	cmd.Flags().StringP("my-sitemap", "m", "", "Sitemap URL of the site that receives links (required, alias --my)")
	cmd.Flags().StringP("target-sitemap", "s", "", "Sitemap URL of the site being linked to (required, alias --sitemap)")
	cmd.Flags().StringP("my-filter", "f", "", "Regular expression matched against my page paths")
	cmd.Flags().StringP("target-filter", "g", "", "Regular expression matched against target page paths (alias --sitemap-filter)")
	cmd.Flags().SetNormalizeFunc(startFlagAliases)

	cmd.Flags().StringP("output", "o", config.DefaultOutputFile, "CSV report path (creates directories if needed)")
	cmd.Flags().String("markdown", "", "Also write a Markdown report to this path")
	cmd.Flags().String("json", "", "Also write a JSON report to this path")

	cmd.Flags().String("cache-dir", config.DefaultCacheDir, "Cache directory")
	cmd.Flags().Bool("refresh", false, "Ignore cached results and overwrite them")

	cmd.Flags().Int("concurrency", config.DefaultConcurrency, "Number of pages extracted at the same time")
	cmd.Flags().Float64("threshold", config.DefaultThreshold, "Minimum candidate score (0-100, inclusive)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultSitemapTimeout, "Timeout for each sitemap request")
	cmd.Flags().Duration("page-timeout", config.DefaultPageTimeout, "Timeout for each page request")
	cmd.Flags().Duration("classify-timeout", config.DefaultClassifyTimeout, "Timeout for each classification request")
	cmd.Flags().String("model", config.DefaultModel, "Classification model")

	cmd.Flags().Bool("no-history", false, "Do not record the run in the history database")
	cmd.Flags().StringP("config", "c", "", "Configuration file path (default: .crosslink in current or home directory)")

	return cmd
}

// startFlagAliases accepts the short long-flag names of earlier releases.
func startFlagAliases(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	switch name {
	case "my":
		name = "my-sitemap"
	case "sitemap":
		name = "target-sitemap"
	case "sitemap-filter":
		name = "target-filter"
	}
	return pflag.NormalizedName(name)
}

func runStartCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.New(cmd.ErrOrStderr(), log.Options{Verbose: cfg.Verbose})
	slog.SetDefault(logger)

	_, err = runStart(cmd.Context(), cfg, logger, cmd.OutOrStdout())
	return err
}

// buildConfig creates a Config from the configuration file, the
// environment and the command flags, in increasing order of precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()
	var err error

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.APIKey = os.Getenv(envAPIKey)
	if baseURL := os.Getenv(envBaseURL); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	if cfg.MySitemap, err = flags.GetString("my-sitemap"); err != nil {
		return nil, err
	}
	if cfg.TargetSitemap, err = flags.GetString("target-sitemap"); err != nil {
		return nil, err
	}
	if cfg.MyFilter, err = flags.GetString("my-filter"); err != nil {
		return nil, err
	}
	if cfg.TargetFilter, err = flags.GetString("target-filter"); err != nil {
		return nil, err
	}
	if cfg.SitemapTimeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.PageTimeout, err = flags.GetDuration("page-timeout"); err != nil {
		return nil, err
	}
	if cfg.ClassifyTimeout, err = flags.GetDuration("classify-timeout"); err != nil {
		return nil, err
	}
	if cfg.Refresh, err = flags.GetBool("refresh"); err != nil {
		return nil, err
	}
	if cfg.MarkdownFile, err = flags.GetString("markdown"); err != nil {
		return nil, err
	}
	if cfg.JSONFile, err = flags.GetString("json"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory
	cfg.Verbose = getVerboseFlag(cmd)

	// Flags that the configuration file can also set only win when given.
	if flags.Changed("output") {
		if cfg.OutputFile, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("cache-dir") {
		if cfg.CacheDir, err = flags.GetString("cache-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("threshold") {
		if cfg.Threshold, err = flags.GetFloat64("threshold"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("model") {
		if cfg.Model, err = flags.GetString("model"); err != nil {
			return nil, err
		}
	}

	// Per-site filters apply when no filter flag is given for that side.
	if cfg.MyFilter == "" {
		cfg.MyFilter = cfg.SiteConfig(sitemapHost(cfg.MySitemap)).Filter
	}
	if cfg.TargetFilter == "" {
		cfg.TargetFilter = cfg.SiteConfig(sitemapHost(cfg.TargetSitemap)).Filter
	}

	return cfg, nil
}

// sitemapHost returns the host of a sitemap URL given with or without a
// scheme.
func sitemapHost(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(sitemap.NormalizeURL(raw))
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// siteOverrides returns the user agent and headers configured for host.
func siteOverrides(cfg *config.Config) func(host string) (string, map[string]string) {
	return func(host string) (string, map[string]string) {
		site := cfg.SiteConfig(host)
		return site.UserAgent, site.Headers
	}
}

// runStart executes one run and writes its reports. The returned run is
// also populated when the pipeline fails.
func runStart(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*model.Run, error) {
	store, err := cache.New(cfg.CacheDir, cache.WithBypass(cfg.Refresh))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	myFilter, err := crawler.NewPathFilter(cfg.MyFilter)
	if err != nil {
		return nil, err
	}
	targetFilter, err := crawler.NewPathFilter(cfg.TargetFilter)
	if err != nil {
		return nil, err
	}

	overrides := siteOverrides(cfg)
	resolver := sitemap.NewResolver(&http.Client{},
		sitemap.WithTimeout(cfg.SitemapTimeout),
		sitemap.WithUserAgent(cfg.UserAgent),
		sitemap.WithMaxBodySize(cfg.MaxSitemapSize),
		sitemap.WithHeaders(overrides),
		sitemap.WithLogger(logger),
	)
	fetcher := crawler.NewExtractor(&http.Client{Timeout: cfg.PageTimeout},
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithSiteOverrides(overrides),
		crawler.WithLogger(logger),
	)
	cls := classifier.NewOpenAI(classifier.Config{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Model:             cfg.Model,
		Timeout:           cfg.ClassifyTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger,
	})

	progress := &progressPrinter{out: out}
	extractor := extract.New(store, fetcher, cls,
		extract.WithConcurrency(cfg.Concurrency),
		extract.WithLogger(logger),
		extract.WithProgress(progress.page),
	)
	engine := intersect.New(store, cls,
		intersect.WithThreshold(cfg.Threshold),
		intersect.WithLogger(logger),
		intersect.WithProgress(progress.pair),
	)

	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithAfterStep(progress.step),
	)
	p.AddSteps(
		pipeline.NewResolveStep(resolver, myFilter, targetFilter, logger),
		pipeline.NewExtractStep(extractor),
		pipeline.NewIntersectStep(engine, logger),
		pipeline.NewRankStep(),
	)

	run := model.NewRun(cfg.MySitemap, cfg.TargetSitemap)
	fmt.Fprintf(out, "Linking %s -> %s\n", cfg.MySitemap, cfg.TargetSitemap)
	if err := p.Execute(ctx, run); err != nil {
		if errors.Is(err, classifier.ErrAuth) {
			return run, fmt.Errorf("%w (set %s)", err, envAPIKey)
		}
		return run, err
	}

	fmt.Fprintln(out)
	if _, err := report.NewTableWriter(out, report.WithLimit(tableLimit)).Write(run); err != nil {
		return run, fmt.Errorf("failed to print candidates: %w", err)
	}
	fmt.Fprintln(out)

	if err := writeReports(cfg, run); err != nil {
		return run, err
	}
	fmt.Fprintf(out, "Wrote %d candidates to %s\n", len(run.Ranked), cfg.OutputFile)

	stats := store.Stats()
	fmt.Fprintf(out, "Cache: %d hits, %d misses, %d writes (%s)\n", stats.Hits, stats.Misses, stats.Writes, store.Root())
	fmt.Fprintf(out, "Completed in %s\n", run.Duration.Round(time.Millisecond))

	if cfg.SaveHistory {
		// The reports are written; a history failure is only logged.
		if id, err := saveRun(ctx, cfg.DBDir, run); err != nil {
			logger.Warn("failed to record run history", "error", err)
		} else {
			fmt.Fprintf(out, "Recorded as run %d (crosslink history --run %d)\n", id, id)
		}
	}
	return run, nil
}

// writeReports writes the CSV report and the optional Markdown and JSON
// reports.
func writeReports(cfg *config.Config, run *model.Run) error {
	targets := []report.FileTarget{{
		Path:      cfg.OutputFile,
		NewWriter: func(w io.Writer) report.Writer { return report.NewCSVWriter(w) },
	}}
	if cfg.MarkdownFile != "" {
		targets = append(targets, report.FileTarget{
			Path:      cfg.MarkdownFile,
			NewWriter: func(w io.Writer) report.Writer { return report.NewMarkdownWriter(w) },
		})
	}
	if cfg.JSONFile != "" {
		targets = append(targets, report.FileTarget{
			Path: cfg.JSONFile,
			NewWriter: func(w io.Writer) report.Writer {
				return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
			},
		})
	}
	return report.WriteFiles(run, targets...)
}

func saveRun(ctx context.Context, dbDir string, run *model.Run) (int64, error) {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return 0, err
	}
	defer db.Close()
	return db.SaveRun(ctx, run)
}

// progressPrinter writes one line per page, pair and finished step.
type progressPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *progressPrinter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *progressPrinter) page(ev extract.Event) {
	switch {
	case ev.Skipped:
		p.printf("[%d/%d] page %s skipped: %v\n", ev.Index, ev.Total, ev.URL, ev.Err)
	case ev.Cached:
		p.printf("[%d/%d] page %s (cached)\n", ev.Index, ev.Total, ev.URL)
	default:
		p.printf("[%d/%d] page %s\n", ev.Index, ev.Total, ev.URL)
	}
}

func (p *progressPrinter) pair(ev intersect.Event) {
	switch {
	case ev.Skipped:
		p.printf("[%d/%d] pair %s -> %s skipped: %v\n", ev.Index, ev.Total, ev.Source, ev.Target, ev.Err)
	case ev.Cached:
		p.printf("[%d/%d] pair %s -> %s: %d candidates (cached)\n", ev.Index, ev.Total, ev.Source, ev.Target, ev.Kept)
	default:
		p.printf("[%d/%d] pair %s -> %s: %d candidates, %d rejected\n", ev.Index, ev.Total, ev.Source, ev.Target, ev.Kept, ev.Rejected)
	}
}

func (p *progressPrinter) step(step string, run *model.Run) {
	switch step {
	case pipeline.StepResolve:
		p.printf("Resolved %d my pages (%d after filter) and %d target pages (%d after filter)\n",
			run.MyLinks.Count, len(run.MyURLs), run.TargetLinks.Count, len(run.TargetURLs))
	case pipeline.StepExtract:
		p.printf("Extracted %d my pages and %d target pages; evaluating %d pairs\n",
			len(run.MyPages), len(run.TargetPages), run.PairCount())
	case pipeline.StepIntersect:
		p.printf("Found %d candidates\n", len(run.Candidates))
	}
}
