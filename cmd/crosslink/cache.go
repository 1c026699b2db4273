package main

import (
	"errors"
	"fmt"

	"github.com/nao1215/crosslink/internal/cache"
	"github.com/nao1215/crosslink/internal/config"
	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command and its subcommands.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the page and pair cache",
		Long: `Cache manages the files written by start.

Cached pages and pairs are never refreshed automatically. Use invalidate
after a page changed, clear to start over, or start --refresh to recompute
everything in one run.`,
	}
	cmd.PersistentFlags().String("cache-dir", config.DefaultCacheDir, "Cache directory")

	cmd.AddCommand(newCacheClearCmd())
	cmd.AddCommand(newCacheInvalidateCmd())
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached page and pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openCache(cmd)
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", store.Root())
			return nil
		},
	}
}

func newCacheInvalidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invalidate <url>...",
		Short: "Remove the cached results of pages",
		Long: `Invalidate removes the cached extraction of each given page URL.

With --pair-with, the cached pair results between each given URL and the
other URL are removed as well, in both directions.

Examples:
  crosslink cache invalidate https://blog.example.com/posts/1
  crosslink cache invalidate https://blog.example.com/posts/1 --pair-with https://docs.example.com/guide`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCacheInvalidateCmd,
	}
	cmd.Flags().String("pair-with", "", "Also remove pair results between each URL and this URL")
	return cmd
}

func runCacheInvalidateCmd(cmd *cobra.Command, args []string) error {
	store, err := openCache(cmd)
	if err != nil {
		return err
	}
	other, err := cmd.Flags().GetString("pair-with")
	if err != nil {
		return err
	}

	var errs []error
	for _, u := range args {
		if err := store.Invalidate(cache.Key(u)); err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Invalidated %s\n", u)

		if other == "" {
			continue
		}
		for _, key := range []string{cache.PairKey(u, other), cache.PairKey(other, u)} {
			if err := store.InvalidatePair(key); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func openCache(cmd *cobra.Command) (*cache.Store, error) {
	dir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return nil, err
	}
	return cache.New(dir)
}
