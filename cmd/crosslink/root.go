package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for crosslink.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crosslink",
		Short: "Find cross-site internal linking opportunities from two sitemaps",
		Long: `crosslink compares the pages of two sites and proposes links between them.

Both sitemaps are resolved recursively, every page's main content is
extracted and classified, and every (my page, target page) pair is scored.
Candidates whose anchor text appears on the source page and whose score
reaches the threshold are written to a CSV file.

Extraction and pair results are cached under the cache directory, so an
interrupted or repeated run only pays for what is new.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewStartCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewCacheCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the running
// command; any error exits with status 1.
func Execute() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
