package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/crosslink/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/crosslink.yaml
var configTemplate embed.FS

const templatePath = "templates/crosslink.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a crosslink configuration file",
		Long: `Init writes a commented .crosslink configuration file.

The generated file documents:
- Classifier settings (model, base URL, request rate)
- Run defaults (concurrency, threshold, cache directory, output)
- Per-site path filters, headers and user agents

Examples:
  # Create .crosslink in the current directory
  crosslink init

  # Create the file at a specific path
  crosslink init -o configs/crosslink.yaml

  # Overwrite an existing file
  crosslink init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - The classification model and API endpoint")
	fmt.Fprintln(out, "  - Path filters per site")
	fmt.Fprintln(out, "  - Headers and user agents for sites that need them")
	return nil
}
