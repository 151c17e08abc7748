package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/seoaudit.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a seoaudit configuration file",
		Long: `Init writes a commented .seoaudit configuration file to the current directory.

The file documents every setting with its default value: providers for the
language model, scraper and search, the retry policy, snapshot and history
output, and the web form address.

Examples:
  # Create .seoaudit in the current directory
  seoaudit init

  # Create the config file at a specific path
  seoaudit init -o ~/.config/seoaudit/config.yaml

  # Overwrite an existing file
  seoaudit init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
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

	content, err := configTemplate.ReadFile("templates/seoaudit.yaml")
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
	fmt.Fprintln(out, "\nSet your API keys in the environment or a .env file:")
	fmt.Fprintf(out, "  %s or %s (required)\n", config.EnvGeminiAPIKey, config.EnvGroqAPIKey)
	fmt.Fprintf(out, "  %s, %s (optional)\n", config.EnvFirecrawlAPIKey, config.EnvBraveAPIKey)

	return nil
}
