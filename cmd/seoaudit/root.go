// Package main provides the entry point for the seoaudit CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// dotEnvFile is loaded into the process environment when present.
const dotEnvFile = ".env"

// NewRootCmd creates the root command for seoaudit.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seoaudit",
		Short: "AI-assisted on-page SEO audit for a single URL",
		Long: `seoaudit audits a web page in three stages:

  1. Page audit: scrape the page and extract structured on-page findings
  2. Competitor analysis: search the primary keyword and summarize the top results
  3. Report synthesis: write a prioritized optimization report in Markdown

A language model API key is required (GEMINI_API_KEY or GROQ_API_KEY).
FIRECRAWL_API_KEY and BRAVE_API_KEY are optional. Keys are read from the
environment and from a .env file in the current directory.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadDotEnv(dotEnvFile)
		},
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// loadDotEnv reads path into the environment. A missing file is not an error
// and variables already set in the environment win.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
