package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nao1215/seoaudit/internal/config"
	seolog "github.com/nao1215/seoaudit/internal/log"
	"github.com/spf13/cobra"
)

// loadConfig builds the configuration shared by every command: defaults,
// then the configuration file, then the environment. Command flags are
// applied by the caller afterwards.
func loadConfig(cmd *cobra.Command, getenv func(string) string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	if f := cmd.Flags().Lookup("config"); f != nil {
		cfg.ConfigFilePath = f.Value.String()
	}

	// An explicitly named file must exist; otherwise the search is best effort.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, loadErr := config.LoadConfigFile(configPath)
		if loadErr != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, loadErr)
		}
		cfg.ApplyFile(file)
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.ApplyEnv(getenv)

	cfg.Verbose, err = getVerboseFlag(cmd)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) (bool, error) {
	if f := cmd.Flags().Lookup("verbose"); f != nil {
		return cmd.Flags().GetBool("verbose")
	}
	if f := cmd.Root().PersistentFlags().Lookup("verbose"); f != nil {
		return cmd.Root().PersistentFlags().GetBool("verbose")
	}
	return false, nil
}

// setupLogger creates the redacting structured logger used by every command.
func setupLogger(verbose bool) *slog.Logger {
	logger := seolog.NewSecureLogger(os.Stderr, verbose)
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// addProviderFlags registers the provider selection flags.
func addProviderFlags(cmd *cobra.Command) {
	cmd.Flags().String("llm", "",
		"Language model provider: auto, gemini or groq")
	cmd.Flags().String("scraper", "",
		"Page scraper: auto, firecrawl or http")
	cmd.Flags().String("search", "",
		"Search provider: duckduckgo or brave")
}

// addHistoryFlag registers --no-history.
func addHistoryFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("no-history", false,
		"Do not store runs in the history database")
}

// applyProviderFlags copies explicitly set provider flags and --no-history
// into cfg.
func applyProviderFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	providers := []struct {
		flag string
		dst  *string
	}{
		{"llm", &cfg.LLMProvider},
		{"scraper", &cfg.ScraperProvider},
		{"search", &cfg.SearchProvider},
	}
	for _, p := range providers {
		if !flags.Changed(p.flag) {
			continue
		}
		v, err := flags.GetString(p.flag)
		if err != nil {
			return err
		}
		*p.dst = strings.ToLower(strings.TrimSpace(v))
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return err
	}
	if noHistory {
		cfg.SaveHistory = false
	}
	return nil
}

// validateConfig wraps configuration errors so they read well on the terminal.
func validateConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		var te *config.TargetError
		if errors.As(err, &te) {
			return err
		}
		return fmt.Errorf("configuration error: %w", err)
	}
	return nil
}
