// Package main is the entry point for the docquery CLI: an HTTP service
// plus one-shot commands that load files, query them and exit.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg is loaded once in PersistentPreRunE.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "docquery",
	Short: "Search, analyze and question a set of documents",
	Long: `docquery ingests PDF, DOCX and plain-text files, builds a weighted
inverted index over them and answers keyword queries with ranked results and
highlighted snippets.

Run "docquery serve" for the HTTP API, or use the one-shot commands (search,
analyze, ask, insights, tui) against files given with --files.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			loaded.Logging.Level = level
		}
		cfg = loaded

		// Only the server logs to stdout; one-shot commands keep it for results.
		if cmd.Name() == serveCmd.Name() {
			logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
		} else {
			slog.SetDefault(logger.New(cfg.Logging.Level, "text", os.Stderr))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "override logging.level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
