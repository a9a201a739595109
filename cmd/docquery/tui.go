package main

import (
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/tui"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/logger"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Search the loaded documents interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Anything written to the terminal would corrupt the screen.
		slog.SetDefault(logger.New(cfg.Logging.Level, "text", io.Discard))

		store, err := loadSession(cmd.Context(), cmd, io.Discard)
		if err != nil {
			return err
		}
		stats := store.Stats()
		summary := fmt.Sprintf("%d documents, %d terms", stats.Documents, stats.Terms)

		p := tea.NewProgram(tui.New(store, searchOptions(cmd), summary), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	addFilesFlag(tuiCmd)
	addSearchFlags(tuiCmd)
	rootCmd.AddCommand(tuiCmd)
}
