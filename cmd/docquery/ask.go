package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion"
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Answer a question from the loaded documents",
	Long: `Ask quotes the sentences that share the most words with the question.
With --doc only the named file is consulted; otherwise every loaded document
answers in turn.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadSession(cmd.Context(), cmd, os.Stderr)
		if err != nil {
			return err
		}
		gen, err := newGenerator()
		if err != nil {
			return err
		}

		docs := store.All()
		if name, _ := cmd.Flags().GetString("doc"); name != "" {
			docs = filterByName(docs, name)
			if len(docs) == 0 {
				return fmt.Errorf("no loaded document named %q", name)
			}
		}

		question := strings.Join(args, " ")
		out := cmd.OutOrStdout()
		for _, doc := range docs {
			fmt.Fprintf(out, "%s\n  %s\n\n", doc.Filename, gen.Answer(question, doc.RawText))
		}
		return nil
	},
}

func filterByName(docs []ingestion.Document, name string) []ingestion.Document {
	var out []ingestion.Document
	for _, d := range docs {
		if d.Filename == name || d.ID == name {
			out = append(out, d)
		}
	}
	return out
}

func init() {
	addFilesFlag(askCmd)
	askCmd.Flags().String("doc", "", "answer from this file name or document id only")
	rootCmd.AddCommand(askCmd)
}
