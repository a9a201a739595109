package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/insights"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarize each loaded document",
	Long: `Analyze prints the document type, a short summary, key topics and an
estimated reading time for every file given with --files.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadSession(cmd.Context(), cmd, os.Stderr)
		if err != nil {
			return err
		}
		gen, err := newGenerator()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		asJSON, _ := cmd.Flags().GetBool("json")
		for _, doc := range store.All() {
			a := gen.Analyze(doc.RawText, doc.Metadata)
			if asJSON {
				if err := json.NewEncoder(out).Encode(analysisLine{DocumentID: doc.ID, Filename: doc.Filename, Analysis: a}); err != nil {
					return err
				}
				continue
			}
			printAnalysis(out, doc, a)
		}
		return nil
	},
}

type analysisLine struct {
	DocumentID string            `json:"document_id"`
	Filename   string            `json:"filename"`
	Analysis   insights.Analysis `json:"analysis"`
}

func printAnalysis(out io.Writer, doc ingestion.Document, a insights.Analysis) {
	fmt.Fprintf(out, "%s\n", doc.Filename)
	fmt.Fprintf(out, "  type:         %s\n", a.DocumentType)
	fmt.Fprintf(out, "  reading time: %s\n", a.ReadingTime)
	fmt.Fprintf(out, "  key topics:   %s\n", strings.Join(a.KeyTopics, ", "))
	fmt.Fprintf(out, "  summary:      %s\n\n", a.Summary)
}

// newGenerator builds the insights generator from the insights config.
func newGenerator() (*insights.Generator, error) {
	picker, err := insights.NewPicker(cfg.Insights.Picker, cfg.Insights.Seed)
	if err != nil {
		return nil, err
	}
	return insights.NewGenerator(picker, cfg.Insights.SummaryLength), nil
}

func init() {
	addFilesFlag(analyzeCmd)
	analyzeCmd.Flags().Bool("json", false, "output one JSON object per document")
	rootCmd.AddCommand(analyzeCmd)
}
