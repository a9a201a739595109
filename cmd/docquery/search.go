package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Rank loaded documents against a keyword query",
	Long: `Search loads the files given with --files, ranks them against the query
and prints each match with its score and highlighted snippets. Matched terms
are wrapped in **double asterisks**.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadSession(cmd.Context(), cmd, os.Stderr)
		if err != nil {
			return err
		}
		query := strings.Join(args, " ")
		results, err := store.Search(query, searchOptions(cmd))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		if len(results) == 0 {
			fmt.Fprintf(out, "No documents match %q.\n", query)
			return nil
		}
		for i, r := range results {
			fmt.Fprintf(out, "%d. %s (score %.3f)\n", i+1, r.Filename, r.Score)
			for _, s := range r.Snippets {
				fmt.Fprintf(out, "   %s\n", s)
			}
		}
		return nil
	},
}

func init() {
	addFilesFlag(searchCmd)
	addSearchFlags(searchCmd)
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}
