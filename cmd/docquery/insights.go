package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Find themes shared across the loaded documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadSession(cmd.Context(), cmd, os.Stderr)
		if err != nil {
			return err
		}
		gen, err := newGenerator()
		if err != nil {
			return err
		}
		result := gen.CrossInsights(store.All())

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		section := func(title string, lines []string) {
			fmt.Fprintln(out, title)
			if len(lines) == 0 {
				fmt.Fprintln(out, "  (none)")
			}
			for _, l := range lines {
				fmt.Fprintf(out, "  - %s\n", l)
			}
		}
		section("Common themes", result.CommonThemes)
		section("Recommendations", result.Recommendations)
		section("Connections", result.Connections)
		return nil
	},
}

func init() {
	addFilesFlag(insightsCmd)
	insightsCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(insightsCmd)
}
