package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/session"
)

// addFilesFlag registers --files on a one-shot command.
func addFilesFlag(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("files", "f", nil, "files or directories to load (repeatable)")
	_ = cmd.MarkFlagRequired("files")
}

// loadSession runs every path through the ingestion pipeline and returns a
// store holding what could be extracted. Per-file failures are reported to
// w; loading fails only when nothing was usable.
func loadSession(ctx context.Context, cmd *cobra.Command, w io.Writer) (*session.Store, error) {
	paths, _ := cmd.Flags().GetStringSlice("files")
	sources, err := pipeline.FileSources(paths)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no supported files under %v", paths)
	}

	outcomes := pipeline.ProcessAll(ctx, sources, cfg.Ingestion, 0)
	var chars uint64
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "skipped %s: %v\n", o.Result.Filename, o.Err)
			continue
		}
		chars += uint64(len(o.Document.RawText))
	}
	docs := pipeline.Documents(outcomes)
	if len(docs) == 0 {
		return nil, fmt.Errorf("none of the %d files could be loaded", len(sources))
	}

	store := session.New()
	stats := store.Add(docs...)
	slog.Debug("session loaded", "documents", stats.Documents, "terms", stats.Terms)
	fmt.Fprintf(w, "loaded %d of %d files (%s of text, %s terms)\n",
		len(docs), len(sources), humanize.Bytes(chars), humanize.Comma(int64(stats.Terms)))
	return store, nil
}

// searchOptions reads the shared result-shaping flags on top of the
// configured defaults.
func searchOptions(cmd *cobra.Command) retrieval.Options {
	opts := retrieval.Options{
		MaxResults:    cfg.Search.DefaultLimit,
		NumSnippets:   cfg.Search.NumSnippets,
		SnippetLength: cfg.Search.SnippetLength,
	}
	if cmd.Flags().Changed("limit") {
		opts.MaxResults, _ = cmd.Flags().GetInt("limit")
	}
	if cmd.Flags().Changed("snippets") {
		opts.NumSnippets, _ = cmd.Flags().GetInt("snippets")
	}
	return opts
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("limit", "n", 10, "maximum number of results")
	cmd.Flags().Int("snippets", 3, "snippets per result")
}
