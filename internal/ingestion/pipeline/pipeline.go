// Package pipeline turns raw file bytes into documents: validation, content
// sniffing and extraction under a deadline. Both the upload endpoint and the
// CLI go through it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/sourcegraph/conc/iter"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion/extractor"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/document-query/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/resilience"
)

const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// Failure explains why a file was rejected. Reason is a short label used
// for metrics.
type Failure struct {
	Filename string
	Reason   string
	Err      error
}

func (f *Failure) Error() string { return fmt.Sprintf("%s: %v", f.Filename, f.Err) }
func (f *Failure) Unwrap() error { return f.Err }

// Process validates and extracts one file. Errors are always *Failure.
func Process(ctx context.Context, name string, data []byte, cfg config.IngestionConfig) (ingestion.Document, error) {
	fail := func(reason string, err error) (ingestion.Document, error) {
		return ingestion.Document{}, &Failure{Filename: name, Reason: reason, Err: err}
	}
	if err := validator.ValidateUpload(name, int64(len(data)), cfg.MaxFileSize); err != nil {
		return fail("validation", err)
	}
	if err := validator.ValidateContent(name, data); err != nil {
		return fail("validation", err)
	}

	type extracted struct {
		text     string
		metadata map[string]any
	}
	var out extracted
	err := resilience.WithTimeout(ctx, cfg.ExtractTimeout, "extract "+name, func(context.Context) error {
		text, metadata, err := extractor.Extract(name, data)
		out = extracted{text: text, metadata: metadata}
		return err
	})
	if err != nil {
		return fail(reason(err), err)
	}
	return ingestion.Document{
		ID:       ingestion.DocumentID(name, int64(len(data))),
		Filename: name,
		RawText:  out.text,
		Metadata: out.metadata,
	}, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrTimeout):
		return "timeout"
	case errors.Is(err, apperrors.ErrUnsupportedFormat):
		return "unsupported"
	case errors.Is(err, apperrors.ErrEmptyDocument):
		return "empty"
	default:
		return "extraction"
	}
}

// Result converts the outcome of Process into the per-file report.
func Result(name string, doc ingestion.Document, err error) ingestion.FileResult {
	if err != nil {
		return ingestion.FileResult{Filename: name, Status: StatusFailed, Error: err.Error()}
	}
	return ingestion.FileResult{Filename: name, DocumentID: doc.ID, Status: StatusProcessed}
}

// Source is one named payload waiting to be processed. Open is called from a
// worker goroutine.
type Source struct {
	Name string
	Open func() ([]byte, error)
}

// Outcome pairs a source with what Process made of it.
type Outcome struct {
	Document ingestion.Document
	Result   ingestion.FileResult
	Err      error
}

// ProcessAll runs Process over sources on at most workers goroutines and
// returns outcomes in input order. workers <= 0 uses GOMAXPROCS.
func ProcessAll(ctx context.Context, sources []Source, cfg config.IngestionConfig, workers int) []Outcome {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	mapper := iter.Mapper[Source, Outcome]{MaxGoroutines: workers}
	return mapper.Map(sources, func(src *Source) Outcome {
		data, err := src.Open()
		if err != nil {
			err = &Failure{Filename: src.Name, Reason: "read", Err: err}
			return Outcome{Result: Result(src.Name, ingestion.Document{}, err), Err: err}
		}
		doc, err := Process(ctx, src.Name, data, cfg)
		return Outcome{Document: doc, Result: Result(src.Name, doc, err), Err: err}
	})
}

// FileSources expands paths into sources. Directories contribute every
// supported file beneath them; explicitly named files are always included so
// that unsupported ones are reported rather than skipped.
func FileSources(paths []string) ([]Source, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && extractor.Supported(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
		sort.Strings(found)
		files = append(files, found...)
	}

	sources := make([]Source, len(files))
	for i, path := range files {
		sources[i] = Source{
			Name: filepath.Base(path),
			Open: func() ([]byte, error) { return os.ReadFile(path) },
		}
	}
	return sources, nil
}

// Documents returns the successfully processed documents.
func Documents(outcomes []Outcome) []ingestion.Document {
	var docs []ingestion.Document
	for _, o := range outcomes {
		if o.Err == nil {
			docs = append(docs, o.Document)
		}
	}
	return docs
}

// FailureReason returns the metrics label for err, or "unknown".
func FailureReason(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return "unknown"
}
