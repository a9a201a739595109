package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

func extractPDF(data []byte) (text string, metadata map[string]any, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, metadata, err = "", nil, fmt.Errorf("parsing pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("opening pdf: %w", err)
	}

	metadata = pdfInfo(reader)
	var sb strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", nil, fmt.Errorf("reading page %d: %w", i, err)
		}
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}
	metadata[MetaPageCount] = pages
	return sb.String(), metadata, nil
}

// pdfInfo copies the document information dictionary. Keys come back from
// the parser without the leading slash of their PDF name form.
func pdfInfo(reader *pdf.Reader) map[string]any {
	metadata := make(map[string]any)
	info := reader.Trailer().Key("Info")
	if info.Kind() != pdf.Dict {
		return metadata
	}
	for _, key := range info.Keys() {
		v := info.Key(key)
		name := strings.TrimPrefix(key, "/")
		switch v.Kind() {
		case pdf.String:
			if s := v.Text(); s != "" {
				metadata[name] = s
			}
		case pdf.Name:
			metadata[name] = v.Name()
		case pdf.Integer:
			metadata[name] = v.Int64()
		case pdf.Real:
			metadata[name] = v.Float64()
		case pdf.Bool:
			metadata[name] = v.Bool()
		}
	}
	return metadata
}
