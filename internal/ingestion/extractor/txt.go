package extractor

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// extractTXT decodes UTF-8 and falls back to Latin-1 for byte sequences that
// are not valid UTF-8.
func extractTXT(data []byte) (string, map[string]any, error) {
	metadata := map[string]any{
		MetaFileSize:  len(data),
		MetaLineCount: lineCount(data),
	}
	if utf8.Valid(data) {
		return string(data), metadata, nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", nil, fmt.Errorf("decoding latin-1: %w", err)
	}
	metadata[MetaEncoding] = "latin-1"
	return string(decoded), metadata, nil
}

// lineCount counts lines the way a line reader would, including a final line
// without a trailing newline.
func lineCount(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}
