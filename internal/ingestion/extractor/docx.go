package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"
)

// A single part may inflate to maxPartExpansion times the archive size, and
// never less than minPartLimit.
const (
	maxPartExpansion = 100
	minPartLimit     = 8 << 20
)

var errPartTooLarge = errors.New("part exceeds decompressed size limit")

// extractDOCX reads body paragraphs first, then every table row with its
// cells joined by " | ".
func extractDOCX(data []byte) (string, map[string]any, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("opening docx archive: %w", err)
	}

	limit := max(int64(len(data))*maxPartExpansion, minPartLimit)
	body, err := readPart(zr, documentPart, limit)
	if err != nil {
		return "", nil, err
	}
	paragraphs, rows, err := parseDocument(body)
	if err != nil {
		return "", nil, fmt.Errorf("parsing %s: %w", documentPart, err)
	}

	metadata := map[string]any{
		MetaPageCount:  0,
		MetaParagraphs: 0,
	}
	if core, err := readPart(zr, corePart, limit); err == nil {
		applyCoreProperties(core, metadata)
	}

	var sb strings.Builder
	for _, p := range paragraphs {
		if strings.TrimSpace(p) == "" {
			continue
		}
		sb.WriteString(p)
		sb.WriteString("\n\n")
		metadata[MetaParagraphs] = metadata[MetaParagraphs].(int) + 1
	}
	for _, row := range rows {
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteString("\n")
	}
	return sb.String(), metadata, nil
}

var errPartMissing = errors.New("part missing")

// readPart inflates one archive member, refusing anything larger than limit
// whether or not the entry header admits it.
func readPart(zr *zip.Reader, name string, limit int64) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		if f.UncompressedSize64 > uint64(limit) {
			return nil, fmt.Errorf("%s: %w", name, errPartTooLarge)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(io.LimitReader(rc, limit+1))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		if int64(len(data)) > limit {
			return nil, fmt.Errorf("%s: %w", name, errPartTooLarge)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s: %w", name, errPartMissing)
}

// parseDocument walks document.xml. Paragraphs outside tables are returned
// in order; paragraphs inside a table cell become that cell's text, one
// line per paragraph.
func parseDocument(body []byte) (paragraphs []string, rows [][]string, err error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		para     strings.Builder
		inPara   bool
		inText   bool
		rowStack [][]string
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				para.Reset()
			case "t":
				inText = true
			case "tab":
				if inPara {
					para.WriteByte('\t')
				}
			case "br", "cr":
				if inPara {
					para.WriteByte('\n')
				}
			case "tr":
				rowStack = append(rowStack, nil)
			case "tc":
				if n := len(rowStack); n > 0 {
					rowStack[n-1] = append(rowStack[n-1], "")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				inPara = false
				text := para.String()
				if n := len(rowStack); n > 0 && len(rowStack[n-1]) > 0 {
					row := rowStack[n-1]
					cell := row[len(row)-1]
					if cell != "" {
						cell += "\n"
					}
					row[len(row)-1] = cell + text
					continue
				}
				paragraphs = append(paragraphs, text)
			case "tr":
				if n := len(rowStack); n > 0 {
					rows = append(rows, rowStack[n-1])
					rowStack = rowStack[:n-1]
				}
			}
		case xml.CharData:
			if inPara && inText {
				para.Write(t)
			}
		}
	}
	return paragraphs, rows, nil
}

type coreProperties struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Created  string `xml:"created"`
	Modified string `xml:"modified"`
}

func applyCoreProperties(data []byte, metadata map[string]any) {
	var props coreProperties
	if err := xml.Unmarshal(data, &props); err != nil {
		return
	}
	set := func(key, value string) {
		if v := strings.TrimSpace(value); v != "" {
			metadata[key] = v
		}
	}
	set(MetaTitle, props.Title)
	set(MetaAuthor, props.Creator)
	set(MetaCreated, props.Created)
	set(MetaModified, props.Modified)
}
