package extractor

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/document-query/pkg/errors"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  hello \n\n world\t", "hello world"},
		{"non\u00a0breaking", "non breaking"},
		{"bell\x07 ring\x7f", "bell ring"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanText(tt.in), "%q", tt.in)
	}
}

func TestExtractTXT(t *testing.T) {
	text, meta, err := Extract("notes.TXT", []byte("first line\nsecond   line\nthird"))
	require.NoError(t, err)
	assert.Equal(t, "first line second line third", text)
	assert.Equal(t, 3, meta[MetaLineCount])
	assert.Equal(t, 30, meta[MetaFileSize])
	assert.NotContains(t, meta, MetaEncoding)
}

func TestExtractTXTLatin1(t *testing.T) {
	text, meta, err := Extract("legacy.txt", []byte("caf\xe9 au lait\n"))
	require.NoError(t, err)
	assert.Equal(t, "café au lait", text)
	assert.Equal(t, "latin-1", meta[MetaEncoding])
	assert.Equal(t, 1, meta[MetaLineCount])
}

func TestExtractErrors(t *testing.T) {
	_, _, err := Extract("slides.pptx", []byte("data"))
	assert.True(t, errors.Is(err, apperrors.ErrUnsupportedFormat))

	_, _, err = Extract("blank.txt", []byte(" \n\t "))
	assert.True(t, errors.Is(err, apperrors.ErrEmptyDocument))

	_, meta, err := Extract("broken.pdf", []byte("not a pdf"))
	assert.True(t, errors.Is(err, apperrors.ErrExtractionFailed))
	assert.Nil(t, meta)

	_, _, err = Extract("broken.docx", []byte("not a zip"))
	assert.True(t, errors.Is(err, apperrors.ErrExtractionFailed))
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.PDF"))
	assert.True(t, Supported("b.docx"))
	assert.False(t, Supported("c.doc"))
	assert.False(t, Supported("noext"))
}

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Quarterly </w:t></w:r><w:r><w:t>report</w:t></w:r></w:p>
    <w:p></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Region</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Revenue</w:t></w:r></w:p></w:tc>
      </w:tr>
      <w:tr>
        <w:tc><w:p><w:r><w:t>North</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>42</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
    <w:p><w:r><w:t>Revenue grew.</w:t></w:r></w:p>
  </w:body>
</w:document>`

const coreXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
  xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/">
  <dc:title>Q3 Report</dc:title>
  <dc:creator>Finance Team</dc:creator>
  <dcterms:created>2024-10-01T09:00:00Z</dcterms:created>
</cp:coreProperties>`

func buildDOCX(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	data := buildDOCX(t, map[string]string{
		documentPart: documentXML,
		corePart:     coreXML,
	})

	text, meta, err := Extract("report.docx", data)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report Revenue grew. Region | Revenue North | 42", text)
	assert.Equal(t, 2, meta[MetaParagraphs])
	assert.Equal(t, 0, meta[MetaPageCount])
	assert.Equal(t, "Q3 Report", meta[MetaTitle])
	assert.Equal(t, "Finance Team", meta[MetaAuthor])
	assert.Equal(t, "2024-10-01T09:00:00Z", meta[MetaCreated])
	assert.NotContains(t, meta, MetaModified)
}

func TestExtractDOCXWithoutDocumentPart(t *testing.T) {
	data := buildDOCX(t, map[string]string{corePart: coreXML})
	_, _, err := Extract("empty.docx", data)
	assert.True(t, errors.Is(err, apperrors.ErrExtractionFailed))
}

func TestExtractDOCXRejectsInflatedPart(t *testing.T) {
	bloated := `<w:document><w:body><w:p><w:r><w:t>` +
		strings.Repeat("a", minPartLimit) +
		`</w:t></w:r></w:p></w:body></w:document>`
	data := buildDOCX(t, map[string]string{documentPart: bloated})
	require.Less(t, len(data)*maxPartExpansion, minPartLimit)

	_, _, err := Extract("bomb.docx", data)
	assert.ErrorIs(t, err, apperrors.ErrExtractionFailed)
	assert.ErrorIs(t, err, errPartTooLarge)
}

func TestReadPartLimit(t *testing.T) {
	data := buildDOCX(t, map[string]string{documentPart: strings.Repeat("x", 64)})
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	body, err := readPart(zr, documentPart, 64)
	require.NoError(t, err)
	assert.Len(t, body, 64)

	_, err = readPart(zr, documentPart, 63)
	assert.ErrorIs(t, err, errPartTooLarge)

	_, err = readPart(zr, corePart, 64)
	assert.ErrorIs(t, err, errPartMissing)
}
