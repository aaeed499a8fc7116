package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Compile-time interface check.
var _ Extractor = (*CSVExtractor)(nil)

// CSVExtractor converts tabular data to prose the chunker can work
// with: the first row is read as headers and every following row
// becomes one "Header: value, Header: value" paragraph, so a chunk
// boundary never lands inside a row.
type CSVExtractor struct{}

// NewCSVExtractor creates a CSV extractor.
func NewCSVExtractor() *CSVExtractor { return &CSVExtractor{} }

// Extract converts CSV content to labeled paragraphs.
func (CSVExtractor) Extract(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(content)) == 0 {
		return "", nil
	}

	r := csv.NewReader(bytes.NewReader(content))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	headers, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return "", nil
		}
		return "", fmt.Errorf("read headers: %w", err)
	}

	var b strings.Builder
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read row: %w", err)
		}

		var fields []string
		for i, val := range row {
			if i >= len(headers) {
				break
			}
			if val = strings.TrimSpace(val); val != "" {
				fields = append(fields, headers[i]+": "+val)
			}
		}
		if len(fields) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.Join(fields, ", "))
	}

	return b.String(), nil
}
