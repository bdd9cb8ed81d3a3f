package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docbind/internal/doctree"
)

// CSVParser handles CSV files. Rows are printed one per line with cells
// separated by a vertical bar, under a heading per batch of rows.
type CSVParser struct {
	BatchSize int // rows per section; 0 means 40
}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	b := doctree.NewBuilder(titleFromFilename(filename))
	if len(records) == 0 {
		return b.Tree(), nil
	}

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = 40
	}

	headers := strings.Join(records[0], " | ")
	dataRows := records[1:]
	if len(dataRows) == 0 {
		b.Text(headers)
		return b.Tree(), nil
	}

	for i := 0; i < len(dataRows); i += batchSize {
		end := min(i+batchSize, len(dataRows))

		var text strings.Builder
		text.WriteString(headers)
		for _, row := range dataRows[i:end] {
			text.WriteString("\n")
			text.WriteString(strings.Join(row, " | "))
		}

		// 1-indexed, counting the header row.
		b.Heading(2, fmt.Sprintf("Rows %d-%d", i+2, end+1))
		b.Text(text.String())
	}

	return b.Tree(), nil
}
