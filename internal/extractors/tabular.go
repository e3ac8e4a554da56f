package extractors

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"universal-vectorizer/internal/models"
)

// CSVExtractor streams delimited files one record per fragment. Cells are
// joined with ", " so a record reads as a sentence-like line.
type CSVExtractor struct {
	comma rune
}

// NewCSVExtractor creates an extractor for the given field delimiter
func NewCSVExtractor(comma rune) *CSVExtractor {
	return &CSVExtractor{comma: comma}
}

// Stream opens the file and returns one fragment per record
func (e *CSVExtractor) Stream(path string) (*StreamedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewExtractionError(path, err)
	}

	reader := csv.NewReader(f)
	reader.Comma = e.comma
	reader.FieldsPerRecord = -1

	fragments := models.NewFuncStream(func() (string, error) {
		for {
			record, err := reader.Read()
			if err == io.EOF {
				if closeErr := f.Close(); closeErr != nil {
					return "", NewExtractionError(path, closeErr)
				}
				return "", io.EOF
			}
			if err != nil {
				_ = f.Close()
				return "", NewExtractionError(path, err)
			}
			line := strings.TrimSpace(strings.Join(record, ", "))
			if line != "" {
				return line, nil
			}
		}
	}, f.Close)

	return &StreamedDocument{
		Fragments: fragments,
		Metadata: map[string]string{
			"source": path,
			"type":   "tabular",
		},
	}, nil
}

// XLSXExtractor streams workbook rows sheet by sheet using the excelize
// row iterator, so large workbooks are not materialized in memory.
type XLSXExtractor struct{}

// NewXLSXExtractor creates an xlsx extractor
func NewXLSXExtractor() *XLSXExtractor {
	return &XLSXExtractor{}
}

// Stream opens the workbook and returns one fragment per non-empty row
func (e *XLSXExtractor) Stream(path string) (*StreamedDocument, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, NewExtractionError(path, err)
	}

	return &StreamedDocument{
		Fragments: &xlsxRowStream{book: book, source: path, sheets: book.GetSheetList()},
		Metadata: map[string]string{
			"source": path,
			"type":   "tabular",
		},
	}, nil
}

type xlsxRowStream struct {
	book   *excelize.File
	source string
	sheets []string
	rows   *excelize.Rows
	done   bool
}

func (s *xlsxRowStream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for {
		if s.rows == nil {
			if len(s.sheets) == 0 {
				return "", s.finish(nil)
			}
			rows, err := s.book.Rows(s.sheets[0])
			s.sheets = s.sheets[1:]
			if err != nil {
				return "", s.finish(err)
			}
			s.rows = rows
		}

		for s.rows.Next() {
			cells, err := s.rows.Columns()
			if err != nil {
				_ = s.rows.Close()
				return "", s.finish(err)
			}
			line := strings.TrimSpace(strings.Join(cells, ", "))
			if line != "" {
				return line, nil
			}
		}

		err := s.rows.Close()
		s.rows = nil
		if err != nil {
			return "", s.finish(err)
		}
	}
}

func (s *xlsxRowStream) Close() error {
	if s.done {
		return nil
	}
	if s.rows != nil {
		_ = s.rows.Close()
		s.rows = nil
	}
	return s.finishErr()
}

// finish closes the workbook and converts err (or io.EOF) into the
// stream's terminal error.
func (s *xlsxRowStream) finish(err error) error {
	closeErr := s.finishErr()
	if err != nil {
		return NewExtractionError(s.source, err)
	}
	if closeErr != nil {
		return NewExtractionError(s.source, closeErr)
	}
	return io.EOF
}

func (s *xlsxRowStream) finishErr() error {
	s.done = true
	return s.book.Close()
}
