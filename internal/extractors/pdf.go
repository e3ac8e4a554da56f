package extractors

import (
	"io"
	"os"
	"strconv"

	"github.com/dslipak/pdf"
)

// PDFExtractor streams a PDF one page of plain text at a time
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Stream opens the document and returns one fragment per non-empty page.
// The file is opened here so the stream keeps close ownership.
func (e *PDFExtractor) Stream(path string) (*StreamedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewExtractionError(path, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, NewExtractionError(path, err)
	}
	reader, err := pdf.NewReader(f, st.Size())
	if err != nil {
		_ = f.Close()
		return nil, NewExtractionError(path, err)
	}

	return &StreamedDocument{
		Fragments: &pdfPageStream{
			file:   f,
			reader: reader,
			source: path,
			pages:  reader.NumPage(),
		},
		Metadata: map[string]string{
			"source": path,
			"type":   "pdf",
			"pages":  strconv.Itoa(reader.NumPage()),
		},
	}, nil
}

type pdfPageStream struct {
	file   *os.File
	reader *pdf.Reader
	source string
	pages  int
	page   int // last page read, 1-based
	done   bool
}

func (s *pdfPageStream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for s.page < s.pages {
		s.page++
		page := s.reader.Page(s.page)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			s.done = true
			_ = s.file.Close()
			return "", NewExtractionError(s.source, err)
		}
		if text != "" {
			return text, nil
		}
	}

	s.done = true
	if err := s.file.Close(); err != nil {
		return "", NewExtractionError(s.source, err)
	}
	return "", io.EOF
}

func (s *pdfPageStream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.file.Close()
}
