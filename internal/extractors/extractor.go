package extractors

import (
	"fmt"

	"universal-vectorizer/internal/models"
)

// StreamedDocument pairs a document's fragment stream with its source
// metadata. Metadata always includes "source" and "type"; extractors may
// add keys of their own (a page title, a sheet name).
type StreamedDocument struct {
	Fragments models.FragmentStream
	Metadata  map[string]string
}

// Extractor turns a local file into a streamed document. Implementations
// open the file lazily or eagerly as they see fit, but the returned stream
// owns whatever handle was opened and releases it on EOF or Close.
type Extractor interface {
	Stream(path string) (*StreamedDocument, error)
}

// UnsupportedSourceError reports a source no registered extractor handles
type UnsupportedSourceError struct {
	Source string
	Suffix string
}

func (e *UnsupportedSourceError) Error() string {
	if e.Suffix == "" {
		return fmt.Sprintf("no extractor registered for source %s", e.Source)
	}
	return fmt.Sprintf("no extractor registered for suffix %q (source %s)", e.Suffix, e.Source)
}

// NewUnsupportedSourceError creates a new unsupported source error
func NewUnsupportedSourceError(source, suffix string) *UnsupportedSourceError {
	return &UnsupportedSourceError{Source: source, Suffix: suffix}
}

// ExtractionError represents a failure while reading or decoding a source
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError creates a new extraction error
func NewExtractionError(source string, err error) *ExtractionError {
	return &ExtractionError{Source: source, Err: err}
}
