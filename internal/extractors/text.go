package extractors

import (
	"io"
	"os"
	"unicode/utf8"
)

// TextExtractor streams plain-text files in fixed-size read windows so a
// large file never has to fit in memory.
type TextExtractor struct {
	readWindow int
}

// NewTextExtractor creates a text extractor; window falls back to 64 KB
func NewTextExtractor(readWindow int) *TextExtractor {
	if readWindow <= 0 {
		readWindow = 64 * 1024
	}
	return &TextExtractor{readWindow: readWindow}
}

// Stream opens the file and returns windowed fragments
func (e *TextExtractor) Stream(path string) (*StreamedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewExtractionError(path, err)
	}

	return &StreamedDocument{
		Fragments: &fileWindowStream{file: f, source: path, window: e.readWindow},
		Metadata: map[string]string{
			"source": path,
			"type":   "text",
		},
	}, nil
}

// fileWindowStream reads fixed windows but keeps fragments valid UTF-8: a
// rune cut off at the window edge is carried into the next read instead
// of being split across fragments.
type fileWindowStream struct {
	file   *os.File
	source string
	window int
	carry  []byte
	done   bool
}

func (s *fileWindowStream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}

	buf := make([]byte, len(s.carry)+s.window)
	copy(buf, s.carry)
	n, err := io.ReadFull(s.file, buf[len(s.carry):])
	total := len(s.carry) + n
	s.carry = nil

	if err == io.EOF || err == io.ErrUnexpectedEOF {
		s.done = true
		closeErr := s.file.Close()
		if total == 0 {
			if closeErr != nil {
				return "", NewExtractionError(s.source, closeErr)
			}
			return "", io.EOF
		}
		return string(buf[:total]), nil
	}
	if err != nil {
		s.done = true
		_ = s.file.Close()
		return "", NewExtractionError(s.source, err)
	}

	cut := splitAtRuneBoundary(buf[:total])
	if cut < total {
		s.carry = append([]byte(nil), buf[cut:total]...)
	}
	return string(buf[:cut]), nil
}

func (s *fileWindowStream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.file.Close()
}

// splitAtRuneBoundary returns the largest prefix length of buf that does
// not end in a truncated rune. Invalid bytes that are not a truncation
// are left in place and emitted as-is.
func splitAtRuneBoundary(buf []byte) int {
	total := len(buf)
	for i := total - 1; i >= 0 && i >= total-utf8.UTFMax; i-- {
		if !utf8.RuneStart(buf[i]) {
			continue
		}
		if r, size := utf8.DecodeRune(buf[i:]); r == utf8.RuneError && size == 1 && !utf8.FullRune(buf[i:]) {
			return i
		}
		break
	}
	return total
}
