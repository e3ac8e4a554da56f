package extractors

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"universal-vectorizer/internal/models"
)

// JSONExtractor walks a JSON document token by token and emits one
// "path: value" line per scalar leaf, so nested structure survives as
// searchable text. The file is decoded incrementally, never loaded whole.
type JSONExtractor struct{}

// NewJSONExtractor creates a JSON extractor
func NewJSONExtractor() *JSONExtractor {
	return &JSONExtractor{}
}

// Stream opens the file and returns a lazy leaf-line stream
func (e *JSONExtractor) Stream(path string) (*StreamedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewExtractionError(path, err)
	}

	decoder := json.NewDecoder(f)
	decoder.UseNumber()

	var fragments models.FragmentStream = &jsonWalkStream{
		file:    f,
		source:  path,
		decoder: decoder,
	}

	return &StreamedDocument{
		Fragments: fragments,
		Metadata: map[string]string{
			"source": path,
			"type":   "json",
		},
	}, nil
}

// jsonWalkStream tracks the decoder position as a stack of container
// frames. Each frame remembers the path segment that led to it plus the
// bookkeeping for its children.
type jsonWalkStream struct {
	file    *os.File
	source  string
	decoder *json.Decoder
	stack   []jsonFrame
	done    bool
}

type jsonFrame struct {
	isArray    bool
	segment    string // path segment leading to this container
	pendingKey string // object frame: key awaiting its value
	keySet     bool
	nextIndex  int // array frame: index of the next element
}

func (s *jsonWalkStream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for {
		tok, err := s.decoder.Token()
		if err == io.EOF {
			s.done = true
			if closeErr := s.file.Close(); closeErr != nil {
				return "", NewExtractionError(s.source, closeErr)
			}
			return "", io.EOF
		}
		if err != nil {
			s.done = true
			_ = s.file.Close()
			return "", NewExtractionError(s.source, err)
		}

		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				s.push(jsonFrame{})
			case '[':
				s.push(jsonFrame{isArray: true})
			case '}', ']':
				s.pop()
			}
		case string:
			if s.expectingKey() {
				top := &s.stack[len(s.stack)-1]
				top.pendingKey = v
				top.keySet = true
				continue
			}
			return s.emitLeaf(strconv.Quote(v)), nil
		case json.Number:
			return s.emitLeaf(v.String()), nil
		case bool:
			return s.emitLeaf(strconv.FormatBool(v)), nil
		case nil:
			return s.emitLeaf("null"), nil
		}
	}
}

func (s *jsonWalkStream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.file.Close()
}

func (s *jsonWalkStream) expectingKey() bool {
	if len(s.stack) == 0 {
		return false
	}
	top := s.stack[len(s.stack)-1]
	return !top.isArray && !top.keySet
}

func (s *jsonWalkStream) push(frame jsonFrame) {
	if len(s.stack) > 0 {
		frame.segment = s.consumeSegment()
	}
	s.stack = append(s.stack, frame)
}

func (s *jsonWalkStream) pop() {
	if len(s.stack) > 0 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

// consumeSegment yields the path segment for the value about to be read
// and advances the enclosing frame past it.
func (s *jsonWalkStream) consumeSegment() string {
	top := &s.stack[len(s.stack)-1]
	if top.isArray {
		segment := strconv.Itoa(top.nextIndex)
		top.nextIndex++
		return segment
	}
	top.keySet = false
	return top.pendingKey
}

func (s *jsonWalkStream) emitLeaf(value string) string {
	segment := ""
	if len(s.stack) > 0 {
		segment = s.consumeSegment()
	}

	path := ""
	for _, frame := range s.stack[1:] {
		if path == "" {
			path = frame.segment
		} else {
			path += "." + frame.segment
		}
	}
	if segment != "" {
		if path == "" {
			path = segment
		} else {
			path += "." + segment
		}
	}

	if path == "" {
		return value
	}
	return fmt.Sprintf("%s: %s", path, value)
}
