package models

import "io"

// FragmentStream is a pull-based, single-pass stream of text fragments.
// Next returns io.EOF after the last fragment. Implementations that hold
// I/O handles must release them when the stream is drained or closed.
type FragmentStream interface {
	Next() (string, error)
	Close() error
}

// SliceStream adapts a fixed slice of fragments to a FragmentStream.
// Used by in-memory extractors and throughout the tests.
type SliceStream struct {
	fragments []string
	pos       int
}

// NewSliceStream creates a stream over the given fragments
func NewSliceStream(fragments ...string) *SliceStream {
	return &SliceStream{fragments: fragments}
}

// Next returns the next fragment or io.EOF
func (s *SliceStream) Next() (string, error) {
	if s.pos >= len(s.fragments) {
		return "", io.EOF
	}
	fragment := s.fragments[s.pos]
	s.pos++
	return fragment, nil
}

// Close is a no-op for in-memory streams
func (s *SliceStream) Close() error {
	return nil
}

// FuncStream adapts a generator function to a FragmentStream. The function
// is called once per Next and must return io.EOF when exhausted.
type FuncStream struct {
	next  func() (string, error)
	close func() error
}

// NewFuncStream wraps next and an optional close func as a FragmentStream
func NewFuncStream(next func() (string, error), closeFn func() error) *FuncStream {
	return &FuncStream{next: next, close: closeFn}
}

// Next delegates to the wrapped generator
func (s *FuncStream) Next() (string, error) {
	return s.next()
}

// Close delegates to the wrapped close func if present
func (s *FuncStream) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
