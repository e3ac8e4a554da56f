package chunking

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"universal-vectorizer/internal/config"
	"universal-vectorizer/internal/models"
)

// HybridChunker turns a stream of cleaned text fragments into fixed-size
// overlapping chunks. Size and overlap are measured in characters
// (runes), so multibyte text is never split mid-character. Fragments are
// first split into semantic units
// (paragraphs, then sentences) which are re-joined into a rolling buffer,
// so chunk boundaries never depend on how the extractor happened to slice
// the input. The chunker is deterministic for a given fragment sequence
// and configuration, which is what makes checkpoint-based resume safe.
type HybridChunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewHybridChunker validates chunk geometry and creates a chunker
func NewHybridChunker(chunkSize, chunkOverlap int) (*HybridChunker, error) {
	if chunkSize <= 0 {
		return nil, config.NewConfigError("chunk_size", "must be positive")
	}
	if chunkOverlap < 0 {
		return nil, config.NewConfigError("chunk_overlap", "cannot be negative")
	}
	if chunkOverlap >= chunkSize {
		return nil, config.NewConfigError("chunk_overlap",
			fmt.Sprintf("must be smaller than chunk size (%d >= %d)", chunkOverlap, chunkSize))
	}
	return &HybridChunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// ChunkSize returns the configured window size
func (c *HybridChunker) ChunkSize() int {
	return c.chunkSize
}

// ChunkOverlap returns the configured overlap between consecutive chunks
func (c *HybridChunker) ChunkOverlap() int {
	return c.chunkOverlap
}

// Stream returns a lazy chunk stream over src. The source is read exactly
// once and closed when the stream is drained or when Close is called.
func (c *HybridChunker) Stream(src models.FragmentStream, metadata map[string]string) *ChunkStream {
	return &ChunkStream{
		chunker:  c,
		src:      src,
		metadata: metadata,
	}
}

// ChunkStream is a pull-based iterator over emitted chunks. Peak buffer
// size is bounded by chunk_size plus the longest semantic unit.
type ChunkStream struct {
	chunker  *HybridChunker
	src      models.FragmentStream
	metadata map[string]string

	buffer  []rune
	idx     int
	pending []models.Chunk
	done    bool
	err     error
}

// Next returns the next chunk, or io.EOF once the input is exhausted and
// the trailing partial chunk (if any) has been emitted.
func (s *ChunkStream) Next() (models.Chunk, error) {
	for {
		if len(s.pending) > 0 {
			chunk := s.pending[0]
			s.pending = s.pending[1:]
			return chunk, nil
		}
		if s.err != nil {
			return models.Chunk{}, s.err
		}
		if s.done {
			return models.Chunk{}, io.EOF
		}

		fragment, err := s.src.Next()
		if err == io.EOF {
			s.done = true
			closeErr := s.src.Close()
			if len(s.buffer) > 0 {
				s.pending = append(s.pending, s.buildChunk(s.idx, string(s.buffer)))
				s.idx++
				s.buffer = nil
			}
			if closeErr != nil && len(s.pending) == 0 {
				s.err = closeErr
			}
			continue
		}
		if err != nil {
			s.err = err
			_ = s.src.Close()
			return models.Chunk{}, err
		}

		for _, unit := range semanticUnits(fragment) {
			if len(s.buffer) == 0 {
				s.buffer = []rune(unit)
			} else {
				s.buffer = []rune(strings.TrimSpace(string(s.buffer) + " " + unit))
			}
			for len(s.buffer) >= s.chunker.chunkSize {
				s.pending = append(s.pending, s.buildChunk(s.idx, string(s.buffer[:s.chunker.chunkSize])))
				s.idx++
				s.buffer = s.buffer[s.chunker.chunkSize-s.chunker.chunkOverlap:]
			}
		}
	}
}

// Close releases the underlying source early
func (s *ChunkStream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.src.Close()
}

func (s *ChunkStream) buildChunk(idx int, text string) models.Chunk {
	source, ok := s.metadata["source"]
	if !ok || source == "" {
		source = "unknown"
	}

	meta := make(map[string]string, len(s.metadata)+1)
	for k, v := range s.metadata {
		meta[k] = v
	}
	meta["chunk_index"] = strconv.Itoa(idx)

	return models.Chunk{
		ID:       fmt.Sprintf("%s-chunk-%d", source, idx),
		Text:     text,
		Metadata: meta,
	}
}

// semanticUnits splits a fragment into paragraph-then-sentence units:
// paragraphs on the literal blank line, inner newlines folded to spaces,
// sentences on ". ". Empty units are discarded.
func semanticUnits(text string) []string {
	var units []string
	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		flattened := strings.ReplaceAll(paragraph, "\n", " ")
		for _, sentence := range strings.Split(flattened, ". ") {
			stripped := strings.TrimSpace(sentence)
			if stripped != "" {
				units = append(units, stripped)
			}
		}
	}
	return units
}
