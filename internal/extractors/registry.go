package extractors

import (
	"path/filepath"
	"sort"
	"strings"
)

// Registry maps lowercase dotted suffixes (".txt", ".pdf") to extractors.
// Registration is expected at composition time; Resolve is read-only and
// safe for concurrent use afterwards.
type Registry struct {
	bySuffix map[string]Extractor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{bySuffix: make(map[string]Extractor)}
}

// Register binds an extractor to one or more suffixes. Suffixes are
// normalized to lowercase with a leading dot; the last registration for a
// suffix wins, so callers can override a default extractor.
func (r *Registry) Register(extractor Extractor, suffixes ...string) {
	for _, suffix := range suffixes {
		normalized := strings.ToLower(suffix)
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		r.bySuffix[normalized] = extractor
	}
}

// Resolve picks the extractor for a path by its suffix
func (r *Registry) Resolve(path string) (Extractor, error) {
	suffix := strings.ToLower(filepath.Ext(path))
	extractor, ok := r.bySuffix[suffix]
	if !ok {
		return nil, NewUnsupportedSourceError(path, suffix)
	}
	return extractor, nil
}

// Suffixes lists the registered suffixes in sorted order. Used by the
// upload handler to reject unsupported files before they are persisted.
func (r *Registry) Suffixes() []string {
	out := make([]string, 0, len(r.bySuffix))
	for suffix := range r.bySuffix {
		out = append(out, suffix)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry wires up every built-in extractor
func DefaultRegistry(readWindow int) *Registry {
	r := NewRegistry()
	r.Register(NewTextExtractor(readWindow), ".txt", ".md", ".html", ".log")
	r.Register(NewJSONExtractor(), ".json")
	r.Register(NewCSVExtractor(','), ".csv")
	r.Register(NewCSVExtractor('\t'), ".tsv")
	r.Register(NewXLSXExtractor(), ".xlsx")
	r.Register(NewPDFExtractor(), ".pdf")
	return r
}
