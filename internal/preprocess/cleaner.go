package preprocess

import (
	"io"
	"regexp"
	"strings"

	"universal-vectorizer/internal/models"
)

var whitespaceRun = regexp.MustCompile(`[ \t\n\r\f\v]+`)

// Cleaner normalizes whitespace on streamed text fragments
type Cleaner struct {
	Lowercase bool
}

// NewCleaner creates a cleaner; lowercase folding is off by default
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// Clean normalizes a single fragment: carriage returns become spaces,
// whitespace runs collapse to one space, surrounding space is trimmed.
// Clean is idempotent.
func (c *Cleaner) Clean(text string) string {
	if text == "" {
		return ""
	}
	processed := strings.ReplaceAll(text, "\r", " ")
	processed = whitespaceRun.ReplaceAllString(processed, " ")
	if c.Lowercase {
		processed = strings.ToLower(processed)
	}
	return strings.TrimSpace(processed)
}

// CleanStream wraps a fragment stream so each fragment is cleaned before
// delivery. Fragments that clean to empty are dropped; order is preserved.
func (c *Cleaner) CleanStream(src models.FragmentStream) models.FragmentStream {
	return models.NewFuncStream(func() (string, error) {
		for {
			fragment, err := src.Next()
			if err != nil {
				return "", err
			}
			cleaned := c.Clean(fragment)
			if cleaned != "" {
				return cleaned, nil
			}
		}
	}, src.Close)
}

// Drain consumes a stream into a slice. Intended for small inputs such as
// search queries and tests.
func Drain(src models.FragmentStream) ([]string, error) {
	defer src.Close()
	var out []string
	for {
		fragment, err := src.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, fragment)
	}
}
