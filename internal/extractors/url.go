package extractors

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"universal-vectorizer/internal/models"
)

// URLExtractor fetches a web page and extracts its readable article text,
// dropping navigation, ads and boilerplate. It is not registered by suffix;
// the ingestion service routes URL jobs to it directly.
type URLExtractor struct {
	client *http.Client
}

// NewURLExtractor creates a URL extractor with a bounded request timeout
func NewURLExtractor(timeout time.Duration) *URLExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &URLExtractor{client: &http.Client{Timeout: timeout}}
}

// Stream fetches the page and returns sentence fragments of the article
func (e *URLExtractor) Stream(source string) (*StreamedDocument, error) {
	parsed, err := url.Parse(source)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, NewUnsupportedSourceError(source, "")
	}

	resp, err := e.client.Get(source)
	if err != nil {
		return nil, NewExtractionError(source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewExtractionError(source, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return nil, NewExtractionError(source, err)
	}

	var fragments []string
	for _, sentence := range strings.Split(article.TextContent, ". ") {
		if trimmed := strings.TrimSpace(sentence); trimmed != "" {
			fragments = append(fragments, trimmed)
		}
	}

	metadata := map[string]string{
		"source": source,
		"type":   "url",
	}
	if article.Title != "" {
		metadata["title"] = article.Title
	}

	return &StreamedDocument{
		Fragments: models.NewSliceStream(fragments...),
		Metadata:  metadata,
	}, nil
}
