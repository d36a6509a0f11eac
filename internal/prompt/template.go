package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxDocumentChars bounds the document text placed in a prompt.
const DefaultMaxDocumentChars = 50000

// Template is a versioned, static prompt with a single placeholder for the
// document text.
type Template struct {
	Version          string `yaml:"version"`
	Name             string `yaml:"name"`
	Placeholder      string `yaml:"placeholder"`
	MaxDocumentChars int    `yaml:"max_document_chars"`
	Body             string `yaml:"body"`
}

// Composed is the final instruction text sent to the generation service.
type Composed struct {
	Text          string
	Version       string
	DocumentChars int
	Truncated     bool
}

var ErrInvalidTemplate = errors.New("invalid prompt template")

// Validate checks the invariants Compose relies on.
func (t Template) Validate() error {
	switch {
	case strings.TrimSpace(t.Version) == "":
		return fmt.Errorf("%w: version is required", ErrInvalidTemplate)
	case strings.TrimSpace(t.Placeholder) == "":
		return fmt.Errorf("%w %s: placeholder is required", ErrInvalidTemplate, t.Version)
	case t.MaxDocumentChars <= 0:
		return fmt.Errorf("%w %s: max_document_chars must be positive", ErrInvalidTemplate, t.Version)
	}
	if n := strings.Count(t.Body, t.Placeholder); n != 1 {
		return fmt.Errorf("%w %s: placeholder %q must appear exactly once, found %d", ErrInvalidTemplate, t.Version, t.Placeholder, n)
	}
	return nil
}

// Compose substitutes the first MaxDocumentChars characters of documentText
// into the template. Longer documents are clipped, never rejected, and the
// text is not escaped.
func Compose(tpl Template, documentText string) Composed {
	limit := tpl.MaxDocumentChars
	if limit <= 0 {
		limit = DefaultMaxDocumentChars
	}
	clipped, truncated := truncateRunes(documentText, limit)
	return Composed{
		Text:          strings.Replace(tpl.Body, tpl.Placeholder, clipped, 1),
		Version:       tpl.Version,
		DocumentChars: utf8.RuneCountInString(clipped),
		Truncated:     truncated,
	}
}

// Fingerprint returns a stable hash of the prompt text for logs.
func Fingerprint(c Composed) string {
	sum := sha256.Sum256([]byte(c.Text))
	return hex.EncodeToString(sum[:])
}

func truncateRunes(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i], true
		}
		count++
	}
	return s, false
}
