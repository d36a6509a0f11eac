package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFiles embed.FS

// DefaultVersion is the canonical analyst template.
const DefaultVersion = "v1"

// Catalog holds the known prompt templates keyed by version.
type Catalog struct {
	byVersion map[string]Template
	fallback  string
}

// LoadCatalog parses the embedded templates.
func LoadCatalog() (*Catalog, error) {
	return loadCatalog(templateFiles, "templates")
}

// MustLoadCatalog panics if the embedded templates are invalid.
func MustLoadCatalog() *Catalog {
	c, err := LoadCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

func loadCatalog(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	c := &Catalog{byVersion: make(map[string]Template), fallback: DefaultVersion}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", entry.Name(), err)
		}
		var tpl Template
		if err := yaml.Unmarshal(raw, &tpl); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", entry.Name(), err)
		}
		if tpl.MaxDocumentChars == 0 {
			tpl.MaxDocumentChars = DefaultMaxDocumentChars
		}
		if err := tpl.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byVersion[tpl.Version]; dup {
			return nil, fmt.Errorf("%w: duplicate version %s", ErrInvalidTemplate, tpl.Version)
		}
		c.byVersion[tpl.Version] = tpl
	}
	if _, ok := c.byVersion[c.fallback]; !ok {
		return nil, fmt.Errorf("%w: default version %s missing", ErrInvalidTemplate, c.fallback)
	}
	return c, nil
}

// Get returns the template for version and whether it was recognized.
// Unknown versions fall back to the default template.
func (c *Catalog) Get(version string) (Template, bool) {
	tpl, ok := c.byVersion[strings.TrimSpace(version)]
	if !ok {
		return c.byVersion[c.fallback], false
	}
	return tpl, true
}

// Default returns the canonical template.
func (c *Catalog) Default() Template {
	return c.byVersion[c.fallback]
}

// Versions lists the known versions in sorted order.
func (c *Catalog) Versions() []string {
	out := make([]string, 0, len(c.byVersion))
	for v := range c.byVersion {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
