// Package scales holds the static scale data: chroma templates used for key
// matching and pitch-label sets used for drawing and playback.
package scales

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
)

// Chromatic is the name under which each set stores its full chromatic row.
const Chromatic = "chromatic"

// Families in matching order.
const (
	Major = "major"
	Minor = "minor"
)

//go:embed data/scales_chroma.json data/scales.json
var defaultData embed.FS

// Scale is one named entry of a family.
type Scale struct {
	Name  string
	Notes []string
}

// Family keeps scales in the order they appear in the source document, which
// is the order key matching folds over.
type Family []Scale

// UnmarshalJSON decodes a JSON object while preserving key order.
func (f *Family) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("family must be an object")
	}

	out := Family{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)

		var notes []string
		if err := dec.Decode(&notes); err != nil {
			return fmt.Errorf("scale %q: %w", name, err)
		}
		out = append(out, Scale{Name: name, Notes: notes})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*f = out
	return nil
}

// Set is one JSON document: a chromatic row plus the major and minor families.
type Set struct {
	Chromatic []string `json:"chromatic"`
	Major     Family   `json:"major"`
	Minor     Family   `json:"minor"`
}

// Families returns the families in matching order.
func (s *Set) Families() []Family {
	return []Family{s.Major, s.Minor}
}

// Lookup returns the notes stored under name, "chromatic" included.
func (s *Set) Lookup(name string) ([]string, bool) {
	if name == Chromatic {
		return s.Chromatic, s.Chromatic != nil
	}
	for _, fam := range s.Families() {
		for _, sc := range fam {
			if sc.Name == name {
				return sc.Notes, true
			}
		}
	}
	return nil, false
}

// Catalog pairs the chroma-template set with the pitch-label set. It is
// read-only once loaded and shared by pointer.
type Catalog struct {
	templates *Set
	labels    *Set
}

// Load decodes both documents. Either reader being nil is ErrMissingCatalog.
func Load(templates, labels io.Reader) (*Catalog, error) {
	t, err := decodeSet("chroma templates", templates)
	if err != nil {
		return nil, err
	}
	if len(t.Chromatic) != 12 {
		return nil, fmt.Errorf("%w: chroma templates need 12 chromatic labels, got %d", ErrMalformedCatalog, len(t.Chromatic))
	}

	l, err := decodeSet("pitch labels", labels)
	if err != nil {
		return nil, err
	}
	if len(l.Chromatic) == 0 {
		return nil, fmt.Errorf("%w: pitch labels lack a chromatic row", ErrMalformedCatalog)
	}

	return &Catalog{templates: t, labels: l}, nil
}

// LoadFiles reads both documents from disk.
func LoadFiles(templatesPath, labelsPath string) (*Catalog, error) {
	t, err := os.ReadFile(templatesPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingCatalog, err)
	}
	l, err := os.ReadFile(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingCatalog, err)
	}
	return Load(bytes.NewReader(t), bytes.NewReader(l))
}

// Default returns the embedded catalog: 12 major and 12 minor scales.
func Default() (*Catalog, error) {
	t, err := defaultData.ReadFile("data/scales_chroma.json")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingCatalog, err)
	}
	l, err := defaultData.ReadFile("data/scales.json")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingCatalog, err)
	}
	return Load(bytes.NewReader(t), bytes.NewReader(l))
}

// NewCatalog builds a catalog from already decoded sets. Either may be nil,
// in which case the matching queries report nothing.
func NewCatalog(templates, labels *Set) *Catalog {
	return &Catalog{templates: templates, labels: labels}
}

func decodeSet(what string, r io.Reader) (*Set, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: no %s source", ErrMissingCatalog, what)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrMissingCatalog, what, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s empty", ErrMissingCatalog, what)
	}

	var s Set
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedCatalog, what, err)
	}
	return &s, nil
}

// Templates returns the chroma-template set, nil when absent.
func (c *Catalog) Templates() *Set {
	if c == nil {
		return nil
	}
	return c.templates
}

// Names lists the scale names of a family in catalog order.
func (c *Catalog) Names(family string) []string {
	if c == nil || c.labels == nil {
		return nil
	}

	var fam Family
	switch family {
	case Major:
		fam = c.labels.Major
	case Minor:
		fam = c.labels.Minor
	default:
		return nil
	}

	names := make([]string, len(fam))
	for i, sc := range fam {
		names[i] = sc.Name
	}
	return names
}

// Labels returns a copy of the ordered pitch labels for name ("chromatic" or
// a scale name).
func (c *Catalog) Labels(name string) ([]string, bool) {
	if c == nil || c.labels == nil {
		return nil, false
	}
	notes, ok := c.labels.Lookup(name)
	return slices.Clone(notes), ok
}

// Template returns a copy of the pitch-class members of a scale.
func (c *Catalog) Template(name string) ([]string, bool) {
	if c == nil || c.templates == nil {
		return nil, false
	}
	notes, ok := c.templates.Lookup(name)
	return slices.Clone(notes), ok
}

// Has reports whether name is a selectable scale.
func (c *Catalog) Has(name string) bool {
	_, ok := c.Labels(name)
	return ok
}
