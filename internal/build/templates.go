package build

import (
	"path"

	"golang.org/x/text/unicode/norm"

	"github.com/conneroisu/simplest/internal/errors"
)

// Template is the processed template of one directory.
type Template struct {
	Dir     string
	Path    string
	Content []byte
	// Changed is set when the template's output was rewritten in this run;
	// every file it governs is then rebuilt.
	Changed bool
}

// TemplateMap maps directories to their templates.
type TemplateMap struct {
	name  string
	byDir map[string]*Template
}

// NewTemplateMap returns an empty map for templates called name.
func NewTemplateMap(name string) *TemplateMap {
	return &TemplateMap{name: name, byDir: make(map[string]*Template)}
}

// dirKey normalizes a slash separated directory. Some file systems report
// decomposed Unicode names, so keys are NFC.
func dirKey(dir string) string {
	return norm.NFC.String(path.Clean(dir))
}

// Set records t for its directory.
func (m *TemplateMap) Set(t *Template) {
	m.byDir[dirKey(t.Dir)] = t
}

// Lookup returns the template recorded for exactly dir.
func (m *TemplateMap) Lookup(dir string) (*Template, bool) {
	t, ok := m.byDir[dirKey(dir)]
	return t, ok
}

// Resolve returns the template governing the input-relative file rel: the
// one in rel's directory or in its nearest ancestor.
func (m *TemplateMap) Resolve(rel string) (*Template, error) {
	dir := path.Dir(rel)
	for d := dir; ; d = path.Dir(d) {
		if t, ok := m.Lookup(d); ok {
			return t, nil
		}
		if d == "." || d == "/" {
			break
		}
	}
	return nil, errors.ErrNoTemplateForFile(rel, path.Join(dir, m.name))
}

// Len returns the number of templates.
func (m *TemplateMap) Len() int {
	return len(m.byDir)
}
