package build

import (
	"context"

	"github.com/conneroisu/simplest/internal/logging"
)

// Entry is one discovered file moving through a build.
type Entry struct {
	// Source is the input-relative path the file was discovered under.
	Source string
	// Path is the file's current identity; plugins may rename it.
	Path string
	// Content holds the processed bytes once Processed is set.
	Content []byte
	// Processed records that at least one plugin produced content, so empty
	// output is still written rather than copied.
	Processed bool

	template *Template
	target   string
	upToDate bool
	removed  bool
}

// FileSet is the ordered set of live files in a build, keyed by current
// identity. Iteration follows insertion order.
type FileSet struct {
	entries []*Entry
	byPath  map[string]*Entry
	logger  logging.Logger
}

// NewFileSet returns an empty set.
func NewFileSet(logger logging.Logger) *FileSet {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FileSet{byPath: make(map[string]*Entry), logger: logger}
}

// Add tracks the file discovered at source. Adding a tracked path returns
// the existing entry.
func (s *FileSet) Add(source string) *Entry {
	if e, ok := s.byPath[source]; ok {
		return e
	}
	e := &Entry{Source: source, Path: source}
	s.entries = append(s.entries, e)
	s.byPath[source] = e
	return e
}

// Get returns the live entry currently identified by path.
func (s *FileSet) Get(path string) (*Entry, bool) {
	e, ok := s.byPath[path]
	return e, ok
}

// Has reports whether path identifies a live entry.
func (s *FileSet) Has(path string) bool {
	_, ok := s.byPath[path]
	return ok
}

// Rename moves e to the identity to. When another entry already holds that
// identity the renamed entry wins and the other one is dropped and
// returned. An entry that is not tracked only has its Path updated.
func (s *FileSet) Rename(e *Entry, to string) *Entry {
	if e.Path == to {
		return nil
	}
	if cur, ok := s.byPath[e.Path]; !ok || cur != e {
		e.Path = to
		return nil
	}

	delete(s.byPath, e.Path)
	var replaced *Entry
	if other, ok := s.byPath[to]; ok {
		s.logger.Warn(context.Background(), nil, "Renamed file replaces an existing file",
			"from", e.Source, "to", to, "replaced", other.Source)
		other.removed = true
		replaced = other
	}
	e.Path = to
	s.byPath[to] = e
	return replaced
}

// Remove drops the entry identified by path and returns it.
func (s *FileSet) Remove(path string) (*Entry, bool) {
	e, ok := s.byPath[path]
	if !ok {
		return nil, false
	}
	delete(s.byPath, path)
	e.removed = true
	return e, true
}

// Entries returns the live entries in discovery order.
func (s *FileSet) Entries() []*Entry {
	out := make([]*Entry, 0, len(s.byPath))
	for _, e := range s.entries {
		if !e.removed {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of live entries.
func (s *FileSet) Len() int {
	return len(s.byPath)
}
