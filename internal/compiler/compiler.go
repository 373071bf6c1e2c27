// Package compiler turns source formats into their output form: Markdown to
// HTML in process through goldmark, and Sass, SCSS, Less or any user command
// through an external process. Compilers are looked up by name in a Table
// that is injected into the builder.
package compiler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/conneroisu/simplest/internal/errors"
)

// Options is the opaque option bag configured per compiler.
type Options map[string]interface{}

// String returns the string option key, or def when unset.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// Bool returns the boolean option key, or def when unset.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Strings returns a list option. A single string is split on whitespace.
func (o Options) Strings(key string) []string {
	switch v := o[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return strings.Fields(v)
	default:
		return nil
	}
}

// Source is one file handed to a compiler.
type Source struct {
	Path    string // input-relative, slash separated
	Dir     string // directory holding the source on disk
	Content []byte
	Options Options
}

// Result is the compiled output plus auxiliary files such as source maps,
// keyed by file name relative to the output's directory.
type Result struct {
	Output    []byte
	Artifacts map[string][]byte
}

// Compiler compiles one source.
type Compiler interface {
	Compile(ctx context.Context, src Source) (Result, error)
}

// Func adapts a function to Compiler.
type Func func(ctx context.Context, src Source) (Result, error)

// Compile calls f.
func (f Func) Compile(ctx context.Context, src Source) (Result, error) {
	return f(ctx, src)
}

// Table maps compiler names to compilers.
type Table struct {
	mu        sync.RWMutex
	compilers map[string]Compiler
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{compilers: make(map[string]Compiler)}
}

// Register adds or replaces the compiler called name.
func (t *Table) Register(name string, c Compiler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.compilers[name] = c
}

// Get returns the compiler called name.
func (t *Table) Get(name string) (Compiler, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.compilers[name]
	if !ok {
		return nil, errors.NewCompilerError(errors.ErrCodeCompilerNotFound,
			fmt.Sprintf("no compiler registered as %q", name), nil).
			WithContext("compiler", name)
	}
	return c, nil
}

// Names returns the registered names in sorted order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.compilers))
	for name := range t.compilers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Defaults returns a table with the built-in compilers registered.
func Defaults() *Table {
	t := NewTable()
	t.Register("markdown", Markdown{})
	t.Register("sass", &Exec{Command: "sass", Args: []string{"--stdin", "--indented"}, LoadPathFlag: "--load-path="})
	t.Register("scss", &Exec{Command: "sass", Args: []string{"--stdin"}, LoadPathFlag: "--load-path="})
	t.Register("less", &Exec{Command: "lessc", Args: []string{"-"}, LoadPathFlag: "--include-path="})
	return t
}
