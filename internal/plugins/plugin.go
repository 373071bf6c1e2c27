// Package plugins defines the plugin protocol of the builder: the File a
// plugin sees, the Action it returns, the ordered Chain and the per-run
// context shared by every plugin in one build.
package plugins

import (
	"context"
	"strings"

	"github.com/conneroisu/simplest/internal/config"
)

// File is the identity of a file as a plugin sees it.
type File struct {
	// Path is the current input-relative, slash separated identity.
	Path string
	// Source is the path the file was discovered under.
	Source string
	// Template is the resolved template governing the file. It is nil while
	// templates themselves are processed.
	Template []byte
}

// Plugin transforms files whose current extension is in Extensions.
type Plugin interface {
	Name() string
	Extensions() []string
	Parse(ctx context.Context, run *Run, file File, content []byte) (Action, error)
}

// Targeter is implemented by plugins that rename files by extension. Target
// returns the identity the plugin would give path, which lets the builder
// predict output paths without running the plugin.
type Targeter interface {
	Target(path string) string
}

// Accepts reports whether p handles path.
func Accepts(p Plugin, path string) bool {
	return config.HasExtension(path, p.Extensions())
}

// ReplaceExtension swaps the longest extension in exts that path ends with
// for ext. Paths without a matching extension are returned unchanged.
func ReplaceExtension(path string, exts []string, ext string) string {
	lower := strings.ToLower(path)
	match := ""
	for _, e := range exts {
		if strings.HasSuffix(lower, e) && len(e) > len(match) {
			match = e
		}
	}
	if match == "" {
		return path
	}
	return path[:len(path)-len(match)] + ext
}
