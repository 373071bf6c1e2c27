package watcher

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnore lists the temporary files editors and compilers leave next
// to sources.
var DefaultIgnore = []string{"*.tmp", "*.swp", "*.swx", "*~", ".#*", "4913", "*.sass-cache"}

// IgnoreFilter rejects paths under root matching any of patterns. Patterns
// without a slash match the base name; others match the slash separated
// path relative to root.
func IgnoreFilter(root string, patterns []string) FileFilter {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}

	return func(path string) bool {
		base := filepath.Base(path)
		rel := ""
		if r, err := filepath.Rel(absRoot, path); err == nil {
			rel = filepath.ToSlash(r)
		}

		for _, pattern := range patterns {
			if strings.Contains(pattern, "/") {
				if rel != "" {
					if ok, _ := doublestar.Match(pattern, rel); ok {
						return false
					}
				}
				continue
			}
			if ok, _ := doublestar.Match(pattern, base); ok {
				return false
			}
		}
		return true
	}
}

// NoGitFilter rejects paths inside .git directories.
func NoGitFilter(path string) bool {
	p := filepath.ToSlash(path)
	return !strings.HasPrefix(p, ".git/") && !strings.Contains(p, "/.git/") &&
		!strings.HasSuffix(p, "/.git") && p != ".git"
}
