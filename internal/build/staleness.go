// Package build is the build orchestrator. It discovers the input tree,
// builds the per-directory template map, threads every file through the
// plugin chain and writes the output tree, skipping work whose output is
// already current.
package build

import (
	"os"
	"time"
)

// IsNewer reports whether dst needs rebuilding from src: dst is missing or
// cannot be stat'ed, or src was modified strictly after dst. A missing src
// is an error.
func IsNewer(src, dst string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return true, nil
	}
	return srcInfo.ModTime().After(dstInfo.ModTime()), nil
}

// freshen moves dst's modification time up to src's when src is newer, so
// an output that came out byte-identical is not rebuilt again.
func freshen(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return err
	}
	if !srcInfo.ModTime().After(dstInfo.ModTime()) {
		return nil
	}
	return os.Chtimes(dst, time.Time{}, srcInfo.ModTime())
}
