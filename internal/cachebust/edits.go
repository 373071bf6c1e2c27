package cachebust

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
)

// Edit replaces doc[Start:End] with Replacement. Start == End inserts.
type Edit struct {
	Start       int
	End         int
	Replacement []byte
}

// ApplyEdits applies non-overlapping edits, given as offsets into the
// original doc, and returns the edited copy. doc itself is not modified.
func ApplyEdits(doc []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return doc, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	grow := 0
	for i, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(doc) {
			return nil, fmt.Errorf("invalid edit[%d]: range %d-%d out of bounds", i, e.Start, e.End)
		}
		if i > 0 && sorted[i-1].End > e.Start {
			return nil, errors.New("invalid edits: overlapping ranges")
		}
		grow += len(e.Replacement) - (e.End - e.Start)
	}

	var buf bytes.Buffer
	buf.Grow(len(doc) + grow)
	last := 0
	for _, e := range sorted {
		buf.Write(doc[last:e.Start])
		buf.Write(e.Replacement)
		last = e.End
	}
	buf.Write(doc[last:])
	return buf.Bytes(), nil
}
