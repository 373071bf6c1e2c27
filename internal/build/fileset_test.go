package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paths(entries []*Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}

func TestFileSetAddAndOrder(t *testing.T) {
	set := NewFileSet(nil)
	a := set.Add("a.html")
	set.Add("b.md")
	assert.Same(t, a, set.Add("a.html"), "no duplicates")

	assert.Equal(t, []string{"a.html", "b.md"}, paths(set.Entries()))
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Has("b.md"))

	e, ok := set.Get("a.html")
	require.True(t, ok)
	assert.Equal(t, "a.html", e.Source)
}

func TestFileSetRename(t *testing.T) {
	set := NewFileSet(nil)
	set.Add("a.html")
	b := set.Add("b.md")
	set.Add("c.png")

	assert.Nil(t, set.Rename(b, "b.html"))
	assert.Equal(t, []string{"a.html", "b.html", "c.png"}, paths(set.Entries()))
	assert.False(t, set.Has("b.md"))
	assert.Equal(t, "b.md", b.Source)
}

func TestFileSetRenameCollision(t *testing.T) {
	set := NewFileSet(nil)
	existing := set.Add("a.md")
	txt := set.Add("a.txt")

	replaced := set.Rename(txt, "a.md")
	assert.Same(t, existing, replaced)
	assert.Equal(t, []string{"a.md"}, paths(set.Entries()))

	e, ok := set.Get("a.md")
	require.True(t, ok)
	assert.Same(t, txt, e, "the renamed file wins")
}

func TestFileSetRenameUntracked(t *testing.T) {
	set := NewFileSet(nil)
	stray := &Entry{Source: "x.md", Path: "x.md"}
	assert.Nil(t, set.Rename(stray, "x.html"))
	assert.Equal(t, "x.html", stray.Path)
	assert.Zero(t, set.Len())
}

func TestFileSetRemove(t *testing.T) {
	set := NewFileSet(nil)
	set.Add("a.html")
	set.Add("style.scss")

	e, ok := set.Remove("style.scss")
	require.True(t, ok)
	assert.Equal(t, "style.scss", e.Source)
	assert.Equal(t, []string{"a.html"}, paths(set.Entries()))

	_, ok = set.Remove("style.scss")
	assert.False(t, ok)
}
