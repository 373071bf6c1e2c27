package cachebust

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/simplest/internal/logging"
	"github.com/conneroisu/simplest/internal/metrics"
)

type countingRecorder struct {
	metrics.NoopRecorder
	missing int
}

func (c *countingRecorder) IncMissingAsset() { c.missing++ }

func writeAsset(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestRewriter(t *testing.T) (*Rewriter, *bytes.Buffer, *countingRecorder) {
	t.Helper()
	var buf bytes.Buffer
	rec := &countingRecorder{}
	r := &Rewriter{
		InputRoot:  t.TempDir(),
		OutputRoot: t.TempDir(),
		Memo:       NewMemo(),
		Artifacts:  NewArtifacts(),
		Logger:     logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelWarn, Output: &buf}),
		Metrics:    rec,
	}
	return r, &buf, rec
}

func TestScan(t *testing.T) {
	doc := []byte(`<!-- <link href="commented.css"> -->
<LINK REL="Stylesheet" HREF='a.css'>
<script>var s = '<img src="inline.png">';</script>
<script src=app.js defer></script>
<img alt="x" src="i.png"/>`)

	refs := Scan(doc, AssetAttributes)
	require.Len(t, refs, 3)

	assert.Equal(t, "link", refs[0].Tag)
	assert.Equal(t, "stylesheet", refs[0].Rel)
	assert.Equal(t, "a.css", refs[0].Value)
	assert.Equal(t, "app.js", refs[1].Value)
	assert.Equal(t, "i.png", refs[2].Value)

	for _, ref := range refs {
		assert.Equal(t, ref.Value, string(doc[ref.Start:ref.End]))
	}
}

func TestApplyEdits(t *testing.T) {
	doc := []byte("0123456789")

	out, err := ApplyEdits(doc, []Edit{
		{Start: 8, End: 8, Replacement: []byte("b")},
		{Start: 2, End: 4, Replacement: []byte("X")},
	})
	require.NoError(t, err)
	assert.Equal(t, "01X4567b89", string(out))
	assert.Equal(t, "0123456789", string(doc))

	_, err = ApplyEdits(doc, []Edit{{Start: 1, End: 5}, {Start: 3, End: 6}})
	assert.Error(t, err)

	_, err = ApplyEdits(doc, []Edit{{Start: 5, End: 11}})
	assert.Error(t, err)
}

func TestIsLocal(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"style.css", true},
		{"/css/site.css", true},
		{"../img/a.png", true},
		{"", false},
		{"#top", false},
		{"style.css?v=1", false},
		{"//cdn.example.com/x.js", false},
		{"https://example.com/x.js", false},
		{"data:image/png;base64,AAAA", false},
		{"mailto:a@example.com", false},
		{"<?php echo $css; ?>", false},
		{"{{ .Asset }}", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLocal(tt.value))
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		file, value string
		want        string
		ok          bool
	}{
		{"index.html", "style.css", "style.css", true},
		{"blog/post.html", "../img/a.png", "img/a.png", true},
		{"blog/post.html", "/css/site.css", "css/site.css", true},
		{"blog/post.html", "./x.js", "blog/x.js", true},
		{"index.html", "sprite.svg#icon", "sprite.svg", true},
		{"index.html", "my%20file.css", "my file.css", true},
		{"index.html", "../outside.css", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.file+"|"+tt.value, func(t *testing.T) {
			got, ok := Resolve(tt.file, tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRewriteAppendsHashes(t *testing.T) {
	r, _, _ := newTestRewriter(t)
	writeAsset(t, r.InputRoot, "style.css", "body{color:red}")
	writeAsset(t, r.InputRoot, "js/app.js", "console.log(1)\n")

	doc := []byte(`<link rel="stylesheet" href="style.css"><script src="/js/app.js"></script>`)
	out, changed, err := r.Rewrite(context.Background(), doc, "index.html")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t,
		`<link rel="stylesheet" href="style.css?20im5j"><script src="/js/app.js?tw9rmq"></script>`,
		string(out))
}

func TestRewriteRelativeToFileDirectory(t *testing.T) {
	r, _, _ := newTestRewriter(t)
	writeAsset(t, r.InputRoot, "img/logo.png", "PNGDATA")

	doc := []byte(`<img src="../img/logo.png">`)
	out, _, err := r.Rewrite(context.Background(), doc, "blog/post.html")
	require.NoError(t, err)
	assert.Equal(t, `<img src="../img/logo.png?zq8auk">`, string(out))
}

func TestRewriteMissingAsset(t *testing.T) {
	r, logs, rec := newTestRewriter(t)

	doc := []byte(`<link href="nope.css">`)
	out, changed, err := r.Rewrite(context.Background(), doc, "index.html")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, string(doc), string(out))
	assert.Equal(t, 1, rec.missing)
	assert.Contains(t, logs.String(), "nope.css")
}

func TestRewriteSkipsIneligibleReferences(t *testing.T) {
	r, _, rec := newTestRewriter(t)
	writeAsset(t, r.InputRoot, "style.css", "body{color:red}")
	writeAsset(t, r.InputRoot, "other.html", "<p></p>")

	doc := []byte(`<link rel="stylesheet" href="style.css?v=2">
<link rel="canonical" href="other.html">
<script src="https://cdn.example.com/lib.js"></script>
<a href="style.css">not an asset tag</a>`)

	out, changed, err := r.Rewrite(context.Background(), doc, "index.html")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, string(doc), string(out))
	assert.Zero(t, rec.missing)
}

func TestRewritePreservesPHP(t *testing.T) {
	r, _, _ := newTestRewriter(t)
	writeAsset(t, r.InputRoot, "style.css", "body{color:red}")

	doc := []byte("<?php $title = 'x'; ?>\n<html><head>\n" +
		"<link rel=\"stylesheet\" href=\"style.css\">\n" +
		"<link href=\"<?php echo $theme; ?>.css\">\n" +
		"</head><body><?= $body ?></body></html>\n")
	want := "<?php $title = 'x'; ?>\n<html><head>\n" +
		"<link rel=\"stylesheet\" href=\"style.css?20im5j\">\n" +
		"<link href=\"<?php echo $theme; ?>.css\">\n" +
		"</head><body><?= $body ?></body></html>\n"

	out, changed, err := r.Rewrite(context.Background(), doc, "index.php")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, want, string(out))
}

func TestRewriteFragmentKeepsAnchor(t *testing.T) {
	r, _, _ := newTestRewriter(t)
	writeAsset(t, r.InputRoot, "sprite.svg", "PNGDATA")

	out, _, err := r.Rewrite(context.Background(), []byte(`<img src="sprite.svg#icon">`), "index.html")
	require.NoError(t, err)
	assert.Equal(t, `<img src="sprite.svg?zq8auk#icon">`, string(out))
}

func TestRewriteLookupOrder(t *testing.T) {
	r, _, _ := newTestRewriter(t)
	writeAsset(t, r.OutputRoot, "style.css", "hello")
	doc := []byte(`<link href="style.css">`)

	out, _, err := r.Rewrite(context.Background(), doc, "index.html")
	require.NoError(t, err)
	assert.Equal(t, `<link href="style.css?2zzlpj">`, string(out), "output root is the last fallback")

	r.Memo = NewMemo()
	writeAsset(t, r.InputRoot, "style.css", "a")
	out, _, err = r.Rewrite(context.Background(), doc, "index.html")
	require.NoError(t, err)
	assert.Equal(t, `<link href="style.css?3t1g">`, string(out), "input root wins over output root")

	r.Memo = NewMemo()
	r.Artifacts.Put("style.css", []byte("body{color:red}"))
	out, _, err = r.Rewrite(context.Background(), doc, "index.html")
	require.NoError(t, err)
	assert.Equal(t, `<link href="style.css?20im5j">`, string(out), "artifacts of this run win")
}

func TestRewriteUsesMemo(t *testing.T) {
	r, _, _ := newTestRewriter(t)
	writeAsset(t, r.InputRoot, "style.css", "body{color:red}")
	doc := []byte(`<link href="style.css">`)

	first, _, err := r.Rewrite(context.Background(), doc, "index.html")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Memo.Len())

	writeAsset(t, r.InputRoot, "style.css", "body{color:blue}")
	second, _, err := r.Rewrite(context.Background(), doc, "index.html")
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	r.Memo.Forget("style.css")
	third, _, err := r.Rewrite(context.Background(), doc, "index.html")
	require.NoError(t, err)
	assert.Equal(t, `<link href="style.css?g2hai2">`, string(third))
}
