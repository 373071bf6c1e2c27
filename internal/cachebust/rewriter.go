package cachebust

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/conneroisu/simplest/internal/logging"
	"github.com/conneroisu/simplest/internal/metrics"
)

// linkRels lists the rel values whose href is treated as a cacheable asset.
var linkRels = map[string]bool{
	"stylesheet":       true,
	"icon":             true,
	"preload":          true,
	"modulepreload":    true,
	"manifest":         true,
	"apple-touch-icon": true,
}

// Rewriter appends "?<hash>" to local asset references in HTML documents.
type Rewriter struct {
	InputRoot  string
	OutputRoot string
	Memo       *Memo
	Artifacts  *Artifacts
	Logger     logging.Logger
	Metrics    metrics.Recorder
}

// Rewrite returns doc with every local asset reference suffixed by the
// content hash of the asset. file is the input-relative, slash separated
// path of the document and anchors relative references. Everything outside
// the edited attribute values is preserved byte for byte. The bool reports
// whether anything changed.
func (r *Rewriter) Rewrite(ctx context.Context, doc []byte, file string) ([]byte, bool, error) {
	var edits []Edit
	for _, ref := range Scan(doc, AssetAttributes) {
		if ref.Tag == "link" && !cacheableLink(ref.Rel) {
			continue
		}
		if !IsLocal(ref.Value) {
			continue
		}
		rel, ok := Resolve(file, ref.Value)
		if !ok {
			r.logger().Warn(ctx, nil, "Asset reference escapes the input root",
				"file", file, "reference", ref.Value)
			continue
		}

		token, ok := r.token(rel)
		if !ok {
			r.logger().Warn(ctx, nil, "Referenced asset not found, leaving reference unchanged",
				"file", file, "reference", ref.Value, "asset", rel)
			metrics.OrNoop(r.Metrics).IncMissingAsset()
			continue
		}

		at := ref.End
		if i := strings.IndexByte(ref.Value, '#'); i >= 0 {
			at = ref.Start + i
		}
		edits = append(edits, Edit{Start: at, End: at, Replacement: []byte("?" + token)})
	}

	if len(edits) == 0 {
		return doc, false, nil
	}
	out, err := ApplyEdits(doc, edits)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (r *Rewriter) logger() logging.Logger {
	if r.Logger == nil {
		return logging.NewNopLogger()
	}
	return r.Logger
}

func (r *Rewriter) token(rel string) (string, bool) {
	if r.Memo != nil {
		if token, ok := r.Memo.Get(rel); ok {
			return token, true
		}
	}

	data, ok := r.lookup(rel)
	if !ok {
		return "", false
	}

	token := Hash(data)
	if r.Memo != nil {
		r.Memo.Set(rel, token)
	}
	return token, true
}

// lookup finds the current bytes of an asset: produced earlier in this run,
// then the input tree, then the output tree.
func (r *Rewriter) lookup(rel string) ([]byte, bool) {
	if r.Artifacts != nil {
		if data, ok := r.Artifacts.Get(rel); ok {
			return data, true
		}
	}
	for _, root := range []string{r.InputRoot, r.OutputRoot} {
		if root == "" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err == nil {
			return data, true
		}
	}
	return nil, false
}

func cacheableLink(rel string) bool {
	if rel == "" {
		return true
	}
	for _, token := range strings.Fields(rel) {
		if linkRels[token] {
			return true
		}
	}
	return false
}

// IsLocal reports whether an attribute value is a candidate local asset
// reference. Values carrying a query, a host, a scheme or template syntax
// are left alone, as are empty and fragment-only values.
func IsLocal(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || strings.HasPrefix(value, "#") {
		return false
	}
	if strings.Contains(value, "?") || strings.Contains(value, "//") {
		return false
	}
	if strings.Contains(value, "<?") || strings.Contains(value, "{{") {
		return false
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme != "" {
		return false
	}
	return true
}

// Resolve maps a reference found in file to an input-relative, slash
// separated asset path. Root-absolute values resolve against the input
// root, others against the directory of file. It reports false for values
// that leave the root.
func Resolve(file, value string) (string, bool) {
	v := html.UnescapeString(strings.TrimSpace(value))
	if i := strings.IndexByte(v, '#'); i >= 0 {
		v = v[:i]
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		v = unescaped
	}
	if v == "" {
		return "", false
	}

	var rel string
	if strings.HasPrefix(v, "/") {
		rel = path.Clean(strings.TrimLeft(v, "/"))
	} else {
		rel = path.Join(path.Dir(file), v)
	}

	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}
