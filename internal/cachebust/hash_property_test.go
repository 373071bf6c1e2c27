//go:build property

package cachebust

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestHashProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("hash is deterministic", prop.ForAll(
		func(s string) bool {
			return Hash([]byte(s)) == Hash([]byte(s))
		},
		gen.AnyString(),
	))

	properties.Property("changing the first byte changes the hash", prop.ForAll(
		func(s string) bool {
			data := []byte(s)
			changed := append([]byte(nil), data...)
			changed[0] ^= 0x01
			return Hash(data) != Hash(changed)
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
	))

	properties.Property("rewriting a document without references is a no-op", prop.ForAll(
		func(s string) bool {
			r := &Rewriter{}
			doc := []byte("<p>" + s + "</p>")
			out, changed, err := r.Rewrite(t.Context(), doc, "index.html")
			return err == nil && !changed && string(out) == string(doc)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
