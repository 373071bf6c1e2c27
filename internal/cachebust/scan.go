package cachebust

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Reference is one attribute value inside an HTML start tag, located by byte
// offsets into the scanned document so it can be edited in place.
type Reference struct {
	Tag   string
	Attr  string
	Value string // as written, entities not decoded
	Rel   string // lowercased rel attribute of the same tag
	Start int
	End   int
}

// AssetAttributes maps the tags whose attribute points at a local asset.
var AssetAttributes = map[string]string{
	"link":   "href",
	"script": "src",
	"img":    "src",
	"source": "src",
}

// Scan tokenizes doc and returns the wanted attribute of every matching
// start tag, in document order. want maps tag name to attribute name.
//
// Only the tokenizer decides where tags start and end, so comments, raw
// script text and non-HTML blocks such as PHP are never mistaken for tags.
func Scan(doc []byte, want map[string]string) []Reference {
	z := html.NewTokenizer(bytes.NewReader(doc))
	offset := 0

	var refs []Reference
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return refs
		}

		// TagName lowercases the tokenizer buffer in place, so offsets are
		// taken from Raw before it and attributes are parsed from doc.
		start := offset
		offset += len(z.Raw())

		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		name, hasAttr := z.TagName()
		if !hasAttr {
			continue
		}
		tag := string(name)
		attrName, ok := want[tag]
		if !ok {
			continue
		}

		attrs := parseAttributes(doc[start:offset])
		rel := ""
		for _, a := range attrs {
			if a.name == "rel" {
				rel = strings.ToLower(strings.TrimSpace(a.value))
			}
		}
		for _, a := range attrs {
			if a.name != attrName {
				continue
			}
			refs = append(refs, Reference{
				Tag:   tag,
				Attr:  a.name,
				Value: a.value,
				Rel:   rel,
				Start: start + a.start,
				End:   start + a.end,
			})
			break
		}
	}
}

type attribute struct {
	name       string
	value      string
	start, end int
}

// parseAttributes reads the attributes of a single raw start tag and records
// where each value sits inside it.
func parseAttributes(tag []byte) []attribute {
	i := 1
	for i < len(tag) && !isSpace(tag[i]) && tag[i] != '>' && tag[i] != '/' {
		i++
	}

	var attrs []attribute
	for i < len(tag) {
		for i < len(tag) && (isSpace(tag[i]) || tag[i] == '/') {
			i++
		}
		if i >= len(tag) || tag[i] == '>' {
			break
		}

		nameStart := i
		for i < len(tag) && !isSpace(tag[i]) && tag[i] != '=' && tag[i] != '>' && tag[i] != '/' {
			i++
		}
		if i == nameStart {
			i++
			continue
		}
		name := strings.ToLower(string(tag[nameStart:i]))

		j := i
		for j < len(tag) && isSpace(tag[j]) {
			j++
		}
		if j >= len(tag) || tag[j] != '=' {
			attrs = append(attrs, attribute{name: name, start: i, end: i})
			i = j
			continue
		}
		j++
		for j < len(tag) && isSpace(tag[j]) {
			j++
		}

		if j < len(tag) && (tag[j] == '"' || tag[j] == '\'') {
			quote := tag[j]
			valueStart := j + 1
			valueEnd := bytes.IndexByte(tag[valueStart:], quote)
			if valueEnd < 0 {
				valueEnd = len(tag)
			} else {
				valueEnd += valueStart
			}
			attrs = append(attrs, attribute{
				name:  name,
				value: string(tag[valueStart:valueEnd]),
				start: valueStart,
				end:   valueEnd,
			})
			i = valueEnd + 1
			continue
		}

		valueStart := j
		for j < len(tag) && !isSpace(tag[j]) && tag[j] != '>' {
			j++
		}
		attrs = append(attrs, attribute{
			name:  name,
			value: string(tag[valueStart:j]),
			start: valueStart,
			end:   j,
		})
		i = j
	}

	return attrs
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}
