// Package layout splices the named blocks of a page into its directory
// template.
//
// Blocks and slots are marked with HTML comments:
//
//	<!-- build:title -->Home<!-- /build:title -->
//	<!-- build:content -->...<!-- /build:content -->
//
// In a page every block is a start/end pair. In a template a slot is either a
// pair, whose whole region is replaced, or a lone start marker, which is
// replaced by the value. Template slots without a page value are left as
// they are.
package layout

import (
	"bytes"
	"regexp"
	"sort"
	"strings"
)

// ContentBlock names the block that makes a file a template-driven page.
const ContentBlock = "content"

var startMarker = regexp.MustCompile(`<!--\s*build:([\w.-]+)\s*-->`)

// Block is a named value taken from a page.
type Block struct {
	Name  string
	Value []byte
}

func startFor(name string) *regexp.Regexp {
	return regexp.MustCompile(`<!--\s*build:` + regexp.QuoteMeta(name) + `\s*-->`)
}

func endFor(name string) *regexp.Regexp {
	return regexp.MustCompile(`<!--\s*/build:` + regexp.QuoteMeta(name) + `\s*-->`)
}

// Blocks returns the top-level blocks of page in document order. A start
// marker without a matching end marker is not a block. When a name repeats
// the first block wins.
func Blocks(page []byte) []Block {
	var blocks []Block
	seen := make(map[string]bool)

	pos := 0
	for pos < len(page) {
		loc := startMarker.FindSubmatchIndex(page[pos:])
		if loc == nil {
			break
		}
		name := string(page[pos+loc[2] : pos+loc[3]])
		valueStart := pos + loc[1]

		end := endFor(name).FindIndex(page[valueStart:])
		if end == nil {
			pos = valueStart
			continue
		}

		if !seen[name] {
			seen[name] = true
			blocks = append(blocks, Block{
				Name:  name,
				Value: page[valueStart : valueStart+end[0]],
			})
		}
		pos = valueStart + end[1]
	}

	return blocks
}

// IsPage reports whether page carries a content block.
func IsPage(page []byte) bool {
	for _, b := range Blocks(page) {
		if b.Name == ContentBlock {
			return true
		}
	}
	return false
}

// Render fills the slots of template with the blocks of page. Variables are
// filled first, in page order, and content last, so markers inside the
// content are never treated as slots.
func Render(template, page []byte) []byte {
	blocks := Blocks(page)
	out := template

	var content *Block
	for i := range blocks {
		if blocks[i].Name == ContentBlock {
			content = &blocks[i]
			continue
		}
		out = Fill(out, blocks[i].Name, blocks[i].Value)
	}
	if content != nil {
		out = Fill(out, content.Name, content.Value)
	}

	return out
}

// Fill replaces every slot called name in doc with value.
func Fill(doc []byte, name string, value []byte) []byte {
	start := startFor(name)
	end := endFor(name)

	var buf bytes.Buffer
	pos := 0
	for pos <= len(doc) {
		loc := start.FindIndex(doc[pos:])
		if loc == nil {
			break
		}
		slotStart, markerEnd := pos+loc[0], pos+loc[1]
		slotEnd := markerEnd

		if e := end.FindIndex(doc[markerEnd:]); e != nil {
			next := start.FindIndex(doc[markerEnd:])
			if next == nil || e[0] < next[0] {
				slotEnd = markerEnd + e[1]
			}
		}

		buf.Write(doc[pos:slotStart])
		buf.Write(value)
		pos = slotEnd
	}

	if pos == 0 {
		return doc
	}
	buf.Write(doc[pos:])
	return buf.Bytes()
}

// Compose builds a page from variables and content. Variables are written
// in sorted key order so the result is stable.
func Compose(vars map[string]string, content []byte) []byte {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		if k == ContentBlock || !validName(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		writeBlock(&buf, k, []byte(vars[k]))
	}
	writeBlock(&buf, ContentBlock, content)
	return buf.Bytes()
}

func writeBlock(buf *bytes.Buffer, name string, value []byte) {
	buf.WriteString("<!-- build:" + name + " -->")
	buf.Write(value)
	buf.WriteString("<!-- /build:" + name + " -->\n")
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	return strings.IndexFunc(name, func(r rune) bool {
		return !(r == '_' || r == '.' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) < 0
}
