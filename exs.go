package melody

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	melodyerrors "github.com/melodymodel/melody/errors"
)

// referenceWidth is how many columns an open tag may use before its
// attributes are wrapped onto continuation lines.
const referenceWidth = 80

// alwaysExpanded lists tags that are written as an open/close pair even when
// empty, because Eclipse-based tools rewrite them that way.
var alwaysExpanded = map[string]bool{
	"bodies":            true,
	"semanticResources": true,
}

// WriteSemantic serializes a foreign element tree the way Eclipse-based
// modelling tools write their semantic files: two-space indentation,
// self-closing empty tags outside a small always-expanded set, and attribute
// wrapping past the reference width. Attributes are emitted in sorted order.
//
// Typed elements cannot be serialized yet and are rejected wherever they
// appear in the tree.
func WriteSemantic(w io.Writer, root Element) error {
	felem, ok := root.(*ForeignElement)
	if !ok {
		return melodyerrors.NewUnsupportedf("typed elements cannot be serialized yet (%s)", root)
	}
	bw := bufio.NewWriter(w)
	bw.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	if err := writeElement(bw, felem, 0); err != nil {
		return err
	}
	return bw.Flush()
}

func writeElement(bw *bufio.Writer, elem *ForeignElement, depth int) error {
	indent := strings.Repeat("  ", depth)
	bw.WriteString(indent)
	bw.WriteByte('<')
	bw.WriteString(elem.Local())
	writeAttributes(bw, elem, depth)

	text := elem.Text()
	children := elem.Children()
	switch {
	case text == "" && len(children) == 0:
		if alwaysExpanded[elem.Local()] {
			bw.WriteString("></" + elem.Local() + ">\n")
		} else {
			bw.WriteString("/>\n")
		}
	case len(children) == 0:
		bw.WriteByte('>')
		writeEscapedText(bw, text)
		bw.WriteString("</" + elem.Local() + ">\n")
	default:
		bw.WriteString(">\n")
		if text != "" {
			bw.WriteString(strings.Repeat("  ", depth+1))
			writeEscapedText(bw, text)
			bw.WriteByte('\n')
		}
		for _, child := range children {
			felem, ok := child.(*ForeignElement)
			if !ok {
				return melodyerrors.NewUnsupportedf("typed elements cannot be serialized yet (%s)", child)
			}
			if err := writeElement(bw, felem, depth+1); err != nil {
				return err
			}
		}
		bw.WriteString(indent + "</" + elem.Local() + ">\n")
	}
	return nil
}

// writeAttributes emits the attributes in sorted order, one per continuation
// line when the single-line form would run past the reference width.
func writeAttributes(bw *bufio.Writer, elem *ForeignElement, depth int) {
	attrs := elem.Attributes()
	if len(attrs) == 0 {
		return
	}
	names := make([]string, 0, len(attrs))
	width := depth*2 + len(elem.Local()) + 2
	for name := range attrs {
		names = append(names, name)
		width += len(name) + len(attrs[name]) + 4
	}
	sort.Strings(names)

	wrap := width > referenceWidth && len(names) > 1
	continuation := strings.Repeat("  ", depth) + strings.Repeat(" ", len(elem.Local())+2)
	for i, name := range names {
		if wrap && i > 0 {
			bw.WriteString("\n" + continuation)
		} else {
			bw.WriteByte(' ')
		}
		bw.WriteString(name)
		bw.WriteString(`="`)
		writeEscapedAttr(bw, attrs[name])
		bw.WriteByte('"')
	}
}

func writeEscapedAttr(bw *bufio.Writer, s string) {
	for _, r := range s {
		switch r {
		case '&':
			bw.WriteString("&amp;")
		case '<':
			bw.WriteString("&lt;")
		case '"':
			bw.WriteString("&quot;")
		case '\t':
			bw.WriteString("&#x9;")
		case '\n':
			bw.WriteString("&#xA;")
		case '\r':
			bw.WriteString("&#xD;")
		default:
			if r < 0x20 {
				fmt.Fprintf(bw, "&#x%X;", r)
			} else {
				bw.WriteRune(r)
			}
		}
	}
}

func writeEscapedText(bw *bufio.Writer, s string) {
	for _, r := range s {
		switch r {
		case '&':
			bw.WriteString("&amp;")
		case '<':
			bw.WriteString("&lt;")
		default:
			bw.WriteRune(r)
		}
	}
}
