package melody

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	melodyerrors "github.com/melodymodel/melody/errors"
	"github.com/melodymodel/melody/internal/intern"
	"github.com/melodymodel/melody/namespace"
)

// XSINamespace is the XML Schema instance namespace. An attribute whose
// prefix resolves to it is the type discriminant naming an element's class.
const XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"

// xsiPrefix is conventionally bound to XSINamespace even when a document
// never declares it.
const xsiPrefix = "xsi"

// IDAttribute is the attribute that carries a typed element's identifier.
const IDAttribute = "uuid"

// parseFrame is one in-progress element on the parser stack: the tag as
// written (for end-tag matching), the namespace prefix bindings declared on
// it, and the element being built.
type parseFrame struct {
	rawName  xml.Name
	bindings map[string]string
	elem     Element
}

// parser drives one resource's event stream. Elements are classified as
// typed or foreign while the stream is walked exactly once; finished elements
// are linked into their parent frame in document order, and finished roots
// are collected for the loader.
type parser struct {
	ctx      context.Context
	loader   *Loader
	path     string
	interner *intern.Interner
	decoder  *xml.Decoder

	stack    []*parseFrame
	roots    []Element
	elements int64
}

func (p *parser) run() error {
	for {
		tok, err := p.decoder.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			var integrityErr *melodyerrors.IntegrityError
			if errors.As(err, &integrityErr) {
				return err
			}
			return fmt.Errorf("could not parse XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			frame, err := p.buildFrame(t)
			if err != nil {
				return err
			}
			p.stack = append(p.stack, frame)
		case xml.EndElement:
			if err := p.handleEnd(t); err != nil {
				return err
			}
		case xml.CharData:
			if err := p.handleText(t); err != nil {
				return err
			}
		default:
			// Comments, processing instructions, directives.
		}
	}

	if len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		return melodyerrors.NewStructuref(
			"unexpected end of document: <%s> is never closed", rawTagName(top.rawName))
	}
	return nil
}

func (p *parser) handleEnd(end xml.EndElement) error {
	if len(p.stack) == 0 {
		return melodyerrors.NewStructuref("unexpected closing tag </%s>", rawTagName(end.Name))
	}
	frame := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	if frame.rawName != end.Name {
		return melodyerrors.NewStructuref(
			"closing tag </%s> does not match <%s>", rawTagName(end.Name), rawTagName(frame.rawName))
	}

	if len(p.stack) == 0 {
		p.roots = append(p.roots, frame.elem)
		return nil
	}
	switch parent := p.stack[len(p.stack)-1].elem.(type) {
	case *TypedElement:
		parent.appendChild(frame.elem)
	case *ForeignElement:
		parent.appendChild(frame.elem)
	}
	return nil
}

func (p *parser) handleText(text xml.CharData) error {
	if len(bytes.TrimSpace(text)) == 0 {
		return nil
	}
	if len(p.stack) == 0 {
		return melodyerrors.NewStructuref("orphaned text at document root")
	}
	switch elem := p.stack[len(p.stack)-1].elem.(type) {
	case *TypedElement:
		return melodyerrors.NewStructuref("unhandled text directly within element %s", elem.id)
	case *ForeignElement:
		elem.appendText(string(text))
	}
	return nil
}

// buildFrame classifies one start tag. Namespace declarations are collected
// first because they bind the whole element regardless of attribute order;
// the remaining attributes are then classified in a single pass.
func (p *parser) buildFrame(start xml.StartElement) (*parseFrame, error) {
	var bindings map[string]string
	for _, attr := range start.Attr {
		prefix, ok := xmlnsDeclaration(attr.Name)
		if !ok {
			continue
		}
		if bindings == nil {
			bindings = make(map[string]string, 2)
		}
		bindings[prefix] = attr.Value
	}

	var typeRef string
	sawDiscriminant := false
	plain := make([]xml.Attr, 0, len(start.Attr))
	for _, attr := range start.Attr {
		space, local := attr.Name.Space, attr.Name.Local
		if _, ok := xmlnsDeclaration(attr.Name); ok {
			continue
		}
		switch {
		case space == "xml":
			return nil, melodyerrors.NewUnsupportedf("xml: attributes are not implemented yet (xml:%s)", local)
		case space != "":
			if local == "type" && p.resolvePrefix(space, bindings) == XSINamespace {
				if sawDiscriminant {
					return nil, melodyerrors.NewStructuref(
						"element <%s> declares more than one type discriminant", rawTagName(start.Name))
				}
				sawDiscriminant = true
				typeRef = attr.Value
				continue
			}
			return nil, melodyerrors.NewUnsupportedf(
				"namespaced attributes other than the type discriminant are not implemented yet (%s:%s)", space, local)
		default:
			plain = append(plain, attr)
		}
	}

	frame := &parseFrame{rawName: start.Name, bindings: bindings}
	if sawDiscriminant {
		attrs := make(map[string]string, len(plain))
		for _, attr := range plain {
			attrs[attr.Name.Local] = attr.Value
		}
		elem, err := p.buildTyped(typeRef, attrs, bindings)
		if err != nil {
			return nil, err
		}
		frame.elem = elem
		return frame, nil
	}

	if start.Name.Space != "" {
		return nil, melodyerrors.NewUnsupportedf(
			"namespaced element tags are not implemented yet (<%s>)", rawTagName(start.Name))
	}
	attrs := make(map[string]string, len(plain))
	for _, attr := range plain {
		attrs[p.interner.Intern(attr.Name.Local)] = attr.Value
	}
	frame.elem = newForeignElement("", p.interner.Intern(start.Name.Local), attrs)
	return frame, nil
}

func (p *parser) buildTyped(typeRef string, attrs map[string]string, bindings map[string]string) (*TypedElement, error) {
	alias, clsname, found := strings.Cut(typeRef, ":")
	if !found {
		return nil, melodyerrors.NewUnsupportedf("type discriminant %q is not namespaced", typeRef)
	}

	ns, ok := p.loader.namespaces.ByAlias(alias)
	if !ok {
		return nil, &melodyerrors.UnknownNamespaceError{Alias: alias}
	}

	version, err := p.documentVersion(ns, alias, bindings)
	if err != nil {
		return nil, err
	}
	cls, err := ns.GetClass(clsname, version)
	if err != nil {
		return nil, err
	}

	id := attrs[IDAttribute]
	if id == "" {
		return nil, melodyerrors.NewStructuref("element of class %s has no %q attribute", cls, IDAttribute)
	}

	elem := newTypedElement(cls, id, attrs)
	if prev, exists := p.loader.index[id]; exists {
		p.loader.logger.Warn("duplicated element id, keeping the later element",
			"id", id, "class", cls.String(), "previous", prev.class.String(), "resource", p.path)
		recordDuplicateID(p.ctx, p.loader.entrypoint)
		p.loader.corrupt = true
	}
	p.loader.index[id] = elem
	p.elements++
	return elem, nil
}

// documentVersion derives the schema version requested by the document: when
// the discriminant's alias is bound to a URI in scope and that URI matches
// the namespace pattern with a version, that version is requested. Otherwise
// the lookup is unversioned.
func (p *parser) documentVersion(ns *namespace.Namespace, alias string, bindings map[string]string) (*namespace.Version, error) {
	uri := p.resolvePrefix(alias, bindings)
	if uri == "" {
		return nil, nil
	}
	m, err := ns.MatchURI(uri)
	if err != nil {
		return nil, err
	}
	if m.Kind != namespace.MatchWithVersion {
		return nil, nil
	}
	v := m.Version
	return &v, nil
}

// resolvePrefix resolves a namespace prefix against the current frame's
// declarations first, then the enclosing frames innermost first. The xsi
// prefix falls back to the schema-instance namespace when undeclared.
func (p *parser) resolvePrefix(prefix string, local map[string]string) string {
	if uri, ok := local[prefix]; ok {
		return uri
	}
	for i := len(p.stack) - 1; i >= 0; i-- {
		if uri, ok := p.stack[i].bindings[prefix]; ok {
			return uri
		}
	}
	if prefix == xsiPrefix {
		return XSINamespace
	}
	return ""
}

// xmlnsDeclaration reports whether an attribute declares a namespace prefix,
// returning the declared prefix ("" for the default namespace).
func xmlnsDeclaration(name xml.Name) (string, bool) {
	if name.Space == "" && name.Local == "xmlns" {
		return "", true
	}
	if name.Space == "xmlns" {
		return name.Local, true
	}
	return "", false
}

// rawTagName renders a raw token name the way it appeared in the document.
func rawTagName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

// IsParseAbort reports whether err aborted a load for a document-shape
// reason rather than an I/O failure.
func IsParseAbort(err error) bool {
	var structErr *melodyerrors.StructureError
	var unsupErr *melodyerrors.UnsupportedFeatureError
	return errors.As(err, &structErr) || errors.As(err, &unsupErr)
}
