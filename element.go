package melody

import (
	"fmt"
	"sync"

	melodyerrors "github.com/melodymodel/melody/errors"
	"github.com/melodymodel/melody/namespace"
)

// Element is one node of a loaded document tree: either a *TypedElement
// resolved through the namespace table, or a *ForeignElement preserved
// verbatim. The interface is sealed; no other implementations exist.
type Element interface {
	element()
}

// Ref records one incoming reference to an element: the element holding the
// forward relation and the storage key it holds it under. The model layer
// records refs as it resolves forward relations; backref views are computed
// from them.
type Ref struct {
	Source *TypedElement
	Key    namespace.Key
}

// TypedElement is a model element with a resolved class, a unique id, scalar
// attributes, and relation storage. Its children list holds the nested
// elements in document order; routing children into named containment
// relations is left to the model layer consuming the tree.
type TypedElement struct {
	class *namespace.Class
	id    string
	attrs map[string]string

	children []Element

	mu      sync.Mutex
	storage map[namespace.Key]*ElementList
	refs    []Ref
}

func newTypedElement(class *namespace.Class, id string, attrs map[string]string) *TypedElement {
	return &TypedElement{class: class, id: id, attrs: attrs}
}

func (e *TypedElement) element() {}

// Class returns the resolved model class.
func (e *TypedElement) Class() *namespace.Class { return e.class }

// ID returns the unique element identifier.
func (e *TypedElement) ID() string { return e.id }

// Attribute returns the value of the named scalar attribute.
func (e *TypedElement) Attribute(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// Attributes returns the element's attribute mapping. The returned map is the
// element's own storage and must not be modified by readers.
func (e *TypedElement) Attributes() map[string]string { return e.attrs }

// SetAttribute sets a scalar attribute value.
func (e *TypedElement) SetAttribute(name, value string) {
	if e.attrs == nil {
		e.attrs = make(map[string]string, 1)
	}
	e.attrs[name] = value
}

// Children returns the nested elements in document order. The returned slice
// is the element's own storage and must not be modified by readers.
func (e *TypedElement) Children() []Element { return e.children }

func (e *TypedElement) appendChild(child Element) {
	e.children = append(e.children, child)
}

// Storage returns the relation storage list for key, creating it empty on
// first access. The check-and-create step is atomic with respect to other
// goroutines touching the same element, so two racing first accesses observe
// the same list instance.
func (e *TypedElement) Storage(key namespace.Key) *ElementList {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.storage == nil {
		e.storage = make(map[namespace.Key]*ElementList, 4)
	}
	list, ok := e.storage[key]
	if !ok {
		list = &ElementList{}
		e.storage[key] = list
	}
	return list
}

// RelationStorage returns the storage list behind a containment or
// association descriptor. Backrefs own no storage; asking for it is an error
// that names the forward attributes to modify instead.
func (e *TypedElement) RelationStorage(rel *namespace.Relation) (*ElementList, error) {
	if rel.Kind() == namespace.Backref {
		return nil, melodyerrors.NewConfigurationf(
			"backref %q of %s is read-only: modify %v of %s instead",
			rel.Name(), e.class.Name(), rel.BackrefOf(), rel.Target().Class)
	}
	return e.Storage(rel.Key()), nil
}

// Backrefs computes the derived view behind a backref descriptor: every
// element that recorded a reference to this one under one of the backref's
// forward attributes, in recording order.
func (e *TypedElement) Backrefs(rel *namespace.Relation) ([]*TypedElement, error) {
	if rel.Kind() != namespace.Backref {
		return nil, melodyerrors.NewConfigurationf("%s is not a backref", rel)
	}
	forward := make(map[string]bool, len(rel.BackrefOf()))
	for _, attr := range rel.BackrefOf() {
		forward[attr] = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*TypedElement
	for _, ref := range e.refs {
		if forward[ref.Key.Name()] {
			out = append(out, ref.Source)
		}
	}
	return out, nil
}

// AddRef records an incoming reference from source under key.
func (e *TypedElement) AddRef(source *TypedElement, key namespace.Key) {
	e.mu.Lock()
	e.refs = append(e.refs, Ref{Source: source, Key: key})
	e.mu.Unlock()
}

// Refs returns a copy of the recorded incoming references.
func (e *TypedElement) Refs() []Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Ref, len(e.refs))
	copy(out, e.refs)
	return out
}

func (e *TypedElement) String() string {
	return fmt.Sprintf("<%s %s>", e.class, e.id)
}

// ForeignElement is a subtree the loader did not recognize as typed,
// preserved for round-trip output: qualified tag, optional text, attributes,
// and children in document order. Tag and attribute names are interned.
type ForeignElement struct {
	space string // reserved; element tags with a namespace prefix do not load yet
	local string
	text  string
	attrs map[string]string

	children []Element
}

func newForeignElement(space, local string, attrs map[string]string) *ForeignElement {
	return &ForeignElement{space: space, local: local, attrs: attrs}
}

func (e *ForeignElement) element() {}

// Namespace returns the tag's namespace alias, or "" for unqualified tags.
func (e *ForeignElement) Namespace() string { return e.space }

// Local returns the tag's local name.
func (e *ForeignElement) Local() string { return e.local }

// Text returns the element's accumulated character data, with surrounding
// whitespace-only runs already discarded.
func (e *ForeignElement) Text() string { return e.text }

func (e *ForeignElement) appendText(s string) {
	e.text += s
}

// Attribute returns the value of the named attribute.
func (e *ForeignElement) Attribute(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// Attributes returns the element's attribute mapping. The returned map is the
// element's own storage and must not be modified by readers.
func (e *ForeignElement) Attributes() map[string]string { return e.attrs }

// Children returns the nested elements in document order. The returned slice
// is the element's own storage and must not be modified by readers.
func (e *ForeignElement) Children() []Element { return e.children }

func (e *ForeignElement) appendChild(child Element) {
	e.children = append(e.children, child)
}

func (e *ForeignElement) String() string {
	if e.space == "" {
		return fmt.Sprintf("<%s>", e.local)
	}
	return fmt.Sprintf("<%s:%s>", e.space, e.local)
}
