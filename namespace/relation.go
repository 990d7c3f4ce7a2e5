package namespace

import (
	"fmt"
	"strings"

	melodyerrors "github.com/melodymodel/melody/errors"
)

// RelationKind distinguishes the three relation flavours a class can declare.
type RelationKind int

const (
	// Containment is an ordered, owning child relation stored under an XML
	// child tag. A child is reachable through exactly one containment at a
	// time and is destroyed with its parent.
	Containment RelationKind = iota
	// Association is an ordered, non-owning reference list stored under an
	// XML attribute.
	Association
	// Backref is a derived, read-only view over one or more forward
	// attributes on the target side. It owns no storage and cannot be
	// mutated directly.
	Backref
)

func (k RelationKind) String() string {
	switch k {
	case Containment:
		return "containment"
	case Association:
		return "association"
	case Backref:
		return "backref"
	default:
		return fmt.Sprintf("RelationKind(%d)", int(k))
	}
}

// KeyKind says whether a relation key names a child tag or an attribute.
type KeyKind uint8

const (
	// KeyChild keys storage by an XML child tag name (containments).
	KeyChild KeyKind = iota + 1
	// KeyAttribute keys storage by an XML attribute name (associations).
	KeyAttribute
)

// Key is a relation's resolved storage identity. Keys are comparable and are
// used directly as the per-element storage map key. The zero Key means "no
// storage", which is only valid on backrefs.
type Key struct {
	kind KeyKind
	name string
}

// ChildKey keys a relation by an XML child tag name.
func ChildKey(name string) Key { return Key{kind: KeyChild, name: name} }

// AttributeKey keys a relation by an XML attribute name.
func AttributeKey(name string) Key { return Key{kind: KeyAttribute, name: name} }

// Kind returns the key kind; zero for the zero Key.
func (k Key) Kind() KeyKind { return k.kind }

// Name returns the child tag or attribute name.
func (k Key) Name() string { return k.name }

// IsZero reports whether the key carries no storage identity.
func (k Key) IsZero() bool { return k == Key{} }

func (k Key) String() string {
	switch k.kind {
	case KeyChild:
		return "child:" + k.name
	case KeyAttribute:
		return "attr:" + k.name
	default:
		return "<no key>"
	}
}

// ClassRef names a relation target as a namespace plus class name. The
// concrete class is resolved per document version at navigation time, so the
// reference stays valid across schema versions.
type ClassRef struct {
	Namespace *Namespace
	Class     string
}

// Relation is a relation descriptor declared on a class. Its storage key,
// cardinality hints, map projection, and documentation resolve at definition
// time: a redeclaration without an explicit key inherits them from the
// nearest ancestor declaring the same relation name. The resolved values are
// stored here and never recomputed.
type Relation struct {
	kind   RelationKind
	name   string
	owner  *Class
	key    Key
	target ClassRef

	mapKey      string
	mapValue    string
	fixedLength int
	singleAttr  string
	backrefOf   []string
	doc         string
}

// RelationOption configures optional relation properties.
type RelationOption func(*Relation)

// WithKey sets the storage key name explicitly: the child tag for
// containments, the attribute name for associations. A definition with an
// explicit key stands alone; without one, the key and any settings left
// unset are inherited from the nearest ancestor declaring the same relation
// name.
func WithKey(name string) RelationOption {
	return func(r *Relation) {
		switch r.kind {
		case Containment:
			r.key = ChildKey(name)
		case Association:
			r.key = AttributeKey(name)
		}
	}
}

// WithMapKey projects the relation as a mapping keyed by the given child
// attribute.
func WithMapKey(attr string) RelationOption {
	return func(r *Relation) { r.mapKey = attr }
}

// WithMapValue additionally projects the stored value from the given child
// attribute. Requires WithMapKey.
func WithMapValue(attr string) RelationOption {
	return func(r *Relation) { r.mapValue = attr }
}

// WithFixedLength constrains the relation to exactly n members; n == 1 is the
// single-valued shortcut.
func WithFixedLength(n int) RelationOption {
	return func(r *Relation) { r.fixedLength = n }
}

// WithSingleAttr stores the sole member inline under the given attribute
// instead of as a child element. Containments only.
func WithSingleAttr(attr string) RelationOption {
	return func(r *Relation) { r.singleAttr = attr }
}

// WithDoc attaches documentation text to the relation.
func WithDoc(doc string) RelationOption {
	return func(r *Relation) { r.doc = doc }
}

// DefineContainment declares an owning child relation on the class.
func (c *Class) DefineContainment(name string, target ClassRef, opts ...RelationOption) (*Relation, error) {
	return c.defineRelation(Containment, name, target, nil, opts)
}

// DefineAssociation declares a non-owning reference relation on the class.
func (c *Class) DefineAssociation(name string, target ClassRef, opts ...RelationOption) (*Relation, error) {
	return c.defineRelation(Association, name, target, nil, opts)
}

// DefineBackref declares a derived reverse view over the given forward
// attribute names on the target side.
func (c *Class) DefineBackref(name string, target ClassRef, attrs []string, opts ...RelationOption) (*Relation, error) {
	return c.defineRelation(Backref, name, target, attrs, opts)
}

func (c *Class) defineRelation(kind RelationKind, name string, target ClassRef, backrefOf []string, opts []RelationOption) (*Relation, error) {
	r := &Relation{
		kind:      kind,
		name:      name,
		owner:     c,
		target:    target,
		backrefOf: backrefOf,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.singleAttr != "" && kind != Containment {
		return nil, melodyerrors.NewConfigurationf(
			"%s %q of %s cannot use a single-attribute shortcut", kind, name, c.name)
	}

	// A redeclaration that supplies no storage identity of its own inherits
	// the nearest ancestor's, along with the settings it did not override. A
	// definition with an explicit key (or, for backrefs, explicit forward
	// attributes) is fresh and inherits nothing.
	if r.key.IsZero() && len(r.backrefOf) == 0 {
		r.inherit(c, name)
	}

	if kind == Backref && len(r.backrefOf) == 0 {
		return nil, melodyerrors.NewConfigurationf(
			"backref %q of %s requires at least one forward attribute, but none was given and no ancestor defines one",
			name, c.name)
	}
	if kind != Backref && r.key.IsZero() {
		return nil, melodyerrors.NewConfigurationf(
			"%s %q of %s requires a key, but none was given and no ancestor defines one",
			kind, name, c.name)
	}
	if r.mapValue != "" && r.mapKey == "" {
		return nil, melodyerrors.NewConfigurationf(
			"%s %q of %s projects a map value without a map key", kind, name, c.name)
	}
	if r.doc == "" {
		r.doc = fmt.Sprintf("The %s of this %s.", strings.ReplaceAll(name, "_", " "), c.name)
	}

	c.addRelation(r)
	return r, nil
}

func (r *Relation) inherit(c *Class, name string) {
	for _, anc := range c.ancestors[1:] {
		parent, ok := anc.Relation(name)
		if !ok {
			continue
		}
		// The nearest declaration decides: a different relation kind under
		// the same name shadows anything further up.
		if parent.kind != r.kind {
			return
		}
		r.key = parent.key
		r.backrefOf = parent.backrefOf
		if r.fixedLength == 0 {
			r.fixedLength = parent.fixedLength
		}
		if r.mapKey == "" {
			r.mapKey = parent.mapKey
			if r.mapValue == "" {
				r.mapValue = parent.mapValue
			}
		}
		if r.singleAttr == "" {
			r.singleAttr = parent.singleAttr
		}
		if r.doc == "" {
			r.doc = parent.doc
		}
		return
	}
}

// Kind returns the relation flavour.
func (r *Relation) Kind() RelationKind { return r.kind }

// Name returns the relation name as declared on its owner.
func (r *Relation) Name() string { return r.name }

// Owner returns the class the relation was declared on.
func (r *Relation) Owner() *Class { return r.owner }

// Key returns the resolved storage key; zero for backrefs.
func (r *Relation) Key() Key { return r.key }

// Target names the namespace and class the relation points at.
func (r *Relation) Target() ClassRef { return r.target }

// MapKey returns the child attribute the relation is keyed by when projected
// as a mapping, or "".
func (r *Relation) MapKey() string { return r.mapKey }

// MapValue returns the child attribute projected as the stored value, or "".
func (r *Relation) MapValue() string { return r.mapValue }

// FixedLength returns the fixed member count, or 0 when unconstrained.
func (r *Relation) FixedLength() int { return r.fixedLength }

// Single reports whether the relation is the single-valued shortcut.
func (r *Relation) Single() bool { return r.fixedLength == 1 }

// SingleAttr returns the inline storage attribute of a single-valued
// containment, or "".
func (r *Relation) SingleAttr() string { return r.singleAttr }

// BackrefOf returns the forward attribute names a backref derives from.
func (r *Relation) BackrefOf() []string { return r.backrefOf }

// Doc returns the relation documentation.
func (r *Relation) Doc() string { return r.doc }

func (r *Relation) String() string {
	return fmt.Sprintf("%s %s.%s", r.kind, r.owner.name, r.name)
}
