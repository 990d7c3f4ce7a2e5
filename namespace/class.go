package namespace

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Class is a model class identity: a name owned by exactly one namespace,
// optional base classes, and the relation descriptors declared on it.
//
// The ancestor chain is linearized once at construction (most-derived first,
// root last) and relation key inheritance resolves against that list, so no
// dynamic dispatch is involved after setup.
type Class struct {
	ns        *Namespace
	name      string
	bases     []*Class
	ancestors []*Class // linearization including the class itself at index 0

	mu        sync.RWMutex
	relations map[string]*Relation
}

// NewClass creates a class owned by this namespace. Base classes must already
// exist; the ancestor linearization is a depth-first walk over them keeping
// the first occurrence of each class.
//
// Creating a class does not register it; call Register to add it to the
// namespace's class table for one or more version ranges.
func (ns *Namespace) NewClass(name string, bases ...*Class) *Class {
	c := &Class{
		ns:        ns,
		name:      name,
		bases:     bases,
		relations: make(map[string]*Relation),
	}
	seen := make(map[*Class]bool)
	var walk func(*Class)
	walk = func(cur *Class) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		c.ancestors = append(c.ancestors, cur)
		for _, base := range cur.bases {
			walk(base)
		}
	}
	walk(c)
	return c
}

// Namespace returns the owning namespace.
func (c *Class) Namespace() *Namespace { return c.ns }

// Name returns the class name as it appears in type discriminants.
func (c *Class) Name() string { return c.name }

// Ancestors returns the linearized ancestor chain, starting with the class
// itself and ending at the root. The returned slice must not be modified.
func (c *Class) Ancestors() []*Class { return c.ancestors }

// DerivesFrom reports whether other appears in the ancestor chain (a class
// derives from itself).
func (c *Class) DerivesFrom(other *Class) bool {
	for _, anc := range c.ancestors {
		if anc == other {
			return true
		}
	}
	return false
}

// Relation returns the descriptor declared (or inherited into a redeclaration)
// under name on this class. It does not search ancestors; use ResolveRelation
// for the inherited view.
func (c *Class) Relation(name string) (*Relation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.relations[name]
	return r, ok
}

// ResolveRelation returns the nearest declaration of name along the ancestor
// chain, starting at the class itself.
func (c *Class) ResolveRelation(name string) (*Relation, bool) {
	for _, anc := range c.ancestors {
		if r, ok := anc.Relation(name); ok {
			return r, true
		}
	}
	return nil, false
}

// RelationNames returns the names declared directly on this class, sorted.
func (c *Class) RelationNames() []string {
	c.mu.RLock()
	names := lo.Keys(c.relations)
	c.mu.RUnlock()
	sort.Strings(names)
	return names
}

/// String returns "alias:Name", the form used by type discriminants.
func (c *Class) String() string {
	return fmt.Sprintf("%s:%s", c.ns.alias, c.name)
}

func (c *Class) addRelation(r *Relation) {
	c.mu.Lock()
	c.relations[r.name] = r
	c.mu.Unlock()
}
