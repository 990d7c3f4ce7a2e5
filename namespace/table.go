package namespace

import (
	"sort"
	"sync"

	melodyerrors "github.com/melodymodel/melody/errors"
)

// Table maps namespace aliases to live namespaces. The loader resolves type
// discriminant prefixes through a Table instead of any process-global state,
// so independent loads can run against independent metamodels.
type Table struct {
	mu      sync.RWMutex
	byAlias map[string]*Namespace
}

// NewTable builds a table over the given namespaces. It panics on duplicate
// aliases, which can only happen through a programming error in setup code.
func NewTable(namespaces ...*Namespace) *Table {
	t := &Table{byAlias: make(map[string]*Namespace, len(namespaces))}
	for _, ns := range namespaces {
		if err := t.Add(ns); err != nil {
			panic(err)
		}
	}
	return t
}

// Add registers a namespace under its alias. Adding a second namespace with
// the same alias is a configuration error.
func (t *Table) Add(ns *Namespace) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.byAlias[ns.alias]; ok && existing != ns {
		return melodyerrors.NewConfigurationf(
			"alias %q is already registered for namespace %s", ns.alias, existing.uri)
	}
	t.byAlias[ns.alias] = ns
	return nil
}

// ByAlias looks a namespace up by its alias.
func (t *Table) ByAlias(alias string) (*Namespace, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ns, ok := t.byAlias[alias]
	return ns, ok
}

// Namespaces returns all registered namespaces ordered by alias.
func (t *Table) Namespaces() []*Namespace {
	t.mu.RLock()
	all := make([]*Namespace, 0, len(t.byAlias))
	for _, ns := range t.byAlias {
		all = append(all, ns)
	}
	t.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool { return all[i].alias < all[j].alias })
	return all
}

// Viewpoints returns the owning viewpoints of all registered namespaces as a
// viewpoint → highest supported version map. Namespaces without a viewpoint
// or without a version bound are skipped.
func (t *Table) Viewpoints() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string)
	for _, ns := range t.byAlias {
		if ns.viewpoint == "" || ns.maxver == nil {
			continue
		}
		out[ns.viewpoint] = ns.maxver.String()
	}
	return out
}
