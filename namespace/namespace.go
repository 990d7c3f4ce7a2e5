package namespace

import (
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	melodyerrors "github.com/melodymodel/melody/errors"
)

// VersionPlaceholder is the marker inside a versioned namespace URI pattern
// that stands in for the concrete version, as in
// "http://www.polarsys.org/capella/core/{VERSION}".
const VersionPlaceholder = "{VERSION}"

// Namespace is one schema dialect: a URI pattern, the alias used as the type
// discriminant prefix, an optional owning viewpoint, and the class table that
// maps class names to version-ranged class registrations.
//
// A namespace is either static (URI without placeholder, no maximum version)
// or versioned (exactly one placeholder, maximum version required). Mixing
// the two is rejected at construction.
type Namespace struct {
	uri       string
	alias     string
	viewpoint string
	precision int
	maxver    *Version

	mu      sync.RWMutex
	classes map[string][]classEntry
}

type classEntry struct {
	class *Class
	min   Version
	max   *Version // nil means unbounded
}

// Option configures optional namespace properties at construction.
type Option func(*Namespace)

// WithViewpoint sets the owning viewpoint feature name.
func WithViewpoint(name string) Option {
	return func(ns *Namespace) { ns.viewpoint = name }
}

// WithMaxVersion declares the highest schema version the namespace supports.
// Required for versioned namespaces, forbidden for static ones.
func WithMaxVersion(v Version) Option {
	return func(ns *Namespace) { ns.maxver = &v }
}

// WithVersionPrecision sets how many leading version components are
// significant when qualifying or matching URIs. Defaults to 1.
func WithVersionPrecision(p int) Option {
	return func(ns *Namespace) { ns.precision = p }
}

// New constructs a namespace for the given URI pattern and alias.
func New(uri, alias string, opts ...Option) (*Namespace, error) {
	ns := &Namespace{
		uri:       uri,
		alias:     alias,
		precision: 1,
		classes:   make(map[string][]classEntry),
	}
	for _, opt := range opts {
		opt(ns)
	}

	if ns.precision < 1 {
		return nil, melodyerrors.NewConfigurationf("version precision must be greater than zero, not %d", ns.precision)
	}
	switch strings.Count(uri, VersionPlaceholder) {
	case 0:
		if ns.maxver != nil {
			return nil, melodyerrors.NewConfigurationf("unversioned namespace %s cannot declare a supported maximum version", uri)
		}
	case 1:
		if ns.maxver == nil {
			return nil, melodyerrors.NewConfigurationf("versioned namespace %s must declare its supported maximum version", uri)
		}
	default:
		return nil, melodyerrors.NewConfigurationf("namespace URI %s contains more than one version placeholder", uri)
	}
	return ns, nil
}

// URI returns the namespace URI pattern as registered.
func (ns *Namespace) URI() string { return ns.uri }

// Alias returns the short identifier used as the type discriminant prefix.
func (ns *Namespace) Alias() string { return ns.alias }

// Viewpoint returns the owning viewpoint name, or "" when the namespace does
// not belong to a viewpoint.
func (ns *Namespace) Viewpoint() string { return ns.viewpoint }

// VersionPrecision returns the number of significant version components.
func (ns *Namespace) VersionPrecision() int { return ns.precision }

// Versioned reports whether the URI pattern carries a version placeholder.
func (ns *Namespace) Versioned() bool {
	return strings.Contains(ns.uri, VersionPlaceholder)
}

// MaxVersion returns the declared maximum supported version. The boolean is
// false for static namespaces.
func (ns *Namespace) MaxVersion() (Version, bool) {
	if ns.maxver == nil {
		return Version{}, false
	}
	return *ns.maxver, true
}

// MatchKind classifies the result of MatchURI.
type MatchKind int

const (
	// NoMatch means the URI does not belong to this namespace.
	NoMatch MatchKind = iota
	// MatchWithoutVersion means the URI belongs to this namespace but does
	// not pin a version: either the namespace is static, or the version
	// field was empty or the literal placeholder.
	MatchWithoutVersion
	// MatchWithVersion means the URI belongs to this namespace and carries
	// the version stored in Match.Version.
	MatchWithVersion
)

// Match is the result of matching a document URI against a namespace.
type Match struct {
	Kind    MatchKind
	Version Version
}

// MatchURI matches a concrete document URI against the namespace pattern.
//
// Static namespaces match by exact equality. Versioned namespaces match when
// the fixed text around the placeholder matches; the text in between is the
// candidate version field. A path separator in the field rejects the match
// outright, guarding against unrelated URIs that merely share the prefix. An
// empty field, or the placeholder written literally, matches without pinning
// a version. Anything else is trimmed to the namespace precision and parsed;
// a field that does not parse as a version is an error.
func (ns *Namespace) MatchURI(uri string) (Match, error) {
	if !ns.Versioned() {
		if uri == ns.uri {
			return Match{Kind: MatchWithoutVersion}, nil
		}
		return Match{}, nil
	}

	prefix, suffix, _ := strings.Cut(ns.uri, VersionPlaceholder)
	rest, ok := strings.CutPrefix(uri, prefix)
	if !ok {
		return Match{}, nil
	}
	field, ok := strings.CutSuffix(rest, suffix)
	if !ok {
		return Match{}, nil
	}
	if strings.Contains(field, "/") {
		return Match{}, nil
	}
	if field == "" || field == VersionPlaceholder {
		return Match{Kind: MatchWithoutVersion}, nil
	}

	v, err := ParseVersion(ns.TrimVersion(field))
	if err != nil {
		return Match{}, melodyerrors.NewStructuref("namespace %s: malformed version in URI %q: %v", ns.alias, uri, err)
	}
	return Match{Kind: MatchWithVersion, Version: v}, nil
}

// GetClass resolves a class name, optionally at a specific schema version.
//
// Versioned namespaces require a version; passing nil is a configuration
// error. Candidates are the registrations whose version range covers the
// request (every registration qualifies for unversioned lookups); among them
// the one with the greatest minimum version wins, so the registration
// introduced most recently takes precedence on overlap.
func (ns *Namespace) GetClass(name string, version *Version) (*Class, error) {
	if ns.maxver != nil && version == nil {
		return nil, melodyerrors.NewConfigurationf("versioned namespace, but no version requested: %s", ns.uri)
	}

	ns.mu.RLock()
	entries := ns.classes[name]
	candidates := lo.Filter(entries, func(e classEntry, _ int) bool {
		if version == nil {
			return true
		}
		if e.min.Compare(*version) > 0 {
			return false
		}
		return e.max == nil || e.max.Compare(*version) >= 0
	})
	ns.mu.RUnlock()

	if len(candidates) == 0 {
		requested := ""
		if version != nil {
			requested = version.String()
		}
		return nil, &melodyerrors.MissingClassError{
			NamespaceURI: ns.uri,
			Alias:        ns.alias,
			Version:      requested,
			Class:        name,
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].min.Compare(candidates[j].min) > 0
	})
	return candidates[0].class, nil
}

// Register adds a class registration covering [min, max]. A nil min defaults
// to the zero version; a nil max leaves the range unbounded above. The class
// must have been created on this namespace; registering another namespace's
// class is rejected.
//
// Registering the same class name repeatedly builds up the override chain
// consulted by GetClass.
func (ns *Namespace) Register(c *Class, minVersion, maxVersion *Version) error {
	if c == nil {
		return melodyerrors.NewConfigurationf("cannot register a nil class in namespace %s", ns.uri)
	}
	if c.ns != ns {
		return melodyerrors.NewConfigurationf(
			"cannot register class %s in namespace %s because it belongs to %s",
			c.name, ns.uri, c.ns.uri,
		)
	}

	entry := classEntry{class: c}
	if minVersion != nil {
		entry.min = *minVersion
	}
	if maxVersion != nil {
		v := *maxVersion
		entry.max = &v
	}

	ns.mu.Lock()
	ns.classes[c.name] = append(ns.classes[c.name], entry)
	ns.mu.Unlock()
	return nil
}

// Contains reports whether at least one registration exists for name.
func (ns *Namespace) Contains(name string) bool {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return len(ns.classes[name]) > 0
}

// ClassNames returns the registered class names in sorted order.
func (ns *Namespace) ClassNames() []string {
	ns.mu.RLock()
	names := lo.Keys(ns.classes)
	ns.mu.RUnlock()
	sort.Strings(names)
	return names
}

// TrimVersion zeroes the version components at and beyond the namespace
// precision: with precision 2, "1.2.3" becomes "1.2.0". It operates on the
// textual form and is idempotent.
func (ns *Namespace) TrimVersion(version string) string {
	parts := strings.Split(version, ".")
	for i := ns.precision; i < len(parts); i++ {
		parts[i] = "0"
	}
	return strings.Join(parts, ".")
}

// VersionedURI substitutes v, trimmed to the namespace precision, into the
// URI pattern. For static namespaces it returns the URI unchanged.
func (ns *Namespace) VersionedURI(v Version) string {
	if !ns.Versioned() {
		return ns.uri
	}
	return strings.Replace(ns.uri, VersionPlaceholder, ns.TrimVersion(v.String()), 1)
}
