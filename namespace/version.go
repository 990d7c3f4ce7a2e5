// Package namespace implements the versioned metamodel registry consulted by
// the melody loader: namespaces identified by a URI pattern and a short
// alias, model classes registered per version range, and the relation
// descriptors (containment, association, backref) that classes declare.
//
// Registries are populated once during application setup and are read-mostly
// afterwards. The loader only ever looks namespaces up through a Table; it
// never creates them.
package namespace

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed dotted version number, such as "1.12.3". Comparison is
// structural over the numeric components; missing trailing components compare
// as zero, so "1.2" and "1.2.0" are equal. The zero value is version 0.
type Version struct {
	raw      string
	segments []uint64
}

// ParseVersion parses a dotted numeric version string.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, fmt.Errorf("invalid version %q: empty string", s)
	}
	parts := strings.Split(s, ".")
	segments := make([]uint64, len(parts))
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: component %q is not a non-negative integer", s, part)
		}
		segments[i] = n
	}
	return Version{raw: s, segments: segments}, nil
}

// MustParseVersion is like ParseVersion but panics on invalid input. Intended
// for static version literals in registry setup code.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare returns -1, 0, or +1 when v sorts before, equal to, or after o.
func (v Version) Compare(o Version) int {
	n := len(v.segments)
	if len(o.segments) > n {
		n = len(o.segments)
	}
	for i := range n {
		a, b := v.segment(i), o.segment(i)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

// Equal reports whether v and o denote the same version.
func (v Version) Equal(o Version) bool {
	return v.Compare(o) == 0
}

func (v Version) segment(i int) uint64 {
	if i < len(v.segments) {
		return v.segments[i]
	}
	return 0
}

// String returns the version as originally written; the zero value prints as
// "0".
func (v Version) String() string {
	if v.raw == "" {
		return "0"
	}
	return v.raw
}
