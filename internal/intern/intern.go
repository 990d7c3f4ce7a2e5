// Package intern deduplicates repeated strings encountered while building
// foreign element subtrees, so documents with many occurrences of the same
// generic tag or attribute name share one backing string per distinct value.
package intern

const recentSize = 8
const defaultMaxEntries = 4096

// Interner canonicalizes strings. A small ring of recently interned values
// short-circuits the common case of the same tag repeating many times in a
// row; the backing table is compacted down to the hottest entries when it
// outgrows its limit, so the interner never holds more than maxEntries
// canonical strings at a time.
//
// An Interner is not safe for concurrent use; each load owns its own.
type Interner struct {
	table       map[string]string
	recent      [recentSize]string
	recentCount int
	recentIndex int
	maxEntries  int
}

// New returns an interner with the default entry limit.
func New() *Interner {
	return NewWithLimit(defaultMaxEntries)
}

// NewWithLimit returns an interner holding at most maxEntries canonical
// strings; maxEntries <= 0 disables the limit.
func NewWithLimit(maxEntries int) *Interner {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &Interner{
		table:      make(map[string]string, 32),
		maxEntries: maxEntries,
	}
}

// Intern returns the canonical instance of s.
func (i *Interner) Intern(s string) string {
	if s == "" {
		return ""
	}
	for idx := 0; idx < i.recentCount; idx++ {
		if i.recent[idx] == s {
			return i.recent[idx]
		}
	}
	if canonical, ok := i.table[s]; ok {
		i.rememberRecent(canonical)
		return canonical
	}
	i.table[s] = s
	i.rememberRecent(s)
	if i.maxEntries > 0 && len(i.table) > i.maxEntries {
		i.compact()
	}
	return s
}

// Len returns the number of canonical strings currently held.
func (i *Interner) Len() int {
	return len(i.table)
}

// Reset drops all interned strings while keeping the configured limit.
func (i *Interner) Reset() {
	clear(i.table)
	i.recentCount = 0
	i.recentIndex = 0
}

func (i *Interner) rememberRecent(s string) {
	if i.recentCount < recentSize {
		i.recent[i.recentCount] = s
		i.recentCount++
		return
	}
	i.recent[i.recentIndex] = s
	i.recentIndex++
	if i.recentIndex >= recentSize {
		i.recentIndex = 0
	}
}

func (i *Interner) compact() {
	limit := i.recentCount
	if i.maxEntries > 0 && i.maxEntries < limit {
		limit = i.maxEntries
	}
	next := make(map[string]string, limit)
	// walk the ring from most-recent to oldest to keep the hottest entries.
	for offset := 0; offset < limit; offset++ {
		var idx int
		if i.recentCount < recentSize {
			idx = i.recentCount - 1 - offset
		} else {
			idx = i.recentIndex - 1 - offset
			if idx < 0 {
				idx += i.recentCount
			}
		}
		s := i.recent[idx]
		next[s] = s
	}
	i.table = next
}
