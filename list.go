package melody

import (
	"fmt"
	"iter"
)

// ElementList is the ordered container behind containment and association
// storage. Membership is identity based: two distinct elements with equal
// content are different members, and lookups compare pointers, never values.
//
// An ElementList is not synchronized; the lazy creation of a list on its
// owning element is the only guarded step (see TypedElement.Storage). Callers
// mutating one list from several goroutines must coordinate externally.
type ElementList struct {
	items []*TypedElement
}

// NewElementList builds a list over the given elements.
func NewElementList(items ...*TypedElement) *ElementList {
	return &ElementList{items: append([]*TypedElement(nil), items...)}
}

// Len returns the number of members.
func (l *ElementList) Len() int { return len(l.items) }

// At returns the member at index i.
func (l *ElementList) At(i int) *TypedElement { return l.items[i] }

// Append adds elements at the end of the list.
func (l *ElementList) Append(items ...*TypedElement) {
	l.items = append(l.items, items...)
}

// Insert places an element at index i, shifting later members.
func (l *ElementList) Insert(i int, item *TypedElement) {
	l.items = append(l.items, nil)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = item
}

// IndexOf returns the index of the given element instance.
func (l *ElementList) IndexOf(item *TypedElement) (int, bool) {
	for i, candidate := range l.items {
		if candidate == item {
			return i, true
		}
	}
	return 0, false
}

// Contains reports whether the given element instance is a member.
func (l *ElementList) Contains(item *TypedElement) bool {
	_, ok := l.IndexOf(item)
	return ok
}

// Remove deletes the given element instance, reporting whether it was
// present.
func (l *ElementList) Remove(item *TypedElement) bool {
	i, ok := l.IndexOf(item)
	if !ok {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return true
}

// All iterates the members in order.
func (l *ElementList) All() iter.Seq[*TypedElement] {
	return func(yield func(*TypedElement) bool) {
		for _, item := range l.items {
			if !yield(item) {
				return
			}
		}
	}
}

// Elements returns a copy of the member slice.
func (l *ElementList) Elements() []*TypedElement {
	out := make([]*TypedElement, len(l.items))
	copy(out, l.items)
	return out
}

func (l *ElementList) String() string {
	return fmt.Sprintf("ElementList(len=%d)", len(l.items))
}
