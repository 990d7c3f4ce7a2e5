package melody

import (
	"context"
	"encoding/xml"
	"fmt"
	"iter"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/net/html/charset"

	melodyerrors "github.com/melodymodel/melody/errors"
	"github.com/melodymodel/melody/internal/intern"
	"github.com/melodymodel/melody/namespace"
)

// Loader holds a loaded model: the object trees of every parsed document,
// an id index over all typed elements, and the resources further documents
// can be read from.
//
// A Loader is not safe for concurrent loading, but is safe for concurrent
// reads once loading completes.
type Loader struct {
	entrypoint string
	resources  map[string]ResourceProvider
	namespaces *namespace.Table
	interner   *intern.Interner
	logger     *slog.Logger

	trees   map[string][]Element
	index   map[string]*TypedElement
	corrupt bool
}

// Namespaces returns the namespace registry the loader resolves classes
// against.
func (l *Loader) Namespaces() *namespace.Table {
	return l.namespaces
}

// Entrypoint returns the path the model was opened from.
func (l *Loader) Entrypoint() string {
	return l.entrypoint
}

// Corrupt reports whether the model is known to be corrupted, for example
// because two elements claimed the same id. Once set it never clears for
// the lifetime of the loader.
func (l *Loader) Corrupt() bool {
	return l.corrupt
}

// ByID returns the typed element with the given id.
func (l *Loader) ByID(id string) (*TypedElement, error) {
	elem, ok := l.index[id]
	if !ok {
		return nil, &melodyerrors.NotFoundError{ID: id}
	}
	return elem, nil
}

// NumElements returns the number of indexed typed elements.
func (l *Loader) NumElements() int {
	return len(l.index)
}

// All iterates over every indexed typed element in id order.
func (l *Loader) All() iter.Seq[*TypedElement] {
	ids := lo.Keys(l.index)
	sort.Strings(ids)
	return func(yield func(*TypedElement) bool) {
		for _, id := range ids {
			if !yield(l.index[id]) {
				return
			}
		}
	}
}

// Documents returns the paths of all loaded documents in sorted order.
func (l *Loader) Documents() []string {
	paths := lo.Keys(l.trees)
	sort.Strings(paths)
	return paths
}

// Roots returns the root elements of one loaded document in document order.
func (l *Loader) Roots(path string) []Element {
	return append([]Element(nil), l.trees[path]...)
}

// ReferencedViewpoints lists the viewpoint extensions referenced by the
// loaded document set. Reference discovery is not implemented yet, so the
// result is always empty; the viewpoints known to the registry are available
// from Namespaces().Viewpoints.
func (l *Loader) ReferencedViewpoints() map[string]string {
	return map[string]string{}
}

// FollowLink resolves a textual element reference. Accepted forms are a bare
// id, "#id", and "ns:Class #id"; a path prefix before the "#" is ignored.
func (l *Loader) FollowLink(link string) (*TypedElement, error) {
	target := strings.TrimSpace(link)
	if i := strings.LastIndexByte(target, ' '); i >= 0 {
		target = target[i+1:]
	}
	if i := strings.LastIndexByte(target, '#'); i >= 0 {
		target = target[i+1:]
	}
	if target == "" {
		return nil, melodyerrors.NewStructuref("cannot derive an element id from link %q", link)
	}
	return l.ByID(target)
}

// FollowLinks resolves a list of references. With ignoreBroken set,
// references to unknown elements are skipped instead of failing the call.
func (l *Loader) FollowLinks(links []string, ignoreBroken bool) ([]*TypedElement, error) {
	elems := make([]*TypedElement, 0, len(links))
	for _, link := range links {
		elem, err := l.FollowLink(link)
		if err != nil {
			if ignoreBroken {
				continue
			}
			return nil, err
		}
		elems = append(elems, elem)
	}
	return elems, nil
}

// NewUUID returns an element id that is unused in the loaded model. When
// want is non-empty it is returned if free and rejected if taken; otherwise
// a fresh random id is generated.
func (l *Loader) NewUUID(want string) (string, error) {
	if want != "" {
		if _, taken := l.index[want]; taken {
			return "", melodyerrors.NewIntegrityf("requested id %s is already in use", want)
		}
		return want, nil
	}
	for {
		id := uuid.NewString()
		if _, taken := l.index[id]; !taken {
			return id, nil
		}
	}
}

// AddResource registers a provider under a resource name so documents can be
// loaded from it. The zero-byte name is reserved for the primary resource.
func (l *Loader) AddResource(name string, provider ResourceProvider) error {
	if name == PrimaryResource {
		return melodyerrors.NewConfigurationf("resource name %q is reserved for the primary resource", name)
	}
	if provider == nil {
		return melodyerrors.NewConfigurationf("resource %q needs a provider", name)
	}
	if _, exists := l.resources[name]; exists {
		return melodyerrors.NewConfigurationf("resource %q is already registered", name)
	}
	l.resources[name] = provider
	return nil
}

// Resources returns the registered resource names besides the primary one.
func (l *Loader) Resources() []string {
	names := lo.Filter(lo.Keys(l.resources), func(name string, _ int) bool {
		return name != PrimaryResource
	})
	sort.Strings(names)
	return names
}

// LoadResource parses one document from a registered resource and merges its
// elements into the loader.
func (l *Loader) LoadResource(ctx context.Context, resource, path string) (err error) {
	provider, ok := l.resources[resource]
	if !ok {
		return &melodyerrors.MissingResourceError{Name: resource}
	}
	rc, err := provider.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("cannot open %q in %s: %w", path, resourceLabel(resource), err)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("cannot close %q: %w", path, closeErr)
		}
	}()

	dec := xml.NewDecoder(&guardedReader{r: rc, path: path})
	dec.CharsetReader = charset.NewReaderLabel

	p := &parser{
		ctx:      ctx,
		loader:   l,
		path:     path,
		interner: l.interner,
		decoder:  dec,
	}
	if err := p.run(); err != nil {
		return fmt.Errorf("cannot load %q: %w", path, err)
	}

	l.trees[path] = p.roots
	recordElementsLoaded(ctx, l.entrypoint, p.elements)
	return nil
}

func resourceLabel(resource string) string {
	if resource == PrimaryResource {
		return "the primary resource"
	}
	return fmt.Sprintf("resource %q", resource)
}
