// Package melody loads multi-file XML models of the kind produced by
// Eclipse-based systems-engineering tools into an in-memory object graph.
// Each element carries a unique id, and the graph is addressable through an
// id index, so cross-file references resolve to live objects rather than
// opaque link strings.
//
// Elements whose type discriminant resolves through a namespace registry
// become TypedElement values bound to a versioned model class; everything
// else is preserved verbatim as ForeignElement subtrees, so documents survive
// a load unharmed even when only part of their metamodel is registered.
// Registries are built programmatically with the namespace package or
// declaratively with LoadManifest.
//
// Open is the entry point for models on disk, OpenFS for models behind an
// fs.FS, and OpenWithOptions for everything else, including models read
// through a custom ResourceProvider such as a blob bucket.
package melody
