package melody

import (
	"log/slog"

	"github.com/melodymodel/melody/internal/intern"
	"github.com/melodymodel/melody/namespace"
)

type intOption struct {
	value int
	set   bool
}

// LoadOptions configures how a model is opened.
type LoadOptions struct {
	namespaces       *namespace.Table
	logger           *slog.Logger
	provider         ResourceProvider
	internMaxEntries intOption
}

// NewLoadOptions returns a default, valid load options value.
func NewLoadOptions() LoadOptions {
	return LoadOptions{}
}

// WithNamespaces sets the registry element classes are resolved against.
// The default is an empty registry, which only loads documents without
// typed elements.
func (o LoadOptions) WithNamespaces(table *namespace.Table) LoadOptions {
	o.namespaces = table
	return o
}

// WithLogger sets the logger load diagnostics are reported to. The default
// is slog.Default.
func (o LoadOptions) WithLogger(logger *slog.Logger) LoadOptions {
	o.logger = logger
	return o
}

// WithProvider sets the provider the primary resource is read from. When
// set, the entrypoint path is resolved inside the provider instead of the
// process filesystem.
func (o LoadOptions) WithProvider(provider ResourceProvider) LoadOptions {
	o.provider = provider
	return o
}

// WithInternMaxEntries caps the tag and attribute name interning table
// (0 uses the default, negative disables the cap).
func (o LoadOptions) WithInternMaxEntries(value int) LoadOptions {
	o.internMaxEntries = intOption{value: value, set: true}
	return o
}

type resolvedLoadOptions struct {
	namespaces *namespace.Table
	logger     *slog.Logger
	provider   ResourceProvider
	interner   *intern.Interner
}

func (o LoadOptions) withDefaults() resolvedLoadOptions {
	resolved := resolvedLoadOptions{
		namespaces: o.namespaces,
		logger:     o.logger,
		provider:   o.provider,
	}
	if resolved.namespaces == nil {
		resolved.namespaces = namespace.NewTable()
	}
	if resolved.logger == nil {
		resolved.logger = slog.Default()
	}
	if o.internMaxEntries.set && o.internMaxEntries.value != 0 {
		resolved.interner = intern.NewWithLimit(o.internMaxEntries.value)
	} else {
		resolved.interner = intern.New()
	}
	return resolved
}
