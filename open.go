package melody

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"
)

// EntrypointExtension is the file extension model entrypoints carry.
const EntrypointExtension = ".aird"

// Open loads the model whose entrypoint is at path on the local filesystem.
// path may also name a directory containing exactly one entrypoint file.
func Open(ctx context.Context, path string) (*Loader, error) {
	return OpenWithOptions(ctx, path, NewLoadOptions())
}

// OpenFS loads the model whose entrypoint is at entrypoint within fsys.
func OpenFS(ctx context.Context, fsys fs.FS, entrypoint string, opts LoadOptions) (*Loader, error) {
	return OpenWithOptions(ctx, entrypoint, opts.WithProvider(NewFSProvider(fsys)))
}

// OpenWithOptions loads a model. Without a provider option the entrypoint is
// resolved on the local filesystem; with one, inside the provider. The
// returned loader holds the parsed object trees of the entrypoint document
// and an id index over all typed elements.
func OpenWithOptions(ctx context.Context, entrypoint string, opts LoadOptions) (*Loader, error) {
	resolved := opts.withDefaults()

	provider := resolved.provider
	entry := entrypoint
	if provider == nil {
		dir, base, err := deriveEntrypoint(entrypoint)
		if err != nil {
			return nil, err
		}
		provider = NewDirProvider(dir)
		entry = base
	} else if path.Ext(entry) != EntrypointExtension {
		return nil, fmt.Errorf("cannot open %q: entrypoint must be an %s file", entry, EntrypointExtension)
	}

	l := &Loader{
		entrypoint: entrypoint,
		resources:  map[string]ResourceProvider{PrimaryResource: provider},
		namespaces: resolved.namespaces,
		interner:   resolved.interner,
		logger:     resolved.logger,
		trees:      make(map[string][]Element),
		index:      make(map[string]*TypedElement),
	}

	ctx, span := startLoadSpan(ctx, entrypoint)
	defer span.End()

	start := time.Now()
	err := l.LoadResource(ctx, PrimaryResource, entry)
	recordLoad(ctx, span, entrypoint, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("model loaded",
		"entrypoint", entrypoint,
		"elements", l.NumElements(),
		"duration", time.Since(start))
	return l, nil
}

// deriveEntrypoint splits an entrypoint path into the directory serving as
// the primary resource and the document to load from it. A directory path is
// accepted when it contains exactly one entrypoint file.
func deriveEntrypoint(p string) (dir, entry string, err error) {
	info, err := os.Stat(p)
	if err != nil {
		return "", "", fmt.Errorf("cannot open model: %w", err)
	}
	if info.IsDir() {
		matches, _ := fs.Glob(os.DirFS(p), "*"+EntrypointExtension)
		switch len(matches) {
		case 0:
			return "", "", fmt.Errorf("no %s entrypoint found in %q", EntrypointExtension, p)
		case 1:
			return p, matches[0], nil
		default:
			return "", "", fmt.Errorf("%q contains %d %s files, specify the entrypoint explicitly",
				p, len(matches), EntrypointExtension)
		}
	}
	if filepath.Ext(p) != EntrypointExtension {
		return "", "", fmt.Errorf("cannot open %q: entrypoint must be an %s file", p, EntrypointExtension)
	}
	return filepath.Dir(p), filepath.Base(p), nil
}
