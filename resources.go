package melody

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	melodyerrors "github.com/melodymodel/melody/errors"
)

// PrimaryResource is the reserved resource-table name of the resource the
// entrypoint is read from. The name cannot appear in a document, so it never
// collides with fragment resource names.
const PrimaryResource = "\x00"

// ResourceProvider turns a path into a readable byte stream for one logical
// resource. Reads must honor the io.Reader contract, in particular they must
// never return more bytes than the buffer holds; the loader treats a
// violation as a hard integrity fault and aborts the load.
type ResourceProvider interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// FSProvider is a ResourceProvider over an fs.FS with strict path validation:
// paths are slash separated, relative, and must not escape the filesystem
// root.
type FSProvider struct {
	fsys fs.FS
}

// NewFSProvider creates a provider backed by the given filesystem.
func NewFSProvider(fsys fs.FS) *FSProvider {
	return &FSProvider{fsys: fsys}
}

// NewDirProvider creates a provider rooted at the given directory.
func NewDirProvider(dir string) *FSProvider {
	return NewFSProvider(os.DirFS(dir))
}

// Open implements ResourceProvider.
func (p *FSProvider) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if p == nil || p.fsys == nil {
		return nil, fmt.Errorf("no filesystem configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	canonical, err := canonicalResourcePath(name)
	if err != nil {
		return nil, err
	}
	return p.fsys.Open(canonical)
}

func canonicalResourcePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("resource path is empty")
	}
	if strings.Contains(name, "\\") {
		return "", fmt.Errorf("resource path contains backslash: %q", name)
	}
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("resource path must be relative: %q", name)
	}
	canonical := path.Clean(name)
	if canonical == "." {
		return "", fmt.Errorf("resource path is empty")
	}
	if canonical == ".." || strings.HasPrefix(canonical, "../") {
		return "", fmt.Errorf("resource path escapes root: %q", name)
	}
	return canonical, nil
}

// guardedReader wraps a provider stream and enforces the read contract: a
// reader returning more bytes than requested aborts the load instead of
// corrupting the decoder state.
type guardedReader struct {
	r    io.Reader
	path string
}

func (g *guardedReader) Read(p []byte) (int, error) {
	n, err := g.r.Read(p)
	if n > len(p) {
		return 0, melodyerrors.NewIntegrityf(
			"misbehaving resource provider for %q: requested %d bytes, read returned %d bytes",
			g.path, len(p), n)
	}
	return n, err
}
