package melody_test

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melodymodel/melody"
)

func writeModelFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpenEntrypointDerivation(t *testing.T) {
	t.Run("explicit file", func(t *testing.T) {
		dir := t.TempDir()
		path := writeModelFile(t, dir, "demo.aird", `<root/>`)
		loader, err := melody.Open(t.Context(), path)
		require.NoError(t, err)
		assert.Len(t, loader.Roots("demo.aird"), 1)
	})

	t.Run("directory with one entrypoint", func(t *testing.T) {
		dir := t.TempDir()
		writeModelFile(t, dir, "demo.aird", `<root/>`)
		writeModelFile(t, dir, "notes.txt", "unrelated")
		loader, err := melody.Open(t.Context(), dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"demo.aird"}, loader.Documents())
	})

	t.Run("directory without entrypoint", func(t *testing.T) {
		_, err := melody.Open(t.Context(), t.TempDir())
		require.Error(t, err)
		assert.ErrorContains(t, err, "no .aird entrypoint")
	})

	t.Run("directory with two entrypoints", func(t *testing.T) {
		dir := t.TempDir()
		writeModelFile(t, dir, "one.aird", `<root/>`)
		writeModelFile(t, dir, "two.aird", `<root/>`)
		_, err := melody.Open(t.Context(), dir)
		require.Error(t, err)
		assert.ErrorContains(t, err, "specify the entrypoint explicitly")
	})

	t.Run("wrong extension", func(t *testing.T) {
		dir := t.TempDir()
		path := writeModelFile(t, dir, "demo.xml", `<root/>`)
		_, err := melody.Open(t.Context(), path)
		require.Error(t, err)
		assert.ErrorContains(t, err, "must be an .aird file")
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := melody.Open(t.Context(), filepath.Join(t.TempDir(), "absent.aird"))
		require.Error(t, err)
		assert.ErrorContains(t, err, "cannot open model")
	})

	t.Run("provider entrypoint extension", func(t *testing.T) {
		fsys := fstest.MapFS{"m.xml": &fstest.MapFile{Data: []byte(`<root/>`)}}
		_, err := melody.OpenFS(t.Context(), fsys, "m.xml", melody.NewLoadOptions())
		require.Error(t, err)
		assert.ErrorContains(t, err, "must be an .aird file")
	})
}

func TestOpenSiblingDocuments(t *testing.T) {
	dir := t.TempDir()
	path := writeModelFile(t, dir, "demo.aird", `<root/>`)
	writeModelFile(t, dir, "extra.melodyfragment", `<frag/>`)

	loader, err := melody.Open(t.Context(), path)
	require.NoError(t, err)

	require.NoError(t, loader.LoadResource(t.Context(), melody.PrimaryResource, "extra.melodyfragment"))
	assert.Equal(t, []string{"demo.aird", "extra.melodyfragment"}, loader.Documents())
}
