package melody_test

import (
	"testing"
	"testing/fstest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melodymodel/melody"
	melodyerrors "github.com/melodymodel/melody/errors"
)

func openFixtureModel(t *testing.T) *melody.Loader {
	t.Helper()
	doc := `<root>
  <e xsi:type="vis:Diagram" uuid="d-1" name="Overview"/>
  <e xsi:type="vis:Diagram" uuid="d-2" name="Detail"/>
</root>`
	loader, err := openDocs(t, map[string]string{"model.aird": doc},
		melody.NewLoadOptions().WithNamespaces(testTable(t)))
	require.NoError(t, err)
	return loader
}

func TestLoaderQueries(t *testing.T) {
	loader := openFixtureModel(t)

	assert.Equal(t, "model.aird", loader.Entrypoint())
	assert.Equal(t, 2, loader.NumElements())
	assert.Equal(t, []string{"model.aird"}, loader.Documents())
	assert.Empty(t, loader.ReferencedViewpoints())

	var ids []string
	for elem := range loader.All() {
		ids = append(ids, elem.ID())
	}
	assert.Equal(t, []string{"d-1", "d-2"}, ids)

	_, err := loader.ByID("missing")
	require.Error(t, err)
	var notFound *melodyerrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.ID)
}

func TestFollowLink(t *testing.T) {
	loader := openFixtureModel(t)

	tests := []struct {
		name string
		link string
	}{
		{name: "bare id", link: "d-1"},
		{name: "fragment id", link: "#d-1"},
		{name: "class and id", link: "vis:Diagram #d-1"},
		{name: "path and id", link: "model.aird#d-1"},
		{name: "surrounding whitespace", link: "  #d-1  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elem, err := loader.FollowLink(tt.link)
			require.NoError(t, err)
			assert.Equal(t, "d-1", elem.ID())
		})
	}

	t.Run("broken link", func(t *testing.T) {
		_, err := loader.FollowLink("#missing")
		var notFound *melodyerrors.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("empty target", func(t *testing.T) {
		_, err := loader.FollowLink("#")
		require.Error(t, err)
		assert.ErrorContains(t, err, "cannot derive an element id")
	})
}

func TestFollowLinks(t *testing.T) {
	loader := openFixtureModel(t)

	elems, err := loader.FollowLinks([]string{"#d-1", "#d-2"}, false)
	require.NoError(t, err)
	require.Len(t, elems, 2)
	assert.Equal(t, "d-1", elems[0].ID())
	assert.Equal(t, "d-2", elems[1].ID())

	elems, err = loader.FollowLinks([]string{"#d-1", "#missing", "#d-2"}, true)
	require.NoError(t, err)
	require.Len(t, elems, 2, "broken links are skipped when tolerated")

	_, err = loader.FollowLinks([]string{"#d-1", "#missing"}, false)
	require.Error(t, err)
}

func TestNewUUID(t *testing.T) {
	loader := openFixtureModel(t)

	id, err := loader.NewUUID("")
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "generated ids are valid UUIDs")

	id, err = loader.NewUUID("fresh-id")
	require.NoError(t, err)
	assert.Equal(t, "fresh-id", id)

	_, err = loader.NewUUID("d-1")
	require.Error(t, err)
	var integrityErr *melodyerrors.IntegrityError
	assert.ErrorAs(t, err, &integrityErr)
}

func TestLoaderResources(t *testing.T) {
	loader := openFixtureModel(t)

	fragments := melody.NewFSProvider(fstest.MapFS{
		"frag.airdfragment": &fstest.MapFile{
			Data: []byte(`<frag><e xsi:type="vis:Diagram" uuid="f-1"/></frag>`),
		},
	})

	t.Run("reserved name", func(t *testing.T) {
		err := loader.AddResource("\x00", fragments)
		require.Error(t, err)
		assert.ErrorContains(t, err, "reserved")
	})

	t.Run("nil provider", func(t *testing.T) {
		err := loader.AddResource("fragments", nil)
		require.Error(t, err)
	})

	require.NoError(t, loader.AddResource("fragments", fragments))

	t.Run("duplicate name", func(t *testing.T) {
		err := loader.AddResource("fragments", fragments)
		require.Error(t, err)
		assert.ErrorContains(t, err, "already registered")
	})

	assert.Equal(t, []string{"fragments"}, loader.Resources(),
		"the primary resource is not listed")

	t.Run("unknown resource", func(t *testing.T) {
		err := loader.LoadResource(t.Context(), "archive", "frag.airdfragment")
		var missingErr *melodyerrors.MissingResourceError
		require.ErrorAs(t, err, &missingErr)
		assert.Equal(t, "archive", missingErr.Name)
	})

	require.NoError(t, loader.LoadResource(t.Context(), "fragments", "frag.airdfragment"))
	assert.Equal(t, []string{"frag.airdfragment", "model.aird"}, loader.Documents())
	require.Len(t, loader.Roots("frag.airdfragment"), 1)

	elem, err := loader.ByID("f-1")
	require.NoError(t, err)
	assert.Equal(t, "vis:Diagram", elem.Class().String())
	assert.Equal(t, 3, loader.NumElements(), "fragment elements join the shared index")

	t.Run("missing file in resource", func(t *testing.T) {
		err := loader.LoadResource(t.Context(), "fragments", "other.airdfragment")
		require.Error(t, err)
		assert.ErrorContains(t, err, "cannot open")
	})
}
