package namespace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	melodyerrors "github.com/melodymodel/melody/errors"
)

func TestClassLinearization(t *testing.T) {
	ns := mustNamespace(t, "http://example.com/core", "core")

	root := ns.NewClass("Element")
	named := ns.NewClass("NamedElement", root)
	typed := ns.NewClass("TypedElement", root)
	// Diamond: Component inherits through both branches; the first
	// occurrence of Element wins.
	component := ns.NewClass("Component", named, typed)

	want := []*Class{component, named, root, typed}
	assert.Equal(t, want, component.Ancestors())

	assert.True(t, component.DerivesFrom(component))
	assert.True(t, component.DerivesFrom(root))
	assert.True(t, component.DerivesFrom(typed))
	assert.False(t, named.DerivesFrom(typed))
}

func TestDefineContainmentExplicitKey(t *testing.T) {
	ns := mustNamespace(t, "http://example.com/core", "core")
	owner := ns.NewClass("Component")
	target := ClassRef{Namespace: ns, Class: "Component"}

	rel, err := owner.DefineContainment("components", target, WithKey("ownedComponents"))
	require.NoError(t, err)

	assert.Equal(t, Containment, rel.Kind())
	assert.Equal(t, ChildKey("ownedComponents"), rel.Key())
	assert.Equal(t, KeyChild, rel.Key().Kind())
	assert.Equal(t, "The components of this Component.", rel.Doc())

	got, ok := owner.Relation("components")
	require.True(t, ok)
	assert.Same(t, rel, got)
}

func TestDefineAssociationUsesAttributeKey(t *testing.T) {
	ns := mustNamespace(t, "http://example.com/core", "core")
	owner := ns.NewClass("Function")
	target := ClassRef{Namespace: ns, Class: "State"}

	rel, err := owner.DefineAssociation("availableInStates", target, WithKey("availableInStates"))
	require.NoError(t, err)
	assert.Equal(t, AttributeKey("availableInStates"), rel.Key())
	assert.Equal(t, KeyAttribute, rel.Key().Kind())
}

func TestRelationKeyInheritance(t *testing.T) {
	ns := mustNamespace(t, "http://example.com/core", "core")
	target := ClassRef{Namespace: ns, Class: "Component"}

	base := ns.NewClass("Component")
	_, err := base.DefineContainment("components", target,
		WithKey("ownedComponents"),
		WithFixedLength(4),
		WithMapKey("id"),
		WithMapValue("value"),
		WithDoc("Owned subcomponents."))
	require.NoError(t, err)

	t.Run("redeclaration without key inherits everything unset", func(t *testing.T) {
		derived := ns.NewClass("LogicalComponent", base)
		rel, err := derived.DefineContainment("components", target)
		require.NoError(t, err)

		assert.Equal(t, ChildKey("ownedComponents"), rel.Key())
		assert.Equal(t, 4, rel.FixedLength())
		assert.Equal(t, "id", rel.MapKey())
		assert.Equal(t, "value", rel.MapValue())
		assert.Equal(t, "Owned subcomponents.", rel.Doc())
	})

	t.Run("explicit key makes the definition standalone", func(t *testing.T) {
		derived := ns.NewClass("PhysicalComponent", base)
		rel, err := derived.DefineContainment("components", target,
			WithKey("deployedComponents"), WithFixedLength(1))
		require.NoError(t, err)

		assert.Equal(t, ChildKey("deployedComponents"), rel.Key())
		assert.True(t, rel.Single())
		// Nothing inherits past an explicit key, not even the projection.
		assert.Empty(t, rel.MapKey())
		assert.Equal(t, "The components of this PhysicalComponent.", rel.Doc())
	})

	t.Run("explicit settings survive around an inherited key", func(t *testing.T) {
		derived := ns.NewClass("BehaviorComponent", base)
		rel, err := derived.DefineContainment("components", target, WithFixedLength(2))
		require.NoError(t, err)

		assert.Equal(t, ChildKey("ownedComponents"), rel.Key())
		assert.Equal(t, 2, rel.FixedLength())
		assert.Equal(t, "id", rel.MapKey())
	})

	t.Run("nearest ancestor wins", func(t *testing.T) {
		middle := ns.NewClass("AbstractComponent", base)
		_, err := middle.DefineContainment("components", target, WithKey("middleComponents"))
		require.NoError(t, err)

		leaf := ns.NewClass("LeafComponent", middle)
		rel, err := leaf.DefineContainment("components", target)
		require.NoError(t, err)
		assert.Equal(t, ChildKey("middleComponents"), rel.Key())
	})

	t.Run("different kind shadows inheritance", func(t *testing.T) {
		middle := ns.NewClass("RefComponent", base)
		_, err := middle.DefineAssociation("components", target, WithKey("componentRefs"))
		require.NoError(t, err)

		// The nearest declaration is an association, so the containment
		// above it is out of reach.
		leaf := ns.NewClass("ShadowedComponent", middle)
		_, err = leaf.DefineContainment("components", target)
		var cfgErr *melodyerrors.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Error(), "requires a key")
	})

	t.Run("no key anywhere fails", func(t *testing.T) {
		orphan := ns.NewClass("Orphan")
		_, err := orphan.DefineContainment("components", target)
		var cfgErr *melodyerrors.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Error(), "requires a key")
	})
}

func TestResolveRelationWalksAncestors(t *testing.T) {
	ns := mustNamespace(t, "http://example.com/core", "core")
	target := ClassRef{Namespace: ns, Class: "Component"}

	base := ns.NewClass("Component")
	baseRel, err := base.DefineContainment("components", target, WithKey("ownedComponents"))
	require.NoError(t, err)

	derived := ns.NewClass("LogicalComponent", base)

	// Not declared directly.
	_, ok := derived.Relation("components")
	assert.False(t, ok)

	got, ok := derived.ResolveRelation("components")
	require.True(t, ok)
	assert.Same(t, baseRel, got)

	_, ok = derived.ResolveRelation("missing")
	assert.False(t, ok)
}

func TestDefineRelationValidation(t *testing.T) {
	ns := mustNamespace(t, "http://example.com/core", "core")
	owner := ns.NewClass("Component")
	target := ClassRef{Namespace: ns, Class: "Component"}

	t.Run("map value without map key", func(t *testing.T) {
		_, err := owner.DefineContainment("bad", target, WithKey("x"), WithMapValue("v"))
		var cfgErr *melodyerrors.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("single attr on association", func(t *testing.T) {
		_, err := owner.DefineAssociation("bad", target, WithKey("x"), WithSingleAttr("a"))
		var cfgErr *melodyerrors.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("backref without forward attributes", func(t *testing.T) {
		_, err := owner.DefineBackref("bad", target, nil)
		var cfgErr *melodyerrors.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})
}

func TestDefineBackref(t *testing.T) {
	ns := mustNamespace(t, "http://example.com/core", "core")
	owner := ns.NewClass("State")
	target := ClassRef{Namespace: ns, Class: "Function"}

	rel, err := owner.DefineBackref("functions", target, []string{"availableInStates"})
	require.NoError(t, err)

	assert.Equal(t, Backref, rel.Kind())
	assert.True(t, rel.Key().IsZero())
	assert.Equal(t, []string{"availableInStates"}, rel.BackrefOf())
}

func TestBackrefInheritance(t *testing.T) {
	ns := mustNamespace(t, "http://example.com/core", "core")
	owner := ns.NewClass("State")
	target := ClassRef{Namespace: ns, Class: "Function"}

	_, err := owner.DefineBackref("functions", target,
		[]string{"availableInStates"}, WithMapKey("id"))
	require.NoError(t, err)

	t.Run("redeclaration without attributes inherits", func(t *testing.T) {
		derived := ns.NewClass("Mode", owner)
		rel, err := derived.DefineBackref("functions", target, nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"availableInStates"}, rel.BackrefOf())
		assert.Equal(t, "id", rel.MapKey())
	})

	t.Run("explicit attributes make it standalone", func(t *testing.T) {
		derived := ns.NewClass("FinalState", owner)
		rel, err := derived.DefineBackref("functions", target, []string{"availableInFinalStates"})
		require.NoError(t, err)

		assert.Equal(t, []string{"availableInFinalStates"}, rel.BackrefOf())
		assert.Empty(t, rel.MapKey())
	})
}

func TestRelationAndKeyStrings(t *testing.T) {
	ns := mustNamespace(t, "http://example.com/core", "core")
	owner := ns.NewClass("Component")
	rel, err := owner.DefineContainment("components", ClassRef{Namespace: ns, Class: "Component"},
		WithKey("ownedComponents"))
	require.NoError(t, err)

	assert.Equal(t, "containment Component.components", rel.String())
	assert.Equal(t, "child:ownedComponents", rel.Key().String())
	assert.Equal(t, "attr:refs", AttributeKey("refs").String())
	assert.Equal(t, "core:Component", owner.String())
}
