package melody

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	melodyerrors "github.com/melodymodel/melody/errors"
	"github.com/melodymodel/melody/namespace"
)

// A manifest describes a metamodel declaratively: its namespaces, their
// classes with version ranges, and the relations declared on each class.
// Loading one produces the namespace registry a model is opened against.
type manifest struct {
	Namespaces []manifestNamespace `yaml:"namespaces"`
}

type manifestNamespace struct {
	URI              string          `yaml:"uri"`
	Alias            string          `yaml:"alias"`
	Viewpoint        string          `yaml:"viewpoint"`
	MaxVersion       string          `yaml:"max-version"`
	VersionPrecision int             `yaml:"version-precision"`
	Classes          []manifestClass `yaml:"classes"`
}

type manifestClass struct {
	Name      string             `yaml:"name"`
	Bases     []string           `yaml:"bases"`
	Since     string             `yaml:"since"`
	Until     string             `yaml:"until"`
	Relations []manifestRelation `yaml:"relations"`
}

type manifestRelation struct {
	Kind        string   `yaml:"kind"`
	Name        string   `yaml:"name"`
	Target      string   `yaml:"target"`
	Key         string   `yaml:"key"`
	Attributes  []string `yaml:"attributes"`
	FixedLength int      `yaml:"fixed-length"`
	SingleAttr  string   `yaml:"single-attr"`
	MapKey      string   `yaml:"map-key"`
	MapValue    string   `yaml:"map-value"`
	Doc         string   `yaml:"doc"`
}

// LoadManifestFile reads a metamodel manifest from a YAML file.
func LoadManifestFile(path string) (table *namespace.Table, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open manifest: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("cannot close manifest %q: %w", path, closeErr)
		}
	}()
	return LoadManifest(f)
}

// LoadManifest reads a metamodel manifest and builds the namespace registry
// it describes. Unknown manifest fields are rejected.
func LoadManifest(r io.Reader) (*namespace.Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, melodyerrors.NewConfigurationf("manifest declares no namespaces")
		}
		return nil, fmt.Errorf("cannot parse manifest: %w", err)
	}
	return m.build()
}

type builtClass struct {
	ns    *namespace.Namespace
	alias string
	cls   *namespace.Class
	decl  manifestClass
}

func (m manifest) build() (*namespace.Table, error) {
	table := namespace.NewTable()
	for _, nsDecl := range m.Namespaces {
		ns, err := nsDecl.construct()
		if err != nil {
			return nil, err
		}
		if err := table.Add(ns); err != nil {
			return nil, err
		}
	}

	built, err := m.buildClasses(table)
	if err != nil {
		return nil, err
	}
	for _, bc := range built {
		for _, relDecl := range bc.decl.Relations {
			if err := defineManifestRelation(table, bc, relDecl); err != nil {
				return nil, err
			}
		}
	}
	return table, nil
}

func (decl manifestNamespace) construct() (*namespace.Namespace, error) {
	var opts []namespace.Option
	if decl.Viewpoint != "" {
		opts = append(opts, namespace.WithViewpoint(decl.Viewpoint))
	}
	if decl.VersionPrecision != 0 {
		opts = append(opts, namespace.WithVersionPrecision(decl.VersionPrecision))
	}
	if decl.MaxVersion != "" {
		maxver, err := namespace.ParseVersion(decl.MaxVersion)
		if err != nil {
			return nil, melodyerrors.NewConfigurationf(
				"namespace %s: invalid max-version %q: %v", decl.Alias, decl.MaxVersion, err)
		}
		opts = append(opts, namespace.WithMaxVersion(maxver))
	}
	return namespace.New(decl.URI, decl.Alias, opts...)
}

// buildClasses constructs and registers every class. Base classes may be
// declared in any order and across namespaces, so unresolved entries are
// retried until a pass makes no progress, which means a base is missing or
// the hierarchy is cyclic.
func (m manifest) buildClasses(table *namespace.Table) ([]builtClass, error) {
	type pendingClass struct {
		ns    *namespace.Namespace
		alias string
		decl  manifestClass
	}

	var pending []pendingClass
	for _, nsDecl := range m.Namespaces {
		ns, _ := table.ByAlias(nsDecl.Alias)
		for _, clsDecl := range nsDecl.Classes {
			pending = append(pending, pendingClass{ns: ns, alias: nsDecl.Alias, decl: clsDecl})
		}
	}

	byName := make(map[string]*namespace.Class, len(pending))
	built := make([]builtClass, 0, len(pending))
	for len(pending) > 0 {
		var stuck []pendingClass
		for _, pc := range pending {
			bases, ok := resolveBases(byName, pc.alias, pc.decl.Bases)
			if !ok {
				stuck = append(stuck, pc)
				continue
			}

			cls := pc.ns.NewClass(pc.decl.Name, bases...)
			minVer, maxVer, err := classVersionRange(pc.alias, pc.decl)
			if err != nil {
				return nil, err
			}
			if err := pc.ns.Register(cls, minVer, maxVer); err != nil {
				return nil, err
			}

			byName[pc.alias+":"+pc.decl.Name] = cls
			built = append(built, builtClass{ns: pc.ns, alias: pc.alias, cls: cls, decl: pc.decl})
		}
		if len(stuck) == len(pending) {
			names := make([]string, len(stuck))
			for i, pc := range stuck {
				names[i] = pc.alias + ":" + pc.decl.Name
			}
			return nil, melodyerrors.NewConfigurationf(
				"cannot resolve base classes of %s: a base is missing or the hierarchy is cyclic",
				strings.Join(names, ", "))
		}
		pending = stuck
	}
	return built, nil
}

func resolveBases(byName map[string]*namespace.Class, alias string, refs []string) ([]*namespace.Class, bool) {
	bases := make([]*namespace.Class, len(refs))
	for i, ref := range refs {
		if !strings.Contains(ref, ":") {
			ref = alias + ":" + ref
		}
		cls, ok := byName[ref]
		if !ok {
			return nil, false
		}
		bases[i] = cls
	}
	return bases, true
}

func classVersionRange(alias string, decl manifestClass) (minVer, maxVer *namespace.Version, err error) {
	if decl.Since != "" {
		v, err := namespace.ParseVersion(decl.Since)
		if err != nil {
			return nil, nil, melodyerrors.NewConfigurationf(
				"class %s:%s: invalid since version %q: %v", alias, decl.Name, decl.Since, err)
		}
		minVer = &v
	}
	if decl.Until != "" {
		v, err := namespace.ParseVersion(decl.Until)
		if err != nil {
			return nil, nil, melodyerrors.NewConfigurationf(
				"class %s:%s: invalid until version %q: %v", alias, decl.Name, decl.Until, err)
		}
		maxVer = &v
	}
	return minVer, maxVer, nil
}

func defineManifestRelation(table *namespace.Table, bc builtClass, decl manifestRelation) error {
	targetAlias, targetClass := bc.alias, decl.Target
	if alias, name, found := strings.Cut(decl.Target, ":"); found {
		targetAlias, targetClass = alias, name
	}
	targetNS, ok := table.ByAlias(targetAlias)
	if !ok {
		return melodyerrors.NewConfigurationf(
			"relation %q of %s targets unknown namespace alias %q", decl.Name, bc.cls, targetAlias)
	}
	target := namespace.ClassRef{Namespace: targetNS, Class: targetClass}

	var opts []namespace.RelationOption
	if decl.Key != "" {
		opts = append(opts, namespace.WithKey(decl.Key))
	}
	if decl.FixedLength != 0 {
		opts = append(opts, namespace.WithFixedLength(decl.FixedLength))
	}
	if decl.SingleAttr != "" {
		opts = append(opts, namespace.WithSingleAttr(decl.SingleAttr))
	}
	if decl.MapKey != "" {
		opts = append(opts, namespace.WithMapKey(decl.MapKey))
	}
	if decl.MapValue != "" {
		opts = append(opts, namespace.WithMapValue(decl.MapValue))
	}
	if decl.Doc != "" {
		opts = append(opts, namespace.WithDoc(decl.Doc))
	}

	var err error
	switch decl.Kind {
	case "containment":
		_, err = bc.cls.DefineContainment(decl.Name, target, opts...)
	case "association":
		_, err = bc.cls.DefineAssociation(decl.Name, target, opts...)
	case "backref":
		_, err = bc.cls.DefineBackref(decl.Name, target, decl.Attributes, opts...)
	default:
		return melodyerrors.NewConfigurationf(
			"relation %q of %s has unknown kind %q", decl.Name, bc.cls, decl.Kind)
	}
	return err
}
