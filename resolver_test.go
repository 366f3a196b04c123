package modscope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory ModuleStore for resolver tests. Lookups are
// linear scans over a fixed module slice; canonical projects and build
// deps come from plain maps.
type memStore struct {
	modules  []*Module
	projects map[string]ProjectRef // canonical ref by project name
	deps     map[string]depsEntry  // build deps by file path
}

type depsEntry struct {
	set  PackageSetRef
	pkgs []PackageRef
}

func (s *memStore) ModulesAt(name, path string) ([]*Module, error) {
	var out []*Module
	for _, m := range s.modules {
		if loc, ok := m.Loc.(FileLoc); ok && m.Name == name && loc.Path == path {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) ModulesInProject(name string, project ProjectRef) ([]*Module, error) {
	var out []*Module
	for _, m := range s.modules {
		if loc, ok := m.Loc.(FileLoc); ok && m.Name == name && loc.Project == project {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) ModulesInPackages(name string, set PackageSetRef, pkgs []PackageRef) ([]*Module, error) {
	var out []*Module
	for _, m := range s.modules {
		loc, ok := m.Loc.(PackageLoc)
		if !ok || m.Name != name || loc.Set != set {
			continue
		}
		for _, p := range pkgs {
			if loc.Package == p {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

func (s *memStore) ModulesInPackageSet(name string, set PackageSetRef) ([]*Module, error) {
	var out []*Module
	for _, m := range s.modules {
		if loc, ok := m.Loc.(PackageLoc); ok && m.Name == name && loc.Set == set {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) PackageModules(name string) ([]*Module, error) {
	var out []*Module
	for _, m := range s.modules {
		if _, ok := m.Loc.(PackageLoc); ok && m.Name == name {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) CanonicalProject(ref ProjectRef) (ProjectRef, error) {
	return s.projects[ref.Name], nil
}

func (s *memStore) BuildDeps(path string, project ProjectRef) (PackageSetRef, []PackageRef, error) {
	e := s.deps[path]
	return e.set, e.pkgs, nil
}

func pkgModule(name string, loc PackageLoc, declNames ...string) *Module {
	m := &Module{Name: name, Loc: loc}
	for _, d := range declNames {
		m.Decls = append(m.Decls, decl(d, loc))
	}
	return m
}

var baseSet = PackageSetRef{Name: "base-set"}

func baseLoc(pkg string) PackageLoc {
	return PackageLoc{Set: baseSet, Package: PackageRef{Name: pkg, Version: "1.0"}}
}

func scopeNames(scope []ImportedDecl) []string {
	names := make([]string, len(scope))
	for i, e := range scope {
		names[i] = e.Decl.Name
	}
	return names
}

func exportNames(exports []Declaration) []string {
	names := make([]string, len(exports))
	for i, d := range exports {
		names[i] = d.Name
	}
	return names
}

func TestResolve_PackageModuleExportsAllDecls(t *testing.T) {
	t.Parallel()
	mod := pkgModule("Data.Map", baseLoc("containers"), "empty", "insert", "lookup")
	r := NewResolver(&memStore{modules: []*Module{mod}})

	res, err := r.Resolve(mod)
	require.NoError(t, err)
	assert.Equal(t, []string{"empty", "insert", "lookup"}, exportNames(res.Exports))
	require.Len(t, res.Scope, 3)
	for _, e := range res.Scope {
		assert.True(t, e.Local())
	}
}

func TestResolve_FileModuleBootstrapContributes(t *testing.T) {
	t.Parallel()
	prelude := pkgModule("Prelude", baseLoc("base"), "id", "const")
	main := &Module{
		Name:  "Main",
		Loc:   FileLoc{Path: "/src/Main.hs"},
		Decls: []Declaration{decl("main", FileLoc{Path: "/src/Main.hs"})},
	}
	r := NewResolver(&memStore{modules: []*Module{prelude, main}})

	res, err := r.Resolve(main)
	require.NoError(t, err)

	// Own declarations first, then the merged imported scope.
	require.Len(t, res.Scope, 3)
	assert.True(t, res.Scope[0].Local())
	assert.Equal(t, "main", res.Scope[0].Decl.Name)
	assert.ElementsMatch(t, []string{"const", "id"}, scopeNames(res.Scope[1:]))
	for _, e := range res.Scope[1:] {
		require.Len(t, e.Via, 1)
		assert.Equal(t, Import{Module: "Prelude"}, e.Via[0])
	}

	// No export list, no exports.
	assert.Empty(t, res.Exports)
}

func TestResolve_BootstrapModuleSkipsItself(t *testing.T) {
	t.Parallel()
	loc := FileLoc{Path: "/src/Prelude.hs"}
	prelude := &Module{
		Name:  "Prelude",
		Loc:   loc,
		Decls: []Declaration{decl("id", loc)},
	}
	r := NewResolver(&memStore{modules: []*Module{prelude}})

	res, err := r.Resolve(prelude)
	require.NoError(t, err)
	require.Len(t, res.Scope, 1)
	assert.True(t, res.Scope[0].Local())
	assert.Empty(t, r.Cycles())
}

func TestResolve_LooseFileImportsPackageModule(t *testing.T) {
	t.Parallel()
	foo := pkgModule("Data.Foo", baseLoc("foo"), "bar")
	main := &Module{
		Name:    "Main",
		Loc:     FileLoc{Path: "/src/Main.hs"},
		Imports: []Import{unqual("Data.Foo")},
	}
	r := NewResolver(&memStore{modules: []*Module{foo, main}})

	res, err := r.Resolve(main)
	require.NoError(t, err)
	require.Len(t, res.Scope, 1)
	assert.Equal(t, "bar", res.Scope[0].Decl.Name)
	assert.Equal(t, []Import{unqual("Data.Foo")}, res.Scope[0].Via)
	assert.Empty(t, res.Exports)
}

func TestResolve_Memoized(t *testing.T) {
	t.Parallel()
	foo := pkgModule("Data.Foo", baseLoc("foo"), "bar")
	main := &Module{
		Name:    "Main",
		Loc:     FileLoc{Path: "/src/Main.hs"},
		Imports: []Import{unqual("Data.Foo")},
	}
	r := NewResolver(&memStore{modules: []*Module{foo, main}})

	first, err := r.Resolve(main)
	require.NoError(t, err)
	assert.Equal(t, 2, r.computed) // Main and Data.Foo; Prelude has no candidates

	second, err := r.Resolve(main)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 2, r.computed)
}

func TestResolveBatch_SharedDependencyComputedOnce(t *testing.T) {
	t.Parallel()
	d := pkgModule("Data.D", baseLoc("d"), "thing")
	a := &Module{Name: "A", Loc: FileLoc{Path: "/src/A.hs"}, Imports: []Import{unqual("Data.D")}}
	b := &Module{Name: "B", Loc: FileLoc{Path: "/src/B.hs"}, Imports: []Import{unqual("Data.D")}}
	r := NewResolver(&memStore{modules: []*Module{d, a, b}})

	out, err := r.ResolveBatch([]*Module{a, b})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 3, r.computed) // A, B, and Data.D exactly once

	assert.Equal(t, []string{"thing"}, scopeNames(out[0].Scope))
	assert.Equal(t, []string{"thing"}, scopeNames(out[1].Scope))
}

func TestResolve_ExportListReExportsImports(t *testing.T) {
	t.Parallel()
	foo := pkgModule("Data.Foo", baseLoc("foo"), "bar", "baz")
	loc := FileLoc{Path: "/src/M.hs"}
	m := &Module{
		Name:    "M",
		Loc:     loc,
		Decls:   []Declaration{decl("own", loc)},
		Imports: []Import{unqual("Data.Foo")},
		Exports: &ExportList{Entries: []ExportEntry{
			ExportName{Name: "bar"},
			ExportName{Name: "own"}, // local, never re-exportable
		}},
	}
	r := NewResolver(&memStore{modules: []*Module{foo, m}})

	res, err := r.Resolve(m)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar"}, exportNames(res.Exports))
}

func TestResolve_ExportWholeImportedModule(t *testing.T) {
	t.Parallel()
	foo := pkgModule("Data.Foo", baseLoc("foo"), "bar", "baz")
	other := pkgModule("Data.Other", baseLoc("other"), "qux")
	m := &Module{
		Name:    "M",
		Loc:     FileLoc{Path: "/src/M.hs"},
		Imports: []Import{unqual("Data.Foo"), unqual("Data.Other")},
		Exports: &ExportList{Entries: []ExportEntry{
			ExportModule{Module: "Data.Foo"},
		}},
	}
	r := NewResolver(&memStore{modules: []*Module{foo, other, m}})

	res, err := r.Resolve(m)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar", "baz"}, exportNames(res.Exports))
}

func TestResolve_AliasedExport(t *testing.T) {
	t.Parallel()
	foo := pkgModule("Data.Foo", baseLoc("foo"), "bar")
	m := &Module{
		Name:    "M",
		Loc:     FileLoc{Path: "/src/M.hs"},
		Imports: []Import{qual("Data.Foo", "F")},
		Exports: &ExportList{Entries: []ExportEntry{
			ExportName{Alias: "F", Name: "bar"},
		}},
	}
	r := NewResolver(&memStore{modules: []*Module{foo, m}})

	res, err := r.Resolve(m)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar"}, exportNames(res.Exports))
}

func TestResolve_EmptyExportListExportsNothing(t *testing.T) {
	t.Parallel()
	foo := pkgModule("Data.Foo", baseLoc("foo"), "bar")
	m := &Module{
		Name:    "M",
		Loc:     FileLoc{Path: "/src/M.hs"},
		Imports: []Import{unqual("Data.Foo")},
		Exports: &ExportList{},
	}
	r := NewResolver(&memStore{modules: []*Module{foo, m}})

	res, err := r.Resolve(m)
	require.NoError(t, err)
	assert.Empty(t, res.Exports)
	assert.Equal(t, []string{"bar"}, scopeNames(res.Scope)) // scope is unaffected
}

func TestResolve_CycleYieldsPlaceholderAndRecord(t *testing.T) {
	t.Parallel()
	locA := FileLoc{Path: "/src/A.hs"}
	locB := FileLoc{Path: "/src/B.hs"}
	a := &Module{
		Name:    "A",
		Loc:     locA,
		Decls:   []Declaration{decl("fromA", locA)},
		Imports: []Import{unqual("B")},
		Exports: &ExportList{Entries: []ExportEntry{ExportModule{Module: "B"}}},
	}
	b := &Module{
		Name:    "B",
		Loc:     locB,
		Decls:   []Declaration{decl("fromB", locB)},
		Imports: []Import{unqual("A")},
	}
	r := NewResolver(&memStore{modules: []*Module{a, b}})

	res, err := r.Resolve(a)
	require.NoError(t, err)

	// B's import of A hit the in-progress guard and saw an empty
	// placeholder, so nothing flows around the cycle.
	assert.Empty(t, res.Exports)
	assert.Equal(t, []string{"fromA"}, scopeNames(res.Scope))

	require.Len(t, r.Cycles(), 1)
	assert.Equal(t, a.ID(), r.Cycles()[0].Module)
	assert.Equal(t, b.ID(), r.Cycles()[0].Via)

	// The placeholder was not memoized; both full results were.
	before := r.computed
	_, err = r.Resolve(a)
	require.NoError(t, err)
	_, err = r.Resolve(b)
	require.NoError(t, err)
	assert.Equal(t, before, r.computed)
	assert.Len(t, r.Cycles(), 1)
}

func TestResolve_AmbiguityRecordedAndUnioned(t *testing.T) {
	t.Parallel()
	one := pkgModule("Data.X", baseLoc("x-one"), "a")
	two := pkgModule("Data.X", PackageLoc{
		Set:     PackageSetRef{Name: "other-set"},
		Package: PackageRef{Name: "x-two", Version: "2.0"},
	}, "b")
	m := &Module{
		Name:    "M",
		Loc:     FileLoc{Path: "/src/M.hs"},
		Imports: []Import{unqual("Data.X")},
	}
	r := NewResolver(&memStore{modules: []*Module{one, two, m}}, WithAmbiguityRecording(true))

	res, err := r.Resolve(m)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, scopeNames(res.Scope))

	require.Len(t, r.Ambiguities(), 1)
	amb := r.Ambiguities()[0]
	assert.Equal(t, m.ID(), amb.Module)
	assert.Equal(t, unqual("Data.X"), amb.Import)
	assert.Equal(t, 2, amb.Candidates)
}

func TestResolve_AmbiguityNotRecordedByDefault(t *testing.T) {
	t.Parallel()
	one := pkgModule("Data.X", baseLoc("x-one"), "a")
	two := pkgModule("Data.X", baseLoc("x-two"), "b")
	m := &Module{
		Name:    "M",
		Loc:     FileLoc{Path: "/src/M.hs"},
		Imports: []Import{unqual("Data.X")},
	}
	r := NewResolver(&memStore{modules: []*Module{one, two, m}})

	res, err := r.Resolve(m)
	require.NoError(t, err)
	assert.Len(t, res.Scope, 2)
	assert.Empty(t, r.Ambiguities())
}

func TestResolve_ProjectFileUsesCanonicalProject(t *testing.T) {
	t.Parallel()
	canonical := ProjectRef{Name: "app", Root: "/work/app"}
	stale := ProjectRef{Name: "app", Root: "/old/checkout/app"}

	libLoc := FileLoc{Path: "/work/app/src/Lib.hs", Project: canonical}
	lib := &Module{
		Name:    "Lib",
		Loc:     libLoc,
		Decls:   []Declaration{decl("helper", libLoc)},
		Imports: []Import{unqual("Dep")},
		Exports: &ExportList{Entries: []ExportEntry{ExportModule{Module: "Dep"}}},
	}
	dep := pkgModule("Dep", baseLoc("dep-pkg"), "run")
	main := &Module{
		Name:    "Main",
		Loc:     FileLoc{Path: "/work/app/app/Main.hs", Project: stale},
		Imports: []Import{unqual("Lib")},
	}
	store := &memStore{
		modules:  []*Module{lib, dep, main},
		projects: map[string]ProjectRef{"app": canonical},
		deps: map[string]depsEntry{
			"/work/app/src/Lib.hs": {set: baseSet, pkgs: []PackageRef{{Name: "dep-pkg", Version: "1.0"}}},
		},
	}
	r := NewResolver(store)

	res, err := r.Resolve(main)
	require.NoError(t, err)

	// Lib is found despite Main carrying a stale project root, and it
	// re-exports Dep drawn from its build target's package deps.
	require.Len(t, res.Scope, 1)
	assert.Equal(t, "run", res.Scope[0].Decl.Name)
	assert.Equal(t, []Import{unqual("Lib")}, res.Scope[0].Via)
}

func TestResolve_ProjectDepsOutsideBuildTargetInvisible(t *testing.T) {
	t.Parallel()
	project := ProjectRef{Name: "app", Root: "/work/app"}
	dep := pkgModule("Dep", baseLoc("dep-pkg"), "run")
	main := &Module{
		Name:    "Main",
		Loc:     FileLoc{Path: "/work/app/app/Main.hs", Project: project},
		Imports: []Import{unqual("Dep")},
	}
	store := &memStore{
		modules:  []*Module{dep, main},
		projects: map[string]ProjectRef{"app": project},
		// Main's target declares no package deps.
	}
	r := NewResolver(store)

	res, err := r.Resolve(main)
	require.NoError(t, err)
	assert.Empty(t, res.Scope)
}

func TestResolve_LooseFileSibling(t *testing.T) {
	t.Parallel()
	fooLoc := FileLoc{Path: "/src/Data/Foo.hs"}
	prelude := pkgModule("Prelude", baseLoc("base"), "id")
	foo := &Module{
		Name:    "Data.Foo",
		Loc:     fooLoc,
		Decls:   []Declaration{decl("bar", fooLoc)},
		Imports: []Import{unqual("Prelude")},
		Exports: &ExportList{Entries: []ExportEntry{ExportName{Name: "id"}}},
	}
	main := &Module{
		Name:    "Main",
		Loc:     FileLoc{Path: "/src/Main.hs"},
		Imports: []Import{unqual("Data.Foo")},
	}
	r := NewResolver(&memStore{modules: []*Module{prelude, foo, main}})

	res, err := r.Resolve(main)
	require.NoError(t, err)

	// Data.Foo is looked up at the translated sibling path and its
	// re-exported Prelude.id reaches Main; bar stays local to Data.Foo.
	names := scopeNames(res.Scope)
	assert.Contains(t, names, "id")
	assert.NotContains(t, names, "bar")
}
