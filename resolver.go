package modscope

// Defaults for resolver configuration. Both are plain configuration: the
// engine is reusable across module-system variants that bootstrap from a
// different implicit module or use a different source extension.
const (
	DefaultBootstrapModule = "Prelude"
	DefaultSourceExt       = ".hs"
)

// ModuleStore is the read-only store contract the resolver consumes. The
// store must not be mutated for the duration of a resolution run.
//
// "Not found" is an empty result with a nil error on every method; errors
// are reserved for infrastructure failures (a broken database, not a
// missing module).
type ModuleStore interface {
	// ModulesAt returns modules with the given dotted name backed by the
	// file at path.
	ModulesAt(name, path string) ([]*Module, error)

	// ModulesInProject returns modules with the given name that are
	// members of the project.
	ModulesInProject(name string, project ProjectRef) ([]*Module, error)

	// ModulesInPackages returns package-origin modules with the given
	// name from the listed packages of one package set.
	ModulesInPackages(name string, set PackageSetRef, pkgs []PackageRef) ([]*Module, error)

	// ModulesInPackageSet returns package-origin modules with the given
	// name anywhere in one package set.
	ModulesInPackageSet(name string, set PackageSetRef) ([]*Module, error)

	// PackageModules returns package-origin modules with the given name
	// from any package set.
	PackageModules(name string) ([]*Module, error)

	// CanonicalProject resolves a possibly stale project ref to the
	// stored canonical one. The zero ref means the project is unknown.
	CanonicalProject(ref ProjectRef) (ProjectRef, error)

	// BuildDeps returns the declared package dependencies of the build
	// target owning the file within the project.
	BuildDeps(path string, project ProjectRef) (PackageSetRef, []PackageRef, error)
}

// Cycle records one re-entry into a module that was still being resolved.
type Cycle struct {
	Module ModuleID // the module hit while still in progress
	Via    ModuleID // the module whose imports led back to it
}

// Ambiguity records an import that matched more than one candidate
// module. Recording is optional and never changes resolution results:
// every candidate's exports are unioned regardless.
type Ambiguity struct {
	Module     ModuleID
	Import     Import
	Candidates int
}

// Resolver computes module scopes and exports over a ModuleStore. One
// Resolver is one resolution run: the memo accumulates for its lifetime
// and is discarded with it, while the store outlives any run.
//
// Resolution is single-threaded and purely computational; a Resolver must
// not be used from multiple goroutines.
type Resolver struct {
	store       ModuleStore
	bootstrap   string
	sourceExt   string
	recordAmbig bool

	memo       map[ModuleID]*ResolvedModule
	inProgress map[ModuleID]struct{}
	stack      []ModuleID

	cycles      []Cycle
	ambiguities []Ambiguity

	// computed counts underlying computations, for memoization tests.
	computed int
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithBootstrapModule sets the module every file-backed module implicitly
// imports, unqualified, ahead of its declared imports.
func WithBootstrapModule(name string) ResolverOption {
	return func(r *Resolver) {
		r.bootstrap = name
	}
}

// WithSourceExt sets the file extension used when translating dotted
// module names to file paths.
func WithSourceExt(ext string) ResolverOption {
	return func(r *Resolver) {
		r.sourceExt = ext
	}
}

// WithAmbiguityRecording enables recording of imports that matched more
// than one candidate module, retrievable via Ambiguities.
func WithAmbiguityRecording(on bool) ResolverOption {
	return func(r *Resolver) {
		r.recordAmbig = on
	}
}

// NewResolver creates a Resolver for one resolution run over store.
func NewResolver(store ModuleStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:      store,
		bootstrap:  DefaultBootstrapModule,
		sourceExt:  DefaultSourceExt,
		memo:       make(map[ModuleID]*ResolvedModule),
		inProgress: make(map[ModuleID]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveBatch resolves each module in order and returns a same-shaped
// slice. All batch entries share the Resolver's memo, so a module
// reachable from several roots is computed once.
func (r *Resolver) ResolveBatch(modules []*Module) ([]*ResolvedModule, error) {
	out := make([]*ResolvedModule, len(modules))
	for i, m := range modules {
		res, err := r.Resolve(m)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

// Resolve resolves a single module through the shared memo.
func (r *Resolver) Resolve(m *Module) (*ResolvedModule, error) {
	id := m.ID()
	if cached, ok := r.memo[id]; ok {
		return cached, nil
	}

	if _, active := r.inProgress[id]; active {
		// Cyclic import: hand back an empty placeholder instead of
		// recursing forever. The placeholder is not memoized, so a later
		// acyclic path to the same module still computes it fully.
		cyc := Cycle{Module: id}
		if n := len(r.stack); n > 0 {
			cyc.Via = r.stack[n-1]
		}
		r.cycles = append(r.cycles, cyc)
		return &ResolvedModule{Module: m}, nil
	}

	r.inProgress[id] = struct{}{}
	r.stack = append(r.stack, id)
	res, err := r.compute(m)
	r.stack = r.stack[:len(r.stack)-1]
	delete(r.inProgress, id)
	if err != nil {
		return nil, err
	}

	r.memo[id] = res
	return res, nil
}

// compute does the actual per-module work. Callers go through Resolve so
// the memo and cycle guard stay consistent.
func (r *Resolver) compute(m *Module) (*ResolvedModule, error) {
	r.computed++

	if _, ok := m.Loc.(FileLoc); !ok {
		// Package-origin and external modules are metadata-only: their
		// declarations are known but their imports and export list are
		// not, so they export everything they declare.
		scope := make([]ImportedDecl, 0, len(m.Decls))
		for _, d := range m.Decls {
			scope = append(scope, ImportedDecl{Decl: d})
		}
		return &ResolvedModule{
			Module:  m,
			Scope:   scope,
			Exports: append([]Declaration(nil), m.Decls...),
		}, nil
	}

	// Effective import list: the implicit bootstrap import first, then
	// the declared imports. The bootstrap module itself skips the
	// implicit import so it does not show up as a self-cycle.
	effective := make([]Import, 0, len(m.Imports)+1)
	if m.Name != r.bootstrap {
		effective = append(effective, Import{Module: r.bootstrap})
	}
	effective = append(effective, m.Imports...)

	var incoming []ImportedDecl
	for _, imp := range effective {
		decls, err := r.resolveImport(m, imp)
		if err != nil {
			return nil, err
		}
		incoming = append(incoming, decls...)
	}

	merged := mergeScope(incoming)
	scope := make([]ImportedDecl, 0, len(m.Decls)+len(merged))
	for _, d := range m.Decls {
		scope = append(scope, ImportedDecl{Decl: d})
	}
	scope = append(scope, merged...)

	// No export list means no exports. An upstream convention may
	// normalize list-less modules to an explicit export-everything list;
	// that normalization is deliberately not replicated here.
	var exports []Declaration
	if m.Exports != nil {
		for _, entry := range m.Exports.Entries {
			exports = append(exports, exportedDecls(scope, entry)...)
		}
	}

	return &ResolvedModule{Module: m, Scope: scope, Exports: exports}, nil
}

// Cycles returns the cyclic re-entries recorded during this run.
func (r *Resolver) Cycles() []Cycle {
	return r.cycles
}

// Ambiguities returns the ambiguous imports recorded during this run.
// Always empty unless WithAmbiguityRecording was set.
func (r *Resolver) Ambiguities() []Ambiguity {
	return r.ambiguities
}
