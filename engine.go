package modscope

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pbraun/modscope/internal/config"
	"github.com/pbraun/modscope/internal/store"
)

// Engine orchestrates the modscope pipeline: manifest ingestion into the
// SQLite store, batch resolution over it, and query access to the
// persisted scope and export data.
type Engine struct {
	store *store.Store
	cfg   *config.Config
	force bool

	// diagnostics from the most recent resolution run.
	cycles      []Cycle
	ambiguities []Ambiguity
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig supplies an engine configuration; by default config.Default()
// is used.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithForce makes ResolveAll re-resolve even when the ingested manifest
// has not changed since the last run.
func WithForce(force bool) Option {
	return func(e *Engine) {
		e.force = force
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("modscope: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("modscope: migrate: %w", err)
	}

	e := &Engine{store: s, cfg: config.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// Cycles returns the cyclic imports recorded by the last resolution run.
func (e *Engine) Cycles() []Cycle {
	return e.cycles
}

// Ambiguities returns the ambiguous imports recorded by the last
// resolution run. Empty unless the configuration enables recording.
func (e *Engine) Ambiguities() []Ambiguity {
	return e.ambiguities
}

// ResolveAll resolves every file-backed module in the store and persists
// each module's scope and exports. When the ingested manifest is
// unchanged since the last run the work is skipped, unless WithForce was
// set. ctx is checked between batch roots; resolution of a single root
// always runs to completion.
func (e *Engine) ResolveAll(ctx context.Context) error {
	current, err := e.store.GetMetadata("manifest_hash")
	if err != nil {
		return fmt.Errorf("read manifest hash: %w", err)
	}
	resolved, err := e.store.GetMetadata("resolved_manifest")
	if err != nil {
		return fmt.Errorf("read resolved marker: %w", err)
	}
	if !e.force && current != "" && current == resolved {
		return nil // up to date
	}

	rows, err := e.store.FileModules()
	if err != nil {
		return fmt.Errorf("list file modules: %w", err)
	}
	if err := e.resolveRows(ctx, rows); err != nil {
		return err
	}
	return e.store.SetMetadata("resolved_manifest", current)
}

// ResolveModules resolves only the named file-backed modules. Modules
// reached through imports are still resolved (and their output is not
// persisted); only the named roots get fresh scope and export rows.
func (e *Engine) ResolveModules(ctx context.Context, names []string) error {
	rows, err := e.store.FileModulesNamed(names)
	if err != nil {
		return fmt.Errorf("list file modules: %w", err)
	}
	return e.resolveRows(ctx, rows)
}

func (e *Engine) resolveRows(ctx context.Context, rows []*store.Module) error {
	adapter := newStoreAdapter(e.store)
	r := NewResolver(adapter,
		WithBootstrapModule(e.cfg.BootstrapModule),
		WithSourceExt(e.cfg.SourceExt),
		WithAmbiguityRecording(e.cfg.RecordAmbiguities),
	)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := adapter.toModule(row)
		if err != nil {
			return fmt.Errorf("load module %s: %w", row.Name, err)
		}
		res, err := r.Resolve(m)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", m.Name, err)
		}
		if err := e.persistResolved(row.ID, res); err != nil {
			return fmt.Errorf("persist %s: %w", m.Name, err)
		}
	}

	e.cycles = r.Cycles()
	e.ambiguities = r.Ambiguities()
	return nil
}

// persistResolved writes one module's scope and export rows.
func (e *Engine) persistResolved(moduleID int64, res *ResolvedModule) error {
	scope := make([]*store.ScopeEntry, 0, len(res.Scope))
	for _, in := range res.Scope {
		entry := &store.ScopeEntry{
			ModuleID:   moduleID,
			DeclName:   in.Decl.Name,
			DeclKind:   in.Decl.Kind,
			DeclLoc:    in.Decl.Loc.Key(),
			LocKind:    in.Decl.Loc.Kind(),
			IsLocal:    in.Local(),
			Provenance: marshalProvenance(in.Via),
		}
		entry.LocProject, entry.LocSet = locFilters(in.Decl.Loc)
		scope = append(scope, entry)
	}

	exports := make([]*store.ExportRow, 0, len(res.Exports))
	for i, d := range res.Exports {
		row := &store.ExportRow{
			ModuleID: moduleID,
			Ordinal:  i,
			DeclName: d.Name,
			DeclKind: d.Kind,
			DeclLoc:  d.Loc.Key(),
			LocKind:  d.Loc.Kind(),
		}
		row.LocProject, row.LocSet = locFilters(d.Loc)
		exports = append(exports, row)
	}

	return e.store.ReplaceResolution(moduleID, scope, exports)
}

// locFilters extracts the project / package-set filter columns from a
// defining location.
func locFilters(loc Location) (project, set string) {
	switch l := loc.(type) {
	case FileLoc:
		return l.Project.Name, ""
	case PackageLoc:
		return "", l.Set.Name
	}
	return "", ""
}

// provImport is the JSON shape of one contributing import in a persisted
// provenance list.
type provImport struct {
	Module    string `json:"module"`
	Qualified bool   `json:"qualified,omitempty"`
	Alias     string `json:"alias,omitempty"`
}

func marshalProvenance(via []Import) string {
	if len(via) == 0 {
		return "[]"
	}
	out := make([]provImport, len(via))
	for i, imp := range via {
		out[i] = provImport{Module: imp.Module, Qualified: imp.Qualified, Alias: imp.Alias}
	}
	b, _ := json.Marshal(out)
	return string(b)
}

// storeAdapter implements ModuleStore over the SQLite store, converting
// stored rows into core module values. Loaded modules are cached by row
// ID so candidate lookups across a run hit the database once per module.
type storeAdapter struct {
	s     *store.Store
	cache map[int64]*Module
}

func newStoreAdapter(s *store.Store) *storeAdapter {
	return &storeAdapter{s: s, cache: make(map[int64]*Module)}
}

// toModule converts a stored module row into a core Module, loading its
// declarations and, for file-backed modules, imports and export list.
func (a *storeAdapter) toModule(row *store.Module) (*Module, error) {
	if m, ok := a.cache[row.ID]; ok {
		return m, nil
	}

	loc, err := a.rowLocation(row)
	if err != nil {
		return nil, err
	}

	m := &Module{Name: row.Name, Loc: loc}

	decls, err := a.s.DeclarationsByModule(row.ID)
	if err != nil {
		return nil, err
	}
	for _, d := range decls {
		m.Decls = append(m.Decls, Declaration{Name: d.Name, Loc: loc, Kind: d.Kind})
	}

	if row.LocKind == "file" {
		imports, err := a.s.ImportsByModule(row.ID)
		if err != nil {
			return nil, err
		}
		for _, imp := range imports {
			m.Imports = append(m.Imports, Import{
				Module:    imp.Target,
				Qualified: imp.Qualified,
				Alias:     imp.Alias,
			})
		}

		if row.HasExports {
			specs, err := a.s.ExportSpecsByModule(row.ID)
			if err != nil {
				return nil, err
			}
			list := &ExportList{Entries: make([]ExportEntry, 0, len(specs))}
			for _, spec := range specs {
				switch spec.Kind {
				case "module":
					list.Entries = append(list.Entries, ExportModule{Module: spec.Name})
				default:
					list.Entries = append(list.Entries, ExportName{Alias: spec.Alias, Name: spec.Name})
				}
			}
			m.Exports = list
		}
	}

	a.cache[row.ID] = m
	return m, nil
}

// rowLocation reconstructs the Location of a stored module row.
func (a *storeAdapter) rowLocation(row *store.Module) (Location, error) {
	switch row.LocKind {
	case "file":
		loc := FileLoc{Path: row.Path}
		if row.ProjectID != nil {
			p, err := a.s.ProjectByID(*row.ProjectID)
			if err != nil {
				return nil, err
			}
			if p != nil {
				loc.Project = ProjectRef{Name: p.Name, Root: p.Root}
			}
		}
		return loc, nil

	case "package":
		if row.PackageID == nil {
			return nil, fmt.Errorf("package module %q has no package", row.Name)
		}
		pkg, err := a.s.PackageByID(*row.PackageID)
		if err != nil {
			return nil, err
		}
		if pkg == nil {
			return nil, fmt.Errorf("package module %q: unknown package", row.Name)
		}
		set, err := a.s.PackageSetByID(pkg.SetID)
		if err != nil {
			return nil, err
		}
		if set == nil {
			return nil, fmt.Errorf("package module %q: unknown package set", row.Name)
		}
		return PackageLoc{
			Set:     PackageSetRef{Name: set.Name},
			Package: PackageRef{Name: pkg.Name, Version: pkg.Version},
		}, nil

	default:
		return ExternalLoc{Ref: row.ExtRef}, nil
	}
}

func (a *storeAdapter) toModules(rows []*store.Module) ([]*Module, error) {
	out := make([]*Module, 0, len(rows))
	for _, row := range rows {
		m, err := a.toModule(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (a *storeAdapter) ModulesAt(name, path string) ([]*Module, error) {
	rows, err := a.s.ModulesAtPath(name, path)
	if err != nil {
		return nil, err
	}
	return a.toModules(rows)
}

func (a *storeAdapter) ModulesInProject(name string, project ProjectRef) ([]*Module, error) {
	p, err := a.s.ProjectByName(project.Name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	rows, err := a.s.ModulesInProject(name, p.ID)
	if err != nil {
		return nil, err
	}
	return a.toModules(rows)
}

func (a *storeAdapter) ModulesInPackages(name string, set PackageSetRef, pkgs []PackageRef) ([]*Module, error) {
	ps, err := a.s.PackageSetByName(set.Name)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		return nil, nil
	}
	names := make([]string, len(pkgs))
	for i, p := range pkgs {
		names[i] = p.Name
	}
	rows, err := a.s.PackageModulesIn(name, ps.ID, names)
	if err != nil {
		return nil, err
	}
	return a.toModules(rows)
}

func (a *storeAdapter) ModulesInPackageSet(name string, set PackageSetRef) ([]*Module, error) {
	ps, err := a.s.PackageSetByName(set.Name)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		return nil, nil
	}
	rows, err := a.s.PackageModulesInSet(name, ps.ID)
	if err != nil {
		return nil, err
	}
	return a.toModules(rows)
}

func (a *storeAdapter) PackageModules(name string) ([]*Module, error) {
	rows, err := a.s.PackageOriginModules(name)
	if err != nil {
		return nil, err
	}
	return a.toModules(rows)
}

func (a *storeAdapter) CanonicalProject(ref ProjectRef) (ProjectRef, error) {
	p, err := a.s.ProjectByName(ref.Name)
	if err != nil {
		return ProjectRef{}, err
	}
	if p == nil {
		return ProjectRef{}, nil
	}
	return ProjectRef{Name: p.Name, Root: p.Root}, nil
}

func (a *storeAdapter) BuildDeps(path string, project ProjectRef) (PackageSetRef, []PackageRef, error) {
	p, err := a.s.ProjectByName(project.Name)
	if err != nil || p == nil {
		return PackageSetRef{}, nil, err
	}
	target, err := a.s.TargetForFile(p.ID, path)
	if err != nil || target == nil {
		return PackageSetRef{}, nil, err
	}
	deps, err := a.s.TargetDeps(target.ID)
	if err != nil || len(deps) == 0 {
		return PackageSetRef{}, nil, err
	}

	set, err := a.s.PackageSetByID(deps[0].SetID)
	if err != nil || set == nil {
		return PackageSetRef{}, nil, err
	}
	pkgs := make([]PackageRef, len(deps))
	for i, d := range deps {
		pkgs[i] = PackageRef{Name: d.Name, Version: d.Version}
	}
	return PackageSetRef{Name: set.Name}, pkgs, nil
}
