package modscope

import (
	"path/filepath"
	"strings"
)

// resolveImport resolves one import statement of the importing module:
// it selects candidate target modules from the store, resolves every
// candidate recursively through the shared memo, and returns the union of
// their exports, each wrapped with this import as provenance.
//
// All matching candidates are resolved, never a single best pick.
// Duplicates across candidates are reconciled later by the scope merge,
// not rejected here.
func (r *Resolver) resolveImport(importing *Module, imp Import) ([]ImportedDecl, error) {
	candidates, err := r.importCandidates(importing, imp)
	if err != nil {
		return nil, err
	}
	if r.recordAmbig && len(candidates) > 1 {
		r.ambiguities = append(r.ambiguities, Ambiguity{
			Module:     importing.ID(),
			Import:     imp,
			Candidates: len(candidates),
		})
	}

	var out []ImportedDecl
	for _, cand := range candidates {
		res, err := r.Resolve(cand)
		if err != nil {
			return nil, err
		}
		for _, d := range res.Exports {
			out = append(out, ImportedDecl{Via: []Import{imp}, Decl: d})
		}
	}
	return out, nil
}

// importCandidates selects the target modules an import statement can
// refer to, depending on where the importing module lives.
func (r *Resolver) importCandidates(importing *Module, imp Import) ([]*Module, error) {
	switch loc := importing.Loc.(type) {
	case FileLoc:
		if loc.Project != (ProjectRef{}) {
			return r.projectCandidates(loc, imp)
		}
		return r.looseFileCandidates(importing, loc, imp)

	case PackageLoc:
		// Package modules only see their own package set.
		return r.store.ModulesInPackageSet(imp.Module, loc.Set)

	case ExternalLoc:
		return r.store.PackageModules(imp.Module)
	}
	return nil, nil
}

// projectCandidates handles a file module with a known owning project:
// targets are project members plus modules from packages the file's build
// target declares as dependencies. The carried project ref may be stale,
// so it is canonicalized through the store first.
func (r *Resolver) projectCandidates(loc FileLoc, imp Import) ([]*Module, error) {
	project, err := r.store.CanonicalProject(loc.Project)
	if err != nil {
		return nil, err
	}

	candidates, err := r.store.ModulesInProject(imp.Module, project)
	if err != nil {
		return nil, err
	}

	set, pkgs, err := r.store.BuildDeps(loc.Path, project)
	if err != nil {
		return nil, err
	}
	if len(pkgs) > 0 {
		fromDeps, err := r.store.ModulesInPackages(imp.Module, set, pkgs)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, fromDeps...)
	}
	return candidates, nil
}

// looseFileCandidates handles a file module with no owning project:
// targets are modules found at the path the imported name translates to,
// plus package-origin modules of that name from any package set.
func (r *Resolver) looseFileCandidates(importing *Module, loc FileLoc, imp Import) ([]*Module, error) {
	path := modulePath(loc.Path, importing.Name, imp.Module, r.sourceExt)
	candidates, err := r.store.ModulesAt(imp.Module, path)
	if err != nil {
		return nil, err
	}

	fromPkgs, err := r.store.PackageModules(imp.Module)
	if err != nil {
		return nil, err
	}
	return append(candidates, fromPkgs...), nil
}

// modulePath translates a dotted module name into a sibling file path.
// The trailing path segments matching the importing module's own dotted
// name are replaced by the imported name's segments, so both resolve
// against the same source root. For /src/A/B/C.hs (module A.B.C)
// importing X.Y the result is /src/X/Y.hs.
func modulePath(importingPath, importingName, target, ext string) string {
	dir := filepath.Dir(importingPath)
	segs := strings.Split(importingName, ".")
	for range segs[:len(segs)-1] {
		dir = filepath.Dir(dir)
	}
	rel := filepath.FromSlash(strings.ReplaceAll(target, ".", "/"))
	return filepath.Join(dir, rel+ext)
}
