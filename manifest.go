package modscope

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pbraun/modscope/internal/store"
)

// Manifest is the hand-off format from the scanning front end: projects,
// installed package sets, and already-parsed module records. Parsing
// source text happens elsewhere; the manifests this engine ingests never
// contain source.
type Manifest struct {
	Projects    []ManifestProject    `json:"projects,omitempty"`
	PackageSets []ManifestPackageSet `json:"package_sets,omitempty"`
	Modules     []ManifestModule     `json:"modules,omitempty"`
}

type ManifestProject struct {
	Name    string           `json:"name"`
	Root    string           `json:"root"`
	Targets []ManifestTarget `json:"targets,omitempty"`
}

type ManifestTarget struct {
	Name   string        `json:"name"`
	SrcDir string        `json:"src_dir"`
	Deps   []ManifestDep `json:"deps,omitempty"`
}

// ManifestDep names one package dependency of a build target.
type ManifestDep struct {
	Set     string `json:"set"`
	Package string `json:"package"`
	Version string `json:"version,omitempty"`
}

type ManifestPackageSet struct {
	Name     string            `json:"name"`
	Packages []ManifestPackage `json:"packages,omitempty"`
}

type ManifestPackage struct {
	Name    string              `json:"name"`
	Version string              `json:"version,omitempty"`
	Modules []ManifestPkgModule `json:"modules,omitempty"`
}

// ManifestPkgModule is a package-origin module: declarations only, no
// imports or export list.
type ManifestPkgModule struct {
	Name  string         `json:"name"`
	Decls []ManifestDecl `json:"declarations,omitempty"`
}

type ManifestDecl struct {
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"`
}

// ManifestModule is a file-backed module record, or an external one when
// External is set instead of Path. Exports distinguishes absent (null)
// from explicitly empty.
type ManifestModule struct {
	Name     string            `json:"name"`
	Path     string            `json:"path,omitempty"`
	Project  string            `json:"project,omitempty"`
	External string            `json:"external,omitempty"`
	Decls    []ManifestDecl    `json:"declarations,omitempty"`
	Imports  []ManifestImport  `json:"imports,omitempty"`
	Exports  *[]ManifestExport `json:"exports,omitempty"`
}

type ManifestImport struct {
	Module    string `json:"module"`
	Qualified bool   `json:"qualified,omitempty"`
	Alias     string `json:"alias,omitempty"`
}

// ManifestExport is one export-list entry: a name (with optional alias
// qualifier) or a whole-module re-export. Exactly one of Name and Module
// is set.
type ManifestExport struct {
	Name   string `json:"name,omitempty"`
	Alias  string `json:"alias,omitempty"`
	Module string `json:"module,omitempty"`
}

// LoadManifest ingests a manifest file into the store, replacing prior
// records for any module it names again. Returns the number of module
// records ingested.
func (e *Engine) LoadManifest(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return 0, fmt.Errorf("parse manifest: %w", err)
	}

	count, err := e.ingest(&m)
	if err != nil {
		return count, err
	}

	hash := fmt.Sprintf("%x", sha256.Sum256(data))
	if err := e.store.SetMetadata("manifest_hash", hash); err != nil {
		return count, err
	}
	return count, nil
}

// ingest writes a manifest's contents into the store.
func (e *Engine) ingest(m *Manifest) (int, error) {
	s := e.store
	count := 0

	for _, mp := range m.Projects {
		projectID, err := s.UpsertProject(&store.Project{Name: mp.Name, Root: mp.Root})
		if err != nil {
			return count, err
		}
		if err := s.DeleteTargetsForProject(projectID); err != nil {
			return count, err
		}
		for _, mt := range mp.Targets {
			targetID, err := s.InsertBuildTarget(&store.BuildTarget{
				ProjectID: projectID,
				Name:      mt.Name,
				SrcDir:    mt.SrcDir,
			})
			if err != nil {
				return count, err
			}
			for _, dep := range mt.Deps {
				setID, err := s.UpsertPackageSet(dep.Set)
				if err != nil {
					return count, err
				}
				pkgID, err := s.UpsertPackage(&store.Package{
					SetID:   setID,
					Name:    dep.Package,
					Version: dep.Version,
				})
				if err != nil {
					return count, err
				}
				if err := s.InsertTargetDep(targetID, pkgID); err != nil {
					return count, err
				}
			}
		}
	}

	for _, mps := range m.PackageSets {
		setID, err := s.UpsertPackageSet(mps.Name)
		if err != nil {
			return count, err
		}
		for _, mpkg := range mps.Packages {
			pkgID, err := s.UpsertPackage(&store.Package{
				SetID:   setID,
				Name:    mpkg.Name,
				Version: mpkg.Version,
			})
			if err != nil {
				return count, err
			}
			for _, pm := range mpkg.Modules {
				if err := e.replacePackageModule(pkgID, pm); err != nil {
					return count, err
				}
				count++
			}
		}
	}

	for _, mm := range m.Modules {
		if err := e.replaceSourceModule(mm); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

// replacePackageModule swaps in a fresh record for one package-origin
// module.
func (e *Engine) replacePackageModule(pkgID int64, pm ManifestPkgModule) error {
	s := e.store
	existing, err := s.ModulesInPackage(pm.Name, pkgID)
	if err != nil {
		return err
	}
	for _, old := range existing {
		if err := s.DeleteModuleData(old.ID); err != nil {
			return err
		}
	}

	moduleID, err := s.InsertModule(&store.Module{
		Name:      pm.Name,
		LocKind:   "package",
		PackageID: &pkgID,
	})
	if err != nil {
		return err
	}
	return e.insertDecls(moduleID, pm.Decls)
}

// replaceSourceModule swaps in a fresh record for one file-backed or
// external module.
func (e *Engine) replaceSourceModule(mm ManifestModule) error {
	s := e.store

	row := &store.Module{Name: mm.Name}
	var existing []*store.Module
	var err error
	if mm.External != "" {
		row.LocKind = "external"
		row.ExtRef = mm.External
		existing, err = s.ExternalModules(mm.Name, mm.External)
	} else {
		row.LocKind = "file"
		row.Path = mm.Path
		existing, err = s.ModulesAtPath(mm.Name, mm.Path)
	}
	if err != nil {
		return err
	}
	for _, old := range existing {
		if err := s.DeleteModuleData(old.ID); err != nil {
			return err
		}
	}

	if mm.Project != "" {
		p, err := s.ProjectByName(mm.Project)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("module %s: unknown project %q", mm.Name, mm.Project)
		}
		row.ProjectID = &p.ID
	}
	row.HasExports = mm.Exports != nil

	moduleID, err := s.InsertModule(row)
	if err != nil {
		return err
	}
	if err := e.insertDecls(moduleID, mm.Decls); err != nil {
		return err
	}

	for i, imp := range mm.Imports {
		if _, err := s.InsertImport(&store.Import{
			ModuleID:  moduleID,
			Ordinal:   i,
			Target:    imp.Module,
			Qualified: imp.Qualified,
			Alias:     imp.Alias,
		}); err != nil {
			return err
		}
	}

	if mm.Exports != nil {
		for i, ex := range *mm.Exports {
			spec := &store.ExportSpec{ModuleID: moduleID, Ordinal: i}
			if ex.Module != "" {
				spec.Kind = "module"
				spec.Name = ex.Module
			} else {
				spec.Kind = "name"
				spec.Name = ex.Name
				spec.Alias = ex.Alias
			}
			if _, err := s.InsertExportSpec(spec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) insertDecls(moduleID int64, decls []ManifestDecl) error {
	for i, d := range decls {
		kind := d.Kind
		if kind == "" {
			kind = "value"
		}
		if _, err := e.store.InsertDeclaration(&store.Declaration{
			ModuleID: moduleID,
			Ordinal:  i,
			Name:     d.Name,
			Kind:     kind,
		}); err != nil {
			return err
		}
	}
	return nil
}
