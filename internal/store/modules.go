package store

import (
	"fmt"
)

// --- Module operations ---

const moduleCols = `id, name, loc_kind, path, project_id, package_id, ext_ref, has_exports`

func (s *Store) InsertModule(m *Module) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO modules (name, loc_kind, path, project_id, package_id, ext_ref, has_exports)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.LocKind, m.Path, m.ProjectID, m.PackageID, m.ExtRef, m.HasExports,
	)
	if err != nil {
		return 0, fmt.Errorf("insert module: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return id, nil
}

func (s *Store) scanModule(scanner interface{ Scan(...any) error }) (*Module, error) {
	m := &Module{}
	err := scanner.Scan(
		&m.ID, &m.Name, &m.LocKind, &m.Path, &m.ProjectID, &m.PackageID, &m.ExtRef, &m.HasExports,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) queryModules(query string, args ...any) ([]*Module, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var modules []*Module
	for rows.Next() {
		m, err := s.scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// ModulesByName returns all stored modules with the given dotted name.
func (s *Store) ModulesByName(name string) ([]*Module, error) {
	return s.queryModules("SELECT "+moduleCols+" FROM modules WHERE name = ?", name)
}

// ModulesAtPath returns named file-backed modules at the given path.
func (s *Store) ModulesAtPath(name, path string) ([]*Module, error) {
	return s.queryModules(
		"SELECT "+moduleCols+" FROM modules WHERE name = ? AND loc_kind = 'file' AND path = ?",
		name, path,
	)
}

// ModulesInProject returns named modules that are members of a project.
func (s *Store) ModulesInProject(name string, projectID int64) ([]*Module, error) {
	return s.queryModules(
		"SELECT "+moduleCols+" FROM modules WHERE name = ? AND project_id = ?",
		name, projectID,
	)
}

// PackageOriginModules returns named package-origin modules from any
// package set.
func (s *Store) PackageOriginModules(name string) ([]*Module, error) {
	return s.queryModules(
		"SELECT "+moduleCols+" FROM modules WHERE name = ? AND loc_kind = 'package'", name,
	)
}

// PackageModulesInSet returns named package-origin modules within one
// package set.
func (s *Store) PackageModulesInSet(name string, setID int64) ([]*Module, error) {
	return s.queryModules(
		`SELECT m.id, m.name, m.loc_kind, m.path, m.project_id, m.package_id, m.ext_ref, m.has_exports
		 FROM modules m JOIN packages p ON p.id = m.package_id
		 WHERE m.name = ? AND p.set_id = ?`,
		name, setID,
	)
}

// PackageModulesIn returns named package-origin modules from the listed
// packages of one package set.
func (s *Store) PackageModulesIn(name string, setID int64, pkgNames []string) ([]*Module, error) {
	if len(pkgNames) == 0 {
		return nil, nil
	}
	args := append([]any{name, setID}, stringsToArgs(pkgNames)...)
	return s.queryModules(
		`SELECT m.id, m.name, m.loc_kind, m.path, m.project_id, m.package_id, m.ext_ref, m.has_exports
		 FROM modules m JOIN packages p ON p.id = m.package_id
		 WHERE m.name = ? AND p.set_id = ? AND p.name IN (`+placeholderList(len(pkgNames))+`)`,
		args...,
	)
}

// ModulesInPackage returns named modules belonging to one package.
func (s *Store) ModulesInPackage(name string, packageID int64) ([]*Module, error) {
	return s.queryModules(
		"SELECT "+moduleCols+" FROM modules WHERE name = ? AND package_id = ?",
		name, packageID,
	)
}

// ExternalModules returns named external modules with the given opaque
// ref.
func (s *Store) ExternalModules(name, ref string) ([]*Module, error) {
	return s.queryModules(
		"SELECT "+moduleCols+" FROM modules WHERE name = ? AND loc_kind = 'external' AND ext_ref = ?",
		name, ref,
	)
}

// FileModules returns every file-backed module, the roots of a
// resolution run.
func (s *Store) FileModules() ([]*Module, error) {
	return s.queryModules("SELECT " + moduleCols + " FROM modules WHERE loc_kind = 'file' ORDER BY name")
}

// FileModulesNamed returns file-backed modules restricted to the given
// names, resolution roots for a partial run.
func (s *Store) FileModulesNamed(names []string) ([]*Module, error) {
	if len(names) == 0 {
		return nil, nil
	}
	return s.queryModules(
		"SELECT "+moduleCols+" FROM modules WHERE loc_kind = 'file' AND name IN ("+placeholderList(len(names))+") ORDER BY name",
		stringsToArgs(names)...,
	)
}

// ModuleByName returns one named module, preferring file-backed records,
// or nil when unknown. Used by the query layer where any record of the
// module answers the question.
func (s *Store) ModuleByName(name string) (*Module, error) {
	mods, err := s.queryModules(
		"SELECT "+moduleCols+" FROM modules WHERE name = ? ORDER BY CASE loc_kind WHEN 'file' THEN 0 WHEN 'package' THEN 1 ELSE 2 END LIMIT 1",
		name,
	)
	if err != nil {
		return nil, err
	}
	if len(mods) == 0 {
		return nil, nil
	}
	return mods[0], nil
}

// DeleteModuleData transactionally removes a module record and everything
// hanging off it, ahead of re-ingesting the module.
func (s *Store) DeleteModuleData(moduleID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM resolved_scope WHERE module_id = ?",
		"DELETE FROM module_exports WHERE module_id = ?",
		"DELETE FROM export_specs WHERE module_id = ?",
		"DELETE FROM imports WHERE module_id = ?",
		"DELETE FROM declarations WHERE module_id = ?",
		"DELETE FROM modules WHERE id = ?",
	} {
		if _, err := tx.Exec(q, moduleID); err != nil {
			return fmt.Errorf("delete module data: %w", err)
		}
	}
	return tx.Commit()
}

// --- Declaration operations ---

func (s *Store) InsertDeclaration(d *Declaration) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO declarations (module_id, ordinal, name, kind) VALUES (?, ?, ?, ?)",
		d.ModuleID, d.Ordinal, d.Name, d.Kind,
	)
	if err != nil {
		return 0, fmt.Errorf("insert declaration: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	d.ID = id
	return id, nil
}

func (s *Store) DeclarationsByModule(moduleID int64) ([]*Declaration, error) {
	rows, err := s.db.Query(
		"SELECT id, module_id, ordinal, name, kind FROM declarations WHERE module_id = ? ORDER BY ordinal",
		moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("declarations by module: %w", err)
	}
	defer rows.Close()
	var decls []*Declaration
	for rows.Next() {
		d := &Declaration{}
		if err := rows.Scan(&d.ID, &d.ModuleID, &d.Ordinal, &d.Name, &d.Kind); err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		decls = append(decls, d)
	}
	return decls, rows.Err()
}

// --- Import operations ---

func (s *Store) InsertImport(imp *Import) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO imports (module_id, ordinal, target, qualified, alias) VALUES (?, ?, ?, ?, ?)",
		imp.ModuleID, imp.Ordinal, imp.Target, imp.Qualified, imp.Alias,
	)
	if err != nil {
		return 0, fmt.Errorf("insert import: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	imp.ID = id
	return id, nil
}

func (s *Store) ImportsByModule(moduleID int64) ([]*Import, error) {
	rows, err := s.db.Query(
		"SELECT id, module_id, ordinal, target, qualified, alias FROM imports WHERE module_id = ? ORDER BY ordinal",
		moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("imports by module: %w", err)
	}
	defer rows.Close()
	var imports []*Import
	for rows.Next() {
		imp := &Import{}
		if err := rows.Scan(&imp.ID, &imp.ModuleID, &imp.Ordinal, &imp.Target, &imp.Qualified, &imp.Alias); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

// --- Export spec operations ---

func (s *Store) InsertExportSpec(spec *ExportSpec) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO export_specs (module_id, ordinal, kind, alias, name) VALUES (?, ?, ?, ?, ?)",
		spec.ModuleID, spec.Ordinal, spec.Kind, spec.Alias, spec.Name,
	)
	if err != nil {
		return 0, fmt.Errorf("insert export spec: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	spec.ID = id
	return id, nil
}

func (s *Store) ExportSpecsByModule(moduleID int64) ([]*ExportSpec, error) {
	rows, err := s.db.Query(
		"SELECT id, module_id, ordinal, kind, alias, name FROM export_specs WHERE module_id = ? ORDER BY ordinal",
		moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("export specs by module: %w", err)
	}
	defer rows.Close()
	var specs []*ExportSpec
	for rows.Next() {
		spec := &ExportSpec{}
		if err := rows.Scan(&spec.ID, &spec.ModuleID, &spec.Ordinal, &spec.Kind, &spec.Alias, &spec.Name); err != nil {
			return nil, fmt.Errorf("scan export spec: %w", err)
		}
		specs = append(specs, spec)
	}
	return specs, rows.Err()
}
