package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// --- Project operations ---

// UpsertProject inserts a project or updates its root when the name is
// already known. The stored row is canonical; refs carried inside module
// records may lag it.
func (s *Store) UpsertProject(p *Project) (int64, error) {
	_, err := s.db.Exec(
		"INSERT INTO projects (name, root) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET root = excluded.root",
		p.Name, p.Root,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert project: %w", err)
	}
	stored, err := s.ProjectByName(p.Name)
	if err != nil {
		return 0, err
	}
	p.ID = stored.ID
	p.Root = stored.Root
	return p.ID, nil
}

func (s *Store) ProjectByName(name string) (*Project, error) {
	p := &Project{}
	err := s.db.QueryRow(
		"SELECT id, name, root FROM projects WHERE name = ?", name,
	).Scan(&p.ID, &p.Name, &p.Root)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("project by name: %w", err)
	}
	return p, nil
}

func (s *Store) ProjectByID(id int64) (*Project, error) {
	p := &Project{}
	err := s.db.QueryRow(
		"SELECT id, name, root FROM projects WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.Root)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("project by id: %w", err)
	}
	return p, nil
}

// --- Build target operations ---

func (s *Store) InsertBuildTarget(t *BuildTarget) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO build_targets (project_id, name, src_dir) VALUES (?, ?, ?)",
		t.ProjectID, t.Name, t.SrcDir,
	)
	if err != nil {
		return 0, fmt.Errorf("insert build target: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id
	return id, nil
}

// DeleteTargetsForProject removes a project's build targets and their
// declared dependencies, ahead of re-ingesting the project.
func (s *Store) DeleteTargetsForProject(projectID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM target_deps WHERE target_id IN (SELECT id FROM build_targets WHERE project_id = ?)",
		projectID,
	); err != nil {
		return fmt.Errorf("delete target deps: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM build_targets WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("delete build targets: %w", err)
	}
	return tx.Commit()
}

// TargetForFile returns the build target owning the file within the
// project: the target with the deepest src_dir that is a path prefix of
// the file. Nil when no target's src_dir contains the file.
func (s *Store) TargetForFile(projectID int64, path string) (*BuildTarget, error) {
	rows, err := s.db.Query(
		"SELECT id, project_id, name, src_dir FROM build_targets WHERE project_id = ?", projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("targets for project: %w", err)
	}
	defer rows.Close()

	var best *BuildTarget
	for rows.Next() {
		t := &BuildTarget{}
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Name, &t.SrcDir); err != nil {
			return nil, fmt.Errorf("scan build target: %w", err)
		}
		if !strings.HasPrefix(path, strings.TrimSuffix(t.SrcDir, "/")+"/") {
			continue
		}
		if best == nil || len(t.SrcDir) > len(best.SrcDir) {
			best = t
		}
	}
	return best, rows.Err()
}

// --- Package set operations ---

func (s *Store) UpsertPackageSet(name string) (int64, error) {
	_, err := s.db.Exec(
		"INSERT INTO package_sets (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert package set: %w", err)
	}
	var id int64
	if err := s.db.QueryRow("SELECT id FROM package_sets WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("package set id: %w", err)
	}
	return id, nil
}

func (s *Store) PackageSetByID(id int64) (*PackageSet, error) {
	ps := &PackageSet{}
	err := s.db.QueryRow(
		"SELECT id, name FROM package_sets WHERE id = ?", id,
	).Scan(&ps.ID, &ps.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("package set by id: %w", err)
	}
	return ps, nil
}

func (s *Store) PackageSetByName(name string) (*PackageSet, error) {
	ps := &PackageSet{}
	err := s.db.QueryRow(
		"SELECT id, name FROM package_sets WHERE name = ?", name,
	).Scan(&ps.ID, &ps.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("package set by name: %w", err)
	}
	return ps, nil
}

// --- Package operations ---

func (s *Store) UpsertPackage(p *Package) (int64, error) {
	var id int64
	err := s.db.QueryRow(
		"SELECT id FROM packages WHERE set_id = ? AND name = ? AND version = ?",
		p.SetID, p.Name, p.Version,
	).Scan(&id)
	if err == nil {
		p.ID = id
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("package lookup: %w", err)
	}

	res, err := s.db.Exec(
		"INSERT INTO packages (set_id, name, version) VALUES (?, ?, ?)",
		p.SetID, p.Name, p.Version,
	)
	if err != nil {
		return 0, fmt.Errorf("insert package: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	p.ID = id
	return id, nil
}

func (s *Store) PackageByID(id int64) (*Package, error) {
	p := &Package{}
	err := s.db.QueryRow(
		"SELECT id, set_id, name, version FROM packages WHERE id = ?", id,
	).Scan(&p.ID, &p.SetID, &p.Name, &p.Version)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("package by id: %w", err)
	}
	return p, nil
}

// --- Target dependency operations ---

func (s *Store) InsertTargetDep(targetID, packageID int64) error {
	_, err := s.db.Exec(
		"INSERT INTO target_deps (target_id, package_id) VALUES (?, ?)", targetID, packageID,
	)
	if err != nil {
		return fmt.Errorf("insert target dep: %w", err)
	}
	return nil
}

// TargetDeps returns the packages a build target declares as
// dependencies.
func (s *Store) TargetDeps(targetID int64) ([]*Package, error) {
	rows, err := s.db.Query(
		`SELECT p.id, p.set_id, p.name, p.version
		 FROM target_deps d JOIN packages p ON p.id = d.package_id
		 WHERE d.target_id = ?`, targetID,
	)
	if err != nil {
		return nil, fmt.Errorf("target deps: %w", err)
	}
	defer rows.Close()

	var pkgs []*Package
	for rows.Next() {
		p := &Package{}
		if err := rows.Scan(&p.ID, &p.SetID, &p.Name, &p.Version); err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, rows.Err()
}
