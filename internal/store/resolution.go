package store

import "fmt"

// --- Resolution output operations ---

// ReplaceResolution transactionally swaps a module's resolution output:
// previous scope and export rows are dropped and the new ones inserted.
// Scope rows keep slice order; export rows are ordinal-ordered.
func (s *Store) ReplaceResolution(moduleID int64, scope []*ScopeEntry, exports []*ExportRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM resolved_scope WHERE module_id = ?", moduleID); err != nil {
		return fmt.Errorf("delete resolved scope: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM module_exports WHERE module_id = ?", moduleID); err != nil {
		return fmt.Errorf("delete module exports: %w", err)
	}

	for _, e := range scope {
		if _, err := tx.Exec(
			`INSERT INTO resolved_scope (module_id, decl_name, decl_kind, decl_loc, loc_kind, loc_project, loc_set, is_local, provenance)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			moduleID, e.DeclName, e.DeclKind, e.DeclLoc, e.LocKind, e.LocProject, e.LocSet, e.IsLocal, e.Provenance,
		); err != nil {
			return fmt.Errorf("insert scope entry: %w", err)
		}
	}
	for i, e := range exports {
		if _, err := tx.Exec(
			`INSERT INTO module_exports (module_id, ordinal, decl_name, decl_kind, decl_loc, loc_kind, loc_project, loc_set)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			moduleID, i, e.DeclName, e.DeclKind, e.DeclLoc, e.LocKind, e.LocProject, e.LocSet,
		); err != nil {
			return fmt.Errorf("insert export row: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) queryScopeEntries(query string, args ...any) ([]*ScopeEntry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*ScopeEntry
	for rows.Next() {
		e := &ScopeEntry{}
		if err := rows.Scan(
			&e.ID, &e.ModuleID, &e.DeclName, &e.DeclKind, &e.DeclLoc,
			&e.LocKind, &e.LocProject, &e.LocSet, &e.IsLocal, &e.Provenance,
		); err != nil {
			return nil, fmt.Errorf("scan scope entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const scopeCols = `id, module_id, decl_name, decl_kind, decl_loc, loc_kind, loc_project, loc_set, is_local, provenance`

// ScopeByModule returns a module's resolved scope in stored order.
func (s *Store) ScopeByModule(moduleID int64) ([]*ScopeEntry, error) {
	return s.queryScopeEntries(
		"SELECT "+scopeCols+" FROM resolved_scope WHERE module_id = ? ORDER BY id", moduleID,
	)
}

// ScopeByName returns scope entries across all modules whose declaration
// name matches exactly.
func (s *Store) ScopeByName(name string) ([]*ScopeEntry, error) {
	return s.queryScopeEntries(
		"SELECT "+scopeCols+" FROM resolved_scope WHERE decl_name = ? ORDER BY module_id, id", name,
	)
}

// ScopeByPrefix returns a module's scope entries whose declaration name
// starts with prefix.
func (s *Store) ScopeByPrefix(moduleID int64, prefix string) ([]*ScopeEntry, error) {
	return s.queryScopeEntries(
		"SELECT "+scopeCols+" FROM resolved_scope WHERE module_id = ? AND decl_name LIKE ? ORDER BY decl_name, id",
		moduleID, prefix+"%",
	)
}

// ExportsByModule returns a module's computed exports in export-list
// order.
func (s *Store) ExportsByModule(moduleID int64) ([]*ExportRow, error) {
	rows, err := s.db.Query(
		`SELECT id, module_id, ordinal, decl_name, decl_kind, decl_loc, loc_kind, loc_project, loc_set
		 FROM module_exports WHERE module_id = ? ORDER BY ordinal`, moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("exports by module: %w", err)
	}
	defer rows.Close()
	var exports []*ExportRow
	for rows.Next() {
		e := &ExportRow{}
		if err := rows.Scan(
			&e.ID, &e.ModuleID, &e.Ordinal, &e.DeclName, &e.DeclKind, &e.DeclLoc,
			&e.LocKind, &e.LocProject, &e.LocSet,
		); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		exports = append(exports, e)
	}
	return exports, rows.Err()
}

// DeleteResolutionForModules drops resolution output for the given
// modules, ahead of a partial re-resolve.
func (s *Store) DeleteResolutionForModules(moduleIDs []int64) error {
	if len(moduleIDs) == 0 {
		return nil
	}
	placeholders := placeholderList(len(moduleIDs))
	args := int64sToArgs(moduleIDs)
	for _, q := range []string{
		"DELETE FROM resolved_scope WHERE module_id IN (" + placeholders + ")",
		"DELETE FROM module_exports WHERE module_id IN (" + placeholders + ")",
	} {
		if _, err := s.db.Exec(q, args...); err != nil {
			return fmt.Errorf("delete resolution data: %w", err)
		}
	}
	return nil
}
