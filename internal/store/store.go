package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the module store: workspace
// metadata (projects, build targets, package sets), module records handed
// over by the scanning front end, and resolution output.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
-- Workspace tables

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL UNIQUE,
  root            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS build_targets (
  id              INTEGER PRIMARY KEY,
  project_id      INTEGER NOT NULL REFERENCES projects(id),
  name            TEXT NOT NULL,
  src_dir         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS package_sets (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS packages (
  id              INTEGER PRIMARY KEY,
  set_id          INTEGER NOT NULL REFERENCES package_sets(id),
  name            TEXT NOT NULL,
  version         TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS target_deps (
  id              INTEGER PRIMARY KEY,
  target_id       INTEGER NOT NULL REFERENCES build_targets(id),
  package_id      INTEGER NOT NULL REFERENCES packages(id)
);

-- Module record tables (hand-off from the scanning front end)

CREATE TABLE IF NOT EXISTS modules (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL,
  loc_kind        TEXT NOT NULL,          -- file | package | external
  path            TEXT NOT NULL DEFAULT '',
  project_id      INTEGER REFERENCES projects(id),
  package_id      INTEGER REFERENCES packages(id),
  ext_ref         TEXT NOT NULL DEFAULT '',
  has_exports     BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS declarations (
  id              INTEGER PRIMARY KEY,
  module_id       INTEGER NOT NULL REFERENCES modules(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS imports (
  id              INTEGER PRIMARY KEY,
  module_id       INTEGER NOT NULL REFERENCES modules(id),
  ordinal         INTEGER NOT NULL,
  target          TEXT NOT NULL,
  qualified       BOOLEAN NOT NULL DEFAULT FALSE,
  alias           TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS export_specs (
  id              INTEGER PRIMARY KEY,
  module_id       INTEGER NOT NULL REFERENCES modules(id),
  ordinal         INTEGER NOT NULL,
  kind            TEXT NOT NULL,          -- name | module
  alias           TEXT NOT NULL DEFAULT '',
  name            TEXT NOT NULL
);

-- Resolution output tables

CREATE TABLE IF NOT EXISTS resolved_scope (
  id              INTEGER PRIMARY KEY,
  module_id       INTEGER NOT NULL REFERENCES modules(id),
  decl_name       TEXT NOT NULL,
  decl_kind       TEXT NOT NULL,
  decl_loc        TEXT NOT NULL,          -- canonical location key
  loc_kind        TEXT NOT NULL,
  loc_project     TEXT NOT NULL DEFAULT '',
  loc_set         TEXT NOT NULL DEFAULT '',
  is_local        BOOLEAN NOT NULL DEFAULT FALSE,
  provenance      TEXT NOT NULL DEFAULT '[]'  -- JSON list of contributing imports
);

CREATE TABLE IF NOT EXISTS module_exports (
  id              INTEGER PRIMARY KEY,
  module_id       INTEGER NOT NULL REFERENCES modules(id),
  ordinal         INTEGER NOT NULL,
  decl_name       TEXT NOT NULL,
  decl_kind       TEXT NOT NULL,
  decl_loc        TEXT NOT NULL,
  loc_kind        TEXT NOT NULL,
  loc_project     TEXT NOT NULL DEFAULT '',
  loc_set         TEXT NOT NULL DEFAULT ''
);

-- Indexes

CREATE INDEX IF NOT EXISTS idx_build_targets_project ON build_targets(project_id);
CREATE INDEX IF NOT EXISTS idx_packages_set ON packages(set_id);
CREATE INDEX IF NOT EXISTS idx_target_deps_target ON target_deps(target_id);
CREATE INDEX IF NOT EXISTS idx_modules_name ON modules(name);
CREATE INDEX IF NOT EXISTS idx_modules_path ON modules(path);
CREATE INDEX IF NOT EXISTS idx_modules_project ON modules(project_id);
CREATE INDEX IF NOT EXISTS idx_modules_package ON modules(package_id);
CREATE INDEX IF NOT EXISTS idx_declarations_module ON declarations(module_id);
CREATE INDEX IF NOT EXISTS idx_declarations_name ON declarations(name);
CREATE INDEX IF NOT EXISTS idx_imports_module ON imports(module_id);
CREATE INDEX IF NOT EXISTS idx_export_specs_module ON export_specs(module_id);
CREATE INDEX IF NOT EXISTS idx_resolved_scope_module ON resolved_scope(module_id);
CREATE INDEX IF NOT EXISTS idx_resolved_scope_name ON resolved_scope(decl_name);
CREATE INDEX IF NOT EXISTS idx_module_exports_module ON module_exports(module_id);
CREATE INDEX IF NOT EXISTS idx_module_exports_name ON module_exports(decl_name);
`

// GetMetadata returns the value stored under key, or "" when absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata: %w", err)
	}
	return value, nil
}

// SetMetadata upserts a metadata key.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}
