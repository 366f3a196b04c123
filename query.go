package modscope

import (
	"encoding/json"
	"fmt"

	"github.com/pbraun/modscope/internal/store"
)

// QueryBuilder answers downstream commands — find declaration, browse
// module, autocomplete, go to declaration — from the persisted resolution
// output. It only reads; resolution must have run first or every query
// comes back empty.
type QueryBuilder struct {
	store *store.Store
}

// QueryFilter narrows query results by the defining location of a
// declaration. Zero-value fields do not filter.
type QueryFilter struct {
	Project    string // only declarations defined in this project's files
	PackageSet string // only declarations defined in this package set
}

// DeclSite is one declaration hit: where it is visible and where it is
// defined.
type DeclSite struct {
	Module   string   // module whose scope or exports contain it
	Name     string   // declaration name
	Kind     string   // declaration kind
	Location string   // canonical defining-location key
	Local    bool     // defined in the module itself
	Via      []Import // contributing imports, empty for local declarations
}

// FindDeclaration returns every scope entry across all resolved modules
// whose declaration name matches exactly.
func (q *QueryBuilder) FindDeclaration(name string, filter QueryFilter) ([]DeclSite, error) {
	entries, err := q.store.ScopeByName(name)
	if err != nil {
		return nil, fmt.Errorf("find declaration: %w", err)
	}
	return q.scopeSites(entries, filter)
}

// BrowseModule returns the declarations a module exports to importers.
// For a package-origin module, which has no computed export rows, it
// falls back to the module's own declarations.
func (q *QueryBuilder) BrowseModule(module string) ([]DeclSite, error) {
	row, err := q.store.ModuleByName(module)
	if err != nil {
		return nil, fmt.Errorf("browse module: %w", err)
	}
	if row == nil {
		return nil, nil
	}

	rows, err := q.store.ExportsByModule(row.ID)
	if err != nil {
		return nil, fmt.Errorf("browse module: %w", err)
	}
	if len(rows) == 0 && row.LocKind != "file" {
		// Package-origin modules export everything they declare.
		decls, err := q.store.DeclarationsByModule(row.ID)
		if err != nil {
			return nil, fmt.Errorf("browse module: %w", err)
		}
		sites := make([]DeclSite, 0, len(decls))
		for _, d := range decls {
			sites = append(sites, DeclSite{
				Module: module,
				Name:   d.Name,
				Kind:   d.Kind,
				Local:  true,
			})
		}
		return sites, nil
	}

	sites := make([]DeclSite, 0, len(rows))
	for _, e := range rows {
		sites = append(sites, DeclSite{
			Module:   module,
			Name:     e.DeclName,
			Kind:     e.DeclKind,
			Location: e.DeclLoc,
		})
	}
	return sites, nil
}

// Complete returns the scope entries of a module whose declaration name
// starts with prefix, for autocomplete.
func (q *QueryBuilder) Complete(module, prefix string, filter QueryFilter) ([]DeclSite, error) {
	row, err := q.store.ModuleByName(module)
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	entries, err := q.store.ScopeByPrefix(row.ID, prefix)
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}
	return q.scopeSites(entries, filter)
}

// DefinitionOf returns the defining location(s) of a name visible in a
// module's scope, for go-to-declaration.
func (q *QueryBuilder) DefinitionOf(module, name string) ([]DeclSite, error) {
	row, err := q.store.ModuleByName(module)
	if err != nil {
		return nil, fmt.Errorf("definition of: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	entries, err := q.store.ScopeByModule(row.ID)
	if err != nil {
		return nil, fmt.Errorf("definition of: %w", err)
	}

	var sites []DeclSite
	for _, e := range entries {
		if e.DeclName != name {
			continue
		}
		site, err := q.scopeSite(e)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, nil
}

// scopeSites converts scope rows to DeclSites, applying the filter.
func (q *QueryBuilder) scopeSites(entries []*store.ScopeEntry, filter QueryFilter) ([]DeclSite, error) {
	var sites []DeclSite
	for _, e := range entries {
		if filter.Project != "" && e.LocProject != filter.Project {
			continue
		}
		if filter.PackageSet != "" && e.LocSet != filter.PackageSet {
			continue
		}
		site, err := q.scopeSite(e)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, nil
}

func (q *QueryBuilder) scopeSite(e *store.ScopeEntry) (DeclSite, error) {
	moduleName, err := q.moduleName(e.ModuleID)
	if err != nil {
		return DeclSite{}, err
	}

	via, err := unmarshalProvenance(e.Provenance)
	if err != nil {
		return DeclSite{}, fmt.Errorf("scope entry %d: %w", e.ID, err)
	}
	return DeclSite{
		Module:   moduleName,
		Name:     e.DeclName,
		Kind:     e.DeclKind,
		Location: e.DeclLoc,
		Local:    e.IsLocal,
		Via:      via,
	}, nil
}

func (q *QueryBuilder) moduleName(moduleID int64) (string, error) {
	var name string
	err := q.store.DB().QueryRow("SELECT name FROM modules WHERE id = ?", moduleID).Scan(&name)
	if err != nil {
		return "", fmt.Errorf("module name: %w", err)
	}
	return name, nil
}

func unmarshalProvenance(s string) ([]Import, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var raw []provImport
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("parse provenance: %w", err)
	}
	out := make([]Import, len(raw))
	for i, p := range raw {
		out[i] = Import{Module: p.Module, Qualified: p.Qualified, Alias: p.Alias}
	}
	return out, nil
}
