// Package modscope is the scope and name-resolution engine of a source
// code indexing backend. Given a store of already-parsed module records,
// it computes per module the full set of declarations visible at top
// level (the scope) and the set of declarations the module re-exports to
// importers.
//
// # Pipeline
//
// Modscope sits between a scanning front end and query consumers:
//
//  1. Load: a front end parses source files elsewhere and hands over
//     module records (declarations, imports, export list) as a JSON
//     manifest, which [Engine.LoadManifest] ingests into SQLite.
//
//  2. Resolve: [Engine.ResolveAll] runs the resolution algorithm over all
//     file-backed modules, following imports recursively through one
//     shared memo, and persists each module's scope and exports.
//
//  3. Query: the [QueryBuilder] answers find-declaration, browse-module,
//     autocomplete, and go-to-declaration requests from the persisted
//     resolution output.
//
// # Resolution
//
// The core algorithm lives in [Resolver] and is pure computation over a
// [ModuleStore]. For a file-backed module, the scope is the module's own
// declarations plus the merged exports of every import target (including
// an implicit import of a configurable bootstrap module); exports are
// computed by evaluating the module's export list against that scope.
// Package-origin and external modules are metadata-only and export
// everything they declare.
//
// Missing import targets, unmatched export names, and empty candidate
// sets all degrade to zero declarations rather than failing, so a
// partially scanned store still resolves everything that is known.
// Ambiguous imports resolve every candidate and union the results.
// Cyclic import graphs are cut with an empty placeholder and reported
// via [Resolver.Cycles].
//
// # Usage
//
//	e, err := modscope.New("modscope.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	_, err = e.LoadManifest("modules.json")
//	err = e.ResolveAll(context.Background())
//
//	q := e.Query()
//	sites, err := q.FindDeclaration("insert", modscope.QueryFilter{})
package modscope
