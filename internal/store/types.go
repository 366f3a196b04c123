package store

// Workspace domain types

type Project struct {
	ID   int64
	Name string
	Root string
}

type BuildTarget struct {
	ID        int64
	ProjectID int64
	Name      string
	SrcDir    string
}

type PackageSet struct {
	ID   int64
	Name string
}

type Package struct {
	ID      int64
	SetID   int64
	Name    string
	Version string
}

// Module record types

// Module is one stored module record. Exactly one location shape is
// populated depending on LocKind: Path+ProjectID for "file", PackageID
// for "package", ExtRef for "external".
type Module struct {
	ID         int64
	Name       string
	LocKind    string
	Path       string
	ProjectID  *int64
	PackageID  *int64
	ExtRef     string
	HasExports bool
}

type Declaration struct {
	ID       int64
	ModuleID int64
	Ordinal  int
	Name     string
	Kind     string
}

type Import struct {
	ID        int64
	ModuleID  int64
	Ordinal   int
	Target    string
	Qualified bool
	Alias     string
}

// ExportSpec is one entry of a module's explicit export list. Kind is
// "name" (Name plus optional Alias qualifier) or "module" (Name holds the
// re-exported module name).
type ExportSpec struct {
	ID       int64
	ModuleID int64
	Ordinal  int
	Kind     string
	Alias    string
	Name     string
}

// Resolution output types

// ScopeEntry is one declaration visible at a module's top level.
// Provenance is a JSON list of the contributing import statements, empty
// for local declarations.
type ScopeEntry struct {
	ID         int64
	ModuleID   int64
	DeclName   string
	DeclKind   string
	DeclLoc    string
	LocKind    string
	LocProject string
	LocSet     string
	IsLocal    bool
	Provenance string
}

// ExportRow is one declaration a module exports, in export-list order.
type ExportRow struct {
	ID         int64
	ModuleID   int64
	Ordinal    int
	DeclName   string
	DeclKind   string
	DeclLoc    string
	LocKind    string
	LocProject string
	LocSet     string
}
