package modscope

// ProjectRef identifies a build project. A ref carried inside a module
// record may be stale (the Root recorded at scan time can lag the store);
// the store resolves refs canonically by Name.
type ProjectRef struct {
	Name string
	Root string
}

// PackageSetRef identifies an installed package set (a package database or
// sandbox snapshot).
type PackageSetRef struct {
	Name string
}

// PackageRef identifies one installed package within a package set.
type PackageRef struct {
	Name    string
	Version string
}

// Location says where a module lives. It is a closed sum: FileLoc,
// PackageLoc, and ExternalLoc are the only variants, and consumers switch
// exhaustively on them. All variants are comparable, so a Location can key
// a map.
type Location interface {
	// Kind returns the variant tag: "file", "package", or "external".
	Kind() string
	// Key returns a stable canonical string for sorting and persistence.
	Key() string

	isLocation()
}

// FileLoc is a module backed by a source file. Project is the owning build
// project when known; the zero ProjectRef means the file is not associated
// with any project.
type FileLoc struct {
	Path    string
	Project ProjectRef
}

func (FileLoc) isLocation()  {}
func (FileLoc) Kind() string { return "file" }
func (l FileLoc) Key() string {
	return "file:" + l.Path + ":" + l.Project.Name
}

// PackageLoc is a module known only through installed-package metadata.
// Its declarations are recorded but its own imports and export list are
// not, so it is treated as exporting everything it declares.
type PackageLoc struct {
	Set     PackageSetRef
	Package PackageRef
}

func (PackageLoc) isLocation()  {}
func (PackageLoc) Kind() string { return "package" }
func (l PackageLoc) Key() string {
	return "pkg:" + l.Set.Name + ":" + l.Package.Name + "-" + l.Package.Version
}

// ExternalLoc is a module known only by an opaque reference. Like
// PackageLoc it is metadata-only.
type ExternalLoc struct {
	Ref string
}

func (ExternalLoc) isLocation()  {}
func (ExternalLoc) Kind() string { return "external" }
func (l ExternalLoc) Key() string {
	return "ext:" + l.Ref
}

// ModuleID is the identity of a module: its dotted name plus where it
// lives. It keys the resolution memo and all store lookups.
type ModuleID struct {
	Name string
	Loc  Location
}

// Declaration is one top-level declaration. Two declarations are the same
// logical entity iff (Name, Loc) match; Kind carries no identity.
type Declaration struct {
	Name string
	Loc  Location // defining location
	Kind string
}

// key is the merge/identity key for a declaration.
func (d Declaration) key() string {
	return d.Name + "\x00" + d.Loc.Key()
}

// Import is one import statement. An import always brings in the whole
// target module's exported declarations; there are no explicit-name or
// hiding lists. Alias "" means no alias was supplied.
type Import struct {
	Module    string
	Qualified bool
	Alias     string
}

// ExportEntry is one entry of a module's export list. It is a closed sum:
// ExportName and ExportModule are the only variants.
type ExportEntry interface {
	isExportEntry()
}

// ExportName re-exports a single name from scope. When Alias is non-empty
// the name must have been brought in by an import carrying that alias.
type ExportName struct {
	Alias string
	Name  string
}

func (ExportName) isExportEntry() {}

// ExportModule re-exports everything brought into scope by an unqualified
// import of Module.
type ExportModule struct {
	Module string
}

func (ExportModule) isExportEntry() {}

// ExportList is a module's explicit export list. A nil *ExportList means
// the source supplied no list at all; an empty Entries slice is an
// explicit empty list. Both export nothing here, but the distinction is
// kept so upstream normalization stays observable.
type ExportList struct {
	Entries []ExportEntry
}

// Module is one parsed module record as handed over by the scanning front
// end. Decls, Imports, and export entries keep source order.
type Module struct {
	Name    string
	Loc     Location
	Decls   []Declaration
	Imports []Import
	Exports *ExportList
}

// ID returns the module's identity key.
func (m *Module) ID() ModuleID {
	return ModuleID{Name: m.Name, Loc: m.Loc}
}

// ImportedDecl is a declaration in a module's scope together with its
// provenance: the import statements that brought it in. Via is empty for
// the module's own locally defined declarations.
type ImportedDecl struct {
	Via  []Import
	Decl Declaration
}

// Local reports whether the entry is a locally defined declaration.
func (d ImportedDecl) Local() bool {
	return len(d.Via) == 0
}

// ResolvedModule is the output of resolving one module: the full top-level
// scope and the set of declarations the module exports to importers.
type ResolvedModule struct {
	Module  *Module
	Scope   []ImportedDecl
	Exports []Declaration
}
