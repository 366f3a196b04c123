package modscope

// exportedDecls evaluates one export-list entry against a resolved scope.
// Unmatched entries contribute nothing.
//
// A locally defined declaration has empty provenance, so it can never
// satisfy the "has an unqualified contributing import" test below: only
// imported declarations are re-exportable through an export list. The
// surrounding system is expected to normalize "no export list" to an
// explicit export-everything list before records reach this engine.
func exportedDecls(scope []ImportedDecl, entry ExportEntry) []Declaration {
	switch e := entry.(type) {
	case ExportName:
		for _, in := range scope {
			if in.Decl.Name != e.Name {
				continue
			}
			if e.Alias == "" {
				if hasUnqualified(in.Via) {
					return []Declaration{in.Decl}
				}
			} else if hasAlias(in.Via, e.Alias) {
				return []Declaration{in.Decl}
			}
		}
		return nil

	case ExportModule:
		var out []Declaration
		for _, in := range scope {
			if hasUnqualifiedOf(in.Via, e.Module) {
				out = append(out, in.Decl)
			}
		}
		return out
	}
	return nil
}

// hasUnqualified reports whether any contributing import is unqualified.
func hasUnqualified(via []Import) bool {
	for _, imp := range via {
		if !imp.Qualified {
			return true
		}
	}
	return false
}

// hasAlias reports whether any contributing import carries the alias.
// Qualified or not is irrelevant once an alias is supplied.
func hasAlias(via []Import, alias string) bool {
	for _, imp := range via {
		if imp.Alias == alias {
			return true
		}
	}
	return false
}

// hasUnqualifiedOf reports whether any contributing import is an
// unqualified import of the named module.
func hasUnqualifiedOf(via []Import, module string) bool {
	for _, imp := range via {
		if !imp.Qualified && imp.Module == module {
			return true
		}
	}
	return false
}
