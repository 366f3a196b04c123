package modscope

import "sort"

// mergeScope coalesces duplicate declaration entries brought in through
// different imports. Entries group by (declaration name, defining
// location); each group collapses to a single entry whose provenance is
// the concatenation of every member's provenance in sorted-group order.
// Duplicate imports inside a group are preserved: the same import
// statement can legitimately contribute a declaration more than once when
// several candidate modules re-export it.
//
// The output is ordered by group key, not by input order.
func mergeScope(entries []ImportedDecl) []ImportedDecl {
	if len(entries) == 0 {
		return nil
	}

	sorted := make([]ImportedDecl, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Decl.key() < sorted[j].Decl.key()
	})

	merged := make([]ImportedDecl, 0, len(sorted))
	for _, e := range sorted {
		if n := len(merged); n > 0 && merged[n-1].Decl.key() == e.Decl.key() {
			merged[n-1].Via = append(merged[n-1].Via, e.Via...)
			continue
		}
		merged = append(merged, ImportedDecl{
			Via:  append([]Import(nil), e.Via...),
			Decl: e.Decl,
		})
	}
	return merged
}
