package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputResultText dispatches to the appropriate text formatter based on
// the result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []CLIDecl:
		formatDeclsText(w, v)
	case CLILoadSummary:
		fmt.Fprintf(w, "Loaded %d module(s) from %s\n", v.Modules, v.Manifest)
	case CLIResolveSummary:
		formatResolveSummaryText(w, v)
	case nil:
		// No output for nil results.
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// formatDeclsText formats declaration hits as aligned columns.
func formatDeclsText(w io.Writer, decls []CLIDecl) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tNAME\tKIND\tLOCATION\tVIA")
	for _, d := range decls {
		via := "local"
		if len(d.Via) > 0 {
			parts := make([]string, len(d.Via))
			for i, imp := range d.Via {
				parts[i] = formatImport(imp)
			}
			via = strings.Join(parts, ", ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Module, d.Name, d.Kind, d.Location, via)
	}
	tw.Flush()
}

// formatImport renders one contributing import as "import [qualified] M [as A]".
func formatImport(imp CLIImport) string {
	var b strings.Builder
	b.WriteString("import ")
	if imp.Qualified {
		b.WriteString("qualified ")
	}
	b.WriteString(imp.Module)
	if imp.Alias != "" {
		b.WriteString(" as ")
		b.WriteString(imp.Alias)
	}
	return b.String()
}

// formatResolveSummaryText formats a resolution run summary.
func formatResolveSummaryText(w io.Writer, s CLIResolveSummary) {
	fmt.Fprintf(w, "Resolved %d module(s) in %dms\n", s.Modules, s.DurationMS)
	if len(s.Cycles) > 0 {
		fmt.Fprintf(w, "Cycles: %d\n", len(s.Cycles))
		for _, c := range s.Cycles {
			fmt.Fprintf(w, "  %s (via %s)\n", c.Module, c.Via)
		}
	}
	if len(s.Ambiguities) > 0 {
		fmt.Fprintf(w, "Ambiguous imports: %d\n", len(s.Ambiguities))
		for _, a := range s.Ambiguities {
			fmt.Fprintf(w, "  %s imports %s (%d candidates)\n", a.Module, a.Import, a.Candidates)
		}
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
