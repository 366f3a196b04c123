package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pbraun/modscope"
	"github.com/pbraun/modscope/internal/config"
	"github.com/spf13/cobra"
)

var (
	flagDB     string
	flagFormat string
	flagConfig string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "modscope",
	Short:         "Module scope and export resolution for a code index",
	Long:          "Modscope ingests parsed module records, resolves each module's top-level scope and exports, and answers find/browse/complete/definition queries from a SQLite database.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "modscope.db", "database path")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file (bootstrap module, source extension)")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(queryCmd)
}

// openEngine builds an Engine from the persistent flags.
func openEngine(force bool) (*modscope.Engine, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	return modscope.New(flagDB, modscope.WithConfig(cfg), modscope.WithForce(force))
}

var loadCmd = &cobra.Command{
	Use:   "load <manifest.json>",
	Short: "Ingest a parsed-module manifest into the database",
	Long:  "Reads a JSON manifest of projects, package sets, and parsed module records, replacing prior records for any module named again.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

func runLoad(cmd *cobra.Command, args []string) error {
	e, err := openEngine(false)
	if err != nil {
		return err
	}
	defer e.Close()

	n, err := e.LoadManifest(args[0])
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	return outputResult(CLIResult{
		Command: "load",
		Results: CLILoadSummary{Manifest: args[0], Modules: n},
	})
}

var flagForce bool

var resolveCmd = &cobra.Command{
	Use:   "resolve [module...]",
	Short: "Resolve module scopes and exports",
	Long:  "Resolves every file-backed module (or only the named ones) and persists each module's top-level scope and export set.",
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&flagForce, "force", false, "re-resolve even when the manifest is unchanged")
}

func runResolve(cmd *cobra.Command, args []string) error {
	start := time.Now()

	e, err := openEngine(flagForce)
	if err != nil {
		return err
	}
	defer e.Close()

	if len(args) > 0 {
		err = e.ResolveModules(cmd.Context(), args)
	} else {
		err = e.ResolveAll(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	summary := CLIResolveSummary{DurationMS: time.Since(start).Milliseconds()}
	summary.Modules, err = countFileModules(e)
	if err != nil {
		return err
	}
	for _, c := range e.Cycles() {
		summary.Cycles = append(summary.Cycles, CLICycle{Module: c.Module.Name, Via: c.Via.Name})
	}
	for _, a := range e.Ambiguities() {
		summary.Ambiguities = append(summary.Ambiguities, CLIAmbiguity{
			Module:     a.Module.Name,
			Import:     a.Import.Module,
			Candidates: a.Candidates,
		})
	}
	return outputResult(CLIResult{Command: "resolve", Results: summary})
}

func countFileModules(e *modscope.Engine) (int, error) {
	rows, err := e.Store().FileModules()
	if err != nil {
		return 0, fmt.Errorf("count modules: %w", err)
	}
	return len(rows), nil
}

var (
	flagProject    string
	flagPackageSet string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query resolved scopes and exports",
	Long:  "Run queries against resolved module data. Run 'modscope resolve' first.",
}

func init() {
	queryCmd.PersistentFlags().StringVar(&flagProject, "project", "", "restrict to declarations defined in this project")
	queryCmd.PersistentFlags().StringVar(&flagPackageSet, "package-set", "", "restrict to declarations defined in this package set")

	queryCmd.AddCommand(findCmd)
	queryCmd.AddCommand(browseCmd)
	queryCmd.AddCommand(completeCmd)
	queryCmd.AddCommand(defCmd)
}

func queryFilter() modscope.QueryFilter {
	return modscope.QueryFilter{Project: flagProject, PackageSet: flagPackageSet}
}

// withQuery opens the engine, runs fn against its QueryBuilder, and emits
// the result under the given command name.
func withQuery(command string, fn func(q *modscope.QueryBuilder) ([]modscope.DeclSite, error)) error {
	e, err := openEngine(false)
	if err != nil {
		return err
	}
	defer e.Close()

	sites, err := fn(e.Query())
	if err != nil {
		return err
	}
	return outputResult(CLIResult{Command: command, Results: cliDecls(sites)})
}

var findCmd = &cobra.Command{
	Use:   "find <name>",
	Short: "Find a declaration by exact name across all module scopes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("find", func(q *modscope.QueryBuilder) ([]modscope.DeclSite, error) {
			return q.FindDeclaration(args[0], queryFilter())
		})
	},
}

var browseCmd = &cobra.Command{
	Use:   "browse <module>",
	Short: "List the declarations a module exports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("browse", func(q *modscope.QueryBuilder) ([]modscope.DeclSite, error) {
			return q.BrowseModule(args[0])
		})
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <module> <prefix>",
	Short: "List scope entries of a module matching a name prefix",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("complete", func(q *modscope.QueryBuilder) ([]modscope.DeclSite, error) {
			return q.Complete(args[0], args[1], queryFilter())
		})
	},
}

var defCmd = &cobra.Command{
	Use:   "def <module> <name>",
	Short: "Show where a name visible in a module is defined",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("def", func(q *modscope.QueryBuilder) ([]modscope.DeclSite, error) {
			return q.DefinitionOf(args[0], args[1])
		})
	},
}

// cliDecls converts query results to their CLI representation.
func cliDecls(sites []modscope.DeclSite) []CLIDecl {
	out := make([]CLIDecl, 0, len(sites))
	for _, s := range sites {
		d := CLIDecl{
			Module:   s.Module,
			Name:     s.Name,
			Kind:     s.Kind,
			Location: s.Location,
			Local:    s.Local,
		}
		for _, imp := range s.Via {
			d.Via = append(d.Via, CLIImport{
				Module:    imp.Module,
				Qualified: imp.Qualified,
				Alias:     imp.Alias,
			})
		}
		out = append(out, d)
	}
	return out
}
