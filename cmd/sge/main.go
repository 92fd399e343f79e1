// sge answers symbol graph queries over a directory of compiler-produced
// *.symbols.json artifacts: references, resolution, dependency cycles, and
// refactor impact. Output is JSON for tooling.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/sge/internal/config"
	"github.com/standardbeagle/sge/internal/graph"
	"github.com/standardbeagle/sge/internal/ingest"
	"github.com/standardbeagle/sge/internal/manager"
	"github.com/standardbeagle/sge/internal/resolve"
	"github.com/standardbeagle/sge/internal/stdlib"
	"github.com/standardbeagle/sge/internal/types"
)

var Version = "0.3.0"

func main() {
	app := &cli.App{
		Name:                   "sge",
		Usage:                  "Symbol graph queries over compiled symbol table artifacts",
		Version:                Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Value:   ".",
				Usage:   "directory of *.symbols.json artifacts",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Value:   ".",
				Usage:   "project root holding .sge.kdl or sge.toml",
			},
			&cli.StringFlag{
				Name:    "lib",
				Aliases: []string{"l"},
				Usage:   "directory of bundled library tables (*.symbols.json.gz)",
			},
		},
		Commands: []*cli.Command{
			statsCommand(),
			cyclesCommand(),
			refsCommand(),
			resolveCommand(),
			impactCommand(),
			depsCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildManager loads config and feeds every artifact under --dir into a
// fresh manager.
func buildManager(c *cli.Context) (*manager.Manager, error) {
	cfg, err := config.Load(c.String("root"))
	if err != nil {
		return nil, err
	}

	m := manager.New(cfg)
	if err := loadLibrary(c, cfg, m); err != nil {
		m.Close()
		return nil, err
	}
	if _, err := ingest.LoadDir(c.String("dir"), m); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// loadLibrary feeds the bundled library tables in before any workspace
// artifacts, so workspace symbols can reference built-in types on arrival.
func loadLibrary(c *cli.Context, cfg *config.Config, m *manager.Manager) error {
	dir := c.String("lib")
	if dir == "" {
		return nil
	}
	loader := stdlib.NewLoader(os.DirFS(dir), cfg.Stdlib.Include, m)
	_, err := loader.LoadAll()
	return err
}

// lookupSymbol resolves a CLI argument to one symbol: FQN match first, then
// unique simple name. Ambiguous names list their candidates; misses offer
// spelling suggestions.
func lookupSymbol(m *manager.Manager, arg string) (*types.Symbol, error) {
	if sym := m.FindSymbolByFQN(arg); sym != nil {
		return sym, nil
	}

	matches := m.FindSymbolByName(arg)
	switch len(matches) {
	case 0:
		if suggestions := m.SuggestNames(arg, 3); len(suggestions) > 0 {
			return nil, fmt.Errorf("no symbol named %q; did you mean %v?", arg, suggestions)
		}
		return nil, fmt.Errorf("no symbol named %q", arg)
	case 1:
		return matches[0], nil
	default:
		fqns := make([]string, 0, len(matches))
		for _, sym := range matches {
			fqns = append(fqns, sym.EffectiveFQN())
		}
		sort.Strings(fqns)
		return nil, fmt.Errorf("%q is ambiguous, qualify it: %v", arg, fqns)
	}
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Engine-wide counters: files, symbols, edges, cache hit rates",
		Action: func(c *cli.Context) error {
			m, err := buildManager(c)
			if err != nil {
				return err
			}
			defer m.Close()
			return printJSON(c, m.GetStats())
		},
	}
}

func cyclesCommand() *cli.Command {
	return &cli.Command{
		Name:  "cycles",
		Usage: "List every circular dependency in the workspace",
		Action: func(c *cli.Context) error {
			m, err := buildManager(c)
			if err != nil {
				return err
			}
			defer m.Close()

			type namedCycle struct {
				Symbols []string `json:"symbols"`
			}
			cycles := m.DetectCircularDependencies()
			out := make([]namedCycle, 0, len(cycles))
			for _, cycle := range cycles {
				names := make([]string, 0, len(cycle))
				for _, id := range cycle {
					names = append(names, displayName(m, id))
				}
				out = append(out, namedCycle{Symbols: names})
			}
			return printJSON(c, out)
		},
	}
}

func refsCommand() *cli.Command {
	return &cli.Command{
		Name:      "refs",
		Usage:     "List references to (or from) a symbol",
		ArgsUsage: "<name-or-fqn>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "from",
				Usage: "list outgoing references instead of incoming",
			},
			&cli.StringFlag{
				Name:  "type",
				Usage: "filter by relationship type (e.g. method_call, inheritance)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one symbol name")
			}
			m, err := buildManager(c)
			if err != nil {
				return err
			}
			defer m.Close()

			sym, err := lookupSymbol(m, c.Args().First())
			if err != nil {
				return err
			}

			incoming := !c.Bool("from")
			var refs []graph.Reference
			if typeFlag := c.String("type"); typeFlag != "" {
				refType := types.ParseReferenceType(typeFlag)
				if refType == types.RefUnknown {
					return fmt.Errorf("unknown relationship type %q", typeFlag)
				}
				refs = m.FindRelated(sym.ID, refType, incoming)
			} else if incoming {
				refs = m.FindReferencesTo(sym.ID)
			} else {
				refs = m.FindReferencesFrom(sym.ID)
			}

			type namedRef struct {
				Symbol   string         `json:"symbol"`
				Type     string         `json:"type"`
				Location types.Location `json:"location"`
			}
			out := make([]namedRef, 0, len(refs))
			for _, ref := range refs {
				out = append(out, namedRef{
					Symbol:   displayName(m, ref.SymbolID),
					Type:     ref.Type.String(),
					Location: ref.Location,
				})
			}
			return printJSON(c, out)
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Disambiguate a name the way the editor would",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "namespace",
				Aliases: []string{"n"},
				Usage:   "namespace of the resolution site",
			},
			&cli.StringSliceFlag{
				Name:    "import",
				Aliases: []string{"i"},
				Usage:   "import statement visible at the site (repeatable)",
			},
			&cli.StringFlag{
				Name:  "expected-type",
				Usage: "expected type at the site",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one symbol name")
			}
			m, err := buildManager(c)
			if err != nil {
				return err
			}
			defer m.Close()

			res := m.ResolveSymbol(c.Args().First(), &resolve.Context{
				Namespace:    c.String("namespace"),
				Imports:      c.StringSlice("import"),
				ExpectedType: c.String("expected-type"),
			})
			return printJSON(c, res)
		},
	}
}

func impactCommand() *cli.Command {
	return &cli.Command{
		Name:      "impact",
		Usage:     "Estimate the blast radius of changing a symbol",
		ArgsUsage: "<name-or-fqn>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one symbol name")
			}
			m, err := buildManager(c)
			if err != nil {
				return err
			}
			defer m.Close()

			sym, err := lookupSymbol(m, c.Args().First())
			if err != nil {
				return err
			}
			return printJSON(c, m.GetImpactAnalysis(sym.ID))
		},
	}
}

func depsCommand() *cli.Command {
	return &cli.Command{
		Name:      "deps",
		Usage:     "Direct dependencies and dependents for one or more symbols",
		ArgsUsage: "<name-or-fqn>...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("expected at least one symbol name")
			}
			m, err := buildManager(c)
			if err != nil {
				return err
			}
			defer m.Close()

			ids := make([]types.SymbolID, 0, c.NArg())
			for _, arg := range c.Args().Slice() {
				sym, err := lookupSymbol(m, arg)
				if err != nil {
					return err
				}
				ids = append(ids, sym.ID)
			}

			results, err := m.AnalyzeDependenciesBatch(c.Context, ids)
			if err != nil {
				return err
			}
			return printJSON(c, results)
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Keep the engine synchronized with the artifact directory",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("root"))
			if err != nil {
				return err
			}

			m := manager.New(cfg)
			defer m.Close()

			if err := loadLibrary(c, cfg, m); err != nil {
				return err
			}

			dir := c.String("dir")
			debounce := time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
			w, err := ingest.NewWatcher(dir, debounce, m)
			if err != nil {
				return err
			}
			defer w.Close()

			n, err := w.Seed(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "loaded %d symbol tables from %s\n", n, dir)
			w.Start()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			fmt.Fprintln(c.App.Writer, "shutting down")
			return nil
		},
	}
}

func displayName(m *manager.Manager, id types.SymbolID) string {
	if sym := m.SymbolByID(id); sym != nil {
		return sym.EffectiveFQN()
	}
	return fmt.Sprintf("symbol:%d", uint64(id))
}
