// empack turns a directory into a versioned, buildable Minecraft modpack
// project. Grounded on the teacher's main.go: a flag.FlagSet plus a
// declarative command table (gCommands there, dispatcher.Table here),
// generalized to the spec's two-pass validation/execution model and the
// Runtime Boundary's phase gate.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"
	"time"

	"empack/internal/apiclient"
	"empack/internal/boundary"
	"empack/internal/build"
	"empack/internal/cache"
	"empack/internal/catalogns"
	"empack/internal/compat"
	"empack/internal/console"
	"empack/internal/curseforge"
	"empack/internal/declfile"
	"empack/internal/dispatcher"
	"empack/internal/errs"
	"empack/internal/httpx"
	"empack/internal/initializer"
	"empack/internal/lock"
	"empack/internal/manifest"
	"empack/internal/modrinth"
	"empack/internal/probe"
	"empack/internal/resolver"
	"empack/internal/state"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

// globalFlags mirrors the teacher's package-level ARG_* variables, scoped
// into a struct rather than globals since this tool's flags outnumber the
// teacher's by a wide margin.
type globalFlags struct {
	verbose        bool
	debug          bool
	quiet          bool
	dryRun         bool
	nonInteractive bool
	modpackDir     string
	showVersion    bool

	modloader        string
	minecraftVersion string
	neoforgeVersion  string
	fabricVersion    string
	quiltVersion     string
	name             string
	author           string
	packVersion      string
	yes              bool
}

func main() {
	var g globalFlags
	fs := flag.NewFlagSet("empack", flag.ExitOnError)
	fs.BoolVar(&g.verbose, "verbose", false, "enable info-level logging")
	fs.BoolVar(&g.verbose, "v", false, "shorthand for --verbose")
	fs.BoolVar(&g.debug, "debug", false, "enable debug-level logging")
	fs.BoolVar(&g.debug, "d", false, "shorthand for --debug")
	fs.BoolVar(&g.quiet, "quiet", false, "suppress everything but errors")
	fs.BoolVar(&g.quiet, "q", false, "shorthand for --quiet")
	fs.BoolVar(&g.dryRun, "dry-run", false, "print planned operations, make no changes")
	fs.BoolVar(&g.nonInteractive, "non-interactive", false, "fail rather than prompt")
	fs.BoolVar(&g.nonInteractive, "y", false, "shorthand for --non-interactive")
	fs.StringVar(&g.modpackDir, "modpack-directory", ".", "target workspace")
	fs.StringVar(&g.modpackDir, "m", ".", "shorthand for --modpack-directory")
	fs.BoolVar(&g.showVersion, "version", false, "print version and exit")
	fs.BoolVar(&g.showVersion, "V", false, "shorthand for --version")

	fs.StringVar(&g.modloader, "modloader", "", "neoforge|fabric|quilt|forge|none")
	fs.StringVar(&g.minecraftVersion, "minecraft-version", "", "target Minecraft version")
	fs.StringVar(&g.minecraftVersion, "mc-version", "", "shorthand for --minecraft-version")
	fs.StringVar(&g.neoforgeVersion, "neoforge-version", "", "target NeoForge version")
	fs.StringVar(&g.fabricVersion, "fabric-version", "", "target Fabric loader version")
	fs.StringVar(&g.quiltVersion, "quilt-version", "", "target Quilt loader version")
	fs.StringVar(&g.name, "name", "", "pack name")
	fs.StringVar(&g.author, "author", "", "pack author")
	// spec.md §6 names this hybrid flag "--version", which collides with the
	// global --version|-V flag; resolved here as --pack-version (see
	// DESIGN.md, "--version flag collision").
	fs.StringVar(&g.packVersion, "pack-version", "", "pack version")
	fs.BoolVar(&g.yes, "yes", false, "confirm initializing a non-empty directory")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	console.SetLevel(g.verbose, g.debug, g.quiet)
	httpx.Version = version

	if g.showVersion {
		fmt.Println("empack", version)
		return
	}

	if fs.NArg() == 0 {
		printUsage(fs)
		os.Exit(1)
	}

	targetDir, err := filepath.Abs(g.modpackDir)
	if err != nil {
		console.Log.Errorf("resolve modpack directory: %v", err)
		os.Exit(1)
	}
	g.modpackDir = targetDir

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		console.Log.Warn("cancellation requested; finishing in-flight work")
		cancel()
	}()
	defer cancel()

	exitCode := run(ctx, g, fs.Args())
	os.Exit(exitCode)
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintln(os.Stderr, "usage: empack [global flags] <command> [<command>...]")
	fmt.Fprintln(os.Stderr, "\nglobal flags:")
	fs.PrintDefaults()
	fmt.Fprintln(os.Stderr, "\npre-init commands: requirements, info, db-update, init, version, help")
	fmt.Fprintln(os.Stderr, "post-init commands: clean, mrpack, client, server, client-full, server-full, all, resolve")
}

func run(ctx context.Context, g globalFlags, commands []string) int {
	store := state.New()
	w := boundary.New(g.modpackDir)

	table := dispatcher.NewTable()
	table.RegisterMeta(build.TargetAll, build.TargetMrpack, build.TargetClient, build.TargetServer)

	registerPreInitCommands(table, store, w, g)
	registerPostInitCommands(table, store, w, g)

	if g.dryRun {
		return dryRun(table, w, commands)
	}

	needsLock := needsWorkspaceLock(commands)
	var heldLock *lock.Lock
	if needsLock {
		l, err := lock.Acquire(g.modpackDir, joinCommands(commands), time.Now().Format(time.RFC3339))
		if err != nil {
			return report(err)
		}
		heldLock = l
		defer heldLock.Release()
	}

	if err := dispatcher.Dispatch(ctx, table, w, commands); err != nil {
		return report(err)
	}
	return 0
}

func needsWorkspaceLock(commands []string) bool {
	for _, c := range commands {
		switch c {
		case "init", build.TargetClean, build.TargetMrpack, build.TargetClient,
			build.TargetServer, build.TargetClientFull, build.TargetServerFull, build.TargetAll, "resolve":
			return true
		}
	}
	return false
}

func joinCommands(commands []string) string {
	out := ""
	for i, c := range commands {
		if i > 0 {
			out += " "
		}
		out += c
	}
	return out
}

func dryRun(table *dispatcher.Table, w *boundary.Workspace, commands []string) int {
	plan, err := table.Validate(w, commands)
	if err != nil {
		return report(err)
	}
	fmt.Println("--- DRY RUN: planned operations ---")
	for _, c := range plan.Commands {
		fmt.Printf("  - %s: %s\n", c.Name, c.Description)
	}
	return 0
}

// printStoreStatus dumps every registered State Store namespace
// (spec.md §4.1 "export" contract), sorted by name for stable output, for
// the `info` command.
func printStoreStatus(store *state.Store) {
	reports := store.ExportAll()
	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := reports[name]
		fmt.Printf("  %-14s %-10s %s (last updated %s)\n", name, r.Status, r.Detail, console.Since(r.UpdatedAt))
	}
}

// report prints an errs.Error (or a plain error) in the tool's standard
// format and returns the process exit code for it.
func report(err error) int {
	console.Log.Error(err)
	var e *errs.Error
	if errors.As(err, &e) {
		return e.ExitCode()
	}
	return 1
}

func registerPreInitCommands(table *dispatcher.Table, store *state.Store, w *boundary.Workspace, g globalFlags) {
	depNS := probe.NewNamespace()
	store.Register("dependencies", depNS)

	catalogState := catalogns.NewNamespace()
	store.Register("catalogs", catalogState)
	if err := catalogState.LoadSnapshot(g.modpackDir); err != nil {
		console.Log.Debugf("could not load catalog cache snapshot: %v", err)
	}

	table.Register(dispatcher.Command{
		Name: "requirements", Description: "check that required external tools are on PATH", Order: 5,
		Handler: func(ctx context.Context) error {
			results := depNS.CheckAll()
			store.Touch("dependencies")
			for _, r := range results {
				if r.Found {
					fmt.Printf("  [ok]      %-16s %s\n", r.Name, r.Path)
				} else {
					fmt.Printf("  [missing] %-16s %s\n", r.Name, r.Hint)
				}
			}
			if missing := probe.Missing(results); len(missing) > 0 {
				return errs.DependencyMissing(fmt.Sprintf("%d required tool(s) missing", len(missing)), missing[0].Hint)
			}
			return nil
		},
	})

	table.Register(dispatcher.Command{
		Name: "version", Description: "print the empack version", Order: 1,
		Handler: func(ctx context.Context) error {
			fmt.Println("empack", version)
			return nil
		},
	})

	table.Register(dispatcher.Command{
		Name: "help", Description: "list available commands", Order: 0,
		Handler: func(ctx context.Context) error {
			for _, name := range table.Names() {
				cmd, _ := table.Lookup(name)
				fmt.Printf("  %-16s %s\n", cmd.Name, cmd.Description)
			}
			return nil
		},
	})

	table.Register(dispatcher.Command{
		Name: "info", Description: "show dependency, catalog, and pack status across all namespaces", Order: 2,
		Handler: func(ctx context.Context) error {
			printStoreStatus(store)
			if w.Phase() == boundary.PostInit {
				m, err := manifest.Load(w.PackTomlPath())
				if err != nil {
					return err
				}
				fmt.Printf("  %-14s pack=%s version=%s modloader=%s@%s minecraft=%s\n",
					"pack", m.Name, m.Version, m.Versions.Modloader(), m.Versions.ModloaderVersion(), m.Versions.Minecraft)
			} else {
				fmt.Println("  pack           not yet initialized (run `empack init`)")
			}
			return nil
		},
	})

	table.Register(dispatcher.Command{
		Name: "db-update", Description: "force-refresh all version catalogs and save their freshness snapshot", Order: 6,
		Handler: func(ctx context.Context) error {
			fresh := cache.NewCatalog()
			catalogs := fetchCatalogs(ctx, fresh)
			catalogState.Record(catalogs)
			store.Touch("catalogs")
			if err := catalogState.SaveSnapshot(g.modpackDir); err != nil {
				return errs.Wrap(errs.Internal, err, "could not persist catalog cache", err.Error(),
					"check write permissions on "+g.modpackDir)
			}
			console.Log.Infof("catalogs refreshed: %v", catalogState.Export())
			return nil
		},
	})

	table.Register(dispatcher.Command{
		Name: "init", Description: "bootstrap a new modpack workspace", Order: 10,
		Handler: func(ctx context.Context) error {
			catalogNS := cache.NewCatalog()
			catalogs := fetchCatalogs(ctx, catalogNS)
			catalogState.Record(catalogs)
			store.Touch("catalogs")
			if err := catalogState.SaveSnapshot(g.modpackDir); err != nil {
				console.Log.Warnf("could not persist catalog cache: %v", err)
			}

			opts := initializer.Options{
				TargetDir:   g.modpackDir,
				Name:        g.name,
				Author:      g.author,
				PackVersion: g.packVersion,
				Confirmed:   g.yes,
				Compat: compat.Input{
					Modloader:        g.modloader,
					MinecraftVersion: g.minecraftVersion,
					ModloaderVersion: firstNonEmptyFlag(g.neoforgeVersion, g.fabricVersion, g.quiltVersion),
				},
				Interactive: !g.nonInteractive,
				Prompt:      nil, // no interactive terminal UI in this build; non-interactive auto-fill always applies
			}
			report, err := initializer.Init(ctx, catalogs, opts)
			if err != nil {
				return err
			}
			fmt.Printf("initialized %s (%s %s, minecraft %s)\n",
				g.modpackDir, report.Triple.Modloader, report.Triple.ModloaderVersion, report.Triple.MinecraftVersion)
			if report.TrialBuildWarning != "" {
				console.Log.Warnf("trial mrpack export failed: %s", report.TrialBuildWarning)
			}
			return nil
		},
	})
}

func firstNonEmptyFlag(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

// fetchCatalogs populates every upstream catalog, memoized through the
// shared Catalog cache (spec.md §5: "Catalog fetches ... independent,
// idempotent, cacheable"); a failed fetch degrades to a nil field rather
// than aborting, per the Compatibility Resolver's graceful-degradation
// contract.
func fetchCatalogs(ctx context.Context, catalogNS *cache.Catalog) compat.Catalogs {
	var out compat.Catalogs

	if v, err := catalogNS.Fetch("mojang", func() (interface{}, error) { return apiclient.FetchMojangManifest(ctx) }); err == nil {
		out.Mojang = v.(*apiclient.MojangManifest)
	} else {
		console.Log.Warnf("mojang manifest unavailable: %v", err)
	}
	if v, err := catalogNS.Fetch("neoforge", func() (interface{}, error) { return apiclient.FetchNeoForgeVersions(ctx) }); err == nil {
		out.NeoForge = v.(*apiclient.NeoForgeVersions)
	} else {
		console.Log.Warnf("neoforge catalog unavailable: %v", err)
	}
	if v, err := catalogNS.Fetch("fabric", func() (interface{}, error) { return apiclient.FetchFabricVersions(ctx) }); err == nil {
		out.Fabric = v.(*apiclient.LoaderVersions)
	} else {
		console.Log.Warnf("fabric catalog unavailable: %v", err)
	}
	if v, err := catalogNS.Fetch("quilt", func() (interface{}, error) { return apiclient.FetchQuiltVersions(ctx) }); err == nil {
		out.Quilt = v.(*apiclient.LoaderVersions)
	} else {
		console.Log.Warnf("quilt catalog unavailable: %v", err)
	}
	if v, err := catalogNS.Fetch("forge", func() (interface{}, error) { return apiclient.FetchForgeVersions(ctx) }); err == nil {
		out.Forge = v.(*apiclient.ForgeVersions)
	} else {
		console.Log.Warnf("forge catalog unavailable: %v", err)
	}
	return out
}

func registerPostInitCommands(table *dispatcher.Table, store *state.Store, w *boundary.Workspace, g globalFlags) {
	engine := build.New(w)

	for _, t := range []struct {
		name, desc string
		order      int
	}{
		{build.TargetClean, "remove all dist/ artifacts", build.Order(build.TargetClean)},
		{build.TargetMrpack, "export a Modrinth .mrpack bundle", build.Order(build.TargetMrpack)},
		{build.TargetClient, "build the client distribution zip", build.Order(build.TargetClient)},
		{build.TargetServer, "build the server distribution zip", build.Order(build.TargetServer)},
		{build.TargetClientFull, "build the client zip with mods pre-downloaded", build.Order(build.TargetClientFull)},
		{build.TargetServerFull, "build the server zip with mods pre-downloaded and installed", build.Order(build.TargetServerFull)},
	} {
		target := t.name
		table.Register(dispatcher.Command{
			Name: target, Description: t.desc, Order: t.order, RequiresModpack: true,
			Handler: func(ctx context.Context) error {
				console.Section("build %s", target)
				return engine.Run(ctx, target)
			},
		})
	}

	table.Register(dispatcher.Command{
		Name: "resolve", Description: "resolve empack.yml declarations into an install plan", Order: 15, RequiresModpack: true,
		Handler: func(ctx context.Context) error {
			return runResolve(ctx, w, store)
		},
	})
}

// runResolve implements the Project Resolver's command surface: read
// empack.yml, resolve every declaration, and print the newline-delimited
// install-plan format spec.md §6 defines. It does not invoke packwiz; the
// printed plan is its only output.
func runResolve(ctx context.Context, w *boundary.Workspace, store *state.Store) error {
	declPath := filepath.Join(w.TargetDir, "empack.yml")
	data, err := os.ReadFile(declPath)
	if err != nil {
		return errs.Wrap(errs.InputExistence, err, "could not read empack.yml", "no declaration file at "+declPath, "create empack.yml with an empack.dependencies list")
	}
	decls, err := declfile.Parse(data)
	if err != nil {
		return errs.Wrap(errs.InputFormat, err, "empack.yml is malformed", err.Error(), "fix the YAML and retry")
	}

	m, err := manifest.Load(w.PackTomlPath())
	if err != nil {
		return err
	}
	for i := range decls {
		decls[i].InheritFrom(m.Versions.Minecraft, m.Versions.Modloader())
	}

	mr := modrinth.NewClient()
	cf, err := curseforge.NewClientFromEnv()
	if err != nil {
		console.Log.Warnf("curseforge disabled: %v", err)
		cf = nil
	}

	cachePath := filepath.Join(w.TargetDir, ".empack.cache")
	resolutionCache, err := cache.OpenResolution(cachePath)
	if err != nil {
		console.Log.Warnf("resolution cache unavailable: %v", err)
		resolutionCache = nil
	}
	if resolutionCache != nil {
		defer resolutionCache.Close()
	}

	res := resolver.New(mr, cf, resolutionCache)
	entries := res.ResolveBulk(ctx, decls)

	resolved, total := resolver.Summary(entries)
	console.Log.Infof("resolved %d/%d declarations", resolved, total)

	var optionalDeps []string
	entries, optionalDeps = res.ExpandRequiredDependencies(ctx, entries)
	for _, id := range optionalDeps {
		console.Log.Infof("optional dependency %s not auto-added; add it manually if wanted", id)
	}

	pins, err := loadPins(w.TargetDir)
	if err != nil {
		return err
	}
	entries = resolver.ExpandPins(entries, pins)

	for _, e := range entries {
		if e.Resolved == nil {
			fmt.Printf("%s|unresolved||0|%s\n", e.Declaration.Key, e.Declaration.Title)
			continue
		}
		fmt.Printf("%s|%s|%s|%s|%s\n", e.Declaration.Key, e.Resolved.Platform, e.Resolved.ProjectID,
			strconv.FormatFloat(e.Resolved.Confidence, 'f', 1, 64), e.Resolved.FoundTitle)
	}

	if resolved < total {
		return errs.New(errs.InputExistence, fmt.Sprintf("%d declaration(s) could not be resolved", total-resolved),
			"no matching project found above the confidence threshold on either platform",
			"adjust the declaration's title/type or add it manually via packwiz")
	}
	return nil
}

// loadPins reads the optional ProjectPinning file (spec.md §4.7
// "ProjectPinning interaction"). Its absence is not an error: an
// unpinned run resolves every declaration to a single auto-version entry.
func loadPins(targetDir string) (declfile.Pins, error) {
	data, err := os.ReadFile(filepath.Join(targetDir, "empack.pins.yml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.InputExistence, err, "could not read empack.pins.yml", err.Error(), "fix file permissions or remove the pins file to resolve unpinned")
	}
	pins, err := declfile.ParsePins(data)
	if err != nil {
		return nil, err
	}
	return pins, nil
}
