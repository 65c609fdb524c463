// Package initializer implements the Initializer (spec.md §4.8): the
// pre-init bootstrap sequence that turns an empty (or merely git-tracked)
// directory into a working empack workspace. Grounded on the teacher's
// modpack.go NewModPack (directory-skeleton creation via os.MkdirAll,
// gated on what already exists) and util.go's downloadHttpFile for the
// packwiz-installer-bootstrap jar fetch.
package initializer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"empack/internal/boundary"
	"empack/internal/compat"
	"empack/internal/console"
	"empack/internal/errs"
	"empack/internal/httpx"
	"empack/internal/probe"
	"empack/internal/subprocess"
	"empack/internal/validate"
)

// safeList is the set of directory entries tolerated in an otherwise
// "empty" directory (spec.md §4.8 step 1).
var safeList = map[string]bool{
	".git": true, ".gitignore": true, "README.md": true, "LICENSE": true, ".actrc": true,
}

const bootstrapJarURL = "https://github.com/packwiz/packwiz-installer-bootstrap/releases/latest/download/packwiz-installer-bootstrap.jar"

// Options configures one init run.
type Options struct {
	TargetDir   string
	Name        string
	Author      string
	PackVersion string
	Confirmed   bool // user has confirmed initializing a non-empty, non-safe-listed directory
	Compat      compat.Input
	Interactive bool
	Prompt      func(compat.Input) compat.Input
}

// Report summarizes what Init did, for the command's own narration.
type Report struct {
	Triple            compat.Triple
	DevTemplatesCount int
	TrialBuildWarning string
}

// Init runs the full 8-step sequence. It assumes the caller already holds
// the workspace's advisory lock.
func Init(ctx context.Context, catalogs compat.Catalogs, opts Options) (*Report, error) {
	w := boundary.New(opts.TargetDir)
	if err := boundary.RequirePreInit(w, "init"); err != nil {
		return nil, err
	}

	if err := checkSafety(opts.TargetDir, opts.Confirmed); err != nil {
		return nil, err
	}

	if err := checkDependencies(); err != nil {
		return nil, err
	}

	if err := createSkeleton(opts.TargetDir); err != nil {
		return nil, err
	}

	if err := downloadBootstrapJar(ctx, opts.TargetDir); err != nil {
		return nil, err
	}

	resolver := compat.NewResolver(catalogs)
	result, err := resolver.Resolve(ctx, opts.Compat, opts.Interactive, opts.Prompt)
	if err != nil {
		return nil, err
	}
	if result.Warning != "" {
		console.Log.Warn(result.Warning)
	}
	triple := result.Triple

	name := opts.Name
	if name == "" {
		name = validate.DefaultName(opts.TargetDir)
	}
	author := opts.Author
	if author == "" {
		author = validate.DefaultAuthor()
	}
	packVersion := opts.PackVersion
	if packVersion == "" {
		packVersion = validate.DefaultPackVersion
	}
	if perr := validate.ValidatePersonalization(name, author, packVersion); !perr.Empty() {
		return nil, errs.New(errs.InputFormat, "pack personalization is invalid",
			firstNonEmpty(perr.Name, perr.Author, perr.PackVersion),
			"fix --name/--author/--pack-version and retry")
	}

	packDir := filepath.Join(opts.TargetDir, "pack")
	if err := os.MkdirAll(packDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pack dir: %w", err)
	}
	inv := subprocess.PackwizInit(packDir, name, author, packVersion, triple.MinecraftVersion, string(triple.Modloader), triple.ModloaderVersion)
	if _, err := subprocess.Run(ctx, inv); err != nil {
		return nil, err
	}

	count, err := emitDevTemplates(opts.TargetDir)
	if err != nil {
		return nil, err
	}

	report := &Report{Triple: triple, DevTemplatesCount: count}

	if _, err := subprocess.Run(ctx, subprocess.PackwizModrinthExport(packDir)); err != nil {
		report.TrialBuildWarning = err.Error()
		console.Log.Warnf("trial build failed (init still succeeded): %v", err)
	}

	return report, nil
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

// checkSafety refuses to initialize a directory with unexpected contents
// unless the user confirmed, or the directory already looks like a pack.
func checkSafety(targetDir string, confirmed bool) error {
	if _, err := os.Stat(filepath.Join(targetDir, "pack", "pack.toml")); err == nil {
		return nil
	}
	if _, err := os.Stat(filepath.Join(targetDir, "pack.toml")); err == nil {
		return nil
	}

	entries, err := os.ReadDir(targetDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read target directory: %w", err)
	}

	var unexpected []string
	for _, e := range entries {
		if !safeList[e.Name()] {
			unexpected = append(unexpected, e.Name())
		}
	}
	if len(unexpected) > 0 && !confirmed {
		return errs.New(errs.BoundaryViolation,
			"target directory is not empty",
			fmt.Sprintf("found unexpected entries: %v", unexpected),
			"pass --yes to initialize anyway, or clean the directory first")
	}
	return nil
}

// checkDependencies runs the minimum Dependency Probe for init (spec.md
// §4.8 step 2): packwiz, mrpack-install and java. No TOML query tool is
// probed; pack.toml is read in-process by internal/manifest.
func checkDependencies() error {
	required := []string{probe.Packwiz, probe.MrpackInstall, probe.Java}
	var missing []probe.Result
	for _, name := range required {
		if r := probe.Find(name); !r.Found {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return errs.DependencyMissing(
			fmt.Sprintf("missing required tools: %v", names(missing)),
			missing[0].Hint)
	}
	return nil
}

func names(results []probe.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Name
	}
	return out
}

// createSkeleton creates the directory layout spec.md §4.8 step 3 names.
func createSkeleton(targetDir string) error {
	dirs := []string{
		"dist/client", "dist/client-full", "dist/server", "dist/server-full",
		"templates/client", "templates/server",
		".github/workflows", ".github/actions",
		"installer",
	}
	for _, d := range dirs {
		full := filepath.Join(targetDir, d)
		if err := os.MkdirAll(full, 0o755); err != nil {
			return fmt.Errorf("create skeleton dir %s: %w", full, err)
		}
	}
	for _, dist := range []string{"client", "client-full", "server", "server-full"} {
		gitkeep := filepath.Join(targetDir, "dist", dist, ".gitkeep")
		if err := os.WriteFile(gitkeep, nil, 0o644); err != nil {
			return fmt.Errorf("create %s: %w", gitkeep, err)
		}
	}
	return nil
}

func downloadBootstrapJar(ctx context.Context, targetDir string) error {
	dest := filepath.Join(targetDir, "installer", "packwiz-installer-bootstrap.jar")
	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	resp, err := httpx.Get(ctx, bootstrapJarURL)
	if err != nil {
		return errs.Wrap(errs.UpstreamUnavailable, err,
			"could not download packwiz-installer-bootstrap.jar",
			"github releases were unreachable",
			"download it manually into "+filepath.Dir(dest))
	}
	defer resp.Body.Close()

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := copyAll(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	f.Close()
	return os.Rename(tmp, dest)
}

// copyAll mirrors the teacher's writeStream: write to a .part file then
// rename, so a cancelled download never leaves a half-written jar at dest.
func copyAll(dst *os.File, src io.Reader) (int64, error) {
	return io.Copy(dst, src)
}

// emitDevTemplates writes the static, pre-init template files (spec.md
// §4.6: ".gitignore, .actrc, GitHub workflows") that have no PackManifest
// dependency. The template bodies are the built-in constants below; the
// returned count is how many were written, for the Initializer's own report.
func emitDevTemplates(targetDir string) (int, error) {
	templates := map[string]string{
		".gitignore":                        defaultGitignore,
		".actrc":                            "-P ubuntu-latest=catthehacker/ubuntu:act-latest\n",
		".github/workflows/build.yml":       defaultWorkflow,
	}
	for rel, body := range templates {
		full := filepath.Join(targetDir, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return 0, err
		}
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			return 0, fmt.Errorf("write dev-template %s: %w", rel, err)
		}
	}
	return len(templates), nil
}

const defaultGitignore = "/dist/\n/installer/*.jar\n.empack.lock\n.empack.cache\n"

const defaultWorkflow = `name: build
on: [push, pull_request]
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - run: empack all
`
