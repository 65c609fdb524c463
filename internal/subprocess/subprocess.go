// Package subprocess runs the external collaborators empack shells out to
// (packwiz, mrpack-install) and turns a non-zero exit into a
// SubprocessFailure-kind error with the captured stderr attached. Every
// other package that needs to invoke an external tool goes through this one
// chokepoint, matching spec.md §1's framing of packwiz/mrpack-install as
// "external collaborators" whose internals empack never reimplements.
package subprocess

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"empack/internal/console"
	"empack/internal/errs"
)

// Invocation is one subprocess call to make, composed by the caller.
type Invocation struct {
	Name string   // binary name, resolved via internal/probe beforehand
	Dir  string   // working directory the process runs in
	Args []string
}

// Run executes inv, streaming stderr to the console logger (debug level) as
// it arrives and returning stdout on success. A non-zero exit is reported as a
// SubprocessFailure carrying the last few lines of stderr.
func Run(ctx context.Context, inv Invocation) (string, error) {
	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout

	log := console.WithNamespace("subprocess")
	log.WithField("cmd", inv.Name).WithField("args", strings.Join(inv.Args, " ")).Debug("invoking subprocess")
	stderrLog := log.WithField("cmd", inv.Name).WriterLevel(logrus.DebugLevel)
	defer stderrLog.Close()
	cmd.Stderr = io.MultiWriter(&stderr, stderrLog)

	err := cmd.Run()
	if err != nil {
		return stdout.String(), errs.Wrap(errs.SubprocessFailure, err,
			inv.Name+" exited with an error",
			tail(stderr.String(), 10),
			"re-run with --debug to see the full command line, or invoke "+inv.Name+" manually to reproduce")
	}
	return stdout.String(), nil
}

// tail returns the last n lines of s (trailing newlines trimmed; interior
// blank lines are kept and counted), used to keep error messages
// short even when a subprocess is chatty.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

// PackwizInit composes the `packwiz init` invocation the Initializer
// shadows (spec.md §4.8 step 6): the one packwiz command empack shadows.
// empack also runs `packwiz modrinth export` (PackwizModrinthExport).
func PackwizInit(packDir, name, author, packVersion, mcVersion, modloader, modloaderVersion string) Invocation {
	args := []string{"init",
		"--name", name,
		"--author", author,
		"--version", packVersion,
		"--mc-version", mcVersion,
		"-y",
	}
	if modloader != "vanilla" {
		args = append(args, "--modloader", modloader, "--"+modloader+"-version", modloaderVersion)
	}
	return Invocation{Name: "packwiz", Dir: packDir, Args: args}
}

// PackwizModrinthExport composes `packwiz modrinth export` (Build Engine's
// mrpack target, spec.md §4.9).
func PackwizModrinthExport(packDir string) Invocation {
	return Invocation{Name: "packwiz", Dir: packDir, Args: []string{"modrinth", "export"}}
}

// PackwizAdd composes a `packwiz mr add` / `packwiz cf add` invocation from
// a resolved install-plan entry (spec.md §4.7 "Output format").
func PackwizAdd(packDir, platform, idFlag, projectID string) Invocation {
	sub := "mr"
	if platform == "curseforge" {
		sub = "cf"
	}
	return Invocation{Name: "packwiz", Dir: packDir, Args: []string{sub, "add", idFlag, projectID}}
}

// MrpackInstall composes an `mrpack-install` invocation for the Build
// Engine's server-full target (spec.md §4.9: "mrpack-install server
// applied").
func MrpackInstall(targetDir, mrpackPath, side string) Invocation {
	return Invocation{Name: "mrpack-install", Dir: targetDir, Args: []string{mrpackPath, side}}
}
