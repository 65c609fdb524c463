// Package boundary implements the Runtime Boundary (spec.md §4.6): a single
// predicate classifying a Workspace as PreInit or PostInit, plus the two
// guards every command registration uses to declare its legality.
// Grounded on the teacher's modpack.go, which opens/creates a similar
// directory-presence check before any operation proceeds; generalized from
// "does manifest.json exist" to the spec's explicit phase() function.
package boundary

import (
	"os"
	"path/filepath"

	"empack/internal/errs"
)

// Phase is the workspace's lifecycle classification.
type Phase string

const (
	PreInit  Phase = "pre-init"
	PostInit Phase = "post-init"
)

// Workspace is a directory empack operates on.
type Workspace struct {
	TargetDir string
}

func New(targetDir string) *Workspace {
	return &Workspace{TargetDir: targetDir}
}

// PackTomlPath is the file whose presence (and parseability) distinguishes
// PostInit from PreInit.
func (w *Workspace) PackTomlPath() string {
	return filepath.Join(w.TargetDir, "pack", "pack.toml")
}

// Phase is recomputed on demand (spec.md §3: "not cached across
// operations") by checking for pack/pack.toml.
func (w *Workspace) Phase() Phase {
	if _, err := os.Stat(w.PackTomlPath()); err != nil {
		return PreInit
	}
	return PostInit
}

// RequirePreInit fails opName if the workspace has already been initialized.
func RequirePreInit(w *Workspace, opName string) error {
	if w.Phase() != PreInit {
		return errs.New(errs.BoundaryViolation,
			opName+" requires an uninitialized workspace",
			"pack/pack.toml already exists at "+w.PackTomlPath(),
			"choose a different target directory, or skip init and run "+opName+" directly")
	}
	return nil
}

// RequirePostInit fails opName if the workspace has not yet been initialized.
func RequirePostInit(w *Workspace, opName string) error {
	if w.Phase() != PostInit {
		return errs.New(errs.BoundaryViolation,
			opName+" requires an initialized workspace",
			"no pack/pack.toml found at "+w.PackTomlPath(),
			"run `empack init` first")
	}
	return nil
}
