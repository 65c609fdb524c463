// Package validate implements the Format Validator (spec.md §4.4): a set of
// stateless, upstream-independent checks plus the smart-default generator.
// These never touch the network; existence checks that do are layered on
// top in internal/compat. Grounded on the teacher's modpack.go parameter
// handling, generalized into named, independently testable predicates.
package validate

import (
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Modloader enumerates the five recognized values (spec.md §2 glossary).
type Modloader string

const (
	NeoForge Modloader = "neoforge"
	Fabric   Modloader = "fabric"
	Quilt    Modloader = "quilt"
	Forge    Modloader = "forge"
	Vanilla  Modloader = "vanilla"
)

var knownModloaders = map[Modloader]bool{
	NeoForge: true, Fabric: true, Quilt: true, Forge: true, Vanilla: true,
}

// ValidateModloader reports whether s names a known modloader enum value.
func ValidateModloader(s string) (Modloader, bool) {
	m := Modloader(strings.ToLower(strings.TrimSpace(s)))
	return m, knownModloaders[m]
}

var semverLoose = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?(?:-([0-9A-Za-z.-]+))?$`)

// SemverResult is the outcome of a loose semver check.
type SemverResult struct {
	Valid bool
	// Warning is set when the string parses but omits the patch component
	// ("missing .Z warns but does not reject", spec.md §4.4).
	Warning string
}

// ValidateSemver loosely matches X.Y(.Z)?(-tag)?. context is used only to
// compose the warning/error message (e.g. "minecraft_version", "pack_version").
func ValidateSemver(s, context string) SemverResult {
	m := semverLoose.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return SemverResult{Valid: false}
	}
	if m[3] == "" {
		return SemverResult{Valid: true, Warning: context + " " + s + " omits a patch version"}
	}
	return SemverResult{Valid: true}
}

// Catalog is the minimal membership contract the existence checks need;
// internal/apiclient's fetch results satisfy it directly (each has an
// Exists method), keeping
// this package free of any upstream dependency.
type Catalog interface {
	Exists(version string) bool
}

// ValidateMinecraftExists checks membership in the Mojang catalog.
func ValidateMinecraftExists(v string, mojang Catalog) bool {
	return mojang.Exists(v)
}

// ValidateModloaderVersionExists checks membership in the catalog
// corresponding to modloader; Vanilla trivially passes since it has no
// modloader version to check.
func ValidateModloaderVersionExists(modloader Modloader, v string, catalog Catalog) bool {
	if modloader == Vanilla {
		return true
	}
	return catalog.Exists(v)
}

const (
	maxNameLength   = 100
	maxAuthorLength = 50
)

var forbiddenNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// PersonalizationErrors collects every violation found; empty means valid.
type PersonalizationErrors struct {
	Name        string
	Author      string
	PackVersion string
}

func (p PersonalizationErrors) Empty() bool {
	return p.Name == "" && p.Author == "" && p.PackVersion == ""
}

// ValidatePersonalization checks the three free-text pack identity fields.
func ValidatePersonalization(name, author, packVersion string) PersonalizationErrors {
	var errs PersonalizationErrors
	switch {
	case len(name) > maxNameLength:
		errs.Name = "name exceeds " + strconv.Itoa(maxNameLength) + " characters"
	case forbiddenNameChars.MatchString(name):
		errs.Name = `name contains a forbidden character (one of < > : " / \ | ? *)`
	}
	if len(author) > maxAuthorLength {
		errs.Author = "author exceeds " + strconv.Itoa(maxAuthorLength) + " characters"
	}
	if r := ValidateSemver(packVersion, "pack_version"); !r.Valid {
		errs.PackVersion = "pack_version must be a semver-like value (X.Y[.Z][-tag])"
	}
	return errs
}

// needsQuoting mirrors the shell's own word-splitting rules closely enough
// for the smart-default's "quoted if it contains whitespace or non-URL-safe
// characters" rule.
var urlSafe = regexp.MustCompile(`^[A-Za-z0-9._~-]+$`)

func needsQuoting(s string) bool {
	return !urlSafe.MatchString(s)
}

// DefaultName derives the smart-default pack name from a target directory,
// quoting it when it contains whitespace or non-URL-safe characters.
func DefaultName(targetDir string) string {
	base := filepath.Base(filepath.Clean(targetDir))
	if needsQuoting(base) {
		return strconv.Quote(base)
	}
	return base
}

// DefaultPackVersion is the smart-default initial pack version.
const DefaultPackVersion = "0.0.0"

// DefaultAuthor returns git's configured user.name, falling back to
// "Unknown" when git is absent or unconfigured.
func DefaultAuthor() string {
	out, err := exec.Command("git", "config", "--global", "user.name").Output()
	if err != nil {
		return "Unknown"
	}
	name := strings.TrimSpace(string(out))
	if name == "" {
		return "Unknown"
	}
	return name
}
