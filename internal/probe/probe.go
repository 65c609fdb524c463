// Package probe implements the Dependency Probe (spec.md §4.2): locating the
// external tools empack shells out to, and reporting what is missing with an
// actionable suggestion. Grounded on the teacher's env.go (_findJavaDir,
// _javaExists, _executableExt), generalized from "find one JRE" to "find N
// named executables on PATH".
package probe

import (
	"os/exec"
	"runtime"
	"sync"

	"empack/internal/state"
)

// Tool names probed at startup; packwiz and mrpack-install are the Build
// Engine's subprocess collaborators, git/curl are used by a handful of
// diagnostic paths, java is required to run packwiz's own JVM (packwiz
// itself is a Go binary, but some mod installers it shells out to need a
// JRE on PATH).
const (
	Packwiz       = "packwiz"
	MrpackInstall = "mrpack-install"
	Java          = "java"
	Git           = "git"
	Curl          = "curl"
)

var allTools = []string{Packwiz, MrpackInstall, Java, Git, Curl}

// installHints gives a one-line suggestion per tool, surfaced in
// errs.DependencyMissing.
var installHints = map[string]string{
	Packwiz:       "install packwiz: https://packwiz.infra.link/installation/",
	MrpackInstall: "install mrpack-install: go install github.com/nothing-to-see-here/mrpack-install@latest",
	Java:          "install a Java 17+ runtime and ensure java is on PATH",
	Git:           "install git",
	Curl:          "install curl",
}

func executableExt() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

// Result is one tool's probe outcome.
type Result struct {
	Name  string
	Path  string
	Found bool
	Hint  string
}

// Namespace implements state.Namespace for the "dependencies" subsystem.
type Namespace struct {
	mu      sync.RWMutex
	results map[string]Result
}

func NewNamespace() *Namespace {
	return &Namespace{results: make(map[string]Result)}
}

// CheckAll probes every known tool and records the results, following the
// teacher's _findJavaDir pattern of a plain exec.LookPath per candidate.
func (n *Namespace) CheckAll() []Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Result, 0, len(allTools))
	for _, name := range allTools {
		r := find(name)
		n.results[name] = r
		out = append(out, r)
	}
	return out
}

// find probes a single tool by name without touching the namespace's cache.
func find(name string) Result {
	path, err := exec.LookPath(name + executableExt())
	if err != nil {
		return Result{Name: name, Found: false, Hint: installHints[name]}
	}
	return Result{Name: name, Path: path, Found: true}
}

// Find probes a single named tool, exported for callers that only depend on
// one collaborator.
func Find(name string) Result {
	return find(name)
}

// Missing returns the subset of results that were not found.
func Missing(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Found {
			out = append(out, r)
		}
	}
	return out
}

func (n *Namespace) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = make(map[string]Result)
}

func (n *Namespace) Export() map[string]interface{} {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[string]interface{}, len(n.results))
	for k, v := range n.results {
		out[k] = v
	}
	return out
}

func (n *Namespace) Status() (state.Status, string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if len(n.results) == 0 {
		return state.StatusUnknown, "dependencies not yet probed"
	}
	var missing []string
	for name, r := range n.results {
		if !r.Found {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return state.StatusError, "missing: " + joinComma(missing)
	}
	return state.StatusComplete, "all dependencies present"
}

func (n *Namespace) Validate() error {
	return nil
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
