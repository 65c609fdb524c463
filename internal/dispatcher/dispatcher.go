// Package dispatcher implements the Command Dispatcher (spec.md §4.10): a
// declarative command table plus the two-pass execution model. Grounded on
// the teacher's main.go gCommands map (name -> {Fn, Desc, ArgsCount, Args}),
// generalized here with an Order field and a RequiresModpack gate so the
// dispatcher itself can enforce the Runtime Boundary before any handler runs.
package dispatcher

import (
	"context"
	"fmt"
	"sort"

	"empack/internal/boundary"
	"empack/internal/errs"
)

// Handler is a registered command's body. ctx carries the single-shot
// cancellation signal (spec.md §5 "Cancellation").
type Handler func(ctx context.Context) error

// Command is one dispatch table entry (spec.md §4.10 registration model).
type Command struct {
	Name            string
	Description     string
	Handler         Handler
	Order           int
	RequiresModpack bool
}

// Table is the full set of registered commands, keyed by name.
type Table struct {
	commands map[string]Command
	expand   map[string][]string // meta-command -> constituent command names
}

// NewTable builds an empty dispatch table.
func NewTable() *Table {
	return &Table{
		commands: make(map[string]Command),
		expand:   make(map[string][]string),
	}
}

// Register adds a command declaratively. Re-registering a name overwrites
// the previous entry, mirroring the teacher's map-literal gCommands, which
// a later assignment can also overwrite at init time.
func (t *Table) Register(c Command) {
	t.commands[c.Name] = c
}

// RegisterMeta declares a meta-command (spec.md: "all -> mrpack, client,
// server") that the validation pass expands before execution.
func (t *Table) RegisterMeta(name string, constituents ...string) {
	t.expand[name] = constituents
}

func (t *Table) Lookup(name string) (Command, bool) {
	c, ok := t.commands[name]
	return c, ok
}

func (t *Table) Names() []string {
	names := make([]string, 0, len(t.commands))
	for n := range t.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// expandOne recursively resolves a meta-command into its constituents.
// Non-meta names pass through unchanged.
func (t *Table) expandOne(name string) []string {
	if constituents, ok := t.expand[name]; ok {
		out := make([]string, 0, len(constituents))
		for _, c := range constituents {
			out = append(out, t.expandOne(c)...)
		}
		return out
	}
	return []string{name}
}

// Plan is the validated, deduplicated, order-sorted result of the
// validation pass, ready for the execution pass to walk.
type Plan struct {
	Commands []Command
}

// Validate runs the validation pass (spec.md §4.10 step 1): every requested
// name must exist (after meta-command expansion), requires_modpack commands
// demand a PostInit workspace, and the result is deduplicated.
func (t *Table) Validate(w *boundary.Workspace, requested []string) (*Plan, error) {
	expanded := make([]string, 0, len(requested))
	for _, name := range requested {
		expanded = append(expanded, t.expandOne(name)...)
	}

	seen := make(map[string]bool, len(expanded))
	var resolved []Command
	for _, name := range expanded {
		if seen[name] {
			continue
		}
		seen[name] = true

		cmd, ok := t.commands[name]
		if !ok {
			return nil, errs.New(errs.InputFormat,
				fmt.Sprintf("unknown command %q", name),
				"no command with that name is registered",
				"run `empack help` to list available commands")
		}
		if cmd.RequiresModpack {
			if err := boundary.RequirePostInit(w, cmd.Name); err != nil {
				return nil, err
			}
		} else {
			// pre-init commands are not phase-checked here; init rejects an
			// already-initialized workspace itself, via RequirePreInit; the
			// dispatcher only enforces the post-init side universally.
			_ = w
		}
		resolved = append(resolved, cmd)
	}

	sort.Slice(resolved, func(i, j int) bool { return resolved[i].Order < resolved[j].Order })
	return &Plan{Commands: resolved}, nil
}

// Run executes the execution pass (spec.md §4.10 step 2): invoke handlers
// in order, aborting on first failure.
func Run(ctx context.Context, plan *Plan) error {
	for _, cmd := range plan.Commands {
		select {
		case <-ctx.Done():
			return errs.Cancelled("command sequence cancelled before " + cmd.Name)
		default:
		}
		if err := cmd.Handler(ctx); err != nil {
			return fmt.Errorf("%s: %w", cmd.Name, err)
		}
	}
	return nil
}

// Dispatch is the convenience entry point combining both passes, used by
// cmd/empack's main after flag parsing has produced the requested command
// list.
func Dispatch(ctx context.Context, t *Table, w *boundary.Workspace, requested []string) error {
	plan, err := t.Validate(w, requested)
	if err != nil {
		return err
	}
	return Run(ctx, plan)
}
