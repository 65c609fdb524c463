package dispatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empack/internal/boundary"
)

func newTableWithOrder() (*Table, *[]string) {
	var ran []string
	t := NewTable()
	t.Register(Command{Name: "clean", Order: 10, RequiresModpack: true, Handler: func(ctx context.Context) error {
		ran = append(ran, "clean")
		return nil
	}})
	t.Register(Command{Name: "mrpack", Order: 20, RequiresModpack: true, Handler: func(ctx context.Context) error {
		ran = append(ran, "mrpack")
		return nil
	}})
	t.Register(Command{Name: "client", Order: 30, RequiresModpack: true, Handler: func(ctx context.Context) error {
		ran = append(ran, "client")
		return nil
	}})
	t.Register(Command{Name: "server", Order: 40, RequiresModpack: true, Handler: func(ctx context.Context) error {
		ran = append(ran, "server")
		return nil
	}})
	t.RegisterMeta("all", "mrpack", "client", "server")
	return t, &ran
}

func initializedWorkspace(t *testing.T) *boundary.Workspace {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pack"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pack", "pack.toml"), []byte("name=\"x\""), 0o644))
	return boundary.New(dir)
}

func TestValidateRejectsUnknownCommand(t *testing.T) {
	table, _ := newTableWithOrder()
	w := initializedWorkspace(t)
	_, err := table.Validate(w, []string{"bogus"})
	assert.Error(t, err)
}

func TestValidateRejectsRequiresModpackOnPreInitWorkspace(t *testing.T) {
	table, _ := newTableWithOrder()
	w := boundary.New(t.TempDir())
	_, err := table.Validate(w, []string{"clean"})
	assert.Error(t, err)
}

func TestValidateExpandsMetaCommand(t *testing.T) {
	table, _ := newTableWithOrder()
	w := initializedWorkspace(t)
	plan, err := table.Validate(w, []string{"all"})
	require.NoError(t, err)

	var names []string
	for _, c := range plan.Commands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"mrpack", "client", "server"}, names)
}

func TestValidateDeduplicatesAndSortsByOrder(t *testing.T) {
	table, _ := newTableWithOrder()
	w := initializedWorkspace(t)
	plan, err := table.Validate(w, []string{"server", "clean", "clean", "mrpack"})
	require.NoError(t, err)

	var names []string
	for _, c := range plan.Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"clean", "mrpack", "server"}, names)
}

func TestRunInvokesHandlersInOrderAndAbortsOnFailure(t *testing.T) {
	table, ran := newTableWithOrder()
	table.Register(Command{Name: "boom", Order: 15, RequiresModpack: true, Handler: func(ctx context.Context) error {
		return assert.AnError
	}})
	w := initializedWorkspace(t)

	plan, err := table.Validate(w, []string{"clean", "boom", "mrpack"})
	require.NoError(t, err)

	err = Run(context.Background(), plan)
	assert.Error(t, err)
	assert.Equal(t, []string{"clean"}, *ran)
}

func TestDispatchRunsFullTwoPassSequence(t *testing.T) {
	table, ran := newTableWithOrder()
	w := initializedWorkspace(t)

	err := Dispatch(context.Background(), table, w, []string{"all"})
	require.NoError(t, err)
	assert.Equal(t, []string{"mrpack", "client", "server"}, *ran)
}

func TestRunRespectsCancellation(t *testing.T) {
	table, _ := newTableWithOrder()
	w := initializedWorkspace(t)
	plan, err := table.Validate(w, []string{"clean", "mrpack"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Run(ctx, plan)
	assert.Error(t, err)
}
