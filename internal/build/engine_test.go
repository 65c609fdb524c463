package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empack/internal/boundary"
)

const samplePackToml = `
name = "Example Pack"
author = "Someone"
version = "1.2.3"
pack-format = "packwiz:1.1.0"

[versions]
minecraft = "1.21.1"
neoforge = "21.1.174"
`

func newInitializedWorkspace(t *testing.T) *boundary.Workspace {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pack"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pack", "pack.toml"), []byte(samplePackToml), 0o644))
	return boundary.New(dir)
}

func TestOrderReturnsDeclaredOrderAndZeroForUnknown(t *testing.T) {
	assert.Equal(t, 10, Order(TargetClean))
	assert.Equal(t, 60, Order(TargetServerFull))
	assert.Equal(t, 0, Order("bogus"))
}

func TestExpandAllIntoMrpackClientServer(t *testing.T) {
	got := Expand([]string{TargetAll})
	assert.Equal(t, []string{TargetMrpack, TargetClient, TargetServer}, got)
}

func TestExpandLeavesOtherTargetsUntouched(t *testing.T) {
	got := Expand([]string{TargetClean, TargetServerFull})
	assert.Equal(t, []string{TargetClean, TargetServerFull}, got)
}

func TestSortByOrderSortsAscending(t *testing.T) {
	got := SortByOrder([]string{TargetServerFull, TargetClean, TargetClient})
	assert.Equal(t, []string{TargetClean, TargetClient, TargetServerFull}, got)
}

func TestRunRejectsPreInitWorkspace(t *testing.T) {
	w := boundary.New(t.TempDir())
	e := New(w)
	err := e.Run(context.Background(), TargetClean)
	assert.Error(t, err)
}

func TestCleanRecreatesDistDirsWithGitkeep(t *testing.T) {
	w := newInitializedWorkspace(t)
	require.NoError(t, os.MkdirAll(filepath.Join(w.TargetDir, "dist", "client"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(w.TargetDir, "dist", "client", "stale.zip"), []byte("x"), 0o644))

	e := New(w)
	require.NoError(t, e.Run(context.Background(), TargetClean))

	_, err := os.Stat(filepath.Join(w.TargetDir, "dist", "client", "stale.zip"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(w.TargetDir, "dist", "client", ".gitkeep"))
	assert.NoError(t, err)
}

func TestLoadVarsExtractsSubstitutionsFromPackToml(t *testing.T) {
	w := newInitializedWorkspace(t)
	e := New(w)

	vars, err := e.loadVars()
	require.NoError(t, err)
	assert.Equal(t, "Example Pack", vars["{{NAME}}"])
	assert.Equal(t, "1.2.3", vars["{{VERSION}}"])
	assert.Equal(t, "Someone", vars["{{AUTHOR}}"])
	assert.Equal(t, "1.21.1", vars["{{MC_VERSION}}"])
	assert.Equal(t, "21.1.174", vars["{{LOADER_VERSION}}"])
}

func TestBuildZipTargetSubstitutesTemplatesAndProducesArtifact(t *testing.T) {
	w := newInitializedWorkspace(t)
	require.NoError(t, os.MkdirAll(filepath.Join(w.TargetDir, "templates", "client"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(w.TargetDir, "templates", "client", "README.txt"),
		[]byte("Welcome to {{NAME}} v{{VERSION}}"), 0o644))

	e := New(w)
	require.NoError(t, e.buildZipTarget(context.Background(), "client", false))

	want := filepath.Join(w.TargetDir, "dist", "client", "Example Pack-client-1.2.3.zip")
	_, err := os.Stat(want)
	assert.NoError(t, err)
}

func TestSubstituteTreeRewritesPlaceholdersInPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello {{NAME}}"), 0o644))

	require.NoError(t, substituteTree(dir, map[string]string{"{{NAME}}": "world"}))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(body))
}

func TestSubstituteTreeFailsOnLeftoverPlaceholder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello {{UNKNOWN_VAR}}"), 0o644))

	err := substituteTree(dir, map[string]string{"{{NAME}}": "world"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "{{UNKNOWN_VAR}}")
}

func TestBuildZipTargetFailsWhenTemplateLeavesPlaceholder(t *testing.T) {
	w := newInitializedWorkspace(t)
	require.NoError(t, os.MkdirAll(filepath.Join(w.TargetDir, "templates", "client"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(w.TargetDir, "templates", "client", "README.txt"),
		[]byte("Welcome to {{NAME}}, built for {{MODLOADER}}"), 0o644))

	e := New(w)
	err := e.buildZipTarget(context.Background(), "client", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "{{MODLOADER}}")
}

func TestMoveIntoDistFailsWhenArtifactMissing(t *testing.T) {
	packDir := t.TempDir()
	targetDir := t.TempDir()
	err := moveIntoDist(packDir, targetDir, "missing.mrpack")
	assert.Error(t, err)
}

func TestLatestMrpackPathRequiresPriorMrpackBuild(t *testing.T) {
	w := newInitializedWorkspace(t)
	e := New(w)
	_, err := e.latestMrpackPath()
	assert.Error(t, err)
}
