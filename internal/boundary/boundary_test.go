package boundary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empack/internal/errs"
)

func TestPhasePreInitWhenPackTomlAbsent(t *testing.T) {
	w := New(t.TempDir())
	assert.Equal(t, PreInit, w.Phase())
}

func TestPhasePostInitWhenPackTomlPresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pack"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pack", "pack.toml"), []byte("name=\"x\""), 0o644))

	w := New(dir)
	assert.Equal(t, PostInit, w.Phase())
}

func TestRequirePreInitFailsWhenAlreadyInitialized(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pack"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pack", "pack.toml"), []byte("name=\"x\""), 0o644))

	err := RequirePreInit(New(dir), "init")
	require.Error(t, err)
	var empErr *errs.Error
	require.ErrorAs(t, err, &empErr)
	assert.Equal(t, errs.BoundaryViolation, empErr.Kind)
}

func TestRequirePostInitFailsWhenNotInitialized(t *testing.T) {
	err := RequirePostInit(New(t.TempDir()), "mrpack")
	require.Error(t, err)
}

func TestRequirePostInitSucceedsWhenInitialized(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pack"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pack", "pack.toml"), []byte("name=\"x\""), 0o644))

	assert.NoError(t, RequirePostInit(New(dir), "mrpack"))
}
