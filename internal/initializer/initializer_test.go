package initializer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSafetyAllowsEmptyDirectory(t *testing.T) {
	assert.NoError(t, checkSafety(t.TempDir(), false))
}

func TestCheckSafetyAllowsSafeListedEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(""), 0o644))
	assert.NoError(t, checkSafety(dir, false))
}

func TestCheckSafetyRejectsUnexpectedEntriesWithoutConfirmation(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "random.txt"), []byte("hi"), 0o644))
	assert.Error(t, checkSafety(dir, false))
	assert.NoError(t, checkSafety(dir, true))
}

func TestCheckSafetyAlwaysAllowsExistingPack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pack"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pack", "pack.toml"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "random.txt"), []byte("hi"), 0o644))
	assert.NoError(t, checkSafety(dir, false))
}

func TestCreateSkeletonCreatesExpectedDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, createSkeleton(dir))

	for _, want := range []string{
		"dist/client/.gitkeep", "dist/server-full/.gitkeep",
		"templates/client", "templates/server",
		".github/workflows", "installer",
	} {
		_, err := os.Stat(filepath.Join(dir, want))
		assert.NoError(t, err, want)
	}
}

func TestEmitDevTemplatesWritesFiles(t *testing.T) {
	dir := t.TempDir()
	count, err := emitDevTemplates(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = os.Stat(filepath.Join(dir, ".gitignore"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, ".github", "workflows", "build.yml"))
	assert.NoError(t, err)
}
