package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePackToml = `
name = "Test Pack"
author = "Someone"
version = "0.1.0"
pack-format = "packwiz:1.1.0"

[index]
file = "index.toml"
hash-format = "sha256"
hash = "abc123"

[versions]
minecraft = "1.21.1"
neoforge = "21.1.174"
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.toml")
	require.NoError(t, os.WriteFile(path, []byte(samplePackToml), 0o644))
	return path
}

func TestLoadParsesCoreFields(t *testing.T) {
	m, err := Load(writeSample(t))
	require.NoError(t, err)
	assert.Equal(t, "Test Pack", m.Name)
	assert.Equal(t, "1.21.1", m.Versions.Minecraft)
	assert.Equal(t, "neoforge", m.Versions.Modloader())
	assert.Equal(t, "21.1.174", m.Versions.ModloaderVersion())
}

func TestVersionsModloaderVanillaWhenNoLoaderFields(t *testing.T) {
	v := Versions{Minecraft: "1.21.1"}
	assert.Equal(t, "vanilla", v.Modloader())
	assert.Empty(t, v.ModloaderVersion())
}

func TestLoadErrorsOnMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}
