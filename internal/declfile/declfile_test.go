package declfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
empack:
  dependencies:
    - cit: "Citadel|mod"
    - fae: "Fresh Animations Extensions|mod"
    - apo: "Apotheosis|mod|1.20.1|neoforge"
    - pack: "MyPack|texturepack"
`

func TestParseOrdersDeclarationsAsWritten(t *testing.T) {
	decls, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, decls, 4)
	assert.Equal(t, "cit", decls[0].Key)
	assert.Equal(t, "Citadel", decls[0].Title)
	assert.Equal(t, Mod, decls[0].Type)
}

func TestParseFillsOptionalFields(t *testing.T) {
	decls, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	apo := decls[2]
	assert.Equal(t, "1.20.1", apo.MinecraftVersion)
	assert.Equal(t, "neoforge", apo.Modloader)
}

func TestParseNormalizesTexturepackAlias(t *testing.T) {
	decls, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, ResourcePack, decls[3].Type)
}

func TestParseRejectsUnknownType(t *testing.T) {
	_, err := Parse([]byte(`
empack:
  dependencies:
    - bad: "Something|nonsense"
`))
	require.Error(t, err)
}

func TestParseRejectsMissingTitle(t *testing.T) {
	_, err := Parse([]byte(`
empack:
  dependencies:
    - bad: "|mod"
`))
	require.Error(t, err)
}

func TestInheritFromFillsBlankFields(t *testing.T) {
	d := Declaration{Key: "cit", Title: "Citadel", Type: Mod}
	d.InheritFrom("1.21.1", "neoforge")
	assert.Equal(t, "1.21.1", d.MinecraftVersion)
	assert.Equal(t, "neoforge", d.Modloader)
}

func TestInheritFromDoesNotOverwriteExplicitValues(t *testing.T) {
	d := Declaration{Key: "apo", Title: "Apotheosis", Type: Mod, MinecraftVersion: "1.20.1", Modloader: "neoforge"}
	d.InheritFrom("1.21.1", "fabric")
	assert.Equal(t, "1.20.1", d.MinecraftVersion)
	assert.Equal(t, "neoforge", d.Modloader)
}

func TestCurseForgeClassIDMapping(t *testing.T) {
	assert.Equal(t, 6, CurseForgeClassID[Mod])
	assert.Equal(t, 12, CurseForgeClassID[ResourcePack])
	assert.Equal(t, 17, CurseForgeClassID[Datapack])
}
