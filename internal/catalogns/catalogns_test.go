package catalogns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empack/internal/apiclient"
	"empack/internal/compat"
	"empack/internal/state"
)

func TestNamespaceUnrefreshedReportsUnknown(t *testing.T) {
	n := NewNamespace()
	status, detail := n.Status()
	assert.Equal(t, state.StatusUnknown, status)
	assert.Contains(t, detail, "never refreshed")
	assert.True(t, n.RefreshedAt().IsZero())
}

func TestRecordPopulatesCountsAndTimestamp(t *testing.T) {
	n := NewNamespace()
	n.Record(compat.Catalogs{
		Mojang:   &apiclient.MojangManifest{},
		NeoForge: &apiclient.NeoForgeVersions{All: []string{"21.1.174"}},
		Fabric:   &apiclient.LoaderVersions{All: []string{"0.16.9"}},
		Quilt:    &apiclient.LoaderVersions{All: []string{"0.27.0"}},
		Forge:    &apiclient.ForgeVersions{All: []string{"1.20.1-47.2.20"}},
	})

	status, detail := n.Status()
	assert.Equal(t, state.StatusComplete, status)
	assert.Equal(t, "all five catalogs present", detail)
	assert.False(t, n.RefreshedAt().IsZero())

	fields := n.Export()
	assert.Equal(t, 1, fields["neoforge"])
	assert.Equal(t, 1, fields["forge"])
}

func TestRecordWithMissingCatalogReportsError(t *testing.T) {
	n := NewNamespace()
	n.Record(compat.Catalogs{Mojang: &apiclient.MojangManifest{}})

	status, _ := n.Status()
	assert.Equal(t, state.StatusError, status)
}

func TestSaveAndLoadSnapshotRoundTrips(t *testing.T) {
	dir := t.TempDir()

	n := NewNamespace()
	n.Record(compat.Catalogs{
		Mojang:   &apiclient.MojangManifest{},
		NeoForge: &apiclient.NeoForgeVersions{All: []string{"21.1.174"}},
		Fabric:   &apiclient.LoaderVersions{All: []string{"0.16.9"}},
		Quilt:    &apiclient.LoaderVersions{All: []string{"0.27.0"}},
		Forge:    &apiclient.ForgeVersions{All: []string{"1.20.1-47.2.20"}},
	})
	require.NoError(t, n.SaveSnapshot(dir))

	loaded := NewNamespace()
	require.NoError(t, loaded.LoadSnapshot(dir))
	assert.Equal(t, n.RefreshedAt().Unix(), loaded.RefreshedAt().Unix())
	assert.Equal(t, n.Export(), loaded.Export())
}

func TestLoadSnapshotMissingFileIsNotAnError(t *testing.T) {
	n := NewNamespace()
	require.NoError(t, n.LoadSnapshot(t.TempDir()))
	assert.True(t, n.RefreshedAt().IsZero())
}

func TestClearResetsNamespace(t *testing.T) {
	n := NewNamespace()
	n.Record(compat.Catalogs{Mojang: &apiclient.MojangManifest{}})
	n.Clear()

	status, _ := n.Status()
	assert.Equal(t, state.StatusUnknown, status)
	assert.Empty(t, n.Export())
}
