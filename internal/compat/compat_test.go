package compat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empack/internal/apiclient"
)

func mojang(versions ...string) *apiclient.MojangManifest {
	m := &apiclient.MojangManifest{}
	m.Latest.Release = versions[0]
	for _, v := range versions {
		m.Versions = append(m.Versions, struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		}{ID: v, Type: "release"})
	}
	return m
}

func TestZeroConfigGoldenPathDefaultsToNeoForge(t *testing.T) {
	catalogs := Catalogs{
		Mojang:   mojang("1.21.1", "1.20.1"),
		NeoForge: &apiclient.NeoForgeVersions{Stable: []string{"21.1.174", "21.1.100"}},
	}
	r := NewResolver(catalogs)
	res, err := r.Resolve(context.Background(), Input{}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "neoforge", string(res.Triple.Modloader))
	assert.Equal(t, SourceAutoFilled, res.Triple.Source)
	assert.Equal(t, StatusValidNeoForge, res.Triple.Status)
}

func TestExplicitIncompatibleFlagsFail(t *testing.T) {
	catalogs := Catalogs{
		Mojang:   mojang("1.21.1", "1.20.1"),
		NeoForge: &apiclient.NeoForgeVersions{Stable: []string{"21.1.174"}},
	}
	r := NewResolver(catalogs)
	res, err := r.Resolve(context.Background(), Input{
		Modloader: "neoforge", MinecraftVersion: "1.20.1", ModloaderVersion: "21.1.174",
	}, false, nil)
	require.Error(t, err)
	assert.Equal(t, StatusErrorIncompatible, res.Triple.Status)
	assert.Contains(t, err.Error(), "does not support")
}

func TestUpstreamDegradationFallsBackToConstants(t *testing.T) {
	catalogs := Catalogs{} // every upstream unavailable
	r := NewResolver(catalogs)
	res, err := r.Resolve(context.Background(), Input{}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusWarningAPIUnavailable, res.Triple.Status)
	assert.Equal(t, apiclient.FallbackNeoForgeVersion, res.Triple.ModloaderVersion)
	assert.NotEmpty(t, res.Warning)
}

func TestVanillaTripleNeedsNoModloaderVersion(t *testing.T) {
	catalogs := Catalogs{Mojang: mojang("1.21.1")}
	r := NewResolver(catalogs)
	res, err := r.Resolve(context.Background(), Input{Modloader: "vanilla", MinecraftVersion: "1.21.1"}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusValidVanilla, res.Triple.Status)
	assert.Empty(t, res.Triple.ModloaderVersion)
}

func TestUnknownModloaderIsRejected(t *testing.T) {
	r := NewResolver(Catalogs{})
	_, err := r.Resolve(context.Background(), Input{Modloader: "spigot"}, false, nil)
	require.Error(t, err)
}

func TestForgeEncodedVersionResolution(t *testing.T) {
	catalogs := Catalogs{
		Mojang: mojang("1.20.1"),
		Forge:  &apiclient.ForgeVersions{Stable: []string{"1.20.1-47.2.20", "1.20.1-47.2.0"}},
	}
	r := NewResolver(catalogs)
	res, err := r.Resolve(context.Background(), Input{Modloader: "forge", MinecraftVersion: "1.20.1"}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "47.2.20", res.Triple.ModloaderVersion)
}

func TestMalformedNeoForgeVersionFailsBasicValidationBeforeCompatibilityCheck(t *testing.T) {
	catalogs := Catalogs{
		Mojang:   mojang("1.21.1"),
		NeoForge: &apiclient.NeoForgeVersions{Stable: []string{"21.1.174"}},
	}
	r := NewResolver(catalogs)
	res, err := r.Resolve(context.Background(), Input{
		Modloader: "neoforge", MinecraftVersion: "1.21.1", ModloaderVersion: "abcd",
	}, false, nil)
	require.Error(t, err)
	assert.Equal(t, StatusErrorBasicValidation, res.Triple.Status)
}

func TestUnknownNeoForgeVersionFailsBasicValidation(t *testing.T) {
	catalogs := Catalogs{
		Mojang:   mojang("1.21.1"),
		NeoForge: &apiclient.NeoForgeVersions{Stable: []string{"21.1.174"}},
	}
	r := NewResolver(catalogs)
	res, err := r.Resolve(context.Background(), Input{
		Modloader: "neoforge", MinecraftVersion: "1.21.1", ModloaderVersion: "99.9.999",
	}, false, nil)
	require.Error(t, err)
	assert.Equal(t, StatusErrorBasicValidation, res.Triple.Status)
}

func TestUnknownMinecraftVersionFailsBasicValidationForForge(t *testing.T) {
	catalogs := Catalogs{
		Mojang: mojang("1.20.1"),
		Forge:  &apiclient.ForgeVersions{Stable: []string{"1.20.1-47.2.20"}},
	}
	r := NewResolver(catalogs)
	res, err := r.Resolve(context.Background(), Input{
		Modloader: "forge", MinecraftVersion: "1.99.9",
	}, false, nil)
	require.Error(t, err)
	assert.Equal(t, StatusErrorBasicValidation, res.Triple.Status)
}

func TestMalformedFabricVersionFailsBasicValidation(t *testing.T) {
	catalogs := Catalogs{
		Mojang: mojang("1.21.1"),
		Fabric: &apiclient.LoaderVersions{Stable: []string{"0.16.9"}},
	}
	r := NewResolver(catalogs)
	res, err := r.Resolve(context.Background(), Input{
		Modloader: "fabric", ModloaderVersion: "not-a-version",
	}, false, nil)
	require.Error(t, err)
	assert.Equal(t, StatusErrorBasicValidation, res.Triple.Status)
}

func TestNamespaceReflectsLastResolution(t *testing.T) {
	catalogs := Catalogs{Mojang: mojang("1.21.1"), NeoForge: &apiclient.NeoForgeVersions{Stable: []string{"21.1.174"}}}
	r := NewResolver(catalogs)
	_, _ = r.Resolve(context.Background(), Input{}, false, nil)

	ns := NewNamespace(r)
	status, _ := ns.Status()
	assert.Equal(t, "complete", string(status))
	assert.Equal(t, "neoforge", ns.Export()["modloader"])
}
