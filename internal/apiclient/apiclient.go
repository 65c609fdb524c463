// Package apiclient fetches and parses the five upstream VersionCatalog
// sources (spec.md §4.3 / §5 source table): the Mojang version manifest,
// NeoForge and Forge Maven metadata, and the Fabric and Quilt loader lists.
// Grounded on the teacher's minecraft.go (GLOBAL_MANIFEST), maven.go
// (MavenMetadata XML structs), and fabric.go (latest-release lookup); Quilt
// and Forge are new sources added to complete the spec's source table, built
// by generalizing the same two shapes (JSON loader list, Maven XML).
package apiclient

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"empack/internal/httpx"
)

const (
	mojangManifestURL = "https://launchermeta.mojang.com/mc/game/version_manifest.json"
	neoforgeMavenURL   = "https://maven.neoforged.net/releases/net/neoforged/neoforge/maven-metadata.xml"
	forgeMavenURL      = "https://maven.minecraftforge.net/net/minecraftforge/forge/maven-metadata.xml"
	fabricLoaderURL    = "https://meta.fabricmc.net/v2/versions/loader"
	quiltLoaderURL     = "https://meta.quiltmc.org/v3/versions/loader"
)

// MojangManifest is the subset of version_manifest.json empack reads,
// mirroring the teacher's minecraft.go shape.
type MojangManifest struct {
	Latest   struct{ Release, Snapshot string } `json:"latest"`
	Versions []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"versions"`
}

// FetchMojangManifest downloads and parses the Mojang version manifest.
func FetchMojangManifest(ctx context.Context) (*MojangManifest, error) {
	resp, err := httpx.Get(ctx, mojangManifestURL)
	if err != nil {
		return nil, fmt.Errorf("mojang manifest: %w", err)
	}
	defer resp.Body.Close()

	var m MojangManifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("mojang manifest: decode: %w", err)
	}
	return &m, nil
}

// ReleaseVersions returns every "release"-type version id, newest first.
func (m *MojangManifest) ReleaseVersions() []string {
	var out []string
	for _, v := range m.Versions {
		if v.Type == "release" {
			out = append(out, v.ID)
		}
	}
	return out
}

func (m *MojangManifest) Exists(version string) bool {
	for _, v := range m.Versions {
		if v.ID == version {
			return true
		}
	}
	return false
}

// mavenMetadata mirrors the teacher's MavenMetadata/MavenMetadataVersionInfo
// XML structs in maven.go, used for both NeoForge and Forge.
type mavenMetadata struct {
	XMLName    xml.Name `xml:"metadata"`
	GroupID    string   `xml:"groupId"`
	ArtifactID string   `xml:"artifactId"`
	Versioning struct {
		Latest   string `xml:"latest"`
		Release  string `xml:"release"`
		Versions struct {
			Version []string `xml:"version"`
		} `xml:"versions"`
	} `xml:"versioning"`
}

func fetchMavenMetadata(ctx context.Context, url string) (*mavenMetadata, error) {
	resp, err := httpx.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("maven metadata %s: %w", url, err)
	}
	defer resp.Body.Close()

	var m mavenMetadata
	if err := xml.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("maven metadata %s: decode: %w", url, err)
	}
	return &m, nil
}

func stringsContain(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func isPrerelease(version string) bool {
	lower := strings.ToLower(version)
	for _, marker := range []string{"beta", "alpha", "rc", "pre"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// NeoForgeVersions holds every published NeoForge version string
// ("<major>.<minor>.<patch>", spec.md §4.3).
type NeoForgeVersions struct {
	All    []string
	Stable []string
}

// Exists reports catalog membership (checked against both All and Stable,
// since a caller may have constructed a catalog from only one of them),
// satisfying internal/validate's Catalog interface for the Format
// Validator's existence checks.
func (v *NeoForgeVersions) Exists(version string) bool {
	return stringsContain(v.All, version) || stringsContain(v.Stable, version)
}

func FetchNeoForgeVersions(ctx context.Context) (*NeoForgeVersions, error) {
	m, err := fetchMavenMetadata(ctx, neoforgeMavenURL)
	if err != nil {
		return nil, err
	}
	v := &NeoForgeVersions{All: m.Versioning.Versions.Version}
	for _, ver := range v.All {
		if !isPrerelease(ver) {
			v.Stable = append(v.Stable, ver)
		}
	}
	return v, nil
}

// MinecraftMajorFor maps a NeoForge version to the Minecraft release it
// targets by the heuristic in spec.md §4.3: NeoForge "21.x.x" <-> MC
// "1.21.x", "20.x.x" <-> "1.20.x".
func (v *NeoForgeVersions) MinecraftMajorFor(neoforgeVersion string) (string, error) {
	parts := strings.SplitN(neoforgeVersion, ".", 2)
	if len(parts) == 0 || parts[0] == "" {
		return "", fmt.Errorf("malformed neoforge version %q", neoforgeVersion)
	}
	return "1." + parts[0], nil
}

// VersionsForMinecraftMajor filters to NeoForge versions whose leading
// component matches the given Minecraft major (e.g. "1.21" -> "21").
func (v *NeoForgeVersions) VersionsForMinecraftMajor(mcVersion string) []string {
	major := strings.TrimPrefix(mcVersion, "1.")
	major = strings.SplitN(major, ".", 2)[0]
	var out []string
	for _, ver := range v.Stable {
		if strings.HasPrefix(ver, major+".") {
			out = append(out, ver)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// ForgeVersions holds Forge's "<mc>-<forge>"-encoded version strings.
type ForgeVersions struct {
	All    []string
	Stable []string
}

// Exists reports whether version (the bare Forge version, not the
// "<mc>-<forge>" encoding) appears anywhere in All or Stable, satisfying
// internal/validate's Catalog interface.
func (v *ForgeVersions) Exists(version string) bool {
	for _, encoded := range append(append([]string{}, v.All...), v.Stable...) {
		if _, forge, err := v.Split(encoded); err == nil && forge == version {
			return true
		}
	}
	return false
}

func FetchForgeVersions(ctx context.Context) (*ForgeVersions, error) {
	m, err := fetchMavenMetadata(ctx, forgeMavenURL)
	if err != nil {
		return nil, err
	}
	v := &ForgeVersions{All: m.Versioning.Versions.Version}
	for _, ver := range v.All {
		if !isPrerelease(ver) {
			v.Stable = append(v.Stable, ver)
		}
	}
	return v, nil
}

// Split decodes Forge's "<mc>-<forge>" encoding.
func (v *ForgeVersions) Split(encoded string) (mcVersion, forgeVersion string, err error) {
	idx := strings.Index(encoded, "-")
	if idx < 0 {
		return "", "", fmt.Errorf("malformed forge version %q: missing mc-forge separator", encoded)
	}
	mc := encoded[:idx]
	if mc == "" || mc[0] < '0' || mc[0] > '9' {
		return "", "", fmt.Errorf("malformed forge version %q: %q is not a minecraft version", encoded, mc)
	}
	return mc, encoded[idx+1:], nil
}

// VersionsForMinecraft returns Forge versions built against the given MC
// version, along with the bare Forge version component.
func (v *ForgeVersions) VersionsForMinecraft(mcVersion string) []string {
	var out []string
	for _, ver := range v.Stable {
		mc, forge, err := v.Split(ver)
		if err != nil || mc != mcVersion {
			continue
		}
		out = append(out, forge)
	}
	return out
}

// loaderEntry mirrors Fabric/Quilt's v2/v3 loader-list JSON shape: a flat
// array of {version, stable}.
type loaderEntry struct {
	Version string `json:"version"`
	Stable  bool   `json:"stable"`
}

// LoaderVersions is the parsed result for Fabric or Quilt — both are
// Minecraft-version-agnostic within their supported range (spec.md §4.3),
// so there is no MC-version filtering here.
type LoaderVersions struct {
	All    []string
	Stable []string
}

// Exists reports catalog membership (checked against both All and Stable),
// satisfying internal/validate's Catalog interface.
func (v *LoaderVersions) Exists(version string) bool {
	return stringsContain(v.All, version) || stringsContain(v.Stable, version)
}

func fetchLoaderVersions(ctx context.Context, url string) (*LoaderVersions, error) {
	resp, err := httpx.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("loader list %s: %w", url, err)
	}
	defer resp.Body.Close()

	var entries []loaderEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("loader list %s: decode: %w", url, err)
	}

	v := &LoaderVersions{}
	for _, e := range entries {
		v.All = append(v.All, e.Version)
		if e.Stable {
			v.Stable = append(v.Stable, e.Version)
		}
	}
	return v, nil
}

func FetchFabricVersions(ctx context.Context) (*LoaderVersions, error) {
	return fetchLoaderVersions(ctx, fabricLoaderURL)
}

// FetchQuiltVersions uses the endpoint's "stable" flags when any entry
// carries one; when none does, a version counts as "stable" iff its string
// has no prerelease marker (beta, alpha, rc, pre).
func FetchQuiltVersions(ctx context.Context) (*LoaderVersions, error) {
	v, err := fetchLoaderVersions(ctx, quiltLoaderURL)
	if err != nil {
		return nil, err
	}
	if len(v.Stable) == 0 {
		for _, ver := range v.All {
			if !isPrerelease(ver) {
				v.Stable = append(v.Stable, ver)
			}
		}
	}
	return v, nil
}

// Fallback constants used when every upstream is unavailable (spec.md §4.5
// S6: "warning_api_unavailable ... fallback constants (e.g., NeoForge
// 21.1.174 + MC 1.21.1)"). These are deliberately conservative known-good
// pairings, refreshed whenever the teacher's stack is rebuilt.
const (
	FallbackMinecraftVersion = "1.21.1"
	FallbackNeoForgeVersion  = "21.1.174"
	FallbackFabricVersion    = "0.16.9"
	FallbackQuiltVersion     = "0.26.3"
	FallbackForgeVersion     = "52.0.33"
)
