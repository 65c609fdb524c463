// Package manifest provides read-only access to pack/pack.toml (spec.md
// §3 "PackManifest"). packwiz owns this file; empack's core reads it but
// never rewrites it directly — every field-level write goes through a
// `packwiz` subprocess invocation (internal/subprocess), matching the
// teacher's own deference to external tool-owned files (its ModPack reads
// manifest.json but routes mutations through installMod/installOverrides).
package manifest

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Manifest is the subset of pack.toml empack depends on.
type Manifest struct {
	Name            string `toml:"name"`
	Author          string `toml:"author"`
	Version         string `toml:"version"`
	PackFormat      string `toml:"pack-format"`
	Index           IndexRef `toml:"index"`
	Versions        Versions `toml:"versions"`
}

type IndexRef struct {
	File   string `toml:"file"`
	HashFormat string `toml:"hash-format"`
	Hash   string `toml:"hash"`
}

// Versions carries minecraft_version plus whichever single modloader
// version field is present; Vanilla packs leave all loader fields empty.
type Versions struct {
	Minecraft string `toml:"minecraft"`
	NeoForge  string `toml:"neoforge"`
	Forge     string `toml:"forge"`
	Fabric    string `toml:"fabric"`
	Quilt     string `toml:"quilt"`
}

// Modloader reports which loader field is populated, or "vanilla" if none.
func (v Versions) Modloader() string {
	switch {
	case v.NeoForge != "":
		return "neoforge"
	case v.Forge != "":
		return "forge"
	case v.Fabric != "":
		return "fabric"
	case v.Quilt != "":
		return "quilt"
	default:
		return "vanilla"
	}
}

// ModloaderVersion returns whichever loader version field is populated.
func (v Versions) ModloaderVersion() string {
	switch {
	case v.NeoForge != "":
		return v.NeoForge
	case v.Forge != "":
		return v.Forge
	case v.Fabric != "":
		return v.Fabric
	case v.Quilt != "":
		return v.Quilt
	default:
		return ""
	}
}

// Load parses pack.toml at path.
func Load(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("parse pack manifest %s: %w", path, err)
	}
	return &m, nil
}
