// Package declfile parses empack.yml (spec.md §3 "ProjectDeclaration", §6
// "Declaration file"): a YAML list of single-key maps, each value a
// pipe-delimited "Title|Type|MC?|Loader?" string. Keys are stable output
// labels only, never sent upstream.
package declfile

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"empack/internal/errs"
)

// ProjectType is the normalized Modrinth-taxonomy project type.
type ProjectType string

const (
	Mod          ProjectType = "mod"
	Modpack      ProjectType = "modpack"
	ResourcePack ProjectType = "resourcepack"
	Shader       ProjectType = "shader"
	Datapack     ProjectType = "datapack"
)

// normalizeAliases maps platform-specific spellings onto the canonical
// Modrinth taxonomy (spec.md §3).
var normalizeAliases = map[string]ProjectType{
	"texturepack": ResourcePack,
	"data-pack":   Datapack,
}

// CurseForgeClassID maps a normalized ProjectType to its CurseForge class id
// (spec.md §4.7: "mod=6, resourcepack=12, datapack=17").
var CurseForgeClassID = map[ProjectType]int{
	Mod:          6,
	ResourcePack: 12,
	Datapack:     17,
}

// Declaration is one parsed empack.yml entry.
type Declaration struct {
	Key              string
	Title            string
	Type             ProjectType
	MinecraftVersion string // empty inherits from PackManifest
	Modloader        string // empty inherits from PackManifest
}

// rawEntry is a single-key map, e.g. {"cit": "Citadel|mod"}.
type rawEntry map[string]string

type rawFile struct {
	Empack struct {
		Dependencies []rawEntry `yaml:"dependencies"`
	} `yaml:"empack"`
}

// Parse reads and parses an empack.yml document, in declaration order.
func Parse(data []byte) ([]Declaration, error) {
	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errs.New(errs.InputFormat, "empack.yml is not valid YAML", err.Error(), "check indentation and quoting")
	}

	decls := make([]Declaration, 0, len(raw.Empack.Dependencies))
	for _, entry := range raw.Empack.Dependencies {
		if len(entry) != 1 {
			return nil, errs.New(errs.InputFormat, "each empack.dependencies entry must have exactly one key",
				fmt.Sprintf("found an entry with %d keys", len(entry)),
				"use one `label: \"Title|Type|MC?|Loader?\"` map per list item")
		}
		for key, value := range entry {
			d, err := parseLine(key, value)
			if err != nil {
				return nil, err
			}
			decls = append(decls, d)
		}
	}
	return decls, nil
}

func parseLine(key, line string) (Declaration, error) {
	fields := strings.Split(line, "|")
	if len(fields) == 0 || strings.TrimSpace(fields[0]) == "" {
		return Declaration{}, errs.New(errs.InputFormat,
			fmt.Sprintf("declaration %q has no title", key),
			"title is the first pipe-delimited field and is required",
			"use `\"Title|Type\"` at minimum")
	}

	d := Declaration{Key: key, Title: strings.TrimSpace(fields[0])}

	if len(fields) > 1 && strings.TrimSpace(fields[1]) != "" {
		pt, err := normalizeType(strings.TrimSpace(fields[1]))
		if err != nil {
			return Declaration{}, err
		}
		d.Type = pt
	} else {
		d.Type = Mod
	}

	if len(fields) > 2 {
		d.MinecraftVersion = strings.TrimSpace(fields[2])
	}
	if len(fields) > 3 {
		d.Modloader = strings.TrimSpace(fields[3])
	}
	return d, nil
}

func normalizeType(raw string) (ProjectType, error) {
	lower := strings.ToLower(raw)
	if alias, ok := normalizeAliases[lower]; ok {
		return alias, nil
	}
	switch ProjectType(lower) {
	case Mod, Modpack, ResourcePack, Shader, Datapack:
		return ProjectType(lower), nil
	default:
		return "", errs.New(errs.InputFormat,
			fmt.Sprintf("unknown project type %q", raw),
			"project type must be one of mod, modpack, resourcepack, shader, datapack (or an alias: texturepack, data-pack)",
			"fix the declaration's second pipe-delimited field")
	}
}

// InheritFrom fills MinecraftVersion/Modloader from the given pack defaults
// when the declaration left them blank (spec.md §4.7 step 1).
func (d *Declaration) InheritFrom(mcVersion, modloader string) {
	if d.MinecraftVersion == "" {
		d.MinecraftVersion = mcVersion
	}
	if d.Modloader == "" {
		d.Modloader = modloader
	}
}
