package declfile

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"empack/internal/errs"
)

// Pins is the ProjectPinning store (spec.md §3: "Optional per-project
// override: ProjectId → [VersionId]. One version pins; many versions
// install each"), keyed by the resolved platform project id — not by the
// empack.yml declaration label, since a pin survives even if a declaration
// is renamed or removed (spec.md §7: "treat pins as an immutable input file
// distinct from the declaration file").
type Pins map[string][]string

// rawPinsFile mirrors the pins.yml shape: a flat project_id -> version ids
// map under an `empack.pins` key, parallel to empack.yml's `empack.dependencies`.
type rawPinsFile struct {
	Empack struct {
		Pins map[string][]string `yaml:"pins"`
	} `yaml:"empack"`
}

// ParsePins reads a pins.yml document. A missing or empty pins section is
// valid and yields an empty Pins map (no project is pinned).
func ParsePins(data []byte) (Pins, error) {
	var raw rawPinsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errs.New(errs.InputFormat, "pins file is not valid YAML", err.Error(), "check indentation and quoting")
	}
	pins := make(Pins, len(raw.Empack.Pins))
	for projectID, versions := range raw.Empack.Pins {
		if projectID == "" {
			return nil, errs.New(errs.InputFormat, "a pin entry has an empty project id",
				"every empack.pins key must be a platform project id", "remove the blank entry or fill in the project id")
		}
		if len(versions) == 0 {
			return nil, errs.New(errs.InputFormat, fmt.Sprintf("pin %q has no version ids", projectID),
				"each pinned project must list at least one version id",
				"add one or more version ids under this project, or remove the entry")
		}
		pins[projectID] = versions
	}
	return pins, nil
}

// VersionsFor returns the pinned version ids for a project id, or nil if the
// project is unpinned (auto-version resolution applies).
func (p Pins) VersionsFor(projectID string) []string {
	return p[projectID]
}
