// Package compat implements the Compatibility Resolver (spec.md §4.5): the
// 3D (modloader, minecraft_version, modloader_version) matrix validator and
// auto-filler. This is the subsystem the spec calls "the hard part" — it is
// the only place partial user intent becomes a fully validated
// EcosystemTriple, consulting internal/apiclient's five catalogs with
// graceful degradation rather than ever guessing.
//
// Grounded on the teacher's forge.go/fabric.go "pick the latest compatible
// version" logic, generalized into an explicit mode-selection + auto-fill +
// re-validation pipeline per spec.md §4.5, since the teacher itself never
// had to resolve across four interchangeable modloaders.
package compat

import (
	"context"
	"fmt"

	"empack/internal/apiclient"
	"empack/internal/errs"
	"empack/internal/state"
	"empack/internal/validate"
)

// Source distinguishes why a triple's fields hold the values they do.
type Source string

const (
	SourceUserProvided Source = "user-provided"
	SourceAutoFilled   Source = "auto-filled"
)

// Status is the resolver's outcome taxonomy (spec.md §4.5).
type Status string

const (
	StatusErrorBasicValidation Status = "error_basic_validation"
	StatusErrorIncompatible    Status = "error_incompatible"
	StatusErrorUnknownModloader Status = "error_unknown_modloader"
	StatusWarningAPIUnavailable Status = "warning_api_unavailable"
	StatusValidVanilla         Status = "valid_vanilla"
	StatusValidNeoForge        Status = "valid_neoforge_api"
	StatusValidFabric          Status = "valid_fabric_api"
	StatusValidQuilt           Status = "valid_quilt_api"
	StatusValidForge           Status = "valid_forge_api"
)

// Triple is an EcosystemTriple plus its resolution provenance.
type Triple struct {
	Modloader        validate.Modloader
	MinecraftVersion string
	ModloaderVersion string // empty for Vanilla
	Source           Source
	Status           Status
}

// Input is the zero-to-three partially-specified fields a caller supplies,
// from CLI flags or interactive prompts.
type Input struct {
	Modloader        string // empty means unset
	MinecraftVersion string
	ModloaderVersion string
}

// Result carries the resolved triple plus diagnostics for the caller to
// render (suggestions, the degradation warning, etc).
type Result struct {
	Triple      Triple
	Suggestions []string // up to 3, populated on error_incompatible
	Warning     string   // populated on warning_api_unavailable
}

// Catalogs bundles the five upstream sources the resolver consults. Each
// field may be nil if its fetch failed; a nil catalog is treated as
// "upstream unavailable" rather than a crash.
type Catalogs struct {
	Mojang   *apiclient.MojangManifest
	NeoForge *apiclient.NeoForgeVersions
	Fabric   *apiclient.LoaderVersions
	Quilt    *apiclient.LoaderVersions
	Forge    *apiclient.ForgeVersions
}

// Resolver ties a Catalogs snapshot to the State Store's "compatibility"
// namespace.
type Resolver struct {
	catalogs Catalogs
	last     Result
	lastErr  error
}

func NewResolver(catalogs Catalogs) *Resolver {
	return &Resolver{catalogs: catalogs}
}

// Resolve runs the full mode-selection → auto-fill → re-validation pipeline
// described in spec.md §4.5.
func (r *Resolver) Resolve(ctx context.Context, in Input, interactive bool, prompt func(Input) Input) (Result, error) {
	res, err := r.resolve(ctx, in, interactive, prompt)
	r.last, r.lastErr = res, err
	return res, err
}

func (r *Resolver) resolve(ctx context.Context, in Input, interactive bool, prompt func(Input) Input) (Result, error) {
	switch {
	case in.Modloader == "" && in.MinecraftVersion == "" && in.ModloaderVersion == "":
		// Zero-config golden path: default modloader, then resolve the rest.
		in.Modloader = string(validate.NeoForge)
	case interactive && prompt != nil:
		// Interactive auto-fill: provided values become prompt defaults.
		in = prompt(in)
	}
	// Explicit non-interactive (or post-prompt) falls through to the same
	// auto-fill + full matrix validation below.

	ml, ok := validate.ValidateModloader(in.Modloader)
	if !ok {
		return Result{Triple: Triple{Status: StatusErrorUnknownModloader}},
			fmt.Errorf("unknown modloader %q", in.Modloader)
	}

	autoFilled := in.MinecraftVersion == "" || (ml != validate.Vanilla && in.ModloaderVersion == "")
	source := SourceUserProvided
	if autoFilled {
		source = SourceAutoFilled
	}

	triple, result, err := r.fillAndValidate(ml, in)
	triple.Source = source
	result.Triple = triple

	if err == nil && autoFilled {
		// spec.md §4.5: "After auto-fill, always re-run full matrix
		// validation with source=auto-filled. An auto-filled triple that
		// fails validation is an internal error."
		_, revalidated, revalErr := r.validateExisting(triple)
		if revalErr != nil || revalidated.Triple.Status == StatusErrorIncompatible ||
			revalidated.Triple.Status == StatusErrorBasicValidation {
			return result, errs.Internalf("auto-filled triple %+v failed re-validation: %v", triple, revalErr)
		}
	}

	return result, err
}

// fillAndValidate performs steps 1-4 of the §4.5 algorithm plus the
// auto-fill rules, in the specified order-sensitive sequence.
func (r *Resolver) fillAndValidate(ml validate.Modloader, in Input) (Triple, Result, error) {
	if ml == validate.Vanilla {
		if in.MinecraftVersion == "" {
			if r.catalogs.Mojang == nil {
				return Triple{Modloader: ml}, Result{Warning: "mojang catalog unavailable", Triple: Triple{Status: StatusWarningAPIUnavailable}},
					nil
			}
			in.MinecraftVersion = r.catalogs.Mojang.Latest.Release
		}
		if sv := validate.ValidateSemver(in.MinecraftVersion, "minecraft_version"); !sv.Valid {
			return Triple{}, Result{Triple: Triple{Status: StatusErrorBasicValidation}},
				fmt.Errorf("malformed minecraft_version %q", in.MinecraftVersion)
		}
		if r.catalogs.Mojang != nil && !r.catalogs.Mojang.Exists(in.MinecraftVersion) {
			return Triple{}, Result{Triple: Triple{Status: StatusErrorBasicValidation}},
				fmt.Errorf("unknown minecraft_version %q", in.MinecraftVersion)
		}
		t := Triple{Modloader: validate.Vanilla, MinecraftVersion: in.MinecraftVersion, Status: StatusValidVanilla}
		return t, Result{Triple: t}, nil
	}

	switch ml {
	case validate.NeoForge:
		return r.resolveNeoForge(in)
	case validate.Fabric:
		return r.resolveLoaderAgnostic(ml, in, r.catalogs.Fabric, StatusValidFabric)
	case validate.Quilt:
		return r.resolveLoaderAgnostic(ml, in, r.catalogs.Quilt, StatusValidQuilt)
	case validate.Forge:
		return r.resolveForge(in)
	default:
		return Triple{}, Result{Triple: Triple{Status: StatusErrorUnknownModloader}}, fmt.Errorf("unhandled modloader %q", ml)
	}
}

func (r *Resolver) resolveNeoForge(in Input) (Triple, Result, error) {
	if err := validateUserFields(in); err != nil {
		return Triple{}, Result{Triple: Triple{Status: StatusErrorBasicValidation}}, err
	}

	if r.catalogs.NeoForge == nil {
		t := Triple{Modloader: validate.NeoForge,
			MinecraftVersion: coalesce(in.MinecraftVersion, apiclient.FallbackMinecraftVersion),
			ModloaderVersion: coalesce(in.ModloaderVersion, apiclient.FallbackNeoForgeVersion),
			Status:           StatusWarningAPIUnavailable}
		return t, Result{Triple: t, Warning: "neoforge maven metadata unavailable; using fallback versions"}, nil
	}

	if in.MinecraftVersion != "" && r.catalogs.Mojang != nil && !validate.ValidateMinecraftExists(in.MinecraftVersion, r.catalogs.Mojang) {
		return Triple{}, Result{Triple: Triple{Status: StatusErrorBasicValidation}},
			fmt.Errorf("unknown minecraft_version %q", in.MinecraftVersion)
	}
	if in.ModloaderVersion != "" && !validate.ValidateModloaderVersionExists(validate.NeoForge, in.ModloaderVersion, r.catalogs.NeoForge) {
		return Triple{}, Result{Triple: Triple{Status: StatusErrorBasicValidation}},
			fmt.Errorf("unknown neoforge version %q", in.ModloaderVersion)
	}

	nfVersion := in.ModloaderVersion
	if nfVersion == "" {
		if in.MinecraftVersion != "" {
			candidates := r.catalogs.NeoForge.VersionsForMinecraftMajor(in.MinecraftVersion)
			if len(candidates) == 0 {
				return Triple{}, Result{Triple: Triple{Status: StatusErrorIncompatible}},
					fmt.Errorf("no neoforge version supports minecraft %q", in.MinecraftVersion)
			}
			nfVersion = candidates[0]
		} else if len(r.catalogs.NeoForge.Stable) > 0 {
			nfVersion = r.catalogs.NeoForge.Stable[len(r.catalogs.NeoForge.Stable)-1]
		}
	}

	mcVersion := in.MinecraftVersion
	if mcVersion == "" {
		major, err := r.catalogs.NeoForge.MinecraftMajorFor(nfVersion)
		if err != nil {
			return Triple{}, Result{Triple: Triple{Status: StatusErrorBasicValidation}}, err
		}
		mcVersion = major + ".1"
	}

	supported := r.catalogs.NeoForge.VersionsForMinecraftMajor(mcVersion)
	if !contains(supported, nfVersion) {
		return Triple{}, Result{
			Triple:      Triple{Status: StatusErrorIncompatible},
			Suggestions: firstN(supported, 3),
		}, fmt.Errorf("neoforge %s does not support minecraft %s", nfVersion, mcVersion)
	}

	t := Triple{Modloader: validate.NeoForge, MinecraftVersion: mcVersion, ModloaderVersion: nfVersion, Status: StatusValidNeoForge}
	return t, Result{Triple: t}, nil
}

func (r *Resolver) resolveForge(in Input) (Triple, Result, error) {
	if err := validateUserFields(in); err != nil {
		return Triple{}, Result{Triple: Triple{Status: StatusErrorBasicValidation}}, err
	}

	if r.catalogs.Forge == nil {
		t := Triple{Modloader: validate.Forge,
			MinecraftVersion: coalesce(in.MinecraftVersion, apiclient.FallbackMinecraftVersion),
			ModloaderVersion: coalesce(in.ModloaderVersion, apiclient.FallbackForgeVersion),
			Status:           StatusWarningAPIUnavailable}
		return t, Result{Triple: t, Warning: "forge maven metadata unavailable; using fallback versions"}, nil
	}

	if in.MinecraftVersion != "" && r.catalogs.Mojang != nil && !validate.ValidateMinecraftExists(in.MinecraftVersion, r.catalogs.Mojang) {
		return Triple{}, Result{Triple: Triple{Status: StatusErrorBasicValidation}},
			fmt.Errorf("unknown minecraft_version %q", in.MinecraftVersion)
	}
	if in.ModloaderVersion != "" && !validate.ValidateModloaderVersionExists(validate.Forge, in.ModloaderVersion, r.catalogs.Forge) {
		return Triple{}, Result{Triple: Triple{Status: StatusErrorBasicValidation}},
			fmt.Errorf("unknown forge version %q", in.ModloaderVersion)
	}

	mcVersion := in.MinecraftVersion
	if mcVersion == "" && in.ModloaderVersion != "" {
		for _, encoded := range r.catalogs.Forge.Stable {
			mc, forge, err := r.catalogs.Forge.Split(encoded)
			if err == nil && forge == in.ModloaderVersion {
				mcVersion = mc
				break
			}
		}
	}
	if mcVersion == "" {
		return Triple{}, Result{Triple: Triple{Status: StatusErrorBasicValidation}},
			fmt.Errorf("cannot determine minecraft_version for forge")
	}

	forgeVersion := in.ModloaderVersion
	supported := r.catalogs.Forge.VersionsForMinecraft(mcVersion)
	if forgeVersion == "" {
		if len(supported) == 0 {
			return Triple{}, Result{Triple: Triple{Status: StatusErrorIncompatible}},
				fmt.Errorf("no forge version supports minecraft %q", mcVersion)
		}
		forgeVersion = supported[0]
	}
	if !contains(supported, forgeVersion) {
		return Triple{}, Result{
			Triple:      Triple{Status: StatusErrorIncompatible},
			Suggestions: firstN(supported, 3),
		}, fmt.Errorf("forge %s does not support minecraft %s", forgeVersion, mcVersion)
	}

	t := Triple{Modloader: validate.Forge, MinecraftVersion: mcVersion, ModloaderVersion: forgeVersion, Status: StatusValidForge}
	return t, Result{Triple: t}, nil
}

// resolveLoaderAgnostic handles Fabric and Quilt, which spec.md §4.3 treats
// as minecraft-version-agnostic within their supported range: any stable
// loader version is assumed compatible with any minecraft_version.
func (r *Resolver) resolveLoaderAgnostic(ml validate.Modloader, in Input, catalog *apiclient.LoaderVersions, valid Status) (Triple, Result, error) {
	if err := validateUserFields(in); err != nil {
		return Triple{}, Result{Triple: Triple{Status: StatusErrorBasicValidation}}, err
	}

	if catalog == nil {
		fallback := apiclient.FallbackFabricVersion
		if ml == validate.Quilt {
			fallback = apiclient.FallbackQuiltVersion
		}
		t := Triple{Modloader: ml,
			MinecraftVersion: coalesce(in.MinecraftVersion, apiclient.FallbackMinecraftVersion),
			ModloaderVersion: coalesce(in.ModloaderVersion, fallback),
			Status:           StatusWarningAPIUnavailable}
		return t, Result{Triple: t, Warning: fmt.Sprintf("%s catalog unavailable; using fallback versions", ml)}, nil
	}

	loaderVersion := in.ModloaderVersion
	if loaderVersion == "" {
		if len(catalog.Stable) == 0 {
			return Triple{}, Result{Triple: Triple{Status: StatusErrorIncompatible}}, fmt.Errorf("no stable %s loader version available", ml)
		}
		loaderVersion = catalog.Stable[0]
	} else if !validate.ValidateModloaderVersionExists(ml, loaderVersion, catalog) {
		return Triple{}, Result{Triple: Triple{Status: StatusErrorBasicValidation}},
			fmt.Errorf("unknown %s loader version %q", ml, loaderVersion)
	}

	mcVersion := in.MinecraftVersion
	if mcVersion == "" {
		mcVersion = apiclient.FallbackMinecraftVersion
	} else if r.catalogs.Mojang != nil && !validate.ValidateMinecraftExists(mcVersion, r.catalogs.Mojang) {
		return Triple{}, Result{Triple: Triple{Status: StatusErrorBasicValidation}},
			fmt.Errorf("unknown minecraft_version %q", mcVersion)
	}

	t := Triple{Modloader: ml, MinecraftVersion: mcVersion, ModloaderVersion: loaderVersion, Status: valid}
	return t, Result{Triple: t}, nil
}

// validateExisting re-runs full matrix validation on an already-constructed
// triple, used for the mandatory post-auto-fill re-validation pass.
func (r *Resolver) validateExisting(t Triple) (Triple, Result, error) {
	return r.fillAndValidate(t.Modloader, Input{
		Modloader:        string(t.Modloader),
		MinecraftVersion: t.MinecraftVersion,
		ModloaderVersion: t.ModloaderVersion,
	})
}

// validateUserFields applies the Format Validator to whichever of
// minecraft_version/modloader_version the caller actually supplied, before
// any of it reaches a compatibility check (spec.md §4.5 steps 1-2: "apply
// Format Validator ... fail fast"). Mirrors the check the Vanilla path
// already performs on minecraft_version.
func validateUserFields(in Input) error {
	if in.MinecraftVersion != "" {
		if sv := validate.ValidateSemver(in.MinecraftVersion, "minecraft_version"); !sv.Valid {
			return fmt.Errorf("malformed minecraft_version %q", in.MinecraftVersion)
		}
	}
	if in.ModloaderVersion != "" {
		if sv := validate.ValidateSemver(in.ModloaderVersion, "modloader_version"); !sv.Valid {
			return fmt.Errorf("malformed modloader_version %q", in.ModloaderVersion)
		}
	}
	return nil
}

func coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func firstN(ss []string, n int) []string {
	if len(ss) <= n {
		return ss
	}
	return ss[:n]
}

// Namespace implements state.Namespace for the "compatibility" subsystem,
// publishing the last resolution attempt.
type Namespace struct {
	r *Resolver
}

func NewNamespace(r *Resolver) *Namespace {
	return &Namespace{r: r}
}

func (n *Namespace) Clear() {
	n.r.last = Result{}
	n.r.lastErr = nil
}

func (n *Namespace) Export() map[string]interface{} {
	t := n.r.last.Triple
	return map[string]interface{}{
		"modloader":         string(t.Modloader),
		"minecraft_version": t.MinecraftVersion,
		"modloader_version": t.ModloaderVersion,
		"source":            string(t.Source),
		"status":            string(t.Status),
	}
}

func (n *Namespace) Status() (state.Status, string) {
	if n.r.lastErr != nil {
		return state.StatusError, n.r.lastErr.Error()
	}
	if n.r.last.Triple.Status == "" {
		return state.StatusUnknown, "no triple resolved yet"
	}
	return state.StatusComplete, string(n.r.last.Triple.Status)
}

func (n *Namespace) Validate() error {
	return nil
}
