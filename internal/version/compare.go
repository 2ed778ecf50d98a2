package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckConfigCompatibility checks whether a config file's declared schema
// version is compatible with the schema version this binary reads.
// Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - An empty declared version skips the check (legacy configs)
//   - Major versions must match exactly
//   - The declared minor version must not exceed the binary's minor version
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
//
// Examples, with binary schema 1.2.0:
//   - Config 1.2.0 -> OK (exact match)
//   - Config 1.2.5 -> OK (patch differs)
//   - Config 1.1.0 -> OK (older minor, binary still reads it)
//   - Config 1.3.0 -> ERROR (config uses fields this binary doesn't know)
//   - Config 2.0.0 -> ERROR (major differs)
//   - Config ""    -> OK (no declaration, skip check)
func CheckConfigCompatibility(declaredVersion, schemaVersion string) error {
	// Strip 'v' prefix if present for consistency
	declaredVersion = strings.TrimPrefix(declaredVersion, "v")
	schemaVersion = strings.TrimPrefix(schemaVersion, "v")

	// Configs written before schema versioning carry no declaration
	if declaredVersion == "" {
		return nil
	}

	declaredSemver, err := semver.NewVersion(declaredVersion)
	if err != nil {
		return fmt.Errorf("invalid config version '%s': %w", declaredVersion, err)
	}

	schemaSemver, err := semver.NewVersion(schemaVersion)
	if err != nil {
		return fmt.Errorf("invalid schema version '%s': %w", schemaVersion, err)
	}

	if declaredSemver.Major() != schemaSemver.Major() {
		return fmt.Errorf("config schema major version mismatch: config declares %d.x.x but this binary reads %d.x.x",
			declaredSemver.Major(), schemaSemver.Major())
	}

	if declaredSemver.Minor() > schemaSemver.Minor() {
		return fmt.Errorf("config schema too new: config declares %d.%d.x but this binary reads up to %d.%d.x",
			declaredSemver.Major(), declaredSemver.Minor(),
			schemaSemver.Major(), schemaSemver.Minor())
	}

	// Patch versions can differ, so we're compatible
	return nil
}
