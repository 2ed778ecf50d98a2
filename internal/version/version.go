package version

// Version is the current version of the argo-scalper binary.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/argo-scalper/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "main"

// ConfigSchemaVersion is the configuration schema version this binary reads.
// Config files may declare the schema version they were written against; the
// declared version must be compatible with this one.
const ConfigSchemaVersion = "1.0.0"

// GetVersion returns the current version of the binary.
func GetVersion() string {
	return Version
}
