/*
Package version provides build information for ifs-cloud-mcp.

Values are injected via ldflags during release builds:
  - Version: git tag (e.g., v0.3.0)
  - Commit: short git commit hash
  - Date: build date in UTC (YYYY-MM-DD)

Local builds report "dev".
*/
package version

// Build information (set via ldflags during build)
var (
	// Version is the release version (e.g., v0.3.0)
	Version = "dev"
	// Commit is the git commit hash (short form)
	Commit = "none"
	// Date is the build date in UTC (YYYY-MM-DD)
	Date = "unknown"
)

// GetVersion returns version information as a formatted string
func GetVersion() string {
	return FormatVersion(Version, Commit, Date)
}

// FormatVersion formats version components into a display string
func FormatVersion(version, commit, date string) string {
	if version == "dev" {
		return version + " (development build)"
	}
	return version + " (commit: " + commit + ", built: " + date + ")"
}

// GetVersionComponents returns individual version components
func GetVersionComponents() (version, commit, date string) {
	return Version, Commit, Date
}

// ServerVersion returns the version string advertised to MCP clients.
func ServerVersion() string {
	if Version == "dev" {
		return "0.0.0-dev"
	}
	return Version
}
