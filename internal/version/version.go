// Package version carries the build identity of the custodian binaries and
// the helpers used to compare a client build against a running daemon.
package version

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
)

// Build identity, set with -ldflags "-X github.com/mrz1836/custodian/internal/version.Version=..."
//
//nolint:gochecknoglobals // ldflags targets
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// APIVersion is the only HTTP API version the daemon serves.
const APIVersion = "v1"

// Info describes one build of the daemon or the CLI.
type Info struct {
	Version     string   `json:"version"`
	Commit      string   `json:"commit"`
	Date        string   `json:"date"`
	GoVersion   string   `json:"go_version"`
	Platform    string   `json:"platform"`
	APIVersions []string `json:"versions"`
}

// Get returns the identity of the running binary.
func Get() Info {
	return Info{
		Version:     Version,
		Commit:      Commit,
		Date:        Date,
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		APIVersions: []string{APIVersion},
	}
}

// String renders the info the way `custodian version` prints it.
func (i Info) String() string {
	return fmt.Sprintf("custodian %s (commit %s, built %s, %s %s)", i.Version, i.Commit, i.Date, i.GoVersion, i.Platform)
}

// Supports reports whether the build serves the given API version.
func (i Info) Supports(api string) bool {
	return slices.Contains(i.APIVersions, api)
}

// Skew describes how a client build relates to a daemon build.
type Skew int

// Skew values.
const (
	SkewNone Skew = iota
	SkewClientOlder
	SkewClientNewer
)

// CompareBuilds reports the skew between a client and a daemon.
func CompareBuilds(client, daemon Info) Skew {
	switch CompareVersions(client.Version, daemon.Version) {
	case -1:
		return SkewClientOlder
	case 1:
		return SkewClientNewer
	default:
		return SkewNone
	}
}

// CompareVersions compares two version strings
// Returns:
//   - 1 if v1 > v2
//   - 0 if v1 == v2
//   - -1 if v1 < v2
//
//nolint:gocyclo,gocognit // Version comparison requires handling dev, commit hash, and semver cases
func CompareVersions(v1, v2 string) int {
	v1 = NormalizeVersion(v1)
	v2 = NormalizeVersion(v2)

	// Handle development versions and commit hashes
	isV1Dev := v1 == "dev" || v1 == "" || isCommitHash(v1)
	isV2Dev := v2 == "dev" || v2 == "" || isCommitHash(v2)

	if isV1Dev && isV2Dev {
		return 0
	}
	if isV1Dev {
		return -1 // dev/commit is always considered older than a release
	}
	if isV2Dev {
		return 1
	}

	// Split versions into parts
	parts1 := parseVersion(v1)
	parts2 := parseVersion(v2)

	// Compare major, minor, patch
	for i := 0; i < 3; i++ {
		if i >= len(parts1) && i >= len(parts2) {
			break
		}
		val1 := 0
		val2 := 0
		if i < len(parts1) {
			val1 = parts1[i]
		}
		if i < len(parts2) {
			val2 = parts2[i]
		}

		if val1 > val2 {
			return 1
		}
		if val1 < val2 {
			return -1
		}
	}

	return 0
}

// parseVersion parses a version string into major, minor, patch integers
func parseVersion(version string) []int {
	// Remove any suffixes like -dirty, -rc1, +build, etc.
	if idx := strings.IndexAny(version, "-+"); idx != -1 {
		version = version[:idx]
	}

	parts := strings.Split(version, ".")
	result := make([]int, 0, len(parts))

	for _, part := range parts {
		var num int
		if _, err := fmt.Sscanf(part, "%d", &num); err == nil {
			result = append(result, num)
		}
	}

	return result
}

// NormalizeVersion ensures version strings are in a consistent format.
// It removes the 'v' prefix, trims whitespace, and removes any pre-release
// or build metadata suffixes (e.g., -rc1, -dirty, +build).
func NormalizeVersion(version string) string {
	// Remove any pre-release or build metadata suffixes
	if idx := strings.IndexAny(version, "-+"); idx != -1 {
		version = version[:idx]
	}

	// Remove leading/trailing whitespace and 'v' prefixes until stable
	for {
		trimmed := strings.TrimSpace(version)
		trimmed = strings.TrimLeft(trimmed, "v")
		if trimmed == version {
			break
		}
		version = trimmed
	}

	return version
}

// isCommitHash checks if a string looks like a git commit hash.
// It requires the string to:
// - Be 7-40 characters long (short to full SHA-1)
// - Contain only hex characters (0-9, a-f, A-F)
// - Contain at least one letter (to distinguish from pure numeric versions)
//
//nolint:gocyclo,gocognit // Hex character validation requires explicit range checks
func isCommitHash(s string) bool {
	// Remove any -dirty suffix
	s = strings.TrimSuffix(s, "-dirty")

	// Commit hashes are typically 7-40 hex characters
	if len(s) < 7 || len(s) > 40 {
		return false
	}

	hasLetter := false
	for _, c := range s {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'

		if !isDigit && !isLowerHex && !isUpperHex {
			return false
		}
		if isLowerHex || isUpperHex {
			hasLetter = true
		}
	}

	// Require at least one letter to distinguish from pure numeric versions
	// like "1234567" or "2024010100"
	return hasLetter
}
