// Package osversion maps raw OS-version strings reported by Homebrew
// clients to human-readable release names.
package osversion

import (
	"fmt"
	"regexp"
	"strings"
)

// macosMinor maps 10.x minor versions to release names.
var macosMinor = map[string]string{
	"10.11": "El Capitan",
	"10.12": "Sierra",
	"10.13": "High Sierra",
	"10.14": "Mojave",
	"10.15": "Catalina",
	"10.16": "Big Sur", // reported by pre-11 builds running on Big Sur
}

// macosMajor maps post-10.15 major versions to release names.
var macosMajor = map[string]string{
	"11": "Big Sur",
	"12": "Monterey",
	"13": "Ventura",
	"14": "Sonoma",
	"15": "Sequoia",
	"26": "Tahoe",
}

var (
	versionPrefix = regexp.MustCompile(`^(\d+)(?:\.(\d+))?`)
	ubuntuVersion = regexp.MustCompile(`^Ubuntu (\d+\.\d+)`)
)

// Normalizer rewrites raw dimension values into release names. Overrides
// take precedence over the built-in tables; unknown values pass through
// unchanged.
type Normalizer struct {
	overrides map[string]string
}

// New returns a Normalizer with the given overrides, which may be nil.
func New(overrides map[string]string) *Normalizer {
	return &Normalizer{overrides: overrides}
}

// Normalize maps a raw OS-version string to its release name. It is total
// (always returns a non-empty string for non-empty input) and idempotent:
// already-normalized names carry no bare version prefix and pass through.
func (n *Normalizer) Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return raw
	}

	if n.overrides != nil {
		if name, ok := n.overrides[s]; ok {
			return name
		}
	}

	// Clients report either a bare Darwin version ("10.15.7", "14.3.1")
	// or a "macOS 14" style prefix.
	stripped := strings.TrimPrefix(s, "macOS ")
	if m := versionPrefix.FindStringSubmatch(stripped); m != nil {
		return normalizeMac(m[1], m[2], s)
	}

	// Homebrew on Linux reports distro strings; collapse Ubuntu point
	// releases ("Ubuntu 22.04.3 LTS") to the series.
	if m := ubuntuVersion.FindStringSubmatch(s); m != nil {
		return "Ubuntu " + m[1]
	}

	return s
}

// normalizeMac resolves a macOS major[.minor] version pair. The original
// string is returned when the version is not in the tables.
func normalizeMac(major, minor, original string) string {
	if major == "10" {
		if minor == "" {
			return original
		}
		key := major + "." + minor
		if name, ok := macosMinor[key]; ok {
			return fmt.Sprintf("%s (%s)", name, key)
		}
		return original
	}

	if name, ok := macosMajor[major]; ok {
		return fmt.Sprintf("%s (%s)", name, major)
	}
	return original
}

var defaultNormalizer = New(nil)

// Normalize applies the built-in tables without overrides.
func Normalize(raw string) string {
	return defaultNormalizer.Normalize(raw)
}
