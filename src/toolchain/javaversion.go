package toolchain

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/Masterminds/semver/v3"
)

// JavaVersion is a normalized Java feature release (5, 6, 7, 8, 11, ...).
type JavaVersion int

// Unknown means the descriptor did not say which Java release it targets.
// It is a valid result, not an error.
const Unknown JavaVersion = -1

// Known reports whether v carries an actual release number.
func (v JavaVersion) Known() bool { return v > 0 }

// String returns the release number, or "" when unknown.
func (v JavaVersion) String() string {
	if !v.Known() {
		return ""
	}
	return strconv.Itoa(int(v))
}

// leadingVersionRe keeps the dotted numeric head of values like "1.8.0_181" or "11-ea".
var leadingVersionRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+){0,2})`)

// ParseJavaVersion normalizes javac style version strings. Both the legacy
// "1.x" scheme and the modern feature-release scheme are accepted:
//
//	"1.5" → 5, "1.8" → 8, "8" → 8, "11.0.2" → 11, "17" → 17
func ParseJavaVersion(s string) (JavaVersion, error) {
	m := leadingVersionRe.FindStringSubmatch(s)
	if m == nil {
		return Unknown, fmt.Errorf("toolchain: unrecognized java version %q", s)
	}

	v, err := semver.NewVersion(m[1])
	if err != nil {
		return Unknown, fmt.Errorf("toolchain: parsing java version %q: %w", s, err)
	}

	release := v.Major()
	if release == 1 {
		release = v.Minor()
	}
	if release == 0 {
		return Unknown, fmt.Errorf("toolchain: java version %q has no release number", s)
	}
	return JavaVersion(release), nil
}
