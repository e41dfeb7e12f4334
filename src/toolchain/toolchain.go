// Package toolchain works out which JDK and Ant release a legacy Ant project
// needs. Everything here degrades to a permissive default instead of failing:
// an unreadable build.xml must never block a rebuild.
package toolchain

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/sofmeright/rebuildkit/src/logging"
)

const (
	// AntVersionJava5 is the last Ant release that still runs on Java 5-7.
	AntVersionJava5 = "1.9.16"

	// AntVersionJava8 is the Ant release used for Java 8 and newer.
	AntVersionJava8 = "1.10.13"

	// BuildFile is the conventional Ant descriptor name.
	BuildFile = "build.xml"

	javacSourceProperty = "ant.build.javac.source"
	javacTargetProperty = "ant.build.javac.target"
)

var defaultAntArgs = []string{"-v"}

// VersionRange is the JDK range a build may run with. All three fields are
// release numbers as strings.
type VersionRange struct {
	Min       string `json:"min" yaml:"min"`
	Max       string `json:"max" yaml:"max"`
	Preferred string `json:"preferred" yaml:"preferred"`
}

// Valid reports whether Min <= Preferred <= Max numerically.
func (r VersionRange) Valid() bool {
	lo, err := semver.NewVersion(r.Min)
	if err != nil {
		return false
	}
	hi, err := semver.NewVersion(r.Max)
	if err != nil {
		return false
	}
	pref, err := semver.NewVersion(r.Preferred)
	if err != nil {
		return false
	}
	return lo.Compare(pref) <= 0 && pref.Compare(hi) <= 0
}

func (r VersionRange) String() string {
	return fmt.Sprintf("[%s,%s] preferred %s", r.Min, r.Max, r.Preferred)
}

// Selection is the full toolchain decision for one project.
type Selection struct {
	Java  JavaVersion
	Range VersionRange
	Ant   string
}

// RangeFor maps a detected Java release to the JDK range to build with.
// Projects that pin Java 7 or newer get exactly that JDK; older or missing
// declarations get a range a modern JDK can still satisfy.
func RangeFor(v JavaVersion) VersionRange {
	switch {
	case !v.Known():
		return VersionRange{Min: "7", Max: "17", Preferred: "8"}
	case v == 6:
		return VersionRange{Min: "7", Max: "11", Preferred: "8"}
	case v < 6:
		return VersionRange{Min: "7", Max: "8", Preferred: "8"}
	}
	s := v.String()
	return VersionRange{Min: s, Max: s, Preferred: s}
}

// AntVersionFor returns the Ant release that runs on the given Java release.
// An empty or non-numeric value is treated as a modern JDK.
func AntVersionFor(javaVersion string) string {
	javaVersion = strings.TrimSpace(javaVersion)
	if javaVersion == "" {
		return AntVersionJava8
	}
	n, err := strconv.Atoi(javaVersion)
	if err != nil || n >= 8 {
		return AntVersionJava8
	}
	return AntVersionJava5
}

// DefaultAntArgs returns the arguments every Ant invocation starts with.
func DefaultAntArgs() []string {
	return append([]string(nil), defaultAntArgs...)
}

// IsAntBuild reports whether path is, or contains, a readable build.xml.
func IsAntBuild(path string) bool {
	f, err := os.Open(descriptorPath(path))
	if err != nil {
		return false
	}
	defer f.Close()
	fi, err := f.Stat()
	return err == nil && fi.Mode().IsRegular()
}

// Resolver inspects Ant descriptors.
type Resolver struct {
	logger zerolog.Logger
}

// NewResolver creates a resolver logging through logger.
func NewResolver(logger zerolog.Logger) *Resolver {
	return &Resolver{logger: logging.Component(logger, "toolchain")}
}

// JavaVersion returns the Java release the descriptor at path targets.
// ant.build.javac.target wins over ant.build.javac.source. Any problem
// loading or parsing the descriptor is logged and reported as Unknown.
func (r *Resolver) JavaVersion(path string) (v JavaVersion) {
	buildFile := descriptorPath(path)
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Str("descriptor", buildFile).Interface("panic", rec).
				Msg("Failed to determine Java version for ant project")
			v = Unknown
		}
	}()

	if !IsAntBuild(buildFile) {
		r.logger.Debug().Str("descriptor", buildFile).Msg("no readable ant descriptor")
		return Unknown
	}

	props, err := LoadProperties(buildFile)
	if err != nil {
		r.logger.Error().Err(err).Str("descriptor", buildFile).
			Msg("Failed to determine Java version for ant project")
		return Unknown
	}

	v, err = javaVersionFromProperties(props)
	if err != nil {
		r.logger.Error().Err(err).Str("descriptor", buildFile).
			Msg("Failed to determine Java version for ant project")
		return Unknown
	}

	r.logger.Debug().Str("descriptor", buildFile).Str("java", v.String()).Msg("resolved java version")
	return v
}

// VersionRange returns the JDK range for the descriptor at path.
func (r *Resolver) VersionRange(path string) VersionRange {
	return RangeFor(r.JavaVersion(path))
}

// Resolve returns the Java release, JDK range and Ant release together.
func (r *Resolver) Resolve(path string) Selection {
	v := r.JavaVersion(path)
	return Selection{
		Java:  v,
		Range: RangeFor(v),
		Ant:   AntVersionFor(v.String()),
	}
}

func javaVersionFromProperties(props map[string]string) (JavaVersion, error) {
	if target := strings.TrimSpace(props[javacTargetProperty]); target != "" {
		return ParseJavaVersion(target)
	}
	if source := strings.TrimSpace(props[javacSourceProperty]); source != "" {
		return ParseJavaVersion(source)
	}
	return Unknown, nil
}

func descriptorPath(path string) string {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return filepath.Join(path, BuildFile)
	}
	return path
}
